package challenge

import (
	"fmt"
	"time"
)

// Window maps wall-clock instants onto challenge days. The service runs in a
// fixed UTC offset (Maldives, UTC+5, by default) regardless of server locale,
// and collection is accepted only between StartHour (inclusive) and EndHour
// (exclusive) of that local day.
type Window struct {
	UTCOffset time.Duration
	StartHour int
	EndHour   int
}

func NewWindow(utcOffsetHours, startHour, endHour int) Window {
	return Window{
		UTCOffset: time.Duration(utcOffsetHours) * time.Hour,
		StartHour: startHour,
		EndHour:   endHour,
	}
}

const dayFormat = "2006-01-02"

func (w Window) local(now time.Time) time.Time {
	return now.UTC().Add(w.UTCOffset)
}

// Day returns the challenge calendar date for the given instant.
func (w Window) Day(now time.Time) string {
	return w.local(now).Format(dayFormat)
}

// PreviousDay returns the challenge date one day before the given instant's.
func (w Window) PreviousDay(now time.Time) string {
	return w.local(now).AddDate(0, 0, -1).Format(dayFormat)
}

// IsOpen reports whether the collection window is open at the given instant.
func (w Window) IsOpen(now time.Time) bool {
	hour := w.local(now).Hour()
	return hour >= w.StartHour && hour < w.EndHour
}

// OpenDay returns the current challenge date if the window is open.
func (w Window) OpenDay(now time.Time) (string, bool) {
	if !w.IsOpen(now) {
		return "", false
	}
	return w.Day(now), true
}

// LocalHour returns the hour of day in the window's offset zone.
func (w Window) LocalHour(now time.Time) int {
	return w.local(now).Hour()
}

// Bounds renders the window as "HH:00 - HH:00" for status payloads.
func (w Window) Bounds() string {
	return fmt.Sprintf("%02d:00 - %02d:00", w.StartHour, w.EndHour)
}
