package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mafuth/drive-to-iftar/internal/challenge"
	"github.com/mafuth/drive-to-iftar/internal/config"
	"github.com/mafuth/drive-to-iftar/internal/domain"
	"github.com/mafuth/drive-to-iftar/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrChallengeWindowClosed = errors.New("challenge window closed")

// ChallengeService is the daily-challenge ledger: it owns the two per-user
// fields (dates collected today, last challenge date) and is the only code
// allowed to mutate them or to apply the score penalty.
type ChallengeService struct {
	repos   *repository.Repositories
	window  challenge.Window
	targets challenge.TargetGenerator
	clock   clockwork.Clock
}

func NewChallengeService(repos *repository.Repositories, clock clockwork.Clock, cfg *config.Config) *ChallengeService {
	return &ChallengeService{
		repos:   repos,
		window:  challenge.NewWindow(cfg.UTCOffsetHours, cfg.DatesStartHour, cfg.DatesEndHour),
		targets: challenge.TargetGenerator{MinTarget: cfg.DatesMinTarget, MaxTarget: cfg.DatesMaxTarget},
		clock:   clock,
	}
}

// Window exposes the configured time window (handlers render its bounds).
func (s *ChallengeService) Window() challenge.Window {
	return s.window
}

// Collect adds count collected dates to the user's ledger for today. It
// fails outside the window and initializes the counter on the first
// collection of a new day. Deliberately not idempotent: each call is a
// distinct collection event.
func (s *ChallengeService) Collect(ctx context.Context, userID uuid.UUID, count int) (int, error) {
	now := s.clock.Now()
	today, open := s.window.OpenDay(now)
	if !open {
		return 0, ErrChallengeWindowClosed
	}

	var collected int
	err := s.repos.Tx.WithTx(ctx, func(r *repository.Repositories) error {
		user, err := r.User.GetByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if user.LastChallengeDate == nil || *user.LastChallengeDate != today {
			user.DatesCollectedToday = 0
			user.LastChallengeDate = &today
		}
		user.DatesCollectedToday += count
		collected = user.DatesCollectedToday
		return r.User.Update(ctx, user)
	})
	if err != nil {
		return 0, err
	}
	return collected, nil
}

// EvaluateAndPenalize is the login-time / sweep-time reconciliation: it
// determines the most recent day whose window has conclusively closed and
// zeroes the user's score if that day's target was missed. Safe to call
// repeatedly; a wiped score stays zero.
func (s *ChallengeService) EvaluateAndPenalize(ctx context.Context, user *domain.User) error {
	// Never participated, nothing to check.
	if user.LastChallengeDate == nil {
		return nil
	}

	now := s.clock.Now()
	hour := s.window.LocalHour(now)
	today := s.window.Day(now)

	// Before the window opens or while it is running, today is still
	// undecided; the last conclusive day is yesterday. After the window
	// closes, today itself is conclusive.
	checkDate := s.window.PreviousDay(now)
	if hour >= s.window.EndHour {
		checkDate = today
	}

	last := *user.LastChallengeDate

	// Missed the conclusive day entirely.
	if last < checkDate {
		return s.resetScore(ctx, user, checkDate, 0, 0)
	}

	if last == checkDate {
		// Counter data is reliable when checking today (no wipe has run
		// yet) or when the nightly wipe demonstrably hasn't touched it.
		reliable := checkDate == today || user.DatesCollectedToday > 0
		if reliable {
			target := s.targets.Target(checkDate, user.Score)
			if user.DatesCollectedToday < target {
				return s.resetScore(ctx, user, checkDate, user.DatesCollectedToday, target)
			}
		}
	}

	return nil
}

// ReconcileDayRollover runs once per detected date change: penalize
// yesterday's participants that fell short, then wipe every user's daily
// counter. The wipe is global and unconditional so users who never played
// start the new day clean too; it runs second because penalty evaluation
// needs yesterday's counts intact.
func (s *ChallengeService) ReconcileDayRollover(ctx context.Context) error {
	now := s.clock.Now()
	yesterday := s.window.PreviousDay(now)

	players, err := s.repos.User.GetByLastChallengeDate(ctx, yesterday)
	if err != nil {
		return err
	}

	for _, user := range players {
		target := s.targets.Target(yesterday, user.Score)
		if user.DatesCollectedToday >= target {
			continue
		}
		if err := s.resetScore(ctx, user, yesterday, user.DatesCollectedToday, target); err != nil {
			// One user's bad row must not block the rest of the sweep.
			log.Error().Err(err).
				Str("user_id", user.ID.String()).
				Msg("rollover penalty failed for user")
		}
	}

	return s.repos.User.ResetAllDailyCollections(ctx)
}

type ChallengeStatus struct {
	Active    bool   `json:"active"`
	Target    int    `json:"target"`
	Collected int    `json:"collected"`
	Window    string `json:"window"`
}

// Status is a read-only projection of the user's standing for today.
func (s *ChallengeService) Status(user *domain.User) ChallengeStatus {
	now := s.clock.Now()
	status := ChallengeStatus{Window: s.window.Bounds()}

	today, open := s.window.OpenDay(now)
	if !open {
		return status
	}

	status.Active = true
	status.Target = s.targets.Target(today, user.Score)
	if user.LastChallengeDate != nil && *user.LastChallengeDate == today {
		status.Collected = user.DatesCollectedToday
	}
	return status
}

type DailyLeaderboardEntry struct {
	Username string  `json:"username"`
	Dates    int     `json:"dates"`
	Photo    *string `json:"photo"`
}

// DailyLeaderboard returns today's top collectors. Outside the window it
// falls back to the current calendar day so results remain visible after
// close.
func (s *ChallengeService) DailyLeaderboard(ctx context.Context, limit int) ([]DailyLeaderboardEntry, error) {
	now := s.clock.Now()
	day, open := s.window.OpenDay(now)
	if !open {
		day = s.window.Day(now)
	}

	users, err := s.repos.User.DailyLeaderboard(ctx, day, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]DailyLeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, DailyLeaderboardEntry{
			Username: u.DisplayTag(),
			Dates:    u.DatesCollectedToday,
			Photo:    u.ProfilePhoto,
		})
	}
	return entries, nil
}

// resetScore zeroes the user's best score, re-checking under a row lock so
// repeated evaluations stay idempotent and skip the write entirely when the
// score is already zero.
func (s *ChallengeService) resetScore(ctx context.Context, user *domain.User, day string, collected, target int) error {
	if user.Score <= 0 {
		return nil
	}

	err := s.repos.Tx.WithTx(ctx, func(r *repository.Repositories) error {
		locked, err := r.User.GetByIDForUpdate(ctx, user.ID)
		if err != nil {
			return err
		}
		if locked.Score <= 0 {
			return nil
		}

		log.Info().
			Str("user_id", locked.ID.String()).
			Str("day", day).
			Int("collected", collected).
			Int("target", target).
			Int("previous_score", locked.Score).
			Msg("daily challenge failed, resetting score")

		locked.Score = 0
		return r.User.Update(ctx, locked)
	})
	if err != nil {
		return err
	}

	user.Score = 0
	return nil
}
