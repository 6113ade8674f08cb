package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mafuth/drive-to-iftar/internal/repository"
	"github.com/rs/zerolog/log"
)

// ChallengeMonitor is the background sweep: one perpetual loop that detects
// day rollovers and re-evaluates penalties for every user still holding a
// score. A failed tick is logged and the loop waits for the next one; it
// only exits on context cancellation.
type ChallengeMonitor struct {
	challenges *ChallengeService
	users      repository.UserRepository
	clock      clockwork.Clock
	interval   time.Duration

	lastSeenDay string
}

func NewChallengeMonitor(challenges *ChallengeService, users repository.UserRepository, clock clockwork.Clock, interval time.Duration) *ChallengeMonitor {
	return &ChallengeMonitor{
		challenges: challenges,
		users:      users,
		clock:      clock,
		interval:   interval,
	}
}

func (m *ChallengeMonitor) Run(ctx context.Context) {
	m.lastSeenDay = m.challenges.Window().Day(m.clock.Now())

	log.Info().
		Str("day", m.lastSeenDay).
		Dur("interval", m.interval).
		Msg("challenge monitor started")

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("challenge monitor stopped")
			return
		case <-ticker.Chan():
			m.tick(ctx)
		}
	}
}

func (m *ChallengeMonitor) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("challenge monitor tick panicked")
		}
	}()

	now := m.clock.Now()
	day := m.challenges.Window().Day(now)

	if day != m.lastSeenDay {
		log.Info().Str("day", day).Msg("new challenge day detected, reconciling")
		if err := m.challenges.ReconcileDayRollover(ctx); err != nil {
			// Keep lastSeenDay unchanged so the rollover is retried on
			// the next tick.
			log.Error().Err(err).Msg("day rollover reconciliation failed")
		} else {
			m.lastSeenDay = day
		}
	}

	users, err := m.users.GetWithPositiveScore(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load users for penalty sweep")
		return
	}

	for _, user := range users {
		if err := m.challenges.EvaluateAndPenalize(ctx, user); err != nil {
			log.Error().Err(err).
				Str("user_id", user.ID.String()).
				Msg("penalty evaluation failed for user")
		}
	}
}
