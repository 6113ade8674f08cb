package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mafuth/drive-to-iftar/internal/challenge"
	"github.com/mafuth/drive-to-iftar/internal/repository/postgres"
	"github.com/mafuth/drive-to-iftar/internal/service"
	"github.com/mafuth/drive-to-iftar/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	// 10:00 UTC is 15:00 local (+5), inside the 01:00-24:00 window, on
	// challenge day 2026-02-19.
	insideWindow = time.Date(2026, 2, 19, 10, 0, 0, 0, time.UTC)

	// 19:30 UTC is 00:30 local on 2026-02-20, before the window opens.
	beforeWindow = time.Date(2026, 2, 19, 19, 30, 0, 0, time.UTC)
)

func newChallengeService(t *testing.T, db *gorm.DB, at time.Time) (*service.ChallengeService, *clockwork.FakeClock) {
	t.Helper()
	repos := postgres.NewRepositories(db)
	clock := clockwork.NewFakeClockAt(at)
	return service.NewChallengeService(repos, clock, testutil.TestConfig()), clock
}

// targetFor mirrors the deterministic goal so tests can construct counts just
// above or below it.
func targetFor(day string, score int) int {
	gen := challenge.TargetGenerator{MinTarget: 10, MaxTarget: 100}
	return gen.Target(day, score)
}

func TestChallengeService_Collect(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	svc, _ := newChallengeService(t, testDB.DB, insideWindow)
	ctx := context.Background()

	t.Run("first collection initializes the day", func(t *testing.T) {
		user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

		collected, err := svc.Collect(ctx, user.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, collected)

		reloaded, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.LastChallengeDate)
		assert.Equal(t, "2026-02-19", *reloaded.LastChallengeDate)
		assert.Equal(t, 1, reloaded.DatesCollectedToday)
	})

	t.Run("collections accumulate within a day", func(t *testing.T) {
		user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

		_, err := svc.Collect(ctx, user.ID, 3)
		require.NoError(t, err)
		collected, err := svc.Collect(ctx, user.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, collected)
	})

	t.Run("stale day restarts the counter", func(t *testing.T) {
		user, _ := testutil.NewUserBuilder().
			WithChallengeProgress("2026-02-18", 30).
			Build(t, testDB.DB)

		collected, err := svc.Collect(ctx, user.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, collected)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Collect(ctx, uuid.New(), 1)
		assert.ErrorIs(t, err, service.ErrUserNotFound)
	})
}

func TestChallengeService_CollectOutsideWindow(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	svc, _ := newChallengeService(t, testDB.DB, beforeWindow)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().
		WithChallengeProgress("2026-02-19", 7).
		Build(t, testDB.DB)

	_, err := svc.Collect(ctx, user.ID, 1)
	assert.ErrorIs(t, err, service.ErrChallengeWindowClosed)

	// Rejected collections must leave the ledger untouched.
	reloaded, err := repos.User.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.DatesCollectedToday)
	assert.Equal(t, "2026-02-19", *reloaded.LastChallengeDate)
}

func TestChallengeService_EvaluateAndPenalize(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	svc, _ := newChallengeService(t, testDB.DB, insideWindow)
	ctx := context.Background()

	// With the clock inside 2026-02-19's window, the last conclusive day is
	// 2026-02-18.
	yesterday := "2026-02-18"

	t.Run("never participated is exempt", func(t *testing.T) {
		user, _ := testutil.NewUserBuilder().WithScore(9000).Build(t, testDB.DB)

		require.NoError(t, svc.EvaluateAndPenalize(ctx, user))
		assert.Equal(t, 9000, user.Score)
	})

	t.Run("skipped the conclusive day entirely", func(t *testing.T) {
		user, _ := testutil.NewUserBuilder().
			WithScore(9000).
			WithChallengeProgress("2026-02-15", 50).
			Build(t, testDB.DB)

		require.NoError(t, svc.EvaluateAndPenalize(ctx, user))
		assert.Equal(t, 0, user.Score)

		reloaded, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, reloaded.Score)
	})

	t.Run("fell short of the target", func(t *testing.T) {
		target := targetFor(yesterday, 9000)
		user, _ := testutil.NewUserBuilder().
			WithScore(9000).
			WithChallengeProgress(yesterday, target-1).
			Build(t, testDB.DB)

		require.NoError(t, svc.EvaluateAndPenalize(ctx, user))
		assert.Equal(t, 0, user.Score)
	})

	t.Run("met the target keeps the score", func(t *testing.T) {
		target := targetFor(yesterday, 9000)
		user, _ := testutil.NewUserBuilder().
			WithScore(9000).
			WithChallengeProgress(yesterday, target).
			Build(t, testDB.DB)

		require.NoError(t, svc.EvaluateAndPenalize(ctx, user))
		assert.Equal(t, 9000, user.Score)
	})

	t.Run("wiped counter is not treated as a miss", func(t *testing.T) {
		// A zero counter for yesterday is ambiguous after the nightly wipe,
		// so no penalty applies.
		user, _ := testutil.NewUserBuilder().
			WithScore(9000).
			WithChallengeProgress(yesterday, 0).
			Build(t, testDB.DB)

		require.NoError(t, svc.EvaluateAndPenalize(ctx, user))
		assert.Equal(t, 9000, user.Score)
	})

	t.Run("today's progress is never penalized early", func(t *testing.T) {
		user, _ := testutil.NewUserBuilder().
			WithScore(9000).
			WithChallengeProgress("2026-02-19", 1).
			Build(t, testDB.DB)

		require.NoError(t, svc.EvaluateAndPenalize(ctx, user))
		assert.Equal(t, 9000, user.Score)
	})

	t.Run("idempotent once wiped", func(t *testing.T) {
		user, _ := testutil.NewUserBuilder().
			WithScore(9000).
			WithChallengeProgress("2026-02-15", 50).
			Build(t, testDB.DB)

		require.NoError(t, svc.EvaluateAndPenalize(ctx, user))
		require.NoError(t, svc.EvaluateAndPenalize(ctx, user))
		assert.Equal(t, 0, user.Score)
	})
}

func TestChallengeService_EvaluateAfterWindowClose(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	ctx := context.Background()

	// A shortened window closing at 18:00 local: at 18:30 local today is
	// already conclusive.
	cfg := testutil.TestConfig()
	cfg.DatesEndHour = 18
	repos := postgres.NewRepositories(testDB.DB)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 2, 19, 13, 30, 0, 0, time.UTC)) // 18:30 local
	svc := service.NewChallengeService(repos, clock, cfg)

	gen := challenge.TargetGenerator{MinTarget: cfg.DatesMinTarget, MaxTarget: cfg.DatesMaxTarget}
	target := gen.Target("2026-02-19", 9000)

	user, _ := testutil.NewUserBuilder().
		WithScore(9000).
		WithChallengeProgress("2026-02-19", target-1).
		Build(t, testDB.DB)

	require.NoError(t, svc.EvaluateAndPenalize(ctx, user))
	assert.Equal(t, 0, user.Score)
}

func TestChallengeService_ReconcileDayRollover(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	svc, _ := newChallengeService(t, testDB.DB, insideWindow)
	ctx := context.Background()

	yesterday := "2026-02-18"

	shortfallTarget := targetFor(yesterday, 9000)
	shortfall, _ := testutil.NewUserBuilder().
		WithScore(9000).
		WithChallengeProgress(yesterday, shortfallTarget-1).
		Build(t, testDB.DB)

	achieverTarget := targetFor(yesterday, 4000)
	achiever, _ := testutil.NewUserBuilder().
		WithScore(4000).
		WithChallengeProgress(yesterday, achieverTarget).
		Build(t, testDB.DB)

	bystander, _ := testutil.NewUserBuilder().
		WithScore(2500).
		WithChallengeProgress("2026-02-19", 4).
		Build(t, testDB.DB)

	require.NoError(t, svc.ReconcileDayRollover(ctx))

	reloaded, err := repos.User.GetByID(ctx, shortfall.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Score, "shortfall loses the score")

	reloaded, err = repos.User.GetByID(ctx, achiever.ID)
	require.NoError(t, err)
	assert.Equal(t, 4000, reloaded.Score, "achiever keeps the score")

	// The wipe is global: every counter restarts at zero, including users
	// who were not part of yesterday's challenge.
	for _, id := range []uuid.UUID{shortfall.ID, achiever.ID, bystander.ID} {
		reloaded, err = repos.User.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, reloaded.DatesCollectedToday)
	}

	reloaded, err = repos.User.GetByID(ctx, bystander.ID)
	require.NoError(t, err)
	assert.Equal(t, 2500, reloaded.Score, "yesterday's no-shows with other days untouched")
}

func TestChallengeService_Status(t *testing.T) {
	testDB := testutil.NewTestDB(t)

	t.Run("active inside window", func(t *testing.T) {
		svc, _ := newChallengeService(t, testDB.DB, insideWindow)
		user, _ := testutil.NewUserBuilder().
			WithScore(12000).
			WithChallengeProgress("2026-02-19", 5).
			Build(t, testDB.DB)

		status := svc.Status(user)
		assert.True(t, status.Active)
		assert.Equal(t, targetFor("2026-02-19", 12000), status.Target)
		assert.Equal(t, 5, status.Collected)
		assert.Equal(t, "01:00 - 24:00", status.Window)
	})

	t.Run("stale progress shows zero collected", func(t *testing.T) {
		svc, _ := newChallengeService(t, testDB.DB, insideWindow)
		user, _ := testutil.NewUserBuilder().
			WithChallengeProgress("2026-02-18", 40).
			Build(t, testDB.DB)

		status := svc.Status(user)
		assert.True(t, status.Active)
		assert.Equal(t, 0, status.Collected)
	})

	t.Run("inactive outside window", func(t *testing.T) {
		svc, _ := newChallengeService(t, testDB.DB, beforeWindow)
		user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

		status := svc.Status(user)
		assert.False(t, status.Active)
		assert.Equal(t, 0, status.Target)
	})
}

func TestChallengeService_DailyLeaderboard(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	svc, _ := newChallengeService(t, testDB.DB, insideWindow)
	ctx := context.Background()

	testutil.NewUserBuilder().WithUsername("midpack").
		WithChallengeProgress("2026-02-19", 10).Build(t, testDB.DB)
	testutil.NewUserBuilder().WithUsername("leader").
		WithChallengeProgress("2026-02-19", 25).Build(t, testDB.DB)
	testutil.NewUserBuilder().WithUsername("straggler").
		WithChallengeProgress("2026-02-19", 3).Build(t, testDB.DB)
	// Progress from another day never shows up.
	testutil.NewUserBuilder().WithUsername("yesterday_hero").
		WithChallengeProgress("2026-02-18", 99).Build(t, testDB.DB)

	entries, err := svc.DailyLeaderboard(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Contains(t, entries[0].Username, "leader")
	assert.Equal(t, 25, entries[0].Dates)
	assert.Contains(t, entries[1].Username, "midpack")
	assert.Contains(t, entries[2].Username, "straggler")
}
