package challenge

import (
	"hash/fnv"
	"math/rand"
)

// TargetGenerator computes the per-day collection goal. The base target is
// drawn uniformly from [MinTarget, MaxTarget] by a PRNG seeded from the day
// string, so every user sees the same base on the same day; the user's best
// score then raises the goal by one date per 5000 points, uncapped.
type TargetGenerator struct {
	MinTarget int
	MaxTarget int
}

const (
	targetSeedPrefix  = "daily_dates_"
	scorePerExtraDate = 5000
)

// Target is deterministic: identical (day, userScore) inputs always yield the
// identical value, so historical days can be re-evaluated idempotently. A
// fresh generator is built per call; no shared PRNG state exists.
func (g TargetGenerator) Target(day string, userScore int) int {
	h := fnv.New64a()
	h.Write([]byte(targetSeedPrefix + day))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	base := g.MinTarget + rng.Intn(g.MaxTarget-g.MinTarget+1)
	return base + userScore/scorePerExtraDate
}
