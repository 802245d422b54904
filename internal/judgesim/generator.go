package judgesim

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/rxnight/tally/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	archetypeDivisor   = 6
)

// Constants for contestant quality bands on the 0-100 judging scale.
const (
	strugglingMin   = 20.0
	strugglingRange = 20.0
	averageMin      = 45.0
	averageRange    = 20.0
	strongMin       = 65.0
	strongRange     = 15.0
	eliteMin        = 82.0
	eliteRange      = 13.0
	wildcardMin     = 10.0
	wildcardRange   = 85.0
)

// Judge disagreement around a contestant's base quality.
const (
	judgeJitter = 8.0
	scoreMax    = 100.0
)

// Contestant archetype cases.
const (
	caseStruggling = 0
	caseAverage    = 1 // weighted twice so the middle of the field dominates
	caseAverage2   = 2
	caseStrong     = 3
	caseElite      = 4
	caseWildcard   = 5
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateSubmissions produces one score per judge seat for every
// contestant: each contestant draws a base quality from a banded
// distribution and each judge scores around it with independent jitter.
func generateSubmissions(ctx context.Context, contestants []contestant, stats *Stats) ([]Submission, error) {
	logger.Get().Info(ctx, "generating judge submissions",
		logger.Int("contestants", len(contestants)),
		logger.Int("judges", JudgeCount))

	submissions := make([]Submission, 0, len(contestants)*JudgeCount)
	for _, c := range contestants {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during score generation: %w", ctx.Err())
		default:
		}

		base := generateBaseQuality()
		for judge := 1; judge <= JudgeCount; judge++ {
			submissions = append(submissions, Submission{
				ContestantID: c.ID,
				JudgeNumber:  judge,
				TotalScore:   jitterScore(base),
			})
		}
	}

	stats.ScoresGenerated = len(submissions)
	logger.Get().Info(ctx, "generated submissions successfully", logger.Int("count", len(submissions)))

	return submissions, nil
}

// generateBaseQuality draws a contestant's base quality from a varied
// banded distribution.
func generateBaseQuality() float64 {
	archetype, _ := rand.Int(rand.Reader, big.NewInt(archetypeDivisor))
	switch archetype.Int64() {
	case caseStruggling:
		return strugglingMin + getRandomFloat()*strugglingRange
	case caseAverage, caseAverage2:
		return averageMin + getRandomFloat()*averageRange
	case caseStrong:
		return strongMin + getRandomFloat()*strongRange
	case caseElite:
		return eliteMin + getRandomFloat()*eliteRange
	case caseWildcard:
		return wildcardMin + getRandomFloat()*wildcardRange
	default:
		return averageMin + getRandomFloat()*averageRange
	}
}

// jitterScore applies per-judge disagreement and clamps to the valid range.
func jitterScore(base float64) float64 {
	score := base + (getRandomFloat()*2-1)*judgeJitter
	if score < 0 {
		score = 0
	}
	if score > scoreMax {
		score = scoreMax
	}
	return score
}
