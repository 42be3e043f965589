// Package rating derives a protocol's displayed aggregates from its review
// set. The computation is pure; both storage backends call it and are
// responsible for making the write of its result atomic with the review
// mutation that triggered it.
package rating

import (
	"math"

	types "github.com/benchwise/protolab-backend/internal/domain"
)

// Summary is the derived state written back onto a protocol.
type Summary struct {
	Rating      float64
	Metrics     types.Metrics
	ReviewCount int
}

// Aggregate computes the overall rating and the six per-metric means for a
// review set.
//
// The overall rating averages every review's rating: a review always carries
// one. Each metric averages only the reviews that scored that dimension
// (non-zero value); the asymmetry is contractual, not a defect. All means are
// rounded to one decimal place, and every aggregate is 0 when no review
// contributes to it.
func Aggregate(reviews []*types.Review) Summary {
	s := Summary{ReviewCount: len(reviews)}
	if len(reviews) == 0 {
		return s
	}

	var ratingSum float64
	var sums [6]float64
	var counts [6]int
	for _, r := range reviews {
		ratingSum += r.Rating
		for i, v := range metricValues(r.Metrics) {
			if v > 0 {
				sums[i] += v
				counts[i]++
			}
		}
	}

	s.Rating = round1(ratingSum / float64(len(reviews)))
	means := [6]float64{}
	for i := range sums {
		if counts[i] > 0 {
			means[i] = round1(sums[i] / float64(counts[i]))
		}
	}
	s.Metrics = types.Metrics{
		Efficiency:      means[0],
		Consistency:     means[1],
		Accuracy:        means[2],
		Safety:          means[3],
		EaseOfExecution: means[4],
		Scalability:     means[5],
	}
	return s
}

func metricValues(m types.Metrics) [6]float64 {
	return [6]float64{
		m.Efficiency,
		m.Consistency,
		m.Accuracy,
		m.Safety,
		m.EaseOfExecution,
		m.Scalability,
	}
}

// round1 rounds half away from zero to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
