package rating

import (
	"testing"

	"github.com/google/uuid"

	types "github.com/benchwise/protolab-backend/internal/domain"
)

func TestAggregateEmptySet(t *testing.T) {
	s := Aggregate(nil)
	if s.Rating != 0 {
		t.Fatalf("Rating: expected 0, got %v", s.Rating)
	}
	if s.ReviewCount != 0 {
		t.Fatalf("ReviewCount: expected 0, got %d", s.ReviewCount)
	}
	if s.Metrics != (types.Metrics{}) {
		t.Fatalf("Metrics: expected all zero, got %+v", s.Metrics)
	}
}

func TestAggregateSingleReview(t *testing.T) {
	s := Aggregate([]*types.Review{
		{
			ID:     uuid.New(),
			Rating: 4,
			Metrics: types.Metrics{
				Efficiency: 4,
				Safety:     2,
			},
		},
	})
	if s.Rating != 4.0 {
		t.Fatalf("Rating: expected 4.0, got %v", s.Rating)
	}
	if s.Metrics.Efficiency != 4.0 {
		t.Fatalf("Efficiency: expected 4.0, got %v", s.Metrics.Efficiency)
	}
	if s.Metrics.Safety != 2.0 {
		t.Fatalf("Safety: expected 2.0, got %v", s.Metrics.Safety)
	}
	if s.Metrics.Consistency != 0 {
		t.Fatalf("Consistency: expected 0 when unsupplied, got %v", s.Metrics.Consistency)
	}
	if s.ReviewCount != 1 {
		t.Fatalf("ReviewCount: expected 1, got %d", s.ReviewCount)
	}
}

// A review always contributes to the overall rating, but each metric averages
// only the reviews that scored it.
func TestAggregateMetricSubsets(t *testing.T) {
	s := Aggregate([]*types.Review{
		{Rating: 4, Metrics: types.Metrics{Efficiency: 4, Safety: 2}},
		{Rating: 2, Metrics: types.Metrics{Efficiency: 2}},
	})
	if s.Rating != 3.0 {
		t.Fatalf("Rating: expected 3.0, got %v", s.Rating)
	}
	if s.Metrics.Efficiency != 3.0 {
		t.Fatalf("Efficiency: expected 3.0, got %v", s.Metrics.Efficiency)
	}
	if s.Metrics.Safety != 2.0 {
		t.Fatalf("Safety: expected 2.0 (one contributor), got %v", s.Metrics.Safety)
	}
	if s.ReviewCount != 2 {
		t.Fatalf("ReviewCount: expected 2, got %d", s.ReviewCount)
	}
}

func TestAggregateRounding(t *testing.T) {
	s := Aggregate([]*types.Review{
		{Rating: 5},
		{Rating: 4},
		{Rating: 4},
	})
	// 13/3 = 4.333... -> 4.3
	if s.Rating != 4.3 {
		t.Fatalf("Rating: expected 4.3, got %v", s.Rating)
	}

	s = Aggregate([]*types.Review{
		{Rating: 4.5},
		{Rating: 4},
	})
	// 8.5/2 = 4.25 -> rounds half away from zero to 4.3
	if s.Rating != 4.3 {
		t.Fatalf("Rating: expected 4.3, got %v", s.Rating)
	}
}

func TestAggregateHalfStepRatings(t *testing.T) {
	s := Aggregate([]*types.Review{
		{Rating: 3.5, Metrics: types.Metrics{Scalability: 2, EaseOfExecution: 5}},
		{Rating: 1.5, Metrics: types.Metrics{Scalability: 3}},
	})
	if s.Rating != 2.5 {
		t.Fatalf("Rating: expected 2.5, got %v", s.Rating)
	}
	if s.Metrics.Scalability != 2.5 {
		t.Fatalf("Scalability: expected 2.5, got %v", s.Metrics.Scalability)
	}
	if s.Metrics.EaseOfExecution != 5.0 {
		t.Fatalf("EaseOfExecution: expected 5.0, got %v", s.Metrics.EaseOfExecution)
	}
}
