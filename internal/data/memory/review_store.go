package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/benchwise/protolab-backend/internal/data/rating"
	"github.com/benchwise/protolab-backend/internal/data/store"
	types "github.com/benchwise/protolab-backend/internal/domain"
	"github.com/benchwise/protolab-backend/internal/pkg/errs"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

var _ store.ReviewStore = (*ReviewStore)(nil)

type ReviewStore struct {
	db  *database
	log *logger.Logger
}

func (s *ReviewStore) ListByProtocol(ctx context.Context, protocolID string) ([]*types.Review, error) {
	if err := s.db.ready(); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	list := s.db.reviewsForLocked(protocolID)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	out := make([]*types.Review, 0, len(list))
	for _, r := range list {
		out = append(out, cloneReview(r))
	}
	return out, nil
}

// Add inserts the review and recomputes the parent protocol's aggregates
// inside one per-protocol critical section, so a concurrent second review
// cannot observe or produce a stale aggregate.
func (s *ReviewStore) Add(ctx context.Context, protocolID string, review *types.Review) (*types.Review, error) {
	if err := s.db.ready(); err != nil {
		return nil, err
	}
	lock := s.db.protoLock(protocolID)
	lock.Lock()
	defer lock.Unlock()

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.protocols[protocolID]; !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrProtocolNotFound, protocolID)
	}
	for _, existing := range s.db.reviews {
		if existing.ProtocolID == protocolID && existing.UserID == review.UserID {
			return nil, fmt.Errorf("%w: protocol %s, user %s", errs.ErrAlreadyReviewed, protocolID, review.UserID)
		}
	}

	r := cloneReview(review)
	r.ProtocolID = protocolID
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	s.db.reviews[r.ID] = r
	if err := s.reaggregateLocked(protocolID); err != nil {
		delete(s.db.reviews, r.ID)
		return nil, err
	}
	s.db.persistLocked()
	return cloneReview(r), nil
}

func (s *ReviewStore) Update(ctx context.Context, reviewID uuid.UUID, actorID *uuid.UUID, changes map[string]any) (*types.Review, error) {
	if err := s.db.ready(); err != nil {
		return nil, err
	}

	s.db.mu.RLock()
	existing, ok := s.db.reviews[reviewID]
	var protocolID string
	if ok {
		protocolID = existing.ProtocolID
	}
	s.db.mu.RUnlock()
	if !ok {
		return nil, errs.ErrNotFound
	}

	lock := s.db.protoLock(protocolID)
	lock.Lock()
	defer lock.Unlock()

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reviews[reviewID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if actorID != nil && r.UserID != *actorID {
		return nil, errs.ErrForbidden
	}

	prev := *r
	applyReviewChanges(r, changes)
	r.UpdatedAt = time.Now().UTC()
	if err := s.reaggregateLocked(r.ProtocolID); err != nil {
		*r = prev
		return nil, err
	}
	s.db.persistLocked()
	return cloneReview(r), nil
}

func applyReviewChanges(r *types.Review, changes map[string]any) {
	for key, val := range changes {
		switch key {
		case "rating":
			if v, ok := val.(float64); ok {
				r.Rating = v
			}
		case "title":
			if v, ok := val.(string); ok {
				r.Title = v
			}
		case "comment":
			if v, ok := val.(string); ok {
				r.Comment = v
			}
		case "metrics":
			if v, ok := val.(types.Metrics); ok {
				r.Metrics = v
			}
		case "attachments":
			if v, ok := val.([]string); ok {
				r.Attachments = append(r.Attachments[:0:0], v...)
			}
		case "verified":
			if v, ok := val.(bool); ok {
				r.Verified = v
			}
		}
	}
}

func (s *ReviewStore) Delete(ctx context.Context, reviewID uuid.UUID) (bool, error) {
	if err := s.db.ready(); err != nil {
		return false, err
	}

	s.db.mu.RLock()
	existing, ok := s.db.reviews[reviewID]
	var protocolID string
	if ok {
		protocolID = existing.ProtocolID
	}
	s.db.mu.RUnlock()
	if !ok {
		return false, nil
	}

	lock := s.db.protoLock(protocolID)
	lock.Lock()
	defer lock.Unlock()

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reviews[reviewID]
	if !ok {
		return false, nil
	}
	delete(s.db.reviews, reviewID)
	if err := s.reaggregateLocked(r.ProtocolID); err != nil {
		s.db.reviews[reviewID] = r
		return false, err
	}
	s.db.persistLocked()
	return true, nil
}

// reaggregateLocked recomputes and applies the aggregates for one protocol.
// Callers hold both the protocol lock and mu. A result outside the [0,5]
// envelope is recomputed once more and then escalated.
func (s *ReviewStore) reaggregateLocked(protocolID string) error {
	p, ok := s.db.protocols[protocolID]
	if !ok {
		// Protocol deleted while its reviews were mutated; the cascade owns
		// cleanup, nothing to aggregate.
		return nil
	}
	summary := rating.Aggregate(s.db.reviewsForLocked(protocolID))
	if !summaryValid(summary) {
		s.log.Warn("Aggregation produced out-of-range result, retrying", "protocol_id", protocolID)
		summary = rating.Aggregate(s.db.reviewsForLocked(protocolID))
		if !summaryValid(summary) {
			return fmt.Errorf("%w: protocol %s", errs.ErrAggregationInconsistency, protocolID)
		}
	}
	p.Rating = summary.Rating
	p.Metrics = summary.Metrics
	p.ReviewCount = summary.ReviewCount
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func summaryValid(s rating.Summary) bool {
	if s.Rating < 0 || s.Rating > 5 || s.ReviewCount < 0 {
		return false
	}
	for _, v := range []float64{
		s.Metrics.Efficiency, s.Metrics.Consistency, s.Metrics.Accuracy,
		s.Metrics.Safety, s.Metrics.EaseOfExecution, s.Metrics.Scalability,
	} {
		if v < 0 || v > 5 {
			return false
		}
	}
	return true
}
