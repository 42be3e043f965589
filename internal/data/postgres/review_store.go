package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/benchwise/protolab-backend/internal/data/rating"
	"github.com/benchwise/protolab-backend/internal/data/store"
	types "github.com/benchwise/protolab-backend/internal/domain"
	"github.com/benchwise/protolab-backend/internal/pkg/errs"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

var _ store.ReviewStore = (*ReviewStore)(nil)

type ReviewStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func (s *ReviewStore) ListByProtocol(ctx context.Context, protocolID string) ([]*types.Review, error) {
	var results []*types.Review
	err := s.db.WithContext(ctx).
		Where("protocol_id = ?", protocolID).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, wrapDBErr("list reviews", err)
	}
	if results == nil {
		results = []*types.Review{}
	}
	return results, nil
}

// Add inserts the review and recomputes the parent protocol's aggregates in
// the same transaction; neither is ever observable without the other.
func (s *ReviewStore) Add(ctx context.Context, protocolID string, review *types.Review) (*types.Review, error) {
	r := *review
	r.ProtocolID = protocolID
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&types.Protocol{}).Where("id = ?", protocolID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", errs.ErrProtocolNotFound, protocolID)
		}
		if err := tx.Model(&types.Review{}).
			Where("protocol_id = ? AND user_id = ?", protocolID, r.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: protocol %s, user %s", errs.ErrAlreadyReviewed, protocolID, r.UserID)
		}
		if err := tx.Create(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: protocol %s, user %s", errs.ErrAlreadyReviewed, protocolID, r.UserID)
			}
			return err
		}
		return s.reaggregateTx(tx, protocolID)
	})
	if err != nil {
		if errors.Is(err, errs.ErrProtocolNotFound) || errors.Is(err, errs.ErrAlreadyReviewed) {
			return nil, err
		}
		return nil, wrapDBErr("add review", err)
	}
	return &r, nil
}

func (s *ReviewStore) Update(ctx context.Context, reviewID uuid.UUID, actorID *uuid.UUID, changes map[string]any) (*types.Review, error) {
	columns := reviewColumns(changes)
	var updated types.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing types.Review
		if err := tx.First(&existing, "id = ?", reviewID).Error; err != nil {
			return err
		}
		if actorID != nil && existing.UserID != *actorID {
			return errs.ErrForbidden
		}
		columns["updated_at"] = time.Now().UTC()
		if err := tx.Model(&types.Review{}).Where("id = ?", reviewID).Updates(columns).Error; err != nil {
			return err
		}
		if err := tx.First(&updated, "id = ?", reviewID).Error; err != nil {
			return err
		}
		return s.reaggregateTx(tx, existing.ProtocolID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		if errors.Is(err, errs.ErrForbidden) {
			return nil, err
		}
		return nil, wrapDBErr("update review", err)
	}
	return &updated, nil
}

func reviewColumns(changes map[string]any) map[string]any {
	columns := map[string]any{}
	for key, val := range changes {
		switch key {
		case "rating", "title", "comment", "verified":
			columns[key] = val
		case "metrics":
			if m, ok := val.(types.Metrics); ok {
				columns["efficiency"] = m.Efficiency
				columns["consistency"] = m.Consistency
				columns["accuracy"] = m.Accuracy
				columns["safety"] = m.Safety
				columns["ease_of_execution"] = m.EaseOfExecution
				columns["scalability"] = m.Scalability
			}
		}
	}
	return columns
}

func (s *ReviewStore) Delete(ctx context.Context, reviewID uuid.UUID) (bool, error) {
	removed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing types.Review
		if err := tx.First(&existing, "id = ?", reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Delete(&types.Review{}, "id = ?", reviewID).Error; err != nil {
			return err
		}
		removed = true
		return s.reaggregateTx(tx, existing.ProtocolID)
	})
	if err != nil {
		return false, wrapDBErr("delete review", err)
	}
	return removed, nil
}

// reaggregateTx recomputes one protocol's aggregates from its current review
// set inside the caller's transaction. An out-of-range result is recomputed
// once and then escalated, rolling the surrounding transaction back.
func (s *ReviewStore) reaggregateTx(tx *gorm.DB, protocolID string) error {
	var reviews []*types.Review
	if err := tx.Where("protocol_id = ?", protocolID).Find(&reviews).Error; err != nil {
		return err
	}
	summary := rating.Aggregate(reviews)
	if !summaryValid(summary) {
		s.log.Warn("Aggregation produced out-of-range result, retrying", "protocol_id", protocolID)
		summary = rating.Aggregate(reviews)
		if !summaryValid(summary) {
			return fmt.Errorf("%w: protocol %s", errs.ErrAggregationInconsistency, protocolID)
		}
	}
	return tx.Model(&types.Protocol{}).Where("id = ?", protocolID).Updates(map[string]any{
		"rating":            summary.Rating,
		"review_count":      summary.ReviewCount,
		"efficiency":        summary.Metrics.Efficiency,
		"consistency":       summary.Metrics.Consistency,
		"accuracy":          summary.Metrics.Accuracy,
		"safety":            summary.Metrics.Safety,
		"ease_of_execution": summary.Metrics.EaseOfExecution,
		"scalability":       summary.Metrics.Scalability,
		"updated_at":        time.Now().UTC(),
	}).Error
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
