package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	types "github.com/benchwise/protolab-backend/internal/domain"
	"github.com/benchwise/protolab-backend/internal/pkg/errs"
)

func createProtocol(tb testing.TB, protocols *ProtocolStore, name string) *types.Protocol {
	tb.Helper()
	p, err := protocols.Create(context.Background(), &types.Protocol{Name: name, Category: "Assay"})
	if err != nil {
		tb.Fatalf("Create protocol: %v", err)
	}
	return p
}

func TestReviewAddRecomputesAggregates(t *testing.T) {
	protocols, reviews, _ := openStores(t, "")
	ctx := context.Background()
	p := createProtocol(t, protocols, "Sample Prep")

	userA := uuid.New()
	if _, err := reviews.Add(ctx, p.ID, &types.Review{
		UserID: userA,
		Rating: 4,
		Metrics: types.Metrics{
			Efficiency: 4,
			Safety:     2,
		},
	}); err != nil {
		t.Fatalf("Add first review: %v", err)
	}

	got, err := protocols.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Rating != 4.0 || got.ReviewCount != 1 {
		t.Fatalf("after first review: rating=%v count=%d", got.Rating, got.ReviewCount)
	}
	if got.Metrics.Efficiency != 4.0 || got.Metrics.Safety != 2.0 {
		t.Fatalf("after first review: metrics=%+v", got.Metrics)
	}

	if _, err := reviews.Add(ctx, p.ID, &types.Review{
		UserID:  uuid.New(),
		Rating:  2,
		Metrics: types.Metrics{Efficiency: 2},
	}); err != nil {
		t.Fatalf("Add second review: %v", err)
	}

	got, err = protocols.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Rating != 3.0 || got.ReviewCount != 2 {
		t.Fatalf("after second review: rating=%v count=%d", got.Rating, got.ReviewCount)
	}
	if got.Metrics.Efficiency != 3.0 {
		t.Fatalf("Efficiency: expected 3.0, got %v", got.Metrics.Efficiency)
	}
	// Only the first review scored safety, so its value stands.
	if got.Metrics.Safety != 2.0 {
		t.Fatalf("Safety: expected 2.0, got %v", got.Metrics.Safety)
	}
}

func TestReviewAddDuplicateUser(t *testing.T) {
	protocols, reviews, _ := openStores(t, "")
	ctx := context.Background()
	p := createProtocol(t, protocols, "Titration")

	userA := uuid.New()
	if _, err := reviews.Add(ctx, p.ID, &types.Review{UserID: userA, Rating: 4}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := reviews.Add(ctx, p.ID, &types.Review{UserID: userA, Rating: 1})
	if !errors.Is(err, errs.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}

	got, err := protocols.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Rating != 4.0 || got.ReviewCount != 1 {
		t.Fatalf("rejected review must not move aggregates: rating=%v count=%d", got.Rating, got.ReviewCount)
	}
}

func TestReviewAddMissingProtocol(t *testing.T) {
	_, reviews, _ := openStores(t, "")
	_, err := reviews.Add(context.Background(), "nope", &types.Review{UserID: uuid.New(), Rating: 3})
	if !errors.Is(err, errs.ErrProtocolNotFound) {
		t.Fatalf("expected ErrProtocolNotFound, got %v", err)
	}
}

func TestReviewUpdateOwnership(t *testing.T) {
	protocols, reviews, _ := openStores(t, "")
	ctx := context.Background()
	p := createProtocol(t, protocols, "Staining")

	owner := uuid.New()
	created, err := reviews.Add(ctx, p.ID, &types.Review{UserID: owner, Rating: 2})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	stranger := uuid.New()
	if _, err := reviews.Update(ctx, created.ID, &stranger, map[string]any{"rating": 5.0}); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}

	updated, err := reviews.Update(ctx, created.ID, &owner, map[string]any{
		"rating":  5.0,
		"comment": "works much better with fresh buffer",
	})
	if err != nil {
		t.Fatalf("Update by owner: %v", err)
	}
	if updated.Rating != 5.0 || updated.Comment == "" {
		t.Fatalf("update not applied: %+v", updated)
	}

	// nil actor skips the ownership check (admin path).
	if _, err := reviews.Update(ctx, created.ID, nil, map[string]any{"verified": true}); err != nil {
		t.Fatalf("Update with nil actor: %v", err)
	}

	got, err := protocols.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Rating != 5.0 {
		t.Fatalf("aggregates must follow the updated rating, got %v", got.Rating)
	}

	if _, err := reviews.Update(ctx, uuid.New(), nil, map[string]any{"rating": 3.0}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown review, got %v", err)
	}
}

func TestReviewDeleteRecomputes(t *testing.T) {
	protocols, reviews, _ := openStores(t, "")
	ctx := context.Background()
	p := createProtocol(t, protocols, "Sectioning")

	first, err := reviews.Add(ctx, p.ID, &types.Review{UserID: uuid.New(), Rating: 5})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := reviews.Add(ctx, p.ID, &types.Review{UserID: uuid.New(), Rating: 3}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	removed, err := reviews.Delete(ctx, first.ID)
	if err != nil || !removed {
		t.Fatalf("Delete: removed=%v err=%v", removed, err)
	}
	removed, err = reviews.Delete(ctx, first.ID)
	if err != nil {
		t.Fatalf("Delete (absent): %v", err)
	}
	if removed {
		t.Fatalf("expected false for already-absent review")
	}

	got, err := protocols.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Rating != 3.0 || got.ReviewCount != 1 {
		t.Fatalf("after delete: rating=%v count=%d", got.Rating, got.ReviewCount)
	}
}

func TestProtocolDeleteCascadesReviews(t *testing.T) {
	protocols, reviews, _ := openStores(t, "")
	ctx := context.Background()
	p := createProtocol(t, protocols, "Lysis")

	created, err := reviews.Add(ctx, p.ID, &types.Review{UserID: uuid.New(), Rating: 4})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := protocols.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete protocol: %v", err)
	}

	list, err := reviews.ListByProtocol(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByProtocol: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected cascade to remove reviews, got %d", len(list))
	}
	if removed, err := reviews.Delete(ctx, created.ID); err != nil || removed {
		t.Fatalf("cascaded review should already be gone: removed=%v err=%v", removed, err)
	}
}

func TestConcurrentReviewAdds(t *testing.T) {
	protocols, reviews, _ := openStores(t, "")
	ctx := context.Background()
	p := createProtocol(t, protocols, "Ligation")

	const writers = 16
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := reviews.Add(ctx, p.ID, &types.Review{UserID: uuid.New(), Rating: 4})
			if err != nil {
				t.Errorf("concurrent Add: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := protocols.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ReviewCount != writers {
		t.Fatalf("expected %d reviews counted, got %d", writers, got.ReviewCount)
	}
	if got.Rating != 4.0 {
		t.Fatalf("expected rating 4.0, got %v", got.Rating)
	}
}

func TestUserStoreDuplicates(t *testing.T) {
	_, _, users := openStores(t, "")
	ctx := context.Background()

	u, err := users.Create(ctx, &types.User{Username: "ada", Email: "ada@lab.test", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Role != types.RoleUser {
		t.Fatalf("expected default role user, got %q", u.Role)
	}

	if _, err := users.Create(ctx, &types.User{Username: "ada", Email: "other@lab.test"}); !errors.Is(err, errs.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey on username, got %v", err)
	}
	if _, err := users.Create(ctx, &types.User{Username: "grace", Email: "ada@lab.test"}); !errors.Is(err, errs.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey on email, got %v", err)
	}

	byName, err := users.GetByUsername(ctx, "ada")
	if err != nil || byName.ID != u.ID {
		t.Fatalf("GetByUsername: %+v, %v", byName, err)
	}
	if _, err := users.GetByID(ctx, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
