package memory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/benchwise/protolab-backend/internal/data/store"
	types "github.com/benchwise/protolab-backend/internal/domain"
	"github.com/benchwise/protolab-backend/internal/pkg/errs"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("failed to init logger: %v", err)
	}
	return log
}

func openStores(tb testing.TB, filePath string) (*ProtocolStore, *ReviewStore, *UserStore) {
	tb.Helper()
	protocols, reviews, users := NewStores(testLogger(tb), filePath)
	if err := protocols.Connect(context.Background()); err != nil {
		tb.Fatalf("Connect: %v", err)
	}
	return protocols, reviews, users
}

func TestProtocolStoreRequiresConnect(t *testing.T) {
	protocols, _, _ := NewStores(testLogger(t), "")
	_, err := protocols.GetByID(context.Background(), "anything")
	if !errors.Is(err, errs.ErrConnection) {
		t.Fatalf("expected ErrConnection before Connect, got %v", err)
	}
}

func TestConnectIdempotent(t *testing.T) {
	protocols, _, _ := NewStores(testLogger(t), "")
	ctx := context.Background()
	if err := protocols.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := protocols.Connect(ctx); err != nil {
		t.Fatalf("Connect (second call): %v", err)
	}
}

func TestProtocolCreateDerivesSlug(t *testing.T) {
	protocols, _, _ := openStores(t, "")
	ctx := context.Background()

	created, err := protocols.Create(ctx, &types.Protocol{
		Name:     "Sample Prep",
		Category: "Sample Preparation",
		AuthorID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "sample-prep" {
		t.Fatalf("expected id sample-prep, got %q", created.ID)
	}
	if created.CreatedAt.IsZero() {
		t.Fatalf("expected creation timestamp to be assigned")
	}
	if created.Status != types.StatusDraft {
		t.Fatalf("expected default status draft, got %q", created.Status)
	}

	got, err := protocols.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Sample Prep" || got.Category != "Sample Preparation" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}

	_, err = protocols.Create(ctx, &types.Protocol{Name: "Sample Prep"})
	if !errors.Is(err, errs.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey on slug collision, got %v", err)
	}
}

func TestProtocolGetByIDMissing(t *testing.T) {
	protocols, _, _ := openStores(t, "")
	_, err := protocols.GetByID(context.Background(), "does-not-exist")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProtocolUpdateMergesFields(t *testing.T) {
	protocols, _, _ := openStores(t, "")
	ctx := context.Background()

	created, err := protocols.Create(ctx, &types.Protocol{
		Name:        "Western Blot",
		Description: "original",
		Category:    "Assay",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := protocols.Update(ctx, created.ID, map[string]any{
		"description": "improved",
		"status":      types.StatusPublished,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Description != "improved" {
		t.Fatalf("expected merged description, got %q", updated.Description)
	}
	if updated.Name != "Western Blot" {
		t.Fatalf("unsupplied field must not change, got name %q", updated.Name)
	}
	if updated.PublishedAt == nil {
		t.Fatalf("expected publish timestamp when status becomes published")
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("expected update timestamp to advance")
	}

	_, err = protocols.Update(ctx, "missing", map[string]any{"name": "x"})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProtocolDeleteIdempotent(t *testing.T) {
	protocols, _, _ := openStores(t, "")
	ctx := context.Background()

	created, err := protocols.Create(ctx, &types.Protocol{Name: "Throwaway"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	removed, err := protocols.Delete(ctx, created.ID)
	if err != nil || !removed {
		t.Fatalf("Delete: removed=%v err=%v", removed, err)
	}
	removed, err = protocols.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete (absent): %v", err)
	}
	if removed {
		t.Fatalf("expected false for already-absent id")
	}
	if _, err := protocols.GetByID(ctx, created.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func seedForListing(tb testing.TB, protocols *ProtocolStore) {
	tb.Helper()
	ctx := context.Background()
	seed := []types.Protocol{
		{Name: "Assay One", Category: "Assay", Rating: 1},
		{Name: "Assay Two", Category: "Assay", Rating: 5},
		{Name: "Assay Three", Category: "Assay", Rating: 3},
		{Name: "Assay Four", Category: "Assay", Rating: 2},
		{Name: "Assay Five", Category: "Assay", Rating: 4},
		{Name: "Confocal Imaging", Category: "Imaging", Rating: 5, Description: "microscope setup"},
	}
	for i := range seed {
		if _, err := protocols.Create(ctx, &seed[i]); err != nil {
			tb.Fatalf("seed Create: %v", err)
		}
	}
}

func TestProtocolListTopRatedPage(t *testing.T) {
	protocols, _, _ := openStores(t, "")
	seedForListing(t, protocols)

	page, total, err := protocols.List(context.Background(), store.ListFilter{
		Category:      "Assay",
		SortBy:        store.SortByRating,
		SortDirection: store.SortDesc,
		Page:          1,
		Limit:         2,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected 5 matches, got %d", total)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	if page[0].Rating != 5 || page[1].Rating != 4 {
		t.Fatalf("expected ratings [5 4], got [%v %v]", page[0].Rating, page[1].Rating)
	}
}

func TestProtocolListFilters(t *testing.T) {
	protocols, _, _ := openStores(t, "")
	seedForListing(t, protocols)
	ctx := context.Background()

	all, total, err := protocols.List(ctx, store.ListFilter{Category: types.CategoryAll})
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if total != 6 || len(all) != 6 {
		t.Fatalf("category=all must disable the filter: total=%d len=%d", total, len(all))
	}

	found, _, err := protocols.List(ctx, store.ListFilter{Search: "MICROSCOPE"})
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if len(found) != 1 || found[0].ID != "confocal-imaging" {
		t.Fatalf("case-insensitive search failed: %+v", found)
	}

	rated, _, err := protocols.List(ctx, store.ListFilter{MinRating: 4})
	if err != nil {
		t.Fatalf("List minRating: %v", err)
	}
	if len(rated) != 3 {
		t.Fatalf("expected 3 protocols rated >= 4, got %d", len(rated))
	}

	none, total, err := protocols.List(ctx, store.ListFilter{Search: "no such protocol"})
	if err != nil {
		t.Fatalf("no match must not be an error: %v", err)
	}
	if total != 0 || len(none) != 0 {
		t.Fatalf("expected empty result, got total=%d len=%d", total, len(none))
	}

	byName, _, err := protocols.List(ctx, store.ListFilter{
		SortBy:        store.SortByName,
		SortDirection: store.SortAsc,
		Limit:         1,
	})
	if err != nil {
		t.Fatalf("List by name: %v", err)
	}
	if byName[0].Name != "Assay Five" {
		t.Fatalf("expected Assay Five first ascending, got %q", byName[0].Name)
	}
}

// Listing must hand out copies taken under the read lock; a concurrent
// update mutating the stored structs in place must never be observable
// mid-write. Run with -race.
func TestConcurrentListAndUpdate(t *testing.T) {
	protocols, _, _ := openStores(t, "")
	seedForListing(t, protocols)
	ctx := context.Background()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				_, err := protocols.Update(ctx, "assay-one", map[string]any{
					"description": fmt.Sprintf("revision %d", n),
					"materials":   []string{"PBS", "ethanol"},
				})
				if err != nil {
					t.Errorf("Update: %v", err)
					return
				}
			}
		}(i)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				_, _, err := protocols.List(ctx, store.ListFilter{
					SortBy:        store.SortByName,
					SortDirection: store.SortAsc,
				})
				if err != nil {
					t.Errorf("List: %v", err)
					return
				}
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(done)
	wg.Wait()
}

func TestDeleteReleasesProtocolLock(t *testing.T) {
	protocols, _, _ := openStores(t, "")
	ctx := context.Background()

	created, err := protocols.Create(ctx, &types.Protocol{Name: "Ephemeral"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if removed, err := protocols.Delete(ctx, created.ID); err != nil || !removed {
		t.Fatalf("Delete: removed=%v err=%v", removed, err)
	}

	protocols.db.lockMu.Lock()
	_, held := protocols.db.protoLocks[created.ID]
	protocols.db.lockMu.Unlock()
	if held {
		t.Fatalf("expected lock entry for %q to be dropped on delete", created.ID)
	}
}

func TestFileMirrorRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	protocols, reviews, _ := openStores(t, path)
	ctx := context.Background()

	created, err := protocols.Create(ctx, &types.Protocol{Name: "Fixation", Category: "Imaging"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reviews.Add(ctx, created.ID, &types.Review{UserID: uuid.New(), Rating: 4}); err != nil {
		t.Fatalf("Add review: %v", err)
	}

	reloadedProtocols, reloadedReviews, _ := openStores(t, path)
	got, err := reloadedProtocols.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID after reload: %v", err)
	}
	if got.Rating != 4.0 || got.ReviewCount != 1 {
		t.Fatalf("aggregates lost on reload: rating=%v count=%d", got.Rating, got.ReviewCount)
	}
	list, err := reloadedReviews.ListByProtocol(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListByProtocol after reload: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 review after reload, got %d", len(list))
	}
}
