// Package memory implements the catalog store contracts against an in-process
// collection, optionally mirrored to a single JSON file that is rewritten in
// full on every mutating call.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	types "github.com/benchwise/protolab-backend/internal/domain"
	"github.com/benchwise/protolab-backend/internal/pkg/errs"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

// database owns the shared mutable collection. It is reached only through the
// store values returned by NewStores; callers never touch it directly.
//
// Locking: mu guards the maps. Review mutations additionally serialize on a
// per-protocol mutex so two concurrent reviews for the same protocol cannot
// interleave between the review write and the aggregate recomputation.
type database struct {
	mu        sync.RWMutex
	protocols map[string]*types.Protocol
	reviews   map[uuid.UUID]*types.Review
	users     map[uuid.UUID]*types.User

	lockMu     sync.Mutex
	protoLocks map[string]*sync.Mutex

	filePath  string
	connected bool

	log *logger.Logger
}

// snapshot is the on-disk layout of the file mirror. Reviews ride along with
// the protocol collection so a reload preserves the aggregate invariant.
type snapshot struct {
	Protocols []*types.Protocol `json:"protocols"`
	Reviews   []*types.Review   `json:"reviews"`
	Users     []*types.User     `json:"users"`
}

func newDatabase(log *logger.Logger, filePath string) *database {
	return &database{
		protocols:  map[string]*types.Protocol{},
		reviews:    map[uuid.UUID]*types.Review{},
		users:      map[uuid.UUID]*types.User{},
		protoLocks: map[string]*sync.Mutex{},
		filePath:   filePath,
		log:        log.With("backend", "memory"),
	}
}

// connect is idempotent; a second call is a no-op.
func (d *database) connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected {
		return nil
	}
	if d.filePath != "" {
		if err := d.loadLocked(); err != nil {
			return fmt.Errorf("%w: loading store file %s: %v", errs.ErrConnection, d.filePath, err)
		}
	}
	d.connected = true
	return nil
}

func (d *database) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
}

func (d *database) ready() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.connected {
		return fmt.Errorf("%w: store not connected", errs.ErrConnection)
	}
	return nil
}

// protoLock returns the mutation lock for one protocol id.
func (d *database) protoLock(id string) *sync.Mutex {
	d.lockMu.Lock()
	defer d.lockMu.Unlock()
	l, ok := d.protoLocks[id]
	if !ok {
		l = &sync.Mutex{}
		d.protoLocks[id] = l
	}
	return l
}

// dropProtoLock releases the lock entry of a deleted protocol so the map does
// not grow across protocol lifecycles. Waiters already holding the old mutex
// pointer re-check existence under mu and observe the deletion.
func (d *database) dropProtoLock(id string) {
	d.lockMu.Lock()
	defer d.lockMu.Unlock()
	delete(d.protoLocks, id)
}

func (d *database) loadLocked() error {
	raw, err := os.ReadFile(d.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return err
	}
	for _, p := range snap.Protocols {
		d.protocols[p.ID] = p
	}
	for _, r := range snap.Reviews {
		d.reviews[r.ID] = r
	}
	for _, u := range snap.Users {
		d.users[u.ID] = u
	}
	return nil
}

// persistLocked rewrites the whole collection. Callers hold mu. A mirror
// failure is logged but does not fail the mutation: the in-process state is
// the source of truth, the file is a convenience.
func (d *database) persistLocked() {
	if d.filePath == "" {
		return
	}
	snap := snapshot{
		Protocols: make([]*types.Protocol, 0, len(d.protocols)),
		Reviews:   make([]*types.Review, 0, len(d.reviews)),
		Users:     make([]*types.User, 0, len(d.users)),
	}
	for _, p := range d.protocols {
		snap.Protocols = append(snap.Protocols, p)
	}
	for _, r := range d.reviews {
		snap.Reviews = append(snap.Reviews, r)
	}
	for _, u := range d.users {
		snap.Users = append(snap.Users, u)
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		d.log.Warn("Failed to encode store file", "error", err)
		return
	}
	if err := os.WriteFile(d.filePath, raw, 0o644); err != nil {
		d.log.Warn("Failed to write store file", "path", d.filePath, "error", err)
	}
}

// reviewsForLocked collects the reviews of one protocol. Callers hold mu.
func (d *database) reviewsForLocked(protocolID string) []*types.Review {
	var out []*types.Review
	for _, r := range d.reviews {
		if r.ProtocolID == protocolID {
			out = append(out, r)
		}
	}
	return out
}

func cloneProtocol(p *types.Protocol) *types.Protocol {
	cp := *p
	cp.Steps = append(cp.Steps[:0:0], p.Steps...)
	cp.Materials = append(cp.Materials[:0:0], p.Materials...)
	cp.Equipment = append(cp.Equipment[:0:0], p.Equipment...)
	return &cp
}

func cloneReview(r *types.Review) *types.Review {
	cr := *r
	cr.Attachments = append(cr.Attachments[:0:0], r.Attachments...)
	return &cr
}
