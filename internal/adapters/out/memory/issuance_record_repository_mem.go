// internal/adapters/out/memory/issuance_record_repository_mem.go
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	dom "splforge/internal/domain/issuance"
)

// IssuanceRecordRepositoryMem keeps records in process memory. Used by
// `serve --store=memory` and by tests.
type IssuanceRecordRepositoryMem struct {
	mu     sync.RWMutex
	byMint map[string]dom.Record
	now    func() time.Time
}

func NewIssuanceRecordRepositoryMem() *IssuanceRecordRepositoryMem {
	return &IssuanceRecordRepositoryMem{
		byMint: map[string]dom.Record{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ dom.RecordRepository = (*IssuanceRecordRepositoryMem)(nil)

func (r *IssuanceRecordRepositoryMem) Create(ctx context.Context, rec dom.Record) (dom.Record, error) {
	rec.Normalize()
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byMint[rec.MintAddress]; ok {
		return dom.Record{}, dom.ErrRecordConflict
	}
	for _, existing := range r.byMint {
		if existing.Signature == rec.Signature {
			return dom.Record{}, dom.ErrRecordConflict
		}
	}
	r.byMint[rec.MintAddress] = clone(rec)
	return clone(rec), nil
}

func (r *IssuanceRecordRepositoryMem) GetByMintAddress(ctx context.Context, mintAddress string) (dom.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byMint[strings.TrimSpace(mintAddress)]
	if !ok {
		return dom.Record{}, dom.ErrRecordNotFound
	}
	return clone(rec), nil
}

func (r *IssuanceRecordRepositoryMem) ListByOwner(ctx context.Context, owner string, limit int) ([]dom.Record, error) {
	limit = dom.ClampListLimit(limit)
	o := strings.TrimSpace(owner)

	r.mu.RLock()
	out := make([]dom.Record, 0)
	for _, rec := range r.byMint {
		if rec.Owner == o {
			out = append(out, clone(rec))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].MintAddress < out[j].MintAddress
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(rec dom.Record) dom.Record {
	opts := make(map[string]any, len(rec.Options))
	for k, v := range rec.Options {
		opts[k] = v
	}
	rec.Options = opts
	return rec
}
