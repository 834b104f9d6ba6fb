// internal/infra/journal/boltstore.go
package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"splforge/internal/application/usecase"
	dom "splforge/internal/domain/issuance"
)

var (
	bucketEntries = []byte("submissions")
	bucketMeta    = []byte("meta")

	keySchema = []byte("schema")
)

const schemaVersion = 1

// entryDoc is the on-disk CBOR shape. Integer keys keep records compact and
// let fields be renamed in Go without touching stored data.
type entryDoc struct {
	Reference   string `cbor:"1,keyasint"`
	Fingerprint string `cbor:"2,keyasint,omitempty"`
	MintAddress string `cbor:"3,keyasint,omitempty"`
	Owner       string `cbor:"4,keyasint,omitempty"`
	Name        string `cbor:"5,keyasint,omitempty"`
	Symbol      string `cbor:"6,keyasint,omitempty"`
	Stage       string `cbor:"7,keyasint"`
	Status      string `cbor:"8,keyasint"`
	Kind        string `cbor:"9,keyasint,omitempty"`
	Slot        uint64 `cbor:"10,keyasint,omitempty"`
	CreatedAt   int64  `cbor:"11,keyasint"`
	UpdatedAt   int64  `cbor:"12,keyasint"`
}

// BoltStore implements usecase.Journal on a single bbolt file.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

var _ usecase.Journal = (*BoltStore)(nil)

// OpenBoltStore opens (or creates) the journal file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("journal: create directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("journal: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if meta.Get(keySchema) == nil {
			return meta.Put(keySchema, []byte{schemaVersion})
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create buckets: %w", err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Put inserts or replaces the entry for e.Reference. CreatedAt of an existing
// entry is preserved.
func (s *BoltStore) Put(ctx context.Context, e usecase.JournalEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Reference == "" {
		return errors.New("journal: reference is empty")
	}

	now := s.now().UTC()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		key := []byte(e.Reference)

		if raw := b.Get(key); raw != nil {
			var prev entryDoc
			if err := cbor.Unmarshal(raw, &prev); err == nil && prev.CreatedAt != 0 {
				e.CreatedAt = time.Unix(0, prev.CreatedAt).UTC()
			}
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.UpdatedAt = now

		val, err := cbor.Marshal(toDoc(e))
		if err != nil {
			return fmt.Errorf("journal: encode entry: %w", err)
		}
		return b.Put(key, val)
	})
}

func (s *BoltStore) Get(ctx context.Context, reference string) (usecase.JournalEntry, error) {
	if err := ctx.Err(); err != nil {
		return usecase.JournalEntry{}, err
	}

	var out usecase.JournalEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketEntries).Get([]byte(reference))
		if raw == nil {
			return usecase.ErrJournalNotFound
		}
		var d entryDoc
		if err := cbor.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("journal: decode entry: %w", err)
		}
		out = fromDoc(d)
		return nil
	})
	return out, err
}

// List returns entries newest first. With onlyOpen, confirmed and rejected
// entries are skipped.
func (s *BoltStore) List(ctx context.Context, onlyOpen bool) ([]usecase.JournalEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []usecase.JournalEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
			var d entryDoc
			if err := cbor.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("journal: decode entry %s: %w", k, err)
			}
			e := fromDoc(d)
			if onlyOpen && e.Status.Final() {
				return nil
			}
			out = append(out, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func toDoc(e usecase.JournalEntry) entryDoc {
	return entryDoc{
		Reference:   e.Reference,
		Fingerprint: e.Fingerprint,
		MintAddress: e.MintAddress,
		Owner:       e.Owner,
		Name:        e.Name,
		Symbol:      e.Symbol,
		Stage:       string(e.Stage),
		Status:      string(e.Status),
		Kind:        string(e.Kind),
		Slot:        e.Slot,
		CreatedAt:   e.CreatedAt.UnixNano(),
		UpdatedAt:   e.UpdatedAt.UnixNano(),
	}
}

func fromDoc(d entryDoc) usecase.JournalEntry {
	return usecase.JournalEntry{
		Reference:   d.Reference,
		Fingerprint: d.Fingerprint,
		MintAddress: d.MintAddress,
		Owner:       d.Owner,
		Name:        d.Name,
		Symbol:      d.Symbol,
		Stage:       dom.Stage(d.Stage),
		Status:      usecase.JournalStatus(d.Status),
		Kind:        dom.Kind(d.Kind),
		Slot:        d.Slot,
		CreatedAt:   time.Unix(0, d.CreatedAt).UTC(),
		UpdatedAt:   time.Unix(0, d.UpdatedAt).UTC(),
	}
}
