// internal/adapters/out/firestore/issuance_record_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	dom "splforge/internal/domain/issuance"
)

// =====================================================
// Firestore Issuance Record Repository
// Document ID = mintAddress
// =====================================================

type IssuanceRecordRepositoryFS struct {
	Client     *firestore.Client
	Collection string
}

func NewIssuanceRecordRepositoryFS(client *firestore.Client) *IssuanceRecordRepositoryFS {
	return &IssuanceRecordRepositoryFS{Client: client, Collection: "issuance_records"}
}

var _ dom.RecordRepository = (*IssuanceRecordRepositoryFS)(nil)

func (r *IssuanceRecordRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection(r.Collection)
}

type recordDoc struct {
	Name        string         `firestore:"name"`
	Symbol      string         `firestore:"symbol"`
	Supply      string         `firestore:"supply"`
	Decimals    int            `firestore:"decimals"`
	Options     map[string]any `firestore:"options"`
	MintAddress string         `firestore:"mintAddress"`
	Signature   string         `firestore:"signature"`
	Owner       string         `firestore:"owner"`
	RecordedAt  time.Time      `firestore:"recordedAt"`
}

// mapStatusErr converts Firestore gRPC status codes into the repository contract errors.
func mapStatusErr(err error) error {
	switch grpcstatus.Code(err) {
	case codes.AlreadyExists:
		return dom.ErrRecordConflict
	case codes.NotFound:
		return dom.ErrRecordNotFound
	}
	return err
}

func toDoc(rec dom.Record) recordDoc {
	return recordDoc(rec)
}

func fromDoc(d recordDoc) dom.Record {
	rec := dom.Record(d)
	rec.RecordedAt = rec.RecordedAt.UTC()
	if rec.Options == nil {
		rec.Options = map[string]any{}
	}
	return rec
}

// Create fails with ErrRecordConflict when the mint already has a document.
func (r *IssuanceRecordRepositoryFS) Create(ctx context.Context, rec dom.Record) (dom.Record, error) {
	if r.Client == nil {
		return dom.Record{}, errors.New("firestore client is nil")
	}
	rec.Normalize()
	if rec.MintAddress == "" {
		return dom.Record{}, errors.New("issuance_records: mintAddress is empty")
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	if _, err := r.col().Doc(rec.MintAddress).Create(ctx, toDoc(rec)); err != nil {
		return dom.Record{}, mapStatusErr(err)
	}
	return rec, nil
}

func (r *IssuanceRecordRepositoryFS) GetByMintAddress(ctx context.Context, mintAddress string) (dom.Record, error) {
	if r.Client == nil {
		return dom.Record{}, errors.New("firestore client is nil")
	}
	addr := strings.TrimSpace(mintAddress)
	if addr == "" {
		return dom.Record{}, dom.ErrRecordNotFound
	}

	snap, err := r.col().Doc(addr).Get(ctx)
	if err != nil {
		return dom.Record{}, mapStatusErr(err)
	}

	var d recordDoc
	if err := snap.DataTo(&d); err != nil {
		return dom.Record{}, err
	}
	return fromDoc(d), nil
}

func (r *IssuanceRecordRepositoryFS) ListByOwner(ctx context.Context, owner string, limit int) ([]dom.Record, error) {
	if r.Client == nil {
		return nil, errors.New("firestore client is nil")
	}
	limit = dom.ClampListLimit(limit)

	it := r.col().
		Where("owner", "==", strings.TrimSpace(owner)).
		OrderBy("recordedAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer it.Stop()

	var out []dom.Record
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var d recordDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, err
		}
		out = append(out, fromDoc(d))
	}
	return out, nil
}
