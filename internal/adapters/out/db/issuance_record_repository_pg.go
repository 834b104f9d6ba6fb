// internal/adapters/out/db/issuance_record_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	dom "splforge/internal/domain/issuance"
)

const pgUniqueViolation = "23505"

type IssuanceRecordRepositoryPG struct {
	DB *sql.DB
}

func NewIssuanceRecordRepositoryPG(db *sql.DB) *IssuanceRecordRepositoryPG {
	return &IssuanceRecordRepositoryPG{DB: db}
}

var _ dom.RecordRepository = (*IssuanceRecordRepositoryPG)(nil)

// Migrate applies the issuance_records DDL. Idempotent.
func (r *IssuanceRecordRepositoryPG) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, dom.IssuanceRecordsTableDDL)
	return err
}

// ========================================
// RecordRepository implementation
// ========================================

func (r *IssuanceRecordRepositoryPG) Create(ctx context.Context, rec dom.Record) (dom.Record, error) {
	rec.Normalize()
	opts, err := encodeOptions(rec.Options)
	if err != nil {
		return dom.Record{}, err
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	const q = `
INSERT INTO issuance_records (
  mint_address, signature, owner, name, symbol, supply, decimals, options, recorded_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING
  mint_address, signature, owner, name, symbol, supply::text, decimals, options, recorded_at`

	row := r.DB.QueryRowContext(ctx, q,
		rec.MintAddress,
		rec.Signature,
		rec.Owner,
		rec.Name,
		rec.Symbol,
		rec.Supply,
		rec.Decimals,
		opts,
		rec.RecordedAt,
	)
	out, err := scanRecord(row)
	if err != nil {
		return dom.Record{}, mapCreateErr(err)
	}
	return out, nil
}

func (r *IssuanceRecordRepositoryPG) GetByMintAddress(ctx context.Context, mintAddress string) (dom.Record, error) {
	const q = `
SELECT
  mint_address, signature, owner, name, symbol, supply::text, decimals, options, recorded_at
FROM issuance_records
WHERE mint_address = $1
LIMIT 1`
	out, err := scanRecord(r.DB.QueryRowContext(ctx, q, strings.TrimSpace(mintAddress)))
	if err != nil {
		return dom.Record{}, mapGetErr(err)
	}
	return out, nil
}

func (r *IssuanceRecordRepositoryPG) ListByOwner(ctx context.Context, owner string, limit int) ([]dom.Record, error) {
	limit = dom.ClampListLimit(limit)
	const q = `
SELECT
  mint_address, signature, owner, name, symbol, supply::text, decimals, options, recorded_at
FROM issuance_records
WHERE owner = $1
ORDER BY recorded_at DESC, mint_address ASC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, q, strings.TrimSpace(owner), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dom.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ========================================
// helpers
// ========================================

// mapCreateErr: unique violation on mint_address / signature -> ErrRecordConflict
func mapCreateErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return dom.ErrRecordConflict
	}
	return err
}

func mapGetErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return dom.ErrRecordNotFound
	}
	return err
}

// encodeOptions renders the options column (jsonb). nil is stored as {}.
func encodeOptions(opts map[string]any) (string, error) {
	if opts == nil {
		opts = map[string]any{}
	}
	b, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("issuance_records: marshal options: %w", err)
	}
	return string(b), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (dom.Record, error) {
	var (
		rec  dom.Record
		opts []byte
	)
	if err := s.Scan(
		&rec.MintAddress,
		&rec.Signature,
		&rec.Owner,
		&rec.Name,
		&rec.Symbol,
		&rec.Supply,
		&rec.Decimals,
		&opts,
		&rec.RecordedAt,
	); err != nil {
		return dom.Record{}, err
	}
	rec.Options = map[string]any{}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &rec.Options); err != nil {
			return dom.Record{}, fmt.Errorf("issuance_records: decode options: %w", err)
		}
	}
	rec.RecordedAt = rec.RecordedAt.UTC()
	return rec, nil
}
