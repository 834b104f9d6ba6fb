// internal/domain/issuance/record.go
package issuance

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Record is the body of POST /api/create-token.
//
// The wire shape is {name, symbol, supply, decimals, options, mintAddress, signature};
// owner and recordedAt are additive fields used by the record-keeping service.
type Record struct {
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Supply      string         `json:"supply"`
	Decimals    int            `json:"decimals"`
	Options     map[string]any `json:"options"`
	MintAddress string         `json:"mintAddress"`
	Signature   string         `json:"signature"`
	Owner       string         `json:"owner,omitempty"`
	RecordedAt  time.Time      `json:"recordedAt,omitzero"`
}

// NewRecord flattens authority flags, description and social links into options.
func NewRecord(req Request, res *Result) Record {
	opts := map[string]any{
		"revokeMint":   req.Authorities.RevokeMint,
		"revokeUpdate": req.Authorities.RevokeUpdate,
		"revokeFreeze": req.Authorities.RevokeFreeze,
	}
	if req.Description != "" {
		opts["description"] = req.Description
	}
	if req.MetadataURI != "" {
		opts["metadataUri"] = req.MetadataURI
	}
	for k, v := range req.SocialLinks {
		opts[k] = v
	}

	rec := Record{
		Name:     req.Name,
		Symbol:   req.Symbol,
		Supply:   req.Supply.String(),
		Decimals: req.Decimals,
		Options:  opts,
	}
	if res != nil {
		rec.MintAddress = res.MintAddress
		rec.Signature = res.Reference
		rec.Owner = res.Owner
	}
	return rec
}

// Authorities reads the revoke flags back out of options.
func (r Record) Authorities() AuthorityFlags {
	flag := func(k string) bool {
		b, _ := r.Options[k].(bool)
		return b
	}
	return AuthorityFlags{
		RevokeMint:   flag("revokeMint"),
		RevokeUpdate: flag("revokeUpdate"),
		RevokeFreeze: flag("revokeFreeze"),
	}
}

// Normalize trims string fields in place.
func (r *Record) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Symbol = strings.TrimSpace(r.Symbol)
	r.Supply = strings.TrimSpace(r.Supply)
	r.MintAddress = strings.TrimSpace(r.MintAddress)
	r.Signature = strings.TrimSpace(r.Signature)
	r.Owner = strings.TrimSpace(r.Owner)
	if r.Options == nil {
		r.Options = map[string]any{}
	}
}

// ========================================
// Repository Port（契約のみ）
// ========================================

// ListByOwner limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ClampListLimit maps a requested page size into [1, MaxListLimit];
// zero or negative means DefaultListLimit. Clamping twice is a no-op.
func ClampListLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}

// ListByOwner implementations apply ClampListLimit and otherwise honour limit.
type RecordRepository interface {
	Create(ctx context.Context, rec Record) (Record, error)
	GetByMintAddress(ctx context.Context, mintAddress string) (Record, error)
	ListByOwner(ctx context.Context, owner string, limit int) ([]Record, error)
}

// 共通エラー（契約）
var (
	ErrRecordNotFound = errors.New("issuance: record not found")
	ErrRecordConflict = errors.New("issuance: record already exists")
)

// IssuanceRecordsTableDDL defines the SQL for the issuance_records migration.
const IssuanceRecordsTableDDL = `
BEGIN;

CREATE TABLE IF NOT EXISTS issuance_records (
  mint_address  TEXT        PRIMARY KEY,
  signature     TEXT        NOT NULL,
  owner         TEXT        NOT NULL DEFAULT '',
  name          TEXT        NOT NULL,
  symbol        TEXT        NOT NULL,
  supply        NUMERIC     NOT NULL,
  decimals      SMALLINT    NOT NULL,
  options       JSONB       NOT NULL DEFAULT '{}'::jsonb,
  recorded_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),

  CONSTRAINT chk_issuance_records_decimals CHECK (decimals BETWEEN 0 AND 9),
  CONSTRAINT chk_issuance_records_symbol   CHECK (char_length(trim(symbol)) BETWEEN 1 AND 5)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_issuance_records_signature ON issuance_records(signature);
CREATE INDEX IF NOT EXISTS idx_issuance_records_owner            ON issuance_records(owner);
CREATE INDEX IF NOT EXISTS idx_issuance_records_recorded_at      ON issuance_records(recorded_at);

COMMIT;
`
