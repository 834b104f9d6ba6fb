// internal/application/usecase/record_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mr-tron/base58"

	app "splforge/internal/application/issuance"
	dom "splforge/internal/domain/issuance"
)

var ErrInvalidRecord = errors.New("record: invalid")

// RecordUsecase is the record-keeping service behind POST /api/create-token.
// It also satisfies the pipeline's Recorder port so a single process can
// record without going over HTTP.
type RecordUsecase struct {
	repo dom.RecordRepository
	now  func() time.Time
}

func NewRecordUsecase(repo dom.RecordRepository) *RecordUsecase {
	return &RecordUsecase{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

var _ app.Recorder = (*RecordUsecase)(nil)

// Create validates and stores rec. A second record for the same mint (or
// the same transaction signature) returns dom.ErrRecordConflict.
func (u *RecordUsecase) Create(ctx context.Context, rec dom.Record) (dom.Record, error) {
	rec.Normalize()
	if err := validateRecord(rec); err != nil {
		return dom.Record{}, err
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = u.now()
	}
	return u.repo.Create(ctx, rec)
}

// Record implements app.Recorder.
func (u *RecordUsecase) Record(ctx context.Context, rec dom.Record) error {
	_, err := u.Create(ctx, rec)
	return err
}

func (u *RecordUsecase) GetByMintAddress(ctx context.Context, mintAddress string) (dom.Record, error) {
	mintAddress = strings.TrimSpace(mintAddress)
	if err := ValidateAddress(mintAddress); err != nil {
		return dom.Record{}, fmt.Errorf("%w: mintAddress: %v", ErrInvalidRecord, err)
	}
	return u.repo.GetByMintAddress(ctx, mintAddress)
}

func (u *RecordUsecase) ListByOwner(ctx context.Context, owner string, limit int) ([]dom.Record, error) {
	owner = strings.TrimSpace(owner)
	if err := ValidateAddress(owner); err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidRecord, err)
	}
	return u.repo.ListByOwner(ctx, owner, dom.ClampListLimit(limit))
}

// ============================================================
// validation
// ============================================================

func validateRecord(rec dom.Record) error {
	if rec.Name == "" || utf8.RuneCountInString(rec.Name) > dom.MaxNameLen {
		return fmt.Errorf("%w: name must be 1..%d characters", ErrInvalidRecord, dom.MaxNameLen)
	}
	if n := utf8.RuneCountInString(rec.Symbol); n == 0 || n > dom.MaxSymbolLen {
		return fmt.Errorf("%w: symbol must be 1..%d characters", ErrInvalidRecord, dom.MaxSymbolLen)
	}
	if rec.Decimals < 0 || rec.Decimals > dom.MaxDecimals {
		return fmt.Errorf("%w: decimals must be 0..%d", ErrInvalidRecord, dom.MaxDecimals)
	}
	supply, err := dom.ParseSupply(rec.Supply)
	if err != nil {
		return fmt.Errorf("%w: supply: %v", ErrInvalidRecord, err)
	}
	if _, err := dom.ToBaseUnits(supply, rec.Decimals); err != nil {
		return fmt.Errorf("%w: supply: %v", ErrInvalidRecord, err)
	}
	if err := ValidateAddress(rec.MintAddress); err != nil {
		return fmt.Errorf("%w: mintAddress: %v", ErrInvalidRecord, err)
	}
	if err := ValidateSignature(rec.Signature); err != nil {
		return fmt.Errorf("%w: signature: %v", ErrInvalidRecord, err)
	}
	if rec.Owner != "" {
		if err := ValidateAddress(rec.Owner); err != nil {
			return fmt.Errorf("%w: owner: %v", ErrInvalidRecord, err)
		}
	}
	return nil
}

// ValidateAddress checks that s is a base58 encoded 32 byte public key.
func ValidateAddress(s string) error {
	return checkBase58(s, 32)
}

// ValidateSignature checks that s is a base58 encoded 64 byte signature.
func ValidateSignature(s string) error {
	return checkBase58(s, 64)
}

func checkBase58(s string, size int) error {
	if s == "" {
		return errors.New("empty")
	}
	b, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("not base58: %w", err)
	}
	if len(b) != size {
		return fmt.Errorf("decoded length %d, want %d", len(b), size)
	}
	return nil
}
