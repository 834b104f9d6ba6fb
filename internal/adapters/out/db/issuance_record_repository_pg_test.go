package db

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dom "splforge/internal/domain/issuance"
)

// fakeRow feeds fixed column values to Scan in SELECT order.
type fakeRow struct {
	cols []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.cols) {
		return fmt.Errorf("scan: want %d dest, got %d", len(r.cols), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.cols[i].(string)
		case *int:
			*p = r.cols[i].(int)
		case *[]byte:
			*p = r.cols[i].([]byte)
		case *time.Time:
			*p = r.cols[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported dest %T", d)
		}
	}
	return nil
}

func rowFor(opts []byte, at time.Time) fakeRow {
	return fakeRow{cols: []any{
		"Mint1111111111111111111111111111111111111111",
		"5sig",
		"Owner111111111111111111111111111111111111111",
		"Doge2",
		"DOGE2",
		"1000000",
		9,
		opts,
		at,
	}}
}

func TestScanRecord_OptionsRoundTrip(t *testing.T) {
	in := map[string]any{
		"revokeMint":   true,
		"revokeFreeze": false,
		"description":  "much wow",
		"twitter":      "@doge2",
	}
	encoded, err := encodeOptions(in)
	require.NoError(t, err)

	jst := time.FixedZone("JST", 9*60*60)
	at := time.Date(2026, 10, 16, 21, 0, 0, 0, jst)

	rec, err := scanRecord(rowFor([]byte(encoded), at))
	require.NoError(t, err)
	assert.Equal(t, in, rec.Options)
	assert.Equal(t, "DOGE2", rec.Symbol)
	assert.Equal(t, 9, rec.Decimals)
	assert.Equal(t, "1000000", rec.Supply)
	assert.Equal(t, time.UTC, rec.RecordedAt.Location())
	assert.True(t, rec.RecordedAt.Equal(at))
}

func TestScanRecord_EmptyAndBrokenOptions(t *testing.T) {
	rec, err := scanRecord(rowFor(nil, time.Now()))
	require.NoError(t, err)
	assert.NotNil(t, rec.Options)
	assert.Empty(t, rec.Options)

	_, err = scanRecord(rowFor([]byte(`{"revokeMint":`), time.Now()))
	assert.ErrorContains(t, err, "decode options")

	_, err = scanRecord(fakeRow{err: sql.ErrNoRows})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEncodeOptions_Nil(t *testing.T) {
	got, err := encodeOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", got)
}

func TestMapCreateErr(t *testing.T) {
	unique := &pq.Error{Code: pgUniqueViolation, Constraint: "issuance_records_pkey"}
	assert.ErrorIs(t, mapCreateErr(unique), dom.ErrRecordConflict)

	assert.ErrorIs(t, mapCreateErr(fmt.Errorf("insert: %w", unique)), dom.ErrRecordConflict)

	fk := &pq.Error{Code: "23503"}
	assert.Same(t, fk, mapCreateErr(fk))

	other := errors.New("connection refused")
	assert.Equal(t, other, mapCreateErr(other))
	assert.NotErrorIs(t, mapCreateErr(other), dom.ErrRecordConflict)
}

func TestMapGetErr(t *testing.T) {
	assert.ErrorIs(t, mapGetErr(sql.ErrNoRows), dom.ErrRecordNotFound)
	other := errors.New("timeout")
	assert.Equal(t, other, mapGetErr(other))
}
