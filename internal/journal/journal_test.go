package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-volume-bot/internal/domain"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func sampleRecord() *domain.SwapAttemptRecord {
	sig := "sig123"
	notional := decimal.NewFromInt(10)
	return &domain.SwapAttemptRecord{
		AttemptID:     "attempt-1",
		Timestamp:     time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		Direction:     domain.DirectionBuy,
		InputMint:     domain.WrappedSOL.Mint,
		OutputMint:    "TokenMint111111111111111111111111111111111",
		InputAmount:   decimal.RequireFromString("0.0666666666666667"),
		InputUnit:     domain.UnitBase,
		OutputAmount:  decimal.RequireFromString("0.0005"),
		UsdNotional:   &notional,
		TransactionID: &sig,
		Success:       true,
	}
}

func TestWriter_SessionMarkersAndRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(sampleRecord()))
	require.NoError(t, w.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 3)

	var start, end sessionMarker
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &start))
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &end))
	assert.Equal(t, "start", start.Session)
	assert.Equal(t, "end", end.Session)

	var rec domain.SwapAttemptRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "attempt-1", rec.AttemptID)
	assert.Equal(t, domain.DirectionBuy, rec.Direction)
	assert.True(t, rec.Success)
	require.NotNil(t, rec.TransactionID)
	assert.Equal(t, "sig123", *rec.TransactionID)
	require.NotNil(t, rec.UsdNotional)
	assert.True(t, rec.UsdNotional.Equal(decimal.NewFromInt(10)))
}

func TestWriter_AppendsAcrossSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(sampleRecord()))
	require.NoError(t, w.Close())

	// Reopening must append, never truncate.
	w, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(sampleRecord()))
	require.NoError(t, w.Close())

	lines := readLines(t, path)
	assert.Len(t, lines, 6)
}

func TestWriter_FailedAttemptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	w, err := Open(path)
	require.NoError(t, err)

	rec := sampleRecord()
	rec.Success = false
	rec.TransactionID = nil
	rec.OutputAmount = decimal.Zero
	rec.FailureStage = domain.StageQuote
	rec.FailureReason = "no route"
	require.NoError(t, w.Append(rec))
	require.NoError(t, w.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 3)

	var got domain.SwapAttemptRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.False(t, got.Success)
	assert.Nil(t, got.TransactionID)
	assert.Equal(t, domain.StageQuote, got.FailureStage)
	assert.Equal(t, "no route", got.FailureReason)
}

func TestWriter_AppendNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Append(nil))
}

func TestWriter_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "journal.jsonl")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
