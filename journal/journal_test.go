package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/simcore/internal/canon"
)

func sampleRecord(t int64, side string, price, size float64) TradeRecord {
	return TradeRecord{
		Time:     t,
		Side:     side,
		Price:    decimal.NewFromFloat(price),
		Size:     decimal.NewFromFloat(size),
		Notional: decimal.NewFromFloat(price * size),
		Fee:      decimal.NewFromFloat(1),
	}
}

func TestAppendChainsRecords(t *testing.T) {
	t.Parallel()

	w := Start("run-1", t.TempDir(), nil)
	a := w.Append(sampleRecord(1000, "buy", 100, 2))
	b := w.Append(sampleRecord(2000, "sell", 101, 2))

	assert.Equal(t, "run-1", a.RunID)
	assert.Equal(t, 1, a.Seq)
	assert.Equal(t, "", a.PrevID)
	assert.NotEmpty(t, a.TradeID)

	assert.Equal(t, 2, b.Seq)
	assert.Equal(t, a.TradeID, b.PrevID)
	assert.NotEqual(t, a.TradeID, b.TradeID)

	assert.Equal(t, 2, w.Len())
	assert.Equal(t, -1, VerifyChain(w.Records()))
}

func TestIDIgnoresExistingTradeID(t *testing.T) {
	t.Parallel()

	rec := sampleRecord(1000, "buy", 100, 2)
	blank := rec.ID()
	rec.TradeID = "deadbeef"
	assert.Equal(t, blank, rec.ID())
}

func TestVerifyChainDetectsTamper(t *testing.T) {
	t.Parallel()

	w := Start("run-2", t.TempDir(), nil)
	for i := 0; i < 4; i++ {
		w.Append(sampleRecord(int64(i+1)*1000, "buy", 100, 1))
	}
	records := w.Records()
	require.Equal(t, -1, VerifyChain(records))

	tests := []struct {
		name   string
		mutate func([]TradeRecord)
		broken int
	}{
		{
			name:   "edited_field",
			mutate: func(rs []TradeRecord) { rs[1].Fee = decimal.NewFromInt(99) },
			broken: 1,
		},
		{
			name:   "swapped_trade_id",
			mutate: func(rs []TradeRecord) { rs[2].TradeID = rs[0].TradeID },
			broken: 2,
		},
		{
			name:   "dropped_record",
			mutate: func(rs []TradeRecord) { copy(rs[1:], rs[2:]) },
			broken: 1,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rs := make([]TradeRecord, len(records))
			copy(rs, records)
			tc.mutate(rs)
			assert.Equal(t, tc.broken, VerifyChain(rs))
		})
	}
}

func TestFinalizeWritesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := Start("run-3", dir, nil)
	w.Append(sampleRecord(1000, "buy", 100.1, 99.9000999))
	w.Append(sampleRecord(2000, "sell", 100.2, 99.9000999))

	res, err := w.Finalize()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "run-3_journal.json"), res.JSONPath)
	assert.Equal(t, filepath.Join(dir, "run-3_journal.csv"), res.CSVPath)

	data, err := os.ReadFile(res.JSONPath)
	require.NoError(t, err)
	assert.Equal(t, canon.HashBytes(data), res.Checksum)

	p, err := Load(res.JSONPath)
	require.NoError(t, err)
	assert.Equal(t, "run-3", p.RunID)
	require.Len(t, p.Trades, 2)
	assert.Equal(t, -1, VerifyChain(p.Trades))
	assert.True(t, p.Trades[0].Price.Equal(decimal.RequireFromString("100.1")))

	f, err := os.Open(res.CSVPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "run-3", rows[1][0])
	assert.Equal(t, "buy", rows[1][3])
	assert.Equal(t, rows[1][len(rows[1])-1], p.Trades[0].TradeID)
}

func TestFinalizeEmptyJournal(t *testing.T) {
	t.Parallel()

	w := Start("run-4", t.TempDir(), nil)
	res, err := w.Finalize()
	require.NoError(t, err)
	assert.NotEmpty(t, res.Checksum)

	p, err := Load(res.JSONPath)
	require.NoError(t, err)
	assert.NotNil(t, p.Trades)
	assert.Len(t, p.Trades, 0)
}

func TestNilWriterIsNoop(t *testing.T) {
	t.Parallel()

	var w *Writer
	rec := w.Append(sampleRecord(1000, "buy", 100, 1))
	assert.Equal(t, 0, rec.Seq)
	assert.Equal(t, 0, w.Len())
	assert.Nil(t, w.Records())
	w.MirrorSQLite("ignored.db")

	res, err := w.Finalize()
	require.NoError(t, err)
	assert.Empty(t, res.Checksum)
	assert.Empty(t, res.JSONPath)
}
