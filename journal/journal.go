// journal/journal.go
//
// Append-only audit journal of every fill in a run. Each record embeds
// the hash of its predecessor, so the history is hash-chained: editing
// or dropping a record breaks every tradeId after it.
package journal

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/simcore/internal/canon"
)

// TradeRecord is one audit entry. TradeID is the content hash of the
// record with TradeID itself cleared; PrevID is the TradeID of the
// preceding record (empty for the first).
type TradeRecord struct {
	RunID string `json:"runId"`
	Seq   int    `json:"seq"`
	Time  int64  `json:"time"`
	Side  string `json:"side"`

	Price    decimal.Decimal `json:"price"`
	Size     decimal.Decimal `json:"size"`
	Notional decimal.Decimal `json:"notional"`
	Fee      decimal.Decimal `json:"fee"`

	CashBefore     decimal.Decimal `json:"cashBefore"`
	CashAfter      decimal.Decimal `json:"cashAfter"`
	PosBefore      decimal.Decimal `json:"posBefore"`
	PosAfter       decimal.Decimal `json:"posAfter"`
	AvgPriceBefore decimal.Decimal `json:"avgPriceBefore"`
	AvgPriceAfter  decimal.Decimal `json:"avgPriceAfter"`
	EquityBefore   decimal.Decimal `json:"equityBefore"`
	EquityAfter    decimal.Decimal `json:"equityAfter"`

	PrevID  string `json:"prevId"`
	TradeID string `json:"tradeId"`
}

// ID computes the content hash of r, ignoring any value already in
// TradeID.
func (r TradeRecord) ID() string {
	r.TradeID = ""
	return canon.HashHex(r)
}

// Writer accumulates records for one run and persists them on
// Finalize. A nil Writer is a valid no-op sink, which lets the engine
// skip journaling without branching at every call site.
type Writer struct {
	runID   string
	dir     string
	records []TradeRecord
	dbPath  string
	log     *zap.Logger
}

// Start opens a journal for runID. Files are written under dir at
// Finalize time.
func Start(runID, dir string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{runID: runID, dir: dir, log: log}
}

// MirrorSQLite additionally copies the finalized journal into a SQLite
// database at path.
func (w *Writer) MirrorSQLite(path string) {
	if w != nil {
		w.dbPath = path
	}
}

// Append assigns the next sequence number and the chain hashes, then
// appends. The completed record is returned.
func (w *Writer) Append(rec TradeRecord) TradeRecord {
	if w == nil {
		return rec
	}
	rec.RunID = w.runID
	rec.Seq = len(w.records) + 1
	rec.PrevID = ""
	if n := len(w.records); n > 0 {
		rec.PrevID = w.records[n-1].TradeID
	}
	rec.TradeID = rec.ID()
	w.records = append(w.records, rec)

	w.log.Debug("journal append",
		zap.String("runId", w.runID),
		zap.Int("seq", rec.Seq),
		zap.String("side", rec.Side),
		zap.String("tradeId", rec.TradeID))
	return rec
}

// Records returns the records appended so far.
func (w *Writer) Records() []TradeRecord {
	if w == nil {
		return nil
	}
	return w.records
}

// Len reports the number of appended records.
func (w *Writer) Len() int {
	if w == nil {
		return 0
	}
	return len(w.records)
}

// VerifyChain re-derives every TradeID and PrevID link. It returns the
// index of the first broken record, or -1 when the chain is intact.
func VerifyChain(records []TradeRecord) int {
	prev := ""
	for i, r := range records {
		if r.PrevID != prev || r.ID() != r.TradeID {
			return i
		}
		prev = r.TradeID
	}
	return -1
}
