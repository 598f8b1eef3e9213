// journal/files.go
package journal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/rustyeddy/simcore/internal/canon"
)

// Payload is the persisted JSON shape of a journal.
type Payload struct {
	RunID  string        `json:"runId"`
	Trades []TradeRecord `json:"trades"`
}

// FinalizeResult reports where the journal landed and its checksum,
// the canonical identity of the full trade history.
type FinalizeResult struct {
	Checksum string
	JSONPath string
	CSVPath  string
}

var csvHeader = []string{
	"runId", "seq", "time", "side", "price", "size", "notional", "fee",
	"cashBefore", "cashAfter", "posBefore", "posAfter",
	"avgPriceBefore", "avgPriceAfter", "equityBefore", "equityAfter",
	"tradeId",
}

// Finalize writes <runID>_journal.json and <runID>_journal.csv and
// returns the checksum over the exact JSON payload bytes. Safe to call
// on a nil Writer.
func (w *Writer) Finalize() (FinalizeResult, error) {
	if w == nil {
		return FinalizeResult{}, nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return FinalizeResult{}, fmt.Errorf("journal dir: %w", err)
	}

	payload := Payload{RunID: w.runID, Trades: w.records}
	if payload.Trades == nil {
		payload.Trades = []TradeRecord{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("marshal journal: %w", err)
	}

	res := FinalizeResult{
		Checksum: canon.HashBytes(data),
		JSONPath: filepath.Join(w.dir, w.runID+"_journal.json"),
		CSVPath:  filepath.Join(w.dir, w.runID+"_journal.csv"),
	}

	if err := os.WriteFile(res.JSONPath, data, 0o644); err != nil {
		return FinalizeResult{}, fmt.Errorf("write journal json: %w", err)
	}
	if err := writeCSV(res.CSVPath, w.records); err != nil {
		return FinalizeResult{}, err
	}
	if w.dbPath != "" {
		if err := mirrorSQLite(w.dbPath, payload); err != nil {
			return FinalizeResult{}, err
		}
	}

	w.log.Info("journal finalized",
		zap.String("runId", w.runID),
		zap.Int("trades", len(w.records)),
		zap.String("checksum", res.Checksum))
	return res, nil
}

func writeCSV(path string, records []TradeRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create journal csv: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close journal csv: %w", cerr)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.RunID,
			strconv.Itoa(r.Seq),
			strconv.FormatInt(r.Time, 10),
			r.Side,
			r.Price.String(),
			r.Size.String(),
			r.Notional.String(),
			r.Fee.String(),
			r.CashBefore.String(),
			r.CashAfter.String(),
			r.PosBefore.String(),
			r.PosAfter.String(),
			r.AvgPriceBefore.String(),
			r.AvgPriceAfter.String(),
			r.EquityBefore.String(),
			r.EquityAfter.String(),
			r.TradeID,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.Seq, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush journal csv: %w", err)
	}
	return nil
}

// Load reads a journal payload back from its JSON file.
func Load(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse journal: %w", err)
	}
	return &p, nil
}
