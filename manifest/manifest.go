// manifest/manifest.go
//
// Reproducibility seal over a completed run. The manifest records what
// went in (data checksum, options, seed) and what came out (metrics,
// journal checksum), then seals itself with a hash over its own
// canonical form. Verification recomputes; mutating any field flips it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rustyeddy/simcore/internal/canon"
)

// DataInfo identifies the input bar series.
type DataInfo struct {
	BarCount int    `json:"barCount"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Checksum string `json:"checksum"`
}

// Manifest is the sealed run summary. Options and Metrics are kept as
// opaque canonical-hashable values so this package stays independent
// of the engine's types; a loaded manifest holds them as generic maps.
type Manifest struct {
	RunID           string   `json:"runId"`
	Timestamp       string   `json:"timestamp"`
	EngineVersion   string   `json:"engineVersion"`
	Strategy        string   `json:"strategy"`
	Seed            int64    `json:"seed"`
	Options         any      `json:"options"`
	Data            DataInfo `json:"data"`
	Metrics         any      `json:"metrics"`
	JournalChecksum string   `json:"journalChecksum"`
	IntegrityHash   string   `json:"integrityHash"`
	DigitalSeal     string   `json:"digitalSeal"`
}

// Summary is the lightweight .meta.json sidecar.
type Summary struct {
	RunID         string  `json:"runId"`
	EngineVersion string  `json:"engineVersion"`
	Strategy      string  `json:"strategy"`
	Timestamp     string  `json:"timestamp"`
	EquityFinal   string  `json:"equityFinal"`
	CAGR          float64 `json:"cagr"`
	Sharpe        float64 `json:"sharpe"`
	MDD           float64 `json:"mdd"`
	Trades        int     `json:"trades"`
	IntegrityHash string  `json:"integrityHash"`
}

// Input is everything Build needs from the engine.
type Input struct {
	RunID           string
	EngineVersion   string
	Strategy        string
	Seed            int64
	Timestamp       time.Time
	Options         any
	Metrics         any
	Data            DataInfo
	JournalChecksum string

	// Meta sidecar values, already formatted by the caller.
	EquityFinal string
	CAGR        float64
	Sharpe      float64
	MDD         float64
	Trades      int

	// Dir, when set, persists <runID>.manifest.json and
	// <runID>.meta.json there.
	Dir string
}

// Build assembles, seals, and optionally persists a manifest.
func Build(in Input) (*Manifest, error) {
	if in.RunID == "" {
		return nil, fmt.Errorf("manifest: empty run id")
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	optionsHash := canon.HashHex(in.Options)
	metricsHash := canon.HashHex(in.Metrics)

	m := &Manifest{
		RunID:           in.RunID,
		Timestamp:       ts.UTC().Format(time.RFC3339),
		EngineVersion:   in.EngineVersion,
		Strategy:        in.Strategy,
		Seed:            in.Seed,
		Options:         in.Options,
		Data:            in.Data,
		Metrics:         in.Metrics,
		JournalChecksum: in.JournalChecksum,
		IntegrityHash:   canon.HashBytes([]byte(in.Data.Checksum + optionsHash + metricsHash)),
	}
	m.DigitalSeal = ComputeSeal(*m)

	if in.Dir != "" {
		if err := persist(in, m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ComputeSeal hashes the manifest body with the seal field cleared.
func ComputeSeal(m Manifest) string {
	m.DigitalSeal = ""
	return canon.HashHex(m)
}

// VerifySeal reports whether the stored seal matches a recomputation
// over all other fields. Pure check, never errors.
func VerifySeal(m *Manifest) bool {
	if m == nil || m.DigitalSeal == "" {
		return false
	}
	return ComputeSeal(*m) == m.DigitalSeal
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Path returns the conventional manifest location for a run.
func Path(dir, runID string) string {
	return filepath.Join(dir, runID+".manifest.json")
}

func persist(in Input, m *Manifest) error {
	if err := os.MkdirAll(in.Dir, 0o755); err != nil {
		return fmt.Errorf("manifest dir: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(Path(in.Dir, m.RunID), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	meta := Summary{
		RunID:         m.RunID,
		EngineVersion: m.EngineVersion,
		Strategy:      m.Strategy,
		Timestamp:     m.Timestamp,
		EquityFinal:   in.EquityFinal,
		CAGR:          in.CAGR,
		Sharpe:        in.Sharpe,
		MDD:           in.MDD,
		Trades:        in.Trades,
		IntegrityHash: m.IntegrityHash,
	}
	mdata, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	metaPath := filepath.Join(in.Dir, m.RunID+".meta.json")
	if err := os.WriteFile(metaPath, mdata, 0o644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}
