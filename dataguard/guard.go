// dataguard/guard.go
//
// Input-series validation and content checksumming. The checksum is the
// identity of the dataset: replay refuses to simulate against bars whose
// checksum differs from the one sealed into the manifest.
package dataguard

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/simcore/internal/canon"
	"github.com/rustyeddy/simcore/market"
)

// Error codes (fatal in strict mode).
const (
	CodeEmptyDataset = "EMPTY_DATASET"
	CodeMissingField = "MISSING_FIELD"
	CodeBadTimestamp = "BAD_T"
	CodeBadNumeric   = "BAD_NUMERIC"
	CodeUnsorted     = "UNSORTED"
)

// Warning codes (always informational).
const (
	CodeUnsortedWarn = "UNSORTED_WARN"
	CodeDuplicateT   = "DUPLICATE_T"
	CodeTimeGap      = "TIME_GAP"
)

// Options controls the sequential scan.
type Options struct {
	ExpectSorted         bool  // non-ascending timestamps are errors, not warnings
	AllowEqualTimestamps bool  // suppress DUPLICATE_T warnings
	MaxGap               int64 // ms between consecutive bars; 0 disables gap detection
	Strict               bool  // any error becomes a returned error
}

// DefaultOptions is what the engine uses when asked to validate.
func DefaultOptions() Options {
	return Options{ExpectSorted: true}
}

// Issue is one finding, error or warning.
type Issue struct {
	Code  string `json:"code"`
	Index int    `json:"index"`
	Field string `json:"field,omitempty"`
	Msg   string `json:"msg"`
}

// Stats summarizes the scan.
type Stats struct {
	Count        int   `json:"count"`
	Sorted       bool  `json:"sorted"`
	Duplicates   int   `json:"duplicates"`
	GapsDetected int   `json:"gapsDetected"`
	Start        int64 `json:"start,omitempty"`
	End          int64 `json:"end,omitempty"`
}

// Report is the full validation outcome. Bars holds the coerced series
// when validation started from raw rows.
type Report struct {
	OK       bool         `json:"ok"`
	Errors   []Issue      `json:"errors"`
	Warnings []Issue      `json:"warnings"`
	Stats    Stats        `json:"stats"`
	Checksum string       `json:"checksum"`
	Bars     []market.Bar `json:"-"`
}

// ValidationError carries a truncated, human-readable summary of the
// first few errors. Returned only in strict mode.
type ValidationError struct {
	Issues []Issue
}

const maxSummarized = 5

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("bar data validation failed: ")
	n := len(e.Issues)
	shown := n
	if shown > maxSummarized {
		shown = maxSummarized
	}
	for i := 0; i < shown; i++ {
		if i > 0 {
			sb.WriteString("; ")
		}
		is := e.Issues[i]
		fmt.Fprintf(&sb, "%s[%d]: %s", is.Code, is.Index, is.Msg)
	}
	if n > shown {
		fmt.Fprintf(&sb, " (and %d more)", n-shown)
	}
	return sb.String()
}

// Checksum is the content hash of a bar series: canonical JSON of the
// bars reduced to {t,o,h,l,c,v} in original order. Key order and any
// extra fields on the producing side cannot affect it.
func Checksum(bars []market.Bar) string {
	if bars == nil {
		bars = []market.Bar{}
	}
	return canon.HashHex(bars)
}

// Validate runs the full schema check and sequential scan over raw rows
// as decoded from JSON ([]map[string]any). Rows that fail the schema
// check are reported but excluded from the sequential scan, the
// checksum, and Report.Bars, so a bad row cannot also manufacture
// ordering issues or shift the dataset's identity.
func Validate(rows []map[string]any, opts Options) (*Report, error) {
	if len(rows) == 0 {
		rep := &Report{
			OK:       false,
			Errors:   []Issue{{Code: CodeEmptyDataset, Index: -1, Msg: "no bars in input"}},
			Warnings: []Issue{},
			Stats:    Stats{Count: 0, Sorted: true},
			Checksum: Checksum(nil),
		}
		return rep, rep.strictErr(opts)
	}

	bars := make([]market.Bar, 0, len(rows))
	var schemaIssues []Issue
	for i, row := range rows {
		b, issues := coerceRow(i, row)
		if len(issues) > 0 {
			schemaIssues = append(schemaIssues, issues...)
			continue
		}
		bars = append(bars, b)
	}

	var rep *Report
	if len(bars) == 0 {
		rep = &Report{
			Errors:   []Issue{},
			Warnings: []Issue{},
			Stats:    Stats{Count: 0, Sorted: true},
			Checksum: Checksum(bars),
			Bars:     bars,
		}
	} else {
		rep = scan(bars, opts)
	}
	rep.Errors = append(schemaIssues, rep.Errors...)
	rep.OK = len(rep.Errors) == 0
	return rep, rep.strictErr(opts)
}

// ValidateBars runs the sequential scan over an already-typed series.
// Schema problems cannot occur here; the type system rules them out.
func ValidateBars(bars []market.Bar, opts Options) (*Report, error) {
	if len(bars) == 0 {
		return Validate(nil, opts)
	}
	rep := scan(bars, opts)
	rep.OK = len(rep.Errors) == 0
	return rep, rep.strictErr(opts)
}

func (r *Report) strictErr(opts Options) error {
	if opts.Strict && len(r.Errors) > 0 {
		return &ValidationError{Issues: r.Errors}
	}
	return nil
}

func scan(bars []market.Bar, opts Options) *Report {
	rep := &Report{
		Errors:   []Issue{},
		Warnings: []Issue{},
		Bars:     bars,
		Stats: Stats{
			Count:  len(bars),
			Sorted: true,
			Start:  bars[0].T,
			End:    bars[len(bars)-1].T,
		},
	}

	prev := bars[0].T
	for i := 1; i < len(bars); i++ {
		t := bars[i].T
		switch {
		case t < prev:
			rep.Stats.Sorted = false
			msg := fmt.Sprintf("timestamp %d before previous %d", t, prev)
			if opts.ExpectSorted {
				rep.Errors = append(rep.Errors, Issue{Code: CodeUnsorted, Index: i, Field: "t", Msg: msg})
			} else {
				rep.Warnings = append(rep.Warnings, Issue{Code: CodeUnsortedWarn, Index: i, Field: "t", Msg: msg})
			}
		case t == prev:
			rep.Stats.Duplicates++
			if !opts.AllowEqualTimestamps {
				rep.Warnings = append(rep.Warnings, Issue{
					Code: CodeDuplicateT, Index: i, Field: "t",
					Msg: fmt.Sprintf("duplicate timestamp %d", t),
				})
			}
		default:
			if opts.MaxGap > 0 && t-prev > opts.MaxGap {
				rep.Stats.GapsDetected++
				rep.Warnings = append(rep.Warnings, Issue{
					Code: CodeTimeGap, Index: i, Field: "t",
					Msg: fmt.Sprintf("gap of %dms exceeds max %dms", t-prev, opts.MaxGap),
				})
			}
		}
		prev = t
	}

	rep.Checksum = Checksum(bars)
	return rep
}

var barFields = []string{"t", "o", "h", "l", "c", "v"}

func coerceRow(index int, row map[string]any) (market.Bar, []Issue) {
	var issues []Issue
	var b market.Bar

	for _, f := range barFields {
		raw, ok := row[f]
		if !ok || raw == nil {
			issues = append(issues, Issue{
				Code: CodeMissingField, Index: index, Field: f,
				Msg: fmt.Sprintf("field %q missing", f),
			})
			continue
		}
		if f == "t" {
			ts, err := coerceTime(raw)
			if err != nil {
				issues = append(issues, Issue{
					Code: CodeBadTimestamp, Index: index, Field: f,
					Msg: fmt.Sprintf("bad timestamp %v", raw),
				})
				continue
			}
			b.T = ts
			continue
		}
		d, err := coerceNumber(raw)
		if err != nil {
			issues = append(issues, Issue{
				Code: CodeBadNumeric, Index: index, Field: f,
				Msg: fmt.Sprintf("field %q not numeric: %v", f, raw),
			})
			continue
		}
		switch f {
		case "o":
			b.O = d
		case "h":
			b.H = d
		case "l":
			b.L = d
		case "c":
			b.C = d
		case "v":
			b.V = d
		}
	}
	return b, issues
}

func coerceNumber(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, fmt.Errorf("not finite")
		}
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	case decimal.Decimal:
		return x, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported type %T", v)
	}
}

func coerceTime(v any) (int64, error) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("not finite")
		}
		return int64(x), nil
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case string:
		return market.ParseTimestamp(strings.TrimSpace(x))
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
