// market/bar.go
package market

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV sample. T is the bar open time in epoch milliseconds.
// Bars are value types and are never mutated after load.
type Bar struct {
	T int64           `json:"t"`
	O decimal.Decimal `json:"o"`
	H decimal.Decimal `json:"h"`
	L decimal.Decimal `json:"l"`
	C decimal.Decimal `json:"c"`
	V decimal.Decimal `json:"v"`
}

// Time returns the bar open time in UTC.
func (b Bar) Time() time.Time {
	return time.UnixMilli(b.T).UTC()
}

// UnmarshalJSON accepts numeric fields either as JSON numbers or as
// numeric strings, and timestamps additionally as date strings. Feeds
// are inconsistent about this and the ledger needs one exact decimal
// type on the other side.
func (b *Bar) UnmarshalJSON(data []byte) error {
	var raw struct {
		T json.RawMessage `json:"t"`
		O json.RawMessage `json:"o"`
		H json.RawMessage `json:"h"`
		L json.RawMessage `json:"l"`
		C json.RawMessage `json:"c"`
		V json.RawMessage `json:"v"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	if b.T, err = coerceTimestamp(raw.T); err != nil {
		return fmt.Errorf("bar field t: %w", err)
	}
	for _, f := range []struct {
		name string
		raw  json.RawMessage
		dst  *decimal.Decimal
	}{
		{"o", raw.O, &b.O},
		{"h", raw.H, &b.H},
		{"l", raw.L, &b.L},
		{"c", raw.C, &b.C},
		{"v", raw.V, &b.V},
	} {
		if *f.dst, err = coerceDecimal(f.raw); err != nil {
			return fmt.Errorf("bar field %s: %w", f.name, err)
		}
	}
	return nil
}

func coerceDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, fmt.Errorf("missing value")
	}
	s := strings.TrimSpace(string(raw))
	if len(s) >= 2 && s[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, err
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("not numeric: %q", s)
	}
	return d, nil
}

func coerceTimestamp(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("missing value")
	}
	s := strings.TrimSpace(string(raw))
	if len(s) >= 2 && s[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
	}
	return ParseTimestamp(strings.TrimSpace(s))
}

// ParseTimestamp parses an epoch-millisecond integer or a date string
// (RFC3339, "2006-01-02 15:04:05", or "2006-01-02", all UTC).
func ParseTimestamp(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unparseable timestamp: %q", s)
}
