// market/loader.go
package market

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/ulikunitz/xz"
)

// LoadBars reads a bar series from a .json or .csv file. A trailing
// .xz extension is decompressed transparently, so dataset archives can
// be used as-is.
func LoadBars(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	name := path
	if strings.EqualFold(filepath.Ext(name), ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("xz reader for %s: %w", path, err)
		}
		r = xr
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		return ReadBarsJSON(r)
	case ".csv":
		return ReadBarsCSV(r)
	default:
		return nil, fmt.Errorf("unsupported bar format %q (want .json or .csv)", ext)
	}
}

// ReadBarsJSON decodes an array of {t,o,h,l,c,v} objects.
func ReadBarsJSON(r io.Reader) ([]Bar, error) {
	var bars []Bar
	dec := json.NewDecoder(r)
	if err := dec.Decode(&bars); err != nil {
		return nil, fmt.Errorf("decode bars json: %w", err)
	}
	return bars, nil
}

// ReadBarsCSV decodes rows under a header containing at least the
// t,o,h,l,c,v columns. Extra columns are ignored; column order is
// taken from the header.
func ReadBarsCSV(r io.Reader) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		cols[h] = i
	}
	for _, want := range []string{"t", "o", "h", "l", "c", "v"} {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("csv header missing column %q", want)
		}
	}

	var bars []Bar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", line, err)
		}
		line++
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}

		var b Bar
		if b.T, err = ParseTimestamp(strings.TrimSpace(rec[cols["t"]])); err != nil {
			return nil, fmt.Errorf("csv row %d: %w", line, err)
		}
		for _, f := range []struct {
			name string
			dst  *decimal.Decimal
		}{
			{"o", &b.O}, {"h", &b.H}, {"l", &b.L}, {"c", &b.C}, {"v", &b.V},
		} {
			idx := cols[f.name]
			if idx >= len(rec) {
				return nil, fmt.Errorf("csv row %d: short row, missing %q", line, f.name)
			}
			d, err := decimal.NewFromString(strings.TrimSpace(rec[idx]))
			if err != nil {
				return nil, fmt.Errorf("csv row %d field %s: %w", line, f.name, err)
			}
			*f.dst = d
		}
		bars = append(bars, b)
	}
	return bars, nil
}
