package market

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func TestBarUnmarshalCoercion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		json  string
		wantT int64
		wantC string
	}{
		{
			name:  "plain_numbers",
			json:  `{"t":1700000000000,"o":1,"h":2,"l":0.5,"c":1.5,"v":100}`,
			wantT: 1700000000000,
			wantC: "1.5",
		},
		{
			name:  "numeric_strings",
			json:  `{"t":"1700000000000","o":"1","h":"2","l":"0.5","c":"1.50","v":"100"}`,
			wantT: 1700000000000,
			wantC: "1.5",
		},
		{
			name:  "rfc3339_timestamp",
			json:  `{"t":"2023-11-14T22:13:20Z","o":1,"h":2,"l":0.5,"c":1.5,"v":100}`,
			wantT: 1700000000000,
			wantC: "1.5",
		},
		{
			name:  "date_only_timestamp",
			json:  `{"t":"2023-11-14","o":1,"h":2,"l":0.5,"c":1.5,"v":100}`,
			wantT: 1699920000000,
			wantC: "1.5",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var b Bar
			require.NoError(t, json.Unmarshal([]byte(tc.json), &b))
			assert.Equal(t, tc.wantT, b.T)
			assert.Equal(t, tc.wantC, b.C.String())
		})
	}
}

func TestBarUnmarshalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		json string
	}{
		{"missing_close", `{"t":1,"o":1,"h":2,"l":0.5,"v":100}`},
		{"bad_timestamp", `{"t":"yesterday","o":1,"h":2,"l":0.5,"c":1.5,"v":100}`},
		{"bad_numeric", `{"t":1,"o":"abc","h":2,"l":0.5,"c":1.5,"v":100}`},
		{"null_field", `{"t":1,"o":1,"h":2,"l":null,"c":1.5,"v":100}`},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var b Bar
			assert.Error(t, json.Unmarshal([]byte(tc.json), &b))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1700000000000", 1700000000000, false},
		{"2023-11-14T22:13:20Z", 1700000000000, false},
		{"2023-11-14 22:13:20", 1700000000000, false},
		{"2023-11-14", 1699920000000, false},
		{"", 0, true},
		{"not-a-date", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseTimestamp(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestLoadBarsJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`[{"t":60000,"o":1,"h":2,"l":0.5,"c":1.5,"v":10},
		  {"t":120000,"o":1.5,"h":2.5,"l":1,"c":2,"v":20}]`), 0o644))

	bars, err := LoadBars(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(60000), bars[0].T)
	assert.True(t, bars[1].C.Equal(decimal.NewFromInt(2)))
}

func TestLoadBarsCSV(t *testing.T) {
	t.Parallel()

	csvData := strings.Join([]string{
		"symbol,t,o,h,l,c,v",
		"BTC,60000,1,2,0.5,1.5,10",
		"BTC,120000,1.5,2.5,1,2.25,20",
		"",
	}, "\n")
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o644))

	bars, err := LoadBars(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(120000), bars[1].T)
	assert.Equal(t, "2.25", bars[1].C.String())
}

func TestReadBarsCSVStripsBOM(t *testing.T) {
	t.Parallel()

	// header as written by Excel and friends: UTF-8 BOM before the
	// first column name
	csvData := "\ufefft,o,h,l,c,v\n60000,1,2,0.5,1.5,10\n"
	bars, err := ReadBarsCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, int64(60000), bars[0].T)
	assert.Equal(t, "1.5", bars[0].C.String())
}

func TestReadBarsCSVMissingColumn(t *testing.T) {
	t.Parallel()

	_, err := ReadBarsCSV(strings.NewReader("t,o,h,l,c\n1,1,1,1,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"v"`)
}

func TestReadBarsCSVBadRow(t *testing.T) {
	t.Parallel()

	_, err := ReadBarsCSV(strings.NewReader("t,o,h,l,c,v\n60000,1,2,0.5,oops,10\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field c")
}

func TestLoadBarsXZ(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.json.xz")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := xz.NewWriter(f)
	require.NoError(t, err)
	_, err = w.Write([]byte(`[{"t":60000,"o":1,"h":2,"l":0.5,"c":1.5,"v":10}]`))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	bars, err := LoadBars(path)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "1.5", bars[0].C.String())
}

func TestLoadBarsUnsupportedFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.txt")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))
	_, err := LoadBars(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported bar format")
}
