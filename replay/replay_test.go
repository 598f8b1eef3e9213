package replay

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/simcore/engine"
	"github.com/rustyeddy/simcore/manifest"
	"github.com/rustyeddy/simcore/market"
)

type scripted struct {
	name    string
	signals []engine.Signal
}

func (s *scripted) Name() string { return s.name }

func (s *scripted) OnBar(_ market.Bar, index int, _ engine.PositionView) engine.Signal {
	if index < len(s.signals) {
		return s.signals[index]
	}
	return engine.Hold
}

func testBars() []market.Bar {
	prices := []string{"100", "100.1", "99.9", "100.3", "100.2", "100.6"}
	bars := make([]market.Bar, len(prices))
	for i, p := range prices {
		c := decimal.RequireFromString(p)
		bars[i] = market.Bar{
			T: 1700000000000 + int64(i)*86400000,
			O: c, H: c, L: c, C: c,
			V: decimal.NewFromInt(50),
		}
	}
	return bars
}

func newStrat() engine.Strategy {
	return &scripted{name: "scripted", signals: []engine.Signal{
		engine.Buy, engine.Hold, engine.Sell, engine.Buy, engine.Hold, engine.Sell,
	}}
}

func rewriteManifest(t *testing.T, path string, m *manifest.Manifest) {
	t.Helper()
	data, err := json.MarshalIndent(m, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestReplayReproducesRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bars := testBars()
	res, err := engine.Run(bars, newStrat(), engine.Options{
		FeeBps:      1,
		SlippageBps: 2,
		Seed:        17,
		ManifestDir: dir,
	})
	require.NoError(t, err)

	out, err := Run(manifest.Path(dir, res.RunID), bars, newStrat(), Options{})
	require.NoError(t, err)

	assert.True(t, out.OK)
	assert.Empty(t, out.Diffs)
	assert.Empty(t, out.Warnings)
	require.NotNil(t, out.Result)
	assert.True(t, out.Result.Metrics.EquityFinal.Equal(res.Metrics.EquityFinal))

	// replay must not emit a journal
	assert.Empty(t, out.Result.JournalChecksum)
}

func TestReplayChecksumGate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bars := testBars()
	res, err := engine.Run(bars, newStrat(), engine.Options{Seed: 17, ManifestDir: dir})
	require.NoError(t, err)

	tampered := make([]market.Bar, len(bars))
	copy(tampered, bars)
	tampered[3].C = decimal.RequireFromString("100.31")

	out, err := Run(manifest.Path(dir, res.RunID), tampered, newStrat(), Options{})
	require.NoError(t, err)

	assert.False(t, out.OK)
	require.NotEmpty(t, out.Warnings)
	assert.Contains(t, out.Warnings[0], "checksum mismatch")
	// the gate fires before any simulation
	assert.Nil(t, out.Result)

	_, err = Run(manifest.Path(dir, res.RunID), tampered, newStrat(), Options{Strict: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestReplayStrategyMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bars := testBars()
	res, err := engine.Run(bars, newStrat(), engine.Options{Seed: 17, ManifestDir: dir})
	require.NoError(t, err)

	other := &scripted{name: "other"}

	out, err := Run(manifest.Path(dir, res.RunID), bars, other, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, out.Warnings)
	assert.Contains(t, out.Warnings[0], "strategy mismatch")

	_, err = Run(manifest.Path(dir, res.RunID), bars, other, Options{Strict: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy mismatch")
}

func TestReplayBrokenSeal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bars := testBars()
	res, err := engine.Run(bars, newStrat(), engine.Options{Seed: 17, ManifestDir: dir})
	require.NoError(t, err)

	path := manifest.Path(dir, res.RunID)
	m, err := manifest.Load(path)
	require.NoError(t, err)
	m.DigitalSeal = "0000"
	rewriteManifest(t, path, m)

	out, err := Run(path, bars, newStrat(), Options{})
	require.NoError(t, err)
	require.NotEmpty(t, out.Warnings)
	assert.Contains(t, out.Warnings[0], "invalid seal")

	_, err = Run(path, bars, newStrat(), Options{Strict: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid seal")
}

func TestReplayMetricDivergence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bars := testBars()
	res, err := engine.Run(bars, newStrat(), engine.Options{Seed: 17, ManifestDir: dir})
	require.NoError(t, err)

	path := manifest.Path(dir, res.RunID)
	m, err := manifest.Load(path)
	require.NoError(t, err)
	metrics, ok := m.Metrics.(map[string]any)
	require.True(t, ok)
	metrics["sharpe"] = 123.456
	rewriteManifest(t, path, m)

	out, err := Run(path, bars, newStrat(), Options{})
	require.NoError(t, err)
	assert.False(t, out.OK)
	require.Len(t, out.Diffs, 1)
	assert.Equal(t, "sharpe", out.Diffs[0].Metric)
	assert.Equal(t, 123.456, out.Diffs[0].Want)
	// editing metrics also broke the seal
	assert.NotEmpty(t, out.Warnings)

	_, err = Run(path, bars, newStrat(), Options{Strict: true})
	assert.Error(t, err)
}

func TestReplayMissingManifest(t *testing.T) {
	t.Parallel()

	_, err := Run(manifest.Path(t.TempDir(), "nope"), testBars(), newStrat(), Options{})
	assert.Error(t, err)
}
