package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/metrics"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, domain.NewClock(9, 0, 0), cfg.SessionOpen())
	assert.Equal(t, 390, cfg.Session.Minutes)
	assert.Equal(t, 5, cfg.Gate.CheckpointMinute)
	assert.Equal(t, 0.5, cfg.Gate.VolumeThreshold)
	assert.Equal(t, domain.ScenarioStandard, cfg.Primary.Name)
	assert.Len(t, cfg.Scenarios, 4)
	assert.True(t, cfg.Rounding.Floor)
	assert.Equal(t, 10_000_000.0, cfg.Equity.InitialCapital)
	assert.Equal(t, metrics.ReturnBasisClose, cfg.Selection().Basis)
	assert.False(t, cfg.Selection().IncludeVirtual)
	assert.Equal(t, 3.0, cfg.Swing.StrongProfitPct)
	assert.Equal(t, -3.0, cfg.Swing.StopLossPct)
	assert.Equal(t, 30, cfg.ScalpConfig().DeadlineMinute)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
gate:
  checkpoint_minute: 10
  volume_threshold: 0.8
equity:
  initial_capital: 5000000
  return_basis: target
scenarios:
  - name: tight
    profit_target_pct: 1
    loss_target_pct: -0.5
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.GateConfig().CheckpointMinute)
	assert.Equal(t, 0.8, cfg.GateConfig().VolumeThreshold)
	assert.Equal(t, 5_000_000.0, cfg.Equity.InitialCapital)
	assert.Equal(t, metrics.ReturnBasisTarget, cfg.Selection().Basis)
	require.Len(t, cfg.Scenarios, 1)
	assert.Equal(t, "tight", cfg.Scenarios[0].Name)
	assert.Equal(t, -0.5, cfg.Scenarios[0].LossTargetPct)
	// untouched keys keep defaults
	assert.Equal(t, 390, cfg.Session.Minutes)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("OTL_GATE_CHECKPOINT_MINUTE", "7")
	t.Setenv("OTL_RUNNER_PARALLELISM", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Gate.CheckpointMinute)
	assert.Equal(t, 2, cfg.Runner.Parallelism)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero checkpoint", func(c *Config) { c.Gate.CheckpointMinute = 0 }},
		{"checkpoint past session", func(c *Config) { c.Gate.CheckpointMinute = 400 }},
		{"bad open", func(c *Config) { c.Session.Open = "25:00" }},
		{"non-positive capital", func(c *Config) { c.Equity.InitialCapital = 0 }},
		{"unknown basis", func(c *Config) { c.Equity.ReturnBasis = "mid" }},
		{"positive loss target", func(c *Config) { c.Primary.LossTargetPct = 1 }},
		{"duplicate scenario", func(c *Config) { c.Scenarios = append(c.Scenarios, c.Scenarios[0]) }},
		{"no scenarios", func(c *Config) { c.Scenarios = nil }},
		{"swing order", func(c *Config) { c.Swing.MildProfitPct = 5 }},
		{"scalp entry window", func(c *Config) { c.Scalp.EntryEndMinute = c.Scalp.EntryStartMinute }},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestCanonical_ExcludesRuntimeSettings(t *testing.T) {
	a := Default()
	b := Default()
	b.Runner.Parallelism = 1
	b.Log.Level = "debug"
	b.Storage.PostgresDSN = "postgres://x"
	assert.Equal(t, a.Canonical(), b.Canonical())

	b.Gate.VolumeThreshold = 0.9
	assert.NotEqual(t, a.Canonical(), b.Canonical())
}
