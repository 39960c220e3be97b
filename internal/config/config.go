// Package config loads engine and service configuration from a YAML/JSON file,
// a .env file and OTL_-prefixed environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/entry"
	"opening-trade-lab/internal/metrics"
	"opening-trade-lab/internal/strategy"
)

// EnvPrefix prefixes every environment override, e.g. OTL_GATE_CHECKPOINT_MINUTE.
const EnvPrefix = "OTL"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full application configuration.
type Config struct {
	Session   SessionConfig        `mapstructure:"session" json:"session"`
	Gate      GateConfig           `mapstructure:"gate" json:"gate"`
	Primary   domain.Scenario      `mapstructure:"primary_scenario" json:"primary_scenario" validate:"required"`
	Scenarios []domain.Scenario    `mapstructure:"scenarios" json:"scenarios" validate:"required,min=1,dive"`
	Rounding  domain.PriceRounding `mapstructure:"rounding" json:"rounding"`
	Scalp     ScalpConfig          `mapstructure:"scalp" json:"scalp"`
	Swing     strategy.SwingConfig `mapstructure:"swing" json:"swing"`
	Equity    EquityConfig         `mapstructure:"equity" json:"equity"`
	Runner    RunnerConfig         `mapstructure:"runner" json:"-"`
	Storage   StorageConfig        `mapstructure:"storage" json:"-"`
	HTTP      HTTPConfig           `mapstructure:"http" json:"-"`
	Log       LogConfig            `mapstructure:"log" json:"-"`
}

// SessionConfig describes the trading session.
type SessionConfig struct {
	Open    string `mapstructure:"open" json:"open" validate:"required"`
	Minutes int    `mapstructure:"minutes" json:"minutes" validate:"gt=0"`
}

// GateConfig holds entry gate options.
type GateConfig struct {
	CheckpointMinute int     `mapstructure:"checkpoint_minute" json:"checkpoint_minute" validate:"gte=1"`
	VolumeThreshold  float64 `mapstructure:"volume_threshold" json:"volume_threshold" validate:"gte=0"`
}

// ScalpConfig holds scalp phase boundaries and targets.
type ScalpConfig struct {
	ObserveEndMinute int     `mapstructure:"observe_end_minute" json:"observe_end_minute" validate:"gt=0"`
	EntryStartMinute int     `mapstructure:"entry_start_minute" json:"entry_start_minute" validate:"gte=0"`
	EntryEndMinute   int     `mapstructure:"entry_end_minute" json:"entry_end_minute" validate:"gtfield=EntryStartMinute"`
	DeadlineMinute   int     `mapstructure:"deadline_minute" json:"deadline_minute" validate:"gtefield=EntryEndMinute"`
	MinMomentumPct   float64 `mapstructure:"min_momentum_pct" json:"min_momentum_pct"`
	ProfitTargetPct  float64 `mapstructure:"profit_target_pct" json:"profit_target_pct" validate:"gt=0"`
	LossTargetPct    float64 `mapstructure:"loss_target_pct" json:"loss_target_pct" validate:"lt=0"`
}

// EquityConfig holds aggregator options.
type EquityConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital" json:"initial_capital" validate:"gt=0"`
	ReturnBasis    string  `mapstructure:"return_basis" json:"return_basis" validate:"oneof=close target"`
	IncludeVirtual bool    `mapstructure:"include_virtual" json:"include_virtual"`
}

// RunnerConfig holds execution options.
type RunnerConfig struct {
	Parallelism int `mapstructure:"parallelism" validate:"gte=1,lte=256"`
}

// StorageConfig holds database DSNs. Empty DSNs select in-memory stores.
type StorageConfig struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`
}

// HTTPConfig holds server options.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

// setDefaults registers every key so env overrides apply during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("session.open", "09:00:00")
	v.SetDefault("session.minutes", 390)

	v.SetDefault("gate.checkpoint_minute", 5)
	v.SetDefault("gate.volume_threshold", 0.5)

	p := domain.DefaultPrimaryScenario
	v.SetDefault("primary_scenario.name", p.Name)
	v.SetDefault("primary_scenario.label", p.Label)
	v.SetDefault("primary_scenario.profit_target_pct", p.ProfitTargetPct)
	v.SetDefault("primary_scenario.loss_target_pct", p.LossTargetPct)
	v.SetDefault("primary_scenario.reward_risk", p.RewardRisk)
	v.SetDefault("scenarios", domain.DefaultComparisonScenarios())

	v.SetDefault("rounding.floor", domain.DefaultPriceRounding.Floor)
	v.SetDefault("rounding.decimals", domain.DefaultPriceRounding.Decimals)

	sc := strategy.DefaultScalpConfig()
	v.SetDefault("scalp.observe_end_minute", sc.ObserveEndMinute)
	v.SetDefault("scalp.entry_start_minute", sc.EntryStartMinute)
	v.SetDefault("scalp.entry_end_minute", sc.EntryEndMinute)
	v.SetDefault("scalp.deadline_minute", sc.DeadlineMinute)
	v.SetDefault("scalp.min_momentum_pct", sc.MinMomentumPct)
	v.SetDefault("scalp.profit_target_pct", sc.ProfitTargetPct)
	v.SetDefault("scalp.loss_target_pct", sc.LossTargetPct)

	sw := strategy.DefaultSwingConfig()
	v.SetDefault("swing.strong_profit_pct", sw.StrongProfitPct)
	v.SetDefault("swing.mild_profit_pct", sw.MildProfitPct)
	v.SetDefault("swing.mild_loss_pct", sw.MildLossPct)
	v.SetDefault("swing.stop_loss_pct", sw.StopLossPct)

	v.SetDefault("equity.initial_capital", 10_000_000.0)
	v.SetDefault("equity.return_basis", string(metrics.ReturnBasisClose))
	v.SetDefault("equity.include_virtual", false)

	v.SetDefault("runner.parallelism", 8)

	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Default returns the documented defaults without reading files or the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &cfg
}

// Load reads configuration from path (optional), .env and the environment,
// then validates it.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks struct constraints and cross-field engine rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := domain.ParseClock(c.Session.Open); err != nil {
		return fmt.Errorf("%w: session.open: %v", ErrInvalidConfig, err)
	}
	if err := c.Primary.Validate(); err != nil {
		return fmt.Errorf("%w: primary_scenario: %v", ErrInvalidConfig, err)
	}
	seen := make(map[string]struct{}, len(c.Scenarios))
	for _, s := range c.Scenarios {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: scenarios: %v", ErrInvalidConfig, err)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: duplicate scenario %q", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	if err := c.GateConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := strategy.FromConfig(c.ScalpConfig(), c.Swing); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SessionOpen returns the parsed session open. Call after Validate.
func (c *Config) SessionOpen() domain.Clock {
	open, _ := domain.ParseClock(c.Session.Open)
	return open
}

// GateConfig converts to the entry gate's config.
func (c *Config) GateConfig() entry.GateConfig {
	return entry.GateConfig{
		SessionOpen:      c.SessionOpen(),
		SessionMinutes:   c.Session.Minutes,
		CheckpointMinute: c.Gate.CheckpointMinute,
		VolumeThreshold:  c.Gate.VolumeThreshold,
	}
}

// ScalpConfig converts to the scalp variant's config.
func (c *Config) ScalpConfig() strategy.ScalpConfig {
	return strategy.ScalpConfig{
		SessionOpen:      c.SessionOpen(),
		ObserveEndMinute: c.Scalp.ObserveEndMinute,
		EntryStartMinute: c.Scalp.EntryStartMinute,
		EntryEndMinute:   c.Scalp.EntryEndMinute,
		DeadlineMinute:   c.Scalp.DeadlineMinute,
		MinMomentumPct:   c.Scalp.MinMomentumPct,
		ProfitTargetPct:  c.Scalp.ProfitTargetPct,
		LossTargetPct:    c.Scalp.LossTargetPct,
	}
}

// Selection converts to the equity selection.
func (c *Config) Selection() metrics.Selection {
	return metrics.Selection{
		Basis:          metrics.ReturnBasis(c.Equity.ReturnBasis),
		IncludeVirtual: c.Equity.IncludeVirtual,
	}
}

// Canonical returns the engine-relevant options as JSON, used as the run
// config hash input. Runner, storage, HTTP and log settings are excluded.
func (c *Config) Canonical() []byte {
	b, _ := json.Marshal(c)
	return b
}
