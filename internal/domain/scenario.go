package domain

import "fmt"

// Scenario is one (profit target %, loss target %) exit configuration.
// Immutable; many scenarios may be evaluated against the same series.
type Scenario struct {
	Name            string  `json:"name" mapstructure:"name" validate:"required"`
	Label           string  `json:"label" mapstructure:"label"`
	ProfitTargetPct float64 `json:"profit_target_pct" mapstructure:"profit_target_pct" validate:"gt=0"`
	LossTargetPct   float64 `json:"loss_target_pct" mapstructure:"loss_target_pct" validate:"lt=0"`
	RewardRisk      float64 `json:"reward_risk" mapstructure:"reward_risk"` // informational only
}

// Validate checks target signs.
func (s Scenario) Validate() error {
	if s.ProfitTargetPct <= 0 || s.LossTargetPct >= 0 {
		return fmt.Errorf("%w: %s (+%.2f%%/%.2f%%)", ErrInvalidScenario, s.Name, s.ProfitTargetPct, s.LossTargetPct)
	}
	return nil
}

// Scenario name constants
const (
	ScenarioConservative = "conservative"
	ScenarioStandard     = "standard"
	ScenarioAggressive   = "aggressive"
	ScenarioWide         = "wide"
)

// Predefined scenarios.
var (
	ScenarioConfigConservative = Scenario{
		Name:            ScenarioConservative,
		Label:           "+2% / -1%",
		ProfitTargetPct: 2.0,
		LossTargetPct:   -1.0,
		RewardRisk:      2.0,
	}

	ScenarioConfigStandard = Scenario{
		Name:            ScenarioStandard,
		Label:           "+3% / -2%",
		ProfitTargetPct: 3.0,
		LossTargetPct:   -2.0,
		RewardRisk:      1.5,
	}

	ScenarioConfigAggressive = Scenario{
		Name:            ScenarioAggressive,
		Label:           "+5% / -3%",
		ProfitTargetPct: 5.0,
		LossTargetPct:   -3.0,
		RewardRisk:      5.0 / 3.0,
	}

	ScenarioConfigWide = Scenario{
		Name:            ScenarioWide,
		Label:           "+7% / -4%",
		ProfitTargetPct: 7.0,
		LossTargetPct:   -4.0,
		RewardRisk:      1.75,
	}
)

// DefaultPrimaryScenario is the scenario whose outcome is routed into the
// actual/virtual buckets.
var DefaultPrimaryScenario = ScenarioConfigStandard

// DefaultComparisonScenarios returns the multi-scenario comparison set.
func DefaultComparisonScenarios() []Scenario {
	return []Scenario{
		ScenarioConfigConservative,
		ScenarioConfigStandard,
		ScenarioConfigAggressive,
		ScenarioConfigWide,
	}
}

// PriceRounding controls how target prices are snapped to tick granularity.
type PriceRounding struct {
	Floor    bool  `json:"floor" mapstructure:"floor"`
	Decimals int32 `json:"decimals" mapstructure:"decimals" validate:"gte=0,lte=8"`
}

// DefaultPriceRounding floors targets to whole price units.
var DefaultPriceRounding = PriceRounding{Floor: true, Decimals: 0}
