package domain

// FirstHit identifies which threshold was struck first.
type FirstHit string

// FirstHit constants
const (
	FirstHitProfit FirstHit = "profit"
	FirstHitLoss   FirstHit = "loss"
	FirstHitNone   FirstHit = "none"
)

// TargetPrices holds the scenario's absolute threshold prices.
type TargetPrices struct {
	Profit float64 `json:"profit"`
	Loss   float64 `json:"loss"`
}

// Outcome is the result of one (instrument, scenario) threshold scan.
type Outcome struct {
	ScenarioName    string       `json:"scenario_name"`
	EntryPrice      float64      `json:"entry_price"`
	EntryTime       Clock        `json:"entry_time"`
	TargetPrices    TargetPrices `json:"target_prices"`
	FirstHit        FirstHit     `json:"first_hit"`
	FirstHitTime    *Clock       `json:"first_hit_time"`  // nil when FirstHit is none
	FirstHitPrice   *float64     `json:"first_hit_price"` // target price of the first hit
	ProfitHitTime   *Clock       `json:"profit_hit_time"`
	LossHitTime     *Clock       `json:"loss_hit_time"`
	MaxFavorablePct float64      `json:"max_favorable_pct"` // >= 0
	MaxAdversePct   float64      `json:"max_adverse_pct"`   // <= 0
	ClosingPrice    float64      `json:"closing_price"`     // last candle close
	ClosingPct      float64      `json:"closing_pct"`
}

// RealizedPct returns the return realised when exiting at the first-hit target,
// or at the close when no target was hit.
func (o *Outcome) RealizedPct() float64 {
	if o.FirstHitPrice == nil || o.EntryPrice <= 0 {
		return o.ClosingPct
	}
	return PctChange(o.EntryPrice, *o.FirstHitPrice)
}

// Bucket routes an outcome into actual (traded) or virtual (hypothetical) results.
type Bucket string

// Bucket constants
const (
	BucketActual  Bucket = "actual"
	BucketVirtual Bucket = "virtual"
)

// RoutedOutcome is an Outcome tagged with its bucket.
// Exactly one bucket applies by construction.
type RoutedOutcome struct {
	Bucket  Bucket   `json:"bucket"`
	Outcome *Outcome `json:"outcome"`
}

// Actual tags an outcome as actually traded.
func Actual(o *Outcome) RoutedOutcome {
	return RoutedOutcome{Bucket: BucketActual, Outcome: o}
}

// Virtual tags an outcome as hypothetical.
func Virtual(o *Outcome) RoutedOutcome {
	return RoutedOutcome{Bucket: BucketVirtual, Outcome: o}
}

// IsActual reports whether the outcome was routed to the actual bucket.
func (r RoutedOutcome) IsActual() bool {
	return r.Bucket == BucketActual
}

// PctChange returns (x - base) / base * 100.
func PctChange(base, x float64) float64 {
	return (x - base) / base * 100
}
