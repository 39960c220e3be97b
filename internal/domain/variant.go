package domain

// Direction is the opening-momentum direction observed by the scalp variant.
type Direction string

// Direction constants
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// ScalpExit is the way a scalp position was closed.
type ScalpExit string

// ScalpExit constants
const (
	ScalpExitProfit  ScalpExit = "profit"
	ScalpExitLoss    ScalpExit = "loss"
	ScalpExitTimeout ScalpExit = "timeout"
)

// ScalpState is the terminal state of the scalp state machine.
type ScalpState string

// ScalpState constants
const (
	ScalpStateNotEntered    ScalpState = "not_entered"
	ScalpStateExitedProfit  ScalpState = "exited_profit"
	ScalpStateExitedLoss    ScalpState = "exited_loss"
	ScalpStateExitedTimeout ScalpState = "exited_timeout"
)

// ScalpResult is the outcome of the short-horizon momentum variant.
type ScalpResult struct {
	Direction   Direction  `json:"direction"`
	MomentumPct float64    `json:"momentum_pct"`
	ShouldEnter bool       `json:"should_enter"`
	State       ScalpState `json:"state"`
	EntryPrice  *float64   `json:"entry_price"`
	EntryTime   *Clock     `json:"entry_time"`
	ExitResult  *ScalpExit `json:"exit_result"`
	ExitPct     *float64   `json:"exit_pct"`
	ExitTime    *Clock     `json:"exit_time"`
}

// SwingSignal is the end-of-day action signal, ordered from best to worst.
type SwingSignal string

// SwingSignal constants
const (
	SwingStrongBuy SwingSignal = "strong_buy"
	SwingHold      SwingSignal = "hold"
	SwingWatch     SwingSignal = "watch"
	SwingWarning   SwingSignal = "warning"
	SwingSell      SwingSignal = "sell"
)

// SwingSignals lists signals in ordinal order.
var SwingSignals = []SwingSignal{SwingStrongBuy, SwingHold, SwingWatch, SwingWarning, SwingSell}

// SwingResult is the end-of-close classification of an instrument.
type SwingResult struct {
	ClosingPct float64     `json:"closing_pct"`
	DayHighPct float64     `json:"day_high_pct"`
	DayLowPct  float64     `json:"day_low_pct"`
	Signal     SwingSignal `json:"signal"`
}
