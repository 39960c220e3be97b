package domain

// EntryDecision is the entry gate's verdict for one instrument on one day.
// Created once, never mutated.
type EntryDecision struct {
	EntryPrice       float64 `json:"entry_price"`       // price at the checkpoint candle
	EntryTime        Clock   `json:"entry_time"`        // checkpoint candle time
	EarlyVolume      int64   `json:"early_volume"`      // volume before the checkpoint minute
	ExpectedVolume   float64 `json:"expected_volume"`   // baseline pro-rated to the checkpoint, 0 if unknown
	VolumeRatio      float64 `json:"volume_ratio"`      // early / expected, 0 if unknown
	VolumeSufficient bool    `json:"volume_sufficient"` // ratio >= threshold, or baseline unknown
	GapOK            bool    `json:"gap_ok"`            // always true in this engine
	ShouldBuy        bool    `json:"should_buy"`        // volume_sufficient && gap_ok
	SkipReason       *string `json:"skip_reason"`       // set iff ShouldBuy is false
}

// SkipReasonNoData is the skip reason for an empty candle series.
const SkipReasonNoData = "no data"
