package model

const (
	SideLong  = "long"
	SideShort = "short"
)

const (
	ExitStopLoss   = "stop_loss"
	ExitTakeProfit = "take_profit"
	ExitSignalFlip = "signal_flip"
)

// Trade is emitted on every position close and is immutable afterwards.
// Percentages are trade-level: gross ignores costs, net subtracts the entry
// and exit cost units.
type Trade struct {
	EntryTimestamp int64   `json:"entry_timestamp"`
	ExitTimestamp  int64   `json:"exit_timestamp"`
	Side           string  `json:"side"`
	EntryPrice     float64 `json:"entry_price"`
	ExitPrice      float64 `json:"exit_price"`
	StopPrice      float64 `json:"stop_price"`
	TakePrice      float64 `json:"take_price"`
	GrossReturnPct float64 `json:"gross_return_pct"`
	NetReturnPct   float64 `json:"net_return_pct"`
	ExitReason     string  `json:"exit_reason"`
}
