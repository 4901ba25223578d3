package model

// Bar is one OHLC price interval. Timestamps are unix seconds and assumed
// non-decreasing; the loader does not validate ordering.
type Bar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
}

// Params is one concrete assignment of strategy parameters. Integer-typed
// parameters are stored as integral float64 values.
type Params map[string]float64

// Int reads a parameter as an integer, falling back to def when absent.
func (p Params) Int(name string, def int) int {
	if v, ok := p[name]; ok {
		return int(v)
	}
	return def
}

// Float reads a parameter, falling back to def when absent.
func (p Params) Float(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// Clone returns an independent copy so normalization never mutates the
// candidate produced by the planner.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
