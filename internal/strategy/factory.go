package strategy

import (
	"fmt"
	"sort"
	"strings"
)

var registry = map[string]func() Strategy{
	"ema_cross_atr":  func() Strategy { return &EmaCrossAtr{} },
	"supertrend_rsi": func() Strategy { return &SuperTrendRsi{} },
}

// New returns a fresh strategy instance for the given identifier.
func New(strategyID string) (Strategy, error) {
	ctor, ok := registry[strategyID]
	if !ok {
		available := make([]string, 0, len(registry))
		for id := range registry {
			available = append(available, id)
		}
		sort.Strings(available)
		return nil, fmt.Errorf("unknown strategy %q, available: %s", strategyID, strings.Join(available, ", "))
	}
	return ctor(), nil
}

// List maps every registered strategy id to its display name.
func List() map[string]string {
	out := make(map[string]string, len(registry))
	for id, ctor := range registry {
		out[id] = ctor().DisplayName()
	}
	return out
}
