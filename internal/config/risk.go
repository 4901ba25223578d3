package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/eziosantori/cbot-farm/internal/optimize"
)

// MarketCosts holds per-side trading costs in basis points. Pointers
// distinguish "configured as zero" from "not configured".
type MarketCosts struct {
	FeeBpsPerSide      *float64 `json:"fee_bps_per_side,omitempty"`
	SlippageBpsPerSide *float64 `json:"slippage_bps_per_side,omitempty"`
}

func (m MarketCosts) Empty() bool {
	return m.FeeBpsPerSide == nil && m.SlippageBpsPerSide == nil
}

// ExecutionConfig is the nested cost mapping: a default profile plus
// per-market overrides.
type ExecutionConfig struct {
	Default     MarketCosts            `json:"default"`
	MarketCosts map[string]MarketCosts `json:"market_costs"`
}

type RiskLimits struct {
	StrategyMaxDrawdownPct float64 `json:"strategy_max_drawdown_pct"`
}

type OptimizationConfig struct {
	MinSharpe            float64                    `json:"min_sharpe"`
	MaxOOSDegradationPct float64                    `json:"max_oos_degradation_pct"`
	MaxRetries           int                        `json:"max_retries"`
	ParameterSpace       map[string]*optimize.Space `json:"parameter_space"`
}

// RiskConfig is the risk.json document: promotion limits, optimization
// settings with per-strategy parameter spaces, and execution costs.
type RiskConfig struct {
	RiskLimits   RiskLimits         `json:"risk_limits"`
	Optimization OptimizationConfig `json:"optimization"`
	Execution    *ExecutionConfig   `json:"execution,omitempty"`

	mu sync.RWMutex
}

// SpaceFor returns the parameter space for a strategy, or nil when none is
// configured (the planner then falls back to the strategy sampler).
func (r *RiskConfig) SpaceFor(strategyID string) *optimize.Space {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Optimization.ParameterSpace == nil {
		return nil
	}
	return r.Optimization.ParameterSpace[strategyID]
}

// SetSpace replaces a strategy's parameter space at runtime.
func (r *RiskConfig) SetSpace(strategyID string, space *optimize.Space) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Optimization.ParameterSpace == nil {
		r.Optimization.ParameterSpace = make(map[string]*optimize.Space)
	}
	r.Optimization.ParameterSpace[strategyID] = space
}

// SpaceIDs lists the strategies with a configured parameter space.
func (r *RiskConfig) SpaceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.Optimization.ParameterSpace))
	for id := range r.Optimization.ParameterSpace {
		ids = append(ids, id)
	}
	return ids
}

// Save writes the config back to disk so runtime space edits survive restarts.
func (r *RiskConfig) Save(path string) error {
	r.mu.RLock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode risk config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write risk config: %w", err)
	}
	return nil
}

func (r *RiskConfig) GateLimits() optimize.GateLimits {
	return optimize.GateLimits{
		MaxDrawdownPct:       r.RiskLimits.StrategyMaxDrawdownPct,
		MinSharpe:            r.Optimization.MinSharpe,
		MaxOOSDegradationPct: r.Optimization.MaxOOSDegradationPct,
	}
}

func LoadRiskConfig(path string) (*RiskConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read risk config: %w", err)
	}
	var cfg RiskConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse risk config: %w", err)
	}
	return &cfg, nil
}

// UniverseConfig is the universe.json document: the tradable markets and
// where ingested datasets live.
type UniverseConfig struct {
	Markets map[string][]string `json:"markets"`
	Source  struct {
		Provider string `json:"provider"`
	} `json:"source"`
	Ingestion struct {
		OutputDir string `json:"output_dir"`
	} `json:"ingestion"`
}

func LoadUniverseConfig(path string) (*UniverseConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe config: %w", err)
	}
	var cfg UniverseConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse universe config: %w", err)
	}
	return &cfg, nil
}
