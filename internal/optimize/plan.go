// Package optimize expands declarative parameter spaces into ordered
// candidate lists and evaluates run metrics against risk gates.
package optimize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/eziosantori/cbot-farm/internal/model"
)

const (
	defaultMaxCombinations = 5000
	defaultSeed            = 42

	SourceParameterSpace = "parameter_space"
	SourceStrategySample = "strategy_sample"
)

// ParamSpec describes one tunable parameter. An enabled parameter needs
// min/max/step; a disabled one contributes exactly its fixed value.
type ParamSpec struct {
	Enabled *bool    `json:"enabled,omitempty"`
	Type    string   `json:"type,omitempty"` // "int" or "float"
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    *float64 `json:"step,omitempty"`
	Value   *float64 `json:"value,omitempty"`
}

func (s ParamSpec) enabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// NamedSpec pairs a parameter name with its spec, keeping declaration order.
type NamedSpec struct {
	Name string
	Spec ParamSpec
}

// ParamList preserves the JSON declaration order of the parameters object;
// candidate enumeration depends on it.
type ParamList []NamedSpec

func (p *ParamList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("parameters must be a JSON object")
	}

	out := ParamList{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("invalid parameter name token")
		}
		var spec ParamSpec
		if err := dec.Decode(&spec); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		out = append(out, NamedSpec{Name: name, Spec: spec})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

func (p ParamList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ns := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ns.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(ns.Spec)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Space is the per-strategy parameter-space configuration.
type Space struct {
	SearchMode      string    `json:"search_mode,omitempty"`
	MaxCombinations *int      `json:"max_combinations,omitempty"`
	Shuffle         bool      `json:"shuffle,omitempty"`
	Seed            *int64    `json:"seed,omitempty"`
	Parameters      ParamList `json:"parameters"`
}

func (s *Space) searchMode() string {
	if s.SearchMode == "" {
		return "grid"
	}
	return s.SearchMode
}

func (s *Space) maxCombinations() int {
	if s.MaxCombinations == nil || *s.MaxCombinations <= 0 {
		return defaultMaxCombinations
	}
	return *s.MaxCombinations
}

func (s *Space) seed() int64 {
	if s.Seed == nil {
		return defaultSeed
	}
	return *s.Seed
}

// ParamSummary describes one parameter's contribution to the plan.
type ParamSummary struct {
	Enabled bool     `json:"enabled"`
	Type    string   `json:"type"`
	Count   int      `json:"count"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Step    *float64 `json:"step"`
	Value   *float64 `json:"value"`
}

// Plan is an expanded parameter space: the ordered candidate list plus the
// bookkeeping a driver and the reports need.
type Plan struct {
	Source             string                  `json:"source"`
	Reason             string                  `json:"reason,omitempty"`
	SearchMode         string                  `json:"search_mode,omitempty"`
	Space              map[string]ParamSummary `json:"space"`
	TotalCandidates    int                     `json:"total_candidates"`
	RawTotalCandidates int                     `json:"raw_total_candidates"`
	Truncated          bool                    `json:"truncated"`
	Candidates         []model.Params          `json:"candidates,omitempty"`
}

func fallbackPlan(reason string) *Plan {
	return &Plan{
		Source: SourceStrategySample,
		Reason: reason,
		Space:  map[string]ParamSummary{},
	}
}

// decimalPlaces derives the rounding precision from the step so generated
// values do not accumulate floating drift.
func decimalPlaces(step float64) int {
	text := strings.TrimRight(fmt.Sprintf("%.12f", step), "0")
	dot := strings.IndexByte(text, '.')
	if dot < 0 {
		return 0
	}
	return len(text) - dot - 1
}

func roundTo(v float64, decimals int) float64 {
	shift := math.Pow(10, float64(decimals))
	return math.Round(v*shift) / shift
}

func frange(min, max, step float64) []float64 {
	decimals := decimalPlaces(step)
	epsilon := step / 1000.0
	var values []float64
	for current := min; current <= max+epsilon; current += step {
		values = append(values, roundTo(current, decimals))
	}
	return values
}

func castValue(v float64, valueType string) float64 {
	if valueType == "int" {
		return math.Round(v)
	}
	return v
}

func valuesFromSpec(name string, spec ParamSpec) ([]float64, error) {
	valueType := spec.Type
	if valueType == "" {
		valueType = "float"
	}

	if !spec.enabled() {
		if spec.Value == nil {
			return nil, fmt.Errorf("parameter %q is disabled but has no fixed value", name)
		}
		return []float64{castValue(*spec.Value, valueType)}, nil
	}

	if spec.Min == nil {
		return nil, fmt.Errorf("parameter %q missing min", name)
	}
	if spec.Max == nil {
		return nil, fmt.Errorf("parameter %q missing max", name)
	}
	if spec.Step == nil {
		return nil, fmt.Errorf("parameter %q missing step", name)
	}
	if *spec.Step <= 0 {
		return nil, fmt.Errorf("parameter %q has non-positive step", name)
	}
	if *spec.Min > *spec.Max {
		return nil, fmt.Errorf("parameter %q has min > max", name)
	}

	raw := frange(*spec.Min, *spec.Max, *spec.Step)
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = castValue(v, valueType)
	}
	return out, nil
}

// BuildPlan expands a parameter space into candidates. A nil or empty space
// yields a fallback plan that routes the driver to the strategy sampler;
// malformed specs are configuration errors and abort plan building.
func BuildPlan(space *Space) (*Plan, error) {
	if space == nil {
		return fallbackPlan("no parameter_space config for strategy"), nil
	}
	if len(space.Parameters) == 0 {
		return fallbackPlan("empty parameter_space.parameters"), nil
	}

	names := make([]string, 0, len(space.Parameters))
	valuesByParam := make([][]float64, 0, len(space.Parameters))
	summary := make(map[string]ParamSummary, len(space.Parameters))

	for _, ns := range space.Parameters {
		vals, err := valuesFromSpec(ns.Name, ns.Spec)
		if err != nil {
			return nil, err
		}
		names = append(names, ns.Name)
		valuesByParam = append(valuesByParam, vals)

		valueType := ns.Spec.Type
		if valueType == "" {
			valueType = "float"
		}
		summary[ns.Name] = ParamSummary{
			Enabled: ns.Spec.enabled(),
			Type:    valueType,
			Count:   len(vals),
			Min:     ns.Spec.Min,
			Max:     ns.Spec.Max,
			Step:    ns.Spec.Step,
			Value:   ns.Spec.Value,
		}
	}

	rawTotal := 1
	for _, vals := range valuesByParam {
		rawTotal *= len(vals)
	}

	maxCombinations := space.maxCombinations()
	candidates := enumerate(names, valuesByParam, maxCombinations)

	// Truncation is first-N, not sampling: the shuffle below only reorders
	// what survived the cut.
	if space.Shuffle || space.searchMode() == "random" {
		rnd := rand.New(rand.NewSource(space.seed()))
		rnd.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
	}

	// search_mode "random" behaves as grid+shuffle with sequential draws by
	// iteration; true with-replacement sampling was never implemented.

	return &Plan{
		Source:             SourceParameterSpace,
		Reason:             "configured",
		SearchMode:         space.searchMode(),
		Space:              summary,
		TotalCandidates:    len(candidates),
		RawTotalCandidates: rawTotal,
		Truncated:          rawTotal > len(candidates),
		Candidates:         candidates,
	}, nil
}

// enumerate walks the Cartesian product in declaration order, last parameter
// varying fastest, stopping at limit.
func enumerate(names []string, valuesByParam [][]float64, limit int) []model.Params {
	var candidates []model.Params
	indices := make([]int, len(valuesByParam))

	for {
		candidate := make(model.Params, len(names))
		for pos, name := range names {
			candidate[name] = valuesByParam[pos][indices[pos]]
		}
		candidates = append(candidates, candidate)
		if len(candidates) >= limit {
			return candidates
		}

		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(valuesByParam[pos]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			return candidates
		}
	}
}

// CandidateForIteration maps a 1-based iteration onto the candidate list with
// wraparound, or falls back to the strategy-sampled params when the plan has
// no candidates.
func CandidateForIteration(iteration int, plan *Plan, fallback model.Params) (model.Params, model.OptimizationMeta) {
	if plan == nil || plan.Source != SourceParameterSpace || len(plan.Candidates) == 0 {
		reason := "fallback"
		if plan != nil && plan.Reason != "" {
			reason = plan.Reason
		}
		return fallback, model.OptimizationMeta{
			Source:          SourceStrategySample,
			Reason:          reason,
			TotalCandidates: 1,
			SearchMode:      "sample",
		}
	}

	idx := (iteration - 1) % len(plan.Candidates)
	if idx < 0 {
		idx += len(plan.Candidates)
	}
	return plan.Candidates[idx], model.OptimizationMeta{
		Source:             SourceParameterSpace,
		CandidateIndex:     &idx,
		TotalCandidates:    len(plan.Candidates),
		SearchMode:         plan.SearchMode,
		Truncated:          plan.Truncated,
		RawTotalCandidates: plan.RawTotalCandidates,
	}
}
