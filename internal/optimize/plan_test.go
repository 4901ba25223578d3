package optimize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eziosantori/cbot-farm/internal/model"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }
func bp(v bool) *bool       { return &v }

func intSpec(min, max, step float64) ParamSpec {
	return ParamSpec{Type: "int", Min: fp(min), Max: fp(max), Step: fp(step)}
}

func TestGridExpansionIntRange(t *testing.T) {
	space := &Space{Parameters: ParamList{
		{Name: "period", Spec: intSpec(5, 7, 1)},
	}}

	plan, err := BuildPlan(space)
	require.NoError(t, err)

	assert.Equal(t, SourceParameterSpace, plan.Source)
	assert.Equal(t, 3, plan.TotalCandidates)
	assert.Equal(t, 3, plan.RawTotalCandidates)
	assert.False(t, plan.Truncated)

	got := make([]float64, 0, 3)
	for _, c := range plan.Candidates {
		got = append(got, c["period"])
	}
	assert.Equal(t, []float64{5, 6, 7}, got)
}

func TestGridTruncationIsFirstN(t *testing.T) {
	space := &Space{
		MaxCombinations: ip(2),
		Parameters: ParamList{
			{Name: "a", Spec: intSpec(1, 3, 1)},
			{Name: "b", Spec: intSpec(1, 3, 1)},
		},
	}

	plan, err := BuildPlan(space)
	require.NoError(t, err)

	assert.Equal(t, 9, plan.RawTotalCandidates)
	assert.Equal(t, 2, plan.TotalCandidates)
	assert.True(t, plan.Truncated)

	// first-N in declaration order, last parameter varying fastest
	assert.Equal(t, model.Params{"a": 1, "b": 1}, plan.Candidates[0])
	assert.Equal(t, model.Params{"a": 1, "b": 2}, plan.Candidates[1])
}

func TestFloatStepsRoundToStepPrecision(t *testing.T) {
	space := &Space{Parameters: ParamList{
		{Name: "mult", Spec: ParamSpec{Type: "float", Min: fp(1.0), Max: fp(1.3), Step: fp(0.1)}},
	}}

	plan, err := BuildPlan(space)
	require.NoError(t, err)
	require.Equal(t, 4, plan.TotalCandidates)

	got := make([]float64, 0, 4)
	for _, c := range plan.Candidates {
		got = append(got, c["mult"])
	}
	assert.Equal(t, []float64{1.0, 1.1, 1.2, 1.3}, got)
}

func TestDisabledParameterContributesFixedValue(t *testing.T) {
	space := &Space{Parameters: ParamList{
		{Name: "fixed", Spec: ParamSpec{Enabled: bp(false), Type: "int", Value: fp(14)}},
		{Name: "ranged", Spec: intSpec(1, 2, 1)},
	}}

	plan, err := BuildPlan(space)
	require.NoError(t, err)
	assert.Equal(t, 2, plan.TotalCandidates)
	for _, c := range plan.Candidates {
		assert.Equal(t, 14.0, c["fixed"])
	}
}

func TestConfigurationErrorsAreFatal(t *testing.T) {
	cases := map[string]ParamSpec{
		"disabled without value": {Enabled: bp(false)},
		"missing min":            {Max: fp(5), Step: fp(1)},
		"missing max":            {Min: fp(1), Step: fp(1)},
		"missing step":           {Min: fp(1), Max: fp(5)},
		"non-positive step":      {Min: fp(1), Max: fp(5), Step: fp(0)},
		"min greater than max":   {Min: fp(9), Max: fp(5), Step: fp(1)},
	}

	for name, spec := range cases {
		space := &Space{Parameters: ParamList{{Name: "p", Spec: spec}}}
		_, err := BuildPlan(space)
		assert.Error(t, err, name)
	}
}

func TestMissingSpaceFallsBackToSampler(t *testing.T) {
	plan, err := BuildPlan(nil)
	require.NoError(t, err)
	assert.Equal(t, SourceStrategySample, plan.Source)
	assert.Empty(t, plan.Candidates)

	fallback := model.Params{"ema_fast": 21}
	params, meta := CandidateForIteration(1, plan, fallback)
	assert.Equal(t, fallback, params)
	assert.Equal(t, SourceStrategySample, meta.Source)
}

func TestShuffleIsSeededAndReproducible(t *testing.T) {
	build := func(seed int64) []model.Params {
		space := &Space{
			Shuffle: true,
			Seed:    &seed,
			Parameters: ParamList{
				{Name: "a", Spec: intSpec(1, 10, 1)},
			},
		}
		plan, err := BuildPlan(space)
		require.NoError(t, err)
		return plan.Candidates
	}

	first := build(7)
	second := build(7)
	assert.Equal(t, first, second, "identical seeds must reproduce the ordering")

	other := build(8)
	assert.NotEqual(t, first, other, "different seeds should differ on a 10-value range")
}

func TestRandomModeEqualsGridPlusShuffle(t *testing.T) {
	seed := int64(42)
	params := ParamList{{Name: "a", Spec: intSpec(1, 10, 1)}}

	random := &Space{SearchMode: "random", Seed: &seed, Parameters: params}
	shuffled := &Space{SearchMode: "grid", Shuffle: true, Seed: &seed, Parameters: params}

	p1, err := BuildPlan(random)
	require.NoError(t, err)
	p2, err := BuildPlan(shuffled)
	require.NoError(t, err)

	assert.Equal(t, p2.Candidates, p1.Candidates)
}

func TestCandidateForIterationWrapsAround(t *testing.T) {
	space := &Space{Parameters: ParamList{
		{Name: "a", Spec: intSpec(1, 3, 1)},
	}}
	plan, err := BuildPlan(space)
	require.NoError(t, err)

	first, meta := CandidateForIteration(1, plan, nil)
	assert.Equal(t, 0, *meta.CandidateIndex)

	wrapped, meta := CandidateForIteration(4, plan, nil)
	assert.Equal(t, 0, *meta.CandidateIndex)
	assert.Equal(t, first, wrapped)

	_, meta = CandidateForIteration(3, plan, nil)
	assert.Equal(t, 2, *meta.CandidateIndex)
}

func TestParamListPreservesDeclarationOrder(t *testing.T) {
	raw := []byte(`{
		"search_mode": "grid",
		"parameters": {
			"zeta": {"type": "int", "min": 1, "max": 2, "step": 1},
			"alpha": {"type": "int", "min": 1, "max": 2, "step": 1}
		}
	}`)

	var space Space
	require.NoError(t, json.Unmarshal(raw, &space))
	require.Len(t, space.Parameters, 2)
	assert.Equal(t, "zeta", space.Parameters[0].Name)
	assert.Equal(t, "alpha", space.Parameters[1].Name)

	// zeta declared first, so it is the slow axis of the product
	plan, err := BuildPlan(&space)
	require.NoError(t, err)
	assert.Equal(t, model.Params{"zeta": 1, "alpha": 1}, plan.Candidates[0])
	assert.Equal(t, model.Params{"zeta": 1, "alpha": 2}, plan.Candidates[1])
	assert.Equal(t, model.Params{"zeta": 2, "alpha": 1}, plan.Candidates[2])

	round, err := json.Marshal(space.Parameters)
	require.NoError(t, err)
	assert.True(t, string(round)[:8] == `{"zeta":`, "marshal must keep order, got %s", round)
}

func TestEvaluateGates(t *testing.T) {
	limits := GateLimits{MaxDrawdownPct: 20, MinSharpe: 1.0, MaxOOSDegradationPct: 30}

	gates := EvaluateGates(model.Metrics{
		TotalReturnPct: 12, Sharpe: 1.4, MaxDrawdownPct: 10, OOSDegradationPct: 25,
	}, limits)
	assert.True(t, gates.Promoted)

	gates = EvaluateGates(model.Metrics{
		TotalReturnPct: 12, Sharpe: 0.4, MaxDrawdownPct: 10, OOSDegradationPct: 25,
	}, limits)
	assert.True(t, gates.PassDrawdown)
	assert.False(t, gates.PassSharpe)
	assert.False(t, gates.Promoted)
}
