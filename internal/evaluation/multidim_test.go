package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/perception"
)

type scriptedProvider struct {
	mu        sync.Mutex
	responses map[string]string // substring of prompt -> response
	err       error
	calls     int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(ctx context.Context, req perception.Request) (perception.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return perception.Response{}, p.err
	}
	for marker, resp := range p.responses {
		if strings.Contains(req.Prompt, marker) {
			return perception.Response{Text: resp, Tokens: 5}, nil
		}
	}
	return perception.Response{}, errors.New("no scripted response")
}

func fullDims(base float64) map[string]float64 {
	dims := make(map[string]float64, len(Dimensions))
	for i, d := range Dimensions {
		dims[d] = base + float64(i)*0.5
	}
	return dims
}

func dimsJSON(items ...map[string]float64) string {
	b, _ := json.Marshal(items)
	return string(b)
}

func TestWeights_SumToOne(t *testing.T) {
	t.Parallel()

	var sum float64
	for _, d := range Dimensions {
		w, ok := Weights[d]
		require.True(t, ok, "missing weight for %s", d)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestAggregate_WeightedAndOverall(t *testing.T) {
	t.Parallel()

	dims := map[string]float64{
		"feasibility": 8, "innovation": 6, "impact": 9, "cost_effectiveness": 7,
		"scalability": 5, "risk_assessment": 6, "timeline": 7,
	}
	s := Aggregate(dims)

	var wantWeighted float64
	var wantSum float64
	for _, d := range Dimensions {
		wantWeighted += dims[d] * Weights[d]
		wantSum += dims[d]
	}
	assert.Less(t, math.Abs(s.Weighted-wantWeighted), 1e-9)
	assert.InDelta(t, wantSum/7, s.Overall, 1e-12)
	assert.GreaterOrEqual(t, s.ConfidenceInterval, 0.0)
	assert.LessOrEqual(t, s.ConfidenceInterval, 1.0)
}

func TestAggregate_ConfidenceInterval(t *testing.T) {
	t.Parallel()

	// Identical scores: zero variance, CI = 1.
	uniform := map[string]float64{}
	for _, d := range Dimensions {
		uniform[d] = 7
	}
	assert.Equal(t, 1.0, Aggregate(uniform).ConfidenceInterval)

	// Extreme spread drives CI toward zero but never below.
	spread := map[string]float64{}
	for i, d := range Dimensions {
		if i%2 == 0 {
			spread[d] = 1
		} else {
			spread[d] = 10
		}
	}
	ci := Aggregate(spread).ConfidenceInterval
	assert.GreaterOrEqual(t, ci, 0.0)
	assert.Less(t, ci, 0.5)
}

func TestEvaluateBatch_HappyPath(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: map[string]string{
		"seven dimensions": dimsJSON(fullDims(5), fullDims(6)),
		"synopsis":         `[{"summary":"First synopsis."},{"summary":"Second synopsis."}]`,
	}}
	e := NewEvaluator(p, nil, 0)

	scores, tokens, err := e.EvaluateBatch(context.Background(), []string{"idea a", "idea b"}, "topic", "ctx", 0.3)
	require.NoError(t, err)
	assert.Equal(t, 10, tokens)
	require.Len(t, scores, 2)
	require.NotNil(t, scores[0])
	require.NotNil(t, scores[1])
	assert.Equal(t, "First synopsis.", scores[0].Summary)
	assert.Equal(t, "Second synopsis.", scores[1].Summary)
	assert.Equal(t, 2, p.calls, "one scoring call plus one summary call")
}

func TestEvaluateBatch_RejectsMissingDimension(t *testing.T) {
	t.Parallel()

	incomplete := fullDims(5)
	delete(incomplete, "timeline")

	p := &scriptedProvider{responses: map[string]string{
		"seven dimensions": dimsJSON(fullDims(4), incomplete),
		"synopsis":         `[{"summary":"ok"}]`,
	}}
	e := NewEvaluator(p, nil, 0)

	scores, _, err := e.EvaluateBatch(context.Background(), []string{"a", "b"}, "t", "", 0.3)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.NotNil(t, scores[0])
	assert.Nil(t, scores[1], "record missing a dimension must be rejected")
}

func TestEvaluateBatch_SummaryFailureFallsBack(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: map[string]string{
		"seven dimensions": dimsJSON(fullDims(5)),
		// No synopsis response scripted: summary call errors.
	}}
	e := NewEvaluator(p, nil, 0)

	scores, _, err := e.EvaluateBatch(context.Background(), []string{"a"}, "t", "", 0.3)
	require.NoError(t, err, "summary failure must not fail the batch")
	require.NotNil(t, scores[0])
	assert.Contains(t, scores[0].Summary, "Weighted score")
}

func TestEvaluateBatch_ClampsOutOfRangeDims(t *testing.T) {
	t.Parallel()

	dims := fullDims(5)
	dims["impact"] = 40
	dims["timeline"] = -2

	p := &scriptedProvider{responses: map[string]string{
		"seven dimensions": dimsJSON(dims),
		"synopsis":         `[{"summary":"s"}]`,
	}}
	e := NewEvaluator(p, nil, 0)

	scores, _, err := e.EvaluateBatch(context.Background(), []string{"a"}, "t", "", 0.3)
	require.NoError(t, err)
	require.NotNil(t, scores[0])
	assert.Equal(t, 10.0, scores[0].Dimensions["impact"])
	assert.Equal(t, 1.0, scores[0].Dimensions["timeline"])
}

func TestEvaluateBatch_EmptyInput(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{}
	e := NewEvaluator(p, nil, 0)
	scores, _, err := e.EvaluateBatch(context.Background(), nil, "t", "", 0.3)
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.Equal(t, 0, p.calls)
}
