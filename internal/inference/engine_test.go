package inference

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/cache"
	"ideaforge/internal/config"
	"ideaforge/internal/perception"
)

type stubProvider struct {
	text  string
	err   error
	calls int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Generate(ctx context.Context, req perception.Request) (perception.Response, error) {
	p.calls++
	if p.err != nil {
		return perception.Response{}, p.err
	}
	return perception.Response{Text: p.text, Tokens: 7}, nil
}

func TestAnalyzeBatch_JSON(t *testing.T) {
	t.Parallel()

	p := &stubProvider{text: `[
		{"inference_chain": ["premise", "step"], "conclusion": "holds", "confidence": 0.85, "improvements": "narrow scope"},
		{"inference_chain": ["other"], "conclusion": "fragile", "confidence": 1.7}
	]`}
	e := NewEngine(p, nil, 0)

	results, tokens, err := e.AnalyzeBatch(context.Background(), []string{"a", "b"}, "topic", "ctx", config.AnalysisFull, 0.3)
	require.NoError(t, err)
	assert.Equal(t, 7, tokens)
	require.Len(t, results, 2)

	require.NotNil(t, results[0])
	assert.Equal(t, config.AnalysisFull, results[0].Type)
	assert.Equal(t, []string{"premise", "step"}, results[0].InferenceChain)
	assert.Equal(t, "holds", results[0].Conclusion)
	assert.Equal(t, 0.85, results[0].Confidence)
	assert.Equal(t, "narrow scope", results[0].Improvements)

	require.NotNil(t, results[1])
	assert.Equal(t, 1.0, results[1].Confidence, "confidence clamped to [0,1]")
}

func TestAnalyzeBatch_CausalVariant(t *testing.T) {
	t.Parallel()

	p := &stubProvider{text: `[{
		"inference_chain": ["x"], "conclusion": "c", "confidence": 0.5,
		"causal_chain": ["seed", "growth"], "feedback_loops": ["adoption loop"], "root_cause": "scarcity"
	}]`}
	e := NewEngine(p, nil, 0)

	results, _, err := e.AnalyzeBatch(context.Background(), []string{"a"}, "t", "", config.AnalysisCausal, 0.3)
	require.NoError(t, err)
	r := results[0]
	require.NotNil(t, r)
	assert.Equal(t, []string{"seed", "growth"}, r.CausalChain)
	assert.Equal(t, []string{"adoption loop"}, r.FeedbackLoops)
	assert.Equal(t, "scarcity", r.RootCause)
}

func TestAnalyzeBatch_ConstraintsVariant(t *testing.T) {
	t.Parallel()

	p := &stubProvider{text: `[{
		"inference_chain": ["x"], "conclusion": "c", "confidence": 0.5,
		"constraint_satisfaction": {"budget": 0.9, "time": 1.4},
		"trade_offs": ["speed vs cost"]
	}]`}
	e := NewEngine(p, nil, 0)

	results, _, err := e.AnalyzeBatch(context.Background(), []string{"a"}, "t", "", config.AnalysisConstraints, 0.3)
	require.NoError(t, err)
	r := results[0]
	require.NotNil(t, r)
	assert.Equal(t, 0.9, r.ConstraintSatisfaction["budget"])
	assert.Equal(t, 1.0, r.ConstraintSatisfaction["time"], "satisfaction clamped to [0,1]")
	assert.Equal(t, []string{"speed vs cost"}, r.TradeOffs)
}

func TestAnalyzeBatch_PlainTextFallback(t *testing.T) {
	t.Parallel()

	p := &stubProvider{text: `INFERENCE_CHAIN:
1. rooftops are underused
2. beds are cheap
CONCLUSION: viable at small scale
CONFIDENCE: 0.7
IMPROVEMENTS: start with one pilot roof
---
INFERENCE_CHAIN:
- demand unproven
CONCLUSION: needs validation
CONFIDENCE: 0.4
`}
	e := NewEngine(p, nil, 0)

	results, _, err := e.AnalyzeBatch(context.Background(), []string{"a", "b"}, "t", "", config.AnalysisFull, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.NotNil(t, results[0])
	assert.Equal(t, []string{"rooftops are underused", "beds are cheap"}, results[0].InferenceChain)
	assert.Equal(t, "viable at small scale", results[0].Conclusion)
	assert.Equal(t, 0.7, results[0].Confidence)
	assert.Equal(t, "start with one pilot roof", results[0].Improvements)

	require.NotNil(t, results[1])
	assert.Equal(t, []string{"demand unproven"}, results[1].InferenceChain)
	assert.Equal(t, 0.4, results[1].Confidence)
}

func TestAnalyzeBatch_UnparseableItemsNil(t *testing.T) {
	t.Parallel()

	p := &stubProvider{text: "nothing structured here"}
	e := NewEngine(p, nil, 0)

	results, _, err := e.AnalyzeBatch(context.Background(), []string{"a", "b"}, "t", "", config.AnalysisFull, 0.3)
	require.NoError(t, err)
	assert.Nil(t, results[0])
	assert.Nil(t, results[1])
}

func TestAnalyzeBatch_ProviderError(t *testing.T) {
	t.Parallel()

	p := &stubProvider{err: errors.New("down")}
	e := NewEngine(p, nil, 0)
	_, _, err := e.AnalyzeBatch(context.Background(), []string{"a"}, "t", "", config.AnalysisFull, 0.3)
	assert.Error(t, err)
}

func TestAnalyzeBatch_UsesCache(t *testing.T) {
	t.Parallel()

	mem := cache.NewMemory(0)
	defer mem.Close()

	p := &stubProvider{text: `[{"inference_chain":["x"],"conclusion":"c","confidence":0.5}]`}
	e := NewEngine(p, mem, time.Minute)

	_, _, err := e.AnalyzeBatch(context.Background(), []string{"a"}, "t", "", config.AnalysisFull, 0.3)
	require.NoError(t, err)
	_, _, err = e.AnalyzeBatch(context.Background(), []string{"a"}, "t", "", config.AnalysisFull, 0.3)
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestAnalyze_Single(t *testing.T) {
	t.Parallel()

	p := &stubProvider{text: `[{"inference_chain":["x"],"conclusion":"c","confidence":0.5}]`}
	e := NewEngine(p, nil, 0)

	r, _, err := e.Analyze(context.Background(), "idea", "t", "", config.AnalysisImplications, 0.3)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, config.AnalysisImplications, r.Type)
}
