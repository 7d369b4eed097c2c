package agents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/cache"
	"ideaforge/internal/perception"
)

// scriptedProvider returns canned responses in call order and records the
// requests it saw.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []perception.Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(ctx context.Context, req perception.Request) (perception.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return perception.Response{}, p.err
	}
	idx := len(p.requests) - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return perception.Response{Text: p.responses[idx], Tokens: 10}, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *scriptedProvider) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1].Prompt
}

func TestGenerateIdeas_ParsesStructuredArray(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []string{`[
		{"idea_number": 1, "title": "Rooftop beds", "description": "Raised beds on flat roofs.", "key_features": ["low cost", "modular"]},
		{"idea_number": 2, "title": "Window hydroponics", "description": "Vertical units in windows."}
	]`}}
	ops := NewOps(p, nil, 0)

	ideas, tokens, err := ops.GenerateIdeas(context.Background(), "urban farming", "low budget", 2, 0.9)
	require.NoError(t, err)
	assert.Equal(t, 10, tokens)
	require.Len(t, ideas, 2)
	assert.Equal(t, "Rooftop beds: Raised beds on flat roofs. (key features: low cost, modular)", ideas[0].Format())
	assert.Equal(t, "Window hydroponics: Vertical units in windows.", ideas[1].Format())

	prompt := p.lastPrompt()
	assert.Contains(t, prompt, "urban farming")
	assert.Contains(t, prompt, "low budget")
	assert.Contains(t, prompt, "exactly 2")
}

func TestGenerateIdeas_ProviderError(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{err: errors.New("boom")}
	ops := NewOps(p, nil, 0)
	_, _, err := ops.GenerateIdeas(context.Background(), "t", "", 5, 0.9)
	assert.Error(t, err)
}

func TestEvaluateBatch_AlignsAndPads(t *testing.T) {
	t.Parallel()

	// Two evaluations for three ideas: the third gets a placeholder.
	p := &scriptedProvider{responses: []string{`[{"score":8,"comment":"solid"},{"score":5,"comment":"risky"}]`}}
	ops := NewOps(p, nil, 0)

	evals, _, err := ops.EvaluateBatch(context.Background(), []string{"a", "b", "c"}, "topic", "", 0.3)
	require.NoError(t, err)
	require.Len(t, evals, 3)
	assert.Equal(t, 8.0, evals[0].Score)
	assert.Equal(t, 5.0, evals[1].Score)
	assert.Equal(t, 0.0, evals[2].Score)
}

func TestEvaluateBatch_EmptyInput(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []string{"unused"}}
	ops := NewOps(p, nil, 0)
	evals, _, err := ops.EvaluateBatch(context.Background(), nil, "t", "", 0.3)
	require.NoError(t, err)
	assert.Empty(t, evals)
	assert.Equal(t, 0, p.calls(), "no provider call for an empty batch")
}

func TestAdvocateBatch_FallbackForMissingItems(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []string{`[{"advocacy":"strong case"}]`}}
	ops := NewOps(p, nil, 0)

	out, _, err := ops.AdvocateBatch(context.Background(), []IdeaEvaluation{
		{Idea: "a", Critique: "c1"},
		{Idea: "b", Critique: "c2"},
	}, "topic", "", 0.7)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "strong case", out[0])
	assert.Equal(t, AdvocacyFallback, out[1])

	assert.Contains(t, p.lastPrompt(), "Critique: c2")
}

func TestSkepticizeBatch_ReceivesAdvocacyText(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []string{`[{"skepticism":"weak assumptions"}]`}}
	ops := NewOps(p, nil, 0)

	out, _, err := ops.SkepticizeBatch(context.Background(), []IdeaAdvocacy{
		{Idea: "a", Advocacy: "the advocate praised it"},
	}, "topic", "ctx", 0.7)
	require.NoError(t, err)
	assert.Equal(t, []string{"weak assumptions"}, out)
	assert.Contains(t, p.lastPrompt(), "the advocate praised it")
}

func TestImproveBatch_BlankFallsBackToOriginal(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []string{`[
		{"improved_idea": "a but better", "key_improvements": ["cheaper"]},
		{"improved_idea": "   "}
	]`}}
	ops := NewOps(p, nil, 0)

	out, _, err := ops.ImproveBatch(context.Background(), []ImprovementInput{
		{Idea: "a", Critique: "c", Advocacy: "adv", Skepticism: "sk"},
		{Idea: "b original", Critique: "c", Advocacy: "adv", Skepticism: "sk"},
	}, "ctx", 0.9)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a but better", out[0].ImprovedIdea)
	assert.Equal(t, []string{"cheaper"}, out[0].KeyImprovements)
	assert.Equal(t, "b original", out[1].ImprovedIdea)
}

func TestOps_AgentCache(t *testing.T) {
	t.Parallel()

	mem := cache.NewMemory(0)
	defer mem.Close()

	p := &scriptedProvider{responses: []string{`[{"score":7,"comment":"good"}]`}}
	ops := NewOps(p, mem, time.Minute)

	ideas := []string{"one idea"}
	first, _, err := ops.EvaluateBatch(context.Background(), ideas, "t", "c", 0.3)
	require.NoError(t, err)
	second, _, err := ops.EvaluateBatch(context.Background(), ideas, "t", "c", 0.3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.calls(), "second call must be served from cache")
}

func TestGeneratedIdea_FormatEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", GeneratedIdea{}.Format())
	assert.Equal(t, "Only title", GeneratedIdea{Title: "Only title"}.Format())
}
