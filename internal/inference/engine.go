// Package inference runs LLM-backed logical analyses of ideas: full chain,
// causal, constraint satisfaction, contradiction hunting, or implications.
// The batch form analyzes N ideas in one provider call.
package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ideaforge/internal/cache"
	"ideaforge/internal/config"
	"ideaforge/internal/logging"
	"ideaforge/internal/perception"
)

// Result is the tagged outcome of one analysis. Type selects which of the
// variant fields are meaningful; the common fields are always present.
type Result struct {
	Type           config.AnalysisType `json:"type"`
	InferenceChain []string            `json:"inference_chain"`
	Conclusion     string              `json:"conclusion"`
	Confidence     float64             `json:"confidence"` // clamped to [0,1]

	// Causal variant.
	CausalChain   []string `json:"causal_chain,omitempty"`
	FeedbackLoops []string `json:"feedback_loops,omitempty"`
	RootCause     string   `json:"root_cause,omitempty"`

	// Constraints variant.
	ConstraintSatisfaction map[string]float64 `json:"constraint_satisfaction,omitempty"` // each in [0,1]
	TradeOffs              []string           `json:"trade_offs,omitempty"`

	// Contradiction variant.
	Contradictions []string `json:"contradictions,omitempty"`

	// Implications variant.
	Implications       []string `json:"implications,omitempty"`
	SecondOrderEffects []string `json:"second_order_effects,omitempty"`

	// Hint the improvement phase may use.
	Improvements string `json:"improvements,omitempty"`
}

// Engine runs analyses against one provider. A nil cache disables caching.
type Engine struct {
	provider perception.Provider
	cache    cache.Cache
	agentTTL time.Duration
}

// NewEngine builds a logical inference engine.
func NewEngine(provider perception.Provider, c cache.Cache, agentTTL time.Duration) *Engine {
	return &Engine{provider: provider, cache: c, agentTTL: agentTTL}
}

// Analyze runs one analysis for a single idea.
func (e *Engine) Analyze(ctx context.Context, idea, topic, workflowContext string, typ config.AnalysisType, temp float64) (*Result, int, error) {
	results, tokens, err := e.AnalyzeBatch(ctx, []string{idea}, topic, workflowContext, typ, temp)
	if err != nil {
		return nil, tokens, err
	}
	return results[0], tokens, nil
}

// AnalyzeBatch analyzes all ideas in a single provider call. The returned
// slice is aligned 1:1 with ideas; unparseable items are nil.
func (e *Engine) AnalyzeBatch(ctx context.Context, ideas []string, topic, workflowContext string, typ config.AnalysisType, temp float64) ([]*Result, int, error) {
	if len(ideas) == 0 {
		return nil, 0, nil
	}
	if typ == "" {
		typ = config.AnalysisFull
	}

	req := perception.Request{
		Prompt:      analysisPrompt(ideas, topic, workflowContext, typ),
		Temperature: temp,
	}

	var text string
	var tokens int
	if e.cache != nil {
		if cached, hit := e.cache.GetAgent(ctx, "inference", req.Prompt); hit {
			text = cached
		}
	}
	if text == "" {
		resp, err := e.provider.Generate(ctx, req)
		if err != nil {
			return nil, 0, fmt.Errorf("inference batch: %w", err)
		}
		text, tokens = resp.Text, resp.Tokens
		if e.cache != nil {
			e.cache.PutAgent(ctx, "inference", req.Prompt, text, e.agentTTL)
		}
	}

	results := parseBatch(text, len(ideas), typ)
	parsed := 0
	for _, r := range results {
		if r != nil {
			parsed++
		}
	}
	logging.Inference("%s analysis: %d/%d ideas parsed", typ, parsed, len(ideas))
	return results, tokens, nil
}

func analysisPrompt(ideas []string, topic, workflowContext string, typ config.AnalysisType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a logical analyst. Perform a %s analysis of each idea below for the topic %q.\n", typ, topic)
	if workflowContext != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", workflowContext)
	}
	b.WriteString("\nIdeas:\n")
	for i, idea := range ideas {
		fmt.Fprintf(&b, "%d. %s\n", i+1, idea)
	}

	fmt.Fprintf(&b, "\nReturn a JSON array of exactly %d objects, in the same order. Each object has: \"inference_chain\" (array of reasoning steps), \"conclusion\" (string), \"confidence\" (number 0-1), \"improvements\" (string)", len(ideas))
	switch typ {
	case config.AnalysisCausal:
		b.WriteString(`, "causal_chain" (array), "feedback_loops" (array), "root_cause" (string)`)
	case config.AnalysisConstraints:
		b.WriteString(`, "constraint_satisfaction" (object mapping constraint to number 0-1), "trade_offs" (array)`)
	case config.AnalysisContradiction:
		b.WriteString(`, "contradictions" (array)`)
	case config.AnalysisImplications:
		b.WriteString(`, "implications" (array), "second_order_effects" (array)`)
	}
	b.WriteString(".\n")
	b.WriteString("If you cannot produce JSON, write one section per idea separated by a line containing only \"---\", using labeled sections INFERENCE_CHAIN, CONCLUSION, CONFIDENCE, IMPROVEMENTS.\n")
	b.WriteString("Respond in the same language as the input.")
	return b.String()
}
