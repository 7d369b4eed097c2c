// Package evaluation scores ideas across seven fixed dimensions with a
// single batched provider call, then aggregates weighted score, overall
// mean, and a confidence interval per idea.
package evaluation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ideaforge/internal/articulation"
	"ideaforge/internal/cache"
	"ideaforge/internal/logging"
	"ideaforge/internal/perception"
)

// Dimensions, in canonical order.
var Dimensions = []string{
	"feasibility",
	"innovation",
	"impact",
	"cost_effectiveness",
	"scalability",
	"risk_assessment",
	"timeline",
}

// Weights sum to 1.0 and never change at runtime.
var Weights = map[string]float64{
	"feasibility":        0.20,
	"innovation":         0.15,
	"impact":             0.20,
	"cost_effectiveness": 0.15,
	"scalability":        0.10,
	"risk_assessment":    0.10,
	"timeline":           0.10,
}

// Score is the multi-dimensional evaluation of one idea.
type Score struct {
	Dimensions         map[string]float64 `json:"dimensions"` // each in [1,10]
	Overall            float64            `json:"overall"`    // plain mean
	Weighted           float64            `json:"weighted"`   // Σ score_i · w_i
	ConfidenceInterval float64            `json:"confidence_interval"` // max(0, 1 − variance/25)
	Summary            string             `json:"summary"`
}

// Evaluator runs batched multi-dimensional scoring. A nil cache disables
// response caching.
type Evaluator struct {
	provider perception.Provider
	cache    cache.Cache
	agentTTL time.Duration
}

// NewEvaluator builds a multi-dimensional evaluator.
func NewEvaluator(provider perception.Provider, c cache.Cache, agentTTL time.Duration) *Evaluator {
	return &Evaluator{provider: provider, cache: c, agentTTL: agentTTL}
}

func (e *Evaluator) call(ctx context.Context, agent string, req perception.Request) (string, int, error) {
	if e.cache != nil {
		if text, hit := e.cache.GetAgent(ctx, agent, req.Prompt); hit {
			return text, 0, nil
		}
	}
	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		return "", 0, err
	}
	if e.cache != nil {
		e.cache.PutAgent(ctx, agent, req.Prompt, resp.Text, e.agentTTL)
	}
	return resp.Text, resp.Tokens, nil
}

// EvaluateBatch scores all ideas in one provider call plus one summary
// call. The returned slice is aligned 1:1 with ideas; entries whose
// response missed a dimension are nil.
func (e *Evaluator) EvaluateBatch(ctx context.Context, ideas []string, topic, workflowContext string, temp float64) ([]*Score, int, error) {
	if len(ideas) == 0 {
		return nil, 0, nil
	}

	text, tokens, err := e.call(ctx, "multidim", perception.Request{
		Prompt:      scoringPrompt(ideas, topic, workflowContext),
		Temperature: temp,
		JSONSchema:  scoringSchema(),
	})
	if err != nil {
		return nil, tokens, fmt.Errorf("multi-dimensional batch: %w", err)
	}

	objs := articulation.ParseObjects(text)
	scores := make([]*Score, len(ideas))
	for i := range ideas {
		if i >= len(objs) {
			break
		}
		if s, ok := scoreFromObject(objs[i]); ok {
			scores[i] = s
		} else {
			logging.Warn(logging.CategoryEvaluation, "idea %d: response missing dimensions, rejected", i)
		}
	}

	sumTokens, err := e.fillSummaries(ctx, ideas, scores, temp)
	tokens += sumTokens
	if err != nil {
		logging.Warn(logging.CategoryEvaluation, "summary call failed, using computed summaries: %v", err)
	}
	return scores, tokens, nil
}

// fillSummaries issues the single additional provider call that writes a
// short natural-language synopsis per scored idea.
func (e *Evaluator) fillSummaries(ctx context.Context, ideas []string, scores []*Score, temp float64) (int, error) {
	var scored []int
	for i, s := range scores {
		if s != nil {
			scored = append(scored, i)
		}
	}
	if len(scored) == 0 {
		return 0, nil
	}

	text, tokens, err := e.call(ctx, "multidim-summary", perception.Request{
		Prompt:      summaryPrompt(ideas, scores, scored),
		Temperature: temp,
		JSONSchema:  perception.ArraySchema("summary"),
	})
	if err == nil {
		objs := articulation.ParseObjects(text)
		for j, idx := range scored {
			if j < len(objs) {
				scores[idx].Summary = articulation.StringField(objs[j], "summary")
			}
		}
	}
	for _, idx := range scored {
		if scores[idx].Summary == "" {
			scores[idx].Summary = fmt.Sprintf("Weighted score %.1f/10 across %d dimensions.", scores[idx].Weighted, len(Dimensions))
		}
	}
	return tokens, err
}

// scoreFromObject validates one parsed record. Every dimension must be
// present; values are clamped to [1,10]. Aggregates are recomputed locally,
// never trusted from the model.
func scoreFromObject(obj map[string]interface{}) (*Score, bool) {
	dims := make(map[string]float64, len(Dimensions))
	for _, d := range Dimensions {
		v, ok := articulation.FloatField(obj, d)
		if !ok {
			return nil, false
		}
		dims[d] = clampDim(v)
	}
	return Aggregate(dims), true
}

// Aggregate computes the derived fields from a complete dimension map.
func Aggregate(dims map[string]float64) *Score {
	var sum, weighted float64
	for _, d := range Dimensions {
		sum += dims[d]
		weighted += dims[d] * Weights[d]
	}
	n := float64(len(Dimensions))
	mean := sum / n

	var variance float64
	for _, d := range Dimensions {
		diff := dims[d] - mean
		variance += diff * diff
	}
	variance /= n

	ci := 1 - variance/25
	if ci < 0 {
		ci = 0
	}
	return &Score{
		Dimensions:         dims,
		Overall:            mean,
		Weighted:           weighted,
		ConfidenceInterval: ci,
	}
}

func clampDim(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

func scoringSchema() *perception.Schema {
	props := make(map[string]*perception.Schema, len(Dimensions))
	for _, d := range Dimensions {
		props[d] = &perception.Schema{Type: "number"}
	}
	return &perception.Schema{
		Type:  "array",
		Items: &perception.Schema{Type: "object", Properties: props, Required: append([]string(nil), Dimensions...)},
	}
}

func scoringPrompt(ideas []string, topic, workflowContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an analyst. Score each idea below for the topic %q on seven dimensions, each 1-10: %s.\n", topic, strings.Join(Dimensions, ", "))
	if workflowContext != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", workflowContext)
	}
	b.WriteString("\nIdeas:\n")
	for i, idea := range ideas {
		fmt.Fprintf(&b, "%d. %s\n", i+1, idea)
	}
	fmt.Fprintf(&b, "\nReturn a JSON array of exactly %d objects, in the same order, each with all seven dimension keys and numeric values.\n", len(ideas))
	b.WriteString("Respond in the same language as the input.")
	return b.String()
}

func summaryPrompt(ideas []string, scores []*Score, scored []int) string {
	var b strings.Builder
	b.WriteString("Write a one- to two-sentence synopsis of each scored idea below, reflecting its strengths and weaknesses.\n\n")
	for _, idx := range scored {
		fmt.Fprintf(&b, "Idea: %s\nScores: ", ideas[idx])
		for _, d := range Dimensions {
			fmt.Fprintf(&b, "%s=%.0f ", d, scores[idx].Dimensions[d])
		}
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Return a JSON array of exactly %d objects, in the same order, each with: \"summary\".\n", len(scored))
	b.WriteString("Respond in the same language as the input.")
	return b.String()
}
