// Package agents implements the batched agent operations of the pipeline.
// Each operation packages N items into exactly one provider call, requests
// a structured JSON array of length N, and maps results back to inputs by
// index, padding missing items with typed fallbacks.
package agents

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

// Fallback texts substituted when an agent result is missing for an item.
const (
	AdvocacyFallback   = "Advocacy unavailable for this idea."
	SkepticismFallback = "Skepticism unavailable for this idea."
	EvaluationMissing  = "Evaluation missing"
)

// GeneratedIdea is one structured idea from the generator.
type GeneratedIdea struct {
	Number      int      `json:"idea_number"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	KeyFeatures []string `json:"key_features"`
}

// Format renders the idea as a single display string.
func (g GeneratedIdea) Format() string {
	var b strings.Builder
	if g.Title != "" {
		b.WriteString(g.Title)
	}
	if g.Description != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(g.Description)
	}
	if len(g.KeyFeatures) > 0 {
		fmt.Fprintf(&b, " (key features: %s)", strings.Join(g.KeyFeatures, ", "))
	}
	return strings.TrimSpace(b.String())
}

// IdeaEvaluation pairs an idea with its critique for the advocate.
type IdeaEvaluation struct {
	Idea     string
	Critique string
}

// IdeaAdvocacy pairs an idea with its advocacy for the skeptic.
type IdeaAdvocacy struct {
	Idea     string
	Advocacy string
}

// ImprovementInput carries everything the refiner sees for one idea.
type ImprovementInput struct {
	Idea       string
	Critique   string
	Advocacy   string
	Skepticism string
}

// Improvement is the refiner's output for one idea.
type Improvement struct {
	ImprovedIdea    string   `json:"improved_idea"`
	KeyImprovements []string `json:"key_improvements,omitempty"`
}

// Ops executes batched agent calls against one provider. A nil cache
// disables response caching.
type Ops struct {
	provider perception.Provider
	cache    cache.Cache
	agentTTL time.Duration
}

// NewOps builds the batch operations. cache may be nil.
func NewOps(provider perception.Provider, c cache.Cache, agentTTL time.Duration) *Ops {
	return &Ops{provider: provider, cache: c, agentTTL: agentTTL}
}

// call performs the single provider call for a batch op, consulting the
// agent-level cache keyed on the exact prompt.
func (o *Ops) call(ctx context.Context, agent string, req perception.Request) (string, int, error) {
	if o.cache != nil {
		if text, hit := o.cache.GetAgent(ctx, agent, req.Prompt); hit {
			logging.Debug(logging.CategoryAgents, "%s: cache hit", agent)
			return text, 0, nil
		}
	}
	resp, err := o.provider.Generate(ctx, req)
	if err != nil {
		return "", 0, err
	}
	if o.cache != nil {
		o.cache.PutAgent(ctx, agent, req.Prompt, resp.Text, o.agentTTL)
	}
	return resp.Text, resp.Tokens, nil
}

// GenerateIdeas asks for n structured ideas in one call.
func (o *Ops) GenerateIdeas(ctx context.Context, topic, workflowContext string, n int, temp float64) ([]GeneratedIdea, int, error) {
	text, tokens, err := o.call(ctx, "generator", perception.Request{
		Prompt:      generatePrompt(topic, workflowContext, n),
		Temperature: temp,
		JSONSchema:  perception.ArraySchema("title", "description"),
	})
	if err != nil {
		return nil, tokens, fmt.Errorf("generate ideas: %w", err)
	}

	var ideas []GeneratedIdea
	for _, obj := range articulation.ParseObjects(text) {
		idea := GeneratedIdea{
			Title:       articulation.StringField(obj, "title"),
			Description: articulation.StringField(obj, "description", "idea", "text"),
			KeyFeatures: articulation.StringSliceField(obj, "key_features"),
		}
		if num, ok := articulation.FloatField(obj, "idea_number"); ok {
			idea.Number = int(num)
		}
		if idea.Format() != "" {
			ideas = append(ideas, idea)
		}
	}
	logging.Agents("generator: requested %d ideas, parsed %d", n, len(ideas))
	return ideas, tokens, nil
}

// EvaluateBatch scores all ideas in one call. The result is always aligned:
// exactly len(ideas) records, padded with zero-score EvaluationMissing
// records when the provider returned fewer than asked.
func (o *Ops) EvaluateBatch(ctx context.Context, ideas []string, topic, workflowContext string, temp float64) ([]articulation.Evaluation, int, error) {
	if len(ideas) == 0 {
		return nil, 0, nil
	}
	text, tokens, err := o.call(ctx, "critic", perception.Request{
		Prompt:      evaluatePrompt(ideas, topic, workflowContext),
		Temperature: temp,
		JSONSchema:  perception.ArraySchema("score", "comment"),
	})
	if err != nil {
		return nil, tokens, fmt.Errorf("evaluate batch: %w", err)
	}
	evals := articulation.ParseEvaluationsRaw(text)
	for len(evals) < len(ideas) {
		evals = append(evals, articulation.Evaluation{Score: 0, Comment: EvaluationMissing})
	}
	return evals[:len(ideas)], tokens, nil
}

// AdvocateBatch produces one advocacy text per (idea, critique) pair.
func (o *Ops) AdvocateBatch(ctx context.Context, pairs []IdeaEvaluation, topic, workflowContext string, temp float64) ([]string, int, error) {
	if len(pairs) == 0 {
		return nil, 0, nil
	}
	text, tokens, err := o.call(ctx, "advocate", perception.Request{
		Prompt:      advocatePrompt(pairs, topic, workflowContext),
		Temperature: temp,
		JSONSchema:  perception.ArraySchema("advocacy"),
	})
	if err != nil {
		return nil, tokens, fmt.Errorf("advocate batch: %w", err)
	}
	return alignTexts(text, len(pairs), AdvocacyFallback, "advocacy"), tokens, nil
}

// SkepticizeBatch produces one skepticism text per (idea, advocacy) pair.
func (o *Ops) SkepticizeBatch(ctx context.Context, pairs []IdeaAdvocacy, topic, workflowContext string, temp float64) ([]string, int, error) {
	if len(pairs) == 0 {
		return nil, 0, nil
	}
	text, tokens, err := o.call(ctx, "skeptic", perception.Request{
		Prompt:      skepticPrompt(pairs, topic, workflowContext),
		Temperature: temp,
		JSONSchema:  perception.ArraySchema("skepticism"),
	})
	if err != nil {
		return nil, tokens, fmt.Errorf("skepticize batch: %w", err)
	}
	return alignTexts(text, len(pairs), SkepticismFallback, "skepticism"), tokens, nil
}

// ImproveBatch reworks each idea given its critique, advocacy, and
// skepticism. Blank improvements fall back to the original idea text.
func (o *Ops) ImproveBatch(ctx context.Context, items []ImprovementInput, workflowContext string, temp float64) ([]Improvement, int, error) {
	if len(items) == 0 {
		return nil, 0, nil
	}
	text, tokens, err := o.call(ctx, "improver", perception.Request{
		Prompt:      improvePrompt(items, workflowContext),
		Temperature: temp,
		JSONSchema:  perception.ArraySchema("improved_idea"),
	})
	if err != nil {
		return nil, tokens, fmt.Errorf("improve batch: %w", err)
	}

	objs := articulation.ParseObjects(text)
	out := make([]Improvement, len(items))
	for i := range items {
		imp := Improvement{}
		if i < len(objs) {
			imp.ImprovedIdea = articulation.StringField(objs[i], "improved_idea", "idea", "text")
			imp.KeyImprovements = articulation.StringSliceField(objs[i], "key_improvements")
		}
		if imp.ImprovedIdea == "" {
			imp.ImprovedIdea = items[i].Idea
		}
		out[i] = imp
	}
	return out, tokens, nil
}

// alignTexts maps parsed objects to exactly n strings, reading the given
// key (with generic fallbacks) and padding with fallback text.
func alignTexts(text string, n int, fallback string, keys ...string) []string {
	objs := articulation.ParseObjects(text)
	keys = append(keys, "formatted", "response", "text")
	out := make([]string, n)
	for i := 0; i < n; i++ {
		if i < len(objs) {
			if s := articulation.StringField(objs[i], keys...); s != "" {
				out[i] = s
				continue
			}
		}
		out[i] = fallback
	}
	return out
}
