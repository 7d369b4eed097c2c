// Package workflow drives the end-to-end refinement pipeline: generate,
// deduplicate, evaluate, select, argue, improve, re-evaluate, assemble.
// Stage-local failures degrade to typed fallbacks; only configuration
// errors, global deadline/cancel, and early-phase failures abort a Run.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"ideaforge/internal/agents"
	"ideaforge/internal/articulation"
	"ideaforge/internal/cache"
	"ideaforge/internal/config"
	"ideaforge/internal/evaluation"
	"ideaforge/internal/inference"
	"ideaforge/internal/logging"
	"ideaforge/internal/novelty"
	"ideaforge/internal/perception"
	"ideaforge/internal/progress"
)

// Fallback texts for recovered stage failures.
const (
	CriticFailedCritique   = "CriticAgent failed"
	ReEvalUnavailable      = "Re-evaluation unavailable"
	regressionNote         = " (note: the revised idea scored lower than the original)"
	meaningfulSimThreshold = 0.9
	meaningfulDeltaMin     = 0.3
	scoreRegressionMargin  = 1.0
)

// PhaseTimeouts bounds each pipeline phase independently of the global
// deadline. Zero values fall back to the defaults.
type PhaseTimeouts struct {
	Generate   time.Duration
	Evaluate   time.Duration
	Advocate   time.Duration
	Skeptic    time.Duration
	Improve    time.Duration
	ReEvaluate time.Duration
	MultiDim   time.Duration
	Inference  time.Duration
}

// DefaultPhaseTimeouts returns the production per-phase budgets.
func DefaultPhaseTimeouts() PhaseTimeouts {
	return PhaseTimeouts{
		Generate:   60 * time.Second,
		Evaluate:   30 * time.Second,
		Advocate:   30 * time.Second,
		Skeptic:    30 * time.Second,
		Improve:    45 * time.Second,
		ReEvaluate: 30 * time.Second,
		MultiDim:   30 * time.Second,
		Inference:  30 * time.Second,
	}
}

func (t *PhaseTimeouts) fillDefaults() {
	d := DefaultPhaseTimeouts()
	if t.Generate <= 0 {
		t.Generate = d.Generate
	}
	if t.Evaluate <= 0 {
		t.Evaluate = d.Evaluate
	}
	if t.Advocate <= 0 {
		t.Advocate = d.Advocate
	}
	if t.Skeptic <= 0 {
		t.Skeptic = d.Skeptic
	}
	if t.Improve <= 0 {
		t.Improve = d.Improve
	}
	if t.ReEvaluate <= 0 {
		t.ReEvaluate = d.ReEvaluate
	}
	if t.MultiDim <= 0 {
		t.MultiDim = d.MultiDim
	}
	if t.Inference <= 0 {
		t.Inference = d.Inference
	}
}

// Orchestrator runs the pipeline against one provider. Safe for concurrent
// Runs.
type Orchestrator struct {
	provider perception.Provider
	cache    cache.Cache
	sink     progress.Sink
	timeouts PhaseTimeouts
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache attaches a result and agent-response cache. Nil disables caching
// regardless of options.
func WithCache(c cache.Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithSink attaches a progress sink.
func WithSink(s progress.Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithPhaseTimeouts overrides the per-phase budgets. Zero fields keep their
// defaults.
func WithPhaseTimeouts(t PhaseTimeouts) Option {
	return func(o *Orchestrator) { o.timeouts = t }
}

// New builds an orchestrator around a provider.
func New(provider perception.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		sink:     progress.Noop{},
		timeouts: DefaultPhaseTimeouts(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sink == nil {
		o.sink = progress.Noop{}
	}
	o.timeouts.fillDefaults()
	return o
}

// gatedProvider bounds concurrent provider calls with a weighted semaphore.
type gatedProvider struct {
	inner perception.Provider
	sem   *semaphore.Weighted
}

func (g *gatedProvider) Name() string { return g.inner.Name() }

func (g *gatedProvider) Generate(ctx context.Context, req perception.Request) (perception.Response, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return perception.Response{}, err
	}
	defer g.sem.Release(1)
	return g.inner.Generate(ctx, req)
}

// emitter enforces monotonically non-decreasing progress fractions for one
// Run. An aborting Run reports fraction 0 on its final event.
type emitter struct {
	sink progress.Sink
	last float64
}

func (e *emitter) emit(message string, fraction float64) {
	if fraction < e.last {
		fraction = e.last
	}
	e.last = fraction
	e.sink.Emit(message, fraction)
}

func (e *emitter) fail(message string) {
	e.sink.Emit(message, 0)
}

// Run executes the full pipeline for one topic. The returned error, when
// non-nil, is always a *Error.
func (o *Orchestrator) Run(ctx context.Context, topic, workflowContext string, opts config.WorkflowOptions) (*Result, error) {
	start := time.Now()
	em := &emitter{sink: o.sink}

	if err := config.ValidateInput(topic, workflowContext); err != nil {
		return nil, newError(KindConfiguration, "input", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, newError(KindConfiguration, "options", err)
	}

	runID := uuid.NewString()
	logging.Workflow("run %s: topic %q, top %d", runID, topic, opts.NumTopCandidates)

	useCache := opts.CacheEnabled && o.cache != nil
	if useCache {
		if payload, hit := o.cache.GetWorkflow(ctx, topic, workflowContext, opts.CacheKey()); hit {
			var cached Result
			if err := json.Unmarshal(payload, &cached); err == nil {
				cached.CacheHit = true
				em.emit("cache hit: returning stored result", 1.0)
				logging.Workflow("run %s: workflow cache hit", runID)
				return &cached, nil
			}
			logging.Warn(logging.CategoryWorkflow, "run %s: cached payload unreadable, recomputing", runID)
		}
	}

	policy := policyFor(opts)
	gated := &gatedProvider{
		inner: o.provider,
		sem:   semaphore.NewWeighted(int64(opts.MaxConcurrentAgents)),
	}
	var agentCache cache.Cache
	if useCache {
		agentCache = o.cache
	}

	r := &run{
		id:       runID,
		topic:    topic,
		context:  workflowContext,
		opts:     opts,
		timeouts: o.timeouts,
		em:       em,
		policy:   policy,
		ops:      agents.NewOps(gated, agentCache, opts.AgentTTL),
		eval:     evaluation.NewEvaluator(gated, agentCache, opts.AgentTTL),
		engine:   inference.NewEngine(gated, agentCache, opts.AgentTTL),
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	res, err := r.execute(runCtx)
	if err != nil {
		var werr *Error
		if !errors.As(err, &werr) {
			werr = newError(classifyErr(err), "workflow", err)
		}
		em.fail(fmt.Sprintf("workflow aborted: %s", werr.Error()))
		logging.Error(logging.CategoryWorkflow, "run %s: %v", runID, werr)
		return nil, werr
	}

	res.RunID = runID
	res.Topic = topic
	res.Context = workflowContext
	res.TokensUsed = int(r.tokens.Load())
	res.Elapsed = time.Since(start)
	res.CreatedAt = time.Now().UTC()

	if useCache {
		if payload, merr := json.Marshal(res); merr == nil {
			o.cache.PutWorkflow(ctx, topic, workflowContext, opts.CacheKey(), payload, opts.WorkflowTTL)
		}
	}
	em.emit("workflow complete", 1.0)
	logging.Workflow("run %s: complete in %s, %d tokens", runID, res.Elapsed, res.TokensUsed)
	return res, nil
}

func policyFor(opts config.WorkflowOptions) *agents.TemperaturePolicy {
	if opts.TemperaturePreset != "" {
		if p, ok := agents.PresetPolicy(opts.TemperaturePreset); ok {
			return p
		}
	}
	return agents.BasePolicy(opts.BaseTemperature)
}

// run is the per-Run state threaded through the phases.
type run struct {
	id       string
	topic    string
	context  string
	opts     config.WorkflowOptions
	timeouts PhaseTimeouts
	em       *emitter
	policy   *agents.TemperaturePolicy
	ops      *agents.Ops
	eval     *evaluation.Evaluator
	engine   *inference.Engine

	tokens   atomic.Int64
	failures []FailureNote
}

func (r *run) withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	pctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(pctx)
}

// abortKind reports whether the run context itself is dead. Phase deadlines
// do not trip this; they are recovered per stage.
func abortKind(ctx context.Context) (ErrorKind, bool) {
	switch ctx.Err() {
	case context.Canceled:
		return KindCancellation, true
	case context.DeadlineExceeded:
		return KindTimeout, true
	}
	return "", false
}

func (r *run) note(stage string, err error) FailureNote {
	n := FailureNote{Stage: stage, Kind: classifyErr(err), Message: err.Error()}
	logging.Warn(logging.CategoryWorkflow, "run %s: %s degraded: %v", r.id, stage, err)
	return n
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	ideas, err := r.generate(ctx)
	if err != nil {
		return nil, err
	}

	ideas, err = r.dedupe(ideas)
	if err != nil {
		return nil, err
	}

	rows, err := r.evaluate(ctx, ideas)
	if err != nil {
		return nil, err
	}

	top := selectTopK(rows, r.opts.NumTopCandidates)
	r.em.emit(fmt.Sprintf("selected top %d candidates", len(top)), 0.45)

	advocacies, skepticisms, advNote, skepNote, err := r.reason(ctx, rows, top)
	if err != nil {
		return nil, err
	}

	improvements, improveNote, err := r.improve(ctx, top, advocacies, skepticisms)
	if err != nil {
		return nil, err
	}

	reEvals, improvedMD, reEvalNote, err := r.reEvaluate(ctx, improvements)
	if err != nil {
		return nil, err
	}

	r.em.emit("assembling results", 0.95)
	candidates := r.assemble(top, advocacies, skepticisms, improvements, reEvals, improvedMD,
		advNote, skepNote, improveNote, reEvalNote)

	return &Result{Candidates: candidates, Failures: r.failures}, nil
}

// generate asks for max(5, top+2) ideas in one call. There is no fallback:
// a failure here aborts the run.
func (r *run) generate(ctx context.Context) ([]string, error) {
	r.em.emit("generating ideas", 0.05)

	n := r.opts.NumTopCandidates + 2
	if n < 5 {
		n = 5
	}

	var generated []agents.GeneratedIdea
	err := r.withTimeout(ctx, r.timeouts.Generate, func(pctx context.Context) error {
		ideas, tokens, err := r.ops.GenerateIdeas(pctx, r.topic, r.context, n, r.policy.Temperature(agents.PhaseIdeaGeneration))
		r.tokens.Add(int64(tokens))
		generated = ideas
		return err
	})
	if err != nil {
		if kind, dead := abortKind(ctx); dead {
			return nil, newError(kind, "idea_generation", ctx.Err())
		}
		return nil, newError(classifyErr(err), "idea_generation", err)
	}

	ideas := make([]string, 0, len(generated))
	for _, g := range generated {
		if s := g.Format(); s != "" {
			ideas = append(ideas, s)
		}
	}
	if len(ideas) == 0 {
		return nil, newError(KindInvariantViolation, "idea_generation", errors.New("no ideas generated"))
	}
	r.em.emit(fmt.Sprintf("generated %d ideas", len(ideas)), 0.20)
	return ideas, nil
}

func (r *run) dedupe(ideas []string) ([]string, error) {
	if !r.opts.EnableNoveltyFilter {
		return ideas, nil
	}
	filter := novelty.NewFilter(r.opts.NoveltySimilarityThreshold)
	novel := filter.FilterAll(ideas)
	if len(novel) == 0 {
		return nil, newError(KindInvariantViolation, "novelty_filter", errors.New("no novel ideas after deduplication"))
	}
	if len(novel) < len(ideas) {
		logging.Workflow("run %s: novelty filter dropped %d of %d ideas", r.id, len(ideas)-len(novel), len(ideas))
	}
	r.em.emit(fmt.Sprintf("%d ideas after novelty filtering", len(novel)), 0.25)
	return novel, nil
}

// evaluate scores every idea. A total failure degrades: the first
// NumTopCandidates ideas continue unscored with a run-level note.
func (r *run) evaluate(ctx context.Context, ideas []string) ([]evaluatedIdea, error) {
	r.em.emit("evaluating ideas", 0.30)

	var evals []articulation.Evaluation
	err := r.withTimeout(ctx, r.timeouts.Evaluate, func(pctx context.Context) error {
		out, tokens, err := r.ops.EvaluateBatch(pctx, ideas, r.topic, r.context, r.policy.Temperature(agents.PhaseEvaluation))
		r.tokens.Add(int64(tokens))
		evals = out
		return err
	})

	var rows []evaluatedIdea
	if err != nil {
		if kind, dead := abortKind(ctx); dead {
			return nil, newError(kind, "evaluation", ctx.Err())
		}
		r.failures = append(r.failures, r.note("evaluation", err))
		k := r.opts.NumTopCandidates
		if k > len(ideas) {
			k = len(ideas)
		}
		for i := 0; i < k; i++ {
			rows = append(rows, evaluatedIdea{index: i, text: ideas[i], score: 0, critique: CriticFailedCritique})
		}
	} else {
		for i := range ideas {
			rows = append(rows, evaluatedIdea{index: i, text: ideas[i], score: evals[i].Score, critique: evals[i].Comment})
		}
	}
	r.em.emit("ideas evaluated", 0.40)
	return rows, nil
}

// reason runs the independent enrichment branches concurrently: multi-
// dimensional scoring over all rows, logical inference over the top set, and
// the advocate→skeptic sequence over the top set. Every branch recovers its
// own failures; only global deadline/cancel aborts.
func (r *run) reason(ctx context.Context, rows, top []evaluatedIdea) (advocacies, skepticisms []string, advNote, skepNote *FailureNote, err error) {
	topTexts := make([]string, len(top))
	for i, row := range top {
		topTexts[i] = row.text
	}

	var (
		mdScores   []*evaluation.Score
		infResults []*inference.Result
	)

	eg, egCtx := errgroup.WithContext(ctx)

	if r.opts.MultiDimensional {
		eg.Go(func() error {
			allTexts := make([]string, len(rows))
			for i, row := range rows {
				allTexts[i] = row.text
			}
			mdErr := r.withTimeout(egCtx, r.timeouts.MultiDim, func(pctx context.Context) error {
				scores, tokens, err := r.eval.EvaluateBatch(pctx, allTexts, r.topic, r.context, r.policy.Temperature(agents.PhaseEvaluation))
				r.tokens.Add(int64(tokens))
				mdScores = scores
				return err
			})
			if mdErr != nil {
				logging.Warn(logging.CategoryEvaluation, "run %s: multi-dimensional scoring skipped: %v", r.id, mdErr)
			}
			return nil
		})
	}

	if r.opts.LogicalInference {
		eg.Go(func() error {
			infErr := r.withTimeout(egCtx, r.timeouts.Inference, func(pctx context.Context) error {
				results, tokens, err := r.engine.AnalyzeBatch(pctx, topTexts, r.topic, r.context, r.opts.AnalysisType, r.policy.Temperature(agents.PhaseInference))
				r.tokens.Add(int64(tokens))
				infResults = results
				return err
			})
			if infErr != nil {
				logging.Warn(logging.CategoryInference, "run %s: logical inference skipped: %v", r.id, infErr)
			}
			return nil
		})
	}

	advocacies = make([]string, len(top))
	skepticisms = make([]string, len(top))
	if r.opts.EnhancedReasoning {
		eg.Go(func() error {
			pairs := make([]agents.IdeaEvaluation, len(top))
			for i, row := range top {
				pairs[i] = agents.IdeaEvaluation{Idea: row.text, Critique: row.critique}
			}
			advErr := r.withTimeout(egCtx, r.timeouts.Advocate, func(pctx context.Context) error {
				out, tokens, err := r.ops.AdvocateBatch(pctx, pairs, r.topic, r.context, r.policy.Temperature(agents.PhaseAdvocacy))
				r.tokens.Add(int64(tokens))
				if err == nil {
					copy(advocacies, out)
				}
				return err
			})
			if advErr != nil {
				for i := range advocacies {
					advocacies[i] = agents.AdvocacyFallback
				}
				n := r.note("advocacy", advErr)
				advNote = &n
			}

			skPairs := make([]agents.IdeaAdvocacy, len(top))
			for i, row := range top {
				skPairs[i] = agents.IdeaAdvocacy{Idea: row.text, Advocacy: advocacies[i]}
			}
			skErr := r.withTimeout(egCtx, r.timeouts.Skeptic, func(pctx context.Context) error {
				out, tokens, err := r.ops.SkepticizeBatch(pctx, skPairs, r.topic, r.context, r.policy.Temperature(agents.PhaseSkepticism))
				r.tokens.Add(int64(tokens))
				if err == nil {
					copy(skepticisms, out)
				}
				return err
			})
			if skErr != nil {
				for i := range skepticisms {
					skepticisms[i] = agents.SkepticismFallback
				}
				n := r.note("skepticism", skErr)
				skepNote = &n
			}
			return nil
		})
	}

	_ = eg.Wait()
	if kind, dead := abortKind(ctx); dead {
		return nil, nil, nil, nil, newError(kind, "reasoning", ctx.Err())
	}

	// Attach branch outputs. mdScores align with rows; a top row keeps its
	// original row position in index.
	for i := range top {
		if top[i].index < len(mdScores) {
			top[i].multiDim = mdScores[top[i].index]
		}
		if i < len(infResults) && infResults[i] != nil && infResults[i].Confidence >= r.opts.InferenceConfidence {
			top[i].logical = infResults[i]
		}
	}
	r.em.emit("advocacy and skepticism complete", 0.65)
	return advocacies, skepticisms, advNote, skepNote, nil
}

// improve reworks each top idea. A total failure degrades: originals pass
// through unchanged with a per-candidate note.
func (r *run) improve(ctx context.Context, top []evaluatedIdea, advocacies, skepticisms []string) ([]agents.Improvement, *FailureNote, error) {
	r.em.emit("improving candidates", 0.70)

	items := make([]agents.ImprovementInput, len(top))
	for i, row := range top {
		items[i] = agents.ImprovementInput{
			Idea:       row.text,
			Critique:   row.critique,
			Advocacy:   advocacies[i],
			Skepticism: skepticisms[i],
		}
	}

	var improvements []agents.Improvement
	err := r.withTimeout(ctx, r.timeouts.Improve, func(pctx context.Context) error {
		out, tokens, err := r.ops.ImproveBatch(pctx, items, r.context, r.policy.Temperature(agents.PhaseImprovement))
		r.tokens.Add(int64(tokens))
		improvements = out
		return err
	})
	if err != nil {
		if kind, dead := abortKind(ctx); dead {
			return nil, nil, newError(kind, "improvement", ctx.Err())
		}
		improvements = make([]agents.Improvement, len(top))
		for i, row := range top {
			improvements[i] = agents.Improvement{ImprovedIdea: row.text}
		}
		n := r.note("improvement", err)
		return improvements, &n, nil
	}
	return improvements, nil, nil
}

// reEvaluate scores the improved ideas with the run's original context.
// Improved multi-dimensional scoring runs alongside. A re-evaluation failure
// degrades per candidate; the improved score falls back to the initial one.
func (r *run) reEvaluate(ctx context.Context, improvements []agents.Improvement) ([]articulation.Evaluation, []*evaluation.Score, *FailureNote, error) {
	r.em.emit("re-evaluating improved candidates", 0.80)

	texts := make([]string, len(improvements))
	for i, imp := range improvements {
		texts[i] = imp.ImprovedIdea
	}

	var (
		reEvals    []articulation.Evaluation
		improvedMD []*evaluation.Score
		reEvalNote *FailureNote
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		// Same prompt shape and context as the first pass keeps the critic
		// blind to which texts are revisions.
		reErr := r.withTimeout(egCtx, r.timeouts.ReEvaluate, func(pctx context.Context) error {
			out, tokens, err := r.ops.EvaluateBatch(pctx, texts, r.topic, r.context, r.policy.Temperature(agents.PhaseEvaluation))
			r.tokens.Add(int64(tokens))
			reEvals = out
			return err
		})
		if reErr != nil {
			n := r.note("re-evaluation", reErr)
			reEvalNote = &n
		}
		return nil
	})
	if r.opts.MultiDimensional {
		eg.Go(func() error {
			mdErr := r.withTimeout(egCtx, r.timeouts.MultiDim, func(pctx context.Context) error {
				scores, tokens, err := r.eval.EvaluateBatch(pctx, texts, r.topic, r.context, r.policy.Temperature(agents.PhaseEvaluation))
				r.tokens.Add(int64(tokens))
				improvedMD = scores
				return err
			})
			if mdErr != nil {
				logging.Warn(logging.CategoryEvaluation, "run %s: improved multi-dimensional scoring skipped: %v", r.id, mdErr)
			}
			return nil
		})
	}
	_ = eg.Wait()
	if kind, dead := abortKind(ctx); dead {
		return nil, nil, nil, newError(kind, "re-evaluation", ctx.Err())
	}
	return reEvals, improvedMD, reEvalNote, nil
}

func (r *run) assemble(top []evaluatedIdea, advocacies, skepticisms []string, improvements []agents.Improvement,
	reEvals []articulation.Evaluation, improvedMD []*evaluation.Score,
	advNote, skepNote, improveNote, reEvalNote *FailureNote) []CandidateResult {

	candidates := make([]CandidateResult, len(top))
	for i, row := range top {
		c := CandidateResult{
			Idea:            row.text,
			InitialScore:    row.score,
			InitialCritique: row.critique,
			ImprovedIdea:    improvements[i].ImprovedIdea,
			MultiDim:        row.multiDim,
			Logical:         row.logical,
		}
		if r.opts.EnhancedReasoning {
			c.Advocacy = advocacies[i]
			c.Skepticism = skepticisms[i]
		}
		if i < len(improvedMD) {
			c.ImprovedMultiDim = improvedMD[i]
		}

		if reEvalNote != nil || i >= len(reEvals) {
			c.ImprovedScore = row.score
			c.ImprovedCritique = ReEvalUnavailable
		} else {
			c.ImprovedScore = reEvals[i].Score
			c.ImprovedCritique = reEvals[i].Comment
			if c.ImprovedScore < row.score-scoreRegressionMargin {
				c.ImprovedCritique += regressionNote
			}
		}

		c.ScoreDelta = c.ImprovedScore - c.InitialScore
		c.SimilarityScore = novelty.Similarity(c.Idea, c.ImprovedIdea)
		c.IsMeaningfulImprovement = !(c.SimilarityScore > meaningfulSimThreshold &&
			math.Abs(c.ScoreDelta) < meaningfulDeltaMin)

		for _, n := range []*FailureNote{advNote, skepNote, improveNote, reEvalNote} {
			if n != nil {
				c.PartialFailures = append(c.PartialFailures, *n)
			}
		}
		candidates[i] = c
	}
	return candidates
}

// selectTopK returns the k highest-scored rows, ties broken by generation
// order, output sorted by descending score.
func selectTopK(rows []evaluatedIdea, k int) []evaluatedIdea {
	sorted := append([]evaluatedIdea(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].score != sorted[j].score {
			return sorted[i].score > sorted[j].score
		}
		return sorted[i].index < sorted[j].index
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}
