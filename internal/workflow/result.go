package workflow

import (
	"time"

	"ideaforge/internal/evaluation"
	"ideaforge/internal/inference"
)

// CandidateResult is the final per-idea record, serializable to the wire
// shape the outer shell presents.
type CandidateResult struct {
	Idea                    string            `json:"idea"`
	InitialScore            float64           `json:"initial_score"`
	InitialCritique         string            `json:"initial_critique"`
	Advocacy                string            `json:"advocacy,omitempty"`
	Skepticism              string            `json:"skepticism,omitempty"`
	ImprovedIdea            string            `json:"improved_idea"`
	ImprovedScore           float64           `json:"improved_score"`
	ImprovedCritique        string            `json:"improved_critique"`
	ScoreDelta              float64           `json:"score_delta"`
	IsMeaningfulImprovement bool              `json:"is_meaningful_improvement"`
	SimilarityScore         float64           `json:"similarity_score"`
	MultiDim                *evaluation.Score `json:"multi_dimensional_evaluation,omitempty"`
	ImprovedMultiDim        *evaluation.Score `json:"improved_multi_dimensional_evaluation,omitempty"`
	Logical                 *inference.Result `json:"logical_inference,omitempty"`
	PartialFailures         []FailureNote     `json:"partial_failures,omitempty"`
}

// Result is the outcome of one Run.
type Result struct {
	RunID      string            `json:"run_id"`
	Topic      string            `json:"topic"`
	Context    string            `json:"context,omitempty"`
	Candidates []CandidateResult `json:"candidates"`
	Failures   []FailureNote     `json:"failures,omitempty"` // run-level notes with no candidate context
	TokensUsed int               `json:"tokens_used"`
	Elapsed    time.Duration     `json:"elapsed"`
	CacheHit   bool              `json:"cache_hit"`
	CreatedAt  time.Time         `json:"created_at"`
}

// evaluatedIdea is the in-flight enriched table row threaded through the
// phases. It never escapes the Run.
type evaluatedIdea struct {
	index    int // original generation order, for stable tie-breaks
	text     string
	score    float64
	critique string
	multiDim *evaluation.Score
	logical  *inference.Result
}
