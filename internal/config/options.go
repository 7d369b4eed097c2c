// Package config holds workflow options, their validation, and the
// process-level configuration (file + environment) consumed by the CLI.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Limits on caller input.
const (
	MaxTopicLen   = 500
	MaxContextLen = 1000

	MinTopCandidates = 1
	MaxTopCandidates = 5

	MinConcurrentAgents = 1
	MaxConcurrentAgents = 64

	DefaultTimeout = 10 * time.Minute
	MaxTimeout     = time.Hour
)

// Cache TTLs. Workflow results live longer than raw agent responses.
const (
	DefaultWorkflowTTL = time.Hour
	DefaultAgentTTL    = 30 * time.Minute
)

// AnalysisType selects the logical-inference variant.
type AnalysisType string

const (
	AnalysisFull          AnalysisType = "full"
	AnalysisCausal        AnalysisType = "causal"
	AnalysisConstraints   AnalysisType = "constraints"
	AnalysisContradiction AnalysisType = "contradiction"
	AnalysisImplications  AnalysisType = "implications"
)

// WorkflowOptions controls one Run of the refinement pipeline.
type WorkflowOptions struct {
	NumTopCandidates           int           `json:"num_top_candidates"`
	EnableNoveltyFilter        bool          `json:"enable_novelty_filter"`
	NoveltySimilarityThreshold float64       `json:"novelty_similarity_threshold"`
	TemperaturePreset          string        `json:"temperature_preset,omitempty"` // preset tag; empty means use BaseTemperature
	BaseTemperature            float64       `json:"base_temperature,omitempty"`   // used when TemperaturePreset is empty
	EnhancedReasoning          bool          `json:"enhanced_reasoning"` // advocate + skeptic phases
	MultiDimensional           bool          `json:"multi_dimensional"`  // always on in the current build; retained as an option
	LogicalInference           bool          `json:"logical_inference"`
	AnalysisType               AnalysisType  `json:"analysis_type,omitempty"`
	InferenceConfidence        float64       `json:"inference_confidence_threshold"` // gate for attaching inference results; 0 is permissive
	Timeout                    time.Duration `json:"timeout"`
	MaxConcurrentAgents        int           `json:"max_concurrent_agents"`
	CacheEnabled               bool          `json:"cache_enabled"`
	WorkflowTTL                time.Duration `json:"workflow_ttl,omitempty"`
	AgentTTL                   time.Duration `json:"agent_ttl,omitempty"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() WorkflowOptions {
	return WorkflowOptions{
		NumTopCandidates:           3,
		EnableNoveltyFilter:        true,
		NoveltySimilarityThreshold: 0.8,
		TemperaturePreset:          "balanced",
		EnhancedReasoning:          true,
		MultiDimensional:           true,
		LogicalInference:           false,
		AnalysisType:               AnalysisFull,
		InferenceConfidence:        0.0,
		Timeout:                    DefaultTimeout,
		MaxConcurrentAgents:        10,
		CacheEnabled:               false,
		WorkflowTTL:                DefaultWorkflowTTL,
		AgentTTL:                   DefaultAgentTTL,
	}
}

var validPresets = map[string]struct{}{
	"conservative": {}, "balanced": {}, "creative": {}, "wild": {},
}

var validAnalysisTypes = map[AnalysisType]struct{}{
	AnalysisFull: {}, AnalysisCausal: {}, AnalysisConstraints: {},
	AnalysisContradiction: {}, AnalysisImplications: {},
}

// Validate checks option ranges. Returned errors are configuration errors:
// the orchestrator surfaces them before any provider call.
func (o *WorkflowOptions) Validate() error {
	if o.NumTopCandidates < MinTopCandidates || o.NumTopCandidates > MaxTopCandidates {
		return fmt.Errorf("num_top_candidates must be in [%d,%d], got %d", MinTopCandidates, MaxTopCandidates, o.NumTopCandidates)
	}
	if o.NoveltySimilarityThreshold < 0 || o.NoveltySimilarityThreshold > 1 {
		return fmt.Errorf("novelty_similarity_threshold must be in [0,1], got %g", o.NoveltySimilarityThreshold)
	}
	if o.TemperaturePreset != "" {
		if _, ok := validPresets[o.TemperaturePreset]; !ok {
			return fmt.Errorf("unknown temperature preset %q", o.TemperaturePreset)
		}
	} else if o.BaseTemperature < 0 || o.BaseTemperature > 1 {
		return fmt.Errorf("base_temperature must be in [0,1], got %g", o.BaseTemperature)
	}
	if o.AnalysisType != "" {
		if _, ok := validAnalysisTypes[o.AnalysisType]; !ok {
			return fmt.Errorf("unknown analysis type %q", o.AnalysisType)
		}
	}
	if o.InferenceConfidence < 0 || o.InferenceConfidence > 1 {
		return fmt.Errorf("inference_confidence_threshold must be in [0,1], got %g", o.InferenceConfidence)
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Timeout > MaxTimeout {
		return fmt.Errorf("timeout must not exceed %v, got %v", MaxTimeout, o.Timeout)
	}
	if o.MaxConcurrentAgents < MinConcurrentAgents || o.MaxConcurrentAgents > MaxConcurrentAgents {
		return fmt.Errorf("max_concurrent_agents must be in [%d,%d], got %d", MinConcurrentAgents, MaxConcurrentAgents, o.MaxConcurrentAgents)
	}
	if o.WorkflowTTL <= 0 {
		o.WorkflowTTL = DefaultWorkflowTTL
	}
	if o.AgentTTL <= 0 {
		o.AgentTTL = DefaultAgentTTL
	}
	return nil
}

// ValidateInput checks the caller-supplied topic and context.
func ValidateInput(topic, workflowContext string) error {
	t := strings.TrimSpace(topic)
	if t == "" {
		return fmt.Errorf("topic is required")
	}
	if len(t) > MaxTopicLen {
		return fmt.Errorf("topic must be at most %d characters, got %d", MaxTopicLen, len(t))
	}
	if len(workflowContext) > MaxContextLen {
		return fmt.Errorf("context must be at most %d characters, got %d", MaxContextLen, len(workflowContext))
	}
	return nil
}

// CacheKey canonicalizes the options subset that affects results. Transient
// fields (timeout, concurrency, cache flags, TTLs) are deliberately
// excluded so re-runs with different operational settings still hit.
func (o *WorkflowOptions) CacheKey() string {
	temp := o.TemperaturePreset
	if temp == "" {
		temp = fmt.Sprintf("base=%.3f", o.BaseTemperature)
	}
	return fmt.Sprintf("top=%d|novelty=%t@%.3f|temp=%s|reasoning=%t|multidim=%t|inference=%t@%s@%.3f",
		o.NumTopCandidates,
		o.EnableNoveltyFilter, o.NoveltySimilarityThreshold,
		temp,
		o.EnhancedReasoning,
		o.MultiDimensional,
		o.LogicalInference, o.AnalysisType, o.InferenceConfidence,
	)
}
