package agents

// Phase names one stage of the pipeline for temperature selection.
type Phase string

const (
	PhaseIdeaGeneration Phase = "idea_generation"
	PhaseEvaluation     Phase = "evaluation"
	PhaseAdvocacy       Phase = "advocacy"
	PhaseSkepticism     Phase = "skepticism"
	PhaseImprovement    Phase = "improvement"
	PhaseInference      Phase = "inference"
)

// TemperaturePolicy maps pipeline phase to sampling temperature.
// Improvement reuses the generation temperature (it is creative work);
// inference and multi-dimensional scoring reuse the evaluation temperature.
type TemperaturePolicy struct {
	table map[Phase]float64
}

var presets = map[string]map[Phase]float64{
	"conservative": {
		PhaseIdeaGeneration: 0.6,
		PhaseEvaluation:     0.2,
		PhaseAdvocacy:       0.4,
		PhaseSkepticism:     0.4,
	},
	"balanced": {
		PhaseIdeaGeneration: 0.9,
		PhaseEvaluation:     0.3,
		PhaseAdvocacy:       0.7,
		PhaseSkepticism:     0.7,
	},
	"creative": {
		PhaseIdeaGeneration: 1.0,
		PhaseEvaluation:     0.4,
		PhaseAdvocacy:       0.9,
		PhaseSkepticism:     0.9,
	},
	"wild": {
		PhaseIdeaGeneration: 1.0,
		PhaseEvaluation:     0.5,
		PhaseAdvocacy:       1.0,
		PhaseSkepticism:     1.0,
	},
}

// PresetPolicy returns the named fixed table, or false for unknown names.
func PresetPolicy(name string) (*TemperaturePolicy, bool) {
	table, ok := presets[name]
	if !ok {
		return nil, false
	}
	copied := make(map[Phase]float64, len(table))
	for k, v := range table {
		copied[k] = v
	}
	return &TemperaturePolicy{table: copied}, true
}

// BasePolicy derives a table from a single base temperature:
// generation runs hotter (base×1.3, capped at 1.0), evaluation colder
// (base×0.4, floored at 0.1), advocacy and skepticism at base.
func BasePolicy(base float64) *TemperaturePolicy {
	base = clampTemp(base)
	gen := base * 1.3
	if gen > 1.0 {
		gen = 1.0
	}
	eval := base * 0.4
	if eval < 0.1 {
		eval = 0.1
	}
	return &TemperaturePolicy{table: map[Phase]float64{
		PhaseIdeaGeneration: clampTemp(gen),
		PhaseEvaluation:     clampTemp(eval),
		PhaseAdvocacy:       base,
		PhaseSkepticism:     base,
	}}
}

// Temperature returns the sampling temperature for a phase, clamped to
// [0,1]. Phases without an explicit entry fall back per the mapping above.
func (p *TemperaturePolicy) Temperature(phase Phase) float64 {
	switch phase {
	case PhaseImprovement:
		phase = PhaseIdeaGeneration
	case PhaseInference:
		phase = PhaseEvaluation
	}
	return clampTemp(p.table[phase])
}

func clampTemp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
