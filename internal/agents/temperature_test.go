package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetPolicy_KnownPresets(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"conservative", "balanced", "creative", "wild"} {
		p, ok := PresetPolicy(name)
		require.True(t, ok, name)
		for _, phase := range []Phase{PhaseIdeaGeneration, PhaseEvaluation, PhaseAdvocacy, PhaseSkepticism, PhaseImprovement, PhaseInference} {
			temp := p.Temperature(phase)
			assert.GreaterOrEqual(t, temp, 0.0)
			assert.LessOrEqual(t, temp, 1.0)
		}
	}
}

func TestPresetPolicy_Unknown(t *testing.T) {
	t.Parallel()

	_, ok := PresetPolicy("volcanic")
	assert.False(t, ok)
}

func TestPresetPolicy_GenerationHotterThanEvaluation(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"conservative", "balanced", "creative", "wild"} {
		p, _ := PresetPolicy(name)
		assert.Greater(t, p.Temperature(PhaseIdeaGeneration), p.Temperature(PhaseEvaluation), name)
	}
}

func TestBasePolicy_Scaling(t *testing.T) {
	t.Parallel()

	p := BasePolicy(0.5)
	assert.InDelta(t, 0.65, p.Temperature(PhaseIdeaGeneration), 1e-12)
	assert.InDelta(t, 0.2, p.Temperature(PhaseEvaluation), 1e-12)
	assert.Equal(t, 0.5, p.Temperature(PhaseAdvocacy))
	assert.Equal(t, 0.5, p.Temperature(PhaseSkepticism))
}

func TestBasePolicy_Clamping(t *testing.T) {
	t.Parallel()

	hot := BasePolicy(0.9)
	assert.Equal(t, 1.0, hot.Temperature(PhaseIdeaGeneration), "1.3x base capped at 1.0")

	cold := BasePolicy(0.1)
	assert.Equal(t, 0.1, cold.Temperature(PhaseEvaluation), "evaluation floored at 0.1")

	neg := BasePolicy(-1)
	assert.Equal(t, 0.0, neg.Temperature(PhaseAdvocacy))
}

func TestDerivedPhaseMapping(t *testing.T) {
	t.Parallel()

	p, _ := PresetPolicy("balanced")
	assert.Equal(t, p.Temperature(PhaseIdeaGeneration), p.Temperature(PhaseImprovement))
	assert.Equal(t, p.Temperature(PhaseEvaluation), p.Temperature(PhaseInference))
}
