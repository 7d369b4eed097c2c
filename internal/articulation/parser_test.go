package articulation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvaluations_JSONArray(t *testing.T) {
	t.Parallel()

	text := `[{"score": 8, "comment": "strong"}, {"score": 5, "critique": "weak"}]`
	evals := ParseEvaluations(text, 2)

	require.Len(t, evals, 2)
	assert.Equal(t, 8.0, evals[0].Score)
	assert.Equal(t, "strong", evals[0].Comment)
	assert.Equal(t, 5.0, evals[1].Score)
	assert.Equal(t, "weak", evals[1].Comment)
}

func TestParseEvaluations_MarkdownFencedArray(t *testing.T) {
	t.Parallel()

	text := "Here are the evaluations:\n```json\n[{\"score\": 7, \"comment\": \"ok\"}]\n```"
	evals := ParseEvaluations(text, 1)

	require.Len(t, evals, 1)
	assert.Equal(t, 7.0, evals[0].Score)
	assert.Equal(t, "ok", evals[0].Comment)
}

func TestParseEvaluations_SingleObject(t *testing.T) {
	t.Parallel()

	evals := ParseEvaluations(`{"score": 9, "feedback": "excellent"}`, 1)
	require.Len(t, evals, 1)
	assert.Equal(t, 9.0, evals[0].Score)
	assert.Equal(t, "excellent", evals[0].Comment)
}

func TestParseEvaluations_LineWise(t *testing.T) {
	t.Parallel()

	text := "{\"score\": 6, \"comment\": \"a\"}\n{\"score\": 4, \"comment\": \"b\"}\n"
	evals := ParseEvaluations(text, 2)

	require.Len(t, evals, 2)
	assert.Equal(t, 6.0, evals[0].Score)
	assert.Equal(t, 4.0, evals[1].Score)
}

func TestParseEvaluations_EmbeddedObjects(t *testing.T) {
	t.Parallel()

	text := `The model says {"score": 3, "comment": "meh"} and also {"score": 10, "comment": "wow"} today.`
	evals := ParseEvaluations(text, 2)

	require.Len(t, evals, 2)
	assert.Equal(t, 3.0, evals[0].Score)
	assert.Equal(t, 10.0, evals[1].Score)
}

// Seed scenario 3 from the workflow test plan: plain key/value text.
func TestParseEvaluations_KeyValueFallback(t *testing.T) {
	t.Parallel()

	text := "score: 7, comment: good\nscore: 9, comment: great\n"
	evals := ParseEvaluations(text, 2)

	require.Len(t, evals, 2)
	assert.Equal(t, 7.0, evals[0].Score)
	assert.Equal(t, "good", evals[0].Comment)
	assert.Equal(t, 9.0, evals[1].Score)
	assert.Equal(t, "great", evals[1].Comment)
}

func TestParseEvaluations_PadsToExpected(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 3, 7} {
		evals := ParseEvaluations("total garbage, no structure here", n)
		require.Len(t, evals, n, "expected %d records", n)
		for _, e := range evals {
			assert.Equal(t, 0.0, e.Score)
			assert.Equal(t, PlaceholderComment, e.Comment)
		}
	}
}

func TestParseEvaluations_TruncatesExtra(t *testing.T) {
	t.Parallel()

	text := `[{"score":1,"comment":"a"},{"score":2,"comment":"b"},{"score":3,"comment":"c"}]`
	evals := ParseEvaluations(text, 2)
	require.Len(t, evals, 2)
	assert.Equal(t, 1.0, evals[0].Score)
	assert.Equal(t, 2.0, evals[1].Score)
}

func TestValidateEvaluation_Clamping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		obj  map[string]interface{}
		want Evaluation
	}{
		{
			name: "score above range",
			obj:  map[string]interface{}{"score": 42.0, "comment": "x"},
			want: Evaluation{Score: 10, Comment: "x"},
		},
		{
			name: "negative score",
			obj:  map[string]interface{}{"score": -3.0, "comment": "x"},
			want: Evaluation{Score: 0, Comment: "x"},
		},
		{
			name: "string score",
			obj:  map[string]interface{}{"score": "7.5", "comment": "x"},
			want: Evaluation{Score: 7.5, Comment: "x"},
		},
		{
			name: "invalid string score",
			obj:  map[string]interface{}{"score": "lots", "comment": "x"},
			want: Evaluation{Score: 0, Comment: "x"},
		},
		{
			name: "missing comment falls back",
			obj:  map[string]interface{}{"score": 5.0},
			want: Evaluation{Score: 5, Comment: DefaultComment},
		},
		{
			name: "critique preferred over empty comment",
			obj:  map[string]interface{}{"score": 5.0, "comment": "  ", "critique": "real"},
			want: Evaluation{Score: 5, Comment: "real"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ValidateEvaluation(tt.obj))
		})
	}
}

func TestValidateEvaluation_Idempotent(t *testing.T) {
	t.Parallel()

	obj := map[string]interface{}{"score": 23.0, "comment": "over"}
	once := ValidateEvaluation(obj)
	again := ValidateEvaluation(map[string]interface{}{"score": once.Score, "comment": once.Comment})
	assert.Equal(t, once, again)
}

func TestFindJSONCandidates_NestedAndStrings(t *testing.T) {
	t.Parallel()

	text := `prefix {"a": {"b": 1}, "s": "brace } inside"} suffix {"c": 2}`
	cands := findJSONCandidates(text)
	require.Len(t, cands, 2)
	assert.Equal(t, `{"a": {"b": 1}, "s": "brace } inside"}`, cands[0])
	assert.Equal(t, `{"c": 2}`, cands[1])
}

func TestFindJSONArray_IgnoresBracketsInStrings(t *testing.T) {
	t.Parallel()

	text := `noise ["a]b", "c"] trailing`
	assert.Equal(t, `["a]b", "c"]`, findJSONArray(text))
}

func TestParseObjects_EmptyInput(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ParseObjects(""))
	assert.Nil(t, ParseObjects("no json at all"))
}

func TestParseObjects_ArrayWithSurroundingProse(t *testing.T) {
	t.Parallel()

	text := fmt.Sprintf("Sure! Here you go:\n%s\nHope that helps.", `[{"idea": "x"}]`)
	objs := ParseObjects(text)
	require.Len(t, objs, 1)
	assert.Equal(t, "x", objs[0]["idea"])
}

func TestFieldHelpers(t *testing.T) {
	t.Parallel()

	obj := map[string]interface{}{
		"title":        " Solar ",
		"empty":        "",
		"key_features": []interface{}{"a", " b ", 3},
		"conf":         "0.8",
	}
	assert.Equal(t, "Solar", StringField(obj, "missing", "title"))
	assert.Equal(t, "", StringField(obj, "empty"))
	assert.Equal(t, []string{"a", "b"}, StringSliceField(obj, "key_features"))

	f, ok := FloatField(obj, "conf")
	require.True(t, ok)
	assert.Equal(t, 0.8, f)
	_, ok = FloatField(obj, "missing")
	assert.False(t, ok)
}
