// Package articulation turns raw model output back into structured records.
// Models are unreliable JSON emitters, so parsing runs a fixed ladder of
// strategies (whole-document JSON, line-wise JSON, balanced-brace scan,
// key/value regex) and always yields the requested number of records,
// padding with typed placeholders when the text is beyond salvage.
package articulation

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Placeholder texts used when a record cannot be recovered.
const (
	PlaceholderComment = "Failed to parse evaluation"
	DefaultComment     = "No comment provided"
)

// Evaluation is one critic record: a clamped score plus free-form comment.
type Evaluation struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

var (
	scoreRe   = regexp.MustCompile(`(?i)\bscore\b\s*[:=]\s*"?(\d+(?:\.\d+)?)"?`)
	commentRe = regexp.MustCompile(`(?i)\b(?:comment|critique|feedback)\b\s*[:=]\s*"?([^"\n]+)"?`)
)

// ParseObjects extracts a list of JSON objects from model text, trying
// strategies in order and stopping at the first that yields at least one
// record:
//  1. whole text as a JSON array (or a single object, giving a length-1 list)
//  2. each non-empty line as a JSON object
//  3. balanced-brace object scan over the whole document
//
// Returns nil when nothing parses.
func ParseObjects(text string) []map[string]interface{} {
	cleaned := stripMarkdownFences(text)

	// Strategy 1: whole document.
	if recs := parseWhole(cleaned); len(recs) > 0 {
		return recs
	}
	// Strategy 2: line-wise.
	if recs := parseLines(cleaned); len(recs) > 0 {
		return recs
	}
	// Strategy 3: balanced-brace scan.
	var recs []map[string]interface{}
	for _, cand := range findJSONCandidates(cleaned) {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(cand), &obj); err == nil {
			recs = append(recs, obj)
		}
	}
	return recs
}

func parseWhole(text string) []map[string]interface{} {
	body := text
	if arr := findJSONArray(text); arr != "" {
		body = arr
	}
	var list []map[string]interface{}
	if err := json.Unmarshal([]byte(body), &list); err == nil {
		return list
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return []map[string]interface{}{obj}
	}
	return nil
}

func parseLines(text string) []map[string]interface{} {
	var recs []map[string]interface{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ","))
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(line), &obj); err == nil {
			recs = append(recs, obj)
		}
	}
	return recs
}

// ParseEvaluations extracts exactly `expected` evaluation records from model
// text. After the object strategies it falls back to a key/value regex pass,
// then pads with placeholders. Never returns an error: a hopeless input
// yields `expected` placeholder records.
func ParseEvaluations(text string, expected int) []Evaluation {
	if expected < 0 {
		expected = 0
	}
	evals := ParseEvaluationsRaw(text)
	for len(evals) < expected {
		evals = append(evals, Evaluation{Score: 0, Comment: PlaceholderComment})
	}
	return evals[:expected]
}

// ParseEvaluationsRaw is ParseEvaluations without the length contract: it
// returns however many records the strategies recover, possibly none.
// Callers that need alignment pad with their own placeholder.
func ParseEvaluationsRaw(text string) []Evaluation {
	var evals []Evaluation
	for _, obj := range ParseObjects(text) {
		evals = append(evals, ValidateEvaluation(obj))
	}
	if len(evals) == 0 {
		evals = parseKeyValue(stripMarkdownFences(text))
	}
	return evals
}

// parseKeyValue is the last-ditch strategy: pair up `score:` and
// `comment|critique|feedback:` matches anywhere in the document.
func parseKeyValue(text string) []Evaluation {
	scores := scoreRe.FindAllStringSubmatch(text, -1)
	comments := commentRe.FindAllStringSubmatch(text, -1)

	n := len(scores)
	if len(comments) > n {
		n = len(comments)
	}
	var evals []Evaluation
	for i := 0; i < n; i++ {
		e := Evaluation{Score: 0, Comment: DefaultComment}
		if i < len(scores) {
			if v, err := strconv.ParseFloat(scores[i][1], 64); err == nil {
				e.Score = clampScore(v)
			}
		}
		if i < len(comments) {
			if c := strings.TrimSpace(comments[i][1]); c != "" {
				e.Comment = c
			}
		}
		evals = append(evals, e)
	}
	return evals
}

// ValidateEvaluation coerces one parsed object into a well-formed
// Evaluation: score coerced from number or string and clamped to [0,10];
// comment taken from the first non-empty of comment/critique/feedback.
// Idempotent: validating an already-valid record changes nothing.
func ValidateEvaluation(obj map[string]interface{}) Evaluation {
	e := Evaluation{Score: 0, Comment: DefaultComment}

	switch v := obj["score"].(type) {
	case float64:
		e.Score = clampScore(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			e.Score = clampScore(f)
		}
	case int:
		e.Score = clampScore(float64(v))
	}

	for _, key := range []string{"comment", "critique", "feedback"} {
		if s, ok := obj[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				e.Comment = s
				break
			}
		}
	}
	return e
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// StringField returns a trimmed string field from a parsed object, or "".
func StringField(obj map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// StringSliceField returns a []string field, tolerating []interface{} input.
func StringSliceField(obj map[string]interface{}, key string) []string {
	raw, ok := obj[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// FloatField returns a numeric field coerced from float64 or string, with ok.
func FloatField(obj map[string]interface{}, key string) (float64, bool) {
	switch v := obj[key].(type) {
	case float64:
		return v, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
