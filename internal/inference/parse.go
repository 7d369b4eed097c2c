package inference

import (
	"regexp"
	"strconv"
	"strings"

	"ideaforge/internal/articulation"
	"ideaforge/internal/config"
)

// parseBatch extracts n aligned results. JSON is preferred; the plain-text
// labeled-section grammar is the fallback. Items that parse from neither
// are nil.
func parseBatch(text string, n int, typ config.AnalysisType) []*Result {
	results := make([]*Result, n)

	objs := articulation.ParseObjects(text)
	if len(objs) > 0 {
		for i := 0; i < n && i < len(objs); i++ {
			results[i] = resultFromObject(objs[i], typ)
		}
		return results
	}

	for i, section := range splitSections(text) {
		if i >= n {
			break
		}
		results[i] = resultFromSections(section, typ)
	}
	return results
}

func resultFromObject(obj map[string]interface{}, typ config.AnalysisType) *Result {
	r := &Result{
		Type:           typ,
		InferenceChain: articulation.StringSliceField(obj, "inference_chain"),
		Conclusion:     articulation.StringField(obj, "conclusion"),
		Improvements:   articulation.StringField(obj, "improvements"),
	}
	if c, ok := articulation.FloatField(obj, "confidence"); ok {
		r.Confidence = clamp01(c)
	}

	switch typ {
	case config.AnalysisCausal:
		r.CausalChain = articulation.StringSliceField(obj, "causal_chain")
		r.FeedbackLoops = articulation.StringSliceField(obj, "feedback_loops")
		r.RootCause = articulation.StringField(obj, "root_cause")
	case config.AnalysisConstraints:
		r.TradeOffs = articulation.StringSliceField(obj, "trade_offs")
		if m, ok := obj["constraint_satisfaction"].(map[string]interface{}); ok {
			r.ConstraintSatisfaction = make(map[string]float64, len(m))
			for k := range m {
				if v, ok := articulation.FloatField(m, k); ok {
					r.ConstraintSatisfaction[k] = clamp01(v)
				}
			}
		}
	case config.AnalysisContradiction:
		r.Contradictions = articulation.StringSliceField(obj, "contradictions")
	case config.AnalysisImplications:
		r.Implications = articulation.StringSliceField(obj, "implications")
		r.SecondOrderEffects = articulation.StringSliceField(obj, "second_order_effects")
	}

	if r.Conclusion == "" && len(r.InferenceChain) == 0 {
		return nil
	}
	return r
}

// --- plain-text fallback grammar ---

var sectionSeparator = regexp.MustCompile(`(?m)^\s*---+\s*$`)

// labelRe matches section headers such as "INFERENCE_CHAIN:" at line start.
var labelRe = regexp.MustCompile(`(?m)^\s*(INFERENCE_CHAIN|CONCLUSION|CONFIDENCE|IMPROVEMENTS|CAUSAL_CHAIN|FEEDBACK_LOOPS|ROOT_CAUSE|TRADE_OFFS|CONTRADICTIONS|IMPLICATIONS|SECOND_ORDER_EFFECTS)\s*:\s*`)

var listItemRe = regexp.MustCompile(`^\s*(?:\d+[.)]\s*|[-*]\s*)`)

func splitSections(text string) []string {
	var out []string
	for _, part := range sectionSeparator.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			out = append(out, part)
		}
	}
	return out
}

func resultFromSections(section string, typ config.AnalysisType) *Result {
	fields := labeledFields(section)
	if len(fields) == 0 {
		return nil
	}

	r := &Result{
		Type:           typ,
		InferenceChain: parseList(fields["INFERENCE_CHAIN"]),
		Conclusion:     strings.TrimSpace(fields["CONCLUSION"]),
		Improvements:   strings.TrimSpace(fields["IMPROVEMENTS"]),
	}
	if raw, ok := fields["CONFIDENCE"]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(firstLine(raw)), 64); err == nil {
			r.Confidence = clamp01(v)
		}
	}

	switch typ {
	case config.AnalysisCausal:
		r.CausalChain = parseList(fields["CAUSAL_CHAIN"])
		r.FeedbackLoops = parseList(fields["FEEDBACK_LOOPS"])
		r.RootCause = strings.TrimSpace(fields["ROOT_CAUSE"])
	case config.AnalysisConstraints:
		r.TradeOffs = parseList(fields["TRADE_OFFS"])
	case config.AnalysisContradiction:
		r.Contradictions = parseList(fields["CONTRADICTIONS"])
	case config.AnalysisImplications:
		r.Implications = parseList(fields["IMPLICATIONS"])
		r.SecondOrderEffects = parseList(fields["SECOND_ORDER_EFFECTS"])
	}

	if r.Conclusion == "" && len(r.InferenceChain) == 0 {
		return nil
	}
	return r
}

// labeledFields splits a section into label -> body.
func labeledFields(section string) map[string]string {
	matches := labelRe.FindAllStringSubmatchIndex(section, -1)
	fields := make(map[string]string, len(matches))
	for i, m := range matches {
		label := section[m[2]:m[3]]
		bodyStart := m[1]
		bodyEnd := len(section)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		fields[label] = strings.TrimSpace(section[bodyStart:bodyEnd])
	}
	return fields
}

// parseList splits a labeled body into items: numbered/bulleted lines, or
// bare lines when no list markers are present.
func parseList(body string) []string {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(body, "\n") {
		item := strings.TrimSpace(listItemRe.ReplaceAllString(line, ""))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
