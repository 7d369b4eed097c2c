// Package novelty deduplicates candidate ideas. An idea is rejected when its
// normalized form hashes identically to an accepted idea (exact duplicate) or
// when its keyword set overlaps an accepted idea beyond a Jaccard threshold.
package novelty

import (
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
)

// Result describes one filtering decision.
type Result struct {
	IsNovel         bool    `json:"is_novel"`
	SimilarityScore float64 `json:"similarity_score"` // 0..1, max Jaccard vs accepted ideas
	SimilarTo       string  `json:"similar_to"`       // accepted idea text, "exact duplicate", or "Empty"
}

// Filter accumulates accepted ideas and rejects near-duplicates.
// Safe for concurrent use.
type Filter struct {
	mu        sync.Mutex
	threshold float64
	seen      map[[16]byte]struct{}
	accepted  []acceptedIdea
}

type acceptedIdea struct {
	text     string
	keywords map[string]struct{}
}

// stopWords are common English function words excluded from keyword sets.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "can": {}, "could": {}, "do": {}, "does": {}, "for": {},
	"from": {}, "had": {}, "has": {}, "have": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "its": {}, "may": {}, "might": {}, "of": {},
	"on": {}, "or": {}, "should": {}, "that": {}, "the": {}, "their": {},
	"this": {}, "to": {}, "was": {}, "were": {}, "will": {}, "with": {},
	"would": {},
}

// Word characters are any Unicode letter or digit, so non-Latin ideas keep
// their text through normalization instead of collapsing to "".
var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
var spaceRe = regexp.MustCompile(`\s+`)

// NewFilter builds a filter with the given similarity threshold in [0,1].
// Ideas at or above the threshold against any accepted idea are rejected.
func NewFilter(threshold float64) *Filter {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	return &Filter{
		threshold: threshold,
		seen:      make(map[[16]byte]struct{}),
	}
}

// Filter decides whether one idea is novel against everything accepted so
// far, and accepts it if so.
func (f *Filter) Filter(idea string) Result {
	norm := Normalize(idea)
	if norm == "" {
		return Result{IsNovel: false, SimilarityScore: 1.0, SimilarTo: "Empty"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	h := hash128(norm)
	if _, dup := f.seen[h]; dup {
		return Result{IsNovel: false, SimilarityScore: 1.0, SimilarTo: "exact duplicate"}
	}

	kw := Keywords(norm)
	best := 0.0
	bestIdea := ""
	for _, acc := range f.accepted {
		if sim := Jaccard(kw, acc.keywords); sim > best {
			best = sim
			bestIdea = acc.text
		}
	}
	if best >= f.threshold {
		return Result{IsNovel: false, SimilarityScore: best, SimilarTo: bestIdea}
	}

	f.seen[h] = struct{}{}
	f.accepted = append(f.accepted, acceptedIdea{text: idea, keywords: kw})
	return Result{IsNovel: true, SimilarityScore: best, SimilarTo: ""}
}

// FilterAll returns the novel subset of ideas, preserving order.
func (f *Filter) FilterAll(ideas []string) []string {
	var out []string
	for _, idea := range ideas {
		if f.Filter(idea).IsNovel {
			out = append(out, idea)
		}
	}
	return out
}

// Reset clears all accepted state.
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = make(map[[16]byte]struct{})
	f.accepted = nil
}

// Normalize lowercases, strips non-word characters, and collapses runs of
// whitespace, producing the canonical form used for hashing and keywords.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWordRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Keywords extracts the stop-word-free token set of a normalized string.
func Keywords(norm string) map[string]struct{} {
	kw := make(map[string]struct{})
	for _, tok := range strings.Fields(norm) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if len(tok) < 2 {
			continue
		}
		kw[tok] = struct{}{}
	}
	return kw
}

// Jaccard computes |a∩b| / |a∪b|. Two empty sets are identical (1.0).
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Similarity is the Jaccard similarity of two raw idea strings.
func Similarity(a, b string) float64 {
	return Jaccard(Keywords(Normalize(a)), Keywords(Normalize(b)))
}

func hash128(s string) [16]byte {
	h := fnv.New128a()
	h.Write([]byte(s))
	var out [16]byte
	h.Sum(out[:0])
	return out
}
