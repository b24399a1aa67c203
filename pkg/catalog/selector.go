package catalog

import (
	"strings"
	"unicode"
)

// ChartSpec is the resolved chart family for one request. It is built only
// from a catalog entry, so its family always exists in the catalog.
type ChartSpec struct {
	Family       string   `json:"family"`
	Shape        Shape    `json:"shape"`
	SeriesType   string   `json:"series_type"`
	DefaultRows  int      `json:"default_rows"`
	DefaultTheme string   `json:"default_theme"`
	Scripts      []string `json:"scripts"`
	Description  string   `json:"description"`
}

// Spec builds the ChartSpec for a family.
func (c *Catalog) Spec(f Family) ChartSpec {
	return ChartSpec{
		Family:       f.Name,
		Shape:        f.Shape,
		SeriesType:   f.SeriesType,
		DefaultRows:  f.DefaultRows,
		DefaultTheme: f.Theme,
		Scripts:      c.Scripts(f),
		Description:  f.Description,
	}
}

// Matcher picks the family that best fits a free-text description.
// It reports false when nothing matches.
type Matcher interface {
	Match(text string, families []Family) (Family, bool)
}

// Selector maps free text to a [ChartSpec].
type Selector struct {
	catalog *Catalog
	matcher Matcher
}

// NewSelector returns a selector over c. A nil matcher selects
// [KeywordMatcher].
func NewSelector(c *Catalog, m Matcher) *Selector {
	if m == nil {
		m = KeywordMatcher{}
	}
	return &Selector{catalog: c, matcher: m}
}

// Select resolves a request:
//
//  1. a hint naming a catalog family (case-insensitive) wins
//  2. otherwise the matcher scores the hint and the description
//  3. otherwise the catalog default family (Line)
//
// Select is pure and never returns a family absent from the catalog.
func (s *Selector) Select(text, hint string) ChartSpec {
	if f, ok := s.catalog.Family(hint); ok {
		return s.catalog.Spec(f)
	}

	query := strings.TrimSpace(hint + " " + text)
	if f, ok := s.matcher.Match(query, s.catalog.families); ok {
		// Guard against matchers returning entries from elsewhere.
		if known, ok := s.catalog.Family(f.Name); ok {
			return s.catalog.Spec(known)
		}
	}
	return s.catalog.Spec(s.catalog.DefaultFamily())
}

// KeywordMatcher scores families by keyword phrases found in the text and,
// with lower weight, by words shared with the family description. Ties go to
// the family listed first in the catalog.
type KeywordMatcher struct{}

const (
	phraseWeight  = 10
	overlapWeight = 1
)

// Match implements [Matcher].
func (KeywordMatcher) Match(text string, families []Family) (Family, bool) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Family{}, false
	}
	present := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		present[t] = true
	}

	best, bestScore := -1, 0
	for i, f := range families {
		score := 0
		phrases := append([]string{f.Name}, f.Keywords...)
		seen := map[string]bool{}
		for _, p := range phrases {
			pt := tokenize(p)
			key := strings.Join(pt, " ")
			if len(pt) == 0 || seen[key] {
				continue
			}
			seen[key] = true
			if containsRun(tokens, pt) {
				score += phraseWeight * len(pt)
			}
		}
		for _, w := range uniqueWords(f.Description) {
			if present[w] {
				score += overlapWeight
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Family{}, false
	}
	return families[best], true
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "by": true,
	"chart": true, "for": true, "in": true, "of": true, "on": true, "or": true,
	"per": true, "show": true, "the": true, "to": true, "with": true,
	"each": true, "several": true, "same": true, "over": true, "into": true,
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func uniqueWords(s string) []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range tokenize(s) {
		if len(w) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// containsRun reports whether needle occurs as a contiguous run in hay.
func containsRun(hay, needle []string) bool {
	for i := 0; i+len(needle) <= len(hay); i++ {
		match := true
		for j := range needle {
			if hay[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
