// Package fieldmark pulls short identifying phrases ("blue crest", "black necklace")
// out of free-text species descriptions. Phrases are display hints only and never
// take part in ranking.
package fieldmark

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/birdmatch/internal/domain"
)

// DefaultMax caps the number of marks returned per description.
const DefaultMax = 5

// Rule maps a pattern to the phrase it contributes.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	// Normalize rewrites a raw match. Nil means lower case with collapsed whitespace.
	Normalize func(string) string
}

const (
	colorTerms = `black|white|gr[ae]y|brown|red|orange|yellow|green|blue|purple|pink|buff|` +
		`rufous|chestnut|olive|tawny|cinnamon|scarlet|crimson|golden|rusty|dark|pale|bright`
	bodyParts = `crest|cap|crown|head|face|mask|eyes?|throat|breast|chest|belly|back|` +
		`wings?|tail|bill|legs?|rump|nape|flanks?|underparts`
	markings = `necklace|collar|patch|stripe|bar|spot`
)

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "color-body-part",
			Pattern: regexp.MustCompile(`(?i)\b(?:` + colorTerms + `)(?:ish)?\s+(?:` + bodyParts + `)\b`),
		},
		{
			Name:    "marking",
			Pattern: regexp.MustCompile(`(?i)\b\w+\s+(?:` + markings + `)s?\b`),
		},
	}
}

// ParseRules compiles extra patterns from configuration. Matching is case-insensitive.
func ParseRules(patterns []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("field mark pattern %d: %w", i, err)
		}
		rules = append(rules, Rule{Name: fmt.Sprintf("custom-%d", i), Pattern: re})
	}
	return rules, nil
}

// Extractor applies rules to descriptions. Safe for concurrent use.
type Extractor struct {
	rules []Rule
	max   int
}

// NewExtractor creates an extractor. No rules means DefaultRules; max <= 0 means DefaultMax.
func NewExtractor(maxMarks int, rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if maxMarks <= 0 {
		maxMarks = DefaultMax
	}
	return &Extractor{rules: rules, max: maxMarks}
}

type match struct {
	pos  int
	rule int
	text string
}

// Extract returns lower-cased, deduplicated phrases in the order they appear in
// the description, capped at the configured maximum. Never nil.
func (e *Extractor) Extract(description string) []string {
	marks := []string{}
	if strings.TrimSpace(description) == "" {
		return marks
	}

	var found []match
	for ri, rule := range e.rules {
		for _, loc := range rule.Pattern.FindAllStringIndex(description, -1) {
			found = append(found, match{pos: loc[0], rule: ri, text: normalize(rule, description[loc[0]:loc[1]])})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].pos != found[j].pos {
			return found[i].pos < found[j].pos
		}
		return found[i].rule < found[j].rule
	})

	seen := make(map[string]struct{}, len(found))
	for _, m := range found {
		if m.text == "" {
			continue
		}
		if _, dup := seen[m.text]; dup {
			continue
		}
		seen[m.text] = struct{}{}
		marks = append(marks, m.text)
		if len(marks) == e.max {
			break
		}
	}
	return marks
}

func normalize(r Rule, raw string) string {
	if r.Normalize != nil {
		return r.Normalize(raw)
	}
	return strings.ToLower(domain.NormalizeWhitespace(raw))
}
