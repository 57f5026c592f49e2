// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stimulant flags free-text records that signal stimulant use,
// following the CDC stimulant search algorithm.
package stimulant

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Step names, in the order they appear in traced output.
const (
	StepCodes        = "codes"
	StepInclusion1   = "inclusion1"
	StepInclusion2   = "inclusion2"
	StepExclusion    = "exclusion"
	StepCrackExclude = "crack_exclude"
	StepRumCoke      = "rum_coke"
)

// Steps lists the step names in output order.
var Steps = []string{StepCodes, StepInclusion1, StepInclusion2, StepExclusion, StepCrackExclude, StepRumCoke}

// matcher matches any of a group of terms. A group with no terms never
// matches.
type matcher struct {
	any   *regexp.Regexp
	terms []string
	each  []*regexp.Regexp
}

func newMatcher(terms []string) (*matcher, error) {
	m := &matcher{}
	for _, t := range terms {
		if t == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + t)
		if err != nil {
			return nil, fmt.Errorf("compiling term %q: %w", t, err)
		}
		m.terms = append(m.terms, t)
		m.each = append(m.each, re)
	}
	if len(m.terms) > 0 {
		alts := make([]string, len(m.terms))
		for i, t := range m.terms {
			alts[i] = "(?:" + t + ")"
		}
		m.any = regexp.MustCompile("(?i)" + strings.Join(alts, "|"))
	}
	return m, nil
}

func (m *matcher) match(text string) bool {
	return m.any != nil && m.any.MatchString(text)
}

// count records the number of matches of each term in text and reports
// whether any term matched.
func (m *matcher) count(text string, counts map[string]int) bool {
	hit := false
	for i, re := range m.each {
		n := len(re.FindAllStringIndex(text, -1))
		counts[m.terms[i]] = n
		if n > 0 {
			hit = true
		}
	}
	return hit
}

// CDC applies the CDC stimulant algorithm to text.
type CDC struct {
	codes, inclusion1, inclusion2, exclusion *matcher
	crack, crackPairs, rum, coke             *matcher
}

// NewCDC compiles patterns.
func NewCDC(p Patterns) (*CDC, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	c := &CDC{}
	groups := []struct {
		dst   **matcher
		terms []string
		name  string
	}{
		{&c.codes, p.codeTerms(), StepCodes},
		{&c.inclusion1, p.Inclusion1, StepInclusion1},
		{&c.inclusion2, p.Inclusion2, StepInclusion2},
		{&c.exclusion, p.Exclusion, StepExclusion},
		{&c.crack, []string{p.Crack}, "crack"},
		{&c.crackPairs, p.CrackPairs, "crack_pairs"},
		{&c.rum, []string{p.Rum}, "rum"},
		{&c.coke, []string{p.Coke}, "coke"},
	}

	for _, g := range groups {
		m, err := newMatcher(g.terms)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", g.name, err)
		}
		*g.dst = m
	}
	return c, nil
}

// Result is the outcome of the algorithm for one record.
type Result struct {
	Signal bool
	Steps  map[string]bool

	// Counts holds per-term match counts. It is only set by Trace.
	Counts map[string]int
}

func resolve(steps map[string]bool) bool {
	if steps[StepCodes] {
		return true
	}
	return steps[StepInclusion1] &&
		steps[StepInclusion2] &&
		!steps[StepExclusion] &&
		!steps[StepCrackExclude] &&
		!steps[StepRumCoke]
}

// Match runs the algorithm on text.
func (c *CDC) Match(text string) Result {
	steps := map[string]bool{
		StepCodes:        c.codes.match(text),
		StepInclusion1:   c.inclusion1.match(text),
		StepInclusion2:   c.inclusion2.match(text),
		StepExclusion:    c.exclusion.match(text),
		StepCrackExclude: c.crack.match(text) && c.crackPairs.match(text),
		StepRumCoke:      c.rum.match(text) && c.coke.match(text),
	}
	return Result{Signal: resolve(steps), Steps: steps}
}

// Trace runs the algorithm on text and also counts matches of every term.
// Its signal always equals Match's.
func (c *CDC) Trace(text string) Result {
	counts := map[string]int{}
	crack := c.crack.count(text, counts)
	pairs := c.crackPairs.count(text, counts)
	rum := c.rum.count(text, counts)
	coke := c.coke.count(text, counts)

	steps := map[string]bool{
		StepCodes:        c.codes.count(text, counts),
		StepInclusion1:   c.inclusion1.count(text, counts),
		StepInclusion2:   c.inclusion2.count(text, counts),
		StepExclusion:    c.exclusion.count(text, counts),
		StepCrackExclude: crack && pairs,
		StepRumCoke:      rum && coke,
	}
	return Result{Signal: resolve(steps), Steps: steps, Counts: counts}
}

// Terms returns every distinct term, sorted. Traced output has one count
// column per term.
func (c *CDC) Terms() []string {
	seen := map[string]bool{}
	for _, m := range []*matcher{c.codes, c.inclusion1, c.inclusion2, c.exclusion, c.crack, c.crackPairs, c.rum, c.coke} {
		for _, t := range m.terms {
			seen[t] = true
		}
	}
	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}
