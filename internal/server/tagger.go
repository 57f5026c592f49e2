// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/cabinet/pkg/types"
)

// maxPhraseTokens bounds the longest concept name the tagger looks for.
const maxPhraseTokens = 12

// Tagger is a dictionary NER model over concept preferred terms. It finds the
// longest known phrase at each position, comparing NFKC normalized,
// case-folded tokens.
type Tagger struct {
	phrases   map[string][]string
	maxTokens int
}

type token struct {
	key        string
	start, end int
}

// foldToken normalizes a single token for comparison. A Caser keeps state,
// so a fresh one is made per call.
func foldToken(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

func tokenize(text string) []token {
	var toks []token
	start := -1
	for i, r := range text {
		word := unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
		switch {
		case word && start < 0:
			start = i
		case !word && start >= 0:
			toks = append(toks, token{key: foldToken(text[start:i]), start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		toks = append(toks, token{key: foldToken(text[start:]), start: start, end: len(text)})
	}
	return toks
}

func phraseKey(toks []token) string {
	keys := make([]string, len(toks))
	for i, t := range toks {
		keys[i] = t.key
	}
	return strings.Join(keys, " ")
}

// NewTagger indexes every named concept.
func NewTagger(names types.ConceptNames) *Tagger {
	t := &Tagger{phrases: make(map[string][]string)}
	for cui, name := range names {
		toks := tokenize(name)
		if len(toks) == 0 || len(toks) > maxPhraseTokens {
			continue
		}
		key := phraseKey(toks)
		t.phrases[key] = append(t.phrases[key], cui)
		if len(toks) > t.maxTokens {
			t.maxTokens = len(toks)
		}
	}
	for _, cuis := range t.phrases {
		sort.Strings(cuis)
	}
	return t
}

// Size returns the number of distinct phrases.
func (t *Tagger) Size() int { return len(t.phrases) }

// Tag returns one output per matched concept, in text order. Every match
// scores 1.0.
func (t *Tagger) Tag(text string) []types.NEROutput {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	toks := tokenize(text)
	outputs := []types.NEROutput{}

	for i := 0; i < len(toks); {
		n := min(t.maxTokens, len(toks)-i)
		matched := false
		for ; n > 0; n-- {
			cuis, ok := t.phrases[phraseKey(toks[i:i+n])]
			if !ok {
				continue
			}
			entity := text[toks[i].start:toks[i+n-1].end]
			for _, cui := range cuis {
				outputs = append(outputs, types.NEROutput{CUI: cui, Entity: entity, Score: 1})
			}
			matched = true
			break
		}
		if matched {
			i += n
		} else {
			i++
		}
	}
	return outputs
}
