package classify

import (
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// phraseSet finds which phrases of a fixed dictionary occur in a text, by
// substring, in one pass.
type phraseSet struct {
	// The automaton keeps per-call scratch state, so Match is serialized.
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
	phrases []string
}

func newPhraseSet(phrases []string) *phraseSet {
	seen := make(map[string]struct{}, len(phrases))
	unique := make([]string, 0, len(phrases))

	for _, p := range phrases {
		p = fold(p)
		if p == "" {
			continue
		}

		if _, dup := seen[p]; dup {
			continue
		}

		seen[p] = struct{}{}
		unique = append(unique, p)
	}

	s := &phraseSet{phrases: unique}
	if len(unique) > 0 {
		s.matcher = ahocorasick.NewStringMatcher(unique)
	}

	return s
}

// distinct returns the phrases found in an already folded text.
func (s *phraseSet) distinct(folded string) []string {
	if s.matcher == nil || folded == "" {
		return nil
	}

	s.mu.Lock()
	hits := s.matcher.Match([]byte(folded))
	s.mu.Unlock()

	out := make([]string, 0, len(hits))
	for _, idx := range hits {
		if idx >= 0 && idx < len(s.phrases) {
			out = append(out, s.phrases[idx])
		}
	}

	return out
}

// fold lower-cases with French rules and composes accents so that keywords
// and text share one byte representation.
func fold(s string) string {
	return cases.Lower(language.French).String(norm.NFC.String(s))
}
