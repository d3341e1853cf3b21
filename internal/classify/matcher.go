package classify

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// keywordSet matches a fixed keyword list against text in a single pass.
// Matching is case-insensitive substring matching.
type keywordSet struct {
	matcher *ahocorasick.Matcher
}

func newKeywordSet(keywords []string) *keywordSet {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			normalized = append(normalized, kw)
		}
	}

	set := &keywordSet{}
	if len(normalized) > 0 {
		set.matcher = ahocorasick.NewStringMatcher(normalized)
	}
	return set
}

// Contains reports whether any keyword occurs in lowered text
func (s *keywordSet) Contains(lowered string) bool {
	if s.matcher == nil {
		return false
	}
	return len(s.matcher.Match([]byte(lowered))) > 0
}

// First returns the index of the earliest-declared keyword that occurs in
// lowered text, or -1.
func (s *keywordSet) First(lowered string) int {
	if s.matcher == nil {
		return -1
	}
	first := -1
	for _, idx := range s.matcher.Match([]byte(lowered)) {
		if first == -1 || idx < first {
			first = idx
		}
	}
	return first
}
