// Package filter decides whether a lot is worth ingesting from its
// condition text.
package filter

import "strings"

// Decision explains an eligibility verdict.
type Decision struct {
	Eligible bool
	// Phrase is the deny phrase that rejected the text or the allow phrase
	// that accepted it; empty when nothing matched.
	Phrase string
}

// KeywordFilter matches lower-cased phrases as substrings. Deny phrases
// always win over allow phrases.
type KeywordFilter struct {
	allow []string
	deny  []string
}

func New(allow, deny []string) *KeywordFilter {
	return &KeywordFilter{
		allow: clean(allow),
		deny:  clean(deny),
	}
}

func (f *KeywordFilter) IsEligible(conditionText string) bool {
	return f.Decide(conditionText).Eligible
}

func (f *KeywordFilter) Decide(conditionText string) Decision {
	text := strings.ToLower(conditionText)
	if text == "" {
		return Decision{}
	}
	for _, phrase := range f.deny {
		if strings.Contains(text, phrase) {
			return Decision{Eligible: false, Phrase: phrase}
		}
	}
	for _, phrase := range f.allow {
		if strings.Contains(text, phrase) {
			return Decision{Eligible: true, Phrase: phrase}
		}
	}
	return Decision{}
}

func clean(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		// an empty phrase would match every text
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
