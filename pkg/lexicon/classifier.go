package lexicon

import (
	"slices"
	"strings"
)

// PosClassifier labels one definition of a headword with a canonical POS.
type PosClassifier interface {
	Classify(headword, definition string) string
}

// RuleClassifier is a deterministic keyword classifier for English glosses.
type RuleClassifier struct{}

// Classify implements PosClassifier.
func (RuleClassifier) Classify(_, definition string) string {
	d := strings.ToLower(strings.TrimSpace(definition))
	switch {
	case d == "":
		return "noun"
	case strings.HasPrefix(d, "to "):
		return "verb"
	case strings.HasPrefix(d, "classifier for") || strings.HasPrefix(d, "cl. for") || strings.HasPrefix(d, "measure word"):
		return "classifier"
	case strings.HasPrefix(d, "(particle") || strings.HasPrefix(d, "particle"):
		return "auxiliary"
	case strings.HasPrefix(d, "(onom.") || strings.HasPrefix(d, "onomat"):
		return "onomatopoeia"
	case strings.HasPrefix(d, "(interj") || strings.HasPrefix(d, "interjection"):
		return "interjection"
	case strings.HasPrefix(d, "a ") || strings.HasPrefix(d, "an ") || strings.HasPrefix(d, "the "):
		return "noun"
	}

	first := d
	if i := strings.IndexAny(d, " ;,("); i > 0 {
		first = d[:i]
	}
	switch {
	case strings.HasSuffix(first, "ly") && len(first) > 3:
		return "adverb"
	case strings.HasSuffix(first, "ful") || strings.HasSuffix(first, "ous") ||
		strings.HasSuffix(first, "ive") || strings.HasSuffix(first, "able") ||
		strings.HasSuffix(first, "ible") || strings.HasSuffix(first, "ic"):
		return "adjective"
	}
	return "noun"
}

// ResolveAmbiguous groups definitions of a multi-POS record into one entry
// per classified label. Every entry shares pinyin. A label outside allowed
// falls back to allowed[0]; with no allowed labels the classifier decides.
func ResolveAmbiguous(c PosClassifier, headword string, allowed []string, pinyin, definitions []string, source string) []Entry {
	var entries []Entry
	for _, def := range definitions {
		label := c.Classify(headword, def)
		if len(allowed) > 0 && !slices.Contains(allowed, label) {
			label = allowed[0]
		}
		entries = MergeEntry(entries, Entry{
			POS:         label,
			Pinyin:      pinyin,
			Definitions: []string{def},
			Source:      source,
		})
	}
	return entries
}
