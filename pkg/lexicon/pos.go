package lexicon

import "strings"

// Unclassified is the canonical label for POS codes outside the PKU table.
const Unclassified = "unclassified"

// pkuPOS maps the first letter of a PKU tag to its canonical label.
var pkuPOS = map[byte]string{
	'a': "adjective",
	'b': "non-predicate adjective",
	'c': "conjunction",
	'd': "adverb",
	'e': "interjection",
	'f': "directional locality",
	'g': "morpheme",
	'h': "prefix",
	'i': "idiom",
	'j': "abbreviation",
	'k': "suffix",
	'l': "fixed expressions",
	'm': "numeral",
	'n': "noun",
	'o': "onomatopoeia",
	'p': "preposition",
	'q': "classifier",
	'r': "pronoun",
	's': "space word",
	't': "time word",
	'u': "auxiliary",
	'v': "verb",
	'w': "symbol and non-sentential punctuation",
	'x': Unclassified,
	'y': "modal particle",
	'z': "descriptive",
}

// pkuCode is the reverse of pkuPOS, used by taggers that only know labels.
var pkuCode = func() map[string]string {
	m := make(map[string]string, len(pkuPOS))
	for k, v := range pkuPOS {
		m[v] = string(k)
	}
	return m
}()

// wiktionaryPOS maps Kaikki part-of-speech names to canonical labels.
var wiktionaryPOS = map[string]string{
	"noun":         "noun",
	"verb":         "verb",
	"adj":          "adjective",
	"adv":          "adverb",
	"num":          "numeral",
	"classifier":   "classifier",
	"pron":         "pronoun",
	"prep":         "preposition",
	"postp":        "directional locality",
	"conj":         "conjunction",
	"intj":         "interjection",
	"particle":     "auxiliary",
	"phrase":       "fixed expressions",
	"proverb":      "idiom",
	"idiom":        "idiom",
	"suffix":       "suffix",
	"prefix":       "prefix",
	"affix":        "morpheme",
	"abbrev":       "abbreviation",
	"onomatopoeia": "onomatopoeia",
	"det":          "pronoun",
	"punct":        "symbol and non-sentential punctuation",
}

// CanonicalPOS translates a PKU tag (e.g. "nr", "vn", "w") to its canonical
// label by first letter. Unknown or empty codes map to Unclassified.
func CanonicalPOS(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return Unclassified
	}
	c := code[0]
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	if label, ok := pkuPOS[c]; ok {
		return label
	}
	return Unclassified
}

// PKUCode returns the single-letter PKU code for a canonical label, or "x".
func PKUCode(label string) string {
	if code, ok := pkuCode[label]; ok {
		return code
	}
	return "x"
}

// WiktionaryPOS translates a Kaikki pos name. ok is false for names with no
// canonical equivalent.
func WiktionaryPOS(name string) (string, bool) {
	label, ok := wiktionaryPOS[strings.ToLower(strings.TrimSpace(name))]
	return label, ok
}

// Labels returns every canonical POS label in PKU table order.
func Labels() []string {
	out := make([]string, 0, len(pkuPOS))
	for c := byte('a'); c <= 'z'; c++ {
		if label, ok := pkuPOS[c]; ok {
			out = append(out, label)
		}
	}
	return out
}
