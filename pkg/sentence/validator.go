package sentence

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Reason explains why a sentence was rejected.
type Reason string

const (
	ReasonConversion  Reason = "conversion"
	ReasonBoundary    Reason = "boundary"
	ReasonEnumeration Reason = "enumeration"
	ReasonLatin       Reason = "latin"
	ReasonVocabulary  Reason = "vocabulary"
	ReasonLength      Reason = "length"
	ReasonTrivial     Reason = "trivial"
)

// Default length bounds, in characters.
const (
	DefaultMinLength = 5
	DefaultMaxLength = 36
)

// Converter converts traditional-script text to simplified script.
type Converter interface {
	ToSimplified(text string) (string, error)
}

// Vocabulary reports which characters are known.
type Vocabulary interface {
	Known(r rune) bool
}

// Outcome is the terminal state of one validation. Text is set only when
// Accepted is true.
type Outcome struct {
	Accepted bool
	Text     string
	Reason   Reason
}

func reject(reason Reason) Outcome { return Outcome{Reason: reason} }

var enumerationPrefix = regexp.MustCompile(
	`^(?:第[0-9零〇一二三四五六七八九十百]+[、。.]|[0-9]+[、）]|[0-9]+[。.](?:[^0-9]|$)|[零〇一二三四五六七八九十百]+、|（[0-9零〇一二三四五六七八九十百]+）)`)

// Validator normalizes raw sentences and decides whether they belong in the
// corpus. It holds no mutable state and is safe for concurrent use.
type Validator struct {
	Converter Converter
	Chars     Vocabulary
	Min       int
	Max       int
}

// NewValidator returns a Validator with the default length bounds.
func NewValidator(conv Converter, chars Vocabulary) *Validator {
	return &Validator{Converter: conv, Chars: chars, Min: DefaultMinLength, Max: DefaultMaxLength}
}

// Validate runs the normalization and rejection steps in order, stopping at
// the first failure.
func (v *Validator) Validate(raw string) Outcome {
	s, ok := v.normalize(raw)
	if !ok {
		return reject(ReasonConversion)
	}

	if !v.boundaryOK(s) {
		return reject(ReasonBoundary)
	}
	if enumerationPrefix.MatchString(s) {
		return reject(ReasonEnumeration)
	}

	distinct := make(map[rune]struct{})
	for _, r := range s {
		if unicode.Is(unicode.Latin, r) {
			return reject(ReasonLatin)
		}
	}
	for _, r := range s {
		if v.Chars.Known(r) {
			distinct[r] = struct{}{}
			continue
		}
		if !IsAllowedSymbol(r) {
			return reject(ReasonVocabulary)
		}
	}

	if n := utf8.RuneCountInString(s); n < v.Min || n > v.Max {
		return reject(ReasonLength)
	}
	if len(distinct) <= 2 {
		return reject(ReasonTrivial)
	}
	return Outcome{Accepted: true, Text: s}
}

// maxNormalizePasses bounds the normalization loop. Bracket repair can expose
// new leading whitespace or marks, so one pass is not always stable.
const maxNormalizePasses = 8

// normalize repeats the text transforms until the output no longer changes,
// so accepted text validates to itself.
func (v *Validator) normalize(raw string) (string, bool) {
	s := raw
	for i := 0; i < maxNormalizePasses; i++ {
		next := width.Fold.String(norm.NFC.String(strings.TrimSpace(s)))
		if v.Converter != nil {
			converted, err := v.Converter.ToSimplified(next)
			if err != nil {
				return "", false
			}
			next = converted
		}
		next = RepairBrackets(StandardizePunctuation(next))
		if next == s {
			return s, true
		}
		s = next
	}
	return "", false
}

func (v *Validator) boundaryOK(s string) bool {
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	if s == "" {
		return false
	}
	if strings.ContainsRune(illegalOpeners, first) {
		return false
	}
	return strings.ContainsRune(Terminal, last)
}
