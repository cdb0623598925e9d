// Package level assigns HSK levels and word tags to accepted sentences.
package level

import (
	"github.com/japaniel/hskcorpus/pkg/lexicon"
	"github.com/japaniel/hskcorpus/pkg/sentence"
)

// Leveler computes sentence levels from the fused lexicon and character
// index. It only reads them, so one Leveler may serve many goroutines.
type Leveler struct {
	Words *lexicon.Lexicon
	Chars *lexicon.CharacterIndex
}

// New returns a Leveler over words and chars.
func New(words *lexicon.Lexicon, chars *lexicon.CharacterIndex) *Leveler {
	return &Leveler{Words: words, Chars: chars}
}

// CharacterLevel is the highest level among the known characters of text,
// or 0 when none are known.
func (l *Leveler) CharacterLevel(text string) int {
	level := 0
	for _, r := range text {
		if lv, ok := l.Chars.Level(r); ok && lv > level {
			level = lv
		}
	}
	return level
}

// Tags pairs every token that is a known word with the canonical POS of
// its code. Occurrences are kept in token order.
func (l *Leveler) Tags(tokens, codes []string) []sentence.Tag {
	tags := make([]sentence.Tag, 0, len(tokens))
	for i, tok := range tokens {
		if _, ok := l.Words.Word(tok); !ok {
			continue
		}
		code := ""
		if i < len(codes) {
			code = codes[i]
		}
		tags = append(tags, sentence.Tag{Word: tok, POS: lexicon.CanonicalPOS(code)})
	}
	return tags
}

// WordLevel is the highest level among tagged words, or 0.
func (l *Leveler) WordLevel(tags []sentence.Tag) int {
	level := 0
	for _, t := range tags {
		if w, ok := l.Words.Word(t.Word); ok && w.Level > level {
			level = w.Level
		}
	}
	return level
}

// Apply tags s from its segmentation and sets its three level fields.
func (l *Leveler) Apply(s *sentence.Sentence, tokens, codes []string) {
	s.Tags = l.Tags(tokens, codes)
	s.CharacterLevel = l.CharacterLevel(s.Text)
	s.WordLevel = l.WordLevel(s.Tags)
	s.Level = max(s.CharacterLevel, s.WordLevel)
}
