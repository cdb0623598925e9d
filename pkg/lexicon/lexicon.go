// Package lexicon holds the fused word list: candidate entries from each
// lexical source, the precedence rules that merge them, and the per-character
// level index derived from the result.
package lexicon

import (
	"unicode/utf8"
)

// Source tags identify where an Entry came from.
const (
	SourceHSK        = "drkameleon"
	SourceWiktionary = "kaikki"
)

// Entry is one sense of a word under a single part of speech.
type Entry struct {
	POS         string   `json:"pos"`
	Pinyin      []string `json:"pinyin"`
	Definitions []string `json:"definitions"`
	Source      string   `json:"source"`
}

// Word is a canonical headword with its level, frequency rank and entries.
type Word struct {
	Headword      string  `json:"word"`
	Level         int     `json:"level"`
	FrequencyRank int     `json:"frequency"`
	Entries       []Entry `json:"entries"`
}

// Len returns the headword length in characters.
func (w *Word) Len() int { return utf8.RuneCountInString(w.Headword) }

// Headword is one row of the authoritative frequency list.
type Headword struct {
	Text          string
	Level         int
	FrequencyRank int
}

// Candidates maps headwords to the entries one source proposes for them.
type Candidates struct {
	Source  string
	Entries map[string][]Entry
}

// NewCandidates returns an empty candidate set tagged with source.
func NewCandidates(source string) Candidates {
	return Candidates{Source: source, Entries: make(map[string][]Entry)}
}

// Add merges e into the candidates for headword, unioning with any entry
// that already carries the same POS label.
func (c Candidates) Add(headword string, e Entry) {
	if e.Source == "" {
		e.Source = c.Source
	}
	c.Entries[headword] = MergeEntry(c.Entries[headword], e)
}

// FrequencyList is the authoritative source: it fixes the word set, each
// word's level and rank, and the iteration order used downstream.
type FrequencyList struct {
	Headwords  []Headword
	Candidates Candidates
}

// Lexicon is the fused word aggregate. It is written only by Fuse; a word's
// level cannot change once added.
type Lexicon struct {
	words map[string]*Word
	order []string
}

func newLexicon(capacity int) *Lexicon {
	return &Lexicon{
		words: make(map[string]*Word, capacity),
		order: make([]string, 0, capacity),
	}
}

// FromWords builds a lexicon from an already-fused word list, as loaded from
// a cached artifact. Duplicate headwords keep their first occurrence.
func FromWords(words []*Word) *Lexicon {
	lx := newLexicon(len(words))
	for _, w := range words {
		lx.add(w)
	}
	return lx
}

func (lx *Lexicon) add(w *Word) bool {
	if _, exists := lx.words[w.Headword]; exists {
		return false
	}
	lx.words[w.Headword] = w
	lx.order = append(lx.order, w.Headword)
	return true
}

// Word looks up a headword.
func (lx *Lexicon) Word(headword string) (*Word, bool) {
	w, ok := lx.words[headword]
	return w, ok
}

// Words returns every word in frequency-list order.
func (lx *Lexicon) Words() []*Word {
	out := make([]*Word, len(lx.order))
	for i, h := range lx.order {
		out[i] = lx.words[h]
	}
	return out
}

// Headwords returns the headwords in frequency-list order.
func (lx *Lexicon) Headwords() []string {
	out := make([]string, len(lx.order))
	copy(out, lx.order)
	return out
}

// Len returns the number of words.
func (lx *Lexicon) Len() int { return len(lx.order) }

// MaxWordLen returns the longest headword length in characters.
func (lx *Lexicon) MaxWordLen() int {
	longest := 0
	for _, h := range lx.order {
		if n := utf8.RuneCountInString(h); n > longest {
			longest = n
		}
	}
	return longest
}
