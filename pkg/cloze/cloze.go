// Package cloze scores sentence difficulty by frequency rank and links every
// word to the sentences that contain it.
package cloze

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	ahocorasick "github.com/BobuSumisu/aho-corasick"

	"github.com/japaniel/hskcorpus/pkg/lexicon"
	"github.com/japaniel/hskcorpus/pkg/sentence"
)

// MaxDifficulty is charged per character left unmatched by any word.
const MaxDifficulty = 1_000_000

func strippable(r rune) bool {
	return sentence.IsAllowedSymbol(r) || unicode.IsPunct(r) || unicode.IsSpace(r) ||
		strings.ContainsRune("〈〉·\"", r)
}

// Difficulty walks words in order and removes each one found in the
// punctuation-stripped text, tracking the highest frequency rank removed.
// Any characters left over make the result MaxDifficulty per character.
func Difficulty(text string, words []*lexicon.Word) int {
	scratch := strings.Map(func(r rune) rune {
		if strippable(r) {
			return -1
		}
		return r
	}, text)

	difficulty := 0
	for _, w := range words {
		if scratch == "" {
			break
		}
		if w.Headword == "" || !strings.Contains(scratch, w.Headword) {
			continue
		}
		scratch = strings.ReplaceAll(scratch, w.Headword, "")
		if w.FrequencyRank > difficulty {
			difficulty = w.FrequencyRank
		}
	}

	if left := utf8.RuneCountInString(scratch); left > 0 {
		return MaxDifficulty * left
	}
	return difficulty
}

// Link associates a word with a sentence containing it. The indices refer
// to the slices passed to Matcher.Links.
type Link struct {
	Word          string `json:"word"`
	Sentence      string `json:"sentence"`
	WordIndex     int    `json:"-"`
	SentenceIndex int    `json:"-"`
}

// Matcher finds every headword occurring in a sentence with one automaton
// pass per sentence.
type Matcher struct {
	words []string
	trie  *ahocorasick.Trie
}

// NewMatcher builds the automaton over headwords. Order is preserved as the
// word index of emitted links.
func NewMatcher(headwords []string) *Matcher {
	return &Matcher{
		words: headwords,
		trie:  ahocorasick.NewTrieBuilder().AddStrings(headwords).Build(),
	}
}

// Match returns the indices of the distinct headwords occurring in text, in
// ascending order.
func (m *Matcher) Match(text string) []int {
	seen := make(map[int]struct{})
	for _, match := range m.trie.MatchString(text) {
		seen[int(match.Pattern())] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// Links returns one link per (word, sentence) pair where the word is a
// substring of the sentence, sorted by word order then sentence order.
func (m *Matcher) Links(texts []string) []Link {
	var links []Link
	for j, text := range texts {
		for _, i := range m.Match(text) {
			links = append(links, Link{
				Word:          m.words[i],
				Sentence:      text,
				WordIndex:     i,
				SentenceIndex: j,
			})
		}
	}
	slices.SortFunc(links, func(a, b Link) int {
		if a.WordIndex != b.WordIndex {
			return a.WordIndex - b.WordIndex
		}
		return a.SentenceIndex - b.SentenceIndex
	})
	return links
}
