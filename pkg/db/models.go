package db

import (
	"time"

	"github.com/japaniel/hskcorpus/pkg/cloze"
	"github.com/japaniel/hskcorpus/pkg/lexicon"
	"github.com/japaniel/hskcorpus/pkg/sentence"
)

// Pass names used as keys in the failures table.
const (
	PassTag       = "tag"
	PassTranslate = "translate"
)

// TagRecord is a cached segmentation, tagging and clause verdict for one
// sentence.
type TagRecord struct {
	Sentence  string
	Tokens    []string
	POS       []string
	Clause    bool
	UpdatedAt time.Time
}

// Failure tracks how often a pass failed on a sentence.
type Failure struct {
	Pass      string
	Sentence  string
	Attempts  int
	LastError string
	UpdatedAt time.Time
}

// Character is an exported character row.
type Character struct {
	Text   string
	Level  int
	Pinyin []string
}

// Corpus is everything written by WriteCorpus.
type Corpus struct {
	Words      []*lexicon.Word
	Characters []Character
	Sentences  []*sentence.Sentence
	Links      []cloze.Link
}
