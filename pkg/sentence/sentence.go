// Package sentence validates raw example sentences and holds the accepted
// set, keyed by normalized text.
package sentence

// Source tags, in dedup precedence order.
const (
	SourceTatoeba    = "tatoeba"
	SourceWiktionary = "kaikki"
	SourceArticle    = "article"
)

// Tag pairs a known word found in a sentence with its canonical POS.
type Tag struct {
	Word string `json:"word"`
	POS  string `json:"pos"`
}

// Sentence is an accepted sentence and everything later phases attach to it.
type Sentence struct {
	Text           string  `json:"text"`
	Source         string  `json:"source"`
	Tags           []Tag   `json:"tags"`
	CharacterLevel int     `json:"character_level"`
	WordLevel      int     `json:"word_level"`
	Level          int     `json:"level"`
	Translation    *string `json:"translation,omitempty"`
	Difficulty     int     `json:"difficulty"`
}

// Set is the ordered sentence aggregate. The first sentence added for a
// text wins; later duplicates are ignored. Set is not safe for concurrent
// mutation.
type Set struct {
	index map[string]int
	items []*Sentence
	live  int
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{index: make(map[string]int)}
}

// Add inserts s unless its text is already present. It reports whether s
// was added.
func (set *Set) Add(s *Sentence) bool {
	if _, ok := set.index[s.Text]; ok {
		return false
	}
	set.index[s.Text] = len(set.items)
	set.items = append(set.items, s)
	set.live++
	return true
}

// Remove deletes the sentence with text, if present.
func (set *Set) Remove(text string) bool {
	i, ok := set.index[text]
	if !ok {
		return false
	}
	delete(set.index, text)
	set.items[i] = nil
	set.live--
	return true
}

// Get looks up a sentence by text.
func (set *Set) Get(text string) (*Sentence, bool) {
	i, ok := set.index[text]
	if !ok {
		return nil, false
	}
	return set.items[i], true
}

// Len returns the number of sentences.
func (set *Set) Len() int { return set.live }

// Sentences returns the sentences in insertion order.
func (set *Set) Sentences() []*Sentence {
	out := make([]*Sentence, 0, set.live)
	for _, s := range set.items {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Texts returns the sentence texts in insertion order.
func (set *Set) Texts() []string {
	out := make([]string, 0, set.live)
	for _, s := range set.items {
		if s != nil {
			out = append(out, s.Text)
		}
	}
	return out
}
