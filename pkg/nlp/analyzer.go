package nlp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-ego/gse"

	"github.com/japaniel/hskcorpus/pkg/lexicon"
)

// Analyzer is the offline tokenizer and tagger. Han text is segmented by a
// gse DAG search over a dictionary holding only the lexicon headwords, and
// each token is tagged with the PKU code of the word's first entry.
type Analyzer struct {
	lx  *lexicon.Lexicon
	seg *gse.Segmenter
}

// NewAnalyzer creates an analyzer over lx.
func NewAnalyzer(lx *lexicon.Lexicon) (*Analyzer, error) {
	a := &Analyzer{lx: lx}
	if lx.Len() == 0 {
		return a, nil
	}

	dict := make([]map[string]string, 0, lx.Len())
	for _, w := range lx.Words() {
		if strings.ContainsFunc(w.Headword, unicode.IsSpace) {
			continue
		}
		entry := map[string]string{"text": w.Headword, "freq": strconv.Itoa(dictFreq(w.FrequencyRank))}
		if len(w.Entries) > 0 {
			entry["pos"] = lexicon.PKUCode(w.Entries[0].POS)
		}
		dict = append(dict, entry)
	}

	seg := &gse.Segmenter{}
	seg.Dict = gse.NewDict()
	seg.Init()
	if err := seg.LoadDictMap(dict); err != nil {
		return nil, fmt.Errorf("load segmenter dictionary: %w", err)
	}
	a.seg = seg
	return a, nil
}

// dictFreq turns a frequency rank into a dictionary weight. Unranked words
// get the weight of a common word.
func dictFreq(rank int) int {
	if rank <= 0 {
		return 10000
	}
	return max(100, 1000000/rank)
}

// Tokenize implements Tokenizer.
func (a *Analyzer) Tokenize(ctx context.Context, texts []string) ([][]string, error) {
	out := make([][]string, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = a.Segment(text)
	}
	return out, nil
}

// Segment breaks one text into tokens. Runs of digits and ASCII letters stay
// together, Han runs go through the segmenter and every other character is
// its own token. A token is either a lexicon word or a single character.
func (a *Analyzer) Segment(text string) []string {
	runes := []rune(text)
	var tokens []string

	for i := 0; i < len(runes); {
		switch r := runes[i]; {
		case unicode.IsSpace(r):
			i++
		case isAlnum(r):
			j := i + 1
			for j < len(runes) && (isAlnum(runes[j]) || runes[j] == '.' || runes[j] == '%') {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
		case unicode.Is(unicode.Han, r):
			j := i + 1
			for j < len(runes) && unicode.Is(unicode.Han, runes[j]) {
				j++
			}
			tokens = append(tokens, a.cutHan(string(runes[i:j]))...)
			i = j
		default:
			tokens = append(tokens, string(r))
			i++
		}
	}
	return tokens
}

func (a *Analyzer) cutHan(run string) []string {
	var out []string
	if a.seg != nil {
		for _, tok := range a.seg.Cut(run, false) {
			if _, ok := a.lx.Word(tok); ok || utf8.RuneCountInString(tok) == 1 {
				out = append(out, tok)
				continue
			}
			out = append(out, splitRunes(tok)...)
		}
		return out
	}
	return splitRunes(run)
}

func splitRunes(s string) []string {
	out := make([]string, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Tag implements PosTagger.
func (a *Analyzer) Tag(ctx context.Context, tokens [][]string) ([][]string, error) {
	out := make([][]string, len(tokens))
	for i, toks := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		codes := make([]string, len(toks))
		for j, tok := range toks {
			codes[j] = a.code(tok)
		}
		out[i] = codes
	}
	return out, nil
}

func (a *Analyzer) code(token string) string {
	if w, ok := a.lx.Word(token); ok && len(w.Entries) > 0 {
		return lexicon.PKUCode(w.Entries[0].POS)
	}
	r, _ := utf8.DecodeRuneInString(token)
	switch {
	case unicode.IsDigit(r):
		return "m"
	case unicode.IsPunct(r) || unicode.IsSymbol(r) || r == '　':
		return "w"
	default:
		return "x"
	}
}

func isAlnum(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsDigit(r) || unicode.IsLetter(r))
}

// SplitSentences splits text on 。！？ and newlines, keeping the delimiter
// with its sentence and dropping blank pieces.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	for _, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)
		if r == '。' || r == '！' || r == '？' {
			flush()
		}
	}
	flush()
	return sentences
}
