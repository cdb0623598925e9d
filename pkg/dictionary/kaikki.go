package dictionary

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/japaniel/hskcorpus/pkg/lexicon"
)

// Simplifier converts traditional-script text to simplified script.
type Simplifier interface {
	ToSimplified(text string) (string, error)
}

// KaikkiRecord is one line of the Kaikki Chinese JSONL dump. Only the fields
// the loader reads are declared.
type KaikkiRecord struct {
	Word   string        `json:"word"`
	POS    string        `json:"pos"`
	Senses []KaikkiSense `json:"senses"`
	Sounds []KaikkiSound `json:"sounds"`
}

type KaikkiSense struct {
	Glosses  []string        `json:"glosses"`
	Examples []KaikkiExample `json:"examples"`
}

type KaikkiExample struct {
	Text string   `json:"text"`
	Tags []string `json:"tags"`
}

type KaikkiSound struct {
	ZhPron string   `json:"zh_pron"`
	Tags   []string `json:"tags"`
}

// Example is a usage sentence attached to a Wiktionary headword.
type Example struct {
	Headword string
	Text     string
}

// KaikkiResult is everything one pass over the dump yields.
type KaikkiResult struct {
	Candidates lexicon.Candidates
	Examples   []Example
	Stats      LoadStats
}

var (
	classifierNote = regexp.MustCompile(` \(Classifier: .*\)`)
	superscripts   = regexp.MustCompile(`[¹²³⁴⁵]`)
)

var skippedKaikkiPOS = []string{"character", "name", "soft-redirect"}

var droppedGlossPrefixes = []string{"alternative ", "synonym of", "short for", "erhua"}

const maxKaikkiLine = 64 << 20

// LoadKaikki reads the JSONL dump at path. Entries are kept only for
// headwords accepted by inList; examples are collected for every record.
func LoadKaikki(path string, conv Simplifier, inList func(string) bool) (KaikkiResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return KaikkiResult{}, err
	}
	defer f.Close()
	return ParseKaikki(f, conv, inList)
}

// ParseKaikki is LoadKaikki over an arbitrary reader.
func ParseKaikki(r io.Reader, conv Simplifier, inList func(string) bool) (KaikkiResult, error) {
	res := KaikkiResult{Candidates: lexicon.NewCandidates(lexicon.SourceWiktionary)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), maxKaikkiLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		res.Stats.Total++

		var rec KaikkiRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.Word == "" {
			res.Stats.Malformed++
			continue
		}
		headword, err := conv.ToSimplified(rec.Word)
		if err != nil {
			res.Stats.Malformed++
			continue
		}

		res.Examples = append(res.Examples, rec.examples(headword)...)

		if !inList(headword) {
			res.Stats.Skipped++
			continue
		}
		entry, ok := rec.entry()
		if !ok {
			res.Stats.Skipped++
			continue
		}
		res.Candidates.Add(headword, entry)
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan kaikki: %w", err)
	}
	return res, nil
}

func (r KaikkiRecord) entry() (lexicon.Entry, bool) {
	if slices.Contains(skippedKaikkiPOS, r.POS) {
		return lexicon.Entry{}, false
	}
	pos, ok := lexicon.WiktionaryPOS(r.POS)
	if !ok {
		return lexicon.Entry{}, false
	}

	var defs []string
	for _, s := range r.Senses {
		var kept []string
		for _, g := range s.Glosses {
			if hasAnyPrefix(strings.ToLower(g), droppedGlossPrefixes) {
				continue
			}
			kept = append(kept, classifierNote.ReplaceAllString(g, ""))
		}
		if def := strings.Join(kept, "; "); def != "" {
			defs = append(defs, def)
		}
	}
	if len(defs) == 0 {
		return lexicon.Entry{}, false
	}

	pinyin, ok := r.pinyin()
	if !ok {
		return lexicon.Entry{}, false
	}
	return lexicon.Entry{
		POS:         pos,
		Pinyin:      []string{pinyin},
		Definitions: defs,
		Source:      lexicon.SourceWiktionary,
	}, true
}

// pinyin returns the first Mandarin Pinyin reading without tone superscripts.
func (r KaikkiRecord) pinyin() (string, bool) {
	for _, s := range r.Sounds {
		if !slices.Contains(s.Tags, "Mandarin") || !slices.Contains(s.Tags, "Pinyin") {
			continue
		}
		if s.ZhPron == "" || superscripts.MatchString(s.ZhPron) {
			continue
		}
		return s.ZhPron, true
	}
	return "", false
}

func (r KaikkiRecord) examples(headword string) []Example {
	var out []Example
	for _, s := range r.Senses {
		for _, ex := range s.Examples {
			if ex.Text == "" || ex.Tags == nil || slices.Contains(ex.Tags, "Classical-Chinese") {
				continue
			}
			out = append(out, Example{Headword: headword, Text: ex.Text})
		}
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
