package dictionary

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/japaniel/hskcorpus/pkg/lexicon"
)

// ErrMalformedRecord marks a source record missing a required field.
var ErrMalformedRecord = errors.New("malformed record")

// HSKRecord matches one entry of the complete-hsk-vocabulary JSON.
type HSKRecord struct {
	Simplified string    `json:"simplified"`
	Radical    string    `json:"radical"`
	Level      []string  `json:"level"`
	Frequency  *int      `json:"frequency"`
	POS        []string  `json:"pos"`
	Forms      []HSKForm `json:"forms"`
}

type HSKForm struct {
	Traditional    string            `json:"traditional"`
	Transcriptions HSKTranscriptions `json:"transcriptions"`
	Meanings       []string          `json:"meanings"`
	Classifiers    []string          `json:"classifiers"`
}

type HSKTranscriptions struct {
	Pinyin  string `json:"pinyin"`
	Numeric string `json:"numeric"`
}

// LoadStats summarizes one source load.
type LoadStats struct {
	Total     int `yaml:"total"`
	Malformed int `yaml:"malformed"`
	Skipped   int `yaml:"skipped"`
	Ambiguous int `yaml:"ambiguous,omitempty"`
}

var (
	levelStrip       = regexp.MustCompile(`[a-zA-Z+\-]`)
	properNounPinyin = regexp.MustCompile(`[A-Z]`)
	taiwanPron       = regexp.MustCompile(` \(Taiwan pr\. .*\)`)
)

var droppedMeaningPrefixes = []string{
	"Taiwan", "(Taiwan", "Beijing pr. ", "also ", "used in ", "(used ",
	"equivalent ", "(indicates ", "abbr. ", "see ", "Kangxi radical ",
}

var droppedMeaningMarkers = []string{"(Tw)", "(Taiwan)", "variant of"}

// LoadHSKRecords reads the vocabulary file. It accepts either a bare array
// or an object wrapper { "words": [...] }.
func LoadHSKRecords(path string) ([]HSKRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var wrapped struct {
		Words []HSKRecord `json:"words"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&wrapped); err == nil && len(wrapped.Words) > 0 {
		return wrapped.Words, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var records []HSKRecord
	dec = json.NewDecoder(f)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary as object or array: %w", err)
	}
	return records, nil
}

// LoadHSK reads the frequency list at path and converts it into headwords
// and candidate entries. Records whose POS set has more than one label are
// split per definition by classifier.
func LoadHSK(path string, classifier lexicon.PosClassifier) (lexicon.FrequencyList, LoadStats, error) {
	records, err := LoadHSKRecords(path)
	if err != nil {
		return lexicon.FrequencyList{}, LoadStats{}, err
	}
	list, stats := BuildFrequencyList(records, classifier)
	return list, stats, nil
}

// BuildFrequencyList converts parsed records. Malformed records are counted
// and skipped; records without usable meanings keep their level and rank
// but contribute no entries.
func BuildFrequencyList(records []HSKRecord, classifier lexicon.PosClassifier) (lexicon.FrequencyList, LoadStats) {
	if classifier == nil {
		classifier = lexicon.RuleClassifier{}
	}
	list := lexicon.FrequencyList{Candidates: lexicon.NewCandidates(lexicon.SourceHSK)}
	var stats LoadStats

	for _, rec := range records {
		stats.Total++
		hw, err := rec.headword()
		if err != nil {
			stats.Malformed++
			continue
		}
		list.Headwords = append(list.Headwords, hw)

		forms := rec.commonForms()
		meanings := filterMeanings(forms)
		if len(meanings) == 0 {
			stats.Skipped++
			continue
		}
		pinyin := make([]string, 0, len(forms))
		for _, f := range forms {
			if f.Transcriptions.Pinyin != "" {
				pinyin = append(pinyin, f.Transcriptions.Pinyin)
			}
		}

		labels := rec.labels()
		if len(labels) == 1 {
			list.Candidates.Add(hw.Text, lexicon.Entry{
				POS:         labels[0],
				Pinyin:      pinyin,
				Definitions: meanings,
				Source:      lexicon.SourceHSK,
			})
			continue
		}
		stats.Ambiguous++
		for _, e := range lexicon.ResolveAmbiguous(classifier, hw.Text, labels, pinyin, meanings, lexicon.SourceHSK) {
			list.Candidates.Add(hw.Text, e)
		}
	}
	return list, stats
}

func (r HSKRecord) headword() (lexicon.Headword, error) {
	text := strings.TrimSpace(r.Simplified)
	if text == "" {
		return lexicon.Headword{}, fmt.Errorf("%w: missing simplified", ErrMalformedRecord)
	}
	if len(r.Level) == 0 {
		return lexicon.Headword{}, fmt.Errorf("%w: %s: missing level", ErrMalformedRecord, text)
	}
	level, err := strconv.Atoi(levelStrip.ReplaceAllString(r.Level[0], ""))
	if err != nil {
		return lexicon.Headword{}, fmt.Errorf("%w: %s: level %q", ErrMalformedRecord, text, r.Level[0])
	}
	if r.Frequency == nil {
		return lexicon.Headword{}, fmt.Errorf("%w: %s: missing frequency", ErrMalformedRecord, text)
	}
	return lexicon.Headword{Text: text, Level: level, FrequencyRank: *r.Frequency}, nil
}

// commonForms drops proper-noun readings unless they are the only form.
func (r HSKRecord) commonForms() []HSKForm {
	if len(r.Forms) == 1 {
		return r.Forms
	}
	out := make([]HSKForm, 0, len(r.Forms))
	for _, f := range r.Forms {
		if !properNounPinyin.MatchString(f.Transcriptions.Numeric) {
			out = append(out, f)
		}
	}
	return out
}

// labels returns the distinct canonical POS labels of the record in order.
func (r HSKRecord) labels() []string {
	var out []string
	for _, code := range r.POS {
		label := lexicon.CanonicalPOS(code)
		seen := false
		for _, l := range out {
			if l == label {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, label)
		}
	}
	return out
}

func filterMeanings(forms []HSKForm) []string {
	var out []string
	for _, f := range forms {
		for _, m := range f.Meanings {
			if keepMeaning(m) {
				out = append(out, taiwanPron.ReplaceAllString(m, ""))
			}
		}
	}
	return out
}

func keepMeaning(m string) bool {
	for _, p := range droppedMeaningPrefixes {
		if strings.HasPrefix(m, p) {
			return false
		}
	}
	for _, s := range droppedMeaningMarkers {
		if strings.Contains(m, s) {
			return false
		}
	}
	return true
}
