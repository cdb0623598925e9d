package dictionary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/hskcorpus/pkg/lexicon"
)

const hskFixture = `[
  {
    "simplified": "爱",
    "level": ["new-1", "old-1"],
    "frequency": 120,
    "pos": ["v"],
    "forms": [{
      "traditional": "愛",
      "transcriptions": {"pinyin": "ài", "numeric": "ai4"},
      "meanings": ["to love", "variant of 愛", "Taiwan pr. ai3", "to be fond of (Taiwan pr. ai3)"]
    }]
  },
  {
    "simplified": "工作",
    "level": ["new-2+"],
    "frequency": 300,
    "pos": ["n", "vn"],
    "forms": [
      {"transcriptions": {"pinyin": "gōngzuò", "numeric": "gong1 zuo4"}, "meanings": ["to work", "job"]},
      {"transcriptions": {"pinyin": "Gōngzuò", "numeric": "Gong1 zuo4"}, "meanings": ["a place name"]}
    ]
  },
  {
    "simplified": "台湾",
    "level": ["new-3"],
    "frequency": 5000,
    "pos": ["ns"],
    "forms": [{"transcriptions": {"pinyin": "Táiwān", "numeric": "Tai2 wan1"}, "meanings": ["Taiwan"]}]
  },
  {"simplified": "", "level": ["new-1"], "frequency": 1},
  {"simplified": "坏", "level": [], "frequency": 2},
  {"simplified": "错", "level": ["new-x"], "frequency": 3}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadHSK(t *testing.T) {
	list, stats, err := LoadHSK(writeFile(t, "complete.json", hskFixture), lexicon.RuleClassifier{})
	require.NoError(t, err)

	assert.Equal(t, LoadStats{Total: 6, Malformed: 3, Skipped: 1, Ambiguous: 1}, stats)
	require.Len(t, list.Headwords, 3)
	assert.Equal(t, lexicon.Headword{Text: "爱", Level: 1, FrequencyRank: 120}, list.Headwords[0])
	assert.Equal(t, 2, list.Headwords[1].Level)
	assert.Equal(t, "台湾", list.Headwords[2].Text, "record without meanings keeps level and rank")

	ai := list.Candidates.Entries["爱"]
	require.Len(t, ai, 1)
	assert.Equal(t, "verb", ai[0].POS)
	assert.Equal(t, []string{"ài"}, ai[0].Pinyin)
	assert.Equal(t, []string{"to love", "to be fond of"}, ai[0].Definitions)

	work := list.Candidates.Entries["工作"]
	require.Len(t, work, 2)
	assert.Equal(t, "verb", work[0].POS)
	assert.Equal(t, []string{"to work"}, work[0].Definitions)
	assert.Equal(t, "noun", work[1].POS)
	assert.Equal(t, []string{"job"}, work[1].Definitions, "proper-noun form dropped")
	assert.Equal(t, []string{"gōngzuò"}, work[1].Pinyin)

	assert.Empty(t, list.Candidates.Entries["台湾"])
}

func TestLoadHSK_ObjectWrapper(t *testing.T) {
	path := writeFile(t, "wrapped.json", `{"words": [{"simplified": "你", "level": ["new-1"], "frequency": 7, "pos": ["r"],
	  "forms": [{"transcriptions": {"pinyin": "nǐ", "numeric": "ni3"}, "meanings": ["you"]}]}]}`)

	list, _, err := LoadHSK(path, nil)
	require.NoError(t, err)
	require.Len(t, list.Headwords, 1)
	assert.Equal(t, "pronoun", list.Candidates.Entries["你"][0].POS)
}

func TestLoadHSK_Errors(t *testing.T) {
	_, _, err := LoadHSK(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.Error(t, err)

	_, _, err = LoadHSK(writeFile(t, "bad.json", "not json"), nil)
	require.ErrorContains(t, err, "object or array")
}

func TestHeadwordMalformed(t *testing.T) {
	_, err := HSKRecord{Simplified: "好"}.headword()
	require.ErrorIs(t, err, ErrMalformedRecord)
}

type mapSimplifier map[string]string

func (m mapSimplifier) ToSimplified(s string) (string, error) {
	for from, to := range m {
		s = strings.ReplaceAll(s, from, to)
	}
	return s, nil
}

const kaikkiFixture = `{"word": "學生", "pos": "noun", "senses": [{"glosses": ["student"], "examples": [{"text": "他是學生。", "tags": ["Mandarin"]}, {"text": "學而時習之。", "tags": ["Classical-Chinese"]}]}, {"glosses": ["alternative form of 学子"]}], "sounds": [{"zh_pron": "xuésheng", "tags": ["Mandarin", "Pinyin"]}]}
{"word": "学生", "pos": "noun", "senses": [{"glosses": ["pupil (Classifier: 个 m)"]}], "sounds": [{"zh_pron": "xué²sheng", "tags": ["Mandarin", "Pinyin"]}, {"zh_pron": "xuéshēng", "tags": ["Mandarin", "Pinyin"]}]}
{"word": "学", "pos": "character", "senses": [{"glosses": ["study"]}]}
{"word": "学生", "pos": "verb", "senses": [{"glosses": ["Synonym of 学"]}], "sounds": [{"zh_pron": "xué", "tags": ["Mandarin", "Pinyin"]}]}
{"word": "老虎", "pos": "noun", "senses": [{"glosses": ["tiger"], "examples": [{"text": "老虎很大。", "tags": []}]}], "sounds": [{"zh_pron": "lǎohǔ", "tags": ["Mandarin", "Pinyin"]}]}
{"word": "学校", "pos": "noun", "senses": [{"glosses": ["school"]}], "sounds": [{"zh_pron": "xuéxiào", "tags": ["Cantonese"]}]}
not-json

`

func TestParseKaikki(t *testing.T) {
	inList := func(h string) bool { return h == "学生" || h == "学" || h == "学校" }
	res, err := ParseKaikki(strings.NewReader(kaikkiFixture), mapSimplifier{"學": "学"}, inList)
	require.NoError(t, err)

	assert.Equal(t, LoadStats{Total: 7, Malformed: 1, Skipped: 4}, res.Stats)

	entries := res.Candidates.Entries["学生"]
	require.Len(t, entries, 1)
	assert.Equal(t, "noun", entries[0].POS)
	assert.Equal(t, []string{"xuésheng", "xuéshēng"}, entries[0].Pinyin)
	assert.Equal(t, []string{"student", "pupil"}, entries[0].Definitions)
	assert.Equal(t, lexicon.SourceWiktionary, entries[0].Source)

	assert.Equal(t, []Example{
		{Headword: "学生", Text: "他是學生。"},
		{Headword: "老虎", Text: "老虎很大。"},
	}, res.Examples)
}
