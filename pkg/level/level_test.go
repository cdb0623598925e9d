package level

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/hskcorpus/pkg/lexicon"
	"github.com/japaniel/hskcorpus/pkg/sentence"
)

func newLeveler(t *testing.T, words ...*lexicon.Word) *Leveler {
	t.Helper()
	lx := lexicon.FromWords(words)
	chars, err := lexicon.BuildCharacterIndex(context.Background(), lx.Words(), 2)
	require.NoError(t, err)
	return New(lx, chars)
}

func TestApply_WordLevelDominates(t *testing.T) {
	l := newLeveler(t,
		&lexicon.Word{Headword: "这", Level: 1},
		&lexicon.Word{Headword: "是", Level: 1},
		&lexicon.Word{Headword: "一", Level: 1},
		&lexicon.Word{Headword: "个", Level: 1},
		&lexicon.Word{Headword: "测", Level: 3},
		&lexicon.Word{Headword: "试", Level: 2},
		&lexicon.Word{Headword: "测试", Level: 4},
	)
	s := &sentence.Sentence{Text: "这是一个测试。"}
	l.Apply(s, []string{"这", "是", "一个", "测试", "。"}, []string{"r", "v", "m", "vn", "w"})

	assert.Equal(t, []sentence.Tag{
		{Word: "这", POS: "pronoun"},
		{Word: "是", POS: "verb"},
		{Word: "测试", POS: "verb"},
	}, s.Tags)
	assert.Equal(t, 3, s.CharacterLevel)
	assert.Equal(t, 4, s.WordLevel)
	assert.Equal(t, 4, s.Level)
}

func TestApply_CharacterLevelDominates(t *testing.T) {
	l := newLeveler(t,
		&lexicon.Word{Headword: "我", Level: 1},
		&lexicon.Word{Headword: "爱", Level: 1},
		&lexicon.Word{Headword: "熊猫", Level: 6},
		&lexicon.Word{Headword: "猫", Level: 2},
	)
	s := &sentence.Sentence{Text: "我爱熊猫！"}
	l.Apply(s, []string{"我", "爱", "熊", "猫", "！"}, []string{"r", "v", "n", "n", "w"})

	assert.Equal(t, 6, s.CharacterLevel, "熊 only occurs in a level 6 word")
	assert.Equal(t, 2, s.WordLevel)
	assert.Equal(t, 6, s.Level)
}

func TestApply_NothingKnown(t *testing.T) {
	l := newLeveler(t, &lexicon.Word{Headword: "我", Level: 1})
	s := &sentence.Sentence{Text: "你好。"}
	l.Apply(s, []string{"你好", "。"}, []string{"l", "w"})

	assert.Empty(t, s.Tags)
	assert.Zero(t, s.CharacterLevel)
	assert.Zero(t, s.WordLevel)
	assert.Zero(t, s.Level)
}

func TestTags_RepeatsAndUnknownCodes(t *testing.T) {
	l := newLeveler(t, &lexicon.Word{Headword: "好", Level: 1})
	tags := l.Tags([]string{"好", "好", "好"}, []string{"a", "#"})
	assert.Equal(t, []sentence.Tag{
		{Word: "好", POS: "adjective"},
		{Word: "好", POS: lexicon.Unclassified},
		{Word: "好", POS: lexicon.Unclassified},
	}, tags)
}

func TestLevelIsMaxOfComponents(t *testing.T) {
	l := newLeveler(t,
		&lexicon.Word{Headword: "天", Level: 1},
		&lexicon.Word{Headword: "今天", Level: 1},
		&lexicon.Word{Headword: "气", Level: 2},
		&lexicon.Word{Headword: "天气", Level: 2},
		&lexicon.Word{Headword: "很", Level: 1},
		&lexicon.Word{Headword: "好", Level: 1},
		&lexicon.Word{Headword: "晴朗", Level: 5},
	)
	cases := []struct {
		text   string
		tokens []string
	}{
		{"今天天气很好。", []string{"今天", "天气", "很", "好", "。"}},
		{"今天很晴朗。", []string{"今天", "很", "晴朗", "。"}},
		{"天气好。", []string{"天气", "好", "。"}},
	}
	for _, c := range cases {
		s := &sentence.Sentence{Text: c.text}
		l.Apply(s, c.tokens, nil)
		assert.Equal(t, max(s.CharacterLevel, s.WordLevel), s.Level, c.text)
	}
}
