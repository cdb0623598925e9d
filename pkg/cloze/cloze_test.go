package cloze

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/hskcorpus/pkg/lexicon"
)

func words(pairs ...any) []*lexicon.Word {
	var out []*lexicon.Word
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, &lexicon.Word{Headword: pairs[i].(string), FrequencyRank: pairs[i+1].(int)})
	}
	return out
}

func TestDifficulty(t *testing.T) {
	list := words("我们", 50, "我", 10, "去", 80, "学校", 400, "学", 300, "测试", 2000)

	tests := []struct {
		name string
		text string
		want int
	}{
		{"all consumed", "我们去学校。", 400},
		{"punctuation and digits ignored", "我们，去3个学校！", MaxDifficulty * 1},
		{"one leftover dominates", "我们去测试猫。", MaxDifficulty * 1},
		{"two leftovers", "猫狗去学校。", MaxDifficulty * 2},
		{"greedy order", "我们学学校。", 400},
		{"empty", "。", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Difficulty(tt.text, list))
		})
	}
}

func TestDifficulty_Deterministic(t *testing.T) {
	list := words("好", 5, "你好", 20, "你", 3)
	// "好" is removed first, so "你好" never matches.
	assert.Equal(t, 5, Difficulty("你好。", list))
}

func bruteForce(headwords, texts []string) []Link {
	var links []Link
	for i, w := range headwords {
		for j, s := range texts {
			if strings.Contains(s, w) {
				links = append(links, Link{Word: w, Sentence: s, WordIndex: i, SentenceIndex: j})
			}
		}
	}
	return links
}

func TestMatcher_EqualsBruteForce(t *testing.T) {
	headwords := []string{"学", "学校", "学生", "生", "我们", "我", "们", "中华人民共和国", "人民", "共和", "好", "你好"}
	texts := []string{
		"我们去学校。",
		"学生们好！",
		"中华人民共和国成立了。",
		"你好，我是学生。",
		"天气很冷。",
		"好好学习，天天向上。",
	}

	m := NewMatcher(headwords)
	got := m.Links(texts)
	want := bruteForce(headwords, texts)
	require.Equal(t, want, got)
}

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher([]string{"学校", "校", "学"})
	assert.Equal(t, []int{0, 1, 2}, m.Match("学校学校"))
	assert.Empty(t, m.Match("你好"))
}
