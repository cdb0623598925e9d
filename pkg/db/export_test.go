package db

import (
	"context"
	"testing"

	"github.com/japaniel/hskcorpus/pkg/cloze"
	"github.com/japaniel/hskcorpus/pkg/lexicon"
	"github.com/japaniel/hskcorpus/pkg/sentence"
)

func testCorpus() Corpus {
	translation := "We go to school."
	return Corpus{
		Words: []*lexicon.Word{
			{Headword: "我们", Level: 1, FrequencyRank: 20, Entries: []lexicon.Entry{
				{POS: "pronoun", Pinyin: []string{"wǒmen"}, Definitions: []string{"we", "us"}, Source: lexicon.SourceHSK},
			}},
			{Headword: "去", Level: 1, FrequencyRank: 30, Entries: []lexicon.Entry{
				{POS: "verb", Pinyin: []string{"qù"}, Definitions: []string{"to go"}, Source: lexicon.SourceHSK},
				{POS: "proper noun", Pinyin: []string{"Qù"}, Definitions: []string{"a surname"}, Source: lexicon.SourceWiktionary},
			}},
			{Headword: "学校", Level: 1, FrequencyRank: 400, Entries: []lexicon.Entry{
				{POS: "noun", Pinyin: []string{"xuéxiào"}, Definitions: []string{"school"}, Source: lexicon.SourceWiktionary},
			}},
		},
		Characters: []Character{
			{Text: "我", Level: 1, Pinyin: []string{"wǒ"}},
			{Text: "们", Level: 1, Pinyin: []string{"men"}},
			{Text: "去", Level: 1, Pinyin: []string{"qù"}},
			{Text: "学", Level: 1, Pinyin: []string{"xué"}},
			{Text: "校", Level: 1, Pinyin: []string{"xiào", "jiào"}},
		},
		Sentences: []*sentence.Sentence{
			{
				Text:   "我们去学校去。",
				Source: sentence.SourceTatoeba,
				Tags: []sentence.Tag{
					{Word: "我们", POS: "pronoun"}, {Word: "去", POS: "verb"},
					{Word: "学校", POS: "noun"}, {Word: "去", POS: "verb"},
				},
				CharacterLevel: 1, WordLevel: 1, Level: 1, Difficulty: 400,
				Translation: &translation,
			},
		},
		Links: []cloze.Link{
			{Word: "我们", Sentence: "我们去学校去。"},
			{Word: "去", Sentence: "我们去学校去。"},
			{Word: "学校", Sentence: "我们去学校去。"},
			{Word: "不存在", Sentence: "我们去学校去。"},
		},
	}
}

func TestWriteCorpus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	stats, err := WriteCorpus(context.Background(), db, testCorpus())
	if err != nil {
		t.Fatalf("WriteCorpus: %v", err)
	}
	want := ExportStats{
		Words:            3,
		Definitions:      4,
		Characters:       5,
		Sentences:        1,
		CharacterMatches: 5,
		WordMatches:      3,
		ClozeLinks:       3,
	}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}

	var label string
	err = db.QueryRow(`SELECT p.pos_label FROM word_definitions d
		JOIN words w ON w.id = d.word_id JOIN pos p ON p.id = d.pos_id
		WHERE w.word = ? AND d.source = ?`, "去", lexicon.SourceWiktionary).Scan(&label)
	if err != nil {
		t.Fatalf("query pos: %v", err)
	}
	if label != MultiplePOS {
		t.Fatalf("expected unknown label to map to %q, got %q", MultiplePOS, label)
	}

	var defs string
	if err := db.QueryRow(`SELECT d.definitions FROM word_definitions d JOIN words w ON w.id = d.word_id WHERE w.word = ?`, "我们").Scan(&defs); err != nil {
		t.Fatalf("query definitions: %v", err)
	}
	if defs != "we | us" {
		t.Fatalf("unexpected definitions %q", defs)
	}

	var pinyin string
	if err := db.QueryRow(`SELECT pinyin FROM characters WHERE character = ?`, "校").Scan(&pinyin); err != nil {
		t.Fatalf("query character: %v", err)
	}
	if pinyin != "xiào | jiào" {
		t.Fatalf("unexpected pinyin %q", pinyin)
	}

	var translation string
	if err := db.QueryRow(`SELECT translation FROM sentences`).Scan(&translation); err != nil {
		t.Fatalf("query sentence: %v", err)
	}
	if translation != "We go to school." {
		t.Fatalf("unexpected translation %q", translation)
	}
}

func TestWriteCorpusReplacesPreviousExport(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	if _, err := WriteCorpus(ctx, db, testCorpus()); err != nil {
		t.Fatalf("first export: %v", err)
	}
	if _, err := WriteCorpus(ctx, db, testCorpus()); err != nil {
		t.Fatalf("second export: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM words`).Scan(&n); err != nil {
		t.Fatalf("count words: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 words after re-export, got %d", n)
	}
	var pos int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pos`).Scan(&pos); err != nil {
		t.Fatalf("count pos: %v", err)
	}
	if pos != len(lexicon.Labels())+1 {
		t.Fatalf("expected %d pos rows, got %d", len(lexicon.Labels())+1, pos)
	}
}

func TestWriteCorpusCanceled(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := WriteCorpus(ctx, db, testCorpus()); err == nil {
		t.Fatalf("expected error for canceled context")
	}
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='words'").Scan(&name)
	if err == nil {
		t.Fatalf("expected canceled export to be rolled back")
	}
}
