// Package export writes the finished corpus to JSON, CSV and SQLite, and
// reloads cached word and character artifacts on later runs.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mozillazg/go-pinyin"

	"github.com/japaniel/hskcorpus/pkg/db"
	"github.com/japaniel/hskcorpus/pkg/lexicon"
)

// Export format names.
const (
	FormatJSON   = "json"
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// Artifact file names.
const (
	WordsFile      = "words.json"
	CharactersFile = "characters.json"
	SentencesFile  = "sentences.json"
	LinksFile      = "links.json"
)

// Characters lists every indexed character in level order with its pinyin
// readings, heteronyms included.
func Characters(chars *lexicon.CharacterIndex) []db.Character {
	args := pinyin.NewArgs()
	args.Style = pinyin.Tone
	args.Heteronym = true

	runes := chars.Runes()
	out := make([]db.Character, 0, len(runes))
	for _, r := range runes {
		lv, _ := chars.Level(r)
		var readings []string
		if py := pinyin.Pinyin(string(r), args); len(py) > 0 {
			readings = py[0]
		}
		out = append(out, db.Character{Text: string(r), Level: lv, Pinyin: readings})
	}
	return out
}

// Stats reports what an export wrote.
type Stats struct {
	Files  []string        `yaml:"files"`
	SQLite *db.ExportStats `yaml:"sqlite,omitempty"`
}

// Exporter writes a corpus in the configured formats.
type Exporter struct {
	Dir        string
	SQLitePath string
	Formats    []string
	Logger     *slog.Logger
}

func (e *Exporter) has(format string) bool {
	for _, f := range e.Formats {
		if strings.EqualFold(strings.TrimSpace(f), format) {
			return true
		}
	}
	return false
}

// Export writes c in every configured format.
func (e *Exporter) Export(ctx context.Context, c db.Corpus) (Stats, error) {
	log := e.Logger
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return Stats{}, fmt.Errorf("create export dir: %w", err)
	}

	var stats Stats
	if e.has(FormatJSON) {
		files, err := WriteJSON(e.Dir, c)
		stats.Files = append(stats.Files, files...)
		if err != nil {
			return stats, err
		}
	}
	if e.has(FormatCSV) {
		files, err := WriteCSV(e.Dir, c)
		stats.Files = append(stats.Files, files...)
		if err != nil {
			return stats, err
		}
	}
	if e.has(FormatSQLite) {
		path := e.SQLitePath
		if path == "" {
			path = filepath.Join(e.Dir, "data.db")
		}
		conn, err := db.Open(path)
		if err != nil {
			return stats, err
		}
		sqlStats, err := db.WriteCorpus(ctx, conn, c)
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			return stats, fmt.Errorf("sqlite export: %w", err)
		}
		stats.SQLite = &sqlStats
		stats.Files = append(stats.Files, path)
	}
	log.Info("export written", "dir", e.Dir, "files", len(stats.Files))
	return stats, nil
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func characterLevels(chars []db.Character) map[string]int {
	levels := make(map[string]int, len(chars))
	for _, ch := range chars {
		levels[ch.Text] = ch.Level
	}
	return levels
}

type artifact struct {
	name string
	v    any
}

func writeArtifacts(dir string, artifacts []artifact) ([]string, error) {
	var files []string
	for _, a := range artifacts {
		path := filepath.Join(dir, a.name)
		if err := writeJSONFile(path, a.v); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

// WriteLexicon writes only the words and characters artifacts, which are
// what LoadCache reads back.
func WriteLexicon(dir string, words []*lexicon.Word, chars *lexicon.CharacterIndex) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	levels := make(map[string]int, chars.Len())
	for _, r := range chars.Runes() {
		levels[string(r)], _ = chars.Level(r)
	}
	return writeArtifacts(dir, []artifact{
		{WordsFile, nonNil(words)},
		{CharactersFile, levels},
	})
}

// WriteJSON writes the four JSON artifacts into dir.
func WriteJSON(dir string, c db.Corpus) ([]string, error) {
	return writeArtifacts(dir, []artifact{
		{WordsFile, nonNil(c.Words)},
		{CharactersFile, characterLevels(c.Characters)},
		{SentencesFile, nonNil(c.Sentences)},
		{LinksFile, nonNil(c.Links)},
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeCSVFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// WriteCSV writes words, characters, sentences and links as CSV into dir.
// List values are joined with db.JoinString.
func WriteCSV(dir string, c db.Corpus) ([]string, error) {
	join := func(s []string) string { return strings.Join(s, db.JoinString) }

	var words [][]string
	for _, w := range c.Words {
		base := []string{w.Headword, strconv.Itoa(w.Level), strconv.Itoa(w.FrequencyRank)}
		if len(w.Entries) == 0 {
			words = append(words, append(base, "", "", "", ""))
			continue
		}
		for _, e := range w.Entries {
			row := append(append([]string{}, base...), e.POS, join(e.Pinyin), join(e.Definitions), e.Source)
			words = append(words, row)
		}
	}

	chars := make([][]string, 0, len(c.Characters))
	for _, ch := range c.Characters {
		chars = append(chars, []string{ch.Text, strconv.Itoa(ch.Level), join(ch.Pinyin)})
	}

	sentences := make([][]string, 0, len(c.Sentences))
	for _, s := range c.Sentences {
		tagged := make([]string, 0, len(s.Tags))
		for _, t := range s.Tags {
			tagged = append(tagged, t.Word+"/"+t.POS)
		}
		translation := ""
		if s.Translation != nil {
			translation = *s.Translation
		}
		sentences = append(sentences, []string{
			s.Text, s.Source, strconv.Itoa(s.Level), strconv.Itoa(s.CharacterLevel),
			strconv.Itoa(s.WordLevel), strconv.Itoa(s.Difficulty), translation, join(tagged),
		})
	}

	links := make([][]string, 0, len(c.Links))
	for _, l := range c.Links {
		links = append(links, []string{l.Word, l.Sentence})
	}

	tables := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{"words.csv", []string{"word", "level", "frequency", "pos", "pinyin", "definitions", "source"}, words},
		{"characters.csv", []string{"character", "level", "pinyin"}, chars},
		{"sentences.csv", []string{"sentence", "source", "level", "character_level", "word_level", "difficulty", "translation", "words"}, sentences},
		{"links.csv", []string{"word", "sentence"}, links},
	}
	var files []string
	for _, tbl := range tables {
		path := filepath.Join(dir, tbl.name)
		if err := writeCSVFile(path, tbl.header, tbl.rows); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}
