package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/japaniel/hskcorpus/pkg/lexicon"
)

// JoinString separates list values stored in a single column.
const JoinString = " | "

// MultiplePOS is the pos row used for labels outside the canonical table.
const MultiplePOS = "multiple"

// ExportStats counts rows written by WriteCorpus.
type ExportStats struct {
	Words            int `yaml:"words"`
	Definitions      int `yaml:"definitions"`
	Characters       int `yaml:"characters"`
	Sentences        int `yaml:"sentences"`
	CharacterMatches int `yaml:"character_matches"`
	WordMatches      int `yaml:"word_matches"`
	ClozeLinks       int `yaml:"cloze_links"`
}

type exporter struct {
	tx         *sql.Tx
	posIDs     map[string]int64
	wordIDs    map[string]int64
	charIDs    map[string]int64
	sentenceID map[string]int64
	stats      ExportStats
}

// WriteCorpus replaces the corpus tables of db with c inside one
// transaction.
func WriteCorpus(ctx context.Context, db *sql.DB, c Corpus) (ExportStats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ExportStats{}, fmt.Errorf("begin export: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := execScript(tx, exportSQL); err != nil {
		return ExportStats{}, fmt.Errorf("create export schema: %w", err)
	}

	e := &exporter{
		tx:         tx,
		posIDs:     make(map[string]int64),
		wordIDs:    make(map[string]int64),
		charIDs:    make(map[string]int64),
		sentenceID: make(map[string]int64),
	}
	steps := []struct {
		name string
		fn   func(context.Context, Corpus) error
	}{
		{"pos", e.writePOS},
		{"characters", e.writeCharacters},
		{"words", e.writeWords},
		{"sentences", e.writeSentences},
		{"cloze links", e.writeLinks},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return ExportStats{}, err
		}
		if err := step.fn(ctx, c); err != nil {
			return ExportStats{}, fmt.Errorf("export %s: %w", step.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ExportStats{}, fmt.Errorf("commit export: %w", err)
	}
	return e.stats, nil
}

func (e *exporter) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := e.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (e *exporter) posID(label string) int64 {
	if id, ok := e.posIDs[label]; ok {
		return id
	}
	return e.posIDs[MultiplePOS]
}

func (e *exporter) writePOS(ctx context.Context, _ Corpus) error {
	labels := lexicon.Labels()
	slices.Sort(labels)
	labels = append(labels, MultiplePOS)
	for _, label := range labels {
		id, err := e.insert(ctx, `INSERT INTO pos (pos_label) VALUES (?)`, label)
		if err != nil {
			return err
		}
		e.posIDs[label] = id
	}
	return nil
}

func (e *exporter) writeCharacters(ctx context.Context, c Corpus) error {
	for _, ch := range c.Characters {
		id, err := e.insert(ctx, `INSERT INTO characters (character, level, pinyin) VALUES (?, ?, ?)`,
			ch.Text, ch.Level, strings.Join(ch.Pinyin, JoinString))
		if err != nil {
			return err
		}
		e.charIDs[ch.Text] = id
		e.stats.Characters++
	}
	return nil
}

func (e *exporter) writeWords(ctx context.Context, c Corpus) error {
	for _, w := range c.Words {
		id, err := e.insert(ctx, `INSERT INTO words (word, level, frequency_ranking) VALUES (?, ?, ?)`,
			w.Headword, w.Level, w.FrequencyRank)
		if err != nil {
			return err
		}
		e.wordIDs[w.Headword] = id
		e.stats.Words++

		for _, entry := range w.Entries {
			if _, err := e.insert(ctx, `INSERT INTO word_definitions (word_id, pos_id, pinyin, definitions, source)
				VALUES (?, ?, ?, ?, ?)`,
				id, e.posID(entry.POS), strings.Join(entry.Pinyin, JoinString),
				strings.Join(entry.Definitions, JoinString), entry.Source); err != nil {
				return err
			}
			e.stats.Definitions++
		}
	}
	return nil
}

func (e *exporter) writeSentences(ctx context.Context, c Corpus) error {
	for _, s := range c.Sentences {
		id, err := e.insert(ctx, `INSERT INTO sentences
			(sentence, character_level, word_level, level, difficulty, translation, source)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.Text, s.CharacterLevel, s.WordLevel, s.Level, s.Difficulty, s.Translation, s.Source)
		if err != nil {
			return err
		}
		e.sentenceID[s.Text] = id
		e.stats.Sentences++

		for _, r := range s.Text {
			charID, ok := e.charIDs[string(r)]
			if !ok {
				continue
			}
			if err := e.link(ctx, &e.stats.CharacterMatches,
				`INSERT INTO character_matches (sentence_id, character_id) VALUES (?, ?)`, id, charID); err != nil {
				return err
			}
		}
		for _, tag := range s.Tags {
			wordID, ok := e.wordIDs[tag.Word]
			if !ok {
				continue
			}
			if err := e.link(ctx, &e.stats.WordMatches,
				`INSERT INTO word_matches (sentence_id, word_id, pos_id) VALUES (?, ?, ?)`,
				id, wordID, e.posID(tag.POS)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *exporter) writeLinks(ctx context.Context, c Corpus) error {
	for _, l := range c.Links {
		wordID, ok := e.wordIDs[l.Word]
		if !ok {
			continue
		}
		sentenceID, ok := e.sentenceID[l.Sentence]
		if !ok {
			continue
		}
		if err := e.link(ctx, &e.stats.ClozeLinks,
			`INSERT INTO cloze_links (word_id, sentence_id) VALUES (?, ?)`, wordID, sentenceID); err != nil {
			return err
		}
	}
	return nil
}

// link inserts an association row, treating a repeated pair as already
// written.
func (e *exporter) link(ctx context.Context, counter *int, query string, args ...any) error {
	if _, err := e.tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueConstraintErr(err) {
			return nil
		}
		return err
	}
	*counter++
	return nil
}
