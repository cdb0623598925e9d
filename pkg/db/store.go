package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// SaveTagRecord upserts the tagging result for a sentence.
func SaveTagRecord(db DBExecutor, rec TagRecord) error {
	text := strings.TrimSpace(rec.Sentence)
	if text == "" {
		return fmt.Errorf("sentence must be non-empty")
	}
	if len(rec.Tokens) != len(rec.POS) {
		return fmt.Errorf("tag record %q: %d tokens but %d pos codes", text, len(rec.Tokens), len(rec.POS))
	}
	tokens, err := json.Marshal(rec.Tokens)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	pos, err := json.Marshal(rec.POS)
	if err != nil {
		return fmt.Errorf("encode pos: %w", err)
	}
	_, err = db.Exec(`INSERT INTO tag_progress (sentence, tokens, pos, clause, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sentence) DO UPDATE SET
		  tokens = excluded.tokens,
		  pos = excluded.pos,
		  clause = excluded.clause,
		  updated_at = excluded.updated_at`,
		text, string(tokens), string(pos), rec.Clause, time.Now())
	if err != nil {
		return fmt.Errorf("upsert tag record: %w", err)
	}
	return nil
}

// LoadTagRecords returns every cached tagging result keyed by sentence.
func LoadTagRecords(db DBExecutor) (map[string]TagRecord, error) {
	rows, err := db.Query(`SELECT sentence, tokens, pos, clause, updated_at FROM tag_progress`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]TagRecord)
	for rows.Next() {
		var rec TagRecord
		var tokens, pos string
		if err := rows.Scan(&rec.Sentence, &tokens, &pos, &rec.Clause, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tokens), &rec.Tokens); err != nil {
			return nil, fmt.Errorf("decode tokens for %q: %w", rec.Sentence, err)
		}
		if err := json.Unmarshal([]byte(pos), &rec.POS); err != nil {
			return nil, fmt.Errorf("decode pos for %q: %w", rec.Sentence, err)
		}
		out[rec.Sentence] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveTranslation upserts the translation for a sentence and clears any
// recorded translation failure.
func SaveTranslation(db DBExecutor, text, translation string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("sentence must be non-empty")
	}
	_, err := db.Exec(`INSERT INTO translation_progress (sentence, translation, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(sentence) DO UPDATE SET
		  translation = excluded.translation,
		  updated_at = excluded.updated_at`,
		text, translation, time.Now())
	if err != nil {
		return fmt.Errorf("upsert translation: %w", err)
	}
	return ClearFailure(db, PassTranslate, text)
}

// LoadTranslations returns every stored translation keyed by sentence.
func LoadTranslations(db DBExecutor) (map[string]string, error) {
	rows, err := db.Query(`SELECT sentence, translation FROM translation_progress`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var text, translation string
		if err := rows.Scan(&text, &translation); err != nil {
			return nil, err
		}
		out[text] = translation
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordFailure increments the failure count of a sentence for a pass.
func RecordFailure(db DBExecutor, pass, text string, cause error) error {
	if strings.TrimSpace(pass) == "" {
		return fmt.Errorf("pass must be non-empty")
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := db.Exec(`INSERT INTO failures (pass, sentence, attempts, last_error, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(pass, sentence) DO UPDATE SET
		  attempts = failures.attempts + 1,
		  last_error = excluded.last_error,
		  updated_at = excluded.updated_at`,
		pass, text, msg, time.Now())
	return err
}

// ClearFailure removes the failure entry of a sentence for a pass, if any.
func ClearFailure(db DBExecutor, pass, text string) error {
	_, err := db.Exec(`DELETE FROM failures WHERE pass = ? AND sentence = ?`, pass, text)
	return err
}

// GetFailures returns the recorded failures of a pass ordered by sentence.
func GetFailures(db DBExecutor, pass string) ([]Failure, error) {
	rows, err := db.Query(`SELECT pass, sentence, attempts, last_error, updated_at
		FROM failures WHERE pass = ? ORDER BY sentence`, pass)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		var lastErr sql.NullString
		if err := rows.Scan(&f.Pass, &f.Sentence, &f.Attempts, &lastErr, &f.UpdatedAt); err != nil {
			return nil, err
		}
		if lastErr.Valid {
			f.LastError = lastErr.String
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
