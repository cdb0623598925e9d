package db

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestTagRecordRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	rec := TagRecord{
		Sentence: "我们去学校。",
		Tokens:   []string{"我们", "去", "学校", "。"},
		POS:      []string{"r", "v", "n", "w"},
		Clause:   true,
	}
	if err := SaveTagRecord(db, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Overwrite with a negative clause verdict.
	rec.Clause = false
	if err := SaveTagRecord(db, rec); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, err := LoadTagRecords(db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	loaded := got[rec.Sentence]
	if !reflect.DeepEqual(loaded.Tokens, rec.Tokens) || !reflect.DeepEqual(loaded.POS, rec.POS) {
		t.Fatalf("unexpected record: %+v", loaded)
	}
	if loaded.Clause {
		t.Fatalf("expected clause verdict to be overwritten")
	}
	if loaded.UpdatedAt.IsZero() {
		t.Fatalf("expected updated_at to be set")
	}
}

func TestSaveTagRecordValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := SaveTagRecord(db, TagRecord{Sentence: "  "}); err == nil {
		t.Fatalf("expected error for empty sentence")
	}
	if err := SaveTagRecord(db, TagRecord{Sentence: "你好。", Tokens: []string{"你好", "。"}, POS: []string{"l"}}); err == nil {
		t.Fatalf("expected error for misaligned pos codes")
	}
}

func TestTranslationsClearFailures(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	const text = "你好。"
	for i := 0; i < 2; i++ {
		if err := RecordFailure(db, PassTranslate, text, errors.New("timeout")); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}
	if err := RecordFailure(db, PassTag, text, nil); err != nil {
		t.Fatalf("record tag failure: %v", err)
	}

	failures, err := GetFailures(db, PassTranslate)
	if err != nil {
		t.Fatalf("get failures: %v", err)
	}
	if len(failures) != 1 || failures[0].Attempts != 2 || failures[0].LastError != "timeout" {
		t.Fatalf("unexpected failures: %+v", failures)
	}

	if err := SaveTranslation(db, text, "Hello."); err != nil {
		t.Fatalf("save translation: %v", err)
	}
	failures, err = GetFailures(db, PassTranslate)
	if err != nil {
		t.Fatalf("get failures: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("expected translate failures cleared, got %+v", failures)
	}
	tagFailures, err := GetFailures(db, PassTag)
	if err != nil {
		t.Fatalf("get tag failures: %v", err)
	}
	if len(tagFailures) != 1 || tagFailures[0].LastError != "" {
		t.Fatalf("expected tag failure untouched, got %+v", tagFailures)
	}

	translations, err := LoadTranslations(db)
	if err != nil {
		t.Fatalf("load translations: %v", err)
	}
	if translations[text] != "Hello." {
		t.Fatalf("unexpected translations: %v", translations)
	}
}

func TestIsUniqueConstraintErr(t *testing.T) {
	if isUniqueConstraintErr(nil) {
		t.Fatalf("nil is not a constraint error")
	}
	if !isUniqueConstraintErr(errors.New("UNIQUE constraint failed: pos.pos_label")) {
		t.Fatalf("expected unique error to be detected")
	}
	if isUniqueConstraintErr(errors.New("no such table")) {
		t.Fatalf("unexpected constraint match")
	}
}
