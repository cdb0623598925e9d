package ingest

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/japaniel/hskcorpus/pkg/db"
)

// flakyTranslator fails the first call containing any text listed in
// failOnce, and always fails texts listed in failAlways.
type flakyTranslator struct {
	mu         sync.Mutex
	failOnce   map[string]bool
	failAlways map[string]bool
	calls      int
}

func (f *flakyTranslator) Translate(_ context.Context, texts []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, text := range texts {
		if f.failAlways[text] {
			return nil, errors.New("service unavailable")
		}
		if f.failOnce[text] {
			delete(f.failOnce, text)
			return nil, errors.New("timeout")
		}
	}
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = "EN " + strings.TrimSuffix(text, "。")
	}
	return out, nil
}

func newTranslatePass(conn *sql.DB, tr *flakyTranslator, attempts int) *TranslatePass {
	p := NewTranslatePass(conn, tr)
	p.BatchSize = 1
	p.Workers = 2
	p.MaxAttempts = attempts
	p.InitialBackoff = time.Millisecond
	return p
}

func TestTranslatePassRetriesFailedBatches(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	tr := &flakyTranslator{failOnce: map[string]bool{"我们好。": true}}
	p := newTranslatePass(conn, tr, 3)

	set := newSet("我们去学校。", "我们好。", "学校好。")
	stats, err := p.Run(context.Background(), set)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := TranslateStats{Total: 3, Translated: 3, Rounds: 2}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	for _, s := range set.Sentences() {
		if s.Translation == nil || !strings.HasPrefix(*s.Translation, "EN ") {
			t.Fatalf("missing translation for %q", s.Text)
		}
	}

	translations, err := db.LoadTranslations(conn)
	if err != nil {
		t.Fatalf("load translations: %v", err)
	}
	if len(translations) != 3 || translations["我们好。"] != "EN 我们好" {
		t.Fatalf("unexpected persisted translations: %v", translations)
	}
}

func TestTranslatePassRecordsLeftovers(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	tr := &flakyTranslator{failAlways: map[string]bool{"学校好。": true}}
	p := newTranslatePass(conn, tr, 2)

	set := newSet("我们去学校。", "学校好。")
	stats, err := p.Run(context.Background(), set)
	if err != nil {
		t.Fatalf("leftover translations must not be fatal: %v", err)
	}
	if stats.Translated != 1 || stats.Failed != 1 || stats.Rounds != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if s, _ := set.Get("学校好。"); s.Translation != nil {
		t.Fatalf("failed sentence should stay untranslated")
	}

	failures, err := db.GetFailures(conn, db.PassTranslate)
	if err != nil {
		t.Fatalf("get failures: %v", err)
	}
	if len(failures) != 1 || failures[0].Sentence != "学校好。" || failures[0].LastError != "service unavailable" {
		t.Fatalf("unexpected failures: %+v", failures)
	}
}

func TestTranslatePassResumes(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	if err := db.SaveTranslation(conn, "我们去学校。", "We go to school."); err != nil {
		t.Fatalf("seed translation: %v", err)
	}

	tr := &flakyTranslator{}
	p := newTranslatePass(conn, tr, 3)

	set := newSet("我们去学校。", "我们好。")
	stats, err := p.Run(context.Background(), set)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Cached != 1 || stats.Translated != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if tr.calls != 1 {
		t.Fatalf("expected one translator call, got %d", tr.calls)
	}
	if s, _ := set.Get("我们去学校。"); s.Translation == nil || *s.Translation != "We go to school." {
		t.Fatalf("cached translation not applied: %+v", s)
	}
}

func TestTranslatePassWithoutProgressLog(t *testing.T) {
	tr := &flakyTranslator{}
	p := newTranslatePass(nil, tr, 1)

	set := newSet("我们好。")
	stats, err := p.Run(context.Background(), set)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Translated != 1 || stats.Rounds != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
