package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/japaniel/hskcorpus/pkg/db"
	"github.com/japaniel/hskcorpus/pkg/nlp"
	"github.com/japaniel/hskcorpus/pkg/sentence"
)

// TranslateStats summarizes a translation pass.
type TranslateStats struct {
	Total      int `yaml:"total"`
	Cached     int `yaml:"cached"`
	Translated int `yaml:"translated"`
	Failed     int `yaml:"failed"`
	Rounds     int `yaml:"rounds"`
}

// TranslatePass attaches best-effort translations to a sentence set.
type TranslatePass struct {
	Runner
	Translator     nlp.Translator
	MaxAttempts    int
	InitialBackoff time.Duration
}

// NewTranslatePass creates a TranslatePass with default batching and three
// attempts.
func NewTranslatePass(conn *sql.DB, tr nlp.Translator) *TranslatePass {
	return &TranslatePass{
		Runner:         Runner{DB: conn, BatchSize: DefaultBatchSize, FeedSize: DefaultFeedSize, Workers: 2},
		Translator:     tr,
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
	}
}

func (p *TranslatePass) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		b.InitialInterval = p.InitialBackoff
	}
	b.MaxElapsedTime = 0
	attempts := max(p.MaxAttempts, 1)
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Run translates every sentence of set that has no translation yet. Failed
// batches are retried in later rounds with exponential backoff; whatever is
// still untranslated after MaxAttempts rounds is recorded as a failure and
// the pass returns without error.
func (p *TranslatePass) Run(ctx context.Context, set *sentence.Set) (TranslateStats, error) {
	log := p.logger()
	stats := TranslateStats{Total: set.Len()}

	cached := map[string]string{}
	if p.DB != nil {
		var err error
		if cached, err = db.LoadTranslations(p.DB); err != nil {
			log.Warn("failed to load translation progress, translating everything", "error", err)
			cached = map[string]string{}
		}
	}

	var pending []string
	for _, s := range set.Sentences() {
		if s.Translation != nil {
			continue
		}
		if t, ok := cached[s.Text]; ok {
			t := t
			s.Translation = &t
			stats.Cached++
			continue
		}
		pending = append(pending, s.Text)
	}
	if stats.Cached > 0 {
		log.Info("resuming translation", "cached", stats.Cached, "pending", len(pending))
	}

	pw := p.newWriter(db.PassTranslate)
	lastErr := map[string]error{}
	var fatal error
	round := func() error {
		stats.Rounds++
		var failed []string
		consume := func(res batchResult[[]string]) error {
			if res.Err != nil {
				log.Warn("translation batch failed", "round", stats.Rounds, "batch", res.Index, "error", res.Err)
				failed = append(failed, res.Texts...)
				for _, text := range res.Texts {
					lastErr[text] = res.Err
				}
				return nil
			}
			for i, text := range res.Texts {
				s, ok := set.Get(text)
				if !ok {
					continue
				}
				t := res.Out[i]
				s.Translation = &t
				stats.Translated++
			}
			texts, out := res.Texts, res.Out
			return p.persist(ctx, pw, texts, func(tx *sql.Tx) error {
				for i, text := range texts {
					if err := db.SaveTranslation(tx, text, out[i]); err != nil {
						return err
					}
				}
				return nil
			})
		}

		if err := dispatch(ctx, &p.Runner, pending, p.translate, consume); err != nil {
			fatal = err
			return backoff.Permanent(err)
		}
		pending = failed
		if len(pending) > 0 {
			return fmt.Errorf("%w: %d sentences untranslated", nlp.ErrCollaborator, len(pending))
		}
		return nil
	}

	if len(pending) > 0 {
		// The outcome is read from fatal and pending below.
		_ = backoff.RetryNotify(round, p.newBackOff(ctx), func(err error, wait time.Duration) {
			log.Info("retrying translation", "error", err, "wait", wait)
		})
	}

	err := fatal
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	} else if err == nil && len(pending) > 0 {
		// Leftovers are recorded for the next run, not surfaced as an error.
		stats.Failed = len(pending)
		leftovers := pending
		err = p.persist(ctx, pw, leftovers, func(tx *sql.Tx) error {
			for _, text := range leftovers {
				if err := db.RecordFailure(tx, db.PassTranslate, text, lastErr[text]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if pw != nil {
		if cerr := pw.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	log.Info("translation finished",
		"total", stats.Total, "cached", stats.Cached, "translated", stats.Translated,
		"failed", stats.Failed, "rounds", stats.Rounds)
	return stats, err
}

// translate checks the translator returned one result per text.
func (p *TranslatePass) translate(ctx context.Context, texts []string) ([]string, error) {
	out, err := p.Translator.Translate(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("%w: %d translations for %d texts", nlp.ErrCollaborator, len(out), len(texts))
	}
	return out, nil
}
