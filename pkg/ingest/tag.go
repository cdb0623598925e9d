package ingest

import (
	"context"
	"database/sql"

	"github.com/japaniel/hskcorpus/pkg/db"
	"github.com/japaniel/hskcorpus/pkg/level"
	"github.com/japaniel/hskcorpus/pkg/nlp"
	"github.com/japaniel/hskcorpus/pkg/sentence"
)

// Annotator tokenizes, tags and parses a batch of sentences.
type Annotator interface {
	Annotate(ctx context.Context, texts []string) ([]nlp.Annotation, error)
}

// TagStats summarizes a tagging pass.
type TagStats struct {
	Total     int `yaml:"total"`
	Cached    int `yaml:"cached"`
	Tagged    int `yaml:"tagged"`
	NonClause int `yaml:"non_clause"`
	Failed    int `yaml:"failed"`
}

// TagPass levels every sentence of a set from its segmentation and drops
// sentences whose parse is not a complete clause.
type TagPass struct {
	Runner
	Annotator Annotator
	Leveler   *level.Leveler
}

// NewTagPass creates a TagPass with default batching.
func NewTagPass(conn *sql.DB, annotator Annotator, leveler *level.Leveler) *TagPass {
	return &TagPass{
		Runner:    Runner{DB: conn, BatchSize: DefaultBatchSize, FeedSize: DefaultFeedSize, Workers: DefaultWorkers},
		Annotator: annotator,
		Leveler:   leveler,
	}
}

// apply levels s and reports whether it survives the clause check. Only the
// consumer goroutine calls it.
func (p *TagPass) apply(set *sentence.Set, s *sentence.Sentence, tokens, pos []string, clause bool) bool {
	if !clause {
		set.Remove(s.Text)
		return false
	}
	p.Leveler.Apply(s, tokens, pos)
	return true
}

// Run tags set in place. Sentences with a cached result are not sent to the
// annotator again. A failed batch is logged, recorded and left with its
// character level only; it is retried on the next run.
func (p *TagPass) Run(ctx context.Context, set *sentence.Set) (TagStats, error) {
	log := p.logger()
	stats := TagStats{Total: set.Len()}

	cached := map[string]db.TagRecord{}
	if p.DB != nil {
		var err error
		if cached, err = db.LoadTagRecords(p.DB); err != nil {
			log.Warn("failed to load tag progress, tagging everything", "error", err)
			cached = map[string]db.TagRecord{}
		}
	}

	var pending []string
	for _, s := range set.Sentences() {
		rec, ok := cached[s.Text]
		if !ok {
			pending = append(pending, s.Text)
			continue
		}
		stats.Cached++
		if !p.apply(set, s, rec.Tokens, rec.POS, rec.Clause) {
			stats.NonClause++
		}
	}
	if stats.Cached > 0 {
		log.Info("resuming tagging", "cached", stats.Cached, "pending", len(pending))
	}

	pw := p.newWriter(db.PassTag)
	consume := func(res batchResult[[]nlp.Annotation]) error {
		if res.Err != nil {
			if ctx.Err() != nil {
				return nil
			}
			stats.Failed += len(res.Texts)
			log.Warn("tagging batch failed", "batch", res.Index, "size", len(res.Texts), "error", res.Err)
			for _, text := range res.Texts {
				if s, ok := set.Get(text); ok {
					p.Leveler.Apply(s, nil, nil)
				}
			}
			return p.persist(ctx, pw, res.Texts, func(tx *sql.Tx) error {
				for _, text := range res.Texts {
					if err := db.RecordFailure(tx, db.PassTag, text, res.Err); err != nil {
						return err
					}
				}
				return nil
			})
		}

		for _, ann := range res.Out {
			s, ok := set.Get(ann.Text)
			if !ok {
				continue
			}
			stats.Tagged++
			if !p.apply(set, s, ann.Tokens, ann.POS, ann.Clause) {
				stats.NonClause++
			}
		}
		anns := res.Out
		return p.persist(ctx, pw, res.Texts, func(tx *sql.Tx) error {
			for _, ann := range anns {
				if err := db.SaveTagRecord(tx, db.TagRecord{
					Sentence: ann.Text, Tokens: ann.Tokens, POS: ann.POS, Clause: ann.Clause,
				}); err != nil {
					return err
				}
				if err := db.ClearFailure(tx, db.PassTag, ann.Text); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := dispatch(ctx, &p.Runner, pending, p.Annotator.Annotate, consume)
	if pw != nil {
		if cerr := pw.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	log.Info("tagging finished",
		"total", stats.Total, "cached", stats.Cached, "tagged", stats.Tagged,
		"non_clause", stats.NonClause, "failed", stats.Failed)
	return stats, err
}

// persist queues one batch worth of progress rows for texts. Without a
// progress log it does nothing.
func (r *Runner) persist(ctx context.Context, pw *ProgressWriter, texts []string, write func(tx *sql.Tx) error) error {
	if pw == nil {
		return nil
	}
	return pw.Write(ctx, texts, write)
}
