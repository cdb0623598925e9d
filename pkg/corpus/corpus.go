// Package corpus runs the build pipeline: it owns the word, character and
// sentence aggregates and drives each phase over them in order.
package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/japaniel/hskcorpus/pkg/cloze"
	"github.com/japaniel/hskcorpus/pkg/config"
	"github.com/japaniel/hskcorpus/pkg/db"
	"github.com/japaniel/hskcorpus/pkg/dictionary"
	"github.com/japaniel/hskcorpus/pkg/ingest"
	"github.com/japaniel/hskcorpus/pkg/lexicon"
	"github.com/japaniel/hskcorpus/pkg/nlp"
	"github.com/japaniel/hskcorpus/pkg/sentence"
)

// ErrPrimarySource means the HSK frequency list could not be loaded. It is
// the only condition that stops a build.
var ErrPrimarySource = errors.New("primary source unavailable")

// Phase names, in run order.
const (
	PhaseWords     = "words"
	PhaseSentences = "sentences"
	PhaseTag       = "tag"
	PhaseTranslate = "translate"
	PhaseCloze     = "cloze"
	PhaseExport    = "export"
)

// PhaseResult records what one phase did. Errors lists non-fatal problems.
type PhaseResult struct {
	Name     string        `yaml:"name"`
	Duration time.Duration `yaml:"duration"`
	Skipped  bool          `yaml:"skipped,omitempty"`
	Stats    any           `yaml:"stats,omitempty"`
	Errors   []string      `yaml:"errors,omitempty"`
}

// Report summarizes a build.
type Report struct {
	Phases     []PhaseResult `yaml:"phases"`
	Words      int           `yaml:"words"`
	Characters int           `yaml:"characters"`
	Sentences  int           `yaml:"sentences"`
	Links      int           `yaml:"links"`
	Duration   time.Duration `yaml:"duration"`
}

// Builder holds the collaborators and the aggregates of one build. Phases
// must run in order; each one reads what the previous ones produced.
type Builder struct {
	Config     *config.Config
	Logger     *slog.Logger
	Converter  nlp.ScriptConverter
	Classifier lexicon.PosClassifier
	Downloader *dictionary.Downloader

	// Annotator and Translator override the ones selected from Config.
	Annotator  ingest.Annotator
	Translator nlp.Translator

	Lexicon   *lexicon.Lexicon
	Chars     *lexicon.CharacterIndex
	Sentences *sentence.Set
	Links     []cloze.Link

	examples []dictionary.Example
	progress *sql.DB
}

// New returns a Builder wired with the OpenCC converter, the rule-based
// definition classifier and a dataset downloader.
func New(cfg *config.Config, logger *slog.Logger) (*Builder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conv, err := nlp.NewOpenCCConverter()
	if err != nil {
		return nil, err
	}
	return &Builder{
		Config:     cfg,
		Logger:     logger,
		Converter:  conv,
		Classifier: lexicon.RuleClassifier{},
		Downloader: dictionary.NewDownloader(logger),
	}, nil
}

// Close releases the progress log.
func (b *Builder) Close() error {
	if b.progress == nil {
		return nil
	}
	err := b.progress.Close()
	b.progress = nil
	return err
}

func (b *Builder) workers() int {
	return max(runtime.NumCPU(), 1)
}

func (b *Builder) openProgress() (*sql.DB, error) {
	if b.progress != nil {
		return b.progress, nil
	}
	path := b.Config.Output.ProgressDB
	if path == "" {
		return nil, nil
	}
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.InitDB(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init progress db: %w", err)
	}
	b.progress = conn
	return conn, nil
}

// phase times fn and logs its start and end.
func (b *Builder) phase(name string, fn func(*PhaseResult) error) (PhaseResult, error) {
	res := PhaseResult{Name: name}
	b.Logger.Info("phase started", "phase", name)
	start := time.Now()
	err := fn(&res)
	res.Duration = time.Since(start)
	if err != nil {
		b.Logger.Error("phase failed", "phase", name, "error", err, "duration", res.Duration)
		return res, err
	}
	b.Logger.Info("phase finished", "phase", name, "duration", res.Duration, "skipped", res.Skipped)
	return res, nil
}

// Run executes every phase in order. The report covers the phases that ran
// even when an error stops the build.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}
	steps := []func(context.Context) (PhaseResult, error){
		b.BuildWords,
		b.CollectSentences,
		b.Tag,
		b.Translate,
		b.Cloze,
		b.Export,
	}
	var err error
	for _, step := range steps {
		var res PhaseResult
		res, err = step(ctx)
		report.Phases = append(report.Phases, res)
		if err != nil {
			break
		}
	}

	if b.Lexicon != nil {
		report.Words = b.Lexicon.Len()
	}
	if b.Chars != nil {
		report.Characters = b.Chars.Len()
	}
	if b.Sentences != nil {
		report.Sentences = b.Sentences.Len()
	}
	report.Links = len(b.Links)
	report.Duration = time.Since(start)
	return report, err
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// ensureSources downloads missing datasets in parallel when auto download
// is on. Only the HSK list is required.
func (b *Builder) ensureSources(ctx context.Context, res *PhaseResult) error {
	src := b.Config.Sources
	if !src.AutoDownload {
		if !fileExists(src.HSKPath) {
			return fmt.Errorf("%w: %s not found", ErrPrimarySource, src.HSKPath)
		}
		return nil
	}

	optional := []struct{ path, url string }{
		{src.WiktionaryPath, src.WiktionaryURL},
		{src.TatoebaPath, src.TatoebaURL},
	}
	failures := make([]error, len(optional))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := b.Downloader.EnsureDataset(gctx, src.HSKPath, src.HSKURL); err != nil {
			return fmt.Errorf("%w: %v", ErrPrimarySource, err)
		}
		return nil
	})
	for i, o := range optional {
		if o.path == "" || o.url == "" {
			continue
		}
		g.Go(func() error {
			failures[i] = b.Downloader.EnsureDataset(gctx, o.path, o.url)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, err := range failures {
		if err != nil {
			b.Logger.Warn("optional dataset unavailable", "error", err)
			res.Errors = append(res.Errors, err.Error())
		}
	}
	return nil
}

// ImportArticle fetches url, splits its main text into sentences and
// appends them to the articles file at path.
func ImportArticle(ctx context.Context, fetcher *nlp.ArticleFetcher, path, url string) (*nlp.Article, int, error) {
	if strings.TrimSpace(path) == "" {
		return nil, 0, errors.New("articles path is not configured")
	}
	article, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, 0, err
	}
	n, err := sentence.AppendArticle(path, url, article.Sentences)
	if err != nil {
		return article, n, fmt.Errorf("append article: %w", err)
	}
	return article, n, nil
}
