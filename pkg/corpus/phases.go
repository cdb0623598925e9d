package corpus

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/japaniel/hskcorpus/pkg/cloze"
	"github.com/japaniel/hskcorpus/pkg/db"
	"github.com/japaniel/hskcorpus/pkg/dictionary"
	"github.com/japaniel/hskcorpus/pkg/export"
	"github.com/japaniel/hskcorpus/pkg/ingest"
	"github.com/japaniel/hskcorpus/pkg/level"
	"github.com/japaniel/hskcorpus/pkg/lexicon"
	"github.com/japaniel/hskcorpus/pkg/nlp"
	"github.com/japaniel/hskcorpus/pkg/sentence"
)

// WordStats summarizes the words phase.
type WordStats struct {
	Cached     bool                  `yaml:"cached"`
	HSK        dictionary.LoadStats  `yaml:"hsk"`
	Wiktionary *dictionary.LoadStats `yaml:"wiktionary,omitempty"`
	Fusion     *lexicon.FusionStats  `yaml:"fusion,omitempty"`
	Examples   int                   `yaml:"examples"`
	Files      []string              `yaml:"files,omitempty"`
}

// BuildWords fills Lexicon and Chars, from the export cache when it is
// enabled and valid, otherwise by fusing the HSK list with Wiktionary.
func (b *Builder) BuildWords(ctx context.Context) (PhaseResult, error) {
	return b.phase(PhaseWords, func(res *PhaseResult) error {
		stats := &WordStats{}
		res.Stats = stats

		if b.Config.Output.UseCache {
			cache := export.LoadCache(b.Config.Output.Dir)
			switch {
			case cache.OK():
				b.Lexicon, b.Chars = cache.Lexicon, cache.Chars
				stats.Cached = true
				b.Logger.Info("using cached lexicon", "dir", b.Config.Output.Dir,
					"words", b.Lexicon.Len(), "characters", b.Chars.Len())
				return nil
			case errors.Is(cache.Err, export.ErrCacheMissing):
				b.Logger.Info("no cached lexicon, building from sources")
			default:
				b.Logger.Warn("cached lexicon unusable, rebuilding", "error", cache.Err)
				res.Errors = append(res.Errors, cache.Err.Error())
			}
		}

		if err := b.ensureSources(ctx, res); err != nil {
			return err
		}

		list, hskStats, err := dictionary.LoadHSK(b.Config.Sources.HSKPath, b.Classifier)
		stats.HSK = hskStats
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPrimarySource, err)
		}
		if len(list.Headwords) == 0 {
			return fmt.Errorf("%w: %s has no headwords", ErrPrimarySource, b.Config.Sources.HSKPath)
		}

		var richer []lexicon.Candidates
		if kaikki, ok := b.loadKaikki(list, res); ok {
			stats.Wiktionary = &kaikki.Stats
			richer = append(richer, kaikki.Candidates)
			b.examples = kaikki.Examples
			stats.Examples = len(kaikki.Examples)
		}

		lx, fusion := lexicon.Fuse(list, richer...)
		stats.Fusion = &fusion
		chars, err := lexicon.BuildCharacterIndex(ctx, lx.Words(), b.workers())
		if err != nil {
			return err
		}
		b.Lexicon, b.Chars = lx, chars
		b.Logger.Info("lexicon built", "words", lx.Len(), "characters", chars.Len(),
			"dropped", fusion.Dropped)

		if b.Config.Output.UseCache {
			files, err := export.WriteLexicon(b.Config.Output.Dir, lx.Words(), chars)
			stats.Files = files
			if err != nil {
				return fmt.Errorf("write lexicon cache: %w", err)
			}
		}
		return nil
	})
}

// loadKaikki reads the Wiktionary dump. It is optional: any failure is
// logged and the build continues without it.
func (b *Builder) loadKaikki(list lexicon.FrequencyList, res *PhaseResult) (dictionary.KaikkiResult, bool) {
	path := b.Config.Sources.WiktionaryPath
	if !fileExists(path) {
		if path != "" {
			b.Logger.Warn("wiktionary dump not found", "path", path)
		}
		return dictionary.KaikkiResult{}, false
	}
	inList := make(map[string]bool, len(list.Headwords))
	for _, h := range list.Headwords {
		inList[h.Text] = true
	}
	kaikki, err := dictionary.LoadKaikki(path, b.Converter, func(s string) bool { return inList[s] })
	if err != nil {
		b.Logger.Warn("wiktionary dump unreadable", "path", path, "error", err)
		res.Errors = append(res.Errors, err.Error())
		return dictionary.KaikkiResult{}, false
	}
	return kaikki, true
}

// kaikkiExamples returns the Wiktionary usage sentences whose headword is
// made only of known characters. After a cache hit the dump is read again
// for its examples.
func (b *Builder) kaikkiExamples(res *PhaseResult) []string {
	examples := b.examples
	if examples == nil {
		path := b.Config.Sources.WiktionaryPath
		if !fileExists(path) {
			return nil
		}
		kaikki, err := dictionary.LoadKaikki(path, b.Converter, func(string) bool { return false })
		if err != nil {
			b.Logger.Warn("wiktionary examples unavailable", "error", err)
			res.Errors = append(res.Errors, err.Error())
			return nil
		}
		examples = kaikki.Examples
	}

	var out []string
	for _, ex := range examples {
		known := ex.Headword != ""
		for _, r := range ex.Headword {
			if !b.Chars.Known(r) {
				known = false
				break
			}
		}
		if known {
			out = append(out, ex.Text)
		}
	}
	return out
}

// CollectSentences validates the Tatoeba, Wiktionary and article sentences
// into one deduplicated set. Every sentence source is optional.
func (b *Builder) CollectSentences(ctx context.Context) (PhaseResult, error) {
	return b.phase(PhaseSentences, func(res *PhaseResult) error {
		if b.Chars == nil {
			return errors.New("character index not built")
		}
		src := b.Config.Sources
		files := []struct {
			source string
			path   string
			load   func(string) ([]string, int, error)
		}{
			{sentence.SourceTatoeba, src.TatoebaPath, sentence.LoadTatoeba},
			{sentence.SourceArticle, src.ArticlesPath, sentence.LoadArticles},
		}
		loaded := make([][]string, len(files))
		malformed := make([]int, len(files))
		warnings := make([]error, len(files))

		var g errgroup.Group
		for i, f := range files {
			if !fileExists(f.path) {
				if f.path != "" {
					b.Logger.Warn("sentence source not found", "source", f.source, "path", f.path)
				}
				continue
			}
			g.Go(func() error {
				texts, bad, err := f.load(f.path)
				if err != nil {
					warnings[i] = fmt.Errorf("%s: %w", f.source, err)
				}
				loaded[i], malformed[i] = texts, bad
				return nil
			})
		}
		_ = g.Wait()
		for i, n := range malformed {
			if n > 0 {
				b.Logger.Warn("malformed sentence rows skipped", "source", files[i].source,
					"path", files[i].path, "rows", n)
			}
		}
		for _, err := range warnings {
			if err != nil {
				b.Logger.Warn("sentence source partially read", "error", err)
				res.Errors = append(res.Errors, err.Error())
			}
		}

		batches := []sentence.Batch{
			{Source: sentence.SourceTatoeba, Texts: loaded[0], Malformed: malformed[0]},
			{Source: sentence.SourceWiktionary, Texts: b.kaikkiExamples(res)},
			{Source: sentence.SourceArticle, Texts: loaded[1], Malformed: malformed[1]},
		}

		v := sentence.NewValidator(b.Converter, b.Chars)
		v.Min, v.Max = b.Config.Validation.MinLength, b.Config.Validation.MaxLength

		set, stats, err := sentence.Collect(ctx, v, batches, b.workers())
		if err != nil {
			return err
		}
		res.Stats = stats
		b.Sentences = set
		b.examples = nil
		b.Logger.Info("sentences collected", "accepted", stats.Accepted,
			"duplicates", stats.Duplicates, "malformed", stats.Malformed, "total", stats.Total)
		return nil
	})
}

func (b *Builder) annotator() (ingest.Annotator, error) {
	if b.Annotator != nil {
		return b.Annotator, nil
	}
	t := b.Config.Tagging
	if t.Endpoint != "" {
		c := nlp.NewHanLPClient(t.Endpoint, t.APIKey, t.Timeout)
		return nlp.Pipeline{Tokenizer: c, Tagger: c, Validator: c}, nil
	}
	b.Logger.Info("no tagger endpoint configured, using the offline lexicon analyzer")
	a, err := nlp.NewAnalyzer(b.Lexicon)
	if err != nil {
		return nil, err
	}
	return nlp.Pipeline{Tokenizer: a, Tagger: a, Validator: nlp.AcceptAll{}}, nil
}

// Tag segments, tags and levels every sentence, dropping non-clauses.
func (b *Builder) Tag(ctx context.Context) (PhaseResult, error) {
	return b.phase(PhaseTag, func(res *PhaseResult) error {
		if b.Sentences == nil {
			return errors.New("sentences not collected")
		}
		conn, err := b.openProgress()
		if err != nil {
			return err
		}
		ann, err := b.annotator()
		if err != nil {
			return err
		}
		pass := ingest.NewTagPass(conn, ann, level.New(b.Lexicon, b.Chars))
		t := b.Config.Tagging
		pass.BatchSize, pass.FeedSize, pass.Workers = t.BatchSize, t.FlushSize, t.Workers
		pass.Logger = b.Logger
		pass.OnProgress = func(done, total int) {
			b.Logger.Debug("tagging progress", "done", done, "total", total)
		}

		stats, err := pass.Run(ctx, b.Sentences)
		res.Stats = stats
		if stats.Failed > 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("%d sentences could not be tagged", stats.Failed))
		}
		return err
	})
}

func (b *Builder) translator() nlp.Translator {
	if b.Translator != nil {
		return b.Translator
	}
	t := b.Config.Translation
	if !t.Enabled {
		return nil
	}
	return nlp.NewLibreTranslator(t.Endpoint, t.APIKey, t.SourceLang, t.TargetLang, t.Timeout)
}

// Translate attaches translations when a translator is configured.
func (b *Builder) Translate(ctx context.Context) (PhaseResult, error) {
	return b.phase(PhaseTranslate, func(res *PhaseResult) error {
		tr := b.translator()
		if tr == nil {
			res.Skipped = true
			return nil
		}
		if b.Sentences == nil {
			return errors.New("sentences not collected")
		}
		conn, err := b.openProgress()
		if err != nil {
			return err
		}
		pass := ingest.NewTranslatePass(conn, tr)
		t := b.Config.Translation
		pass.Logger = b.Logger
		if t.BatchSize > 0 {
			pass.BatchSize = t.BatchSize
		}
		if t.Workers > 0 {
			pass.Workers = t.Workers
		}
		if t.MaxAttempts > 0 {
			pass.MaxAttempts = t.MaxAttempts
		}
		if t.InitialBackoff > 0 {
			pass.InitialBackoff = t.InitialBackoff
		}

		stats, err := pass.Run(ctx, b.Sentences)
		res.Stats = stats
		if stats.Failed > 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("%d sentences left untranslated", stats.Failed))
		}
		return err
	})
}

// ClozeStats summarizes the cloze phase.
type ClozeStats struct {
	Scored      int `yaml:"scored"`
	Unmatched   int `yaml:"unmatched"`
	Links       int `yaml:"links"`
	LinkedWords int `yaml:"linked_words"`
}

const clozeChunk = 256

// Cloze scores every sentence and links words to the sentences containing
// them.
func (b *Builder) Cloze(ctx context.Context) (PhaseResult, error) {
	return b.phase(PhaseCloze, func(res *PhaseResult) error {
		if b.Sentences == nil {
			return errors.New("sentences not collected")
		}
		words := b.Lexicon.Words()
		sentences := b.Sentences.Sentences()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.workers())
		for lo := 0; lo < len(sentences); lo += clozeChunk {
			part := sentences[lo:min(lo+clozeChunk, len(sentences))]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				for _, s := range part {
					s.Difficulty = cloze.Difficulty(s.Text, words)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		b.Links = cloze.NewMatcher(b.Lexicon.Headwords()).Links(b.Sentences.Texts())

		stats := ClozeStats{Scored: len(sentences), Links: len(b.Links)}
		for _, s := range sentences {
			if s.Difficulty >= cloze.MaxDifficulty {
				stats.Unmatched++
			}
		}
		linked := make(map[string]struct{})
		for _, l := range b.Links {
			linked[l.Word] = struct{}{}
		}
		stats.LinkedWords = len(linked)
		res.Stats = stats
		return nil
	})
}

// Corpus returns the built aggregates in export form.
func (b *Builder) Corpus() db.Corpus {
	c := db.Corpus{Links: b.Links}
	if b.Lexicon != nil {
		c.Words = b.Lexicon.Words()
	}
	if b.Chars != nil {
		c.Characters = export.Characters(b.Chars)
	}
	if b.Sentences != nil {
		c.Sentences = b.Sentences.Sentences()
	}
	return c
}

// Export writes the corpus in every configured format.
func (b *Builder) Export(ctx context.Context) (PhaseResult, error) {
	return b.phase(PhaseExport, func(res *PhaseResult) error {
		out := b.Config.Output
		var formats []string
		for _, f := range []string{export.FormatJSON, export.FormatCSV, export.FormatSQLite} {
			if out.HasFormat(f) {
				formats = append(formats, f)
			}
		}
		if len(formats) == 0 {
			b.Logger.Warn("no known export format configured", "formats", out.Formats)
		}
		e := &export.Exporter{
			Dir:        out.Dir,
			SQLitePath: out.SQLitePath,
			Formats:    formats,
			Logger:     b.Logger,
		}
		stats, err := e.Export(ctx, b.Corpus())
		res.Stats = stats
		return err
	})
}
