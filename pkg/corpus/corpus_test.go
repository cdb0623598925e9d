package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/hskcorpus/pkg/config"
	"github.com/japaniel/hskcorpus/pkg/export"
	"github.com/japaniel/hskcorpus/pkg/ingest"
	"github.com/japaniel/hskcorpus/pkg/sentence"
)

var hskWords = []struct {
	word, level, pos, pinyin, meaning string
	rank                              int
}{
	{"我们", "new-1", "r", "wǒmen", "we", 10},
	{"去", "new-1", "v", "qù", "to go", 20},
	{"学校", "new-1", "n", "xuéxiào", "school", 30},
	{"今天", "new-1", "n", "jīntiān", "today", 40},
	{"很", "new-1", "d", "hěn", "very", 5},
	{"好", "new-1", "a", "hǎo", "good", 6},
	{"天气", "new-2", "n", "tiānqì", "weather", 50},
}

const tatoebaFixture = "1\tcmn\t我们去学校。\n" +
	"2\tcmn\t今天天气很好。\n" +
	"3\tcmn\t我们去。\n" +
	"4\tcmn\t猫很好。\n" +
	"5\tcmn\t今天天气很好。\n" +
	"broken line\n"

func writeFixtures(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	var records []string
	for _, w := range hskWords {
		records = append(records, fmt.Sprintf(
			`{"simplified": %q, "level": [%q], "frequency": %d, "pos": [%q], "forms": [{"transcriptions": {"pinyin": %q}, "meanings": [%q]}]}`,
			w.word, w.level, w.rank, w.pos, w.pinyin, w.meaning))
	}
	hsk := filepath.Join(dir, "complete.json")
	require.NoError(t, os.WriteFile(hsk, []byte("["+strings.Join(records, ",\n")+"]"), 0o644))

	tatoeba := filepath.Join(dir, "cmn_sentences.tsv")
	require.NoError(t, os.WriteFile(tatoeba, []byte(tatoebaFixture), 0o644))

	return &config.Config{
		Sources: config.SourcesConfig{
			HSKPath:        hsk,
			TatoebaPath:    tatoeba,
			WiktionaryPath: filepath.Join(dir, "missing.jsonl"),
		},
		Validation: config.ValidationConfig{MinLength: 5, MaxLength: 36},
		Tagging:    config.TaggingConfig{BatchSize: 1, Workers: 2},
		Output: config.OutputConfig{
			Dir:        filepath.Join(dir, "export"),
			ProgressDB: filepath.Join(dir, "progress.db"),
			SQLitePath: filepath.Join(dir, "export", "data.db"),
			Formats:    "json,sqlite",
			UseCache:   true,
		},
	}
}

func newBuilder(t *testing.T, cfg *config.Config) *Builder {
	t.Helper()
	b, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func phase(t *testing.T, r *Report, name string) PhaseResult {
	t.Helper()
	for _, p := range r.Phases {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("phase %s not in report", name)
	return PhaseResult{}
}

func TestRun(t *testing.T) {
	cfg := writeFixtures(t)
	b := newBuilder(t, cfg)

	report, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, report.Phases, 6)
	assert.Equal(t, 7, report.Words)
	assert.Equal(t, 10, report.Characters)
	assert.Equal(t, 2, report.Sentences)
	assert.Equal(t, 7, report.Links)
	assert.True(t, phase(t, report, PhaseTranslate).Skipped)
	assert.False(t, phase(t, report, PhaseWords).Stats.(*WordStats).Cached)

	first, ok := b.Sentences.Get("我们去学校。")
	require.True(t, ok)
	assert.Equal(t, 1, first.Level)
	assert.Equal(t, 30, first.Difficulty)

	second, ok := b.Sentences.Get("今天天气很好。")
	require.True(t, ok)
	assert.Equal(t, 2, second.CharacterLevel)
	assert.Equal(t, 2, second.WordLevel)
	assert.Equal(t, 50, second.Difficulty)

	for _, name := range []string{export.WordsFile, export.CharactersFile, export.SentencesFile, export.LinksFile} {
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, name))
	}
	assert.FileExists(t, cfg.Output.SQLitePath)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, "words.csv"))

	stats := phase(t, report, PhaseSentences).Stats.(sentence.CollectStats)
	assert.Equal(t, 1, stats.Malformed)
}

func TestRunExportsOnlyConfiguredFormats(t *testing.T) {
	cfg := writeFixtures(t)
	cfg.Output.Formats = " CSV , parquet"
	b := newBuilder(t, cfg)

	report, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "words.csv"))
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, export.WordsFile))
	assert.NoFileExists(t, cfg.Output.SQLitePath)
	stats := phase(t, report, PhaseExport).Stats.(export.Stats)
	assert.Len(t, stats.Files, 4)
	assert.Nil(t, stats.SQLite)
}

func TestRunResumesFromCacheAndProgress(t *testing.T) {
	cfg := writeFixtures(t)
	first := newBuilder(t, cfg)
	_, err := first.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Without the HSK list the second run must come entirely from the cache.
	require.NoError(t, os.Remove(cfg.Sources.HSKPath))

	second := newBuilder(t, cfg)
	report, err := second.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, phase(t, report, PhaseWords).Stats.(*WordStats).Cached)
	tag := phase(t, report, PhaseTag).Stats.(ingest.TagStats)
	assert.Equal(t, 2, tag.Cached)
	assert.Zero(t, tag.Tagged)
	assert.Equal(t, 2, report.Sentences)
}

func TestRunMissingPrimarySource(t *testing.T) {
	cfg := writeFixtures(t)
	cfg.Sources.HSKPath = filepath.Join(t.TempDir(), "nope.json")

	report, err := newBuilder(t, cfg).Run(context.Background())
	require.ErrorIs(t, err, ErrPrimarySource)
	require.Len(t, report.Phases, 1)
	assert.Equal(t, PhaseWords, report.Phases[0].Name)
}

func TestRunRebuildsFromCorruptCache(t *testing.T) {
	cfg := writeFixtures(t)
	require.NoError(t, os.MkdirAll(cfg.Output.Dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Output.Dir, export.WordsFile), []byte("[]"), 0o644))

	b := newBuilder(t, cfg)
	res, err := b.BuildWords(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Stats.(*WordStats).Cached)
	assert.NotEmpty(t, res.Errors)
	assert.Equal(t, 7, b.Lexicon.Len())
}

type prefixTranslator struct{}

func (prefixTranslator) Translate(_ context.Context, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "EN:" + t
	}
	return out, nil
}

func TestRunWithTranslator(t *testing.T) {
	cfg := writeFixtures(t)
	b := newBuilder(t, cfg)
	b.Translator = prefixTranslator{}

	report, err := b.Run(context.Background())
	require.NoError(t, err)

	tr := phase(t, report, PhaseTranslate)
	assert.False(t, tr.Skipped)
	assert.Equal(t, 2, tr.Stats.(ingest.TranslateStats).Translated)

	s, ok := b.Sentences.Get("我们去学校。")
	require.True(t, ok)
	require.NotNil(t, s.Translation)
	assert.Equal(t, "EN:我们去学校。", *s.Translation)
}

func TestPhasesRequireOrder(t *testing.T) {
	b := newBuilder(t, writeFixtures(t))
	_, err := b.CollectSentences(context.Background())
	require.Error(t, err)
	_, err = b.Tag(context.Background())
	require.Error(t, err)
}

func TestImportArticleRequiresPath(t *testing.T) {
	_, _, err := ImportArticle(context.Background(), nil, " ", "http://example.com")
	require.Error(t, err)
}
