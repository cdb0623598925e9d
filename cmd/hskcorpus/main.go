package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/hskcorpus/pkg/config"
	"github.com/japaniel/hskcorpus/pkg/corpus"
	"github.com/japaniel/hskcorpus/pkg/nlp"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, corpus.ErrPrimarySource) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "hskcorpus",
		Usage: "build an HSK leveled Chinese word and sentence corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to YAML config", EnvVars: []string{"HSKCORPUS_CONFIG"}},
			&cli.StringFlag{Name: "hsk", Usage: "HSK word list JSON (overrides sources.hsk_path)"},
			&cli.StringFlag{Name: "tatoeba", Usage: "Tatoeba sentences TSV (overrides sources.tatoeba_path)"},
			&cli.StringFlag{Name: "wiktionary", Usage: "kaikki.org JSONL dump (overrides sources.wiktionary_path)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "export directory (overrides output.dir)"},
			&cli.StringFlag{Name: "formats", Usage: "comma separated export formats: json, csv, sqlite"},
			&cli.BoolFlag{Name: "no-cache", Usage: "rebuild the lexicon even if a cached export exists"},
			&cli.BoolFlag{Name: "download", Usage: "download missing datasets"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "run every phase and export the corpus",
				Action: buildAction,
			},
			{
				Name:   "words",
				Usage:  "build and cache the fused lexicon only",
				Action: wordsAction,
			},
			{
				Name:      "article",
				Usage:     "fetch a web article and append its sentences to the articles file",
				ArgsUsage: "URL",
				Action:    articleAction,
			},
		},
	}
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(c.String("config"), func(cfg *config.Config) {
		if v := c.String("hsk"); v != "" {
			cfg.Sources.HSKPath = v
		}
		if v := c.String("tatoeba"); v != "" {
			cfg.Sources.TatoebaPath = v
		}
		if v := c.String("wiktionary"); v != "" {
			cfg.Sources.WiktionaryPath = v
		}
		if v := c.String("out"); v != "" {
			cfg.Output.Dir = v
		}
		if v := c.String("formats"); v != "" {
			cfg.Output.Formats = v
		}
		if c.Bool("no-cache") {
			cfg.Output.UseCache = false
		}
		if c.Bool("download") {
			cfg.Sources.AutoDownload = true
		}
		if v := c.String("log-level"); v != "" {
			cfg.Log.Level = v
		}
	})
}

func newBuilder(c *cli.Context) (*corpus.Builder, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return corpus.New(cfg, config.NewLogger(cfg.Log))
}

func writeYAML(w io.Writer, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	_, err = w.Write(out)
	return err
}

func buildAction(c *cli.Context) error {
	b, err := newBuilder(c)
	if err != nil {
		return err
	}
	defer b.Close()

	report, err := b.Run(c.Context)
	if werr := writeYAML(c.App.Writer, report); werr != nil && err == nil {
		err = werr
	}
	return err
}

func wordsAction(c *cli.Context) error {
	b, err := newBuilder(c)
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := b.BuildWords(c.Context)
	if werr := writeYAML(c.App.Writer, res); werr != nil && err == nil {
		err = werr
	}
	return err
}

func articleAction(c *cli.Context) error {
	url := c.Args().First()
	if url == "" {
		return errors.New("article: URL argument is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log)

	article, n, err := corpus.ImportArticle(c.Context, nlp.NewArticleFetcher(), cfg.Sources.ArticlesPath, url)
	if err != nil {
		return err
	}
	logger.Info("article imported", "url", url, "title", article.Title, "sentences", n)
	return writeYAML(c.App.Writer, map[string]any{
		"url":       url,
		"title":     article.Title,
		"sentences": n,
		"path":      cfg.Sources.ArticlesPath,
	})
}
