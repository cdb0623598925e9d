// Package config loads hskcorpus settings from an optional YAML file and the
// environment. Priority: ENV > YAML > defaults (via env-default tags).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration.
type Config struct {
	Sources     SourcesConfig     `yaml:"sources"`
	Validation  ValidationConfig  `yaml:"validation"`
	Tagging     TaggingConfig     `yaml:"tagging"`
	Translation TranslationConfig `yaml:"translation"`
	Output      OutputConfig      `yaml:"output"`
	Log         LogConfig         `yaml:"log"`
}

// SourcesConfig points at the raw datasets. Only the HSK list is required.
type SourcesConfig struct {
	HSKPath        string `yaml:"hsk_path"        env:"HSK_PATH"`
	HSKURL         string `yaml:"hsk_url"         env:"HSK_URL"         env-default:"https://raw.githubusercontent.com/drkameleon/complete-hsk-vocabulary/main/complete.json"`
	WiktionaryPath string `yaml:"wiktionary_path" env:"WIKTIONARY_PATH"`
	WiktionaryURL  string `yaml:"wiktionary_url"  env:"WIKTIONARY_URL"`
	TatoebaPath    string `yaml:"tatoeba_path"    env:"TATOEBA_PATH"`
	TatoebaURL     string `yaml:"tatoeba_url"     env:"TATOEBA_URL"`
	ArticlesPath   string `yaml:"articles_path"   env:"ARTICLES_PATH"`
	AutoDownload   bool   `yaml:"auto_download"   env:"AUTO_DOWNLOAD"   env-default:"false"`
}

// ValidationConfig bounds accepted sentence lengths (in characters).
type ValidationConfig struct {
	MinLength int `yaml:"min_length" env:"SENTENCE_MIN_LENGTH" env-default:"5"`
	MaxLength int `yaml:"max_length" env:"SENTENCE_MAX_LENGTH" env-default:"36"`
}

// TaggingConfig configures the tokenize/tag/parse pass. An empty Endpoint
// selects the offline lexicon tagger.
type TaggingConfig struct {
	Endpoint  string        `yaml:"endpoint"   env:"TAGGER_ENDPOINT"`
	APIKey    string        `yaml:"api_key"    env:"TAGGER_API_KEY"`
	BatchSize int           `yaml:"batch_size" env:"TAGGER_BATCH_SIZE" env-default:"32"`
	FlushSize int           `yaml:"flush_size" env:"TAGGER_FLUSH_SIZE" env-default:"480"`
	Workers   int           `yaml:"workers"    env:"TAGGER_WORKERS"    env-default:"4"`
	Timeout   time.Duration `yaml:"timeout"    env:"TAGGER_TIMEOUT"    env-default:"60s"`
}

// TranslationConfig configures the best-effort translation pass.
type TranslationConfig struct {
	Enabled        bool          `yaml:"enabled"         env:"TRANSLATE_ENABLED"         env-default:"false"`
	Endpoint       string        `yaml:"endpoint"        env:"TRANSLATE_ENDPOINT"`
	APIKey         string        `yaml:"api_key"         env:"TRANSLATE_API_KEY"`
	SourceLang     string        `yaml:"source_lang"     env:"TRANSLATE_SOURCE_LANG"     env-default:"zh"`
	TargetLang     string        `yaml:"target_lang"     env:"TRANSLATE_TARGET_LANG"     env-default:"en"`
	BatchSize      int           `yaml:"batch_size"      env:"TRANSLATE_BATCH_SIZE"      env-default:"32"`
	Workers        int           `yaml:"workers"         env:"TRANSLATE_WORKERS"         env-default:"2"`
	MaxAttempts    int           `yaml:"max_attempts"    env:"TRANSLATE_MAX_ATTEMPTS"    env-default:"3"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"TRANSLATE_INITIAL_BACKOFF" env-default:"2s"`
	Timeout        time.Duration `yaml:"timeout"         env:"TRANSLATE_TIMEOUT"         env-default:"30s"`
}

// OutputConfig controls export sinks and the resumable progress log.
type OutputConfig struct {
	Dir        string `yaml:"dir"         env:"OUTPUT_DIR"         env-default:"export"`
	ProgressDB string `yaml:"progress_db" env:"OUTPUT_PROGRESS_DB" env-default:"progress.db"`
	SQLitePath string `yaml:"sqlite_path" env:"OUTPUT_SQLITE_PATH" env-default:"export/data.db"`
	Formats    string `yaml:"formats"     env:"OUTPUT_FORMATS"     env-default:"json,csv,sqlite"`
	UseCache   bool   `yaml:"use_cache"   env:"OUTPUT_USE_CACHE"   env-default:"true"`
}

// HasFormat reports whether the comma-separated Formats list contains name.
func (o OutputConfig) HasFormat(name string) bool {
	for _, f := range strings.Split(o.Formats, ",") {
		if strings.EqualFold(strings.TrimSpace(f), name) {
			return true
		}
	}
	return false
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Load reads configuration from path (if non-empty) and the environment,
// applies overrides in order, then validates it.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: file %s not found", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	for _, o := range overrides {
		o(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Sources.HSKPath == "" {
		errs = append(errs, errors.New("sources.hsk_path is required"))
	}
	if c.Validation.MinLength <= 0 || c.Validation.MaxLength < c.Validation.MinLength {
		errs = append(errs, fmt.Errorf("validation: invalid length bounds [%d, %d]",
			c.Validation.MinLength, c.Validation.MaxLength))
	}
	if c.Tagging.BatchSize <= 0 || c.Tagging.Workers <= 0 {
		errs = append(errs, errors.New("tagging: batch_size and workers must be positive"))
	}
	if c.Translation.Enabled {
		if c.Translation.Endpoint == "" {
			errs = append(errs, errors.New("translation.endpoint is required when translation is enabled"))
		}
		if c.Translation.MaxAttempts <= 0 || c.Translation.BatchSize <= 0 {
			errs = append(errs, errors.New("translation: max_attempts and batch_size must be positive"))
		}
	}
	return errors.Join(errs...)
}
