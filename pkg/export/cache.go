package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/japaniel/hskcorpus/pkg/lexicon"
)

// ErrCacheMissing means a cached artifact does not exist yet.
var ErrCacheMissing = errors.New("cached artifact missing")

// CacheResult is the outcome of loading cached word and character
// artifacts. Err explains why the cache could not be used; the caller then
// recomputes from source.
type CacheResult struct {
	Lexicon *lexicon.Lexicon
	Chars   *lexicon.CharacterIndex
	Err     error
}

// OK reports whether the cache was loaded.
func (r CacheResult) OK() bool { return r.Err == nil && r.Lexicon != nil && r.Chars != nil }

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrCacheMissing, path)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadCache reads words.json and characters.json from dir.
func LoadCache(dir string) CacheResult {
	var words []*lexicon.Word
	if err := readJSON(filepath.Join(dir, WordsFile), &words); err != nil {
		return CacheResult{Err: err}
	}
	if len(words) == 0 {
		return CacheResult{Err: fmt.Errorf("%s: no words", WordsFile)}
	}
	for i, w := range words {
		if w == nil || w.Headword == "" || w.Level <= 0 {
			return CacheResult{Err: fmt.Errorf("%s: invalid word at index %d", WordsFile, i)}
		}
	}

	var levels map[string]int
	if err := readJSON(filepath.Join(dir, CharactersFile), &levels); err != nil {
		return CacheResult{Err: err}
	}
	chars := lexicon.NewCharacterIndex()
	for text, lv := range levels {
		r, size := utf8.DecodeRuneInString(text)
		if r == utf8.RuneError || size != len(text) || lv <= 0 {
			return CacheResult{Err: fmt.Errorf("%s: invalid entry %q", CharactersFile, text)}
		}
		chars.Set(r, lv)
	}
	return CacheResult{Lexicon: lexicon.FromWords(words), Chars: chars}
}
