package sentence

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Batch is the raw sentence list of one source.
type Batch struct {
	Source string
	Texts  []string
	// Malformed counts the source rows dropped before validation.
	Malformed int
}

// CollectStats counts validation outcomes across all batches.
type CollectStats struct {
	Total      int            `yaml:"total"`
	Accepted   int            `yaml:"accepted"`
	Duplicates int            `yaml:"duplicates"`
	Malformed  int            `yaml:"malformed"`
	Rejected   map[Reason]int `yaml:"rejected"`
}

const collectChunk = 512

// Collect validates every batch on a worker group and merges the accepted
// sentences in batch order, so the first batch wins a duplicate text.
func Collect(ctx context.Context, v *Validator, batches []Batch, workers int) (*Set, CollectStats, error) {
	if workers < 1 {
		workers = 1
	}
	outcomes := make([][]Outcome, len(batches))
	for i, b := range batches {
		outcomes[i] = make([]Outcome, len(b.Texts))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, b := range batches {
		for lo := 0; lo < len(b.Texts); lo += collectChunk {
			hi := min(lo+collectChunk, len(b.Texts))
			out := outcomes[i]
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				for j := lo; j < hi; j++ {
					out[j] = v.Validate(b.Texts[j])
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, CollectStats{}, err
	}

	set := NewSet()
	stats := CollectStats{Rejected: make(map[Reason]int)}
	for i, b := range batches {
		stats.Malformed += b.Malformed
		for _, o := range outcomes[i] {
			stats.Total++
			if !o.Accepted {
				stats.Rejected[o.Reason]++
				continue
			}
			if set.Add(&Sentence{Text: o.Text, Source: b.Source}) {
				stats.Accepted++
			} else {
				stats.Duplicates++
			}
		}
	}
	return set, stats, nil
}

// LoadTatoeba reads the sentence text column of a Tatoeba sentences TSV
// (id, lang, text). Rows with fewer columns are skipped and counted in the
// returned malformed total.
func LoadTatoeba(path string) ([]string, int, error) {
	return loadColumn(path, 2, 3)
}

// LoadArticles reads the text column of the articles TSV (url, text).
func LoadArticles(path string) ([]string, int, error) {
	return loadColumn(path, 1, 2)
}

func loadColumn(path string, col, fields int) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return readColumn(f, col, fields)
}

func readColumn(r io.Reader, col, fields int) ([]string, int, error) {
	var out []string
	malformed := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "\t", fields)
		if len(parts) < fields {
			malformed++
			continue
		}
		out = append(out, parts[col])
	}
	if err := scanner.Err(); err != nil {
		return out, malformed, fmt.Errorf("scan: %w", err)
	}
	return out, malformed, nil
}

// AppendArticle appends sentences from url to the articles TSV at path.
func AppendArticle(path, url string, texts []string) (int, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	n := 0
	for _, t := range texts {
		t = strings.Join(strings.Fields(t), " ")
		if t == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", url, t); err != nil {
			return n, err
		}
		n++
	}
	return n, w.Flush()
}
