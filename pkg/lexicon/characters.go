package lexicon

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"
)

// CharacterIndex records, for every character seen in a headword, the lowest
// level of any word containing it. Levels only ever decrease.
type CharacterIndex struct {
	levels map[rune]int
}

// NewCharacterIndex returns an empty index.
func NewCharacterIndex() *CharacterIndex {
	return &CharacterIndex{levels: make(map[rune]int)}
}

// Observe folds a word of the given level into the index.
func (ci *CharacterIndex) Observe(headword string, level int) {
	for _, r := range headword {
		if cur, ok := ci.levels[r]; !ok || level < cur {
			ci.levels[r] = level
		}
	}
}

// Set records an explicit level for r, as when loading a cached index.
func (ci *CharacterIndex) Set(r rune, level int) {
	if cur, ok := ci.levels[r]; !ok || level < cur {
		ci.levels[r] = level
	}
}

// Merge min-reduces other into ci.
func (ci *CharacterIndex) Merge(other *CharacterIndex) {
	for r, level := range other.levels {
		ci.Set(r, level)
	}
}

// Level returns the level of r.
func (ci *CharacterIndex) Level(r rune) (int, bool) {
	level, ok := ci.levels[r]
	return level, ok
}

// Known reports whether r appears in any headword.
func (ci *CharacterIndex) Known(r rune) bool {
	_, ok := ci.levels[r]
	return ok
}

// Len returns the number of indexed characters.
func (ci *CharacterIndex) Len() int { return len(ci.levels) }

// Runes returns the indexed characters sorted by (level, code point).
func (ci *CharacterIndex) Runes() []rune {
	out := make([]rune, 0, len(ci.levels))
	for r := range ci.levels {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b rune) int {
		if la, lb := ci.levels[a], ci.levels[b]; la != lb {
			return la - lb
		}
		return int(a - b)
	})
	return out
}

// BuildCharacterIndex shards words across workers, indexes each shard
// independently and min-reduces the shards into one index.
func BuildCharacterIndex(ctx context.Context, words []*Word, workers int) (*CharacterIndex, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(words) {
		workers = max(len(words), 1)
	}
	shards := make([]*CharacterIndex, workers)
	size := (len(words) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for i := range shards {
		lo, hi := i*size, min((i+1)*size, len(words))
		shard := NewCharacterIndex()
		shards[i] = shard
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			for _, w := range words[lo:hi] {
				if err := ctx.Err(); err != nil {
					return err
				}
				shard.Observe(w.Headword, w.Level)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := NewCharacterIndex()
	for _, shard := range shards {
		index.Merge(shard)
	}
	return index, nil
}
