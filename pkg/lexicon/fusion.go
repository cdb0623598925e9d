package lexicon

import (
	"slices"
	"unicode/utf8"
)

// FusionStats counts how each headword of the frequency list was resolved.
type FusionStats struct {
	Words       int `yaml:"words"`
	FromPrimary int `yaml:"from_primary"`
	FromRicher  int `yaml:"from_richer"`
	Overlaid    int `yaml:"overlaid"`
	Dropped     int `yaml:"dropped"`
}

// MergeEntry adds e to entries. An entry with the same POS label absorbs e:
// pinyin is unioned in first-seen order and definitions are appended.
func MergeEntry(entries []Entry, e Entry) []Entry {
	for i := range entries {
		if entries[i].POS != e.POS {
			continue
		}
		for _, p := range e.Pinyin {
			if !slices.Contains(entries[i].Pinyin, p) {
				entries[i].Pinyin = append(entries[i].Pinyin, p)
			}
		}
		entries[i].Definitions = append(entries[i].Definitions, e.Definitions...)
		return entries
	}
	return append(entries, cloneEntry(e))
}

func cloneEntry(e Entry) Entry {
	return Entry{
		POS:         e.POS,
		Pinyin:      dedup(e.Pinyin),
		Definitions: slices.Clone(e.Definitions),
		Source:      e.Source,
	}
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = cloneEntry(e)
	}
	return out
}

func dedup(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// overlay unions base and top by POS label. Labels present in both take
// top's entry; base order comes first, then labels only top has.
func overlay(base, top []Entry) []Entry {
	out := make([]Entry, 0, len(base)+len(top))
	used := make(map[string]bool, len(top))
	for _, b := range base {
		chosen := b
		for _, t := range top {
			if t.POS == b.POS {
				chosen = t
				used[t.POS] = true
				break
			}
		}
		out = append(out, cloneEntry(chosen))
	}
	for _, t := range top {
		if !used[t.POS] && !containsPOS(out, t.POS) {
			out = append(out, cloneEntry(t))
		}
	}
	return out
}

func containsPOS(entries []Entry, pos string) bool {
	for _, e := range entries {
		if e.POS == pos {
			return true
		}
	}
	return false
}

// richerEntries combines the richer sources for headword. Sources are in
// precedence order, so an earlier source wins a shared label.
func richerEntries(headword string, richer []Candidates) []Entry {
	var combined []Entry
	for i := len(richer) - 1; i >= 0; i-- {
		if entries := richer[i].Entries[headword]; len(entries) > 0 {
			combined = overlay(combined, entries)
		}
	}
	return combined
}

// Fuse merges the frequency list with richer dictionaries into a Lexicon.
//
// Single-character headwords keep the frequency-list entries when it has
// any; multi-character headwords prefer the richer sources, overlaid on the
// frequency-list entries by POS. Headwords left without entries are dropped.
func Fuse(list FrequencyList, richer ...Candidates) (*Lexicon, FusionStats) {
	lx := newLexicon(len(list.Headwords))
	var stats FusionStats

	for _, hw := range list.Headwords {
		if _, seen := lx.words[hw.Text]; seen {
			continue
		}
		primary := list.Candidates.Entries[hw.Text]
		rich := richerEntries(hw.Text, richer)

		var entries []Entry
		switch {
		case utf8.RuneCountInString(hw.Text) == 1 && len(primary) > 0:
			entries = cloneEntries(primary)
			stats.FromPrimary++
		case len(rich) > 0 && len(primary) > 0 && utf8.RuneCountInString(hw.Text) > 1:
			entries = overlay(primary, rich)
			stats.Overlaid++
		case len(rich) > 0:
			entries = cloneEntries(rich)
			stats.FromRicher++
		case len(primary) > 0:
			entries = cloneEntries(primary)
			stats.FromPrimary++
		default:
			stats.Dropped++
			continue
		}

		lx.add(&Word{
			Headword:      hw.Text,
			Level:         hw.Level,
			FrequencyRank: hw.FrequencyRank,
			Entries:       entries,
		})
	}
	stats.Words = lx.Len()
	return lx, stats
}
