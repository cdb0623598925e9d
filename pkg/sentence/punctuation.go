package sentence

import (
	"regexp"
	"strings"
)

// Terminal marks may end a sentence.
const Terminal = "。！？…」》"

// NonTerminal marks may appear inside a sentence.
const NonTerminal = "　、，；：（）《「–⸺～"

// Symbols are the non-punctuation characters allowed alongside known characters.
const Symbols = "0123456789.%¥$€£"

// illegalOpeners may not start a sentence.
const illegalOpeners = "，、；：）」》–⸺～"

var standardize = strings.NewReplacer(
	" ", "　",
	",", "，",
	";", "；",
	":", "：",
	".", "。",
	"⋯", "…",
	"!", "！",
	"?", "？",
	"(", "（",
	")", "）",
	"“", "「",
	"”", "」",
	"~", "～",
)

var (
	ellipsisRun  = regexp.MustCompile(`(?:…|。{3,})+`)
	decimalPoint = regexp.MustCompile(`([0-9])。([0-9])`)
)

var bracketPairs = map[rune]rune{
	'（': '）',
	'「': '」',
	'《': '》',
}

var closers = map[rune]rune{
	'）': '（',
	'」': '「',
	'》': '《',
}

// IsPunctuation reports whether r is a canonical sentence mark.
func IsPunctuation(r rune) bool {
	return strings.ContainsRune(Terminal, r) || strings.ContainsRune(NonTerminal, r)
}

// IsAllowedSymbol reports whether r may appear in a sentence without being
// a known character.
func IsAllowedSymbol(r rune) bool {
	return IsPunctuation(r) || strings.ContainsRune(Symbols, r)
}

// StandardizePunctuation maps ASCII and alternate marks to their canonical
// full-width forms, collapses ellipsis runs and restores decimal points.
func StandardizePunctuation(s string) string {
	s = standardize.Replace(s)
	s = ellipsisRun.ReplaceAllString(s, "…")
	for {
		next := decimalPoint.ReplaceAllString(s, "$1.$2")
		if next == s {
			return s
		}
		s = next
	}
}

// RepairBrackets trims text before an unterminated opener (opener included),
// removes unmatched closers at the end, trims text through an unmatched
// closer elsewhere, and strips a bracket pair wrapping the whole sentence.
// It repeats until nothing changes.
func RepairBrackets(s string) string {
	for {
		next := strings.TrimSpace(repairOnce(s))
		if next == s {
			return s
		}
		s = next
	}
}

func repairOnce(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}

	type open struct {
		r   rune
		pos int
	}
	var stack []open
	for i, r := range runes {
		if _, ok := bracketPairs[r]; ok {
			stack = append(stack, open{r, i})
			continue
		}
		opener, ok := closers[r]
		if !ok {
			continue
		}
		if len(stack) > 0 && stack[len(stack)-1].r == opener {
			stack = stack[:len(stack)-1]
			continue
		}
		if i == len(runes)-1 {
			return string(runes[:i])
		}
		return string(runes[i+1:])
	}
	if len(stack) > 0 {
		return string(runes[stack[len(stack)-1].pos+1:])
	}

	if closer, ok := bracketPairs[runes[0]]; ok && runes[len(runes)-1] == closer && matchIndex(runes, 0) == len(runes)-1 {
		return string(runes[1 : len(runes)-1])
	}
	return s
}

// matchIndex returns the index of the closer matching the opener at i.
func matchIndex(runes []rune, i int) int {
	opener := runes[i]
	closer := bracketPairs[opener]
	depth := 0
	for j := i; j < len(runes); j++ {
		switch runes[j] {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}
