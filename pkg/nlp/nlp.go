// Package nlp defines the batch-oriented language services the corpus
// builder consumes and ships offline and HTTP-backed implementations.
package nlp

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCollaborator marks a failed call to a language service.
var ErrCollaborator = errors.New("collaborator call failed")

// Tokenizer segments each text into tokens.
type Tokenizer interface {
	Tokenize(ctx context.Context, texts []string) ([][]string, error)
}

// PosTagger returns PKU POS codes aligned 1:1 with each token sequence.
type PosTagger interface {
	Tag(ctx context.Context, tokens [][]string) ([][]string, error)
}

// ConstituencyValidator reports whether each token sequence parses to a
// complete clause.
type ConstituencyValidator interface {
	IsClause(ctx context.Context, tokens [][]string) ([]bool, error)
}

// ScriptConverter converts traditional-script text to simplified script.
type ScriptConverter interface {
	ToSimplified(text string) (string, error)
}

// Translator translates each text. Calls may fail as a whole.
type Translator interface {
	Translate(ctx context.Context, texts []string) ([]string, error)
}

// Annotation is the tokenize/tag/parse result for one sentence.
type Annotation struct {
	Text   string
	Tokens []string
	POS    []string
	Clause bool
}

// Pipeline chains the three analysis services over one batch.
type Pipeline struct {
	Tokenizer Tokenizer
	Tagger    PosTagger
	Validator ConstituencyValidator
}

// Annotate tokenizes, parses and tags texts. The final token is left out of
// the constituency request when it is terminal punctuation.
func (p Pipeline) Annotate(ctx context.Context, texts []string) ([]Annotation, error) {
	tokens, err := p.Tokenizer.Tokenize(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: tokenize: %v", ErrCollaborator, err)
	}
	if len(tokens) != len(texts) {
		return nil, fmt.Errorf("%w: tokenize returned %d results for %d texts", ErrCollaborator, len(tokens), len(texts))
	}

	trimmed := make([][]string, len(tokens))
	for i, toks := range tokens {
		trimmed[i] = trimTerminal(toks)
	}
	clauses, err := p.Validator.IsClause(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrCollaborator, err)
	}
	if len(clauses) != len(texts) {
		return nil, fmt.Errorf("%w: parse returned %d results for %d texts", ErrCollaborator, len(clauses), len(texts))
	}

	tags, err := p.Tagger.Tag(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: tag: %v", ErrCollaborator, err)
	}
	if len(tags) != len(texts) {
		return nil, fmt.Errorf("%w: tag returned %d results for %d texts", ErrCollaborator, len(tags), len(texts))
	}

	out := make([]Annotation, len(texts))
	for i, text := range texts {
		if len(tags[i]) != len(tokens[i]) {
			return nil, fmt.Errorf("%w: %d tags for %d tokens in %q", ErrCollaborator, len(tags[i]), len(tokens[i]), text)
		}
		out[i] = Annotation{Text: text, Tokens: tokens[i], POS: tags[i], Clause: clauses[i]}
	}
	return out, nil
}

const terminalMarks = "。！？…」》"

func trimTerminal(tokens []string) []string {
	if n := len(tokens); n > 1 && strings.ContainsAny(tokens[n-1], terminalMarks) &&
		strings.Trim(tokens[n-1], terminalMarks) == "" {
		return tokens[:n-1]
	}
	return tokens
}

// AcceptAll treats every sentence as a complete clause.
type AcceptAll struct{}

// IsClause implements ConstituencyValidator.
func (AcceptAll) IsClause(_ context.Context, tokens [][]string) ([]bool, error) {
	out := make([]bool, len(tokens))
	for i := range out {
		out[i] = true
	}
	return out, nil
}
