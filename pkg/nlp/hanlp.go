package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HanLP task names.
const (
	taskTokenize     = "tok/coarse"
	taskPOS          = "pos/pku"
	taskConstituency = "con"
)

// HanLPClient talks to a HanLP-compatible RESTful parse service. It
// implements Tokenizer, PosTagger and ConstituencyValidator.
type HanLPClient struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

// NewHanLPClient returns a client for the service at endpoint.
func NewHanLPClient(endpoint, apiKey string, timeout time.Duration) *HanLPClient {
	return &HanLPClient{
		Endpoint: strings.TrimRight(endpoint, "/"),
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: timeout},
	}
}

type parseRequest struct {
	Text     []string   `json:"text,omitempty"`
	Tokens   [][]string `json:"tokens,omitempty"`
	Tasks    []string   `json:"tasks"`
	Language string     `json:"language"`
}

func (c *HanLPClient) parse(ctx context.Context, req parseRequest, task string, out any) error {
	req.Tasks = []string{task}
	req.Language = "zh"
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/parse", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Basic "+c.APIKey)
	}

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hanlp %s: status %d: %s", task, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var doc map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("hanlp %s: decode: %w", task, err)
	}
	raw, ok := doc[task]
	if !ok {
		return fmt.Errorf("hanlp %s: missing task in response", task)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("hanlp %s: decode result: %w", task, err)
	}
	return nil
}

// Tokenize implements Tokenizer.
func (c *HanLPClient) Tokenize(ctx context.Context, texts []string) ([][]string, error) {
	var out [][]string
	if err := c.parse(ctx, parseRequest{Text: texts}, taskTokenize, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tag implements PosTagger.
func (c *HanLPClient) Tag(ctx context.Context, tokens [][]string) ([][]string, error) {
	var out [][]string
	if err := c.parse(ctx, parseRequest{Tokens: tokens}, taskPOS, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsClause implements ConstituencyValidator. A sentence is a clause when the
// label under the tree root contains IP or CP.
func (c *HanLPClient) IsClause(ctx context.Context, tokens [][]string) ([]bool, error) {
	var trees []json.RawMessage
	if err := c.parse(ctx, parseRequest{Tokens: tokens}, taskConstituency, &trees); err != nil {
		return nil, err
	}
	out := make([]bool, len(trees))
	for i, raw := range trees {
		label, err := RootLabel(raw)
		if err != nil {
			return nil, fmt.Errorf("hanlp con: tree %d: %w", i, err)
		}
		out[i] = strings.Contains(label, "IP") || strings.Contains(label, "CP")
	}
	return out, nil
}

// RootLabel returns the label of the top constituent of a bracketed tree
// encoded as nested JSON arrays ["TOP", [["IP", [...]], ...]]. A TOP wrapper
// is skipped.
func RootLabel(raw json.RawMessage) (string, error) {
	label, children, err := decodeNode(raw)
	if err != nil {
		return "", err
	}
	if label == "TOP" || label == "ROOT" {
		if len(children) == 0 {
			return "", fmt.Errorf("empty tree")
		}
		label, _, err = decodeNode(children[0])
		if err != nil {
			return "", err
		}
	}
	return label, nil
}

func decodeNode(raw json.RawMessage) (string, []json.RawMessage, error) {
	var node []json.RawMessage
	if err := json.Unmarshal(raw, &node); err != nil {
		return "", nil, fmt.Errorf("decode node: %w", err)
	}
	if len(node) == 0 {
		return "", nil, fmt.Errorf("empty node")
	}
	var label string
	if err := json.Unmarshal(node[0], &label); err != nil {
		return "", nil, fmt.Errorf("decode label: %w", err)
	}
	var children []json.RawMessage
	if len(node) > 1 {
		if err := json.Unmarshal(node[1], &children); err != nil {
			return "", nil, fmt.Errorf("decode children: %w", err)
		}
	}
	return label, children, nil
}
