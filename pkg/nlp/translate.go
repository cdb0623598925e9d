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

// LibreTranslator calls a LibreTranslate-compatible /translate endpoint
// with a batch of texts.
type LibreTranslator struct {
	Endpoint string
	APIKey   string
	Source   string
	Target   string
	Client   *http.Client
}

// NewLibreTranslator returns a translator for source→target.
func NewLibreTranslator(endpoint, apiKey, source, target string, timeout time.Duration) *LibreTranslator {
	return &LibreTranslator{
		Endpoint: strings.TrimRight(endpoint, "/"),
		APIKey:   apiKey,
		Source:   source,
		Target:   target,
		Client:   &http.Client{Timeout: timeout},
	}
}

type translateRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
	APIKey string   `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText []string `json:"translatedText"`
	Error          string   `json:"error"`
}

// Translate implements Translator.
func (t *LibreTranslator) Translate(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(translateRequest{
		Q:      texts,
		Source: t.Source,
		Target: t.Target,
		Format: "text",
		APIKey: t.APIKey,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint+"/translate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("translate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("translate: decode: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("translate: %s", out.Error)
	}
	if len(out.TranslatedText) != len(texts) {
		return nil, fmt.Errorf("translate: got %d translations for %d texts", len(out.TranslatedText), len(texts))
	}
	return out.TranslatedText, nil
}
