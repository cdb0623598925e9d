package nlp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/go-shiori/go-readability"
)

// maxBodySize caps fetched HTML to keep untrusted pages from exhausting memory.
const maxBodySize = 10 * 1024 * 1024

// Article is the readable text extracted from a web page.
type Article struct {
	URL       string
	Title     string
	Byline    string
	SiteName  string
	Sentences []string
}

// ArticleFetcher downloads pages and extracts their main text.
type ArticleFetcher struct {
	Client *http.Client
}

// NewArticleFetcher returns a fetcher with a 30s timeout.
func NewArticleFetcher() *ArticleFetcher {
	return &ArticleFetcher{Client: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch downloads rawURL, removes ruby annotations, extracts the article
// with readability and splits its text into sentences.
func (f *ArticleFetcher) Fetch(ctx context.Context, rawURL string) (*Article, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Mimic a real browser to avoid 403s from bot protection.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Referer", "https://www.google.com/")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got status code %d", resp.StatusCode)
	}
	if resp.ContentLength > maxBodySize {
		return nil, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, maxBodySize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) >= maxBodySize {
		return nil, fmt.Errorf("response body exceeded maximum size limit of %d bytes", maxBodySize)
	}

	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(body)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article: %w", err)
	}
	return &Article{
		URL:       rawURL,
		Title:     article.Title,
		Byline:    article.Byline,
		SiteName:  article.SiteName,
		Sentences: SplitSentences(article.TextContent),
	}, nil
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses
// (<rp>...</rp>) from HTML. Readability keeps annotation text otherwise, so
// pages with pinyin or zhuyin ruby would yield "汉字hànzì".
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, nil)
	return reRP.ReplaceAll(cleaned, nil)
}
