package dictionary

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Downloader fetches raw datasets that are missing on disk.
type Downloader struct {
	Client *http.Client
	Logger *slog.Logger
}

// NewDownloader returns a Downloader with a generous timeout for large dumps.
func NewDownloader(logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		Client: &http.Client{Timeout: 30 * time.Minute},
		Logger: logger,
	}
}

// EnsureDataset checks if the dataset exists at path. If not, it downloads
// url and decompresses it according to the URL suffix (.tar.gz/.tgz, .gz,
// .bz2, or plain).
func (d *Downloader) EnsureDataset(ctx context.Context, path, url string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if url == "" {
		return fmt.Errorf("dataset %s not found and no download url configured", path)
	}

	d.Logger.Info("dataset not found, downloading", slog.String("path", path), slog.String("url", url))
	start := time.Now()
	if err := d.downloadAndExtract(ctx, url, path); err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	d.Logger.Info("dataset downloaded", slog.String("path", path), slog.Duration("duration", time.Since(start)))
	return nil
}

func (d *Downloader) downloadAndExtract(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "hskcorpus-cli")

	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	body, closeFn, err := decompress(resp.Body, url)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), destPath)
}

// decompress wraps r according to the archive suffix of name. Tarballs yield
// the first regular file they contain.
func decompress(r io.Reader, name string) (io.Reader, func(), error) {
	lower := strings.ToLower(name)
	noop := func() {}
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		tr := tar.NewReader(gz)
		for {
			header, err := tr.Next()
			if errors.Is(err, io.EOF) {
				gz.Close()
				return nil, noop, errors.New("no regular file found in downloaded archive")
			}
			if err != nil {
				gz.Close()
				return nil, noop, fmt.Errorf("error reading tar archive: %w", err)
			}
			if header.Typeflag == tar.TypeReg {
				return tr, func() { gz.Close() }, nil
			}
		}
	case strings.HasSuffix(lower, ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	case strings.HasSuffix(lower, ".bz2"):
		return bzip2.NewReader(r), noop, nil
	default:
		return r, noop, nil
	}
}
