// Package ingest implements the document ingestion pipeline: download, text
// extraction with OCR fallback, classification, chunking and embedding.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DownloadTimeout bounds one document fetch. There is no retry: a timed-out
// download degrades the document to zero chunks.
const DownloadTimeout = 45 * time.Second

// maxDocumentBytes guards against runaway responses (scanned statements run
// 5-15 MB; anything past this is not a disclosure document).
const maxDocumentBytes = 50 << 20

// Downloader fetches document bytes with a bounded timeout.
type Downloader struct {
	client *http.Client
}

func NewDownloader() *Downloader {
	return &Downloader{client: &http.Client{Timeout: DownloadTimeout}}
}

// EncodeDocumentURL percent-encodes the characters that routinely break raw
// listing URLs (spaces, accented filenames) while leaving an already-encoded
// URL untouched.
func EncodeDocumentURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		// Last resort: escape spaces, the most common offender.
		return strings.ReplaceAll(raw, " ", "%20")
	}
	// Dropping RawPath forces String() to re-encode the decoded path, which
	// normalizes unsafe characters exactly once.
	parsed.RawPath = ""
	return parsed.String()
}

// Fetch downloads one document and returns its bytes plus the Content-Type
// the server declared.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	encoded := EncodeDocumentURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, "GET", encoded, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid document url %q: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", "emisor-intel/1.0 (document indexer)")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed for %s: %w", encoded, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download returned status %d for %s", resp.StatusCode, encoded)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, "", fmt.Errorf("reading document body failed: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
