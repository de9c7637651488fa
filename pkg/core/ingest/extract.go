package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"emisor_intel/pkg/core/llm"
)

// MinExtractedChars is the floor below which a primary extraction is
// considered failed and the document treated as scanned.
const MinExtractedChars = 100

// MinAlnumRatio flags scanned PDFs: native extraction of an image-only PDF
// yields mostly control garbage, so a low alphanumeric ratio routes the
// document to OCR.
const MinAlnumRatio = 0.5

// TextExtractor pulls plain text out of document bytes. Primary extractors
// are native (PDF parser, HTML DOM); scanned content goes to the configured
// OCR provider, with a secondary vision-model fallback when that pass fails.
type TextExtractor struct {
	ocr    llm.VisionProvider
	vision llm.VisionProvider
}

func NewTextExtractor(ocr, vision llm.VisionProvider) *TextExtractor {
	return &TextExtractor{ocr: ocr, vision: vision}
}

// AlnumRatio returns the share of letters and digits among non-space runes.
func AlnumRatio(text string) float64 {
	var alnum, total int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alnum) / float64(total)
}

// LooksScanned reports whether a primary extraction result indicates an
// image-only document.
func LooksScanned(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < MinExtractedChars {
		return true
	}
	return AlnumRatio(trimmed) < MinAlnumRatio
}

// Extract returns the document text. PDF and HTML get a native pass first;
// when that output looks scanned the bytes go to the OCR provider, and on
// its failure to the secondary vision fallback. All tiers failing degrades
// the document to empty text and an error the caller logs at the
// unit-of-work boundary.
func (e *TextExtractor) Extract(ctx context.Context, data []byte, contentType, sourceURL string) (string, error) {
	var text string
	var primaryErr error

	switch {
	case isPDF(data, contentType, sourceURL):
		text, primaryErr = extractPDFText(data)
	case strings.Contains(contentType, "html") || strings.HasSuffix(strings.ToLower(sourceURL), ".html"):
		text, primaryErr = extractHTMLText(data)
	default:
		// Unknown type: try it as UTF-8 text.
		text = string(data)
	}

	if primaryErr == nil && !LooksScanned(text) {
		return strings.TrimSpace(text), nil
	}

	if primaryErr != nil {
		fmt.Printf("[INGEST] primary extraction failed (%v), trying OCR fallback\n", primaryErr)
	} else {
		fmt.Printf("[INGEST] document looks scanned (len=%d ratio=%.2f), trying OCR fallback\n",
			len(strings.TrimSpace(text)), AlnumRatio(text))
	}

	if e.ocr == nil && e.vision == nil {
		return "", fmt.Errorf("document is scanned and no OCR fallback is configured")
	}

	mime := contentType
	if mime == "" || isPDF(data, contentType, sourceURL) {
		mime = "application/pdf"
	}

	if e.ocr != nil {
		ocrText, err := transcribe(ctx, e.ocr, data, mime)
		if err == nil {
			return ocrText, nil
		}
		fmt.Printf("[INGEST] OCR pass failed (%v), trying secondary vision fallback\n", err)
	}
	if e.vision != nil && e.vision != e.ocr {
		ocrText, err := transcribe(ctx, e.vision, data, mime)
		if err != nil {
			return "", fmt.Errorf("vision fallback failed: %w", err)
		}
		return ocrText, nil
	}
	return "", fmt.Errorf("OCR failed and no secondary vision fallback is configured")
}

// transcribe runs one OCR pass. Empty output counts as a failure so the
// caller can try the next tier.
func transcribe(ctx context.Context, v llm.VisionProvider, data []byte, mime string) (string, error) {
	text, err := v.ExtractDocumentText(ctx, data, mime)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("transcription produced no text")
	}
	return strings.TrimSpace(text), nil
}

func isPDF(data []byte, contentType, sourceURL string) bool {
	if strings.Contains(contentType, "pdf") {
		return true
	}
	if strings.HasSuffix(strings.ToLower(sourceURL), ".pdf") {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF"))
}

// extractPDFText is the native PDF pass.
func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf open failed: %w", err)
	}

	var sb strings.Builder
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page is tolerable; the scanned heuristic
			// catches documents where most pages fail.
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// extractHTMLText strips markup and returns the visible text of an HTML page.
func extractHTMLText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("html parse failed: %w", err)
	}
	doc.Find("script, style, noscript, nav, footer").Remove()
	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}
	// Collapse the whitespace soup goquery leaves behind.
	lines := strings.Fields(text)
	return strings.Join(lines, " "), nil
}
