package ingest

import (
	"strings"
	"unicode/utf8"
)

// Chunking parameters. Spans are character-based with a fixed overlap; the
// break point prefers a sentence boundary within the tolerance window so
// figures and their sentences stay together.
const (
	MaxChunkSize      = 1000
	ChunkOverlap      = 150
	SentenceTolerance = 200
	MinChunkLength    = 50
)

var sentenceEnders = []byte{'.', '!', '?', '\n'}

// ChunkText splits text into overlapping spans. Adjacent spans share
// ChunkOverlap characters, so concatenated spans always cover the input.
// Fragments shorter than MinChunkLength are discarded.
func ChunkText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	pos := 0
	for pos < len(text) {
		end := pos + MaxChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = preferSentenceBoundary(text, pos, runeStart(text, end))
		}

		piece := strings.TrimSpace(text[pos:end])
		if len(piece) >= MinChunkLength {
			chunks = append(chunks, piece)
		}

		if end >= len(text) {
			break
		}
		next := runeStart(text, end-ChunkOverlap)
		if next <= pos {
			_, size := utf8.DecodeRuneInString(text[pos:])
			next = pos + size
		}
		pos = next
	}
	return chunks
}

// runeStart backs a byte offset up to the nearest rune boundary so a cut
// never splits a multibyte character.
func runeStart(text string, pos int) int {
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

// preferSentenceBoundary walks back from the hard cut looking for a sentence
// end within the tolerance window. Returns the position just after the
// boundary, or the hard cut when none is found.
func preferSentenceBoundary(text string, start, hardEnd int) int {
	low := hardEnd - SentenceTolerance
	if low < start+MinChunkLength {
		low = start + MinChunkLength
	}
	for i := hardEnd - 1; i >= low; i-- {
		for _, ender := range sentenceEnders {
			if text[i] == ender {
				return i + 1
			}
		}
	}
	return hardEnd
}
