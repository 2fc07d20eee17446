package indexer

import (
	"strings"
	"unicode/utf8"
)

// Chunker splits normalized document text into overlapping chunks sized by
// the document's category profile.
type Chunker struct {
	normalizer *normalizer
}

// NewChunker creates a chunker.
func NewChunker() *Chunker {
	return &Chunker{normalizer: newNormalizer()}
}

// Chunk normalizes the document text and splits it into chunks of at most
// profile.ChunkSize runes, with profile.Overlap runes of trailing context
// carried into the next chunk. Splits prefer sentence boundaries. Every
// document yields at least one chunk, even when empty.
func (c *Chunker) Chunk(docID, content string, profile CategoryProfile) []Chunk {
	text := c.normalizer.Flatten(content)

	pieces := splitBySize(text, profile)
	chunks := make([]Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, Chunk{DocumentID: docID, Seq: i, Text: piece})
	}
	return chunks
}

// splitBySize accumulates sentences into pieces of at most size runes.
// A sentence longer than the limit is hard-split by runes.
func splitBySize(text string, profile CategoryProfile) []string {
	size := profile.ChunkSize
	if size <= 0 {
		size = defaultProfile.ChunkSize
	}
	overlap := profile.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	var sentences []string
	for _, s := range splitSentences(text) {
		if utf8.RuneCountInString(s) > size {
			sentences = append(sentences, hardSplit(s, size)...)
		} else {
			sentences = append(sentences, s)
		}
	}

	var pieces []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		pieces = append(pieces, strings.TrimSpace(strings.Join(current, "")))

		// Carry trailing sentences into the next piece as overlap context.
		var carried []string
		carriedLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			n := utf8.RuneCountInString(current[i])
			if carriedLen+n > overlap {
				break
			}
			carried = append([]string{current[i]}, carried...)
			carriedLen += n
		}
		current = carried
		currentLen = carriedLen
	}

	for _, s := range sentences {
		n := utf8.RuneCountInString(s)
		if currentLen+n > size && currentLen > 0 {
			flush()
			if currentLen+n > size {
				// the carried overlap plus this sentence would still
				// exceed the cap, so drop the overlap
				current = nil
				currentLen = 0
			}
		}
		current = append(current, s)
		currentLen += n
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.TrimSpace(strings.Join(current, "")))
	}

	if len(pieces) == 0 {
		return []string{""}
	}
	return pieces
}

// splitSentences splits text after sentence-ending punctuation or newlines,
// keeping the delimiter with the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		if isSentenceEnd(r) && (i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n') {
			sentences = append(sentences, b.String())
			b.Reset()
		} else if r == '\n' {
			sentences = append(sentences, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		sentences = append(sentences, b.String())
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func hardSplit(s string, size int) []string {
	runes := []rune(s)
	var parts []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
