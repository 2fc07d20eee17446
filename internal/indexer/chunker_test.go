package indexer

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkIDFormat(t *testing.T) {
	chunk := Chunk{DocumentID: "1abc", Seq: 2}
	if got := chunk.ID(); got != "1abc-chunk-2" {
		t.Errorf("ID() = %q, want %q", got, "1abc-chunk-2")
	}
}

func TestProfileFor(t *testing.T) {
	tests := []struct {
		category string
		want     CategoryProfile
	}{
		{category: "simulation", want: CategoryProfile{ChunkSize: 3000, Overlap: 100}},
		{category: "technical", want: CategoryProfile{ChunkSize: 512, Overlap: 50}},
		{category: "general", want: CategoryProfile{ChunkSize: 512, Overlap: 50}},
		{category: "unknown", want: CategoryProfile{ChunkSize: 2000, Overlap: 100}},
		{category: "", want: CategoryProfile{ChunkSize: 2000, Overlap: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			if got := ProfileFor(tt.category); got != tt.want {
				t.Errorf("ProfileFor(%q) = %+v, want %+v", tt.category, got, tt.want)
			}
		})
	}
}

func TestChunkShortText(t *testing.T) {
	chunker := NewChunker()

	chunks := chunker.Chunk("doc-1", "A short document.", CategoryProfile{ChunkSize: 512, Overlap: 50})
	if len(chunks) != 1 {
		t.Fatalf("Chunk() returned %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "A short document." {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
	if chunks[0].Seq != 0 || chunks[0].DocumentID != "doc-1" {
		t.Errorf("chunk identity = %+v", chunks[0])
	}
}

func TestChunkEmptyText(t *testing.T) {
	chunker := NewChunker()

	for _, content := range []string{"", "   \n\n  "} {
		chunks := chunker.Chunk("doc-1", content, CategoryProfile{ChunkSize: 512, Overlap: 50})
		if len(chunks) != 1 {
			t.Errorf("Chunk(%q) returned %d chunks, want 1", content, len(chunks))
		}
	}
}

func TestChunkLongTextSplitsWithOverlap(t *testing.T) {
	chunker := NewChunker()

	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "This is sentence number %d of the document. ", i)
	}
	profile := CategoryProfile{ChunkSize: 120, Overlap: 50}

	chunks := chunker.Chunk("doc-1", b.String(), profile)
	if len(chunks) < 2 {
		t.Fatalf("Chunk() returned %d chunks, want several", len(chunks))
	}

	for i, chunk := range chunks {
		if n := utf8.RuneCountInString(chunk.Text); n > profile.ChunkSize {
			t.Errorf("chunk %d has %d runes, want <= %d", i, n, profile.ChunkSize)
		}
		if chunk.Seq != i {
			t.Errorf("chunk %d has Seq %d", i, chunk.Seq)
		}
	}

	// Each chunk after the first starts with trailing context from its
	// predecessor.
	for i := 1; i < len(chunks); i++ {
		idx := strings.Index(chunks[i].Text, ".")
		if idx == -1 {
			continue
		}
		lead := chunks[i].Text[:idx+1]
		if !strings.HasSuffix(chunks[i-1].Text, lead) {
			t.Errorf("chunk %d does not begin with overlap from chunk %d: %q", i, i-1, lead)
		}
	}
}

func TestChunkReconstructsAllSentences(t *testing.T) {
	chunker := NewChunker()

	// The long sentence will not fit next to a carried overlap, forcing the
	// accumulator to drop the overlap rather than exceed the size cap.
	long := "This unusually long sentence walks through the whole financing pitch in one breath. "
	var sentences []string
	for i := 0; i < 40; i++ {
		sentences = append(sentences, fmt.Sprintf("Sentence %d closes the deal. ", i))
		if i == 19 {
			sentences = append(sentences, long)
		}
	}
	text := strings.Join(sentences, "")
	profile := CategoryProfile{ChunkSize: 90, Overlap: 40}

	chunks := chunker.Chunk("doc-1", text, profile)
	if len(chunks) < 2 {
		t.Fatalf("Chunk() returned %d chunks, want several", len(chunks))
	}

	// Every sentence survives into at least one chunk, in order. Nothing is
	// lost when the accumulator flushes or drops its carried overlap.
	lastSeen := 0
	for _, s := range sentences {
		want := strings.TrimSpace(s)
		found := -1
		for j := lastSeen; j < len(chunks); j++ {
			if strings.Contains(chunks[j].Text, want) {
				found = j
				break
			}
		}
		if found == -1 {
			t.Fatalf("sentence %q missing from all chunks", want)
		}
		lastSeen = found
	}

	// No chunk carries text that was not in the input.
	stripped := stripSpace(text)
	for i, chunk := range chunks {
		if !strings.Contains(stripped, stripSpace(chunk.Text)) {
			t.Errorf("chunk %d contains text not present in the input", i)
		}
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\t' {
			return -1
		}
		return r
	}, s)
}

func TestChunkDeterministic(t *testing.T) {
	chunker := NewChunker()

	var b strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "Sales call number %d went well. ", i)
	}

	first := chunker.Chunk("doc-1", b.String(), ProfileFor("technical"))
	second := chunker.Chunk("doc-1", b.String(), ProfileFor("technical"))

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkFlattensMarkdown(t *testing.T) {
	chunker := NewChunker()

	content := "# Objection Handling\n\nSome **bold** advice about `pricing`.\n\n- stay calm\n- ask questions\n"
	chunks := chunker.Chunk("doc-1", content, ProfileFor("general"))
	if len(chunks) != 1 {
		t.Fatalf("Chunk() returned %d chunks, want 1", len(chunks))
	}

	text := chunks[0].Text
	for _, marker := range []string{"#", "**", "`"} {
		if strings.Contains(text, marker) {
			t.Errorf("chunk text retains markdown marker %q: %q", marker, text)
		}
	}
	for _, want := range []string{"Objection Handling", "bold", "pricing", "stay calm"} {
		if !strings.Contains(text, want) {
			t.Errorf("chunk text missing %q: %q", want, text)
		}
	}
}

func TestChunkSingleOversizedSentence(t *testing.T) {
	chunker := NewChunker()

	text := strings.Repeat("a", 1200)
	chunks := chunker.Chunk("doc-1", text, CategoryProfile{ChunkSize: 500, Overlap: 0})
	if len(chunks) != 3 {
		t.Fatalf("Chunk() returned %d chunks, want 3", len(chunks))
	}
	for i, chunk := range chunks {
		if n := utf8.RuneCountInString(chunk.Text); n > 500 {
			t.Errorf("chunk %d has %d runes, want <= 500", i, n)
		}
	}
}
