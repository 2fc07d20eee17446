package indexer

import "fmt"

// Chunk is one slice of a document's text.
type Chunk struct {
	DocumentID string
	Seq        int // position within the document, starts at 0
	Text       string
}

// ID returns the stable chunk identifier. Re-indexing a document produces
// the same IDs, so vector upserts overwrite rather than duplicate.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s-chunk-%d", c.DocumentID, c.Seq)
}

// CategoryProfile controls chunking for a document category. Sizes are in
// runes.
type CategoryProfile struct {
	ChunkSize int
	Overlap   int
}

var profiles = map[string]CategoryProfile{
	"simulation": {ChunkSize: 3000, Overlap: 100},
	"technical":  {ChunkSize: 512, Overlap: 50},
	"general":    {ChunkSize: 512, Overlap: 50},
}

var defaultProfile = CategoryProfile{ChunkSize: 2000, Overlap: 100}

// ProfileFor returns the chunking profile for a category. Unknown categories
// get the default profile.
func ProfileFor(category string) CategoryProfile {
	if p, ok := profiles[category]; ok {
		return p
	}
	return defaultProfile
}
