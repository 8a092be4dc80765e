package indexer

// Piece is a splitter output that has not been given an identity yet.
// A nil Source or Page means the metadata was absent.
type Piece struct {
	Source *string
	Page   *int
	Text   string
}

// Chunk is a piece of document text with its deterministic identity.
type Chunk struct {
	ID            string // "{source}:{page}:{sequence_index}"
	Source        string // File name, or "unknown"
	Page          int    // Zero-based page or paragraph index
	SequenceIndex int    // Position within (Source, Page), starting at 0
	Text          string
}
