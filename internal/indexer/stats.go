package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

const (
	// ChunkerVersion identifies the splitting and identity scheme.
	// Bump it when either changes so stale stores can be spotted.
	ChunkerVersion = "recursive-v1"
	// TokensPerRune is an approximation for token counting (4 chars per token).
	TokensPerRune = 4.0
)

// IndexingCoverageStats contains statistics about an ingestion run.
type IndexingCoverageStats struct {
	// DocsProcessed is the number of supported files found.
	DocsProcessed int `json:"docs_processed"`
	// DocsFailed is the number of files that could not be loaded.
	DocsFailed int `json:"docs_failed"`
	// DocsWith0Chunks is the number of loaded files that produced no chunks.
	DocsWith0Chunks int `json:"docs_with_0_chunks"`
	// ChunksAttempted is the number of new chunks submitted to the store.
	ChunksAttempted int `json:"chunks_attempted"`
	// ChunksEmbedded is the number of chunks embedded and stored.
	ChunksEmbedded int `json:"chunks_embedded"`
	// ChunksSkipped is the number of new chunks that failed to persist.
	ChunksSkipped int `json:"chunks_skipped"`
	// ChunkTokenStats contains statistics about token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a hash of chunker version, embedding model and split parameters.
	IndexVersion string `json:"index_version"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

func computeCoverageStats(report *Report, chunks []Chunk, splitter *RecursiveSplitter, embeddingModel string) *IndexingCoverageStats {
	stats := &IndexingCoverageStats{
		DocsProcessed:  report.Files,
		DocsFailed:     len(report.LoadErrors),
		ChunkerVersion: ChunkerVersion,
		IndexVersion:   IndexVersion(embeddingModel, splitter.ChunkSize, splitter.ChunkOverlap),
	}

	sources := make(map[string]struct{})
	tokenCounts := make([]int, 0, len(chunks))
	for _, c := range chunks {
		sources[c.Source] = struct{}{}
		tokenCounts = append(tokenCounts, estimateTokens(c.Text))
	}
	if empty := report.Files - stats.DocsFailed - len(sources); empty > 0 {
		stats.DocsWith0Chunks = empty
	}
	stats.ChunkTokenStats = computeTokenStats(tokenCounts)

	if report.Sync != nil {
		stats.ChunksAttempted = report.Sync.New
		stats.ChunksEmbedded = report.Sync.Inserted
		stats.ChunksSkipped = len(report.Sync.Failures)
	}
	return stats
}

// IndexVersion hashes the parameters that determine chunk identities and vectors.
func IndexVersion(embeddingModel string, chunkSize, chunkOverlap int) string {
	input := fmt.Sprintf("%s|%s|chunkSize=%d|chunkOverlap=%d", ChunkerVersion, embeddingModel, chunkSize, chunkOverlap)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// estimateTokens approximates the token count from the rune count.
func estimateTokens(text string) int {
	n := int(math.Round(float64(utf8.RuneCountInString(text)) / TokensPerRune))
	if n < 1 {
		return 1
	}
	return n
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
