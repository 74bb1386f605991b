// Package vectordb provides the in-memory vector index.
// Clean Architecture: Adapter implementing ports.VectorIndex.
// Indexes are session-scoped and ephemeral - one per report text,
// replaced wholesale when the text changes - so nothing here persists.
package vectordb

import (
	"context"
	"math"
	"sort"

	"github.com/hia-ai/hia/internal/domain/entities"
	"github.com/hia-ai/hia/internal/domain/ports"
)

// Builder assembles MemoryIndex values from embedded chunks.
type Builder struct{}

// NewBuilder creates a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build copies the chunks into a fresh immutable index.
func (*Builder) Build(chunks []entities.Chunk) ports.VectorIndex {
	idx := &MemoryIndex{chunks: make([]entities.Chunk, len(chunks))}
	copy(idx.chunks, chunks)
	return idx
}

// MemoryIndex is an in-memory vector index over one report.
// It is immutable after Build, so reads need no locking.
type MemoryIndex struct {
	chunks []entities.Chunk
}

// Search finds the most similar chunks to a query embedding.
func (idx *MemoryIndex) Search(ctx context.Context, embedding []float32, topK int) ([]entities.SearchResult, error) {
	results := make([]entities.SearchResult, 0, len(idx.chunks))
	for _, chunk := range idx.chunks {
		results = append(results, entities.SearchResult{
			Chunk: chunk,
			Score: cosineSimilarity(embedding, chunk.Embedding),
		})
	}

	// Sort by score descending; ties keep chunk order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (idx *MemoryIndex) Len() int {
	return len(idx.chunks)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
