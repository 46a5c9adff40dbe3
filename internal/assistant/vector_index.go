package assistant

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/carebridge/patient-assistant/pkg/logging"
)

type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// MemoryVectorIndex keeps turn embeddings in memory, partitioned by patient,
// and supports cosine-similarity retrieval. All reads and writes are scoped by
// patientID; nothing is ever returned across patients.
type MemoryVectorIndex struct {
	client embeddingClient
	model  string
	logger *logging.Logger

	mu      sync.RWMutex
	entries map[string][]indexEntry // keyed by patientID
}

type indexEntry struct {
	turnID    string
	content   string
	embedding []float32
}

// NewMemoryVectorIndex creates an in-memory semantic index.
func NewMemoryVectorIndex(client embeddingClient, model string, logger *logging.Logger) *MemoryVectorIndex {
	if client == nil {
		panic("assistant: embedding client cannot be nil")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MemoryVectorIndex{
		client:  client,
		model:   model,
		logger:  logger,
		entries: make(map[string][]indexEntry),
	}
}

// Add embeds and indexes one turn's content for a patient.
func (x *MemoryVectorIndex) Add(ctx context.Context, patientID, turnID, content string) error {
	if content == "" {
		return nil
	}

	req := &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(x.model),
		Input: []string{content},
	}
	resp, err := x.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return err
	}
	if len(resp.Data) == 0 {
		return errors.New("assistant: embedding response was empty")
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[patientID] = append(x.entries[patientID], indexEntry{
		turnID:    turnID,
		content:   content,
		embedding: resp.Data[0].Embedding,
	})
	return nil
}

// Query returns the IDs of the topK most similar turns for a patient,
// most similar first.
func (x *MemoryVectorIndex) Query(ctx context.Context, patientID, query string, topK int) ([]string, error) {
	if topK <= 0 {
		topK = 5
	}

	req := &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(x.model),
		Input: []string{query},
	}
	resp, err := x.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	queryVec := resp.Data[0].Embedding

	x.mu.RLock()
	defer x.mu.RUnlock()
	candidates := x.entries[patientID]
	if len(candidates) == 0 {
		return nil, nil
	}

	type scored struct {
		score  float64
		turnID string
	}
	results := make([]scored, 0, len(candidates))
	for _, entry := range candidates {
		results = append(results, scored{
			score:  cosineSimilarity(queryVec, entry.embedding),
			turnID: entry.turnID,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	limit := topK
	if len(results) < limit {
		limit = len(results)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = results[i].turnID
	}
	return out, nil
}

// Delete drops all indexed entries for a patient.
func (x *MemoryVectorIndex) Delete(ctx context.Context, patientID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, patientID)
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
