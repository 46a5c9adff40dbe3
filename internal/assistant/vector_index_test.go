package assistant

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns canned vectors per input string.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	if f.err != nil {
		return openai.EmbeddingResponse{}, f.err
	}
	req, ok := request.(*openai.EmbeddingRequest)
	if !ok {
		return openai.EmbeddingResponse{}, errors.New("unexpected request type")
	}
	inputs, ok := req.Input.([]string)
	if !ok || len(inputs) == 0 {
		return openai.EmbeddingResponse{}, errors.New("unexpected input shape")
	}
	vec, ok := f.vectors[inputs[0]]
	if !ok {
		vec = []float32{0, 0, 1}
	}
	return openai.EmbeddingResponse{
		Data: []openai.Embedding{{Embedding: vec}},
	}, nil
}

func TestMemoryVectorIndexRanksBySimilarity(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"booking question": {1, 0, 0},
		"weather chat":     {0, 1, 0},
		"another booking":  {0.9, 0.1, 0},
		"book something":   {1, 0, 0},
	}}
	index := NewMemoryVectorIndex(embedder, "", nil)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, "p-1", "turn-a", "booking question"))
	require.NoError(t, index.Add(ctx, "p-1", "turn-b", "weather chat"))
	require.NoError(t, index.Add(ctx, "p-1", "turn-c", "another booking"))

	ids, err := index.Query(ctx, "p-1", "book something", 2)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "turn-a", ids[0])
	assert.Equal(t, "turn-c", ids[1])
}

func TestMemoryVectorIndexScopesByPatient(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	index := NewMemoryVectorIndex(embedder, "", nil)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, "p-1", "turn-a", "hello"))

	ids, err := index.Query(ctx, "p-2", "hello", 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryVectorIndexDelete(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	index := NewMemoryVectorIndex(embedder, "", nil)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, "p-1", "turn-a", "hello"))
	require.NoError(t, index.Delete(ctx, "p-1"))

	ids, err := index.Query(ctx, "p-1", "hello", 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryVectorIndexAddPropagatesEmbeddingError(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("quota exceeded")}
	index := NewMemoryVectorIndex(embedder, "", nil)

	err := index.Add(context.Background(), "p-1", "turn-a", "hello")
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}
