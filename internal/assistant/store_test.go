package assistant

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIndex records adds and serves canned query results.
type fakeIndex struct {
	added    map[string][]string // patientID -> contents
	queryIDs []string
	addErr   error
	queryErr error
	deleted  []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{added: map[string][]string{}}
}

func (f *fakeIndex) Add(ctx context.Context, patientID, turnID, content string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added[patientID] = append(f.added[patientID], content)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, patientID, query string, topK int) ([]string, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryIDs, nil
}

func (f *fakeIndex) Delete(ctx context.Context, patientID string) error {
	f.deleted = append(f.deleted, patientID)
	return nil
}

func newTestStore(t *testing.T, index VectorIndex) *ConversationStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewConversationStore(client, index, nil)
}

func TestConversationStoreAppendIndexesContent(t *testing.T) {
	index := newFakeIndex()
	store := newTestStore(t, index)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "p-1", NewUserTurn("p-1", "I want to book")))
	require.NoError(t, store.Append(ctx, "p-1", NewAssistantTurn("p-1", "Sure, with whom?")))

	turns, err := store.GetAll(ctx, "p-1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)

	require.Len(t, index.added["p-1"], 2)
	assert.Equal(t, "User: I want to book", index.added["p-1"][0])
	assert.Equal(t, "Assistant: Sure, with whom?", index.added["p-1"][1])
}

func TestConversationStoreAppendRejectsInvalidTurn(t *testing.T) {
	store := newTestStore(t, newFakeIndex())

	turn := NewUserTurn("", "hello")
	assert.Error(t, store.Append(context.Background(), "p-1", turn))
}

func TestConversationStoreAppendSurvivesIndexFailure(t *testing.T) {
	index := newFakeIndex()
	index.addErr = errors.New("embedding service down")
	store := newTestStore(t, index)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "p-1", NewUserTurn("p-1", "hello")))

	turns, err := store.GetAll(ctx, "p-1", 0)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestConversationStoreQuerySemantic(t *testing.T) {
	index := newFakeIndex()
	store := newTestStore(t, index)
	ctx := context.Background()

	first := NewUserTurn("p-1", "I want to book an appointment")
	second := NewAssistantTurn("p-1", "Which therapist would you like?")
	require.NoError(t, store.Append(ctx, "p-1", first))
	require.NoError(t, store.Append(ctx, "p-1", second))

	// Ranked order from the index is preserved, unknown IDs are dropped.
	index.queryIDs = []string{second.ID, first.ID, "gone"}

	turns, err := store.QuerySemantic(ctx, "p-1", "booking", 5)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, second.ID, turns[0].ID)
	assert.Equal(t, first.ID, turns[1].ID)
}

func TestConversationStoreQuerySemanticDegradesOnIndexFailure(t *testing.T) {
	index := newFakeIndex()
	index.queryErr = errors.New("index down")
	store := newTestStore(t, index)

	turns, err := store.QuerySemantic(context.Background(), "p-1", "booking", 5)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestConversationStoreFullyDegradedMode(t *testing.T) {
	store := NewConversationStore(nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "p-1", NewUserTurn("p-1", "hello")))

	turns, err := store.GetAll(ctx, "p-1", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = store.QuerySemantic(ctx, "p-1", "hello", 5)
	require.NoError(t, err)
	assert.Empty(t, turns)

	assert.NoError(t, store.Clear(ctx, "p-1"))
}

func TestConversationStoreClearPurgesLogAndIndex(t *testing.T) {
	index := newFakeIndex()
	store := newTestStore(t, index)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "p-1", NewUserTurn("p-1", "hello")))
	require.NoError(t, store.Clear(ctx, "p-1"))

	turns, err := store.GetAll(ctx, "p-1", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Equal(t, []string{"p-1"}, index.deleted)
}
