package mlmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupArtifactAndExecution(t *testing.T, store *MetadataStore) (artifactID, executionID int64) {
	t.Helper()
	ctx := context.Background()
	artifactTypeID, err := store.PutType(ctx, PutTypeOptions{Kind: ArtifactTypeKind, Name: "DataSet"})
	require.NoError(t, err)
	execTypeID, err := store.PutType(ctx, PutTypeOptions{Kind: ExecutionTypeKind, Name: "Trainer"})
	require.NoError(t, err)

	artifactID, err = store.PostArtifact(ctx, PostArtifactOptions{TypeID: artifactTypeID, URI: "/foo/bar"})
	require.NoError(t, err)
	executionID, err = store.PostExecution(ctx, PostExecutionOptions{TypeID: execTypeID})
	require.NoError(t, err)
	return artifactID, executionID
}

// TestScenarioEventLinksExecutionToArtifact covers spec scenario 4.
func TestScenarioEventLinksExecutionToArtifact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	artifactID, executionID := setupArtifactAndExecution(t, store)

	_, err := store.PutEvent(ctx, PutEventOptions{
		ExecutionID: executionID, ArtifactID: artifactID, Type: EventInput,
	})
	require.NoError(t, err)

	executions, err := store.GetExecutionsByArtifact(ctx, artifactID)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, executionID, executions[0].ID)
}

func TestPutEventUnknownArtifactIsNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, executionID := setupArtifactAndExecution(t, store)

	_, err := store.PutEvent(ctx, PutEventOptions{ExecutionID: executionID, ArtifactID: 999, Type: EventInput})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestPutEventAppendOnlySameIDsTwice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	artifactID, executionID := setupArtifactAndExecution(t, store)

	_, err := store.PutEvent(ctx, PutEventOptions{ExecutionID: executionID, ArtifactID: artifactID, Type: EventInput})
	require.NoError(t, err)
	_, err = store.PutEvent(ctx, PutEventOptions{ExecutionID: executionID, ArtifactID: artifactID, Type: EventOutput})
	require.NoError(t, err)

	events, err := store.GetEventsByArtifact(ctx, artifactID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventInput, events[0].Type)
	assert.Equal(t, EventOutput, events[1].Type)
}

func TestPutEventPreservesPathOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	artifactID, executionID := setupArtifactAndExecution(t, store)

	path := []PathStep{{Key: "outputs"}, {IsIndex: true, Index: 2}, {Key: "value"}}
	id, err := store.PutEvent(ctx, PutEventOptions{
		ExecutionID: executionID, ArtifactID: artifactID, Type: EventOutput, Path: path,
	})
	require.NoError(t, err)

	events, err := store.GetEventsByArtifact(ctx, artifactID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.Equal(t, path, events[0].Path)
}

// TestAttributionIdempotenceLaw: inserting the same (context, artifact)
// pair twice yields one row.
func TestAttributionIdempotenceLaw(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	artifactID, _ := setupArtifactAndExecution(t, store)
	ctxTypeID, err := store.PutType(ctx, PutTypeOptions{Kind: ContextTypeKind, Name: "Experiment"})
	require.NoError(t, err)
	contextID, err := store.PostContext(ctx, PostContextOptions{TypeID: ctxTypeID, Name: "exp-1"})
	require.NoError(t, err)

	require.NoError(t, store.PutAttribution(ctx, contextID, artifactID))
	require.NoError(t, store.PutAttribution(ctx, contextID, artifactID))

	artifacts, err := store.GetArtifactsByContext(ctx, contextID)
	require.NoError(t, err)
	assert.Len(t, artifacts, 1)
}

func TestAssociationIdempotence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, executionID := setupArtifactAndExecution(t, store)
	ctxTypeID, err := store.PutType(ctx, PutTypeOptions{Kind: ContextTypeKind, Name: "Experiment"})
	require.NoError(t, err)
	contextID, err := store.PostContext(ctx, PostContextOptions{TypeID: ctxTypeID, Name: "exp-1"})
	require.NoError(t, err)

	require.NoError(t, store.PutAssociation(ctx, contextID, executionID))
	require.NoError(t, store.PutAssociation(ctx, contextID, executionID))

	executions, err := store.GetExecutionsByContext(ctx, contextID)
	require.NoError(t, err)
	assert.Len(t, executions, 1)
}

// TestParentContextIsNotIdempotent: unlike attribution/association, a
// duplicate parent-context link is already-exists, not a silent no-op.
func TestParentContextIsNotIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ctxTypeID, err := store.PutType(ctx, PutTypeOptions{Kind: ContextTypeKind, Name: "Experiment"})
	require.NoError(t, err)
	childID, err := store.PostContext(ctx, PostContextOptions{TypeID: ctxTypeID, Name: "child"})
	require.NoError(t, err)
	parentID, err := store.PostContext(ctx, PostContextOptions{TypeID: ctxTypeID, Name: "parent"})
	require.NoError(t, err)

	require.NoError(t, store.PutParentContext(ctx, childID, parentID))
	err = store.PutParentContext(ctx, childID, parentID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAlreadyExists))
}

func TestParentContextSelfLoopIsInvalidArgument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ctxTypeID, err := store.PutType(ctx, PutTypeOptions{Kind: ContextTypeKind, Name: "Experiment"})
	require.NoError(t, err)
	id, err := store.PostContext(ctx, PostContextOptions{TypeID: ctxTypeID, Name: "loop"})
	require.NoError(t, err)

	err = store.PutParentContext(ctx, id, id)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidArgument))
}
