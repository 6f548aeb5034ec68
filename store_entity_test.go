package mlmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupArtifactType(t *testing.T, store *MetadataStore, props map[string]PropertyDataType) int64 {
	t.Helper()
	id, err := store.PutType(context.Background(), PutTypeOptions{
		Kind: ArtifactTypeKind, Name: "DataSet", Properties: props,
	})
	require.NoError(t, err)
	return id
}

// TestRoundTripLaw: post_artifact then get_artifact returns the same field
// values and property maps.
func TestRoundTripLaw(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	typeID := setupArtifactType(t, store, map[string]PropertyDataType{"rows": Int})

	id, err := store.PostArtifact(ctx, PostArtifactOptions{
		TypeID:           typeID,
		Name:             "train.csv",
		URI:              "/data/train.csv",
		State:            ArtifactLive,
		Properties:       map[string]PropertyValue{"rows": IntValue(100)},
		CustomProperties: map[string]PropertyValue{"owner": StringValue("alice")},
	})
	require.NoError(t, err)

	got, err := store.GetArtifactByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, typeID, got.TypeID)
	assert.Equal(t, "train.csv", got.Name)
	assert.Equal(t, "/data/train.csv", got.URI)
	assert.Equal(t, ArtifactLive, got.State)
	assert.Equal(t, map[string]PropertyValue{"rows": IntValue(100)}, got.Properties)
	assert.Equal(t, map[string]PropertyValue{"owner": StringValue("alice")}, got.CustomProperties)
	assert.LessOrEqual(t, got.CreateTimeSinceEpoch, got.LastUpdateTimeSinceEpoch)
}

// TestPropertyReplacementLaw: after put_artifact(id, properties=M),
// get_artifact(id).properties == M exactly.
func TestPropertyReplacementLaw(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	typeID := setupArtifactType(t, store, map[string]PropertyDataType{"rows": Int, "cols": Int})

	id, err := store.PostArtifact(ctx, PostArtifactOptions{
		TypeID:     typeID,
		Properties: map[string]PropertyValue{"rows": IntValue(1), "cols": IntValue(2)},
	})
	require.NoError(t, err)

	replacement := map[string]PropertyValue{"rows": IntValue(9)}
	require.NoError(t, store.PutArtifact(ctx, id, ArtifactPatch{Properties: replacement}))

	got, err := store.GetArtifactByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, replacement, got.Properties)
}

func TestPutArtifactNilPropertiesMeansNoChange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	typeID := setupArtifactType(t, store, map[string]PropertyDataType{"rows": Int})

	id, err := store.PostArtifact(ctx, PostArtifactOptions{
		TypeID:     typeID,
		Properties: map[string]PropertyValue{"rows": IntValue(1)},
	})
	require.NoError(t, err)

	newName := "renamed.csv"
	require.NoError(t, store.PutArtifact(ctx, id, ArtifactPatch{Name: &newName}))

	got, err := store.GetArtifactByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "renamed.csv", got.Name)
	assert.Equal(t, map[string]PropertyValue{"rows": IntValue(1)}, got.Properties)
}

// TestScenarioMismatchedPropertyDatatypeIsTypeConflict covers spec scenario 6:
// post_artifact with a property whose runtime datatype mismatches the
// declared datatype fails, and no row is inserted.
func TestScenarioMismatchedPropertyDatatypeIsTypeConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	typeID := setupArtifactType(t, store, map[string]PropertyDataType{"rows": Int})

	_, err := store.PostArtifact(ctx, PostArtifactOptions{
		TypeID:     typeID,
		URI:        "/foo/bar",
		Properties: map[string]PropertyValue{"rows": StringValue("x")},
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTypeConflict))

	artifacts, err := store.ArtifactQuery().WithTypeName("DataSet").Execute(ctx)
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestPostArtifactUndeclaredPropertyNameIsTypeConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	typeID := setupArtifactType(t, store, map[string]PropertyDataType{"rows": Int})

	_, err := store.PostArtifact(ctx, PostArtifactOptions{
		TypeID:     typeID,
		Properties: map[string]PropertyValue{"not_declared": IntValue(1)},
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTypeConflict))
}

func TestPostArtifactWrongTypeKindIsTypeConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	execTypeID, err := store.PutType(ctx, PutTypeOptions{Kind: ExecutionTypeKind, Name: "Trainer"})
	require.NoError(t, err)

	_, err = store.PostArtifact(ctx, PostArtifactOptions{TypeID: execTypeID})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTypeConflict))
}

func TestGetArtifactByIDNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetArtifactByID(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestScenarioDuplicateArtifactNameIsAlreadyExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	typeID, err := store.PutType(ctx, PutTypeOptions{Kind: ArtifactTypeKind, Name: "Model"})
	require.NoError(t, err)

	_, err = store.PostArtifact(ctx, PostArtifactOptions{TypeID: typeID, Name: "model-1"})
	require.NoError(t, err)

	_, err = store.PostArtifact(ctx, PostArtifactOptions{TypeID: typeID, Name: "model-1"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAlreadyExists))
}

// TestScenarioDuplicateContextNameIsAlreadyExists covers spec scenario 5.
func TestScenarioDuplicateContextNameIsAlreadyExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	typeID, err := store.PutType(ctx, PutTypeOptions{Kind: ContextTypeKind, Name: "Experiment"})
	require.NoError(t, err)

	_, err = store.PostContext(ctx, PostContextOptions{TypeID: typeID, Name: "exp-1"})
	require.NoError(t, err)

	_, err = store.PostContext(ctx, PostContextOptions{TypeID: typeID, Name: "exp-1"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAlreadyExists))
}

func TestPostContextEmptyNameIsInvalidArgument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	typeID, err := store.PutType(ctx, PutTypeOptions{Kind: ContextTypeKind, Name: "Experiment"})
	require.NoError(t, err)

	_, err = store.PostContext(ctx, PostContextOptions{TypeID: typeID})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidArgument))
}

func TestExecutionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	typeID, err := store.PutType(ctx, PutTypeOptions{
		Kind: ExecutionTypeKind, Name: "Trainer",
		Properties: map[string]PropertyDataType{"epochs": Int},
	})
	require.NoError(t, err)

	id, err := store.PostExecution(ctx, PostExecutionOptions{
		TypeID:         typeID,
		Name:           "run-1",
		LastKnownState: ExecutionRunning,
		Properties:     map[string]PropertyValue{"epochs": IntValue(5)},
	})
	require.NoError(t, err)

	got, err := store.GetExecutionByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.Name)
	assert.Equal(t, ExecutionRunning, got.LastKnownState)
	assert.Equal(t, map[string]PropertyValue{"epochs": IntValue(5)}, got.Properties)

	complete := ExecutionComplete
	require.NoError(t, store.PutExecution(ctx, id, ExecutionPatch{LastKnownState: &complete}))
	got, err = store.GetExecutionByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ExecutionComplete, got.LastKnownState)
}

func TestScenarioDuplicateExecutionNameIsAlreadyExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	typeID, err := store.PutType(ctx, PutTypeOptions{Kind: ExecutionTypeKind, Name: "Trainer"})
	require.NoError(t, err)

	_, err = store.PostExecution(ctx, PostExecutionOptions{TypeID: typeID, Name: "run-1"})
	require.NoError(t, err)

	_, err = store.PostExecution(ctx, PostExecutionOptions{TypeID: typeID, Name: "run-1"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAlreadyExists))
}
