package mlmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildListQueryBasic(t *testing.T) {
	f := listFilter{orderBy: "id"}
	sqlText, args := buildListQuery("Artifact", f)
	assert.Equal(t, "SELECT Artifact.id FROM Artifact ORDER BY Artifact.id ASC, Artifact.id ASC", sqlText)
	assert.Empty(t, args)
}

func TestBuildListQueryIDsTypeNameAndName(t *testing.T) {
	f := listFilter{ids: []int64{3, 4}, typeName: "DataSet", name: "foo", orderBy: "id"}
	sqlText, args := buildListQuery("Artifact", f)
	assert.Contains(t, sqlText, "Artifact.id IN (?,?)")
	assert.Contains(t, sqlText, "EXISTS (SELECT 1 FROM Type WHERE Type.id = Artifact.type_id AND Type.name = ?)")
	assert.Contains(t, sqlText, "Artifact.name = ?")
	assert.Equal(t, []interface{}{int64(3), int64(4), "DataSet", "foo"}, args)
}

func TestBuildListQueryTimeRanges(t *testing.T) {
	since, until := int64(100), int64(200)
	f := listFilter{createSince: &since, createUntil: &until, updateSince: &since, updateUntil: &until, orderBy: "create_time", desc: true}
	sqlText, _ := buildListQuery("Execution", f)
	assert.Contains(t, sqlText, "Execution.create_time_since_epoch >= ?")
	assert.Contains(t, sqlText, "Execution.create_time_since_epoch < ?")
	assert.Contains(t, sqlText, "Execution.last_update_time_since_epoch >= ?")
	assert.Contains(t, sqlText, "Execution.last_update_time_since_epoch < ?")
	assert.Contains(t, sqlText, "ORDER BY Execution.create_time_since_epoch DESC, Execution.id ASC")
}

func TestBuildListQueryLimitOffset(t *testing.T) {
	f := listFilter{orderBy: "id", limit: 10, offset: 20}
	sqlText, _ := buildListQuery("Context", f)
	assert.Contains(t, sqlText, "LIMIT 10")
	assert.Contains(t, sqlText, "OFFSET 20")
}

func TestBuildListQueryOffsetWithoutLimitIsIgnored(t *testing.T) {
	f := listFilter{orderBy: "id", offset: 20}
	sqlText, _ := buildListQuery("Context", f)
	assert.NotContains(t, sqlText, "OFFSET")
}

// TestBuildListQueryJoinRouting exercises every relationship-table join this
// query builder emits, pinning the routing that keeps ContextQuery's two
// filters (by artifact via Attribution, by execution via Association) from
// ever being folded through Event the way ArtifactQuery/ExecutionQuery's
// artifact/execution-via-Event filters are.
func TestBuildListQueryJoinRouting(t *testing.T) {
	val := int64(7)

	tests := []struct {
		name  string
		table string
		join  relatedJoin
		want  string
	}{
		{
			name:  "artifact by context goes through Attribution",
			table: "Artifact",
			join:  relatedJoin{"Attribution", "artifact_id", "context_id", val},
			want:  "EXISTS (SELECT 1 FROM Attribution WHERE Attribution.artifact_id = Artifact.id AND Attribution.context_id = ?)",
		},
		{
			name:  "artifact by execution goes through Event",
			table: "Artifact",
			join:  relatedJoin{"Event", "artifact_id", "execution_id", val},
			want:  "EXISTS (SELECT 1 FROM Event WHERE Event.artifact_id = Artifact.id AND Event.execution_id = ?)",
		},
		{
			name:  "execution by context goes through Association",
			table: "Execution",
			join:  relatedJoin{"Association", "execution_id", "context_id", val},
			want:  "EXISTS (SELECT 1 FROM Association WHERE Association.execution_id = Execution.id AND Association.context_id = ?)",
		},
		{
			name:  "execution by artifact goes through Event",
			table: "Execution",
			join:  relatedJoin{"Event", "execution_id", "artifact_id", val},
			want:  "EXISTS (SELECT 1 FROM Event WHERE Event.execution_id = Execution.id AND Event.artifact_id = ?)",
		},
		{
			name:  "context by artifact goes through Attribution, never Event",
			table: "Context",
			join:  relatedJoin{"Attribution", "context_id", "artifact_id", val},
			want:  "EXISTS (SELECT 1 FROM Attribution WHERE Attribution.context_id = Context.id AND Attribution.artifact_id = ?)",
		},
		{
			name:  "context by execution goes through Association, never Event",
			table: "Context",
			join:  relatedJoin{"Association", "context_id", "execution_id", val},
			want:  "EXISTS (SELECT 1 FROM Association WHERE Association.context_id = Context.id AND Association.execution_id = ?)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := listFilter{orderBy: "id"}
			sqlText, args := buildListQuery(tc.table, f, tc.join)
			assert.Contains(t, sqlText, tc.want)
			assert.Equal(t, []interface{}{val}, args)
			assert.NotContains(t, sqlText, "Event.context_id")
		})
	}
}

func TestBuildListQueryContextWithBothJoinsNeverReferencesEvent(t *testing.T) {
	artifactID, executionID := int64(1), int64(2)
	f := listFilter{artifactID: &artifactID, executionID: &executionID, orderBy: "id"}
	joins := []relatedJoin{
		{"Attribution", "context_id", "artifact_id", artifactID},
		{"Association", "context_id", "execution_id", executionID},
	}
	sqlText, args := buildListQuery("Context", f, joins...)
	assert.NotContains(t, sqlText, "Event")
	assert.Contains(t, sqlText, "Attribution.context_id = Context.id AND Attribution.artifact_id = ?")
	assert.Contains(t, sqlText, "Association.context_id = Context.id AND Association.execution_id = ?")
	assert.Equal(t, []interface{}{artifactID, executionID}, args)
}

func TestEmptyIDs(t *testing.T) {
	var f listFilter
	assert.False(t, f.emptyIDs(), "nil ids slice means \"no id filter\", not \"match nothing\"")
	f.ids = []int64{}
	assert.True(t, f.emptyIDs())
	f.ids = []int64{1}
	assert.False(t, f.emptyIDs())
}
