package dialect

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMysqlDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "host:port form rewritten to tcp",
			in:   "root:secret@127.0.0.1:3306/mlmd",
			want: []string{"root:secret@tcp(127.0.0.1:3306)/mlmd", "parseTime=true"},
		},
		{
			name: "already tcp() form left alone",
			in:   "root:secret@tcp(127.0.0.1:3306)/mlmd",
			want: []string{"root:secret@tcp(127.0.0.1:3306)/mlmd", "parseTime=true"},
		},
		{
			name: "existing query string gets ampersand-joined",
			in:   "root:secret@127.0.0.1:3306/mlmd?charset=utf8mb4",
			want: []string{"charset=utf8mb4", "&parseTime=true"},
		},
		{
			name: "parseTime already present is not duplicated",
			in:   "root:secret@tcp(127.0.0.1:3306)/mlmd?parseTime=false",
			want: []string{"parseTime=false"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mysqlDSN(tc.in)
			for _, want := range tc.want {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestMysqlDSNParseTimeNotDuplicated(t *testing.T) {
	got := mysqlDSN("root:secret@tcp(127.0.0.1:3306)/mlmd?parseTime=false")
	assert.Equal(t, 1, strings.Count(got, "parseTime="))
}

func TestMysqlCreateTableStatementsNonEmpty(t *testing.T) {
	d := mysqlDialect{}
	stmts := d.CreateTableStatements()
	require.NotEmpty(t, stmts)
	for _, s := range stmts {
		assert.Contains(t, s, "CREATE TABLE")
	}
}

func TestMysqlIsUniqueViolation(t *testing.T) {
	d := mysqlDialect{}
	assert.True(t, d.IsUniqueViolation(errors.New("Error 1062: Duplicate entry 'x' for key 'idx_type_name_version_kind'")))
	assert.True(t, d.IsUniqueViolation(errors.New("Duplicate entry 'x' for key 'y'")))
	assert.False(t, d.IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, d.IsUniqueViolation(nil))
}

func TestMysqlName(t *testing.T) {
	assert.Equal(t, MySQL, mysqlDialect{}.Name())
}
