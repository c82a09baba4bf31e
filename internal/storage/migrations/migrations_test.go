package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.Len(t, pg, 2)
	assert.Equal(t, "001_runs.sql", pg[0].name)
	assert.Len(t, pg[0].statements, 3)
	assert.Equal(t, "002_stage_events.sql", pg[1].name)
	assert.Len(t, pg[1].statements, 2)

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.Len(t, ch, 1)
	assert.Equal(t, "001_stage_events.sql", ch[0].name)
	assert.Len(t, ch[0].statements, 1)
}

func TestLoad_SortsAndSkipsEmptyFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/002_b.sql":  {Data: []byte("SELECT 2;")},
		"sql/001_a.sql":  {Data: []byte("SELECT 1;")},
		"sql/003_c.sql":  {Data: []byte("-- nothing yet\n")},
		"sql/readme.txt": {Data: []byte("ignored")},
	}

	files, err := load(fsys, "sql")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001_a.sql", files[0].name)
	assert.Equal(t, "002_b.sql", files[1].name)
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name: "comments and blank lines",
			script: `-- comment; with semicolon
CREATE TABLE a (x String) ENGINE = Memory;

CREATE TABLE b (y String) ENGINE = Memory; -- trailing
`,
			want: []string{
				"CREATE TABLE a (x String) ENGINE = Memory",
				"CREATE TABLE b (y String) ENGINE = Memory",
			},
		},
		{
			name:   "semicolon inside string",
			script: "SELECT 'a;b'; SELECT 'it''s';",
			want:   []string{"SELECT 'a;b'", "SELECT 'it''s'"},
		},
		{
			name:   "dashes inside string",
			script: "SELECT '--not a comment'",
			want:   []string{"SELECT '--not a comment'"},
		},
		{
			name:   "no terminator",
			script: "SELECT 1",
			want:   []string{"SELECT 1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitStatements(tt.script))
		})
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/binranges")
	require.NoError(t, err)
	assert.Equal(t, "binranges", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)

	_, err = databaseFromDSN("clickhouse://localhost:9000/bin-ranges;DROP")
	assert.Error(t, err)
}
