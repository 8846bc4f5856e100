package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteBootstrapsMessagesTable(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "nested", "app.db")
	db, err := OpenSQLite(context.Background(), Options{Path: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, SchemaReady(context.Background(), db))

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode;").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var busy int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout;").Scan(&busy))
	assert.Equal(t, 5000, busy)
}

func TestOpenSQLiteIsIdempotent(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "app.db")
	for range 2 {
		db, err := OpenSQLite(context.Background(), Options{Path: dbPath})
		require.NoError(t, err)
		require.NoError(t, db.Close())
	}
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), Options{})
	assert.Error(t, err)
}

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "absolute path", raw: "sqlite:////data/app.db", want: "/data/app.db"},
		{name: "relative path", raw: "sqlite:///./data/app.db", want: "./data/app.db"},
		{name: "surrounding whitespace", raw: "  sqlite:////tmp/x.db ", want: "/tmp/x.db"},
		{name: "empty", raw: "", wantErr: true},
		{name: "postgres scheme", raw: "postgres://localhost/db", wantErr: true},
		{name: "no path", raw: "sqlite:///", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDatabaseURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
