package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newReplica(t *testing.T) *sql.DB {
	t.Helper()

	dsn, err := PrepareDSN(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE shade_brands (
			id INTEGER PRIMARY KEY,
			subject_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			system_name TEXT
		);
		CREATE TABLE shade_variants (
			id INTEGER PRIMARY KEY,
			brand_id INTEGER NOT NULL REFERENCES shade_brands(id),
			name TEXT NOT NULL,
			sequence INTEGER,
			price REAL
		);
	`)
	require.NoError(t, err)
	return db
}

func TestSourceFetchCatalog(t *testing.T) {
	db := newReplica(t)

	_, err := db.Exec(`INSERT INTO shade_brands (id, subject_id, name, system_name) VALUES
		(7, 1, 'VITA Classical', NULL),
		(8, 1, 'Chromascop', 'chromascop'),
		(9, 2, 'Other Subject Brand', NULL)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO shade_variants (id, brand_id, name, sequence, price) VALUES
		(42, 7, 'A1', 1, 12.5),
		(43, 7, 'A2', 2, NULL),
		(50, 8, '110', NULL, NULL)`)
	require.NoError(t, err)

	src := NewWithDB(db)
	brands, err := src.FetchCatalog(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, brands, 2)

	require.Equal(t, "VITA Classical", brands[0].Name)
	require.Empty(t, brands[0].SystemName)
	require.Len(t, brands[0].Variants, 2)
	require.Equal(t, "A1", brands[0].Variants[0].Name)
	require.Equal(t, 12.5, brands[0].Variants[0].Price)

	require.Equal(t, "chromascop", brands[1].SystemName)
	require.Len(t, brands[1].Variants, 1)
}

func TestSourceFetchCatalogEmptySubject(t *testing.T) {
	src := NewWithDB(newReplica(t))

	brands, err := src.FetchCatalog(context.Background(), 99)
	require.NoError(t, err)
	require.Empty(t, brands)
}

func TestPrepareDSNDefaults(t *testing.T) {
	dsn, err := PrepareDSN("catalog.db")
	require.NoError(t, err)
	require.Contains(t, dsn, "journal_mode%28WAL%29")
	require.Contains(t, dsn, "busy_timeout%28100%29")

	dsn, err = PrepareDSN("catalog.db?_pragma=busy_timeout%28500%29")
	require.NoError(t, err)
	require.Contains(t, dsn, "busy_timeout%28500%29")
	require.NotContains(t, dsn, "busy_timeout%28100%29")
}
