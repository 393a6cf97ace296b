package sql

import (
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireFunctions(t *testing.T, db *sql.DB, functions []string) {
	for _, funcName := range functions {
		var exists bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
		require.NoError(t, err, "Expected the pg_proc lookup to succeed")
		assert.True(t, exists, "Expected function %s to exist", funcName)
	}
}

func TestInit(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Valid call Init creates trigger function", func(t *testing.T) {
		requireFunctions(t, db.Instance, []string{"set_updated_at"})
	})

	t.Run("Valid call Init is idempotent", func(t *testing.T) {
		assert.NoError(t, Init(db.Instance), "Expected a second Init to not return an error")
	})
}

func TestLoadSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	loaders := []struct {
		name      string
		load      func(force bool) error
		functions []string
	}{
		{"cache", func(force bool) error { return LoadCacheSql(db.Instance, force) }, CacheFunctions},
		{"snapshots", func(force bool) error { return LoadSnapshotsSql(db.Instance, force) }, SnapshotsFunctions},
		{"scores", func(force bool) error { return LoadScoresSql(db.Instance, force) }, ScoresFunctions},
	}

	for _, loader := range loaders {
		t.Run("Valid call load "+loader.name+" SQL", func(t *testing.T) {
			err := loader.load(false)
			require.NoError(t, err, "Expected loading to not return an error")
			requireFunctions(t, db.Instance, loader.functions)
		})

		t.Run("Valid call load "+loader.name+" SQL again without force", func(t *testing.T) {
			assert.NoError(t, loader.load(false), "Expected a reload without force to be a no-op")
		})

		t.Run("Valid call load "+loader.name+" SQL with force", func(t *testing.T) {
			require.NoError(t, loader.load(true), "Expected a forced reload to not return an error")
			requireFunctions(t, db.Instance, loader.functions)
		})
	}
}

func TestLoadAllSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	err := LoadAllSql(db.Instance, true)
	require.NoError(t, err, "Expected LoadAllSql to not return an error")

	var all []string
	all = append(all, CacheFunctions...)
	all = append(all, SnapshotsFunctions...)
	all = append(all, ScoresFunctions...)
	requireFunctions(t, db.Instance, all)
}
