package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed cache.sql
var cacheSQL string

//go:embed snapshots.sql
var snapshotsSQL string

//go:embed scores.sql
var scoresSQL string

// Function lists for verification
var CacheFunctions = []string{
	"init_cache",
	"insert_cache_entry",
	"select_cache_entry",
	"delete_cache_entry",
	"evict_oldest_cache_entries",
	"clear_cache_entries",
	"select_cache_stats",
}

var SnapshotsFunctions = []string{
	"init_snapshots",
	"upsert_graph_snapshot",
	"select_graph_snapshot",
	"delete_graph_snapshot",
}

var ScoresFunctions = []string{
	"init_scores",
	"upsert_high_score",
	"select_high_score",
	"select_all_high_scores",
	"delete_high_score",
}

// Init creates the shared trigger functions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing init SQL: %w", err)
	}

	log.Println("Database helpers initialized successfully")
	return nil
}

// LoadCacheSql loads cache-related SQL functions
func LoadCacheSql(db *sql.DB, force bool) error {
	return loadSql(db, "cache", cacheSQL, CacheFunctions, force)
}

// LoadSnapshotsSql loads graph snapshot SQL functions
func LoadSnapshotsSql(db *sql.DB, force bool) error {
	return loadSql(db, "snapshots", snapshotsSQL, SnapshotsFunctions, force)
}

// LoadScoresSql loads high score SQL functions.
// The scores trigger depends on Init having run first.
func LoadScoresSql(db *sql.DB, force bool) error {
	return loadSql(db, "scores", scoresSQL, ScoresFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := Init(db); err != nil {
		return err
	}

	if err := LoadCacheSql(db, force); err != nil {
		return err
	}

	if err := LoadSnapshotsSql(db, force); err != nil {
		return err
	}

	if err := LoadScoresSql(db, force); err != nil {
		return err
	}

	return nil
}

func loadSql(db *sql.DB, name string, script string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
