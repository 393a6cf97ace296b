package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the connection settings for PostgreSQL
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the configuration from CINEGRAPH_DB_* environment variables.
// A .env file in the working directory is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	// Missing .env files are fine, the environment may already be set
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("CINEGRAPH_DB_HOST"),
		Port:     os.Getenv("CINEGRAPH_DB_PORT"),
		Database: os.Getenv("CINEGRAPH_DB_DATABASE"),
		Username: os.Getenv("CINEGRAPH_DB_USERNAME"),
		Password: os.Getenv("CINEGRAPH_DB_PASSWORD"),
		Schema:   os.Getenv("CINEGRAPH_DB_SCHEMA"),
		SSLMode:  os.Getenv("CINEGRAPH_DB_SSLMODE"),
	}

	if len(strings.TrimSpace(config.Host)) == 0 || len(strings.TrimSpace(config.Port)) == 0 || len(strings.TrimSpace(config.Database)) == 0 || len(strings.TrimSpace(config.Username)) == 0 || len(strings.TrimSpace(config.Password)) == 0 {
		return nil, NewError("database configuration", fmt.Errorf("CINEGRAPH_DB_HOST, CINEGRAPH_DB_PORT, CINEGRAPH_DB_DATABASE, CINEGRAPH_DB_USERNAME and CINEGRAPH_DB_PASSWORD must be set"))
	}
	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.SSLMode == "" {
		config.SSLMode = "require"
	}

	return config, nil
}

// DSN returns the lib/pq connection string
func (c *DatabaseConfiguration) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&search_path=%s",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
		c.Schema,
	)
}

// Database bundles a named connection pool with its logger
type Database struct {
	Name     string
	Logger   *slog.Logger
	Instance *sql.DB
}

// NewDatabase opens and pings a PostgreSQL connection.
// It panics if the database is unreachable.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	logger = LoggerOrDefault(logger)

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		logger.Error("Error opening database", slog.String("name", name), slog.String("error", err.Error()))
		panic(err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("Error pinging database", slog.String("name", name), slog.String("error", err.Error()))
		panic(err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Logger:   logger,
		Instance: db,
	}
}

// Close closes the underlying connection pool
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}
