// Package database opens the GORM connections the relational backends
// write demo rows through.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/demolens/tickstate/internal/config"
	"github.com/demolens/tickstate/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errNoDB = errors.New("db not connected")

// sqlitePragmas trade durability for write speed. The file on disk is
// produced by VACUUM INTO, not by the journal.
var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
	"PRAGMA page_size = 32768;",
}

// Conn is an open database. Local is set when Postgres could not be reached
// and the rows go to an in-memory SQLite database instead.
type Conn struct {
	DB    *gorm.DB
	Local bool
}

// Open connects to Postgres and falls back to in-memory SQLite when the
// server is unreachable.
func Open(cfg config.DBConfig, log zerolog.Logger) (*Conn, error) {
	db, err := OpenPostgres(cfg)
	if err == nil {
		err = ping(db, 10)
	}
	if err == nil {
		log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to database")
		return &Conn{DB: db}, nil
	}
	log.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")

	db, err = OpenSQLite(MemoryDSN("tickstate"))
	if err != nil {
		return nil, fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	// a shared cache in-memory DB must stay on one connection
	if err := ping(db, 1); err != nil {
		return nil, err
	}
	log.Info().Msg("Using local SQLite DB in memory, dumped to disk on close")
	return &Conn{DB: db, Local: true}, nil
}

func ping(db *gorm.DB, maxOpen int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	return sqlDB.Ping()
}

// Migrate creates the tables, installing PostGIS first on Postgres. Local
// databases get the schema without geometry columns.
func Migrate(db *gorm.DB, local bool) error {
	if db == nil {
		return errNoDB
	}
	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS extension: %w", err)
		}
	}
	models := model.DatabaseModels
	if local {
		models = model.DatabaseModelsSQLite
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// PostgresDSN builds the connection string for cfg.
func PostgresDSN(cfg config.DBConfig) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}

func OpenPostgres(cfg config.DBConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// MemoryDSN names a private in-memory database that lives as long as one
// of its connections.
func MemoryDSN(name string) string {
	return "file:" + name + "?mode=memory&cache=shared"
}

// OpenSQLite opens dsn, which is a file path or a MemoryDSN.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// VacuumInto writes db to path, replacing any file already there.
func VacuumInto(db *gorm.DB, path string) error {
	if path == "" {
		return fmt.Errorf("sqlite file path not set")
	}
	if db == nil {
		return errNoDB
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating dump directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error removing existing DB file: %w", err)
	}
	if err := db.Exec("VACUUM INTO ?", path).Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return nil
}
