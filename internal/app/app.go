// Package app wires configuration into the services shared by the binaries.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"recordhub/internal/config"
	"recordhub/internal/domain/filter"
	"recordhub/internal/domain/student"
	"recordhub/internal/infrastructure/search/elastic"
	"recordhub/internal/infrastructure/storage/memory"
	"recordhub/internal/infrastructure/storage/postgres"
	"recordhub/pkg/logger"
)

// NewLogger builds the process logger from config.
func NewLogger(cfg *config.Config, component string) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.IsDevelopment(),
		Service:     cfg.App.Name + "-" + component,
	})
}

// Database holds the pool and its transaction manager. Both are nil when no DSN is configured.
type Database struct {
	Pool *pgxpool.Pool
	TxM  *postgres.TxManager
}

// Close releases the pool.
func (d *Database) Close() {
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// OpenDatabase connects when database.dsn is set.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*Database, error) {
	if cfg.Database.DSN == "" {
		return &Database{}, nil
	}
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.AppName = cfg.App.Name
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	return &Database{Pool: pool, TxM: postgres.NewTxManager(pool)}, nil
}

// Schema returns the configured search allow-list.
func Schema(cfg *config.Config) (*filter.Schema, error) {
	schema, err := student.Schema(cfg.Search.Fields)
	if err != nil {
		return nil, fmt.Errorf("search.fields: %w", err)
	}
	return schema, nil
}

// Translator builds the translator for schema with the configured case handling.
func Translator(cfg *config.Config, schema *filter.Schema) *filter.Translator {
	cs := filter.CaseInsensitive
	if cfg.Search.CaseSensitive {
		cs = filter.CaseSensitive
	}
	return filter.NewTranslator(schema, filter.WithCaseSensitivity(cs))
}

// SearchBackend is an executor that can be probed for readiness.
type SearchBackend interface {
	filter.Executor
	Ping(ctx context.Context) error
}

// NewSearchBackend selects the executor named by search.backend.
func NewSearchBackend(ctx context.Context, cfg *config.Config, schema *filter.Schema, db *Database) (SearchBackend, error) {
	orderBy := cfg.Search.OrderBy

	switch cfg.Search.Backend {
	case config.BackendPostgres:
		if db.TxM == nil {
			return nil, fmt.Errorf("postgres backend needs database.dsn")
		}
		return postgres.NewQueryExecutor(db.TxM, student.Table, schema, orderBy), nil

	case config.BackendElasticsearch:
		es := cfg.Search.Elastic
		client, err := elastic.NewClient(elastic.Config{
			Addresses: es.Addresses,
			Username:  es.Username,
			Password:  es.Password,
			Index:     es.Index,
		})
		if err != nil {
			return nil, err
		}
		return elastic.NewExecutor(client, es.Index, schema, orderBy), nil

	case config.BackendMemory:
		exec, err := memory.NewExecutor(schema, orderBy)
		if err != nil {
			return nil, err
		}
		if cfg.Search.MemoryFile != "" {
			f, err := os.Open(cfg.Search.MemoryFile)
			if err != nil {
				return nil, fmt.Errorf("open memory file: %w", err)
			}
			defer f.Close()
			if err := exec.LoadJSON(f); err != nil {
				return nil, err
			}
			logger.Info(ctx, "memory backend loaded", "records", exec.Len(), "file", cfg.Search.MemoryFile)
		}
		return exec, nil

	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Search.Backend)
	}
}
