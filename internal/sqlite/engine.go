// Package sqlite implements the worldstore storage engine over a single
// embedded SQLite file (or an in-memory database). It owns the physical
// table layout, the identity cache, the containment locator, and the
// transaction wrapper; callers reach it through the types.Store interface.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/quillmud/worldstore/pkg/types"
)

// Engine is the SQLite storage engine. It performs no internal locking:
// the caller runs one logical transaction at a time on a single thread of
// control, which matches one engine per game process.
type Engine struct {
	registry *types.Registry
	config   types.Config
	db       *sql.DB
	tx       *sql.Tx

	bindings map[string]*binding
	cache    *cache
	loc      *locator

	// loading suppresses write-backs triggered while an instance is
	// being materialized from storage.
	loading int
	txSeq   int
	logger  *slog.Logger
}

var _ types.Store = (*Engine)(nil)

// Open opens (creating if needed) the database described by config, binds
// every registered type to its physical tables, and returns the engine.
// A nil logger silences query logging.
func Open(config types.Config, registry *types.Registry, logger *slog.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := config.Path
	if config.Memory {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: the engine is single-writer and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	e := &Engine{
		registry: registry,
		config:   config,
		db:       db,
		bindings: make(map[string]*binding),
		logger:   logger,
	}
	e.cache = newCache(registry)
	e.loc = newLocator(e)

	if err := e.bind(); err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

// Registry returns the schema registry the engine was opened with.
func (e *Engine) Registry() *types.Registry { return e.registry }

// Locator returns the containment hierarchy over this engine.
func (e *Engine) Locator() types.Locator { return e.loc }

// Close releases the database. Further operations return ErrClosed.
func (e *Engine) Close() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	e.tx = nil
	e.ClearCache()
	return err
}

// ClearCache drops every cached identity and materialized contents list.
func (e *Engine) ClearCache() {
	e.cache.clear()
	e.loc.clear()
}

// Begin opens a transaction scope. Every statement routes through it
// until Commit or Rollback.
func (e *Engine) Begin() error {
	if e.db == nil {
		return types.ErrClosed
	}
	if e.tx != nil {
		return types.ErrTransactionOpen
	}
	tx, err := e.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	e.tx = tx
	e.txSeq++
	e.logger.Debug("BEGIN", "transaction", e.txSeq)
	return nil
}

// Commit persists the open transaction.
func (e *Engine) Commit() error {
	if e.tx == nil {
		return types.ErrNoTransaction
	}
	e.logger.Debug("COMMIT", "transaction", e.txSeq)
	err := e.tx.Commit()
	e.tx = nil
	return err
}

// Rollback discards the open transaction and unconditionally clears the
// cache, even when the underlying rollback fails: no partially-applied
// in-memory state survives.
func (e *Engine) Rollback() error {
	if e.tx == nil {
		return types.ErrNoTransaction
	}
	e.logger.Debug("ROLLBACK", "transaction", e.txSeq)
	err := e.tx.Rollback()
	e.tx = nil
	e.ClearCache()
	return err
}

// dbtx is the statement surface shared by *sql.DB and *sql.Tx.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// handle returns the active transaction, or the bare connection outside
// of one.
func (e *Engine) handle() dbtx {
	if e.tx != nil {
		return e.tx
	}
	return e.db
}

func (e *Engine) exec(query string, args ...any) (sql.Result, error) {
	e.logger.Debug(query, "args", args)
	return e.handle().Exec(query, args...)
}

func (e *Engine) query(query string, args ...any) (*sql.Rows, error) {
	e.logger.Debug(query, "args", args)
	return e.handle().Query(query, args...)
}

func (e *Engine) queryRow(query string, args ...any) *sql.Row {
	e.logger.Debug(query, "args", args)
	return e.handle().QueryRow(query, args...)
}

// startLoading and stopLoading scope the materialization guard.
func (e *Engine) startLoading() { e.loading++ }
func (e *Engine) stopLoading()  { e.loading-- }
