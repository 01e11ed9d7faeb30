// Package sqlite provides the public factory for the SQLite-backed
// world store while keeping the engine implementation internal.
package sqlite

import (
	"log/slog"

	"github.com/quillmud/worldstore/internal/sqlite"
	"github.com/quillmud/worldstore/pkg/types"
)

// Open opens the store described by config with every type in registry
// bound to its tables. A nil logger disables query logging.
//
// Example:
//
//	reg := types.NewRegistry()
//	// register descriptors
//	store, err := sqlite.Open(types.Config{Path: "world.db"}, reg, nil)
//	defer store.Close()
func Open(config types.Config, registry *types.Registry, logger *slog.Logger) (types.Store, error) {
	return sqlite.Open(config, registry, logger)
}
