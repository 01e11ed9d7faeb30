// Shared helpers for worldstore CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillmud/worldstore/internal/paths"
	"github.com/quillmud/worldstore/pkg/sqlite"
	"github.com/quillmud/worldstore/pkg/types"
	"github.com/quillmud/worldstore/pkg/world"
)

// openStore resolves the data directory, builds the built-in registry,
// and opens the store. The caller must defer store.Close().
func openStore() (types.Store, error) {
	reg, err := world.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	cfg := types.Config{Memory: flagMemory}
	if !flagMemory {
		dataDir, err := resolveDataDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		cfg.Path = paths.DatabaseFile(dataDir)
	}

	store, err := sqlite.Open(cfg, reg, cliLogger())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// cliLogger returns a stderr logger at debug level when --verbose is
// set, else nil to silence query logging.
func cliLogger() *slog.Logger {
	if !flagVerbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// parseFilters parses key=value arguments. Values parse as JSON when
// possible, else stay raw strings.
func parseFilters(args []string) (map[string]any, error) {
	filters := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q (expected field=value)", arg)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		filters[key] = parsed
	}
	return filters, nil
}

// renderFields converts an instance's fields to a JSON-friendly map:
// references shrink to their type and key, binary and temporal values to
// their canonical text.
func renderFields(inst *types.Instance) map[string]any {
	out := make(map[string]any)
	for name, v := range inst.Fields() {
		switch t := v.(type) {
		case *types.Instance:
			out[name] = map[string]any{"type": t.TypeName(), "key": t.Key().Map()}
		case time.Time, uuid.UUID, []byte:
			out[name] = types.FormatValue(t)
		default:
			out[name] = v
		}
	}
	return out
}

// printInstances writes instances as indented JSON with --json, else as
// aligned field = value text blocks.
func printInstances(insts ...*types.Instance) error {
	if flagJSON {
		docs := make([]map[string]any, len(insts))
		for i, inst := range insts {
			doc := renderFields(inst)
			doc["type"] = inst.TypeName()
			docs[i] = doc
		}
		var out any = docs
		if len(docs) == 1 {
			out = docs[0]
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	for i, inst := range insts {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("%s[%s]\n", inst.TypeName(), inst.Key())
		fields := renderFields(inst)
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if fields[name] == nil {
				continue
			}
			fmt.Printf("  %s = %v\n", name, fields[name])
		}
	}
	return nil
}
