// Package blueprint loads world content from YAML files. Each document
// names an entity type and the values of its blueprint-key fields; the
// loader finds the existing instance by those keys or creates it, then
// applies the remaining fields. Loading the same file twice is safe.
package blueprint

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quillmud/worldstore/pkg/types"
)

// Applier customizes how one field takes a blueprint value, for fields
// whose stored form differs from the authored one (hashed passwords,
// compiled scripts).
type Applier interface {
	ApplyBlueprint(inst *types.Instance, value any) error
}

// ApplierFunc adapts a function to the Applier interface.
type ApplierFunc func(inst *types.Instance, value any) error

func (f ApplierFunc) ApplyBlueprint(inst *types.Instance, value any) error {
	return f(inst, value)
}

// Loader applies blueprint documents to a store.
type Loader struct {
	store    types.Store
	logger   *slog.Logger
	appliers map[string]Applier
}

// NewLoader returns a loader writing into store. A nil logger silences
// skip diagnostics.
func NewLoader(store types.Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		store:    store,
		logger:   logger,
		appliers: make(map[string]Applier),
	}
}

// RegisterApplier installs a custom applier for one field of one type.
func (l *Loader) RegisterApplier(typeName, field string, a Applier) {
	l.appliers[typeName+"."+field] = a
}

// LoadFile applies every document in the named YAML file and returns the
// number of instances touched.
func (l *Loader) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening blueprint %s: %w", path, err)
	}
	defer f.Close()
	return l.Load(f, path)
}

// Load applies every YAML document read from r. Malformed YAML stops the
// load; documents with unknown types or missing keys are logged and
// skipped.
func (l *Loader) Load(r io.Reader, source string) (int, error) {
	dec := yaml.NewDecoder(r)
	applied := 0
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return applied, nil
		}
		if err != nil {
			return applied, fmt.Errorf("parsing blueprint %s: %w", source, err)
		}
		if doc == nil {
			continue
		}
		ok, err := l.applyDoc(doc, source)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}
}

// applyDoc finds-or-creates the instance a document describes and writes
// its fields. The second return reports whether the document was applied.
func (l *Loader) applyDoc(doc map[string]any, source string) (bool, error) {
	typeName, _ := doc["type"].(string)
	if typeName == "" {
		l.logger.Warn("skipping blueprint document without a type", "source", source)
		return false, nil
	}
	desc, err := l.store.Registry().Lookup(typeName)
	if err != nil {
		l.logger.Warn("skipping blueprint document of unknown type",
			"source", source, "type", typeName)
		return false, nil
	}

	keys := make(map[string]any)
	for _, f := range desc.AllFields() {
		if !f.BlueprintKey {
			continue
		}
		if v, ok := doc[f.Name]; ok {
			keys[f.Name] = v
		}
	}
	if len(keys) == 0 {
		l.logger.Warn("skipping keyless blueprint document",
			"source", source, "type", typeName)
		return false, nil
	}

	inst, err := l.store.Get(typeName, false, keys)
	if err != nil {
		return false, fmt.Errorf("looking up %s blueprint: %w", typeName, err)
	}
	if inst == nil {
		// Caller-assigned primary keys must be present at creation.
		create := make(map[string]any, len(keys)+1)
		for name, v := range keys {
			create[name] = v
		}
		for _, name := range desc.PrimaryKeys() {
			if v, ok := doc[name]; ok {
				create[name] = v
			}
		}
		if inst, err = l.store.Create(typeName, create); err != nil {
			return false, fmt.Errorf("creating %s blueprint: %w", typeName, err)
		}
	}

	skip := func(name string) bool {
		if name == "type" {
			return true
		}
		if _, isKey := keys[name]; isKey {
			return true
		}
		for _, pk := range desc.PrimaryKeys() {
			if name == pk {
				return true
			}
		}
		return false
	}
	for name, value := range doc {
		if skip(name) {
			continue
		}
		if _, ok := desc.Field(name); !ok {
			l.logger.Warn("skipping unknown blueprint field",
				"source", source, "type", typeName, "field", name)
			continue
		}
		if a, ok := l.appliers[typeName+"."+name]; ok {
			if err := a.ApplyBlueprint(inst, value); err != nil {
				return false, fmt.Errorf("applying %s.%s: %w", typeName, name, err)
			}
			continue
		}
		if err := inst.Set(name, value); err != nil {
			return false, fmt.Errorf("applying %s.%s: %w", typeName, name, err)
		}
	}
	return true, nil
}
