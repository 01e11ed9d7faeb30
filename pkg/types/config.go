package types

import "errors"

// Config selects and parameterizes the backing store.
type Config struct {
	// Path is the database file, relative or absolute. Ignored when
	// Memory is set.
	Path string `json:"path" yaml:"path"`
	// Memory keeps the whole store in memory; nothing is written to
	// disk.
	Memory bool `json:"memory" yaml:"memory"`
}

// Config validation errors.
var (
	ErrPathEmpty = errors.New("database path must not be empty")
)

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if !c.Memory && c.Path == "" {
		return ErrPathEmpty
	}
	return nil
}
