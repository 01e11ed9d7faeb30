// Load command applies blueprint files to the store.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillmud/worldstore/pkg/blueprint"
)

var loadCmd = &cobra.Command{
	Use:   "load <file...>",
	Short: "Apply blueprint files",
	Long: `Load applies one or more YAML blueprint files to the store. Each
document names an entity type and its blueprint-key fields; existing
instances are updated in place, missing ones are created.

Example:
  worldstore load world/rooms.yml world/items.yml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	loader := blueprint.NewLoader(store, cliLogger())

	if err := store.Begin(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	total := 0
	for _, path := range args {
		applied, err := loader.LoadFile(path)
		if err != nil {
			if rbErr := store.Rollback(); rbErr != nil {
				return fmt.Errorf("load %s: %v (rollback: %w)", path, err, rbErr)
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
		total += applied
	}
	if err := store.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	fmt.Printf("Applied %d blueprint document(s)\n", total)
	return nil
}
