// List command queries instances with optional filters.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillmud/worldstore/pkg/types"
)

var listCmd = &cobra.Command{
	Use:   "list <type> [field=value...]",
	Short: "List instances with optional filters",
	Long: `List queries instances of the named type. Filters are field=value
pairs over main-table fields and are ANDed together; no filter returns
every instance. Listing a base type includes its subtypes.

Example:
  worldstore list room
  worldstore list item name=coin`,
	Args: cobra.MinimumNArgs(1),
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	filters, err := parseFilters(args[1:])
	if err != nil {
		return err
	}
	conds := make([]types.Cond, 0, len(filters))
	for field, value := range filters {
		conds = append(conds, types.Eq(field, value))
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	insts, err := store.Select(args[0], conds)
	if err != nil {
		return fmt.Errorf("list %s: %w", args[0], err)
	}
	if len(insts) == 0 && !flagJSON {
		fmt.Printf("no %s instances\n", args[0])
		return nil
	}
	return printInstances(insts...)
}
