// Count command reports how many instances match.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillmud/worldstore/pkg/types"
)

var countCmd = &cobra.Command{
	Use:   "count <type> [field=value...]",
	Short: "Count instances with optional filters",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		n, err := store.Count(args[0], conds)
		if err != nil {
			return fmt.Errorf("count %s: %w", args[0], err)
		}
		fmt.Println(n)
		return nil
	},
}
