// Get command retrieves one instance by key or unique field.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillmud/worldstore/pkg/types"
)

var getCmd = &cobra.Command{
	Use:   "get <type> <field=value...>",
	Short: "Get an instance by key or unique field",
	Long: `Get retrieves one instance of the named type. Filters must cover the
primary key or name a single unique field.

Example:
  worldstore get room barcode=start
  worldstore get character id=3`,
	Args: cobra.MinimumNArgs(2),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	filters, err := parseFilters(args[1:])
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	inst, err := store.Get(args[0], true, filters)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "no %s matches %v\n", args[0], args[1:])
			os.Exit(exitUserError)
		}
		return fmt.Errorf("get %s: %w", args[0], err)
	}

	return printInstances(inst)
}
