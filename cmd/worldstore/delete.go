// Delete command removes one instance.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillmud/worldstore/pkg/types"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <type> <field=value...>",
	Short: "Delete an instance by key or unique field",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
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
		if err := store.Delete(inst); err != nil {
			return fmt.Errorf("delete %s: %w", args[0], err)
		}

		fmt.Printf("Deleted %s[%s]\n", inst.TypeName(), inst.Key())
		return nil
	},
}
