// Version command for the worldstore CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillmud/worldstore/pkg/worldstore"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the worldstore version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("worldstore", worldstore.Version)
	},
}
