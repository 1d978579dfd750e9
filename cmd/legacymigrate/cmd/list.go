package cmd

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all importer units",
	Long: `List displays every importer unit in run order with its phase and the
legacy tables it reads. Unit names are accepted by --only, --start-at and
--stop-at.

Example:
  legacymigrate list`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return printUnits()
}
