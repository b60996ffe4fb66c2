package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "orchestra",
		Short:         "orchestra plans and runs declarative, context-expanded script pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCmd(app))
	cmd.AddCommand(newCleanCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
