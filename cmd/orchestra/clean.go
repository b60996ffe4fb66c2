package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newCleanCmd(app *AppContext) *cobra.Command {
	var scratchDir string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "remove scratch state left behind by previous runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanScratchDir(cmd, scratchDir)
		},
	}

	cmd.Flags().StringVarP(&scratchDir, "scratch-dir", "d", "", "scratch directory to remove (default: the default scratch root)")

	return cmd
}

// runCleanScratchDir removes the scratch directory rooted at scratchDir (or
// the default scratch root, if empty). Shared by the `clean` subcommand and
// `run --clean`'s hidden alias, so `-i ... --clean` purges scratch state and
// exits without planning or executing anything.
func runCleanScratchDir(cmd *cobra.Command, scratchDir string) error {
	root := scratchDir
	if root == "" {
		root = filepath.Join(os.TempDir(), "orchestra")
	}
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("clean scratch directory %s: %w", root, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", root)
	return nil
}
