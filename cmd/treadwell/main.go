// Command treadwell runs tasks declared in a project's task files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "treadwell",
		Short: "Treadwell - run dependent tasks declared in YAML or Go",
		Long: `Treadwell loads task definitions from the project's task files and
runs a task after its dependencies. Dependencies listed in a series run one
after another; a parallel group runs its members concurrently. Every task
runs at most once per run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("dir", "C", "", "Project directory (defaults to the working directory)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of treadwell",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "treadwell %s\n", version)
		},
	}
}

func projectDir(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return "", err
	}
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}
