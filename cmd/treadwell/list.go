package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var sources sourceFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the project's tasks and their dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(cmd)
			if err != nil {
				return err
			}
			proj, err := loadProject(dir, sources, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			names := proj.runner.Tasks()
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no tasks defined"))
				return nil
			}
			width := 0
			for _, name := range names {
				if len(name) > width {
					width = len(name)
				}
			}
			column := lipgloss.NewStyle().Width(width + 2)
			for _, name := range names {
				def := proj.defs[name]
				line := column.Render(name) + def.Kind()
				if deps, ok := proj.runner.Dependencies(name); ok && len(def.Dependencies.Names()) > 0 {
					line += " " + mutedStyle.Render("after "+deps.String())
				}
				if def.Description != "" {
					line += " " + mutedStyle.Render("- "+def.Description)
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&sources.files, "file", "f", nil, "YAML task file or directory (repeatable)")
	cmd.Flags().StringArrayVar(&sources.scripts, "scripts", nil, "Directory of Go task definition scripts (repeatable)")
	return cmd
}
