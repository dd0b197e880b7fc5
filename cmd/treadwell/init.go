package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kixxauth/treadwell/internal/config"
)

func newInitCmd() *cobra.Command {
	var defaultTask string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.FileName + " into the project directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(cmd)
			if err != nil {
				return err
			}
			path, created, err := config.Init(dir)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("created"), path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mutedStyle.Render("exists"), path)
			}
			if defaultTask == "" {
				return nil
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			if err := cfg.SetDefaultTask(defaultTask); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "default task %s\n", nameStyle.Render(defaultTask))
			return nil
		},
	}
	cmd.Flags().StringVar(&defaultTask, "default", "", "Task run when none is named")
	return cmd
}
