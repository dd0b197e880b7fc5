package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kixxauth/treadwell/internal/config"
	"github.com/kixxauth/treadwell/internal/logbook"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent task events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			path := cfg.HistoryPath()
			if path == "" {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("history is disabled"))
				return nil
			}
			book, err := logbook.New(path)
			if err != nil {
				return err
			}
			lines, total := book.Tail(limit)
			if total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no runs recorded"))
				return nil
			}
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if total > len(lines) {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(fmt.Sprintf("showing %d of %d entries", len(lines), total)))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "lines", "n", 20, "Number of entries to show")
	return cmd
}
