package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

func renderSuccess(task, runID string, elapsed time.Duration) string {
	return fmt.Sprintf("%s %s %s",
		successStyle.Render("done"),
		nameStyle.Render(task),
		mutedStyle.Render(fmt.Sprintf("in %s (run %s)", roundElapsed(elapsed), runID)))
}

func renderFailure(task, runID string, elapsed time.Duration) string {
	return fmt.Sprintf("%s %s %s",
		errorStyle.Render("failed"),
		nameStyle.Render(task),
		mutedStyle.Render(fmt.Sprintf("after %s (run %s)", roundElapsed(elapsed), runID)))
}

func roundElapsed(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(10 * time.Millisecond)
}
