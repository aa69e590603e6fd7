package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"aquascope/internal/facts"
	"aquascope/internal/session"
	"aquascope/internal/source"
	"aquascope/internal/ui"
)

var exploreCmd = &cobra.Command{
	Use:   "explore <source> <analysis.json>",
	Short: "Browse loans and moves interactively in the terminal",
	Args:  cobra.ExactArgs(2),
	RunE:  runExplore,
}

func runExplore(cmd *cobra.Command, args []string) error {
	if !isTerminal(os.Stdout) {
		return fmt.Errorf("explore needs a terminal; use render --format ansi instead")
	}
	ctx := cmd.Context()
	cfg := configFrom(ctx)

	text, err := source.Load(args[0])
	if err != nil {
		return err
	}
	out, err := facts.ReadFile(args[1])
	if err != nil {
		return err
	}
	sess, err := session.Open(ctx, text, out, sessionOptions(cfg))
	if err != nil {
		return err
	}

	model := ui.NewExplorer(ctx, filepath.Base(args[0]), sess, renderTheme(cfg))
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	return err
}
