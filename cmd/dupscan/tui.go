package main

import (
	"fmt"

	"github.com/michaelscutari/dupscan/internal/tui"
	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse duplicate groups interactively",
	Long:  `Open an interactive TUI to browse exact and potential duplicate groups.`,
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	model := tui.NewModel(store)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
