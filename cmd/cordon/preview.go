package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/cordon/internal/platform/tui"
	"github.com/vovakirdan/cordon/internal/storage"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Interactive staging and monitoring console",
	Long: `Open the deployment console: stage a roadblock, watch the computed
layout update as you change variant, level, lanes and flags, then
deploy it against a simulated pursuit and watch the block live.

Controls:
  ←/→        - Cycle variant
  ↑/↓        - Change level
  [ ]        - Fewer/more lanes
  1-5        - Toggle flags
  r          - Reroll seed
  Enter      - Deploy
  Tab        - History browser
  Q/Ctrl+C   - Quit

Examples:
  cordon preview
  cordon preview --seed 42
  cordon preview --config ./my-cordon.yaml`,
	Run: runPreview,
}

func runPreview(cmd *cobra.Command, args []string) {
	cfg := loadEngineConfig()

	// The alt screen owns the terminal; engine logs go nowhere.
	logger := log.New(io.Discard)

	width, height := 80, 24 // Defaults
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}

	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open history database: %v\n", err)
		// Continue without persistence
		store = nil
	}

	model := tui.NewSessionModel(cfg, logger, store, width, height)
	program := tea.NewProgram(model, tea.WithAltScreen())

	_, runErr := program.Run()

	if store != nil {
		store.Close()
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running console: %v\n", runErr)
		os.Exit(1)
	}
}
