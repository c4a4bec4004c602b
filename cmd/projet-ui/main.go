package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/eneky/projet-ui/internal/config"
	"github.com/eneky/projet-ui/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┬─┐┌─┐ ┬┌─┐┌┬┐  ┬ ┬┬
  ├─┘├┬┘│ │ │├┤  │───│ ││
  ┴  ┴└─└─┘└┘└─┘ ┴   └─┘┴
`

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "projet-ui",
		Short: "Live UI layer for the projet web application",
		Long: `projet-ui serves the projet pages and keeps them live over a websocket.

It turns flash messages into toasts, shows loading overlays on form
submission, validates required fields as they lose focus and keeps the
dark/light theme in sync between the browser and the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to projet.json (default: search from the working directory)")

	load := func() (*config.Config, error) {
		if configPath != "" {
			return config.LoadFile(configPath)
		}
		return config.LoadFromWorkingDir()
	}

	rootCmd.AddCommand(
		serveCmd(load),
		initCmd(),
		tailwindCmd(load),
		paletteCmd(),
		versionCmd(),
	)
	return rootCmd
}

// setupLogger installs the default logger at the configured level.
func setupLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}

var statusStyles = struct {
	Banner  lipgloss.Style
	Success lipgloss.Style
	Warn    lipgloss.Style
}{
	Banner:  lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
	Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
}

func printBanner() {
	fmt.Println(statusStyles.Banner.Render(banner))
}

func success(format string, args ...any) {
	fmt.Printf("%s %s\n", statusStyles.Success.Render("✓"), fmt.Sprintf(format, args...))
}

func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

func warn(format string, args ...any) {
	fmt.Printf("%s %s\n", statusStyles.Warn.Render("⚠"), fmt.Sprintf(format, args...))
}
