package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/eneky/projet-ui/internal/tailwind"
)

var paletteStyles = struct {
	Title  lipgloss.Style
	Name   lipgloss.Style
	Value  lipgloss.Style
	Box    lipgloss.Style
	Swatch func(hex string) lipgloss.Style
}{
	Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
	Name:  lipgloss.NewStyle().Width(22),
	Value: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("205")).
		Padding(0, 1),
	Swatch: func(hex string) lipgloss.Style {
		return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Width(4)
	},
}

func paletteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "palette",
		Short: "Show the color palette written into tailwind.config.js",
		Run: func(cmd *cobra.Command, args []string) {
			writePalette(cmd.OutOrStdout(), tailwind.DefaultPalette())
		},
	}
}

func writePalette(w io.Writer, p tailwind.Palette) {
	light := paletteStyles.Box.Render(swatches("Light", p.Light))
	dark := paletteStyles.Box.Render(swatches("Dark", p.Dark))
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, light, " ", dark))
	fmt.Fprintf(w, "  %s %s\n", paletteStyles.Value.Render("font:"), strings.Join(p.Fonts, ", "))
}

func swatches(title string, tokens []tailwind.Token) string {
	lines := []string{paletteStyles.Title.Render(title)}
	for _, t := range tokens {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Left,
			paletteStyles.Swatch(t.Value).Render(""),
			" ",
			paletteStyles.Name.Render(t.Name),
			paletteStyles.Value.Render(t.Value),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
