// Package tui provides the interactive treemap viewer for diskviz.
// It uses Charmbracelet's Bubble Tea, Lip Gloss, and Bubbles.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jamesainslie/diskviz/pkg/diskviz/output"
	"github.com/jamesainslie/diskviz/pkg/diskviz/treemap"
)

var (
	primaryColor   = lipgloss.Color("#7D56F4")
	accentColor    = lipgloss.Color("#00D9FF")
	successColor   = lipgloss.Color("#28A745")
	warningColor   = lipgloss.Color("#FFC107")
	dangerColor    = lipgloss.Color("#DC3545")
	mutedColor     = lipgloss.Color("#666666")
	subtleColor    = lipgloss.Color("#444444")
	borderColor    = lipgloss.Color("#333333")
	highlightColor = lipgloss.Color("#1A1A2E")
	whiteColor     = lipgloss.Color("#FFFFFF")
)

var (
	outerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primaryColor).Padding(0, 1)
	dividerStyle  = lipgloss.NewStyle().Foreground(borderColor)

	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	mutedTextStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	errorTextStyle   = lipgloss.NewStyle().Foreground(dangerColor)
	successTextStyle = lipgloss.NewStyle().Foreground(successColor)
	warningTextStyle = lipgloss.NewStyle().Foreground(warningColor)
	sizeStyle        = lipgloss.NewStyle().Bold(true).Foreground(accentColor)

	// selectedCellStyle replaces the palette color of the selected cell.
	selectedCellStyle = lipgloss.NewStyle().Bold(true).Background(highlightColor).Foreground(whiteColor)

	// Indeterminate progress bar shown while scanning.
	progressFillStyle  = lipgloss.NewStyle().Foreground(successColor)
	progressEmptyStyle = lipgloss.NewStyle().Foreground(subtleColor)

	statsBoxStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(borderColor).Padding(0, 2)
	statsLabelStyle = lipgloss.NewStyle().Foreground(mutedColor)
	statsValueStyle = lipgloss.NewStyle().Bold(true).Foreground(whiteColor)

	keyStyle     = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	keyDescStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// cellStyle colors treemap cells from the shared palette and highlights
// the selected one.
func cellStyle(selected int) output.CellStyle {
	return func(i int, c treemap.Cell) lipgloss.Style {
		if i == selected {
			return selectedCellStyle
		}
		return output.PaletteStyle(i, c)
	}
}

// renderDivider creates a horizontal divider line.
func renderDivider(width int) string {
	return dividerStyle.Render(repeatChar('─', width))
}

func repeatChar(char rune, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(string(char), n)
}

// truncatePath truncates a path to fit within maxLen, preserving the end.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[:max(maxLen, 0)]
	}
	return "..." + path[len(path)-(maxLen-3):]
}

// center pads s to width display columns.
func center(s string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, s)
}

// keyHint renders a key and what it does.
func keyHint(key, desc string) string {
	return keyStyle.Render(key) + " " + keyDescStyle.Render(desc)
}
