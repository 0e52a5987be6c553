package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// ScanModel represents the scanning phase of the TUI.
type ScanModel struct {
	progress  types.ScanProgress
	spinner   spinner.Model
	startTime time.Time
	width     int
	height    int
	rootPath  string
	stopping  bool
	done      bool
	err       error
}

// ProgressMsg is sent when scan progress is updated.
type ProgressMsg types.ScanProgress

// ScanCompleteMsg is sent when the scan has returned. Result is set for a
// completed or stopped scan.
type ScanCompleteMsg struct {
	Result *types.ScanResult
	Err    error
}

// NewScanModel creates a new scanning model.
func NewScanModel(rootPath string) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return ScanModel{
		spinner:   s,
		startTime: time.Now(),
		width:     80,
		height:    24,
		rootPath:  rootPath,
	}
}

// Init initializes the scanning model.
func (m ScanModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// View renders the scanning model.
func (m ScanModel) View() string {
	var b strings.Builder

	// Calculate content width (accounting for border padding)
	contentWidth := max(m.width-4, 40)

	b.WriteString("\n")
	b.WriteString(m.renderHeader(contentWidth))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
	case m.done:
		b.WriteString(successTextStyle.Render("  Scan complete!"))
	case m.stopping:
		b.WriteString(warningTextStyle.Render("  Stopping..."))
	default:
		b.WriteString(fmt.Sprintf("  %s Scanning: %s",
			m.spinner.View(),
			truncatePath(m.rootPath, contentWidth-20)))
	}
	b.WriteString("\n")

	b.WriteString("\n")
	b.WriteString(m.renderProgressBar(contentWidth))
	b.WriteString("\n\n")

	b.WriteString(m.renderStats(contentWidth))
	b.WriteString("\n")

	// Pad to fill the screen inside the outer border.
	content := b.String()
	contentLines := strings.Count(content, "\n") + 1
	if availableLines := m.height - 2; availableLines > contentLines {
		content += strings.Repeat("\n", availableLines-contentLines)
	}

	return outerBoxStyle.Width(m.width - 2).Height(m.height - 2).Render(content)
}

// renderHeader renders the header section.
func (m ScanModel) renderHeader(width int) string {
	title := titleStyle.Render("  diskviz")
	hint := mutedTextStyle.Render("[s to stop · Ctrl+C to quit]")

	spacing := max(width-lipgloss.Width(title)-lipgloss.Width(hint), 1)
	return title + strings.Repeat(" ", spacing) + hint
}

// renderProgressBar renders an indeterminate progress bar, since the total
// number of entries is unknown until the scan ends.
func (m ScanModel) renderProgressBar(width int) string {
	barWidth := max(width-4, 10)

	elapsed := time.Since(m.startTime)
	position := int(elapsed.Seconds()*20) % (barWidth * 2)
	if position > barWidth {
		position = barWidth*2 - position
	}

	pulseWidth := max(barWidth/5, 3)

	var bar strings.Builder
	bar.WriteString("  ")
	for i := range barWidth {
		dist := i - position
		if dist < 0 {
			dist = -dist
		}
		if dist < pulseWidth {
			bar.WriteString(progressFillStyle.Render("█"))
		} else {
			bar.WriteString(progressEmptyStyle.Render("░"))
		}
	}
	return bar.String()
}

// renderStats renders the statistics boxes.
func (m ScanModel) renderStats(totalWidth int) string {
	boxWidth := max((totalWidth-12)/5, 10)

	itemsBox := m.renderStatBox("Items", types.FormatCount(m.progress.ScannedItems), boxWidth)
	dirsBox := m.renderStatBox("Dirs", types.FormatCount(m.progress.ScannedDirectories), boxWidth)
	errorsBox := m.renderStatBox("Errors", types.FormatCount(m.progress.Errors), boxWidth)
	rateBox := m.renderStatBox("Items/s", types.FormatCount(int64(m.progress.Rate())), boxWidth)
	timeBox := m.renderStatBox("Time", formatDuration(time.Since(m.startTime)), boxWidth)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		"  ", itemsBox, " ", dirsBox, " ", errorsBox, " ", rateBox, " ", timeBox)
}

// renderStatBox renders a single stat box.
func (m ScanModel) renderStatBox(label, value string, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		center(statsLabelStyle.Render(label), width-4),
		center(statsValueStyle.Render(value), width-4))

	return statsBoxStyle.Width(width).Render(content)
}

// formatDuration formats a duration as M:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}

// SetProgress updates the progress.
func (m *ScanModel) SetProgress(p types.ScanProgress) {
	m.progress = p
}

// SetStopping marks the scan as asked to stop.
func (m *ScanModel) SetStopping() {
	m.stopping = true
}

// SetDone marks the scan as complete.
func (m *ScanModel) SetDone(err error) {
	m.done = true
	m.err = err
}

// IsDone returns true if the scan is complete.
func (m ScanModel) IsDone() bool {
	return m.done
}

// Error returns any error from the scan.
func (m ScanModel) Error() error {
	return m.err
}
