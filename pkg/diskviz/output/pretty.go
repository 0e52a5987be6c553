package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// barWidth is the width of the share bar in the pretty table.
const barWidth = 20

// maxWarnings caps the warnings the pretty formatter lists.
const maxWarnings = 10

// PrettyFormatter renders a styled report for terminals.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")

	if len(r.Warnings) > 0 {
		w.WriteString(f.formatWarnings(r.Warnings))
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Source:"), ValueStyle.Render(r.Source)),
		fmt.Sprintf("%s %s  %s %s",
			LabelStyle.Render("Total:"), SizeStyle.Render(r.TotalHuman()),
			LabelStyle.Render("Metric:"), ValueStyle.Render(r.Metric)),
	}

	if r.Cancelled {
		lines = append(lines, WarningStyle.Bold(true).Render("Scan cancelled; totals are partial"))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatTable(r *Result) string {
	if len(r.Entries) == 0 {
		return MutedStyle.Render("  Nothing to show") + "\n"
	}

	width := 8
	for _, e := range r.Entries {
		width = max(width, len(e.SizeHuman))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "  %s  %s  %s\n",
		TableHeaderStyle.Render(padLeft("SIZE", width)),
		TableHeaderStyle.Render(padRight("SHARE", barWidth+5)),
		TableHeaderStyle.Render("PATH"))

	for _, e := range r.Entries {
		name := strings.Repeat("  ", e.Depth-1) + e.Name
		style := PathStyle
		if e.Kind == types.KindDirectory.String() {
			name += "/"
			style = DirStyle
		}
		fmt.Fprintf(&sb, "  %s  %s %s  %s\n",
			SizeStyle.Render(padLeft(e.SizeHuman, width)),
			BarStyle.Render(bar(e.Share, barWidth)),
			MutedStyle.Render(fmt.Sprintf("%3.0f%%", e.Share*100)),
			style.Render(name))
	}

	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	s := r.Stats
	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Files:"), ValueStyle.Render(types.FormatCount(s.Files))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Dirs:"), ValueStyle.Render(types.FormatCount(s.Directories))),
	}
	if s.Symlinks > 0 {
		parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("Links:"), ValueStyle.Render(types.FormatCount(s.Symlinks))))
	}
	if s.Other > 0 {
		parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("Other:"), ValueStyle.Render(types.FormatCount(s.Other))))
	}
	if s.Errors > 0 {
		parts = append(parts, WarningStyle.Render(fmt.Sprintf("%d errors", s.Errors)))
	}
	parts = append(parts, MutedStyle.Render("in "+formatDuration(s.Duration.Seconds())))

	return FooterBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder
	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")

	for i, warning := range warnings {
		if i == maxWarnings {
			sb.WriteString(MutedStyle.Render(fmt.Sprintf("  ... and %d more", len(warnings)-maxWarnings)))
			sb.WriteString("\n")
			break
		}
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}
	return sb.String()
}

// bar draws share as a proportional bar of the given width.
func bar(share float64, width int) string {
	filled := int(share*float64(width) + 0.5)
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats seconds in a human-friendly way.
func formatDuration(sec float64) string {
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
