package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
)

// PlainFormatter writes an unstyled table for scripts and pipes.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "SIZE\tSHARE\tKIND\tPATH\n"); err != nil {
		return err
	}
	for _, e := range r.Entries {
		indent := strings.Repeat("  ", e.Depth-1)
		if _, err := fmt.Fprintf(tw, "%s\t%.1f%%\t%s\t%s%s\n", e.SizeHuman, e.Share*100, e.Kind, indent, e.Path); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(tw, "%s\t100.0%%\ttotal\t%s\n", r.TotalHuman(), r.Source); err != nil {
		return err
	}

	return tw.Flush()
}

// PathsFormatter writes one listed path per line.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, e := range r.Entries {
		w.WriteString(e.Path)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

// Ensure the formatters implement Formatter.
var (
	_ Formatter = (*PlainFormatter)(nil)
	_ Formatter = (*PathsFormatter)(nil)
)
