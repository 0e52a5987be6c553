package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
	"github.com/mattn/go-isatty"
)

// progressInterval throttles redraws of the progress line.
const progressInterval = 100 * time.Millisecond

// progressLine funnels scanner events from every worker into one goroutine
// that redraws a single status line.
type progressLine struct {
	out      io.Writer
	events   chan types.ScanProgress
	done     chan struct{}
	interval time.Duration
	width    int
}

// newProgressLine starts drawing to out. Stop must be called once the scan
// has returned.
func newProgressLine(out io.Writer, interval time.Duration) *progressLine {
	p := &progressLine{
		out:      out,
		events:   make(chan types.ScanProgress, 256),
		done:     make(chan struct{}),
		interval: interval,
	}
	go p.run()
	return p
}

// showProgress reports whether a progress line should be drawn on stderr.
func showProgress(disabled bool) bool {
	if disabled || getQuiet() {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Handle receives scanner events. It never blocks; snapshots that arrive
// while the consumer is busy are dropped since a later one supersedes them.
func (p *progressLine) Handle(ev types.Event) {
	pe, ok := ev.(types.ProgressEvent)
	if !ok {
		return
	}
	select {
	case p.events <- pe.Progress:
	default:
	}
}

// Stop clears the line and waits for the consumer to exit.
func (p *progressLine) Stop() {
	close(p.events)
	<-p.done
}

func (p *progressLine) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var latest types.ScanProgress
	dirty := false
	for {
		select {
		case progress, ok := <-p.events:
			if !ok {
				p.clear()
				return
			}
			latest, dirty = progress, true
		case <-ticker.C:
			if dirty {
				p.draw(latest)
				dirty = false
			}
		}
	}
}

func (p *progressLine) draw(progress types.ScanProgress) {
	line := formatProgress(progress)
	pad := max(p.width-len(line), 0)
	p.width = len(line)
	fmt.Fprintf(p.out, "\r%s%s", line, strings.Repeat(" ", pad))
}

func (p *progressLine) clear() {
	if p.width > 0 {
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", p.width))
	}
}

// formatProgress renders items, directories, errors and rate.
func formatProgress(progress types.ScanProgress) string {
	return fmt.Sprintf("Scanning... %s items  %s dirs  %s errors  %s items/s",
		types.FormatCount(progress.ScannedItems),
		types.FormatCount(progress.ScannedDirectories),
		types.FormatCount(progress.Errors),
		types.FormatCount(int64(progress.Rate())))
}
