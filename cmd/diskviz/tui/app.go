package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jamesainslie/diskviz/pkg/diskviz/logging"
	"github.com/jamesainslie/diskviz/pkg/diskviz/scanner"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// AppState represents the current state of the application.
type AppState int

const (
	StateScanning AppState = iota
	StateTreemap
	StateError
)

// Options configures the viewer.
type Options struct {
	// Root is the directory to scan.
	Root string

	// Scan selects what the scan records.
	Scan types.ScanOptions

	// Metric is the initial size metric.
	Metric types.SizeMetric

	// Result, when set, is shown directly and nothing is scanned.
	Result *types.ScanResult
}

// Model is the main Bubble Tea model for the diskviz viewer.
type Model struct {
	state     AppState
	scanModel ScanModel
	view      TreemapView
	options   Options

	// Scanning state
	ctx          context.Context
	cancel       context.CancelFunc
	progressChan chan types.ScanProgress
	scanErr      error

	// Window dimensions
	width  int
	height int

	log *logging.Logger
}

// NewModel creates a new TUI model with the given options.
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		state:        StateScanning,
		scanModel:    NewScanModel(opts.Root),
		options:      opts,
		ctx:          ctx,
		cancel:       cancel,
		progressChan: make(chan types.ScanProgress, 100),
		width:        80,
		height:       24,
		log:          logging.Get("tui"),
	}

	if opts.Result != nil {
		m.state = StateTreemap
		m.view = NewTreemapView(opts.Result, opts.Metric)
	}
	return m
}

// State returns the current state.
func (m Model) State() AppState {
	return m.state
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	if m.state != StateScanning {
		return nil
	}
	return tea.Batch(
		m.scanModel.Init(),
		m.startScan(),
		m.listenForProgress(),
		m.tickUI(),
	)
}

// tickUIMsg triggers a UI refresh.
type tickUIMsg struct{}

// tickUI returns a command that periodically triggers UI updates.
func (m Model) tickUI() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return tickUIMsg{}
	})
}

// startScan runs the scan in the background. Progress snapshots are sent
// to progressChan without blocking the workers; the channel is closed when
// the scan returns.
func (m Model) startScan() tea.Cmd {
	ctx, opts, progressChan := m.ctx, m.options, m.progressChan
	log := m.log
	return func() tea.Msg {
		defer close(progressChan)

		s, err := scanner.New(opts.Scan)
		if err != nil {
			return ScanCompleteMsg{Err: err}
		}

		log.Info("scan started", "path", opts.Root, "workers", s.Options().ConcurrentWorkers)
		result, err := s.Scan(ctx, opts.Root, func(ev types.Event) {
			if pe, ok := ev.(types.ProgressEvent); ok {
				select {
				case progressChan <- pe.Progress:
				default:
				}
			}
		})
		if errors.Is(err, types.ErrCancelled) {
			log.Info("scan stopped", "path", opts.Root)
			err = nil
		}
		if err != nil {
			log.Error("scan failed", "path", opts.Root, "error", err)
			return ScanCompleteMsg{Err: err}
		}

		log.Info("scan finished", "path", opts.Root, "errors", len(result.Errors), "duration", result.Duration)
		return ScanCompleteMsg{Result: result}
	}
}

// listenForProgress returns a command that waits for the next progress
// snapshot. It yields no message once the scan has returned.
func (m Model) listenForProgress() tea.Cmd {
	progressChan := m.progressChan
	return func() tea.Msg {
		p, ok := <-progressChan
		if !ok {
			return nil
		}
		return ProgressMsg(p)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scanModel.width = msg.Width
		m.scanModel.height = msg.Height
		if m.state == StateTreemap {
			m.view.SetDimensions(msg.Width, msg.Height)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.state == StateTreemap {
			m.view.HandleMouse(msg)
		}
		return m, nil

	case tickUIMsg:
		if m.state == StateScanning {
			return m, m.tickUI()
		}
		return m, nil

	case ProgressMsg:
		m.scanModel.SetProgress(types.ScanProgress(msg))
		return m, m.listenForProgress()

	case ScanCompleteMsg:
		m.scanModel.SetDone(msg.Err)
		if msg.Err != nil {
			m.state = StateError
			m.scanErr = msg.Err
			return m, nil
		}
		m.state = StateTreemap
		m.view = NewTreemapView(msg.Result, m.options.Metric)
		m.view.SetDimensions(m.width, m.height)
		return m, nil

	case spinner.TickMsg:
		if m.state == StateScanning {
			var cmd tea.Cmd
			m.scanModel.spinner, cmd = m.scanModel.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}

	switch m.state {
	case StateScanning:
		switch key {
		case "q", "esc":
			m.cancel()
			return m, tea.Quit
		case "s":
			// Stop early and show what was found so far.
			m.scanModel.SetStopping()
			m.cancel()
		}

	case StateTreemap:
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			if !m.view.Back() {
				return m, tea.Quit
			}
		default:
			m.view.HandleKey(key)
		}

	case StateError:
		if key == "q" || key == "enter" || key == "esc" {
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case StateScanning, StateError:
		return m.scanModel.View()
	case StateTreemap:
		return m.view.View()
	}
	return ""
}

// Err returns the scan error, if the scan failed.
func (m Model) Err() error {
	return m.scanErr
}

// Run starts the TUI application.
func Run(opts Options) error {
	model := NewModel(opts)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		fm.cancel()
		return fm.Err()
	}
	return nil
}
