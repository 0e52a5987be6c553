package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/jamesainslie/diskviz/pkg/diskviz/logging"
	"github.com/jamesainslie/diskviz/pkg/diskviz/output"
	"github.com/jamesainslie/diskviz/pkg/diskviz/scanner"
	"github.com/jamesainslie/diskviz/pkg/diskviz/snapshot"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a directory and report where the space goes",
	Long: heredoc.Doc(`
		Scan a directory tree and report the largest entries, largest first.

		Sizes are reported by the allocated metric (blocks on disk) unless
		--metric logical is given. Press Ctrl+C to stop early; the partial
		result is still reported.
	`),
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	addScanFlags(scanCmd)
	flags := scanCmd.Flags()
	flags.StringP("format", "o", "", "output format: "+fmt.Sprint(output.Available()))
	flags.Int("top", 0, "children listed per directory (0=all)")
	flags.Int("depth", 0, "directory levels listed below the root")
	flags.Bool("si", false, "decimal size units (kB, MB)")
	flags.String("json", "", "write the snapshot document to `FILE`")
	flags.Bool("save", false, "save the result in the snapshot history")
	flags.Bool("no-progress", false, "do not draw the progress line")

	rootCmd.AddCommand(scanCmd)
}

// runScan is the scan command handler.
func runScan(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}

	metric, err := appConfig.Metric()
	if err != nil {
		return err
	}

	formatName := appConfig.Report.Format
	formatter, err := output.Get(formatName)
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v", formatName, output.Available())
	}

	noProgress, _ := cmd.Flags().GetBool("no-progress")
	result, err := performScan(cmd.Context(), root, appConfig.ScanOptions(), showProgress(noProgress))
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("json"); path != "" {
		if err := snapshot.WriteFile(path, snapshot.New(result)); err != nil {
			return err
		}
		printInfo("Snapshot written to %s", path)
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		entry, err := saveSnapshot(result)
		if err != nil {
			return err
		}
		printInfo("Snapshot saved as %s", entry.ID)
	}

	opts := output.DefaultOptions()
	opts.Metric = metric
	opts.Top = appConfig.Report.Top
	opts.Depth = appConfig.Report.Depth
	opts.SI = appConfig.Report.SI

	var buf bytes.Buffer
	if err := formatter.Format(&buf, output.NewResult(result, opts)); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// performScan scans root until it completes or the process is interrupted.
// An interrupted scan returns its partial result without an error.
func performScan(ctx context.Context, root string, opts types.ScanOptions, progress bool) (*types.ScanResult, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.Get("scanner")
	s, err := scanner.New(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid scan options: %w", err)
	}

	var onEvent types.EventFunc
	if progress {
		line := newProgressLine(os.Stderr, progressInterval)
		defer line.Stop()
		onEvent = line.Handle
	}

	log.Info("scan started", "path", root, "workers", s.Options().ConcurrentWorkers)
	result, err := s.Scan(ctx, root, onEvent)
	switch {
	case errors.Is(err, types.ErrCancelled):
		log.Warn("scan cancelled", "path", root)
		printInfo("Scan cancelled; results are partial")
		return result, nil
	case err != nil:
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	log.Info("scan finished",
		"path", root,
		"size", types.FormatSize(result.Root.Metrics.AllocatedBytes),
		"errors", len(result.Errors),
		"duration", result.Duration)
	return result, nil
}

// openStore opens the configured snapshot history.
func openStore() (*snapshot.Store, error) {
	return snapshot.OpenStore(appConfig.Snapshots.Path, appConfig.Snapshots.Retention)
}

// saveSnapshot stores result in the snapshot history.
func saveSnapshot(result *types.ScanResult) (snapshot.Entry, error) {
	store, err := openStore()
	if err != nil {
		return snapshot.Entry{}, err
	}
	defer store.Close()

	return store.Save(snapshot.New(result))
}
