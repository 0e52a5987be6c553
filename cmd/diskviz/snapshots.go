package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jamesainslie/diskviz/pkg/diskviz/output"
	"github.com/jamesainslie/diskviz/pkg/diskviz/snapshot"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
	"github.com/spf13/cobra"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage saved snapshots",
	Long: `Manage the snapshot history written by "diskviz scan --save".

Snapshots are kept per scanned path in $XDG_DATA_HOME/diskviz/snapshots.
Only the newest snapshots.retention entries of each path are kept.`,
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List saved snapshots, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshotsList,
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show <id|path>",
	Short: "Report a saved snapshot, or the newest one of a path",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsShow,
}

var snapshotsExportCmd = &cobra.Command{
	Use:   "export <id|path> <file>",
	Short: "Write a saved snapshot as a snapshot document",
	Args:  cobra.ExactArgs(2),
	RunE:  runSnapshotsExport,
}

var snapshotsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsDelete,
}

var snapshotsPruneCmd = &cobra.Command{
	Use:   "prune [path]",
	Short: "Keep only the newest snapshots of a path",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshotsPrune,
}

func init() {
	snapshotsShowCmd.Flags().StringP("format", "o", "", "output format: "+fmt.Sprint(output.Available()))
	snapshotsShowCmd.Flags().StringP("metric", "m", "", "size metric: allocated or logical")
	snapshotsShowCmd.Flags().Int("top", 0, "children listed per directory (0=all)")
	snapshotsShowCmd.Flags().Int("depth", 0, "directory levels listed below the root")
	snapshotsShowCmd.Flags().Bool("si", false, "decimal size units (kB, MB)")
	snapshotsPruneCmd.Flags().Int("keep", 0, "snapshots kept per path (default: snapshots.retention)")

	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsShowCmd)
	snapshotsCmd.AddCommand(snapshotsExportCmd)
	snapshotsCmd.AddCommand(snapshotsDeleteCmd)
	snapshotsCmd.AddCommand(snapshotsPruneCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

// runSnapshotsList lists stored snapshots.
func runSnapshotsList(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		var err error
		if path, err = absolutePath(args[0]); err != nil {
			return err
		}
	}

	metric, err := appConfig.Metric()
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(path)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		printInfo("No snapshots found.")
		printInfo("Run 'diskviz scan --save [path]' to save one.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-19s  %10s  %8s  %6s  %s\n", "ID", "CREATED", "SIZE", "FILES", "DIRS", "PATH")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for _, e := range entries {
		fmt.Fprintf(out, "%-36s  %-19s  %10s  %8d  %6d  %s\n",
			e.ID,
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			types.FormatSize(metric.Select(e.Metrics)),
			e.Files,
			e.Directories,
			e.Path)
	}
	return nil
}

// runSnapshotsShow reports a stored snapshot like a fresh scan.
func runSnapshotsShow(cmd *cobra.Command, args []string) error {
	doc, err := getSnapshot(args[0])
	if err != nil {
		return err
	}

	metric, err := appConfig.Metric()
	if err != nil {
		return err
	}
	formatter, err := output.Get(appConfig.Report.Format)
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v", appConfig.Report.Format, output.Available())
	}

	opts := output.DefaultOptions()
	opts.Metric = metric
	opts.Top = appConfig.Report.Top
	opts.Depth = appConfig.Report.Depth
	opts.SI = appConfig.Report.SI

	printInfo("Snapshot of %s taken %s", doc.Path, doc.CreatedAt.Local().Format("2006-01-02 15:04:05 MST"))

	var buf bytes.Buffer
	if err := formatter.Format(&buf, output.NewResult(doc.Result(), opts)); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// runSnapshotsExport writes a stored snapshot to a file.
func runSnapshotsExport(_ *cobra.Command, args []string) error {
	doc, err := getSnapshot(args[0])
	if err != nil {
		return err
	}
	if err := snapshot.WriteFile(args[1], doc); err != nil {
		return err
	}
	printInfo("Snapshot written to %s", args[1])
	return nil
}

// runSnapshotsDelete removes a stored snapshot.
func runSnapshotsDelete(_ *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid snapshot id %q: %w", args[0], err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(id); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	printInfo("Deleted snapshot %s", id)
	return nil
}

// runSnapshotsPrune removes all but the newest snapshots.
func runSnapshotsPrune(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		var err error
		if path, err = absolutePath(args[0]); err != nil {
			return err
		}
	}

	keep, _ := cmd.Flags().GetInt("keep")
	if keep <= 0 {
		keep = appConfig.Snapshots.Retention
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	paths := []string{path}
	if path == "" {
		if paths, err = storedPaths(store); err != nil {
			return err
		}
	}

	removed := 0
	for _, p := range paths {
		n, err := store.Prune(p, keep)
		if err != nil {
			return fmt.Errorf("failed to prune snapshots of %s: %w", p, err)
		}
		removed += n
	}
	printInfo("Removed %d snapshots", removed)
	return nil
}

// storedPaths returns every path with at least one snapshot.
func storedPaths(store *snapshot.Store) ([]string, error) {
	entries, err := store.List("")
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	seen := make(map[string]bool)
	var paths []string
	for _, e := range entries {
		if !seen[e.Path] {
			seen[e.Path] = true
			paths = append(paths, e.Path)
		}
	}
	return paths, nil
}

// getSnapshot loads a stored snapshot by id, or the newest snapshot of a
// scanned path.
func getSnapshot(arg string) (*snapshot.Document, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var doc *snapshot.Document
	if id, parseErr := uuid.Parse(arg); parseErr == nil {
		doc, err = store.Get(id)
	} else {
		var path string
		if path, err = absolutePath(arg); err != nil {
			return nil, err
		}
		doc, err = store.Latest(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return doc, nil
}
