package main

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/jamesainslie/diskviz/pkg/diskviz/config"
	"github.com/jamesainslie/diskviz/pkg/diskviz/output"
	"github.com/jamesainslie/diskviz/pkg/diskviz/snapshot"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
	"github.com/spf13/cobra"
)

var treemapCmd = &cobra.Command{
	Use:   "treemap [path]",
	Short: "Draw a treemap of a directory",
	Long: heredoc.Doc(`
		Draw the children of a directory as a squarified treemap. Each box
		has an area proportional to the entry's size.

		The tree comes from a fresh scan of path, or from a snapshot
		document written by "diskviz scan --json" when --from is given. With
		--from, path selects a directory inside the snapshot.
	`),
	Args: cobra.MaximumNArgs(1),
	RunE: runTreemap,
}

func init() {
	addScanFlags(treemapCmd)
	flags := treemapCmd.Flags()
	flags.String("from", "", "read the tree from a snapshot document `FILE`")
	flags.Int("width", 100, "treemap width in columns")
	flags.Int("height", 30, "treemap height in rows")
	flags.Bool("no-progress", false, "do not draw the progress line")

	rootCmd.AddCommand(treemapCmd)
}

// runTreemap is the treemap command handler.
func runTreemap(cmd *cobra.Command, args []string) error {
	metric, err := appConfig.Metric()
	if err != nil {
		return err
	}

	result, err := loadTree(cmd, args)
	if err != nil {
		return err
	}

	opts := output.DefaultOptions()
	opts.Metric = metric
	opts.Width, _ = cmd.Flags().GetInt("width")
	opts.Height, _ = cmd.Flags().GetInt("height")

	formatter, err := output.Get("treemap")
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, output.NewResult(result, opts)); err != nil {
		return fmt.Errorf("failed to draw treemap: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// loadTree reads the snapshot named by --from, or scans the path argument.
// With --from, a path argument selects a directory inside the snapshot.
func loadTree(cmd *cobra.Command, args []string) (*types.ScanResult, error) {
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		return readSnapshotTree(from, args)
	}

	root, err := resolveRoot(args)
	if err != nil {
		return nil, err
	}
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	return performScan(cmd.Context(), root, appConfig.ScanOptions(), showProgress(noProgress))
}

// readSnapshotTree reads the snapshot document at file, narrowed to the
// directory args names when given.
func readSnapshotTree(file string, args []string) (*types.ScanResult, error) {
	doc, err := snapshot.ReadFile(file)
	if err != nil {
		return nil, err
	}
	result := doc.Result()
	if len(args) == 0 {
		return result, nil
	}

	path, err := config.ExpandPath(args[0])
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(result.Root.Path, path)
	}
	node := result.Root.Find(filepath.Clean(path))
	if node == nil || !node.IsDir() {
		return nil, fmt.Errorf("%s is not a directory in %s", path, file)
	}
	result.Root = *node
	return result, nil
}
