package main

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/jamesainslie/diskviz/cmd/diskviz/tui"
	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:   "view [path]",
	Short: "Browse a directory as an interactive treemap",
	Long: heredoc.Doc(`
		Scan a directory and browse it as a treemap. Select a box with the
		arrow keys or the mouse, open it with enter, and go back up with
		backspace. Press s while scanning to stop early and browse what was
		found so far.

		With --from, a snapshot document is shown instead of scanning, and
		a path argument opens a directory inside it.
	`),
	Args: cobra.MaximumNArgs(1),
	RunE: runView,
}

func init() {
	addScanFlags(viewCmd)
	viewCmd.Flags().String("from", "", "browse a snapshot document `FILE`")
	rootCmd.AddCommand(viewCmd)
}

// runView is the view command handler.
func runView(cmd *cobra.Command, args []string) error {
	metric, err := appConfig.Metric()
	if err != nil {
		return err
	}

	opts := tui.Options{Metric: metric}

	if from, _ := cmd.Flags().GetString("from"); from != "" {
		result, err := readSnapshotTree(from, args)
		if err != nil {
			return err
		}
		opts.Result = result
		return tui.Run(opts)
	}

	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	opts.Root = root
	opts.Scan = appConfig.ScanOptions()
	return tui.Run(opts)
}
