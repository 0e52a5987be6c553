package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/jamesainslie/diskviz/pkg/diskviz/audit"
	"github.com/jamesainslie/diskviz/pkg/diskviz/snapshot"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
	"github.com/spf13/cobra"
)

// errVerifyFailed is returned when a snapshot fails any check.
var errVerifyFailed = errors.New("snapshot failed verification")

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Check a snapshot document",
	Long: heredoc.Doc(`
		Check that a snapshot document is internally consistent: every
		directory's size is the sum of its children and the recorded counts
		match the children.

		With --disk, every directory total is also recomputed from the
		filesystem with an independent walk using the scan flags given, and
		compared with the snapshot.
	`),
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	addScanFlags(verifyCmd)
	verifyCmd.Flags().Bool("disk", false, "compare directory totals with the filesystem")
	rootCmd.AddCommand(verifyCmd)
}

// runVerify is the verify command handler.
func runVerify(cmd *cobra.Command, args []string) error {
	doc, err := snapshot.ReadFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report := &audit.Report{Root: doc.Root.Path}

	if disk, _ := cmd.Flags().GetBool("disk"); disk {
		report, err = audit.Compare(cmd.Context(), doc.Root, appConfig.ScanOptions())
		if err != nil {
			return fmt.Errorf("failed to compare with disk: %w", err)
		}
	} else {
		report.Violations = audit.Verify(doc.Root)
	}

	printReport(out, report)
	if !report.OK() {
		return errVerifyFailed
	}
	return nil
}

// printReport lists every finding of report.
func printReport(out io.Writer, report *audit.Report) {
	for _, v := range report.Violations {
		fmt.Fprintf(out, "invalid   %s\n", v)
	}
	for _, m := range report.Mismatches {
		fmt.Fprintf(out, "changed   %s: snapshot %s, disk %s\n",
			m.Path, types.FormatSize(m.Snapshot.LogicalBytes), types.FormatSize(m.Disk.LogicalBytes))
	}
	for _, p := range report.Missing {
		fmt.Fprintf(out, "missing   %s\n", p)
	}
	for _, p := range report.Extra {
		fmt.Fprintf(out, "new       %s\n", p)
	}

	if report.OK() {
		if report.Checked > 0 {
			fmt.Fprintf(out, "OK: %s matches the disk (%d directories)\n", report.Root, report.Checked)
		} else {
			fmt.Fprintf(out, "OK: %s is consistent\n", report.Root)
		}
	}
}
