package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesainslie/diskviz/pkg/diskviz/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagKeys maps flag names to the configuration keys they override. Flags
// are bound when their command runs, so commands sharing a flag name do not
// steal each other's binding.
var flagKeys = map[string]string{
	"hidden":          "scan.include_hidden",
	"packages":        "scan.include_packages",
	"follow-symlinks": "scan.follow_symlinks",
	"workers":         "scan.workers",
	"exclude":         "scan.exclude",
	"metric":          "report.metric",
	"format":          "report.format",
	"top":             "report.top",
	"depth":           "report.depth",
	"si":              "report.si",
}

// addScanFlags registers the flags that select what a scan records.
func addScanFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("hidden", true, "include dot-prefixed entries")
	flags.Bool("packages", true, "descend into .app and .framework bundles")
	flags.Bool("system-metadata", false, "include OS metadata directories such as .Spotlight-V100")
	flags.Bool("follow-symlinks", false, "scan the targets of symbolic links")
	flags.IntP("workers", "w", 0, "concurrent directory workers (0=auto)")
	flags.StringSliceP("exclude", "e", nil, "exclude glob patterns (can be specified multiple times)")
	flags.StringP("metric", "m", config.DefaultMetric, "size metric: allocated or logical")
}

// bindFlags binds the flags cmd defines to their configuration keys.
func bindFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}

	// --system-metadata is the inverse of scan.exclude_system_metadata.
	if flags.Changed("system-metadata") {
		include, err := flags.GetBool("system-metadata")
		if err != nil {
			return err
		}
		viper.Set("scan.exclude_system_metadata", !include)
	}
	return nil
}

// resolveRoot returns the absolute scan root for the command arguments,
// defaulting to the working directory.
func resolveRoot(args []string) (string, error) {
	scanPath := "."
	if len(args) > 0 {
		scanPath = args[0]
	}

	absPath, err := absolutePath(scanPath)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", absPath)
		}
		return "", fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", absPath)
	}

	return absPath, nil
}

// absolutePath expands ~ and makes path absolute without requiring it to
// exist, for naming directories that were scanned earlier.
func absolutePath(path string) (string, error) {
	expandedPath, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand path: %w", err)
	}

	absPath, err := filepath.Abs(expandedPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	return absPath, nil
}
