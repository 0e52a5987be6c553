package main

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/jamesainslie/diskviz/pkg/diskviz/config"
	"github.com/jamesainslie/diskviz/pkg/diskviz/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// appConfig is the merged configuration of the running command: file,
	// environment and flags.
	appConfig *config.Config

	rootCmd = &cobra.Command{
		Use:   "diskviz",
		Short: "See where your disk space goes",
		Long: heredoc.Doc(`
			diskviz scans a directory tree with a pool of workers, totals the
			logical and allocated size of every directory, and shows the result
			as a report or a squarified treemap.

			Examples:
			  diskviz scan ~/Downloads            # Report the largest entries
			  diskviz scan -m logical --depth 2   # Two levels, by logical size
			  diskviz scan --json snap.json .     # Write a snapshot document
			  diskviz treemap --width 120 /var    # Draw a treemap
			  diskviz view ~                      # Browse interactively
			  diskviz verify snap.json --disk     # Audit a snapshot
		`),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/diskviz/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output on stderr")

	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig points viper at the config file and environment.
func initConfig() {
	config.Configure(viper.GetViper(), cfgFile)
}

// setup binds the running command's flags, loads the configuration and
// starts logging. The interactive viewer owns the terminal, so it never
// logs to the console.
func setup(cmd *cobra.Command, _ []string) error {
	if err := bindFlags(cmd); err != nil {
		return err
	}

	cfg, err := config.Read(viper.GetViper())
	if err != nil {
		return err
	}
	appConfig = cfg

	logCfg, err := cfg.LoggingConfig()
	if err != nil {
		return err
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}
	logCfg.Quiet = cmd.Name() == "view"
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()

	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		return err
	}
	return nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message to stderr unless quiet mode is enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
