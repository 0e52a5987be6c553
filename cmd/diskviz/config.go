package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jamesainslie/diskviz/pkg/diskviz/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage diskviz configuration settings.

Configuration is loaded from $XDG_CONFIG_HOME/diskviz/config.yaml
(usually ~/.config/diskviz/config.yaml), or the file given with --config.

Environment variables override config file settings using the DISKVIZ_
prefix, with dots replaced by underscores:
  DISKVIZ_SCAN_WORKERS=8
  DISKVIZ_REPORT_METRIC=logical
  DISKVIZ_LOGGING_LEVEL=debug`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration merged from all sources.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a commented default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configFilePath returns the file named by --config or the default path.
func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.ConfigPath()
}

// runConfigShow displays the effective configuration.
func runConfigShow(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if used := viper.ConfigFileUsed(); used != "" {
		if _, err := os.Stat(used); err == nil {
			fmt.Fprintf(out, "# Config file: %s\n", used)
		}
	}

	data, err := yaml.Marshal(effectiveSettings())
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		return err
	}

	var overrides []string
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, config.EnvPrefix+"_") {
			overrides = append(overrides, env)
		}
	}
	if len(overrides) > 0 {
		sort.Strings(overrides)
		fmt.Fprintln(out, "# Environment overrides:")
		for _, env := range overrides {
			fmt.Fprintf(out, "#   %s\n", env)
		}
	}
	return nil
}

// effectiveSettings returns every configuration key with its merged value.
// Paths are resolved after reading, so the resolved values replace the
// empty defaults.
func effectiveSettings() map[string]interface{} {
	settings := viper.AllSettings()
	delete(settings, "quiet")
	delete(settings, "verbose")

	if snapshots, ok := settings["snapshots"].(map[string]interface{}); ok {
		snapshots["path"] = appConfig.Snapshots.Path
	}
	if logging, ok := settings["logging"].(map[string]interface{}); ok && appConfig.Logging.Path != "" {
		logging["path"] = appConfig.Logging.Path
	}
	return settings
}

// runConfigInit creates a default config file.
func runConfigInit(_ *cobra.Command, _ []string) error {
	path := configFilePath()

	written, err := config.WriteDefault(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if !written {
		printInfo("Config file already exists: %s", path)
		return nil
	}

	printInfo("Created default config file: %s", path)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, _ []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), configFilePath())
	return nil
}
