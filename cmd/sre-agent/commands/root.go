package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srtux/sre-agent-sub000/internal/logging"
)

const Version = "0.1.0"

var (
	logLevelFlags []string // Supports multiple --log-level flags
)

var rootCmd = &cobra.Command{
	Use:   "sre-agent",
	Short: "SRE Agent - conversational incident investigation",
	Long: `SRE Agent is an AI-powered incident investigation service. It streams
agent reasoning, tool calls and dashboard widgets to clients over NDJSON
while tracking the investigation through triage, analysis, root cause and
remediation phases.`,
	Version: Version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Supports per-package log levels: --log-level debug --log-level api=warn
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		nil,
		"Log level for packages. Use a bare level for the default, or 'package.name=level' for per-package.\n"+
			"Examples: --log-level debug (all), --log-level agent.model=debug --log-level api=warn")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(scenarioCmd)
}

// HandleError prints error and exits
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}

// setupLog initializes the logging system. CLI flags take priority over the
// config-file levels passed in.
func setupLog(flags []string, configDefault string, configPackages map[string]string) error {
	defaultLevel, packageLevels, err := parseLogLevelFlags(flags)
	if err != nil {
		return err
	}

	if defaultLevel == "" {
		defaultLevel = configDefault
	}
	if defaultLevel == "" {
		defaultLevel = "info"
	}

	merged := make(map[string]string, len(configPackages)+len(packageLevels))
	for pkg, level := range configPackages {
		merged[pkg] = level
	}
	for pkg, level := range packageLevels {
		merged[pkg] = level
	}

	return logging.Initialize(defaultLevel, merged)
}

// parseLogLevelFlags parses CLI flags of the form "debug" (default level) or
// "package.name=debug" (per-package override).
func parseLogLevelFlags(flags []string) (string, map[string]string, error) {
	defaultLevel := ""
	packageLevels := make(map[string]string)

	for _, flag := range flags {
		if !strings.Contains(flag, "=") {
			defaultLevel = flag
			continue
		}
		parts := strings.SplitN(flag, "=", 2)
		packageLevels[parts[0]] = parts[1]
	}

	if defaultLevel != "" {
		if err := validateLogLevel(defaultLevel); err != nil {
			return "", nil, err
		}
	}
	for pkg, level := range packageLevels {
		if err := validateLogLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %v", pkg, err)
		}
	}

	return defaultLevel, packageLevels, nil
}

// validateLogLevel checks if a level string is valid
func validateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", level)
	}
	return nil
}
