package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ebb/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "ebb",
	Short: "Liveness analysis for recorded body snapshots",
	Long:  `ebb runs backward liveness analysis over body snapshots (*.bir.json) and reports unused variables, parameters, captures and dead assignments`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		traceCleanup = cleanup
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if traceCleanup != nil {
			traceCleanup()
		}
	},
}

// traceCleanup flushes and closes the tracer after a successful run.
// Commands that exit through an error flush explicitly because cobra skips
// PersistentPostRun on errors.
var traceCleanup func()

// main registers subcommands and persistent flags, then executes the root
// command. A command error exits with status code 1.
func main() {
	// Версия для автоматического флага --version
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show phase timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 0, "maximum number of diagnostics to show (0 = from ebb.toml)")
	rootCmd.PersistentFlags().String("trace", "", "write a trace of the run to the given file (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "tracing verbosity (off|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace output format (auto|text|ndjson|chrome)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to the given file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to the given file")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a runtime execution trace to the given file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
