package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ebb/internal/diag"
	"ebb/internal/diagfmt"
	"ebb/internal/driver"
	"ebb/internal/project"
	"ebb/internal/source"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file.bir.json|directory>",
	Short: "Analyze liveness in a snapshot or a directory of snapshots",
	Long:  `Run the liveness pass over recorded body snapshots and report unused variables, parameters, captures and dead assignments within *.bir.json files`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

// init registers CLI flags for the check command used by runCheck.
// It configures output format, warning handling, concurrency, note and
// suggestion inclusion, the live-table dump, and caching.
func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif|short)")
	checkCmd.Flags().Bool("no-warnings", false, "drop warnings from the output")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	checkCmd.Flags().Bool("preview", false, "render fix edits as before/after previews")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	checkCmd.Flags().Bool("emit-live", false, "dump per-body live-node tables after analysis")
	checkCmd.Flags().Bool("no-cache", false, "disable the persistent result cache")
	checkCmd.Flags().String("ui", "auto", "progress view for directory runs (auto|on|off)")
}

// runCheck executes the "check" command: it parses command flags, analyzes
// the provided path (single snapshot or directory), formats the results in
// the chosen output format, and exits with a non-zero status when any
// diagnostics contain errors.
func runCheck(cmd *cobra.Command, args []string) error {
	// Ensure trace is dumped on panic
	defer dumpTraceOnPanic(cmd.Context())

	targetPath := args[0]

	// Получаем флаги
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	noWarnings, err := cmd.Flags().GetBool("no-warnings")
	if err != nil {
		return fmt.Errorf("failed to get no-warnings flag: %w", err)
	}

	warningsAsErrors, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}

	if noWarnings && warningsAsErrors {
		return fmt.Errorf("no-warnings and warnings-as-errors flags cannot be used together")
	}

	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}

	suggest, err := cmd.Flags().GetBool("suggest")
	if err != nil {
		return fmt.Errorf("failed to get suggest flag: %w", err)
	}

	preview, err := cmd.Flags().GetBool("preview")
	if err != nil {
		return fmt.Errorf("failed to get preview flag: %w", err)
	}

	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}

	emitLive, err := cmd.Flags().GetBool("emit-live")
	if err != nil {
		return fmt.Errorf("failed to get emit-live flag: %w", err)
	}

	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}

	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	cfg, err := loadProjectConfig(targetPath)
	if err != nil {
		return err
	}

	// Создаём опции анализа
	opts := driver.AnalyzeOptions{
		MaxDiagnostics:   maxDiagnostics,
		IgnoreWarnings:   noWarnings,
		WarningsAsErrors: warningsAsErrors,
		EnableTimings:    showTimings,
		NoCache:          noCache,
		Config:           cfg,
	}
	if emitLive {
		opts.EmitLive = os.Stdout
	}

	st, err := os.Stat(targetPath)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}

	var (
		exitCode  int
		resultErr error
	)

	runFile := func() (int, error) {
		result, err := driver.AnalyzeWithOptions(cmd.Context(), targetPath, opts)
		if err != nil {
			return 0, fmt.Errorf("analysis failed: %w", err)
		}

		exit := 0
		if result.Bag.HasErrors() {
			exit = 1
		}

		pathMode := diagfmt.PathModeAuto
		if fullPath {
			pathMode = diagfmt.PathModeAbsolute
		}
		showFixes := suggest || preview

		useColor, err := resolveColor(cmd, cfg)
		if err != nil {
			return 0, err
		}

		switch format {
		case "pretty":
			opts := diagfmt.PrettyOpts{
				Color:       useColor,
				Context:     2,
				PathMode:    pathMode,
				ShowNotes:   withNotes,
				ShowFixes:   showFixes,
				ShowPreview: preview,
			}
			diagfmt.Pretty(os.Stdout, result.Bag, result.FileSet, opts)
		case "short":
			output := diag.FormatShortDiagnostics(result.Bag.Items(), result.FileSet, withNotes)
			if output != "" {
				fmt.Fprintln(os.Stdout, output)
			}
		case "json":
			jsonOpts := diagfmt.JSONOpts{
				IncludePositions: true,
				PathMode:         pathMode,
				IncludeNotes:     withNotes,
				IncludeFixes:     showFixes,
				IncludePreviews:  preview,
			}
			if err := diagfmt.JSON(os.Stdout, result.Bag, result.FileSet, jsonOpts); err != nil {
				return 0, fmt.Errorf("failed to format diagnostics: %w", err)
			}
		case "sarif":
			meta := diagfmt.SarifRunMeta{
				ToolName:    "ebb",
				ToolVersion: "0.1.0",
			}
			if err := diagfmt.Sarif(os.Stdout, result.Bag, result.FileSet, meta); err != nil {
				return 0, fmt.Errorf("failed to format diagnostics: %w", err)
			}
		default:
			return 0, fmt.Errorf("unknown format: %s", format)
		}

		if showTimings && result.Timing != nil {
			printPhaseTimings(os.Stderr, result.Timing)
		}

		return exit, nil
	}

	runDir := func() (int, error) {
		jobs, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return 0, fmt.Errorf("failed to get jobs flag: %w", err)
		}

		var (
			fs      *source.FileSet
			results []driver.AnalyzeResult
		)
		if shouldUseTUI(uiModeValue) {
			files, listErr := listSnapshots(targetPath)
			if listErr != nil {
				return 0, fmt.Errorf("failed to list snapshots: %w", listErr)
			}
			fs, results, err = runCheckWithUI(cmd.Context(), "ebb check", files, targetPath, opts, jobs)
		} else {
			fs, results, err = driver.AnalyzeDirWithOptions(cmd.Context(), targetPath, opts, jobs)
		}
		if err != nil {
			return 0, fmt.Errorf("analysis failed: %w", err)
		}

		exit := 0
		for _, r := range results {
			if r.Bag.HasErrors() {
				exit = 1
				break
			}
		}

		useColor, err := resolveColor(cmd, cfg)
		if err != nil {
			return 0, err
		}
		pathMode := diagfmt.PathModeAuto
		if fullPath {
			pathMode = diagfmt.PathModeAbsolute
		}
		showFixes := suggest || preview
		prettyOpts := diagfmt.PrettyOpts{
			Color:       useColor,
			Context:     2,
			PathMode:    pathMode,
			ShowNotes:   withNotes,
			ShowFixes:   showFixes,
			ShowPreview: preview,
		}
		jsonOpts := diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     withNotes,
			IncludeFixes:     showFixes,
			IncludePreviews:  preview,
		}
		meta := diagfmt.SarifRunMeta{
			ToolName:    "ebb",
			ToolVersion: "0.1.0",
		}

		switch format {
		case "short":
			allDiagnostics := make([]diag.Diagnostic, 0, len(results))
			for _, r := range results {
				allDiagnostics = append(allDiagnostics, r.Bag.Items()...)
			}
			output := diag.FormatShortDiagnostics(allDiagnostics, fs, withNotes)
			if output != "" {
				fmt.Fprintln(os.Stdout, output)
			}
		case "pretty":
			for idx, r := range results {
				if idx > 0 {
					fmt.Fprintln(os.Stdout)
				}
				fmt.Fprintf(os.Stdout, "== %s ==\n", displayPathFor(fs, r.FileID, r.Path, fullPath))
				diagfmt.Pretty(os.Stdout, r.Bag, fs, prettyOpts)
			}
		case "json":
			output := make(map[string]diagfmt.DiagnosticsOutput, len(results))
			for _, r := range results {
				output[displayPathFor(fs, r.FileID, r.Path, fullPath)] = diagfmt.BuildDiagnosticsOutput(r.Bag, fs, jsonOpts)
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(output); err != nil {
				return 0, fmt.Errorf("failed to encode diagnostics output: %w", err)
			}
		case "sarif":
			for _, r := range results {
				if err := diagfmt.Sarif(os.Stdout, r.Bag, fs, meta); err != nil {
					return 0, fmt.Errorf("failed to format diagnostics: %w", err)
				}
			}
		default:
			return 0, fmt.Errorf("unknown format: %s", format)
		}

		return exit, nil
	}

	if !st.IsDir() {
		exitCode, resultErr = runFile()
	} else {
		exitCode, resultErr = runDir()
	}

	// Always cleanup profiler
	cleanup()

	if resultErr != nil {
		// Cleanup tracer explicitly because PersistentPostRun is not called on error
		flushTracer(cmd.Context())
		return resultErr
	}
	if exitCode != 0 {
		flushTracer(cmd.Context())
		// Suppress cobra usage output on diagnostic errors
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("") // Silent error - diagnostics already printed
	}
	return nil
}

// displayPathFor renders the label a result is listed under. Diagnostics
// anchor at the embedded source, so its registered path is preferred; a
// result whose file is gone from the set falls back to the snapshot path.
func displayPathFor(fs *source.FileSet, fileID source.FileID, snapshotPath string, fullPath bool) string {
	if file := fs.Get(fileID); file != nil {
		mode := "auto"
		if fullPath {
			mode = "absolute"
		}
		return file.FormatPath(mode, fs.BaseDir())
	}
	displayPath := snapshotPath
	if fullPath {
		if abs, err := source.AbsolutePath(displayPath); err == nil {
			displayPath = abs
		}
	}
	return displayPath
}

// loadProjectConfig resolves the manifest governing target. A broken
// manifest aborts the run: analysis must not proceed under settings the
// user did not write.
func loadProjectConfig(target string) (*project.Config, error) {
	dir := target
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		dir = filepath.Dir(target)
	}
	cfg, _, err := project.LoadConfig(dir)
	if err != nil {
		code := diag.PrjBadManifest
		switch {
		case errors.Is(err, project.ErrUnknownKey):
			code = diag.PrjUnknownKey
		case errors.Is(err, project.ErrBadValue):
			code = diag.PrjBadValue
		}
		return nil, fmt.Errorf("%s: %w", code.ID(), err)
	}
	return cfg, nil
}

// resolveColor merges the --color flag with the manifest's output.color.
// A definite flag value wins; auto falls through to the manifest and then
// to terminal detection.
func resolveColor(cmd *cobra.Command, cfg *project.Config) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch colorFlag {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	if cfg != nil {
		switch cfg.Output.Color {
		case "always":
			return true, nil
		case "never":
			return false, nil
		}
	}
	return isTerminal(os.Stdout), nil
}
