package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"ebb/internal/driver"
	"ebb/internal/source"
	"ebb/internal/ui"
)

type checkOutcome struct {
	fs      *source.FileSet
	results []driver.AnalyzeResult
	err     error
}

// runCheckWithUI drives a directory analysis behind the progress view. The
// pipeline runs on its own goroutine and streams events into the model; the
// outcome is handed over once the channel closes.
func runCheckWithUI(ctx context.Context, title string, files []string, dir string, opts driver.AnalyzeOptions, jobs int) (*source.FileSet, []driver.AnalyzeResult, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = driver.ChannelSink{Ch: events}
		fileSet, results, err := driver.AnalyzeDirWithOptions(ctx, dir, optsCopy, jobs)
		outcomeCh <- checkOutcome{fs: fileSet, results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.fs, outcome.results, uiErr
	}
	return outcome.fs, outcome.results, outcome.err
}

// listSnapshots mirrors the driver's directory walk so the progress view
// shows the same paths the events will carry.
func listSnapshots(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, driver.SnapshotSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
