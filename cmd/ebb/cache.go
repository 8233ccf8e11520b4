package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ebb/internal/driver"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent result cache",
}

var cacheDropCmd = &cobra.Command{
	Use:   "drop [target]",
	Short: "Remove every stored analysis result",
	Long:  "Remove the result cache serving the target path (default: the current directory). The next run rebuilds it from scratch.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheDrop,
}

func init() {
	cacheCmd.AddCommand(cacheDropCmd)
}

func runCacheDrop(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	cache, err := driver.CacheFor(target)
	if err != nil {
		return fmt.Errorf("failed to open result cache: %w", err)
	}
	dir := cache.Dir()
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to drop result cache: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Dropped result cache under %s\n", dir)
	return nil
}
