package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lockpanel/internal/lockdiff"
	"lockpanel/internal/lockfile"
	"lockpanel/internal/render"
)

var diffHTML bool

// diffCmd classifies two local lockfile snapshots without touching a browser
// or the host API. Useful for inspecting a diff offline and for verifying
// selector-free parts of the pipeline.
var diffCmd = &cobra.Command{
	Use:   "diff <old.lock> <new.lock>",
	Short: "Diff two lockfile snapshots offline",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffHTML, "html", false, "Emit the panel HTML instead of text")
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldRaw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read old lockfile: %w", err)
	}
	newRaw, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read new lockfile: %w", err)
	}

	result := lockdiff.Classify(
		lockfile.Parse(oldRaw, logger),
		lockfile.Parse(newRaw, logger),
	)
	doc := render.Build(result)

	if diffHTML {
		html, err := doc.HTML()
		if err != nil {
			return err
		}
		fmt.Println(html)
		return nil
	}
	fmt.Print(doc.Text())
	return nil
}
