// runs.go implements the "semgcal runs" command listing past sessions.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/semg-lab/semgcal/internal/config"
	"github.com/semg-lab/semgcal/internal/history"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past calibration sessions",
	RunE:  runRuns,
}

var limitFlag int

func init() {
	runsCmd.Flags().IntVar(&limitFlag, "limit", 20, "Maximum number of sessions to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	store, err := openHistory(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(limitFlag)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

// openHistory opens an existing run history without creating one.
func openHistory(dir string) (*history.Store, error) {
	path := config.HistoryPath(dir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no sessions recorded yet; start one with: semgcal")
	}
	return history.NewStore(path)
}

func printRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No sessions recorded yet.")
		return
	}
	for _, r := range runs {
		device := "display-only"
		if r.Acquisition {
			device = fmt.Sprintf("%s@%d", r.Port, r.BaudRate)
		}
		fmt.Fprintf(w, "  %-8s  %s  %-10s  %-24s  %5d samples\n",
			shortID(r.ID), r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Outcome, device, r.Samples)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
