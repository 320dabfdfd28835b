// report.go implements the "semgcal report" command showing a stored session.
package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/semg-lab/semgcal/internal/history"
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Show a past session",
	Long: `Display the stored summary of a calibration session, including the
samples accepted and rejected in each phase. Defaults to the most recent
session; a unique prefix of the run ID is enough.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	store, err := openHistory(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := findRun(store, args)
	if err != nil {
		return err
	}
	phases, err := store.GetPhases(run.ID)
	if err != nil {
		return fmt.Errorf("loading phases: %w", err)
	}

	printRun(cmd.OutOrStdout(), run, phases)
	return nil
}

func findRun(store *history.Store, args []string) (*history.Run, error) {
	if len(args) == 0 {
		runs, err := store.ListRuns(1)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no sessions recorded yet; start one with: semgcal")
		}
		return &runs[0], nil
	}

	prefix := args[0]
	run, err := store.GetRun(prefix)
	if err != nil {
		return nil, fmt.Errorf("loading run: %w", err)
	}
	if run != nil {
		return run, nil
	}

	// Fall back to a prefix match over recent runs.
	runs, err := store.ListRuns(1000)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	var match *history.Run
	for i := range runs {
		if strings.HasPrefix(runs[i].ID, prefix) {
			if match != nil {
				return nil, fmt.Errorf("run ID prefix %q is ambiguous", prefix)
			}
			match = &runs[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("run %q not found", prefix)
	}
	return match, nil
}

func printRun(w io.Writer, run *history.Run, phases []history.PhaseStat) {
	fmt.Fprintf(w, "Run:         %s\n", run.ID)
	fmt.Fprintf(w, "Started:     %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if !run.EndedAt.IsZero() {
		fmt.Fprintf(w, "Duration:    %s\n", run.EndedAt.Sub(run.StartedAt).Round(100*time.Millisecond))
	}
	fmt.Fprintf(w, "Outcome:     %s\n", run.Outcome)
	if run.Acquisition {
		fmt.Fprintf(w, "Device:      %s@%d (opened: %t)\n", run.Port, run.BaudRate, run.DeviceOpened)
		fmt.Fprintf(w, "Samples:     %d (%d rejected)\n", run.Samples, run.Rejected)
	} else {
		fmt.Fprintln(w, "Device:      display-only")
	}
	if run.ExportPath != "" {
		fmt.Fprintf(w, "Export:      %s\n", run.ExportPath)
	}

	if len(phases) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Phases:")
		for _, p := range phases {
			fmt.Fprintf(w, "  %d. %-9s accepted=%d rejected=%d\n", p.Index, p.Kind, p.Accepted, p.Rejected)
		}
	}
}
