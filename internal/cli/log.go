// log.go implements the "semgcal log" command printing the event log.
package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/semg-lab/semgcal/internal/log"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the structured event log",
	RunE:  runLog,
}

var (
	tailFlag  int
	eventFlag string
)

func init() {
	logCmd.Flags().IntVar(&tailFlag, "tail", 50, "Show only the last N events (0 = all)")
	logCmd.Flags().StringVar(&eventFlag, "event", "", "Show only events with this name")
}

func runLog(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	events, err := log.ReadAll(dir)
	if err != nil {
		return err
	}
	printEvents(cmd.OutOrStdout(), filterEvents(events, eventFlag, tailFlag))
	return nil
}

func filterEvents(events []log.LogEvent, name string, tail int) []log.LogEvent {
	var out []log.LogEvent
	for _, e := range events {
		if name == "" || e.Event == name {
			out = append(out, e)
		}
	}
	if tail > 0 && len(out) > tail {
		out = out[len(out)-tail:]
	}
	return out
}

func printEvents(w io.Writer, events []log.LogEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events logged.")
		return
	}
	for _, e := range events {
		fmt.Fprintf(w, "%s  %-5s  %-20s%s\n",
			e.Time.Local().Format("2006-01-02 15:04:05.000"), strings.ToUpper(e.Level), e.Event, formatFields(e.Fields))
	}
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s=%v", k, fields[k])
	}
	return b.String()
}
