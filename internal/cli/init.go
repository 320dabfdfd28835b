// init.go implements the "semgcal init" command.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/semg-lab/semgcal/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize semgcal in the current directory",
	Long: `Create .semgcal/config.yaml with the default calibration protocol and
add semgcal's runtime files to .gitignore. Device settings can be given here
with --port and --baud-rate, or later through SEMGCAL_PORT and
SEMGCAL_BAUD_RATE in .env.`,
	RunE: runInit,
}

var (
	initPortFlag string
	initBaudFlag int
)

func init() {
	initCmd.Flags().StringVar(&initPortFlag, "port", "", "Serial device path to store in the config")
	initCmd.Flags().IntVar(&initBaudFlag, "baud-rate", 0, "Serial link rate to store in the config")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	return initProject(dir, cmd.InOrStdin(), cmd.OutOrStdout())
}

func initProject(dir string, in io.Reader, out io.Writer) error {
	// Check for existing .semgcal/ directory.
	if info, statErr := os.Stat(config.Dir(dir)); statErr == nil && info.IsDir() {
		fmt.Fprintln(out, "Warning: .semgcal/ directory already exists.")
		fmt.Fprint(out, "Reinitialize? [y/N]: ")
		reader := bufio.NewReader(in)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	cfg.Device.Port = initPortFlag
	cfg.Device.BaudRate = initBaudFlag
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := config.WriteConfig(dir, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := ensureGitignore(dir); err != nil {
		fmt.Fprintf(out, "Warning: failed to set up .gitignore: %v\n", err)
	}

	fmt.Fprintln(out, "Initialized .semgcal/config.yaml")
	if !cfg.Target().Enabled() {
		fmt.Fprintln(out, "No device configured: sessions will run in display-only mode.")
		fmt.Fprintln(out, "Set device.port and device.baud_rate, or run: semgcal <port> <baud-rate>")
	}
	return nil
}

// ensureGitignore creates or appends to .gitignore with entries that
// should never be committed. It reads the existing file and only adds
// entries that aren't already present.
func ensureGitignore(dir string) error {
	gitignorePath := filepath.Join(dir, ".gitignore")

	requiredEntries := []string{
		// Device settings are machine-specific
		".env",
		// semgcal runtime (config.yaml IS committed)
		".semgcal/log.jsonl",
		".semgcal/history.db",
		".semgcal/recordings/",
		// Exports
		"*.csv",
	}

	existing := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}

	var missing []string
	for _, entry := range requiredEntries {
		if !strings.Contains(existing, entry) {
			missing = append(missing, entry)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	var toAppend strings.Builder
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		toAppend.WriteString("\n")
	}
	if existing != "" {
		toAppend.WriteString("\n# Added by semgcal init\n")
	}
	for _, entry := range missing {
		toAppend.WriteString(entry + "\n")
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening .gitignore: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(toAppend.String()); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}
