// record.go implements the "semgcal record" command, a raw serial logger.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/semg-lab/semgcal/internal/cleanup"
	"github.com/semg-lab/semgcal/internal/config"
	"github.com/semg-lab/semgcal/internal/device"
	"github.com/semg-lab/semgcal/internal/log"
	"github.com/semg-lab/semgcal/internal/record"
)

var recordCmd = &cobra.Command{
	Use:   "record [port] [baud-rate]",
	Short: "Log raw device lines to a CSV file",
	Long: `Open the serial device, wait for it to reset, discard stale input, then
write every received line to a Timestamp,Message CSV file until interrupted.
Lines are also echoed to stdout. Recordings go to .semgcal/recordings/ unless
--out is given.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runRecord,
}

var recordOutFlag string

func init() {
	recordCmd.Flags().StringVar(&recordOutFlag, "out", "", "Recording path (default: timestamped file in the recordings directory)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir, args)
	if err != nil {
		return err
	}

	target := cfg.Target()
	if !target.Enabled() {
		return fmt.Errorf("no device configured: pass a port and baud rate or set %s and %s", config.EnvPort, config.EnvBaudRate)
	}

	logger, err := log.NewLogger(dir, debug, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Close()

	start := time.Now()
	path := recordOutFlag
	if path == "" {
		path = filepath.Join(cfg.RecordingsDir(dir), cleanup.RecordingName(start))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating recordings directory: %w", err)
	}

	conn, err := device.Open(device.SerialOpener{PollTimeout: cfg.PollTimeout()}, target, start, cfg.Settle())
	if err != nil {
		logger.Error(log.EventDeviceOpenFailed, zap.String("device", target.String()), zap.Error(err))
		return err
	}
	logger.Info(log.EventDeviceOpened, zap.String("device", target.String()), zap.Duration("settle", cfg.Settle()))

	f, err := os.Create(path)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("creating recording: %w", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	rec := record.New(conn, f, cmd.OutOrStdout(), logger.Logger)
	err = rec.Run(ctx, ticker.C)
	logger.Info(log.EventDeviceClosed, zap.String("device", target.String()), zap.Int("lines", rec.Lines()))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Recorded %d line(s) to %s\n", rec.Lines(), path)
	return nil
}
