// calibrate.go runs a calibration session, interactively or headless.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/semg-lab/semgcal/internal/config"
	"github.com/semg-lab/semgcal/internal/device"
	"github.com/semg-lab/semgcal/internal/history"
	"github.com/semg-lab/semgcal/internal/log"
	"github.com/semg-lab/semgcal/internal/report"
	"github.com/semg-lab/semgcal/internal/session"
	"github.com/semg-lab/semgcal/internal/tui"
	"github.com/semg-lab/semgcal/internal/tui/app"
)

// sessionOptions carries everything runSession needs from the command line.
type sessionOptions struct {
	Dir      string
	Config   *config.Config
	Headless bool
	Debug    bool
	Opener   device.Opener // nil uses the serial port
	Out      io.Writer
	Err      io.Writer
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = runSession(ctx, sessionOptions{
		Dir:      dir,
		Config:   cfg,
		Headless: headlessFlag || !tui.IsTTY(),
		Debug:    debug,
		Out:      cmd.OutOrStdout(),
		Err:      cmd.ErrOrStderr(),
	})
	return err
}

// runSession runs one calibration session end to end and prints its
// report. It returns ErrTerminatedEarly when the session was quit.
func runSession(ctx context.Context, opts sessionOptions) (session.Result, error) {
	cfg := opts.Config

	var console io.Writer
	if opts.Headless {
		console = opts.Err
	}
	logger, err := log.NewLogger(opts.Dir, opts.Debug, console)
	if err != nil {
		return session.Result{}, fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Close()

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.NewStore(config.HistoryPath(opts.Dir))
		if err != nil {
			logger.Warn(log.EventHistoryFailed, zap.Error(err))
			store = nil
		} else {
			defer store.Close()
		}
	}

	opener := opts.Opener
	if opener == nil {
		opener = device.SerialOpener{PollTimeout: cfg.PollTimeout()}
	}
	exportPath := cfg.Export.Path
	if !filepath.IsAbs(exportPath) {
		exportPath = filepath.Join(opts.Dir, exportPath)
	}

	protocol := cfg.PhaseProtocol()
	machine := session.New(session.Config{
		Target:     cfg.Target(),
		Opener:     opener,
		Settle:     cfg.Settle(),
		Protocol:   protocol,
		ExportPath: exportPath,
		Logger:     logger.Logger,
	})

	var run *history.Run
	if store != nil {
		run, err = store.CreateRun(cfg.Device.Port, cfg.Device.BaudRate, machine.AcquisitionEnabled(), time.Now())
		if err != nil {
			logger.Warn(log.EventHistoryFailed, zap.Error(err))
		}
	}

	var runErr error
	if opts.Headless {
		runErr = tui.NewFallbackRunner(machine, protocol.Phases(), cfg.FrameInterval(), opts.Out).Run(ctx)
	} else {
		runErr = tui.Run(app.New(machine, cfg.FrameInterval()))
	}

	// The display can exit without a quit event (crash, killed terminal).
	if machine.State() != session.StateTerminated {
		machine.Quit(time.Now())
	}
	res := machine.Result()

	if run != nil {
		if err := store.FinishRun(historyRun(run, res), historyPhases(res)); err != nil {
			logger.Warn(log.EventHistoryFailed, zap.Error(err))
		}
	}

	fmt.Fprint(opts.Out, report.FormatReport(report.FromResult(res)))

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return res, runErr
	}
	if res.Outcome != session.OutcomeCompleted {
		return res, ErrTerminatedEarly
	}
	return res, nil
}

func historyRun(run *history.Run, res session.Result) *history.Run {
	run.EndedAt = res.EndedAt
	run.DeviceOpened = res.DeviceOpened
	run.Outcome = res.Outcome.String()
	run.Samples = res.Samples
	run.Rejected = res.Rejected
	if res.Export.Written {
		run.ExportPath = res.Export.Path
	}
	return run
}

func historyPhases(res session.Result) []history.PhaseStat {
	stats := make([]history.PhaseStat, 0, len(res.Phases))
	for _, p := range res.Phases {
		stats = append(stats, history.PhaseStat{
			Index:    p.Index,
			Kind:     p.Kind.String(),
			Accepted: p.Accepted,
			Rejected: p.Rejected,
		})
	}
	return stats
}
