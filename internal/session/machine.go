// Package session sequences a calibration session: title and instruction
// screens, a countdown, alternating rest/flex phases, and a thank-you
// screen whose confirmation exports the labeled samples. The Machine owns
// the device connection for its whole open lifetime.
package session

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/semg-lab/semgcal/internal/device"
	"github.com/semg-lab/semgcal/internal/export"
	"github.com/semg-lab/semgcal/internal/log"
	"github.com/semg-lab/semgcal/internal/phase"
	"github.com/semg-lab/semgcal/internal/sample"
)

// State is the screen the session is on.
type State int

const (
	StateTitle State = iota
	StateInstructions
	StateCountdown
	StateRest
	StateFlex
	StateThankYou
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateTitle:
		return "title"
	case StateInstructions:
		return "instructions"
	case StateCountdown:
		return "countdown"
	case StateRest:
		return "rest"
	case StateFlex:
		return "flex"
	case StateThankYou:
		return "thank_you"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is how a session ended.
type Outcome int

const (
	OutcomePending   Outcome = iota // still running
	OutcomeCompleted                // confirmed on the thank-you screen
	OutcomeQuit                     // quit before completion
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeQuit:
		return "quit"
	default:
		return "pending"
	}
}

// DefaultSettle is how long a freshly opened device is given to reset.
const DefaultSettle = 2 * time.Second

// Config is everything a Machine needs, fixed at construction.
type Config struct {
	Target     device.Target
	Opener     device.Opener
	Settle     time.Duration
	Protocol   phase.Protocol
	ExportPath string
	Logger     *zap.Logger
}

// Result summarizes a terminated session.
type Result struct {
	Outcome      Outcome
	Target       device.Target
	Acquisition  bool // a device target was supplied at startup
	DeviceOpened bool
	StartedAt    time.Time
	EndedAt      time.Time
	Samples      int
	ByLabel      map[sample.Label]int
	Rejected     int
	Phases       []PhaseStat
	Export       export.Result
	ExportErr    error
}

// PhaseStat counts the lines handled by one completed phase.
type PhaseStat struct {
	Index    int
	Kind     phase.Kind
	Accepted int
	Rejected int
}

// Machine is the session state machine. It is driven from a single
// goroutine: events (Begin, ShowInstructions, Back, Confirm, Quit) and
// frame ticks are never delivered concurrently.
type Machine struct {
	cfg     Config
	logger  *zap.Logger
	enabled bool

	state  State
	phases []phase.Phase
	index  int
	driver *phase.Driver

	conn *device.Conn
	buf  *sample.Buffer

	result Result
}

// New creates a Machine on the title screen. Acquisition is enabled only
// when cfg.Target names both a device and a link rate; that decision is
// never revisited.
func New(cfg Config) *Machine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Opener == nil {
		cfg.Opener = device.SerialOpener{}
	}
	if cfg.ExportPath == "" {
		cfg.ExportPath = export.DefaultPath
	}

	m := &Machine{
		cfg:     cfg,
		logger:  cfg.Logger,
		enabled: cfg.Target.Enabled(),
		state:   StateTitle,
		phases:  cfg.Protocol.Phases(),
		index:   -1,
		buf:     sample.NewBuffer(1024),
	}
	m.result.Target = cfg.Target
	m.result.Acquisition = m.enabled
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Target returns the configured device target.
func (m *Machine) Target() device.Target {
	return m.cfg.Target
}

// AcquisitionEnabled reports whether a device target was supplied at startup.
func (m *Machine) AcquisitionEnabled() bool {
	return m.enabled
}

// DeviceOpen reports whether the device connection is currently open.
func (m *Machine) DeviceOpen() bool {
	return m.conn != nil && !m.conn.Closed()
}

// Samples returns how many samples have been captured so far.
func (m *Machine) Samples() int {
	return m.buf.Len()
}

// Phase returns the running phase and its latest progress.
// ok is false outside Countdown, Rest and Flex.
func (m *Machine) Phase() (p phase.Phase, pr phase.Progress, ok bool) {
	if m.driver == nil {
		return phase.Phase{}, phase.Progress{}, false
	}
	return m.driver.Phase(), m.driver.Progress(), true
}

// Result returns the session summary. It is final once the state is
// StateTerminated.
func (m *Machine) Result() Result {
	return m.result
}

// ShowInstructions moves from the title screen to the instructions screen.
func (m *Machine) ShowInstructions() bool {
	if m.state != StateTitle {
		return false
	}
	m.setState(StateInstructions)
	return true
}

// Back returns from the instructions screen to the title screen.
func (m *Machine) Back() bool {
	if m.state != StateInstructions {
		return false
	}
	m.setState(StateTitle)
	return true
}

// Begin starts the protocol from the title screen: the device is opened
// (when enabled) and the countdown starts at now.
func (m *Machine) Begin(now time.Time) bool {
	if m.state != StateTitle {
		return false
	}
	m.result.StartedAt = now
	m.logger.Info(log.EventSessionStarted,
		zap.String("device", m.cfg.Target.String()),
		zap.Bool("acquisition", m.enabled),
		zap.Duration("protocol", m.cfg.Protocol.Total()))

	m.openDevice(now)
	m.index = -1
	m.nextPhase()
	m.Tick(now)
	return true
}

// Confirm handles the confirmation input: on the title screen it begins
// the protocol; on the thank-you screen it exports and terminates.
func (m *Machine) Confirm(now time.Time) bool {
	switch m.state {
	case StateTitle:
		return m.Begin(now)
	case StateThankYou:
		m.finish(now)
		return true
	}
	return false
}

// Tick advances the running phase to now. Phases whose duration has
// elapsed hand over to the next one; after the last, the device is closed
// and the thank-you screen is shown.
func (m *Machine) Tick(now time.Time) State {
	if m.driver == nil {
		return m.state
	}

	if m.conn != nil && !m.conn.Settled() && !m.conn.Closed() {
		if err := m.conn.Poll(now); err != nil {
			m.logger.Warn(log.EventDeviceReadFailed, zap.Error(err))
		}
		if m.conn.Settled() {
			m.logger.Info(log.EventDeviceSettled, zap.String("device", m.conn.Target().String()))
		}
	}

	for m.driver != nil {
		pr := m.driver.Tick(now)
		if !pr.Done {
			break
		}
		m.completePhase(pr)
		m.nextPhase()
	}
	return m.state
}

// Quit ends the session from any state without exporting. An open device
// is closed first.
func (m *Machine) Quit(now time.Time) {
	if m.state == StateTerminated {
		return
	}
	m.logger.Info(log.EventSessionQuit,
		zap.Stringer("state", m.state),
		zap.Int("samples_discarded", m.buf.Len()))
	m.closeDevice()
	m.terminate(now, OutcomeQuit)
}

func (m *Machine) openDevice(now time.Time) {
	if !m.enabled {
		return
	}
	conn, err := device.Open(m.cfg.Opener, m.cfg.Target, now, m.cfg.Settle)
	if err != nil {
		// Display-only from here on; the subject-facing flow continues.
		m.enabled = false
		m.logger.Error(log.EventDeviceOpenFailed, zap.String("device", m.cfg.Target.String()), zap.Error(err))
		return
	}
	m.conn = conn
	m.result.DeviceOpened = true
	m.logger.Info(log.EventDeviceOpened,
		zap.String("device", m.cfg.Target.String()),
		zap.Duration("settle", m.cfg.Settle))
}

func (m *Machine) closeDevice() {
	if m.conn == nil || m.conn.Closed() {
		return
	}
	if err := m.conn.Close(); err != nil {
		m.logger.Warn(log.EventDeviceClosed, zap.Error(err))
		return
	}
	m.logger.Info(log.EventDeviceClosed, zap.String("device", m.conn.Target().String()))
}

func (m *Machine) nextPhase() {
	m.index++
	if m.index >= len(m.phases) {
		m.driver = nil
		m.closeDevice()
		m.setState(StateThankYou)
		return
	}

	p := m.phases[m.index]
	var src device.LineSource
	if m.conn != nil {
		src = m.conn
	}
	m.driver = phase.NewDriver(p, src, m.buf, m.logger)

	switch p.Kind {
	case phase.KindCountdown:
		m.setState(StateCountdown)
	case phase.KindRest:
		m.setState(StateRest)
	case phase.KindFlex:
		m.setState(StateFlex)
	}
	m.logger.Debug(log.EventPhaseStarted,
		zap.Int("index", m.index),
		zap.Stringer("kind", p.Kind),
		zap.Duration("duration", p.Duration))
}

func (m *Machine) completePhase(pr phase.Progress) {
	p := m.driver.Phase()
	m.result.Rejected += pr.Rejected
	m.result.Phases = append(m.result.Phases, PhaseStat{
		Index:    m.index,
		Kind:     p.Kind,
		Accepted: pr.Accepted,
		Rejected: pr.Rejected,
	})
	m.logger.Info(log.EventPhaseCompleted,
		zap.Int("index", m.index),
		zap.Stringer("kind", p.Kind),
		zap.Int("accepted", pr.Accepted),
		zap.Int("rejected", pr.Rejected))
}

func (m *Machine) finish(now time.Time) {
	m.closeDevice()

	m.result.ByLabel = m.buf.CountByLabel()
	samples := m.buf.DrainAll()
	m.result.Samples = len(samples)

	res, err := export.Write(samples, m.cfg.ExportPath)
	m.result.Export = res
	m.result.ExportErr = err
	switch {
	case err != nil:
		m.logger.Error(log.EventExportFailed, zap.String("path", m.cfg.ExportPath), zap.Error(err))
	case !res.Written:
		m.logger.Info(log.EventExportSkipped, zap.String("reason", "nothing to export"))
	default:
		m.logger.Info(log.EventExportWritten, zap.String("path", res.Path), zap.Int("rows", res.Rows))
	}

	m.logger.Info(log.EventSessionComplete, zap.Int("samples", m.result.Samples))
	m.terminate(now, OutcomeCompleted)
}

func (m *Machine) terminate(now time.Time, outcome Outcome) {
	m.driver = nil
	m.result.Outcome = outcome
	m.result.EndedAt = now
	if outcome == OutcomeQuit {
		m.result.Samples = m.buf.Len()
		m.result.ByLabel = m.buf.CountByLabel()
	}
	m.setState(StateTerminated)
}

func (m *Machine) setState(s State) {
	if s == m.state {
		return
	}
	m.logger.Debug(log.EventStateChanged, zap.Stringer("from", m.state), zap.Stringer("to", s))
	m.state = s
}
