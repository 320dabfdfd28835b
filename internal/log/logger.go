// Package log provides structured event logging.
// Events are appended as JSON lines to .semgcal/log.jsonl through zap.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Event names, written as the "event" field of every line.
const (
	EventSessionStarted   = "session_started"
	EventStateChanged     = "state_changed"
	EventPhaseStarted     = "phase_started"
	EventPhaseCompleted   = "phase_completed"
	EventDeviceOpened     = "device_opened"
	EventDeviceOpenFailed = "device_open_failed"
	EventDeviceSettled    = "device_settled"
	EventDeviceReadFailed = "device_read_failed"
	EventDeviceClosed     = "device_closed"
	EventSampleRejected   = "sample_rejected"
	EventExportWritten    = "export_written"
	EventExportSkipped    = "export_skipped"
	EventExportFailed     = "export_failed"
	EventSessionQuit      = "session_quit"
	EventSessionComplete  = "session_complete"
	EventHistoryFailed    = "history_failed"
	EventLineRecorded     = "line_recorded"
)

const (
	stateDir = ".semgcal"
	logFile  = "log.jsonl"
)

// LogEvent is one parsed line of the event log.
type LogEvent struct {
	Time   time.Time
	Level  string
	Event  string
	Fields map[string]interface{}
}

// Logger is a zap logger bound to the event log file.
type Logger struct {
	*zap.Logger
	path string
	file *os.File
}

// Path returns the event log location inside project directory dir.
func Path(dir string) string {
	return filepath.Join(dir, stateDir, logFile)
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "event"
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.CallerKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey
	return cfg
}

// NewLogger creates a Logger appending to .semgcal/log.jsonl inside dir.
// Creates the .semgcal/ directory if needed; never truncates the file.
// When console is non-nil, events are also written there in console form.
func NewLogger(dir string, debug bool, console io.Writer) (*Logger, error) {
	path := Path(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create %s directory: %w", stateDir, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(f), level)
	if console != nil {
		consoleCfg := encoderConfig()
		consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		core = zapcore.NewTee(core, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), level))
	}

	return &Logger{
		Logger: zap.New(core),
		path:   path,
		file:   f,
	}, nil
}

// Path returns the file this logger appends to.
func (l *Logger) Path() string {
	return l.path
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	return l.file.Close()
}

// ReadAll reads and parses all events from the event log in dir.
// Returns an empty slice (not an error) if the file does not exist.
func ReadAll(dir string) ([]LogEvent, error) {
	f, err := os.Open(Path(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []LogEvent{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var events []LogEvent
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		event, err := parseEvent(line)
		if err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	return events, nil
}

func parseEvent(line []byte) (LogEvent, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(line, &raw); err != nil {
		return LogEvent{}, err
	}

	var event LogEvent
	if s, ok := raw["time"].(string); ok {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return LogEvent{}, fmt.Errorf("parse time: %w", err)
		}
		event.Time = t
	}
	event.Level, _ = raw["level"].(string)
	event.Event, _ = raw["event"].(string)

	delete(raw, "time")
	delete(raw, "level")
	delete(raw, "event")
	if len(raw) > 0 {
		event.Fields = raw
	}
	return event, nil
}
