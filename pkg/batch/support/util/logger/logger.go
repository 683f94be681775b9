// Package logger provides the level-gated logger used across the ridership pipeline.
// It wraps the standard `log` package; every message is prefixed with its level
// and stamped with the wall clock of the configured timezone.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is used for detailed diagnostic output (row counts per stage, resolved keys).
	LevelDebug LogLevel = iota
	// LevelInfo is used for step progress messages.
	LevelInfo
	// LevelWarn is used for recoverable anomalies such as dropped labels or skipped dates.
	LevelWarn
	// LevelError is used for step failures.
	LevelError
	// LevelFatal is used for errors that terminate the process.
	LevelFatal
)

// logLevel is the currently set global log level.
var logLevel = LevelInfo

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// Unknown values fall back to INFO.
func SetLogLevel(level string) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		logLevel = LevelDebug
	case "INFO":
		logLevel = LevelInfo
	case "WARN", "WARNING":
		logLevel = LevelWarn
	case "ERROR":
		logLevel = LevelError
	case "FATAL", "SILENT":
		logLevel = LevelFatal
	default:
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		logLevel = LevelInfo
	}
}

// CurrentLevel returns the active global log level.
func CurrentLevel() LogLevel {
	return logLevel
}

const stampLayout = "2006/01/02 15:04:05 "

var (
	out   io.Writer = os.Stderr
	zone            = time.Local
	clock           = time.Now
)

func init() { install() }

// stampWriter prefixes each line with the time in zone. It replaces the
// standard log flags, which only know local time and UTC.
type stampWriter struct {
	w    io.Writer
	zone *time.Location
	now  func() time.Time
}

func (s stampWriter) Write(p []byte) (int, error) {
	line := make([]byte, 0, len(stampLayout)+len(p))
	line = s.now().In(s.zone).AppendFormat(line, stampLayout)
	if _, err := s.w.Write(append(line, p...)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func install() {
	log.SetFlags(0)
	log.SetOutput(stampWriter{w: out, zone: zone, now: clock})
}

// SetOutput redirects log output. Tests use it to capture warnings.
func SetOutput(w io.Writer) {
	out = w
	install()
}

// SetTimezone stamps log lines in the named IANA zone ("UTC", "Asia/Seoul").
// An empty name keeps the current zone.
func SetTimezone(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	zone = loc
	install()
	return nil
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	if logLevel <= LevelDebug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	if logLevel <= LevelInfo {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	if logLevel <= LevelWarn {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	if logLevel <= LevelError {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf formats and outputs a FATAL level log message,
// then terminates the program by calling os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}

// StepLogger prefixes every message with the run ID and the step name,
// so interleaved output of one invocation can be grepped by run.
type StepLogger struct {
	prefix string
}

// ForStep returns a StepLogger for the given run and step.
func ForStep(runID, step string) StepLogger {
	return StepLogger{prefix: fmt.Sprintf("[run=%s step=%s] ", shortID(runID), step)}
}

func (l StepLogger) Debugf(format string, v ...interface{}) { Debugf(l.prefix+format, v...) }
func (l StepLogger) Infof(format string, v ...interface{})  { Infof(l.prefix+format, v...) }
func (l StepLogger) Warnf(format string, v ...interface{})  { Warnf(l.prefix+format, v...) }
func (l StepLogger) Errorf(format string, v ...interface{}) { Errorf(l.prefix+format, v...) }

// shortID keeps the first block of a UUID.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
