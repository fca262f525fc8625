package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the name of the rotating log file inside the log directory.
const LogFileName = "estate.log"

// Logger provides structured logging for archive components.
// Loggers derived with Component share one sink and one session ID.
//
// All log methods (Debugf, Infof, Warnf, Errorf) write unconditionally.
// There is currently no log level filtering.
type Logger struct {
	component string
	sink      *sink
}

// sink is the shared destination of a logger family.
type sink struct {
	sessionID string
	logger    *log.Logger
	closer    io.Closer
	logPath   string
	mu        sync.Mutex
	closeOnce sync.Once
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once
)

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// NewLogger creates a logger for component writing to dir/estate.log.
// The file is rotated by size and old files are compressed.
//
// If the log directory cannot be created it returns a fallback logger that
// writes to stderr along with the error. Callers can check the error to
// detect fallback mode and log warnings.
func NewLogger(component, dir string) (*Logger, error) {
	if dir == "" {
		err := fmt.Errorf("log directory is empty")
		return newFallbackLogger(component, err), err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		err = fmt.Errorf("failed to create log directory: %w", err)
		return newFallbackLogger(component, err), err
	}

	logPath := filepath.Join(dir, LogFileName)
	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}

	l := &Logger{
		component: component,
		sink: &sink{
			sessionID: getSessionID(),
			logger:    log.New(rotator, "", 0), // We'll format timestamps ourselves
			closer:    rotator,
			logPath:   logPath,
		},
	}
	l.Infof("session %s started", l.sink.sessionID)
	return l, nil
}

// New creates a logger writing to w. It is meant for tests and for
// embedding the archive packages in another program.
func New(component string, w io.Writer) *Logger {
	return &Logger{
		component: component,
		sink: &sink{
			sessionID: getSessionID(),
			logger:    log.New(w, "", 0),
		},
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New("discard", io.Discard)
}

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, "", 0)
	l := &Logger{
		component: component,
		sink: &sink{
			sessionID: getSessionID(),
			logger:    logger,
		},
	}
	l.Warnf("failed to initialize file logging: %v", err)
	l.Warnf("falling back to stderr logging")
	return l
}

// Component returns a logger for another component sharing this logger's sink.
func (l *Logger) Component(component string) *Logger {
	return &Logger{component: component, sink: l.sink}
}

// formatLogEntry creates a structured log entry with timestamp, component, and level
func (l *Logger) formatLogEntry(level, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

func (l *Logger) write(level, format string, v ...interface{}) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	entry := l.formatLogEntry(level, fmt.Sprintf(format, v...))
	l.sink.logger.Println(entry)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write("DEBUG", format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write("INFO", format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write("WARN", format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write("ERROR", format, v...)
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sink.sessionID
}

// LogPath returns the path to the log file, or "" when not logging to a file.
func (l *Logger) LogPath() string {
	return l.sink.logPath
}

// Close closes the log file. Safe to call multiple times and on derived loggers.
func (l *Logger) Close() error {
	var err error
	l.sink.closeOnce.Do(func() {
		if l.sink.closer != nil {
			err = l.sink.closer.Close()
		}
	})
	return err
}
