// Package log provides the logger used throughout the pipeline: a cached,
// hookable logrus wrapper that every chain element, detector and parser logs
// through instead of reaching for the standard library logger directly.
package log

import (
	"bufio"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Logger is what chain elements, detectors and parsers depend on. It is
// satisfied by HookedLogger; tests may substitute a discarding logger.
type Logger interface {
	log.FieldLogger
	WithSource(id uint64, name string) *log.Entry
	Reopen() error
	GetLogDest() string
	SetLevel(level string)
	GetLevel() string
	IsDebug() bool
	AddHook(h log.Hook)
}

// HookedLogger implements Logger. It is a logrus logger wrapper that keeps a
// reference to its own LoggerHook so the log destination can be reopened
// (e.g. after an external log-rotation signal) without losing the logger.
type HookedLogger struct {
	// satisfy the log.FieldLogger interface
	*log.Logger

	h LoggerHook
}

type loggerCache map[string]Logger

// loggers caches the loggers created by GetLogger, keyed on destination.
var loggers struct {
	cache loggerCache
	sync.Mutex
}

// GetLogger returns a Logger writing to dest (singleton per destination).
// dest can be a path to a file, or one of:
//
//	"off"    - disable any log output
//	"stdout" - write to standard output
//	"stderr" - write to standard error
//
// If the file doesn't exist, a new one is created; otherwise it is appended
// to. If the hook can't be set up, the logger falls back to stderr.
func GetLogger(dest string) (Logger, error) {
	loggers.Lock()
	defer loggers.Unlock()
	if loggers.cache == nil {
		loggers.cache = make(loggerCache, 1)
	} else if l, ok := loggers.cache[dest]; ok {
		return l, nil
	}

	logrusLogger := log.New()
	// the hook does the actual writing
	logrusLogger.Out = ioutil.Discard

	l := &HookedLogger{Logger: logrusLogger}
	loggers.cache[dest] = l

	h, err := NewLogrusHook(dest)
	if err != nil {
		logrusLogger.Out = os.Stderr
		return l, err
	}
	logrusLogger.Hooks.Add(h)
	l.h = h
	return l, nil
}

// AddHook adds a new logrus hook.
func (l *HookedLogger) AddHook(h log.Hook) {
	l.Logger.AddHook(h)
}

func (l *HookedLogger) IsDebug() bool {
	return l.GetLevel() == log.DebugLevel.String()
}

// SetLevel sets a log level, one of the logrus level names.
func (l *HookedLogger) SetLevel(level string) {
	logLevel, err := log.ParseLevel(level)
	if err != nil {
		return
	}
	l.Level = logLevel
}

// GetLevel gets the current log level.
func (l *HookedLogger) GetLevel() string {
	return l.Level.String()
}

// Reopen closes the log file and re-opens it, e.g. after logrotate(8) moved it.
func (l *HookedLogger) Reopen() error {
	return l.h.Reopen()
}

// GetLogDest returns the configured log destination.
func (l *HookedLogger) GetLogDest() string {
	return l.h.GetLogDest()
}

// WithSource extends logrus to tag a log line with the DataSource identifier
// and, when known, its originating name (file name, attachment name, etc.)
// so a multi-parser pipeline's interleaved log lines can be told apart.
func (l *HookedLogger) WithSource(id uint64, name string) *log.Entry {
	if name == "" {
		name = "unknown"
	}
	return l.WithField("source_id", id).WithField("source_name", name)
}

// hookMu serializes all hook I/O. Held only inside exported hook methods.
var hookMu sync.Mutex

// LoggerHook extends the log.Hook interface with Reopen and GetLogDest.
type LoggerHook interface {
	log.Hook
	Reopen() error
	GetLogDest() string
}

// LogrusHook writes formatted log lines to a file, stdout, stderr or
// ioutil.Discard, and supports being closed and reopened at the same path.
type LogrusHook struct {
	w     io.Writer
	fd    *os.File
	fname string
	// plainTxtFormatter disables colors when writing to a real file
	plainTxtFormatter *log.TextFormatter

	mu sync.Mutex
}

// NewLogrusHook creates a new hook. dest can be a file name or one of:
// "stderr", "stdout", "off" (discard).
func NewLogrusHook(dest string) (LoggerHook, error) {
	hookMu.Lock()
	defer hookMu.Unlock()
	hook := LogrusHook{fname: dest}
	err := hook.setup(dest)
	return &hook, err
}

type OutputOption int

const (
	OutputStderr OutputOption = 1 + iota
	OutputStdout
	OutputOff
	OutputNull
	OutputFile
)

var outputOptions = [...]string{"stderr", "stdout", "off", "", "file"}

func (o OutputOption) String() string {
	return outputOptions[o-1]
}

func parseOutputOption(str string) OutputOption {
	switch str {
	case "stderr":
		return OutputStderr
	case "stdout":
		return OutputStdout
	case "off":
		return OutputOff
	case "":
		return OutputNull
	}
	return OutputFile
}

// setup sets the hook's writer and file descriptor. Assumes hook.fd is nil.
func (hook *LogrusHook) setup(dest string) error {
	out := parseOutputOption(dest)
	switch {
	case out == OutputNull || out == OutputStderr:
		hook.w = os.Stderr
	case out == OutputStdout:
		hook.w = os.Stdout
	case out == OutputOff:
		hook.w = ioutil.Discard
	default:
		if _, err := os.Stat(dest); err == nil {
			if err := hook.openAppend(dest); err != nil {
				return err
			}
		} else if err := hook.openCreate(dest); err != nil {
			return err
		}
	}
	if hook.fd != nil {
		hook.plainTxtFormatter = &log.TextFormatter{DisableColors: true}
	}
	return nil
}

func (hook *LogrusHook) openAppend(dest string) (err error) {
	fd, err := os.OpenFile(dest, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		hook.w = os.Stderr
		hook.fd = nil
		return err
	}
	hook.w = bufio.NewWriter(fd)
	hook.fd = fd
	return nil
}

func (hook *LogrusHook) openCreate(dest string) (err error) {
	fd, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		hook.w = os.Stderr
		hook.fd = nil
		return err
	}
	hook.w = bufio.NewWriter(fd)
	hook.fd = fd
	return nil
}

// Fire implements the logrus Hook interface. It disables color formatting
// when writing to a real file.
func (hook *LogrusHook) Fire(entry *log.Entry) error {
	hookMu.Lock()
	defer hookMu.Unlock()
	if hook.fd != nil {
		oldFormatter := entry.Logger.Formatter
		defer func() { entry.Logger.Formatter = oldFormatter }()
		entry.Logger.Formatter = hook.plainTxtFormatter
	}
	line, err := entry.String()
	if err != nil {
		return err
	}
	if _, err = io.Copy(hook.w, strings.NewReader(line)); err != nil {
		return err
	}
	if wb, ok := hook.w.(*bufio.Writer); ok {
		if err := wb.Flush(); err != nil {
			return err
		}
		if hook.fd != nil {
			_ = hook.fd.Sync()
		}
	}
	return nil
}

// GetLogDest returns the destination of the log as a string.
func (hook *LogrusHook) GetLogDest() string {
	hookMu.Lock()
	defer hookMu.Unlock()
	return hook.fname
}

// Levels implements the logrus Hook interface.
func (hook *LogrusHook) Levels() []log.Level {
	return log.AllLevels
}

// Reopen closes and re-opens the log file descriptor at the same path.
func (hook *LogrusHook) Reopen() error {
	hookMu.Lock()
	defer hookMu.Unlock()
	if hook.fd == nil {
		return nil
	}
	if err := hook.fd.Close(); err != nil {
		return err
	}
	if _, err := os.Stat(hook.fname); err != nil {
		return hook.openCreate(hook.fname)
	}
	return hook.openAppend(hook.fname)
}
