package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
)

type Level logging.Level

// The levels that can be passed to the SetLevel function.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var levelNames = map[string]Level{
	"debug":   Debug,
	"info":    Info,
	"notice":  Notice,
	"warning": Warning,
	"error":   Error,
}

// The logger format
var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

// The internal leveled logger backend
var leveledBackend logging.LeveledBackend

// The active level; it survives sink changes.
var activeLevel = Notice

// The logger interface
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// Create a new named logger.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// Override the backend output sink.
func SetSink(sink io.Writer) {
	backend := logging.NewLogBackend(sink, "", 0)
	backendWithFormatter := logging.NewBackendFormatter(backend, format)
	leveledBackend = logging.AddModuleLevel(backendWithFormatter)
	logging.SetBackend(leveledBackend)
	SetLevel(activeLevel)
}

// Set logger verbosity.
func SetLevel(level Level) {
	var loggerLevel logging.Level

	switch level {
	case Debug:
		loggerLevel = logging.DEBUG
	case Info:
		loggerLevel = logging.INFO
	case Notice:
		loggerLevel = logging.NOTICE
	case Warning:
		loggerLevel = logging.WARNING
	default:
		level = Error
		loggerLevel = logging.ERROR
	}

	activeLevel = level
	leveledBackend.SetLevel(loggerLevel, "")
}

// Get the logger verbosity.
func GetLevel() Level {
	return activeLevel
}

// Parse a level name such as "debug" or "warning".
func ParseLevel(name string) (Level, error) {
	level, ok := levelNames[strings.ToLower(name)]
	if !ok {
		return Notice, fmt.Errorf("log: unknown level %q", name)
	}
	return level, nil
}

func (l Level) String() string {
	for name, level := range levelNames {
		if level == l {
			return name
		}
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func init() {
	SetSink(os.Stderr)
}
