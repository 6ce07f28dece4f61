package logger

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const defaultLogLevel = logrus.InfoLevel

var levelMap = map[string]logrus.Level{
	"trace":   logrus.TraceLevel,
	"debug":   logrus.DebugLevel,
	"info":    logrus.InfoLevel,
	"warning": logrus.WarnLevel,
	"error":   logrus.ErrorLevel,
	"fatal":   logrus.FatalLevel,
	"panic":   logrus.PanicLevel,
}

// LogLevelConfig configures per-subsystem log levels as a comma separated
// list of subsystem=level pairs, e.g. "wayback=debug,importer=trace".
type LogLevelConfig string

type LogRegistry struct {
	loggerBySubsystem map[string]*logrus.Logger
	levelBySubsystem  map[string]logrus.Level
	defaultLevel      logrus.Level
	loggersMu         sync.Mutex
}

// ListLogLevels returns a comma separated string listing valid log levels.
func ListLogLevels() string {
	var names []string
	for k := range levelMap {
		names = append(names, fmt.Sprintf("%q", k))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func NewLogRegistry(config LogLevelConfig) (*LogRegistry, error) {
	r := &LogRegistry{
		loggerBySubsystem: make(map[string]*logrus.Logger),
		levelBySubsystem:  make(map[string]logrus.Level),
		defaultLevel:      defaultLogLevel,
	}
	if config != "" {
		pairs := strings.Split(string(config), ",")
		for _, pair := range pairs {
			parts := strings.Split(pair, "=")
			if len(parts) != 2 {
				return nil, fmt.Errorf("error invalid log level format: %v", pair)
			}
			level, ok := levelMap[parts[1]]
			if !ok {
				return nil, fmt.Errorf("error invalid log level for %q: %v", parts[0], parts[1])
			}
			r.levelBySubsystem[parts[0]] = level
		}
	}
	return r, nil
}

// GetLogLevel returns the configured log level for the specified subsystem.
func (r *LogRegistry) GetLogLevel(subsystem string) logrus.Level {
	r.loggersMu.Lock()
	defer r.loggersMu.Unlock()
	level, ok := r.levelBySubsystem[subsystem]
	if !ok {
		return r.defaultLevel
	}
	return level
}

// SetDefaultLogLevel changes the level used by subsystems with no explicit
// configuration, updating any such loggers already registered.
func (r *LogRegistry) SetDefaultLogLevel(level logrus.Level) {
	r.loggersMu.Lock()
	defer r.loggersMu.Unlock()
	r.defaultLevel = level
	for subsystem, logger := range r.loggerBySubsystem {
		if _, ok := r.levelBySubsystem[subsystem]; !ok {
			logger.SetLevel(level)
		}
	}
}

// SetLogLevel changes the level for a subsystem, updating any logger already
// registered under that name.
func (r *LogRegistry) SetLogLevel(subsystem string, level logrus.Level) {
	r.loggersMu.Lock()
	defer r.loggersMu.Unlock()
	r.levelBySubsystem[subsystem] = level
	if logger, ok := r.loggerBySubsystem[subsystem]; ok {
		logger.SetLevel(level)
	}
}

// RegisterLogger registers a logger with the registry so its level can be
// changed after creation.
func (r *LogRegistry) RegisterLogger(subsystem string, logger *logrus.Logger) {
	r.loggersMu.Lock()
	defer r.loggersMu.Unlock()
	r.loggerBySubsystem[subsystem] = logger
}
