package logging

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// LoggerPatternConfig is an instance of a level specification for a given logger.
type LoggerPatternConfig struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

// e.g. "navcore.registration" or "navcore.*".
var loggerPatternRegexp = regexp.MustCompile(`^([a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*|\*)(\.([a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*|\*))*$`)

// ValidatePattern returns whether the pattern is a well formed logger name pattern.
func ValidatePattern(pattern string) bool {
	return loggerPatternRegexp.MatchString(pattern)
}

func buildRegexFromPattern(pattern string) string {
	var matcher strings.Builder
	matcher.WriteRune('^')
	for _, ch := range pattern {
		switch ch {
		case '*':
			matcher.WriteString(`.*`)
		case '.':
			matcher.WriteString(`\.`)
		default:
			matcher.WriteRune(ch)
		}
	}
	matcher.WriteRune('$')
	return matcher.String()
}

// Registry is a registry of loggers keyed by name.
type Registry struct {
	mu      sync.RWMutex
	loggers map[string]Logger
}

var globalRegistry = newRegistry()

func newRegistry() *Registry {
	return &Registry{
		loggers: make(map[string]Logger),
	}
}

func (lr *Registry) loggerNamed(name string) (logger Logger, ok bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok = lr.loggers[name]
	return
}

func (lr *Registry) updateLoggerLevel(name string, level Level) error {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	if !ok {
		return fmt.Errorf("logger named %s not recognized", name)
	}
	logger.SetLevel(level)
	return nil
}

// UpdateConfig applies the level of every matching pattern to the registered loggers. Later
// patterns win over earlier ones.
func (lr *Registry) UpdateConfig(logConfig []LoggerPatternConfig) error {
	var errs error
	matchers := make([]*regexp.Regexp, 0, len(logConfig))
	levels := make([]Level, 0, len(logConfig))
	for _, lpc := range logConfig {
		if !ValidatePattern(lpc.Pattern) {
			multierr.AppendInto(&errs, fmt.Errorf("failed to validate a pattern: %q", lpc.Pattern))
			continue
		}
		level, err := LevelFromString(lpc.Level)
		if err != nil {
			multierr.AppendInto(&errs, err)
			continue
		}
		matchers = append(matchers, regexp.MustCompile(buildRegexFromPattern(lpc.Pattern)))
		levels = append(levels, level)
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	for name, logger := range lr.loggers {
		for i, matcher := range matchers {
			if matcher.MatchString(name) {
				logger.SetLevel(levels[i])
			}
		}
	}
	return errs
}

func (lr *Registry) getRegisteredLoggerNames() []string {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	registeredNames := make([]string, 0, len(lr.loggers))
	for name := range lr.loggers {
		registeredNames = append(registeredNames, name)
	}
	sort.Strings(registeredNames)
	return registeredNames
}

// RegisterLogger registers a new logger with a given name.
func RegisterLogger(name string, logger Logger) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.loggers[name] = logger
}

// LoggerNamed returns logger with specified name if exists.
func LoggerNamed(name string) (logger Logger, ok bool) {
	return globalRegistry.loggerNamed(name)
}

// UpdateLoggerLevel assigns level to appropriate logger in the registry.
func UpdateLoggerLevel(name string, level Level) error {
	return globalRegistry.updateLoggerLevel(name, level)
}

// UpdateLoggerConfig applies logger level patterns to every registered logger.
func UpdateLoggerConfig(logConfig []LoggerPatternConfig) error {
	return globalRegistry.UpdateConfig(logConfig)
}

// GetRegisteredLoggerNames returns the names of all loggers in the registry.
func GetRegisteredLoggerNames() []string {
	return globalRegistry.getRegisteredLoggerNames()
}
