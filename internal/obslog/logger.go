// Package obslog provides the structured logging used by every core
// component: the scheduler, the dispatcher, and the economy hooks.
// Adapted from the host platform's shared logging package, trimmed to
// the fields the core actually emits (no HTTP/audit helpers — those stay
// with the host process).
package obslog

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ContextKey namespaces context-carried logging metadata.
type ContextKey string

const (
	TickKey    ContextKey = "tick"
	AgentIDKey ContextKey = "agent_id"
)

// Logger wraps logrus.Logger with agentcore's field conventions.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a Logger for the named component ("scheduler", "execution",
// "economy", ...).
func New(component, level, format string) *Logger {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if format == "text" {
		l.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}
	l.SetOutput(os.Stdout)

	return &Logger{Logger: l, component: component}
}

// NewFromEnv builds a Logger from AGENTCORE_LOG_LEVEL / AGENTCORE_LOG_FORMAT,
// defaulting to info/json.
func NewFromEnv(component string) *Logger {
	level := strings.TrimSpace(os.Getenv("AGENTCORE_LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("AGENTCORE_LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(component, level, format)
}

// WithTick returns an entry tagged with the component and tick number.
func (l *Logger) WithTick(tick int64) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{"component": l.component, "tick": tick})
}

// WithAgent returns an entry tagged with the component and agent id.
func (l *Logger) WithAgent(tick int64, agentID string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{"component": l.component, "tick": tick, "agent_id": agentID})
}

// WithContext pulls tick/agent metadata out of ctx if present.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)
	if tick, ok := ctx.Value(TickKey).(int64); ok {
		entry = entry.WithField("tick", tick)
	}
	if agentID, ok := ctx.Value(AgentIDKey).(string); ok {
		entry = entry.WithField("agent_id", agentID)
	}
	return entry
}

// LogTickResult logs one agent's tick outcome at the appropriate level.
func (l *Logger) LogTickResult(tick int64, agentID, actionType string, success bool, err error) {
	entry := l.WithAgent(tick, agentID).WithField("action", actionType)
	if err != nil {
		entry.WithError(err).Warn("agent tick completed with error")
		return
	}
	if !success {
		entry.Warn("agent tick did not succeed")
		return
	}
	entry.Debug("agent tick completed")
}

// LogEconomyHook logs a pool-affecting economy hook (upkeep, rescue,
// wage, bonus, repayment).
func (l *Logger) LogEconomyHook(tick int64, agentID, hook string, delta int, err error) {
	entry := l.WithAgent(tick, agentID).WithFields(logrus.Fields{"hook": hook, "delta": delta})
	if err != nil {
		entry.WithError(err).Error("economy hook failed")
		return
	}
	entry.Debug("economy hook applied")
}
