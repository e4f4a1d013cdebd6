package scheduler

import "github.com/charmbracelet/log"

// gocronLogger routes gocron's internal messages through the global logger.
// gocron reports every job start at info, which is demoted to debug here.
type gocronLogger struct {
	l *log.Logger
}

func newGocronLogger() gocronLogger {
	return gocronLogger{l: log.Default().WithPrefix("scheduler")}
}

func (g gocronLogger) Debug(msg string, args ...any) { g.l.Debug(msg, args...) }

func (g gocronLogger) Info(msg string, args ...any) { g.l.Debug(msg, args...) }

func (g gocronLogger) Warn(msg string, args ...any) { g.l.Warn(msg, args...) }

func (g gocronLogger) Error(msg string, args ...any) { g.l.Error(msg, args...) }
