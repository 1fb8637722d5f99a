// Package logger adapts zerolog to the application Logger port.
package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/dvaldes/tars-go/internal/ports"
)

// ZeroLogger routes structured log records through zerolog.
type ZeroLogger struct {
	log zerolog.Logger
}

// New builds a console logger on stderr. Verbose lowers the level to debug.
func New(verbose bool) *ZeroLogger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return &ZeroLogger{
		log: zerolog.New(writer).Level(level).With().Timestamp().Logger(),
	}
}

func (l *ZeroLogger) Debug(msg string, fields map[string]interface{}) {
	l.emit(l.log.Debug(), fields, msg)
}

func (l *ZeroLogger) Info(msg string, fields map[string]interface{}) {
	l.emit(l.log.Info(), fields, msg)
}

func (l *ZeroLogger) Warn(msg string, fields map[string]interface{}) {
	l.emit(l.log.Warn(), fields, msg)
}

func (l *ZeroLogger) Error(msg string, err error, fields map[string]interface{}) {
	l.emit(l.log.Error().Err(err), fields, msg)
}

func (l *ZeroLogger) emit(ev *zerolog.Event, fields map[string]interface{}, msg string) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

var _ ports.Logger = (*ZeroLogger)(nil)
