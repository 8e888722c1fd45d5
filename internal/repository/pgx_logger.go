package repository

import (
	"context"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// maxLoggedSQL caps statement text in trace logs; list queries built by
// squirrel can get long once filters are attached.
const maxLoggedSQL = 2048

// pgxLogger adapts zerolog.Logger to pgx's tracelog interface.
type pgxLogger struct {
	logger zerolog.Logger
}

func newPgxLogger(logger zerolog.Logger) *pgxLogger {
	return &pgxLogger{logger: logger.With().Str("component", "pgx").Logger()}
}

func (l *pgxLogger) event(level tracelog.LogLevel) *zerolog.Event {
	switch level {
	case tracelog.LogLevelTrace:
		return l.logger.Trace()
	case tracelog.LogLevelDebug:
		return l.logger.Debug()
	case tracelog.LogLevelInfo:
		return l.logger.Info()
	case tracelog.LogLevelWarn:
		return l.logger.Warn()
	case tracelog.LogLevelError:
		return l.logger.Error()
	default:
		return l.logger.Info().Str("pgx_log_level", level.String())
	}
}

// Log implements tracelog.Logger. SQL text and args are promoted to
// top-level fields so course queries stay greppable.
func (l *pgxLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	if level == tracelog.LogLevelNone {
		return
	}
	event := l.event(level)
	if event == nil {
		return
	}

	if sqlVal, ok := data["sql"]; ok {
		if s, ok := sqlVal.(string); ok {
			if len(s) > maxLoggedSQL {
				s = s[:maxLoggedSQL] + "..."
			}
			event = event.Str("sql", s)
		} else {
			event = event.Interface("sql", sqlVal)
		}
		delete(data, "sql")
	}
	if args, ok := data["args"]; ok && level == tracelog.LogLevelTrace {
		event = event.Interface("args", args)
	}
	delete(data, "args")

	if len(data) > 0 {
		event = event.Fields(data)
	}
	event.Msg(msg)
}
