package logging

import (
	"github.com/pion/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PionFactory routes pion's internal logging into zerolog.
type PionFactory struct {
	// Level caps pion's verbosity independently of the global level.
	Level zerolog.Level
}

func (f PionFactory) NewLogger(scope string) logging.LeveledLogger {
	l := log.With().Str("module", "pion").Str("scope", scope).Logger().Level(f.Level)
	return &pionLogger{l: l}
}

type pionLogger struct {
	l zerolog.Logger
}

func (p *pionLogger) Trace(msg string)               { p.l.Trace().Msg(msg) }
func (p *pionLogger) Tracef(format string, a ...any) { p.l.Trace().Msgf(format, a...) }
func (p *pionLogger) Debug(msg string)               { p.l.Debug().Msg(msg) }
func (p *pionLogger) Debugf(format string, a ...any) { p.l.Debug().Msgf(format, a...) }
func (p *pionLogger) Info(msg string)                { p.l.Info().Msg(msg) }
func (p *pionLogger) Infof(format string, a ...any)  { p.l.Info().Msgf(format, a...) }
func (p *pionLogger) Warn(msg string)                { p.l.Warn().Msg(msg) }
func (p *pionLogger) Warnf(format string, a ...any)  { p.l.Warn().Msgf(format, a...) }
func (p *pionLogger) Error(msg string)               { p.l.Error().Msg(msg) }
func (p *pionLogger) Errorf(format string, a ...any) { p.l.Error().Msgf(format, a...) }
