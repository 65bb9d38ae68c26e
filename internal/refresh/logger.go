package refresh

import (
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// gocronLogger routes scheduler logs through zap. gocron passes key/value
// pairs after the message, which map directly onto the sugared *w methods.
type gocronLogger struct {
	s *zap.SugaredLogger
}

var _ gocron.Logger = (*gocronLogger)(nil)

func newGocronLogger(l *zap.Logger) *gocronLogger {
	return &gocronLogger{s: l.Named("scheduler").Sugar()}
}

func (g *gocronLogger) Debug(msg string, args ...any) { g.s.Debugw(msg, args...) }
func (g *gocronLogger) Info(msg string, args ...any)  { g.s.Infow(msg, args...) }
func (g *gocronLogger) Warn(msg string, args ...any)  { g.s.Warnw(msg, args...) }
func (g *gocronLogger) Error(msg string, args ...any) { g.s.Errorw(msg, args...) }
