package logging

// Leveled adapts Logger to the key/value leveled logging interface used by
// hashicorp/go-retryablehttp.
type Leveled struct {
	l *Logger
}

// NewLeveled wraps l for retryablehttp.
func NewLeveled(l *Logger) *Leveled {
	return &Leveled{l: OrNop(l)}
}

func (a *Leveled) Error(msg string, keysAndValues ...interface{}) {
	a.l.Sugar().Errorw(msg, keysAndValues...)
}

func (a *Leveled) Info(msg string, keysAndValues ...interface{}) {
	a.l.Sugar().Infow(msg, keysAndValues...)
}

// Debug is used for per-attempt request chatter.
func (a *Leveled) Debug(msg string, keysAndValues ...interface{}) {
	a.l.Sugar().Debugw(msg, keysAndValues...)
}

func (a *Leveled) Warn(msg string, keysAndValues ...interface{}) {
	a.l.Sugar().Warnw(msg, keysAndValues...)
}
