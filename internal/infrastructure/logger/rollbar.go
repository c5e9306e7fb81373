package logger

import (
	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap/zapcore"
)

// Reporter is the subset of *rollbar.Client the core needs
type Reporter interface {
	ErrorWithExtras(level string, err error, extras map[string]interface{})
	MessageWithExtras(level string, msg string, extras map[string]interface{})
}

// NewRollbarClient returns a configured client, or nil when token is empty
func NewRollbarClient(token, environment, version, host string) *rollbar.Client {
	if token == "" {
		return nil
	}
	client := rollbar.New(token, environment, version, host, "github.com/cloudpos/backend")
	client.SetEnabled(true)
	return client
}

// rollbarCore forwards warn-and-above entries to Rollbar, including
// structured fields as extras
type rollbarCore struct {
	zapcore.LevelEnabler
	reporter Reporter
	fields   []zapcore.Field
}

// NewRollbarCore returns a core reporting entries at or above minLevel.
// A nil reporter yields a no-op core.
func NewRollbarCore(reporter Reporter, minLevel zapcore.Level) zapcore.Core {
	if reporter == nil {
		return zapcore.NewNopCore()
	}
	return &rollbarCore{LevelEnabler: minLevel, reporter: reporter}
}

func (c *rollbarCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &rollbarCore{LevelEnabler: c.LevelEnabler, reporter: c.reporter, fields: merged}
}

func (c *rollbarCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *rollbarCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	var reported error
	for _, f := range append(c.fields, fields...) {
		if f.Type == zapcore.ErrorType {
			if err, ok := f.Interface.(error); ok && reported == nil {
				reported = err
				continue
			}
		}
		f.AddTo(enc)
	}
	extras := enc.Fields
	extras["logger"] = ent.LoggerName
	extras["caller"] = ent.Caller.TrimmedPath()

	level := rollbarLevel(ent.Level)
	if reported != nil {
		extras["message"] = ent.Message
		c.reporter.ErrorWithExtras(level, reported, extras)
		return nil
	}
	c.reporter.MessageWithExtras(level, ent.Message, extras)
	return nil
}

func (c *rollbarCore) Sync() error { return nil }

func rollbarLevel(l zapcore.Level) string {
	switch {
	case l >= zapcore.DPanicLevel:
		return rollbar.CRIT
	case l == zapcore.ErrorLevel:
		return rollbar.ERR
	case l == zapcore.WarnLevel:
		return rollbar.WARN
	default:
		return rollbar.INFO
	}
}
