// Package logging wraps zap the way the teacher's own log package wraps
// log15: a small facade so call sites never import zap directly.
package logging

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	colorable "github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the facade returned to callers. Fields are passed as
// alternating key/value pairs, matching the teacher's log15-derived
// convention (Info("msg", "k1", v1, "k2", v2)).
type Logger struct {
	z *zap.SugaredLogger
}

var std = New("powminer")

// Std returns the process-wide default logger.
func Std() *Logger { return std }

// New builds a colorized console logger scoped to component.
func New(component string) *Logger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    colorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(colorable.NewColorableStdout()), zapcore.DebugLevel)
	base := zap.New(core).Named(component)
	return &Logger{z: base.Sugar()}
}

func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var c *color.Color
	switch level {
	case zapcore.DebugLevel:
		c = color.New(color.FgCyan)
	case zapcore.InfoLevel:
		c = color.New(color.FgGreen)
	case zapcore.WarnLevel:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgRed)
	}
	enc.AppendString(c.Sprintf("%-5s", level.CapitalString()))
}

// With returns a child logger carrying the given static fields.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{z: l.z.With(kv...)}
}

func (l *Logger) Debugw(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }
func (l *Logger) Infow(msg string, kv ...interface{})  { l.z.Infow(msg, kv...) }
func (l *Logger) Warnw(msg string, kv ...interface{})  { l.z.Warnw(msg, kv...) }

// Errorw logs at error level and, per the teacher's caller-capturing log
// style, attaches the immediate call site via go-stack/stack rather than
// relying on zap's own (disabled) caller annotation.
func (l *Logger) Errorw(msg string, kv ...interface{}) {
	frame := stack.Caller(1)
	kv = append(kv, "caller", fmt.Sprintf("%+v", frame))
	l.z.Errorw(msg, kv...)
}

func (l *Logger) Sync() error { return l.z.Sync() }

func init() {
	if os.Getenv("POWMINER_LOG_PLAIN") != "" {
		color.NoColor = true
	}
}
