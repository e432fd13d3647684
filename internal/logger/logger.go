// Package logger provides the diagnostic output used below the rendering layer.
package logger

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// WarnPrefix marks a warning line wherever one is printed
const WarnPrefix = "⚠ "

// Logger receives command traces and non-fatal warnings from the query layer.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Console writes bare message lines to out. Debug lines are dropped unless debug is enabled.
type Console struct {
	sugar *zap.SugaredLogger
}

func NewConsole(out io.Writer, debug bool) *Console {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(out), level)
	return &Console{sugar: zap.New(core).Sugar()}
}

func (c *Console) Debug(msg string, args ...any) {
	c.sugar.Debugf(msg, args...)
}

func (c *Console) Warn(msg string, args ...any) {
	c.sugar.Warnf(WarnPrefix+msg, args...)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(msg string, args ...any) {}
func (Nop) Warn(msg string, args ...any)  {}
