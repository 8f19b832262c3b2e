// Package logging supplies the structured-logging interface every stage in
// the pipeline logs through (spec.md: ambient logging, never swallowed in
// the Supervisor's restart path). The interface shape is kept from the
// teacher's own Logger/NoOpLogger pair; ZapLogger is new, backed by
// go.uber.org/zap.
package logging

import "go.uber.org/zap"

type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string, args ...interface{})  {}
func (n *NoOpLogger) Warn(msg string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string, args ...interface{}) {}

// ZapLogger adapts a *zap.SugaredLogger to the Logger interface so every
// stage can log structured key/value pairs the way the rest of the corpus
// does, instead of falling back to fmt.Println/stdlib log.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

func NewZapLogger(production bool) (*ZapLogger, error) {
	var z *zap.Logger
	var err error
	if production {
		z, err = zap.NewProduction()
	} else {
		z, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: z.Sugar()}, nil
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.sugar.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorw(msg, args...) }

func (l *ZapLogger) Sync() error { return l.sugar.Sync() }
