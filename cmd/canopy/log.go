package main

import (
	"go.uber.org/zap"
)

type logger struct {
	*zap.SugaredLogger
}

// newLogger returns a development logger writing on STDERR when verbose,
// and a no-op logger otherwise.
func newLogger(verbose bool) (logger, error) {
	if !verbose {
		return logger{zap.NewNop().Sugar()}, nil
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return logger{}, err
	}
	return logger{l.Sugar()}, nil
}

func (l logger) Logf(format string, a ...interface{}) {
	l.Infof(format, a...)
}

// Zap returns the structured logger the library packages log to.
func (l logger) Zap() *zap.Logger {
	return l.Desugar()
}
