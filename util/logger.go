package util

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	globalLogger Logger = defaultLogger{}
	globalLock   sync.RWMutex
)

func SetLogger(log Logger) {
	if log == nil {
		panic("Can't set the logger to nil")
	}

	globalLock.Lock()
	globalLogger = log
	globalLock.Unlock()
}

func current() Logger {
	globalLock.RLock()
	defer globalLock.RUnlock()
	return globalLogger
}

func Printf(format string, a ...any) {
	current().Printf(format, a...)
}

func Infof(format string, a ...any) {
	current().Infof(format, a...)
}

func Debugf(format string, a ...any) {
	current().Debugf(format, a...)
}

func Warnf(format string, a ...any) {
	current().Warnf(format, a...)
}

func Errorf(format string, a ...any) error {
	return current().Errorf(format, a...)
}

type Logger interface {
	// Printf - Straight print passthrough
	Printf(format string, a ...any)
	// Infof - Info level print
	Infof(format string, a ...any)
	// Debugf - Debug level print, mostly used for information/tracing
	Debugf(format string, a ...any)
	// Warnf - Warn level print, something that might be a problem
	Warnf(format string, a ...any)
	// Errorf - Error level print - returns an error
	Errorf(format string, a ...any) error
}

type defaultLogger struct{}

func withNewline(format string) string {
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	return format
}

func (defaultLogger) Debugf(format string, a ...any) {
	log.Printf("DEBUG: "+withNewline(format), a...)
}

func (defaultLogger) Infof(format string, a ...any) {
	log.Printf("INFO: "+withNewline(format), a...)
}

func (defaultLogger) Printf(format string, a ...any) {
	log.Printf(withNewline(format), a...)
}

func (defaultLogger) Warnf(format string, a ...any) {
	log.Printf("WARN: "+withNewline(format), a...)
}

func (defaultLogger) Errorf(format string, a ...any) error {
	log.Printf("ERROR: "+withNewline(format), a...)
	return fmt.Errorf(strings.TrimSuffix(format, "\n"), a...)
}

type DiscardLogger struct{}

func (DiscardLogger) Printf(_ string, _ ...any) {

}

func (DiscardLogger) Infof(_ string, _ ...any) {

}

func (DiscardLogger) Debugf(_ string, _ ...any) {

}

func (DiscardLogger) Warnf(_ string, _ ...any) {

}

func (DiscardLogger) Errorf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}

// ZerologLogger routes SDK logging into a zerolog.Logger.
type ZerologLogger struct {
	Logger zerolog.Logger
}

func NewZerologLogger(l zerolog.Logger) ZerologLogger {
	return ZerologLogger{Logger: l}
}

func (z ZerologLogger) Printf(format string, a ...any) {
	z.Logger.Log().Msgf(strings.TrimSuffix(format, "\n"), a...)
}

func (z ZerologLogger) Infof(format string, a ...any) {
	z.Logger.Info().Msgf(strings.TrimSuffix(format, "\n"), a...)
}

func (z ZerologLogger) Debugf(format string, a ...any) {
	z.Logger.Debug().Msgf(strings.TrimSuffix(format, "\n"), a...)
}

func (z ZerologLogger) Warnf(format string, a ...any) {
	z.Logger.Warn().Msgf(strings.TrimSuffix(format, "\n"), a...)
}

func (z ZerologLogger) Errorf(format string, a ...any) error {
	err := fmt.Errorf(strings.TrimSuffix(format, "\n"), a...)
	z.Logger.Error().Err(err).Send()
	return err
}
