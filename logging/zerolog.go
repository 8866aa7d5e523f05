package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ZerologAdapter wraps a zerolog.Logger to implement the Logger interface.
// Alternating key/value args are attached as structured fields; a dangling
// key is logged under "arg" so nothing is silently dropped.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter creates a Logger from an existing zerolog.Logger.
func NewZerologAdapter(logger zerolog.Logger) Logger {
	return &ZerologAdapter{logger: logger}
}

// NewProductionLogger creates a timestamped JSON zerolog Logger writing to w
// (os.Stderr when nil).
func NewProductionLogger(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewZerologAdapter(zerolog.New(w).With().Timestamp().Logger())
}

func (z *ZerologAdapter) emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		ev = ev.Interface(key, args[i+1])
	}
	if len(args)%2 != 0 {
		ev = ev.Interface("arg", args[len(args)-1])
	}
	ev.Msg(msg)
}

func (z *ZerologAdapter) Debug(msg string, args ...any) { z.emit(z.logger.Debug(), msg, args) }
func (z *ZerologAdapter) Info(msg string, args ...any)  { z.emit(z.logger.Info(), msg, args) }
func (z *ZerologAdapter) Warn(msg string, args ...any)  { z.emit(z.logger.Warn(), msg, args) }
func (z *ZerologAdapter) Error(msg string, args ...any) { z.emit(z.logger.Error(), msg, args) }
