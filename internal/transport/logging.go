package transport

import (
	"encoding/hex"
	"io"

	"github.com/rs/zerolog"
)

// LoggingReader traces every chunk read from the agent.
type LoggingReader struct {
	R   io.Reader
	Log zerolog.Logger
}

func (l LoggingReader) Read(p []byte) (int, error) {
	n, err := l.R.Read(p)
	if n > 0 {
		l.Log.Trace().Str("dir", "recv").Int("n", n).Str("hex", hex.EncodeToString(p[:n])).Msg("agent bytes")
	}
	return n, err
}

// LoggingWriter traces every request written to the agent. It forwards
// Flush so buffered transports keep working.
type LoggingWriter struct {
	W   io.Writer
	Log zerolog.Logger
}

func (l LoggingWriter) Write(p []byte) (int, error) {
	l.Log.Trace().Str("dir", "send").Int("n", len(p)).Str("line", string(p)).Msg("agent bytes")
	return l.W.Write(p)
}

func (l LoggingWriter) Flush() error {
	if f, ok := l.W.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Trace wraps c's streams when the logger is at trace level.
func Trace(c *Conn, log zerolog.Logger) (io.Writer, io.Reader) {
	if log.GetLevel() > zerolog.TraceLevel || zerolog.GlobalLevel() > zerolog.TraceLevel {
		return c.Stdin, c.Stdout
	}
	return LoggingWriter{W: c.Stdin, Log: log}, LoggingReader{R: c.Stdout, Log: log}
}
