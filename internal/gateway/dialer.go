package gateway

import (
	"context"
	"io"

	"github.com/danmuck/ascmdctl/internal/protocol/session"
	"github.com/danmuck/ascmdctl/internal/transport"
	"github.com/rs/zerolog"
)

// Dialer opens a fresh agent session. The closer tears down the transport
// underneath it.
type Dialer interface {
	Dial(ctx context.Context) (*session.Session, io.Closer, error)
}

type DialerFunc func(ctx context.Context) (*session.Session, io.Closer, error)

func (f DialerFunc) Dial(ctx context.Context) (*session.Session, io.Closer, error) {
	return f(ctx)
}

// StarterDialer starts a transport and negotiates a session over it.
type StarterDialer struct {
	Starter transport.Starter
	Session session.Config
	// Trace logs every byte crossing the transport at trace level.
	Trace bool
}

func (d StarterDialer) Dial(ctx context.Context) (*session.Session, io.Closer, error) {
	conn, err := d.Starter.Start(ctx)
	if err != nil {
		return nil, nil, err
	}
	var (
		w io.Writer = conn.Stdin
		r io.Reader = conn.Stdout
	)
	if d.Trace {
		w, r = transport.Trace(conn, d.logger())
	}
	s, err := session.Open(w, r, d.Session)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return s, conn, nil
}

func (d StarterDialer) logger() zerolog.Logger {
	return d.Session.Logger
}
