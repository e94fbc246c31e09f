// Package agenttest provides a scripted in-memory ascmd agent for tests.
package agenttest

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/danmuck/ascmdctl/internal/protocol"
	"github.com/danmuck/ascmdctl/internal/protocol/command"
	"github.com/danmuck/ascmdctl/internal/protocol/frame"
)

// Reply is what the agent writes back for one request.
type Reply struct {
	Results []protocol.Result
	// Raw is written after Results, for malformed replies.
	Raw []byte
	// Hangup stops the agent after writing, closing its side of the stream.
	Hangup bool
}

func Respond(results ...protocol.Result) Reply {
	return Reply{Results: results}
}

// Handler answers one parsed request line.
type Handler func(req command.Line) Reply

// Agent reads request lines and writes reply frames. as_exit stops it
// without a reply.
type Agent struct {
	handler Handler

	mu       sync.Mutex
	requests []command.Line
	raw      []string
}

func New(h Handler) *Agent {
	return &Agent{handler: h}
}

// Script answers requests in order with the given replies, then hangs up.
func Script(replies ...Reply) *Agent {
	var mu sync.Mutex
	next := 0
	return New(func(command.Line) Reply {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(replies) {
			return Reply{Hangup: true}
		}
		r := replies[next]
		next++
		return r
	})
}

// Requests returns the parsed request lines seen so far.
func (a *Agent) Requests() []command.Line {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]command.Line, len(a.requests))
	copy(out, a.requests)
	return out
}

// RawRequests returns the request lines exactly as received.
func (a *Agent) RawRequests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.raw))
	copy(out, a.raw)
	return out
}

// Serve runs the agent loop until EOF, as_exit or a hangup reply.
func (a *Agent) Serve(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		req, err := command.Parse(line)
		a.mu.Lock()
		a.raw = append(a.raw, line)
		if err == nil {
			a.requests = append(a.requests, req)
		}
		a.mu.Unlock()
		if err != nil {
			return err
		}
		if req.Verb == command.VerbExit {
			return nil
		}

		reply := a.handler(req)
		for _, res := range reply.Results {
			f, err := protocol.EncodeResult(res)
			if err != nil {
				return err
			}
			if err := frame.WriteFrame(w, f); err != nil {
				return err
			}
		}
		if len(reply.Raw) > 0 {
			if _, err := w.Write(reply.Raw); err != nil {
				return err
			}
		}
		if reply.Hangup {
			return nil
		}
	}
}

// Conn is the client side of a piped agent.
type Conn struct {
	Stdin  io.WriteCloser
	Stdout io.ReadCloser

	done chan struct{}
	err  error
	once sync.Once
}

// Wait blocks until the agent stops and returns its Serve error.
func (c *Conn) Wait() error {
	<-c.done
	return c.err
}

// Close closes both pipe ends and waits for the agent to stop.
func (c *Conn) Close() error {
	c.once.Do(func() {
		c.Stdin.Close()
		c.Stdout.Close()
		<-c.done
	})
	return nil
}

// Start runs a on a pair of in-memory pipes. The agent's stdout closes when
// it stops, so the client then reads EOF.
func Start(t testing.TB, a *Agent) *Conn {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	c := &Conn{Stdin: reqW, Stdout: respR, done: make(chan struct{})}
	go func() {
		c.err = a.Serve(reqR, respW)
		respW.Close()
		reqR.Close()
		close(c.done)
	}()
	t.Cleanup(func() { c.Close() })
	return c
}
