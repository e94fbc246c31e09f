// Package transport supplies the duplex byte streams an ascmd session runs
// over: a local subprocess or an SSH exec channel.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	// DefaultCommand is the agent executable name.
	DefaultCommand = "ascmd"
	// DefaultSSHPort is the HSTS SSH port the agent is usually reached on.
	DefaultSSHPort = "33001"
)

// Starter opens one agent process and returns its streams.
type Starter interface {
	Start(ctx context.Context) (*Conn, error)
}

// Conn is a running agent. Closing it is the only way to cancel a blocked
// session call.
type Conn struct {
	Stdin  io.WriteCloser
	Stdout io.Reader

	wait      func() error
	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

func newConn(stdin io.WriteCloser, stdout io.Reader, wait func() error, closers ...func() error) *Conn {
	return &Conn{Stdin: stdin, Stdout: stdout, wait: wait, closers: closers}
}

// Wait blocks until the agent exits.
func (c *Conn) Wait() error {
	if c.wait == nil {
		return nil
	}
	return c.wait()
}

// Close shuts the agent's stdin and releases the transport.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if err := c.Stdin.Close(); err != nil && !errors.Is(err, io.EOF) {
			errs = append(errs, err)
		}
		for _, closeFn := range c.closers {
			if err := closeFn(); err != nil && !errors.Is(err, io.EOF) {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// versionArgs returns the agent flags selecting protocol version v.
// Version 1 is the agent default and takes no flag.
func versionArgs(v uint32) []string {
	if v == 0 || v == 1 {
		return nil
	}
	return []string{fmt.Sprintf("-V%d", v)}
}

func joinCommand(cmd string, args []string) string {
	if len(args) == 0 {
		return shellEscape(cmd)
	}

	var builder strings.Builder
	builder.WriteString(shellEscape(cmd))
	for _, arg := range args {
		builder.WriteByte(' ')
		builder.WriteString(shellEscape(arg))
	}

	return builder.String()
}

// shellEscape leaves plain words alone so the remote command line matches
// what an operator would type.
func shellEscape(value string) string {
	if value == "" {
		return "''"
	}
	if !strings.ContainsAny(value, " \t\n'\"\\$`;&|<>*?()[]{}!#~") {
		return value
	}

	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
