package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Local runs the agent as a child process.
type Local struct {
	Path    string
	Version uint32
	// Env is appended after the inherited environment.
	Env    []string
	Stderr io.Writer
}

func (l Local) command(ctx context.Context) *exec.Cmd {
	path := l.Path
	if path == "" {
		path = DefaultCommand
	}
	cmd := exec.CommandContext(ctx, path, versionArgs(l.Version)...)
	// An empty SSH_CLIENT tells the agent it runs locally.
	cmd.Env = append(append(os.Environ(), "SSH_CLIENT="), l.Env...)
	if l.Stderr != nil {
		cmd.Stderr = l.Stderr
	}
	return cmd
}

func (l Local) Start(ctx context.Context) (*Conn, error) {
	cmd := l.command(ctx)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("transport: open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("transport: open stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("transport: start %s: %w", cmd.Path, err)
	}
	return newConn(stdin, stdout, cmd.Wait), nil
}
