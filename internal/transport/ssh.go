package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

var (
	ErrHostRequired = errors.New("transport: ssh host is required")
	ErrUserRequired = errors.New("transport: ssh user is required")
	ErrNoAuth       = errors.New("transport: ssh key path or password is required")
)

// SSH runs the agent on an exec channel of a remote SSH server.
type SSH struct {
	Host                        string
	Port                        string
	User                        string
	Password                    string
	KeyPath                     string
	Passphrase                  []byte
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
	// Command overrides the agent executable name.
	Command string
	Version uint32
}

// RemoteCommand is the command line sent on the exec channel.
func (r SSH) RemoteCommand() string {
	cmd := r.Command
	if cmd == "" {
		cmd = DefaultCommand
	}
	return joinCommand(cmd, versionArgs(r.Version))
}

func (r SSH) Start(ctx context.Context) (*Conn, error) {
	client, err := r.dial(ctx)
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("transport: ssh session: %w", err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("transport: ssh stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("transport: ssh stdout: %w", err)
	}
	if err := session.Start(r.RemoteCommand()); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("transport: ssh start %q: %w", r.RemoteCommand(), err)
	}

	conn := newConn(stdin, stdout, session.Wait, session.Close, client.Close)
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	conn.closers = append(conn.closers, func() error {
		stop()
		return nil
	})
	return conn, nil
}

func (r SSH) dial(ctx context.Context) (*ssh.Client, error) {
	address, err := r.address()
	if err != nil {
		return nil, err
	}

	config, err := r.clientConfig()
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: r.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", address, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: ssh handshake %s: %w", address, err)
	}

	return ssh.NewClient(clientConn, chans, reqs), nil
}

func (r SSH) address() (string, error) {
	host := strings.TrimSpace(r.Host)
	if host == "" {
		return "", ErrHostRequired
	}

	if r.Port != "" {
		return net.JoinHostPort(host, r.Port), nil
	}

	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}

	return net.JoinHostPort(host, DefaultSSHPort), nil
}

func (r SSH) clientConfig() (*ssh.ClientConfig, error) {
	if r.User == "" {
		return nil, ErrUserRequired
	}

	auth, err := r.authMethods()
	if err != nil {
		return nil, err
	}

	var hostKeyCallback ssh.HostKeyCallback
	if r.InsecureSkipHostKeyChecking {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		callback, err := r.knownHostsCallback()
		if err != nil {
			return nil, err
		}
		hostKeyCallback = callback
	}

	return &ssh.ClientConfig{
		User:            r.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         r.Timeout,
	}, nil
}

// authMethods prefers the key and falls back to the password when both are
// set.
func (r SSH) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if r.KeyPath != "" {
		signer, err := r.signer()
		if err != nil {
			return nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if r.Password != "" {
		methods = append(methods, ssh.Password(r.Password))
	}
	if len(methods) == 0 {
		return nil, ErrNoAuth
	}
	return methods, nil
}

func (r SSH) signer() (ssh.Signer, error) {
	privateKey, err := os.ReadFile(r.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("transport: read key: %w", err)
	}

	if len(r.Passphrase) > 0 {
		return ssh.ParsePrivateKeyWithPassphrase(privateKey, r.Passphrase)
	}

	return ssh.ParsePrivateKey(privateKey)
}

func (r SSH) knownHostsCallback() (ssh.HostKeyCallback, error) {
	path := strings.TrimSpace(r.KnownHostsPath)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("transport: known hosts path not set and home dir unavailable")
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	return knownhosts.New(path)
}
