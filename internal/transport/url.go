package transport

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var ErrInvalidURL = errors.New("transport: invalid server url")

// Endpoint is a parsed ssh://[user@]host[:port] server address.
type Endpoint struct {
	User string
	Host string
	Port string
}

func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, e.Port)
}

// ParseURL accepts ssh:// URLs and bare host[:port] strings. The port
// defaults to DefaultSSHPort.
func ParseURL(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "ssh://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "ssh" {
		return Endpoint{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Path != "" && u.Path != "/" {
		return Endpoint{}, fmt.Errorf("%w: unexpected path %q", ErrInvalidURL, u.Path)
	}
	ep := Endpoint{Host: u.Hostname(), Port: u.Port()}
	if ep.Host == "" {
		return Endpoint{}, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if ep.Port == "" {
		ep.Port = DefaultSSHPort
	}
	if u.User != nil {
		ep.User = u.User.Username()
	}
	return ep, nil
}
