package transport

import (
	"errors"
	"fmt"
	"strings"
)

type SecurityMode string

const (
	SecurityModeDevelopment SecurityMode = "development"
	SecurityModeProduction  SecurityMode = "production"
)

var (
	ErrInvalidSecurityMode      = errors.New("transport: invalid security mode")
	ErrInsecureHostKeyNotAllow  = errors.New("transport: insecure host key checking not allowed")
	ErrPasswordAuthNotAllow     = errors.New("transport: password auth not allowed")
	ErrKnownHostsFileRequired   = errors.New("transport: known hosts file required")
	ErrUnencryptedKeyNotAllowed = errors.New("transport: unencrypted private key not allowed")
)

func NormalizeSecurityMode(mode SecurityMode) SecurityMode {
	if strings.TrimSpace(string(mode)) == "" {
		return SecurityModeDevelopment
	}
	return SecurityMode(strings.ToLower(strings.TrimSpace(string(mode))))
}

// ValidateSSH checks r against mode. Development accepts anything that can
// authenticate. Production requires verified host keys and key-only auth.
func ValidateSSH(mode SecurityMode, r SSH) error {
	normalized := NormalizeSecurityMode(mode)
	switch normalized {
	case SecurityModeDevelopment, SecurityModeProduction:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSecurityMode, mode)
	}

	if strings.TrimSpace(r.Host) == "" {
		return ErrHostRequired
	}
	if strings.TrimSpace(r.User) == "" {
		return ErrUserRequired
	}
	if r.KeyPath == "" && r.Password == "" {
		return ErrNoAuth
	}

	if normalized == SecurityModeProduction {
		if r.InsecureSkipHostKeyChecking {
			return ErrInsecureHostKeyNotAllow
		}
		if strings.TrimSpace(r.KnownHostsPath) == "" {
			return ErrKnownHostsFileRequired
		}
		if r.KeyPath == "" {
			return ErrPasswordAuthNotAllow
		}
		if len(r.Passphrase) == 0 {
			return ErrUnencryptedKeyNotAllowed
		}
	}
	return nil
}
