package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/ascmdctl/internal/logging"
	"github.com/danmuck/ascmdctl/internal/transport"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("config: invalid")

// ClientConfig is the on-disk profile for one agent endpoint.
type ClientConfig struct {
	Server  ServerConfig  `toml:"server"`
	Agent   AgentConfig   `toml:"agent"`
	Gateway GatewayConfig `toml:"gateway"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	URL                 string `toml:"url"`
	Username            string `toml:"username"`
	Password            string `toml:"password"`
	KeyPath             string `toml:"key_path"`
	Passphrase          string `toml:"passphrase"`
	KnownHosts          string `toml:"known_hosts"`
	InsecureSkipHostKey bool   `toml:"insecure_skip_host_key"`
	Timeout             string `toml:"timeout"`
	SecurityMode        string `toml:"security_mode"`
}

type AgentConfig struct {
	Protocol uint32 `toml:"protocol"`
	Local    bool   `toml:"local"`
	Path     string `toml:"path"`
}

type GatewayConfig struct {
	Addr                 string   `toml:"addr"`
	BasePath             string   `toml:"base_path"`
	CorsOrigins          []string `toml:"cors_origins"`
	Token                string   `toml:"token"`
	MaxReconnectAttempts int      `toml:"max_reconnect_attempts"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Server: ServerConfig{
			Timeout:      "10s",
			SecurityMode: string(transport.SecurityModeDevelopment),
		},
		Agent: AgentConfig{
			Protocol: 2,
			Path:     transport.DefaultCommand,
		},
		Gateway: GatewayConfig{
			Addr:                 ":9300",
			MaxReconnectAttempts: 5,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadClientConfig reads path over the defaults and validates the result.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	switch cfg.Agent.Protocol {
	case 1, 2:
	default:
		return fmt.Errorf("%w: agent protocol must be 1 or 2, got %d", ErrInvalidConfig, cfg.Agent.Protocol)
	}
	if _, err := cfg.Server.timeout(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Log.Level) != "" {
		if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
			return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, cfg.Log.Level)
		}
	}
	if cfg.Gateway.MaxReconnectAttempts < 0 {
		return fmt.Errorf("%w: gateway max_reconnect_attempts must be >= 0", ErrInvalidConfig)
	}
	if bp := strings.TrimSpace(cfg.Gateway.BasePath); bp != "" && !strings.HasPrefix(bp, "/") {
		return fmt.Errorf("%w: gateway base_path must start with /", ErrInvalidConfig)
	}
	if cfg.Agent.Local {
		return nil
	}
	if strings.TrimSpace(cfg.Server.URL) == "" {
		return fmt.Errorf("%w: server url is required unless agent.local is set", ErrInvalidConfig)
	}
	r, err := cfg.SSH()
	if err != nil {
		return err
	}
	if err := transport.ValidateSSH(transport.SecurityMode(cfg.Server.SecurityMode), r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (s ServerConfig) timeout() (time.Duration, error) {
	raw := strings.TrimSpace(s.Timeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: parse server timeout: %w", ErrInvalidConfig, err)
	}
	return d, nil
}

// SSH converts the server section into an SSH transport. The URL user wins
// over username when both are set.
func (c ClientConfig) SSH() (transport.SSH, error) {
	ep, err := transport.ParseURL(c.Server.URL)
	if err != nil {
		return transport.SSH{}, err
	}
	timeout, err := c.Server.timeout()
	if err != nil {
		return transport.SSH{}, err
	}
	user := ep.User
	if user == "" {
		user = strings.TrimSpace(c.Server.Username)
	}
	r := transport.SSH{
		Host:                        ep.Host,
		Port:                        ep.Port,
		User:                        user,
		Password:                    c.Server.Password,
		KeyPath:                     expandHome(c.Server.KeyPath),
		KnownHostsPath:              expandHome(c.Server.KnownHosts),
		InsecureSkipHostKeyChecking: c.Server.InsecureSkipHostKey,
		Timeout:                     timeout,
		Command:                     c.Agent.Path,
		Version:                     c.Agent.Protocol,
	}
	if c.Server.Passphrase != "" {
		r.Passphrase = []byte(c.Server.Passphrase)
	}
	return r, nil
}

func (c ClientConfig) Local() transport.Local {
	return transport.Local{Path: c.Agent.Path, Version: c.Agent.Protocol}
}

// Starter picks the transport the profile describes.
func (c ClientConfig) Starter() (transport.Starter, error) {
	if c.Agent.Local {
		return c.Local(), nil
	}
	return c.SSH()
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}
