package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/ascmdctl/internal/testutil/testlog"
	"github.com/danmuck/ascmdctl/internal/transport"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ascmd.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestTemplatesLoadAndValidate(t *testing.T) {
	testlog.Start(t)
	for _, kind := range []string{"ssh", "local"} {
		t.Run(kind, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), kind+".toml")
			if err := WriteTemplate(path, kind, false); err != nil {
				t.Fatalf("write template: %v", err)
			}
			if err := WriteTemplate(path, kind, false); err == nil {
				t.Fatalf("expected existing file to be kept")
			}
			if _, err := LoadClientConfig(path); err != nil {
				t.Fatalf("load template: %v", err)
			}
		})
	}
	if _, err := Template("ftp"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestLoadClientConfigAppliesDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
[server]
url = "ssh://xfer@demo.example.com"
password = "demoaspera"
`)
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Agent.Protocol != 2 || cfg.Gateway.Addr != ":9300" || cfg.Gateway.MaxReconnectAttempts != 5 {
		t.Fatalf("expected defaults kept, got %+v", cfg)
	}

	r, err := cfg.SSH()
	if err != nil {
		t.Fatalf("ssh: %v", err)
	}
	if r.Host != "demo.example.com" || r.Port != transport.DefaultSSHPort || r.User != "xfer" {
		t.Fatalf("unexpected endpoint: %+v", r)
	}
	if r.Timeout != 10*time.Second || r.Version != 2 || r.Command != "ascmd" {
		t.Fatalf("unexpected ssh settings: %+v", r)
	}
	if len(r.Passphrase) != 0 {
		t.Fatalf("expected no passphrase, got %q", r.Passphrase)
	}

	starter, err := cfg.Starter()
	if err != nil {
		t.Fatalf("starter: %v", err)
	}
	if _, ok := starter.(transport.SSH); !ok {
		t.Fatalf("expected ssh starter, got %T", starter)
	}
}

func TestLocalStarter(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultClientConfig()
	cfg.Agent.Local = true
	cfg.Agent.Protocol = 1
	if err := ValidateClientConfig(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	starter, err := cfg.Starter()
	if err != nil {
		t.Fatalf("starter: %v", err)
	}
	local, ok := starter.(transport.Local)
	if !ok || local.Version != 1 || local.Path != "ascmd" {
		t.Fatalf("unexpected local starter: %#v", starter)
	}
}

func TestValidateClientConfigRejects(t *testing.T) {
	testlog.Start(t)
	base := DefaultClientConfig()
	base.Server.URL = "ssh://demo.example.com:33001"
	base.Server.Username = "xfer"
	base.Server.Password = "secret"

	tests := []struct {
		name string
		mut  func(*ClientConfig)
		want error
	}{
		{name: "protocol", mut: func(c *ClientConfig) { c.Agent.Protocol = 3 }, want: ErrInvalidConfig},
		{name: "timeout", mut: func(c *ClientConfig) { c.Server.Timeout = "soon" }, want: ErrInvalidConfig},
		{name: "log level", mut: func(c *ClientConfig) { c.Log.Level = "chatty" }, want: ErrInvalidConfig},
		{name: "base path", mut: func(c *ClientConfig) { c.Gateway.BasePath = "api" }, want: ErrInvalidConfig},
		{name: "reconnects", mut: func(c *ClientConfig) { c.Gateway.MaxReconnectAttempts = -1 }, want: ErrInvalidConfig},
		{name: "missing url", mut: func(c *ClientConfig) { c.Server.URL = "" }, want: ErrInvalidConfig},
		{name: "bad url", mut: func(c *ClientConfig) { c.Server.URL = "https://x" }, want: transport.ErrInvalidURL},
		{name: "no user", mut: func(c *ClientConfig) { c.Server.Username = "" }, want: transport.ErrUserRequired},
		{name: "production password", mut: func(c *ClientConfig) {
			c.Server.SecurityMode = "production"
			c.Server.KnownHosts = "/etc/ssh/known_hosts"
		}, want: transport.ErrPasswordAuthNotAllow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mut(&cfg)
			if err := ValidateClientConfig(cfg); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if err := ValidateClientConfig(base); err != nil {
		t.Fatalf("expected base config valid, got %v", err)
	}
}

func TestLoadClientConfigParseError(t *testing.T) {
	testlog.Start(t)
	if _, err := LoadClientConfig(writeConfig(t, "[server\nurl=")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := LoadClientConfig(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
