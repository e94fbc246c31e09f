package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/ascmdctl/internal/config"
	"github.com/danmuck/ascmdctl/internal/gateway"
	"github.com/rs/zerolog"
)

// gatewayFile overrides the gateway section of the client profile for one
// serve invocation.
type gatewayFile struct {
	ID                   string   `toml:"id"`
	Addr                 string   `toml:"addr"`
	BasePath             string   `toml:"base_path"`
	CorsOrigins          []string `toml:"cors_origins"`
	Token                string   `toml:"token"`
	MaxReconnectAttempts int      `toml:"max_reconnect_attempts"`
	Backoff              string   `toml:"backoff"`
	MaxBackoff           string   `toml:"max_backoff"`
	CommandTimeout       string   `toml:"command_timeout"`
	ShutdownTimeout      string   `toml:"shutdown_timeout"`
}

func gatewayConfig(cfg config.ClientConfig, logger zerolog.Logger) gateway.Config {
	out := gateway.DefaultConfig()
	out.Addr = cfg.Gateway.Addr
	out.BasePath = cfg.Gateway.BasePath
	out.CorsOrigins = cfg.Gateway.CorsOrigins
	out.Token = cfg.Gateway.Token
	out.MaxReconnectAttempts = cfg.Gateway.MaxReconnectAttempts
	out.Logger = logger
	return out
}

func loadGatewayOverrides(path string, cfg gateway.Config) (gateway.Config, error) {
	var raw gatewayFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return gateway.Config{}, fmt.Errorf("load gateway config: %w", err)
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.ID = id
		}
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("base_path") {
		cfg.BasePath = strings.TrimSpace(raw.BasePath)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if meta.IsDefined("token") {
		cfg.Token = strings.TrimSpace(raw.Token)
	}
	if meta.IsDefined("max_reconnect_attempts") {
		cfg.MaxReconnectAttempts = raw.MaxReconnectAttempts
	}
	if meta.IsDefined("backoff") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Backoff))
		if err != nil {
			return gateway.Config{}, fmt.Errorf("parse backoff: %w", err)
		}
		cfg.Backoff.InitialDelay = d
	}
	if meta.IsDefined("max_backoff") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.MaxBackoff))
		if err != nil {
			return gateway.Config{}, fmt.Errorf("parse max_backoff: %w", err)
		}
		cfg.Backoff.MaxDelay = d
	}
	if meta.IsDefined("command_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CommandTimeout))
		if err != nil {
			return gateway.Config{}, fmt.Errorf("parse command_timeout: %w", err)
		}
		cfg.CommandTimeout = d
	}
	if meta.IsDefined("shutdown_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ShutdownTimeout))
		if err != nil {
			return gateway.Config{}, fmt.Errorf("parse shutdown_timeout: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return gateway.Config{}, fmt.Errorf("unknown gateway config key %q", undecoded[0].String())
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func serve(ctx context.Context, cfg config.ClientConfig, opts options, logger zerolog.Logger) error {
	gcfg := gatewayConfig(cfg, logger)
	if opts.gatewayPath != "" {
		var err error
		if gcfg, err = loadGatewayOverrides(opts.gatewayPath, gcfg); err != nil {
			return err
		}
	}
	starter, scfg, err := sessionStarter(cfg, logger)
	if err != nil {
		return err
	}
	g := gateway.New(gcfg, gateway.StarterDialer{Starter: starter, Session: scfg, Trace: opts.trace})
	if err := g.Connect(ctx); err != nil {
		logger.Warn().Err(err).Msg("agent not reachable yet; requests will retry")
	}
	return g.Run(ctx)
}

func runConfig(opts options, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("config needs init or validate")
	}
	switch args[0] {
	case "init":
		kind := "ssh"
		if len(args) > 1 {
			kind = args[1]
		}
		if err := config.WriteTemplate(opts.configPath, kind, opts.force); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s profile to %s\n", kind, opts.configPath)
		return nil
	case "validate":
		if _, err := config.LoadClientConfig(opts.configPath); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "validated %s\n", opts.configPath)
		return nil
	default:
		return fmt.Errorf("unknown config command %q", args[0])
	}
}
