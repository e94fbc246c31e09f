package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/ascmdctl/internal/config"
	"github.com/danmuck/ascmdctl/internal/observability"
	"github.com/danmuck/ascmdctl/internal/protocol/session"
	"github.com/danmuck/ascmdctl/internal/transport"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const usage = `usage: ascmdctl [flags] <command> [args]

commands:
  info | df
  ls <path> | du <path> | md5sum <path> | mkdir <path> | rm <path>
  cp <src> <dst> | mv <src> <dst>
  selftest <existing-file> <writable-folder>
  serve
  config init [kind] | config validate

flags:
`

const EnvPassword = "ASCMD_PASSWORD"

type options struct {
	configPath  string
	gatewayPath string
	local       bool
	protocol    uint
	url         string
	trace       bool
	force       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "ascmdctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("ascmdctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "ascmd.toml", "client profile path")
	fs.StringVar(&opts.gatewayPath, "gateway", "", "gateway overrides file for serve")
	fs.BoolVar(&opts.local, "local", false, "run the local ascmd binary instead of ssh")
	fs.UintVar(&opts.protocol, "protocol", 0, "agent protocol version (1 or 2)")
	fs.StringVar(&opts.url, "url", "", "server url, overrides the profile")
	fs.BoolVar(&opts.trace, "trace", false, "log every byte exchanged with the agent")
	fs.BoolVar(&opts.force, "force", false, "overwrite an existing file on config init")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	if rest[0] == "config" {
		return runConfig(opts, rest[1:], stdout)
	}

	cfg, err := loadProfile(opts)
	if err != nil {
		return err
	}
	logger := observability.InitLogger("ascmdctl", cfg.Log.Level)
	if opts.trace {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	switch rest[0] {
	case "serve":
		return serve(ctx, cfg, opts, logger)
	case "selftest":
		if len(rest) != 3 {
			return errors.New("selftest needs <existing-file> <writable-folder>")
		}
		return withSession(ctx, cfg, opts, logger, func(s *session.Session) error {
			return selftest(s, rest[1], rest[2], logger)
		})
	default:
		return withSession(ctx, cfg, opts, logger, func(s *session.Session) error {
			out, err := runVerb(s, rest[0], rest[1:])
			if err != nil {
				return err
			}
			return writeJSON(stdout, out)
		})
	}
}

// loadProfile reads the client profile and applies flag overrides. A missing
// default profile is tolerated when -local or -url says enough.
func loadProfile(opts options) (config.ClientConfig, error) {
	cfg := config.DefaultClientConfig()
	if _, err := os.Stat(opts.configPath); err == nil {
		loaded, err := config.LoadClientConfig(opts.configPath)
		if err != nil && !(opts.local || opts.url != "") {
			return config.ClientConfig{}, err
		}
		if err == nil {
			cfg = loaded
		}
	}
	if opts.local {
		cfg.Agent.Local = true
	}
	if opts.url != "" {
		cfg.Server.URL = opts.url
	}
	if opts.protocol != 0 {
		cfg.Agent.Protocol = uint32(opts.protocol)
	}
	if !cfg.Agent.Local && cfg.Server.Password == "" && cfg.Server.KeyPath == "" {
		password, err := readPassword()
		if err != nil {
			return config.ClientConfig{}, err
		}
		cfg.Server.Password = password
	}
	if err := config.ValidateClientConfig(cfg); err != nil {
		return config.ClientConfig{}, err
	}
	return cfg, nil
}

func readPassword() (string, error) {
	if v := os.Getenv(EnvPassword); v != "" {
		return v, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password configured; set %s", EnvPassword)
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func sessionStarter(cfg config.ClientConfig, logger zerolog.Logger) (transport.Starter, session.Config, error) {
	starter, err := cfg.Starter()
	if err != nil {
		return nil, session.Config{}, err
	}
	scfg := session.DefaultConfig()
	scfg.Version = cfg.Agent.Protocol
	scfg.Logger = logger
	if ssh, ok := starter.(transport.SSH); ok {
		scfg.Host = ssh.Host
	}
	return starter, scfg, nil
}

// withSession starts the agent, runs fn and terminates. Cancelling ctx
// closes the transport, which unblocks any pending read.
func withSession(ctx context.Context, cfg config.ClientConfig, opts options, logger zerolog.Logger, fn func(*session.Session) error) error {
	starter, scfg, err := sessionStarter(cfg, logger)
	if err != nil {
		return err
	}
	conn, err := starter.Start(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var (
		w io.Writer = conn.Stdin
		r io.Reader = conn.Stdout
	)
	if opts.trace {
		w, r = transport.Trace(conn, logger)
	}
	s, err := session.Open(w, r, scfg)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	if err := fn(s); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	}
	if s.State() == session.StateTerminated {
		return conn.Wait()
	}
	if err := s.Terminate(); err != nil {
		return err
	}
	return conn.Wait()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
