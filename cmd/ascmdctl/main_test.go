package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/ascmdctl/internal/config"
	"github.com/danmuck/ascmdctl/internal/protocol"
	"github.com/danmuck/ascmdctl/internal/protocol/command"
	"github.com/danmuck/ascmdctl/internal/protocol/session"
	"github.com/danmuck/ascmdctl/internal/testutil/agenttest"
	"github.com/danmuck/ascmdctl/internal/testutil/testlog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func openMem(t *testing.T, fs *agenttest.MemFS) (*session.Session, *agenttest.Agent, *agenttest.Conn) {
	t.Helper()
	agent := fs.Agent()
	conn := agenttest.Start(t, agent)
	s, err := session.New(conn.Stdin, conn.Stdout, "", 2)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s, agent, conn
}

func TestRunVerbAgainstMemFS(t *testing.T) {
	testlog.Start(t)
	fs := agenttest.NewMemFS()
	fs.WriteFile("/data/a.txt", []byte("hello"))
	s, _, _ := openMem(t, fs)

	out, err := runVerb(s, "ls", []string{"/data"})
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	entries, ok := out.([]protocol.Stat)
	if !ok || len(entries) != 1 || entries[0].Name != "/data/a.txt" {
		t.Fatalf("unexpected ls output: %#v", out)
	}

	out, err = runVerb(s, "md5sum", []string{"/data/a.txt"})
	if err != nil {
		t.Fatalf("md5sum: %v", err)
	}
	var buf bytes.Buffer
	if err := writeJSON(&buf, out); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if !strings.Contains(buf.String(), "5d41402abc4b2a76b9719d911017c592") {
		t.Fatalf("unexpected md5sum json: %s", buf.String())
	}

	if _, err := runVerb(s, "cp", []string{"/data/a.txt", "/data/b.txt"}); err != nil {
		t.Fatalf("cp: %v", err)
	}
	if !fs.Exists("/data/b.txt") {
		t.Fatalf("expected cp applied")
	}

	if _, err := runVerb(s, "frobnicate", nil); err == nil {
		t.Fatalf("expected unknown command error")
	}
	if _, err := runVerb(s, "cp", []string{"/only-one"}); err == nil {
		t.Fatalf("expected arity error")
	}
	if s.State() != session.StateActive {
		t.Fatalf("argument errors must not touch the session, state=%v", s.State())
	}
}

func TestSelftestRunsFullSequence(t *testing.T) {
	testlog.Start(t)
	fs := agenttest.NewMemFS()
	fs.WriteFile("/data/file.txt", []byte("payload"))
	s, agent, conn := openMem(t, fs)

	if err := selftest(s, "/data/file.txt", "/data", log.Logger); err != nil {
		t.Fatalf("selftest: %v", err)
	}
	if err := conn.Wait(); err != nil {
		t.Fatalf("agent: %v", err)
	}

	var verbs []string
	for _, req := range agent.Requests() {
		verbs = append(verbs, req.Verb)
	}
	want := []string{
		command.VerbSessionInit, command.VerbInfo, command.VerbDf,
		command.VerbLs, command.VerbLs, command.VerbMd5sum, command.VerbDu,
		command.VerbCp, command.VerbMv, command.VerbRm,
		command.VerbMkdir, command.VerbRm, command.VerbExit,
	}
	if !slices.Equal(verbs, want) {
		t.Fatalf("unexpected sequence\nwant: %v\ngot:  %v", want, verbs)
	}
	for _, p := range []string{"/data/copied_file", "/data/todelete_file", "/data/todelete_dir"} {
		if fs.Exists(p) {
			t.Fatalf("expected %s cleaned up", p)
		}
	}
	if !fs.Exists("/data/file.txt") {
		t.Fatalf("existing file must survive")
	}
}

func TestSelftestStopsOnOperationError(t *testing.T) {
	testlog.Start(t)
	fs := agenttest.NewMemFS()
	fs.WriteFile("/data/file.txt", []byte("payload"))
	s, _, _ := openMem(t, fs)

	err := selftest(s, "/missing.txt", "/data", zerolog.Nop())
	if err == nil || !strings.HasPrefix(err.Error(), "ls file:") {
		t.Fatalf("expected ls file failure, got %v", err)
	}
	if session.Classify(err) != session.KindOperation {
		t.Fatalf("expected operation error, got %v", session.Classify(err))
	}
}

func TestLoadGatewayOverrides(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "gateway.toml")
	body := `
id = "edge-gw"
addr = "127.0.0.1:9400"
base_path = "/api"
cors_origins = [" http://a.example ", ""]
max_reconnect_attempts = 2
backoff = "100ms"
command_timeout = "3s"
shutdown_timeout = "2s"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	base := gatewayConfig(config.DefaultClientConfig(), zerolog.Nop())
	base.Token = "kept"
	cfg, err := loadGatewayOverrides(path, base)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ID != "edge-gw" || cfg.Addr != "127.0.0.1:9400" || cfg.BasePath != "/api" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if !slices.Equal(cfg.CorsOrigins, []string{"http://a.example"}) {
		t.Fatalf("unexpected origins: %v", cfg.CorsOrigins)
	}
	if cfg.MaxReconnectAttempts != 2 || cfg.Backoff.InitialDelay != 100*time.Millisecond || cfg.ShutdownTimeout != 2*time.Second || cfg.CommandTimeout != 3*time.Second {
		t.Fatalf("unexpected timings: %+v", cfg)
	}
	if cfg.Token != "kept" || cfg.Backoff.MaxDelay != base.Backoff.MaxDelay {
		t.Fatalf("undefined keys must keep their values: %+v", cfg)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("addr = \":1\"\nlisten = \":2\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadGatewayOverrides(bad, base); err == nil || !strings.Contains(err.Error(), "listen") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestRunConfigInitAndValidate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "ascmd.toml")
	var out, errOut bytes.Buffer

	if err := run(context.Background(), []string{"-config", path, "config", "init", "local"}, &out, &errOut); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := run(context.Background(), []string{"-config", path, "config", "init", "local"}, &out, &errOut); err == nil {
		t.Fatalf("expected init to refuse overwrite")
	}
	if err := run(context.Background(), []string{"-config", path, "-force", "config", "init", "ssh"}, &out, &errOut); err != nil {
		t.Fatalf("forced init: %v", err)
	}
	if err := run(context.Background(), []string{"-config", path, "config", "validate"}, &out, &errOut); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out.String(), "validated "+path) {
		t.Fatalf("unexpected output: %s", out.String())
	}
	if err := run(context.Background(), nil, &out, &errOut); err == nil {
		t.Fatalf("expected missing command error")
	}
}

func TestLoadProfileFlagOverrides(t *testing.T) {
	testlog.Start(t)
	opts := options{
		configPath: filepath.Join(t.TempDir(), "absent.toml"),
		local:      true,
		protocol:   1,
	}
	cfg, err := loadProfile(opts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Agent.Local || cfg.Agent.Protocol != 1 {
		t.Fatalf("expected flag overrides applied, got %+v", cfg.Agent)
	}

	t.Setenv(EnvPassword, "from-env")
	opts = options{
		configPath: filepath.Join(t.TempDir(), "absent.toml"),
		url:        "ssh://xfer@demo.example.com",
	}
	cfg, err = loadProfile(opts)
	if err != nil {
		t.Fatalf("load remote: %v", err)
	}
	if cfg.Server.Password != "from-env" || cfg.Server.URL != "ssh://xfer@demo.example.com" {
		t.Fatalf("expected env password and url override, got %+v", cfg.Server)
	}
}
