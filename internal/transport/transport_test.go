package transport

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/ascmdctl/internal/protocol/session"
	"github.com/danmuck/ascmdctl/internal/testutil/agenttest"
	"github.com/danmuck/ascmdctl/internal/testutil/sshtest"
	"github.com/danmuck/ascmdctl/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

func TestParseURL(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		raw  string
		want Endpoint
	}{
		{raw: "ssh://demo.example.com:33001", want: Endpoint{Host: "demo.example.com", Port: "33001"}},
		{raw: "ssh://xfer@demo.example.com", want: Endpoint{User: "xfer", Host: "demo.example.com", Port: DefaultSSHPort}},
		{raw: "10.0.0.5:22", want: Endpoint{Host: "10.0.0.5", Port: "22"}},
		{raw: "ssh://[::1]:2222", want: Endpoint{Host: "::1", Port: "2222"}},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseURL(tc.raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestParseURLRejects(t *testing.T) {
	testlog.Start(t)
	for _, raw := range []string{"", "https://demo.example.com", "ssh://host/path", "ssh://:22"} {
		if _, err := ParseURL(raw); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("expected ErrInvalidURL for %q, got %v", raw, err)
		}
	}
}

func TestSSHAddressDefaults(t *testing.T) {
	testlog.Start(t)
	r := SSH{}
	if _, err := r.address(); !errors.Is(err, ErrHostRequired) {
		t.Fatalf("expected ErrHostRequired, got %v", err)
	}
	r.Host = "node-a"
	addr, err := r.address()
	if err != nil || addr != "node-a:33001" {
		t.Fatalf("expected default agent port, got %q err=%v", addr, err)
	}
	r.Host = "node-a:22"
	if addr, _ := r.address(); addr != "node-a:22" {
		t.Fatalf("expected explicit port kept, got %q", addr)
	}
}

func TestSSHClientConfigValidation(t *testing.T) {
	testlog.Start(t)
	r := SSH{Host: "node-a"}
	if _, err := r.clientConfig(); !errors.Is(err, ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
	r.User = "xfer"
	if _, err := r.clientConfig(); !errors.Is(err, ErrNoAuth) {
		t.Fatalf("expected ErrNoAuth, got %v", err)
	}
	r.Password = "secret"
	r.InsecureSkipHostKeyChecking = true
	cfg, err := r.clientConfig()
	if err != nil || len(cfg.Auth) != 1 {
		t.Fatalf("expected password auth config, got %+v err=%v", cfg, err)
	}
}

func TestRemoteCommand(t *testing.T) {
	testlog.Start(t)
	if got := (SSH{Version: 1}).RemoteCommand(); got != "ascmd" {
		t.Fatalf("expected bare ascmd, got %q", got)
	}
	if got := (SSH{Version: 2}).RemoteCommand(); got != "ascmd -V2" {
		t.Fatalf("expected ascmd -V2, got %q", got)
	}
	if got := (SSH{Command: "/opt/my tools/ascmd", Version: 2}).RemoteCommand(); got != "'/opt/my tools/ascmd' -V2" {
		t.Fatalf("expected quoted path, got %q", got)
	}
}

func TestJoinCommandEscaping(t *testing.T) {
	testlog.Start(t)
	got := joinCommand("echo", []string{"a b", "quote'v"})
	want := "echo 'a b' 'quote'\"'\"'v'"
	if got != want {
		t.Fatalf("unexpected joined command\nwant: %s\ngot:  %s", want, got)
	}
}

func TestLocalCommand(t *testing.T) {
	testlog.Start(t)
	cmd := Local{Version: 2, Env: []string{"LANG=C"}}.command(context.Background())
	if !slices.Equal(cmd.Args, []string{"ascmd", "-V2"}) {
		t.Fatalf("unexpected args: %v", cmd.Args)
	}
	if !slices.Contains(cmd.Env, "SSH_CLIENT=") || cmd.Env[len(cmd.Env)-1] != "LANG=C" {
		t.Fatalf("unexpected env tail: %v", cmd.Env[len(cmd.Env)-2:])
	}
	cmd = Local{Path: "/usr/bin/ascmd", Version: 1}.command(context.Background())
	if !slices.Equal(cmd.Args, []string{"/usr/bin/ascmd"}) {
		t.Fatalf("unexpected v1 args: %v", cmd.Args)
	}
}

func TestValidateSSH(t *testing.T) {
	testlog.Start(t)
	base := SSH{Host: "h", User: "u", KeyPath: "/k", Passphrase: []byte("p"), KnownHostsPath: "/kh"}
	tests := []struct {
		name string
		mode SecurityMode
		mut  func(*SSH)
		want error
	}{
		{name: "production ok", mode: SecurityModeProduction, mut: func(*SSH) {}},
		{name: "default mode is development", mode: "", mut: func(r *SSH) { r.InsecureSkipHostKeyChecking = true }},
		{name: "invalid mode", mode: "staging", mut: func(*SSH) {}, want: ErrInvalidSecurityMode},
		{name: "no auth", mode: SecurityModeDevelopment, mut: func(r *SSH) { r.KeyPath = "" }, want: ErrNoAuth},
		{name: "insecure host key", mode: SecurityModeProduction, mut: func(r *SSH) { r.InsecureSkipHostKeyChecking = true }, want: ErrInsecureHostKeyNotAllow},
		{name: "no known hosts", mode: SecurityModeProduction, mut: func(r *SSH) { r.KnownHostsPath = "" }, want: ErrKnownHostsFileRequired},
		{name: "password only", mode: SecurityModeProduction, mut: func(r *SSH) { r.KeyPath = ""; r.Password = "x" }, want: ErrPasswordAuthNotAllow},
		{name: "unencrypted key", mode: SecurityModeProduction, mut: func(r *SSH) { r.Passphrase = nil }, want: ErrUnencryptedKeyNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := base
			tc.mut(&r)
			err := ValidateSSH(tc.mode, r)
			if tc.want == nil && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoggingWrappersTraceTraffic(t *testing.T) {
	testlog.Start(t)
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var logs, out bytes.Buffer
	log := zerolog.New(&logs).Level(zerolog.TraceLevel)
	w := LoggingWriter{W: &out, Log: log}
	if _, err := w.Write([]byte("as_df\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := LoggingReader{R: strings.NewReader("\x06\x00\x00\x00\x00"), Log: log}
	buf := make([]byte, 8)
	if n, err := r.Read(buf); err != nil || n != 5 {
		t.Fatalf("read: n=%d err=%v", n, err)
	}
	if out.String() != "as_df\n" {
		t.Fatalf("writer must forward bytes, got %q", out.String())
	}
	if !strings.Contains(logs.String(), "as_df") || !strings.Contains(logs.String(), "0600000000") {
		t.Fatalf("expected both directions traced, got %s", logs.String())
	}
}

func TestSSHStartRunsAgentWithKeyAuth(t *testing.T) {
	testlog.Start(t)
	fs := agenttest.NewMemFS()
	fs.WriteFile("/data/a.txt", []byte("abc"))
	srv := sshtest.Start(t, "xfer", "", fs.Agent)
	dir := t.TempDir()

	r := SSH{
		Host:           srv.Host(),
		Port:           srv.Port(),
		User:           "xfer",
		KeyPath:        srv.IssueClientKey(t, dir, []byte("hunter2")),
		Passphrase:     []byte("hunter2"),
		KnownHostsPath: srv.WriteKnownHosts(t, dir),
		Timeout:        5 * time.Second,
		Version:        2,
	}
	if err := ValidateSSH(SecurityModeProduction, r); err != nil {
		t.Fatalf("validate: %v", err)
	}
	conn, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer conn.Close()

	s, err := session.New(conn.Stdin, conn.Stdout, "", 2)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	entries, err := s.Ls("/data")
	if err != nil || len(entries) != 1 || entries[0].Name != "/data/a.txt" {
		t.Fatalf("ls over ssh: %+v err=%v", entries, err)
	}
	if err := s.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if err := conn.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if cmds := srv.Commands(); len(cmds) != 1 || cmds[0] != "ascmd -V2" {
		t.Fatalf("unexpected remote commands: %q", cmds)
	}
}

func TestSSHStartPasswordAuth(t *testing.T) {
	testlog.Start(t)
	srv := sshtest.Start(t, "xfer", "s3cret", agenttest.NewMemFS().Agent)
	r := SSH{
		Host:                        srv.Host(),
		Port:                        srv.Port(),
		User:                        "xfer",
		Password:                    "s3cret",
		InsecureSkipHostKeyChecking: true,
		Timeout:                     5 * time.Second,
		Version:                     1,
	}
	conn, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer conn.Close()
	s, err := session.New(conn.Stdin, conn.Stdout, "", 1)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if _, err := s.Df(); err != nil {
		t.Fatalf("df over ssh: %v", err)
	}
}

func TestSSHStartRejectsUnknownHostKey(t *testing.T) {
	testlog.Start(t)
	srv := sshtest.Start(t, "xfer", "s3cret", agenttest.NewMemFS().Agent)
	other := sshtest.Start(t, "xfer", "s3cret", agenttest.NewMemFS().Agent)
	dir := t.TempDir()
	r := SSH{
		Host:           srv.Host(),
		Port:           srv.Port(),
		User:           "xfer",
		Password:       "s3cret",
		KnownHostsPath: other.WriteKnownHosts(t, dir),
		Timeout:        5 * time.Second,
	}
	if _, err := r.Start(context.Background()); err == nil {
		t.Fatalf("expected host key verification failure")
	}
}
