package session

import (
	"bufio"
	"fmt"
	"io"

	"github.com/danmuck/ascmdctl/internal/protocol"
	"github.com/danmuck/ascmdctl/internal/protocol/command"
	"github.com/danmuck/ascmdctl/internal/protocol/frame"
	"github.com/rs/zerolog"
)

type State int

const (
	StateUninitialized State = iota
	StateNegotiated
	StateActive
	StateTerminated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateNegotiated:
		return "negotiated"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type flusher interface {
	Flush() error
}

// Session drives one ascmd agent over a duplex byte stream. Every command
// is one request line followed by exactly one reply frame. A Session is not
// safe for concurrent use.
type Session struct {
	w       io.Writer
	r       *bufio.Reader
	host    string
	version uint32
	limits  frame.Limits
	log     zerolog.Logger

	state   State
	failure error
}

// New opens a session with default limits and no logging.
func New(w io.Writer, r io.Reader, host string, version uint32) (*Session, error) {
	cfg := DefaultConfig()
	cfg.Host = host
	cfg.Version = version
	return Open(w, r, cfg)
}

// Open negotiates the protocol version and returns an active session.
// Version 1 needs no handshake. Version 2 sends session_init and requires
// an info reply.
func Open(w io.Writer, r io.Reader, cfg Config) (*Session, error) {
	s := &Session{
		w:       w,
		r:       bufio.NewReader(r),
		host:    cfg.Host,
		version: cfg.Version,
		limits:  frame.Limits{MaxValueBytes: cfg.MaxFrameBytes},
		log:     cfg.Logger,
		state:   StateUninitialized,
	}
	switch cfg.Version {
	case 1:
		s.state = StateActive
	case 2:
		if err := s.handshake(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, cfg.Version)
	}
	return s, nil
}

func (s *Session) handshake() error {
	if err := s.send(command.SessionInit(s.version, s.host)); err != nil {
		return s.fail(err)
	}
	s.state = StateNegotiated
	res, err := s.read()
	if err != nil {
		return s.fail(err)
	}
	info, ok := res.(protocol.Info)
	if !ok {
		return s.fail(fmt.Errorf("%w: expected info, got %s", ErrHandshake, protocol.ResultName(res)))
	}
	s.log.Debug().
		Str("platform", info.Platform).
		Str("version", info.Version).
		Uint64("protocol", info.Protocol).
		Strs("dev", info.Dev).
		Msg("ascmd session negotiated")
	s.state = StateActive
	return nil
}

func (s *Session) Version() uint32 {
	return s.version
}

func (s *Session) State() State {
	return s.state
}

// Err returns the error that failed the session, if any.
func (s *Session) Err() error {
	return s.failure
}

func (s *Session) Ls(path string) ([]protocol.Stat, error) {
	res, err := s.roundTrip(command.VerbLs, command.Path(path))
	if err != nil {
		return nil, err
	}
	switch v := res.(type) {
	case protocol.Dir:
		return []protocol.Stat(v), nil
	case protocol.File:
		return []protocol.Stat{v.Stat}, nil
	default:
		return nil, s.unexpected(command.VerbLs, res)
	}
}

func (s *Session) Rm(path string) error {
	return s.expectSuccess(command.VerbRm, command.Path(path))
}

func (s *Session) Du(path string) (protocol.Size, error) {
	res, err := s.roundTrip(command.VerbDu, command.Path(path))
	if err != nil {
		return protocol.Size{}, err
	}
	sz, ok := res.(protocol.Size)
	if !ok {
		return protocol.Size{}, s.unexpected(command.VerbDu, res)
	}
	return sz, nil
}

func (s *Session) Mkdir(path string) error {
	return s.expectSuccess(command.VerbMkdir, command.Path(path))
}

func (s *Session) Cp(src, dst string) error {
	return s.expectSuccess(command.VerbCp, command.Path(src), command.Path(dst))
}

func (s *Session) Mv(src, dst string) error {
	return s.expectSuccess(command.VerbMv, command.Path(src), command.Path(dst))
}

func (s *Session) Df() (protocol.Mounts, error) {
	res, err := s.roundTrip(command.VerbDf)
	if err != nil {
		return protocol.Mounts{}, err
	}
	m, ok := res.(protocol.Mounts)
	if !ok {
		return protocol.Mounts{}, s.unexpected(command.VerbDf, res)
	}
	return m, nil
}

func (s *Session) Md5sum(path string) (string, error) {
	res, err := s.roundTrip(command.VerbMd5sum, command.Path(path))
	if err != nil {
		return "", err
	}
	sum, ok := res.(protocol.Md5sum)
	if !ok {
		return "", s.unexpected(command.VerbMd5sum, res)
	}
	return string(sum), nil
}

func (s *Session) Info() (protocol.Info, error) {
	res, err := s.roundTrip(command.VerbInfo)
	if err != nil {
		return protocol.Info{}, err
	}
	info, ok := res.(protocol.Info)
	if !ok {
		return protocol.Info{}, s.unexpected(command.VerbInfo, res)
	}
	return info, nil
}

// Terminate asks the agent to exit. The agent sends no reply, so nothing
// is read.
func (s *Session) Terminate() error {
	if err := s.usable(); err != nil {
		return err
	}
	if err := s.send(command.Encode(command.VerbExit)); err != nil {
		return s.fail(err)
	}
	s.state = StateTerminated
	return nil
}

func (s *Session) expectSuccess(verb string, args ...command.Arg) error {
	res, err := s.roundTrip(verb, args...)
	if err != nil {
		return err
	}
	if _, ok := res.(protocol.Success); !ok {
		return s.unexpected(verb, res)
	}
	return nil
}

// roundTrip sends one request and decodes its single reply. An agent error
// reply becomes an *OperationError; every other failure fails the session.
func (s *Session) roundTrip(verb string, args ...command.Arg) (protocol.Result, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if err := s.send(command.Encode(verb, args...)); err != nil {
		return nil, s.fail(err)
	}
	res, err := s.read()
	if err != nil {
		return nil, s.fail(err)
	}
	if ce, ok := res.(protocol.CommandError); ok {
		return nil, &OperationError{Verb: verb, Errno: ce.Errno, Errstr: ce.Errstr}
	}
	return res, nil
}

func (s *Session) send(line []byte) error {
	if _, err := s.w.Write(line); err != nil {
		return err
	}
	if f, ok := s.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func (s *Session) read() (protocol.Result, error) {
	f, err := frame.ReadFrame(s.r, s.limits)
	if err != nil {
		return nil, err
	}
	return protocol.Dispatch(f)
}

func (s *Session) unexpected(verb string, res protocol.Result) error {
	return s.fail(fmt.Errorf("%w for %s: got %s", ErrUnexpectedResult, verb, protocol.ResultName(res)))
}

func (s *Session) usable() error {
	switch s.state {
	case StateActive:
		return nil
	case StateTerminated:
		return ErrTerminated
	case StateFailed:
		return fmt.Errorf("%w: %w", ErrSessionFailed, s.failure)
	default:
		return fmt.Errorf("%w: session is %s", ErrProtocol, s.state)
	}
}

// fail records err and moves the session to Failed. The stream has no
// resync point, so the session is unusable from here on.
func (s *Session) fail(err error) error {
	s.state = StateFailed
	s.failure = err
	return err
}
