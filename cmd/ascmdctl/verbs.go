package main

import (
	"fmt"
	"path"

	"github.com/danmuck/ascmdctl/internal/protocol/session"
	"github.com/rs/zerolog"
)

type status struct {
	Status string `json:"status"`
}

var verbArity = map[string]int{
	"info": 0, "df": 0,
	"ls": 1, "du": 1, "md5sum": 1, "mkdir": 1, "rm": 1,
	"cp": 2, "mv": 2,
}

// runVerb executes one command and returns what should be printed.
func runVerb(s *session.Session, verb string, args []string) (any, error) {
	want, ok := verbArity[verb]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", verb)
	}
	if len(args) != want {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", verb, want, len(args))
	}
	switch verb {
	case "info":
		return s.Info()
	case "df":
		return s.Df()
	case "ls":
		return s.Ls(args[0])
	case "du":
		return s.Du(args[0])
	case "md5sum":
		sum, err := s.Md5sum(args[0])
		return map[string]string{"path": args[0], "md5sum": sum}, err
	case "mkdir":
		return status{"ok"}, s.Mkdir(args[0])
	case "rm":
		return status{"ok"}, s.Rm(args[0])
	case "cp":
		return status{"ok"}, s.Cp(args[0], args[1])
	default:
		return status{"ok"}, s.Mv(args[0], args[1])
	}
}

// selftest walks every verb against a scratch area inside writableFolder and
// then terminates the session. An info failure is logged, not returned.
func selftest(s *session.Session, existingFile, writableFolder string, log zerolog.Logger) error {
	copyFile := path.Join(writableFolder, "copied_file")
	deleteFile := path.Join(writableFolder, "todelete_file")
	deleteDir := path.Join(writableFolder, "todelete_dir")

	if info, err := s.Info(); err != nil {
		log.Error().Err(err).Msg("info")
		if session.IsFatal(err) {
			return err
		}
	} else {
		log.Info().Str("platform", info.Platform).Str("version", info.Version).Uint64("protocol", info.Protocol).Msg("info")
	}

	steps := []struct {
		name string
		run  func() (any, error)
	}{
		{"df", func() (any, error) { return s.Df() }},
		{"ls file", func() (any, error) { return s.Ls(existingFile) }},
		{"ls dir", func() (any, error) { return s.Ls(writableFolder) }},
		{"md5sum", func() (any, error) { return s.Md5sum(existingFile) }},
		{"du", func() (any, error) { return s.Du(existingFile) }},
		{"cp", func() (any, error) { return "ok", s.Cp(existingFile, copyFile) }},
		{"mv", func() (any, error) { return "ok", s.Mv(copyFile, deleteFile) }},
		{"rm file", func() (any, error) { return "ok", s.Rm(deleteFile) }},
		{"mkdir", func() (any, error) { return "ok", s.Mkdir(deleteDir) }},
		{"rmdir", func() (any, error) { return "ok", s.Rm(deleteDir) }},
	}
	for _, step := range steps {
		res, err := step.run()
		if err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		log.Info().Interface("result", res).Msg(step.name)
	}
	return s.Terminate()
}
