package command

import (
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/ascmdctl/internal/testutil/testlog"
)

func TestEncodeLines(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name string
		got  []byte
		want string
	}{
		{name: "no args", got: Encode(VerbDf), want: "as_df\n"},
		{name: "exit", got: Encode(VerbExit), want: "as_exit\n"},
		{name: "one path", got: Encode(VerbLs, Path("/data/in")), want: "as_ls \"/data/in\"\n"},
		{name: "two paths", got: Encode(VerbCp, Paths("/a", "/b c")...), want: "as_cp \"/a\" \"/b c\"\n"},
		{name: "session init", got: SessionInit(2, ""), want: "as_session_init --protocol=2\n"},
		{name: "session init host", got: SessionInit(2, "h1"), want: "as_session_init --protocol=2 --host=h1\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if string(tc.got) != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, tc.got)
			}
		})
	}
}

func TestQuoteEscapesBackslashBeforeQuote(t *testing.T) {
	testlog.Start(t)
	got := Quote(`a"b\c`)
	if got != `"a\"b\\c"` {
		t.Fatalf("expected escaped path, got %s", got)
	}
	if Quote(`\"`) != `"\\\""` {
		t.Fatalf("unexpected quoting of backslash-quote: %s", Quote(`\"`))
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	testlog.Start(t)
	paths := []string{
		"",
		"/plain/path",
		`/with "quotes"/x`,
		`C:\Users\me\file.txt`,
		`\"\\"`,
		"/spaces and\ttabs",
	}
	for _, p := range paths {
		got, err := Unquote(Quote(p))
		if err != nil {
			t.Fatalf("unquote %q: %v", p, err)
		}
		if got != p {
			t.Fatalf("round trip mismatch: expected %q, got %q", p, got)
		}
	}
}

func TestUnquoteRejectsMalformed(t *testing.T) {
	testlog.Start(t)
	if _, err := Unquote("abc"); !errors.Is(err, ErrNotQuoted) {
		t.Fatalf("expected ErrNotQuoted, got %v", err)
	}
	if _, err := Unquote(`"abc\"`); !errors.Is(err, ErrDanglingEscape) {
		t.Fatalf("expected ErrDanglingEscape, got %v", err)
	}
	if _, err := Unquote(`"a"b"`); !errors.Is(err, ErrUnterminatedQuote) {
		t.Fatalf("expected ErrUnterminatedQuote, got %v", err)
	}
}

func TestParseRecoversEncodedArgs(t *testing.T) {
	testlog.Start(t)
	src, dst := `/in/"odd"\name`, "/out/with space"
	line, err := Parse(string(Encode(VerbMv, Path(src), Path(dst))))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := Line{Verb: VerbMv, Args: []string{src, dst}}
	if !reflect.DeepEqual(line, want) {
		t.Fatalf("expected %+v, got %+v", want, line)
	}
}

func TestParseRawAndBareArgs(t *testing.T) {
	testlog.Start(t)
	line, err := Parse("as_session_init --protocol=2\t--host=h\r\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if line.Verb != VerbSessionInit || !reflect.DeepEqual(line.Args, []string{"--protocol=2", "--host=h"}) {
		t.Fatalf("unexpected line: %+v", line)
	}

	line, err = Parse("as_ls \"\"\n")
	if err != nil {
		t.Fatalf("parse empty path: %v", err)
	}
	if len(line.Args) != 1 || line.Args[0] != "" {
		t.Fatalf("expected one empty arg, got %#v", line.Args)
	}
}

func TestParseErrors(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		line string
		want error
	}{
		{line: "\n", want: ErrEmptyLine},
		{line: "ls \"/x\"\n", want: ErrMissingPrefix},
		{line: "as_ls \"/x\n", want: ErrUnterminatedQuote},
	}
	for _, tc := range tests {
		if _, err := Parse(tc.line); !errors.Is(err, tc.want) {
			t.Fatalf("parse %q: expected %v, got %v", tc.line, tc.want, err)
		}
	}
}
