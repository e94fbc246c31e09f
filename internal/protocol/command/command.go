package command

import (
	"errors"
	"fmt"
	"strings"
)

// Prefix starts every request line the agent accepts.
const Prefix = "as_"

const (
	VerbLs          = "ls"
	VerbRm          = "rm"
	VerbDu          = "du"
	VerbMkdir       = "mkdir"
	VerbCp          = "cp"
	VerbMv          = "mv"
	VerbDf          = "df"
	VerbMd5sum      = "md5sum"
	VerbInfo        = "info"
	VerbExit        = "exit"
	VerbSessionInit = "session_init"
)

var (
	ErrEmptyLine         = errors.New("command: empty line")
	ErrMissingPrefix     = errors.New("command: missing as_ prefix")
	ErrUnterminatedQuote = errors.New("command: unterminated quote")
	ErrDanglingEscape    = errors.New("command: dangling escape")
	ErrNotQuoted         = errors.New("command: argument is not quoted")
)

// Arg is one request argument, already in its wire form.
type Arg struct {
	wire string
}

func (a Arg) String() string {
	return a.wire
}

// Path is a filesystem path argument. It is always quoted.
func Path(p string) Arg {
	return Arg{wire: Quote(p)}
}

// Raw is written verbatim, for option flags such as --protocol=2.
func Raw(s string) Arg {
	return Arg{wire: s}
}

// Paths quotes each path in order.
func Paths(ps ...string) []Arg {
	out := make([]Arg, 0, len(ps))
	for _, p := range ps {
		out = append(out, Path(p))
	}
	return out
}

// Backslash must be escaped before the quote so the quote's own escape is
// not doubled.
var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote wraps p in double quotes, escaping backslash and double quote.
// Other bytes, including newlines, pass through untouched; the agent line
// protocol has no escape for them.
func Quote(p string) string {
	return `"` + quoteEscaper.Replace(p) + `"`
}

// Unquote reverses Quote.
func Unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("%w: %q", ErrNotQuoted, s)
	}
	var b strings.Builder
	body := s[1 : len(s)-1]
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' {
			i++
			if i == len(body) {
				return "", ErrDanglingEscape
			}
			c = body[i]
		} else if c == '"' {
			return "", fmt.Errorf("%w: bare quote inside %q", ErrUnterminatedQuote, s)
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// Encode builds one request line: as_<verb>[ <arg>...]\n.
func Encode(verb string, args ...Arg) []byte {
	var b strings.Builder
	b.WriteString(Prefix)
	b.WriteString(verb)
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(a.wire)
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// SessionInit builds the protocol negotiation request.
func SessionInit(version uint32, host string) []byte {
	args := []Arg{Raw(fmt.Sprintf("--protocol=%d", version))}
	if host != "" {
		args = append(args, Raw("--host="+host))
	}
	return Encode(VerbSessionInit, args...)
}

// Line is a request line as the agent sees it.
type Line struct {
	Verb string
	Args []string
}

// Parse reads one request line. Quoted arguments are unescaped; bare
// arguments are returned as written.
func Parse(line string) (Line, error) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return Line{}, ErrEmptyLine
	}

	var fields []string
	var cur strings.Builder
	inField, inQuote, escaped := false, false, false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case inQuote && c == '\\':
			escaped = true
		case c == '"':
			inQuote = !inQuote
			inField = true
		case !inQuote && (c == ' ' || c == '\t'):
			if inField {
				fields = append(fields, cur.String())
				cur.Reset()
				inField = false
			}
		default:
			cur.WriteByte(c)
			inField = true
		}
	}
	if escaped {
		return Line{}, ErrDanglingEscape
	}
	if inQuote {
		return Line{}, ErrUnterminatedQuote
	}
	if inField {
		fields = append(fields, cur.String())
	}

	verb, ok := strings.CutPrefix(fields[0], Prefix)
	if !ok {
		return Line{}, fmt.Errorf("%w: %q", ErrMissingPrefix, fields[0])
	}
	return Line{Verb: verb, Args: fields[1:]}, nil
}
