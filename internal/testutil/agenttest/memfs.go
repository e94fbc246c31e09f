package agenttest

import (
	"crypto/md5"
	"encoding/hex"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/ascmdctl/internal/protocol"
	"github.com/danmuck/ascmdctl/internal/protocol/command"
)

// errno values the fake agent reports.
const (
	ENOENT  = 2
	EEXIST  = 17
	ENOTDIR = 20
	EISDIR  = 21
	EINVAL  = 22
)

var errstrs = map[uint32]string{
	ENOENT:  "No such file or directory",
	EEXIST:  "File exists",
	ENOTDIR: "Not a directory",
	EISDIR:  "Is a directory",
	EINVAL:  "Invalid argument",
}

// MemFS is an in-memory filesystem served with ascmd semantics.
type MemFS struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
	mtime uint64

	Info   protocol.Info
	Mounts protocol.Mounts
}

func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"/": true},
		mtime: 1700000000,
		Info: protocol.Info{
			Platform: "linux-x86_64",
			Version:  "4.4.0",
			Lang:     "en",
			Codeset:  "UTF-8",
			Dev:      []string{"/"},
			Protocol: 2,
		},
		Mounts: protocol.Mounts{Mounts: []protocol.Mnt{
			{FS: "/dev/sda1", Dir: "/", IsA: "ext4", Total: 1 << 30, Used: 1 << 20, Free: 1<<30 - 1<<20, FCount: 12},
		}},
	}
}

// WriteFile creates p and any missing parent directories.
func (m *MemFS) WriteFile(p string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = path.Clean("/" + p)
	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		m.dirs[dir] = true
		if dir == "/" {
			break
		}
	}
	m.files[p] = append([]byte(nil), data...)
}

// ReadFile returns the contents of p.
func (m *MemFS) ReadFile(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path.Clean("/"+p)]
	return data, ok
}

// Exists reports whether p is a file or directory.
func (m *MemFS) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = path.Clean("/" + p)
	_, isFile := m.files[p]
	return isFile || m.dirs[p]
}

// Agent returns an agent serving m.
func (m *MemFS) Agent() *Agent {
	return New(m.Handle)
}

// Handle answers one request against the tree.
func (m *MemFS) Handle(req command.Line) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch req.Verb {
	case command.VerbSessionInit, command.VerbInfo:
		return Respond(m.Info)
	case command.VerbDf:
		return Respond(m.Mounts)
	}

	if len(req.Args) == 0 {
		return fail(EINVAL)
	}
	p := path.Clean("/" + req.Args[0])
	switch req.Verb {
	case command.VerbLs:
		return m.ls(p)
	case command.VerbRm:
		return m.rm(p)
	case command.VerbDu:
		return m.du(p)
	case command.VerbMkdir:
		return m.mkdir(p)
	case command.VerbMd5sum:
		data, ok := m.files[p]
		if !ok {
			if m.dirs[p] {
				return fail(EISDIR)
			}
			return fail(ENOENT)
		}
		sum := md5.Sum(data)
		return Respond(protocol.Md5sum(hex.EncodeToString(sum[:])))
	case command.VerbCp, command.VerbMv:
		if len(req.Args) != 2 {
			return fail(EINVAL)
		}
		return m.copy(p, path.Clean("/"+req.Args[1]), req.Verb == command.VerbMv)
	default:
		return fail(EINVAL)
	}
}

func fail(errno uint32) Reply {
	return Respond(protocol.CommandError{Errno: errno, Errstr: errstrs[errno]})
}

func (m *MemFS) stat(p string) (protocol.Stat, bool) {
	if data, ok := m.files[p]; ok {
		return protocol.Stat{
			Name:  p,
			Size:  uint64(len(data)),
			Mode:  0o100644,
			ZMode: "-rw-r--r--",
			MTime: m.mtime,
		}, true
	}
	if m.dirs[p] {
		return protocol.Stat{Name: p, Mode: 0o40755, ZMode: "drwxr-xr-x", MTime: m.mtime}, true
	}
	return protocol.Stat{}, false
}

// children lists every file and directory strictly below p.
func (m *MemFS) children(p string, direct bool) []string {
	prefix := strings.TrimSuffix(p, "/") + "/"
	var out []string
	add := func(name string) {
		if name == p || !strings.HasPrefix(name, prefix) {
			return
		}
		if direct && strings.Contains(strings.TrimPrefix(name, prefix), "/") {
			return
		}
		out = append(out, name)
	}
	for name := range m.files {
		add(name)
	}
	for name := range m.dirs {
		add(name)
	}
	sort.Strings(out)
	return out
}

func (m *MemFS) ls(p string) Reply {
	st, ok := m.stat(p)
	if !ok {
		return fail(ENOENT)
	}
	if !m.dirs[p] {
		return Respond(protocol.File{Stat: st})
	}
	dir := protocol.Dir{}
	for _, child := range m.children(p, true) {
		cst, _ := m.stat(child)
		dir = append(dir, cst)
	}
	return Respond(dir)
}

func (m *MemFS) rm(p string) Reply {
	if _, ok := m.stat(p); !ok || p == "/" {
		return fail(ENOENT)
	}
	for _, child := range m.children(p, false) {
		delete(m.files, child)
		delete(m.dirs, child)
	}
	delete(m.files, p)
	delete(m.dirs, p)
	return Respond(protocol.Success{})
}

func (m *MemFS) du(p string) Reply {
	if _, ok := m.stat(p); !ok {
		return fail(ENOENT)
	}
	var sz protocol.Size
	for _, name := range append(m.children(p, false), p) {
		if data, ok := m.files[name]; ok {
			sz.Size += uint64(len(data))
			sz.FCount++
		} else if m.dirs[name] {
			sz.DCount++
		}
	}
	return Respond(sz)
}

func (m *MemFS) mkdir(p string) Reply {
	if _, ok := m.stat(p); ok {
		return fail(EEXIST)
	}
	parent := path.Dir(p)
	if !m.dirs[parent] {
		if _, isFile := m.files[parent]; isFile {
			return fail(ENOTDIR)
		}
		return fail(ENOENT)
	}
	m.dirs[p] = true
	return Respond(protocol.Success{})
}

// copy handles cp and mv. A destination that is an existing directory
// receives the source under its base name.
func (m *MemFS) copy(src, dst string, move bool) Reply {
	if _, ok := m.stat(src); !ok {
		return fail(ENOENT)
	}
	if m.dirs[dst] {
		dst = path.Join(dst, path.Base(src))
	}
	if !m.dirs[path.Dir(dst)] {
		return fail(ENOENT)
	}
	if m.dirs[src] && !move {
		return fail(EISDIR)
	}
	if data, ok := m.files[src]; ok {
		m.files[dst] = append([]byte(nil), data...)
		if move {
			delete(m.files, src)
		}
		return Respond(protocol.Success{})
	}

	for _, child := range m.children(src, false) {
		moved := dst + strings.TrimPrefix(child, src)
		if data, ok := m.files[child]; ok {
			m.files[moved] = data
			delete(m.files, child)
		} else {
			m.dirs[moved] = true
			delete(m.dirs, child)
		}
	}
	m.dirs[dst] = true
	delete(m.dirs, src)
	return Respond(protocol.Success{})
}
