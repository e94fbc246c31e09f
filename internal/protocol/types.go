package protocol

import "github.com/danmuck/ascmdctl/internal/protocol/schema"

// Stat describes one filesystem entry. A non-zero Errno or Errstr marks a
// per-entry failure inside an otherwise successful listing.
type Stat struct {
	Name    string `json:"name"`
	Size    uint64 `json:"size"`
	Mode    uint32 `json:"mode"`
	ZMode   string `json:"zmode,omitempty"`
	UID     uint32 `json:"uid"`
	ZUID    string `json:"zuid,omitempty"`
	GID     uint32 `json:"gid"`
	ZGID    string `json:"zgid,omitempty"`
	CTime   uint64 `json:"ctime"`
	ZCTime  string `json:"zctime,omitempty"`
	MTime   uint64 `json:"mtime"`
	ZMTime  string `json:"zmtime,omitempty"`
	ATime   uint64 `json:"atime"`
	ZATime  string `json:"zatime,omitempty"`
	Symlink string `json:"symlink,omitempty"`
	Errno   uint32 `json:"errno,omitempty"`
	Errstr  string `json:"errstr,omitempty"`
}

func (s Stat) Failed() bool {
	return s.Errno != 0 || s.Errstr != ""
}

// Info is the agent capability record.
type Info struct {
	Platform   string   `json:"platform"`
	Version    string   `json:"version"`
	Lang       string   `json:"lang"`
	Territory  string   `json:"territory"`
	Codeset    string   `json:"codeset"`
	LcCtype    string   `json:"lc_ctype"`
	LcNumeric  string   `json:"lc_numeric"`
	LcTime     string   `json:"lc_time"`
	LcAll      string   `json:"lc_all"`
	Dev        []string `json:"dev"`
	BrowseCaps string   `json:"browse_caps"`
	Protocol   uint64   `json:"protocol"`
}

// Mnt describes one mounted filesystem.
type Mnt struct {
	FS     string `json:"fs"`
	Dir    string `json:"dir"`
	IsA    string `json:"is_a"`
	Total  uint64 `json:"total"`
	Used   uint64 `json:"used"`
	Free   uint64 `json:"free"`
	FCount uint64 `json:"fcount"`
	Errno  uint32 `json:"errno,omitempty"`
	Errstr string `json:"errstr,omitempty"`
}

// Result is one decoded top-level reply. The set of implementations is
// closed; see Dispatch.
type Result interface {
	Tag() uint8
	sealed()
}

type File struct {
	Stat
}

type Dir []Stat

type Size struct {
	Size         uint64 `json:"size"`
	FCount       uint32 `json:"fcount"`
	DCount       uint32 `json:"dcount"`
	FailedFCount uint32 `json:"failed_fcount"`
	FailedDCount uint32 `json:"failed_dcount"`
}

// CommandError is the agent reporting that a command failed.
type CommandError struct {
	Errno  uint32 `json:"errno"`
	Errstr string `json:"errstr"`
}

type Success struct{}

type Exit struct{}

type Mounts struct {
	Mounts []Mnt `json:"mounts"`
}

type Md5sum string

func (File) Tag() uint8         { return schema.ResultFile }
func (Dir) Tag() uint8          { return schema.ResultDir }
func (Size) Tag() uint8         { return schema.ResultSize }
func (CommandError) Tag() uint8 { return schema.ResultError }
func (Info) Tag() uint8         { return schema.ResultInfo }
func (Success) Tag() uint8      { return schema.ResultSuccess }
func (Exit) Tag() uint8         { return schema.ResultExit }
func (Mounts) Tag() uint8       { return schema.ResultDf }
func (Md5sum) Tag() uint8       { return schema.ResultMd5sum }

func (File) sealed()         {}
func (Dir) sealed()          {}
func (Size) sealed()         {}
func (CommandError) sealed() {}
func (Info) sealed()         {}
func (Success) sealed()      {}
func (Exit) sealed()         {}
func (Mounts) sealed()       {}
func (Md5sum) sealed()       {}

// ResultName names r for diagnostics.
func ResultName(r Result) string {
	if r == nil {
		return "none"
	}
	return schema.ResultName(r.Tag())
}
