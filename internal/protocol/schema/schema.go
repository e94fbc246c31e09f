package schema

import "fmt"

// Top-level result tags.
const (
	ResultFile    uint8 = 1
	ResultDir     uint8 = 2
	ResultSize    uint8 = 3
	ResultError   uint8 = 4
	ResultInfo    uint8 = 5
	ResultSuccess uint8 = 6
	ResultExit    uint8 = 7
	ResultDf      uint8 = 8
	ResultMd5sum  uint8 = 9
)

// Stat field tags.
const (
	StatName    uint8 = 1
	StatSize    uint8 = 2
	StatMode    uint8 = 3
	StatZMode   uint8 = 4
	StatUID     uint8 = 5
	StatZUID    uint8 = 6
	StatGID     uint8 = 7
	StatZGID    uint8 = 8
	StatCTime   uint8 = 9
	StatZCTime  uint8 = 10
	StatMTime   uint8 = 11
	StatZMTime  uint8 = 12
	StatATime   uint8 = 13
	StatZATime  uint8 = 14
	StatSymlink uint8 = 15
	StatErrno   uint8 = 16
	StatErrstr  uint8 = 17
)

// Info field tags.
const (
	InfoPlatform   uint8 = 1
	InfoVersion    uint8 = 2
	InfoLang       uint8 = 3
	InfoTerritory  uint8 = 4
	InfoCodeset    uint8 = 5
	InfoLcCtype    uint8 = 6
	InfoLcNumeric  uint8 = 7
	InfoLcTime     uint8 = 8
	InfoLcAll      uint8 = 9
	InfoDev        uint8 = 10
	InfoBrowseCaps uint8 = 11
	InfoProtocol   uint8 = 12
)

// Mnt field tags. MntFS also opens a new mount record.
const (
	MntFS     uint8 = 1
	MntDir    uint8 = 2
	MntIsA    uint8 = 3
	MntTotal  uint8 = 4
	MntUsed   uint8 = 5
	MntFree   uint8 = 6
	MntFCount uint8 = 7
	MntErrno  uint8 = 8
	MntErrstr uint8 = 9
)

// Size field tags.
const (
	SizeSize         uint8 = 1
	SizeFCount       uint8 = 2
	SizeDCount       uint8 = 3
	SizeFailedFCount uint8 = 4
	SizeFailedDCount uint8 = 5
)

const (
	ErrorErrno  uint8 = 1
	ErrorErrstr uint8 = 2

	Md5sumValue uint8 = 1

	// DirEntry is the only tag allowed inside a Dir value.
	DirEntry uint8 = 1
)

// Kind is the wire encoding of one record field.
type Kind uint8

const (
	KindZstr Kind = iota + 1
	KindU32
	KindU64
)

func (k Kind) String() string {
	switch k {
	case KindZstr:
		return "zstr"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field names one known field of a record.
type Field struct {
	Tag  uint8
	Name string
	Kind Kind
}

// Record lists the closed set of fields of one record type.
type Record struct {
	Name   string
	Fields []Field
}

// Lookup returns the field registered under tag.
func (r Record) Lookup(tag uint8) (Field, bool) {
	for _, f := range r.Fields {
		if f.Tag == tag {
			return f, true
		}
	}
	return Field{}, false
}

var (
	Stat = Record{Name: "stat", Fields: []Field{
		{StatName, "name", KindZstr},
		{StatSize, "size", KindU64},
		{StatMode, "mode", KindU32},
		{StatZMode, "zmode", KindZstr},
		{StatUID, "uid", KindU32},
		{StatZUID, "zuid", KindZstr},
		{StatGID, "gid", KindU32},
		{StatZGID, "zgid", KindZstr},
		{StatCTime, "ctime", KindU64},
		{StatZCTime, "zctime", KindZstr},
		{StatMTime, "mtime", KindU64},
		{StatZMTime, "zmtime", KindZstr},
		{StatATime, "atime", KindU64},
		{StatZATime, "zatime", KindZstr},
		{StatSymlink, "symlink", KindZstr},
		{StatErrno, "errno", KindU32},
		{StatErrstr, "errstr", KindZstr},
	}}
	Info = Record{Name: "info", Fields: []Field{
		{InfoPlatform, "platform", KindZstr},
		{InfoVersion, "version", KindZstr},
		{InfoLang, "lang", KindZstr},
		{InfoTerritory, "territory", KindZstr},
		{InfoCodeset, "codeset", KindZstr},
		{InfoLcCtype, "lc_ctype", KindZstr},
		{InfoLcNumeric, "lc_numeric", KindZstr},
		{InfoLcTime, "lc_time", KindZstr},
		{InfoLcAll, "lc_all", KindZstr},
		{InfoDev, "dev", KindZstr},
		{InfoBrowseCaps, "browse_caps", KindZstr},
		{InfoProtocol, "protocol", KindU64},
	}}
	Mnt = Record{Name: "mnt", Fields: []Field{
		{MntFS, "fs", KindZstr},
		{MntDir, "dir", KindZstr},
		{MntIsA, "is_a", KindZstr},
		{MntTotal, "total", KindU64},
		{MntUsed, "used", KindU64},
		{MntFree, "free", KindU64},
		{MntFCount, "fcount", KindU64},
		{MntErrno, "errno", KindU32},
		{MntErrstr, "errstr", KindZstr},
	}}
	Size = Record{Name: "size", Fields: []Field{
		{SizeSize, "size", KindU64},
		{SizeFCount, "fcount", KindU32},
		{SizeDCount, "dcount", KindU32},
		{SizeFailedFCount, "failed_fcount", KindU32},
		{SizeFailedDCount, "failed_dcount", KindU32},
	}}
	Error = Record{Name: "error", Fields: []Field{
		{ErrorErrno, "errno", KindU32},
		{ErrorErrstr, "errstr", KindZstr},
	}}
	Md5sum = Record{Name: "md5sum", Fields: []Field{
		{Md5sumValue, "md5sum", KindZstr},
	}}
	// Dir entries are whole stat records, so it has no scalar fields.
	Dir = Record{Name: "dir"}
)

var resultNames = map[uint8]string{
	ResultFile:    "file",
	ResultDir:     "dir",
	ResultSize:    "size",
	ResultError:   "error",
	ResultInfo:    "info",
	ResultSuccess: "success",
	ResultExit:    "exit",
	ResultDf:      "df",
	ResultMd5sum:  "md5sum",
}

// ResultName names a top-level tag for logs and error messages.
func ResultName(tag uint8) string {
	if name, ok := resultNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", tag)
}

// KnownResult reports whether tag belongs to the closed result set.
func KnownResult(tag uint8) bool {
	_, ok := resultNames[tag]
	return ok
}
