package protocol

import (
	"fmt"

	"github.com/danmuck/ascmdctl/internal/protocol/frame"
	"github.com/danmuck/ascmdctl/internal/protocol/schema"
)

// The encoders below produce the agent side of the wire. Zero-valued fields
// are omitted, which decodes back to the same zero value.

type fieldSet []frame.Frame

func (s *fieldSet) zstr(tag uint8, v string) {
	if v != "" {
		*s = append(*s, zstrFrame(tag, v))
	}
}

func (s *fieldSet) u32(tag uint8, v uint32) {
	if v != 0 {
		*s = append(*s, u32Frame(tag, v))
	}
}

func (s *fieldSet) u64(tag uint8, v uint64) {
	if v != 0 {
		*s = append(*s, u64Frame(tag, v))
	}
}

func (s fieldSet) bytes() []byte {
	return frame.EncodeAll(s...)
}

func EncodeStat(st Stat) []byte {
	var fs fieldSet
	fs.zstr(schema.StatName, st.Name)
	fs.u64(schema.StatSize, st.Size)
	fs.u32(schema.StatMode, st.Mode)
	fs.zstr(schema.StatZMode, st.ZMode)
	fs.u32(schema.StatUID, st.UID)
	fs.zstr(schema.StatZUID, st.ZUID)
	fs.u32(schema.StatGID, st.GID)
	fs.zstr(schema.StatZGID, st.ZGID)
	fs.u64(schema.StatCTime, st.CTime)
	fs.zstr(schema.StatZCTime, st.ZCTime)
	fs.u64(schema.StatMTime, st.MTime)
	fs.zstr(schema.StatZMTime, st.ZMTime)
	fs.u64(schema.StatATime, st.ATime)
	fs.zstr(schema.StatZATime, st.ZATime)
	fs.zstr(schema.StatSymlink, st.Symlink)
	fs.u32(schema.StatErrno, st.Errno)
	fs.zstr(schema.StatErrstr, st.Errstr)
	return fs.bytes()
}

func EncodeDir(entries []Stat) []byte {
	out := make([]byte, 0)
	for _, st := range entries {
		out = frame.AppendFrame(out, frame.Frame{Tag: schema.DirEntry, Value: EncodeStat(st)})
	}
	return out
}

func EncodeInfo(info Info) []byte {
	var fs fieldSet
	fs.zstr(schema.InfoPlatform, info.Platform)
	fs.zstr(schema.InfoVersion, info.Version)
	fs.zstr(schema.InfoLang, info.Lang)
	fs.zstr(schema.InfoTerritory, info.Territory)
	fs.zstr(schema.InfoCodeset, info.Codeset)
	fs.zstr(schema.InfoLcCtype, info.LcCtype)
	fs.zstr(schema.InfoLcNumeric, info.LcNumeric)
	fs.zstr(schema.InfoLcTime, info.LcTime)
	fs.zstr(schema.InfoLcAll, info.LcAll)
	for _, dev := range info.Dev {
		fs = append(fs, zstrFrame(schema.InfoDev, dev))
	}
	fs.zstr(schema.InfoBrowseCaps, info.BrowseCaps)
	fs.u64(schema.InfoProtocol, info.Protocol)
	return fs.bytes()
}

// EncodeMounts always writes the fs field since it opens each mount.
func EncodeMounts(m Mounts) []byte {
	var fs fieldSet
	for _, mnt := range m.Mounts {
		fs = append(fs, zstrFrame(schema.MntFS, mnt.FS))
		fs.zstr(schema.MntDir, mnt.Dir)
		fs.zstr(schema.MntIsA, mnt.IsA)
		fs.u64(schema.MntTotal, mnt.Total)
		fs.u64(schema.MntUsed, mnt.Used)
		fs.u64(schema.MntFree, mnt.Free)
		fs.u64(schema.MntFCount, mnt.FCount)
		fs.u32(schema.MntErrno, mnt.Errno)
		fs.zstr(schema.MntErrstr, mnt.Errstr)
	}
	return fs.bytes()
}

func EncodeSize(sz Size) []byte {
	var fs fieldSet
	fs.u64(schema.SizeSize, sz.Size)
	fs.u32(schema.SizeFCount, sz.FCount)
	fs.u32(schema.SizeDCount, sz.DCount)
	fs.u32(schema.SizeFailedFCount, sz.FailedFCount)
	fs.u32(schema.SizeFailedDCount, sz.FailedDCount)
	return fs.bytes()
}

func EncodeCommandError(ce CommandError) []byte {
	return frame.EncodeAll(
		u32Frame(schema.ErrorErrno, ce.Errno),
		zstrFrame(schema.ErrorErrstr, ce.Errstr),
	)
}

func EncodeMd5sum(sum Md5sum) []byte {
	return frame.Encode(zstrFrame(schema.Md5sumValue, string(sum)))
}

// EncodeResult wraps r in its top-level frame.
func EncodeResult(r Result) (frame.Frame, error) {
	var value []byte
	switch v := r.(type) {
	case File:
		value = EncodeStat(v.Stat)
	case Dir:
		value = EncodeDir(v)
	case Size:
		value = EncodeSize(v)
	case CommandError:
		value = EncodeCommandError(v)
	case Info:
		value = EncodeInfo(v)
	case Success, Exit:
		value = []byte{}
	case Mounts:
		value = EncodeMounts(v)
	case Md5sum:
		value = EncodeMd5sum(v)
	default:
		return frame.Frame{}, fmt.Errorf("protocol: cannot encode result %T", r)
	}
	return frame.Frame{Tag: r.Tag(), Value: value}, nil
}
