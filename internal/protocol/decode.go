package protocol

import (
	"github.com/danmuck/ascmdctl/internal/protocol/frame"
	"github.com/danmuck/ascmdctl/internal/protocol/schema"
)

// DecodeStat decodes the nested frames of a File value or Dir entry.
func DecodeStat(value []byte) (Stat, error) {
	rec := schema.Stat
	var st Stat
	err := walk(rec, value, func(f frame.Frame) error {
		switch f.Tag {
		case schema.StatName:
			return zstrField(rec, f, &st.Name)
		case schema.StatSize:
			return u64Field(rec, f, &st.Size)
		case schema.StatMode:
			return u32Field(rec, f, &st.Mode)
		case schema.StatZMode:
			return zstrField(rec, f, &st.ZMode)
		case schema.StatUID:
			return u32Field(rec, f, &st.UID)
		case schema.StatZUID:
			return zstrField(rec, f, &st.ZUID)
		case schema.StatGID:
			return u32Field(rec, f, &st.GID)
		case schema.StatZGID:
			return zstrField(rec, f, &st.ZGID)
		case schema.StatCTime:
			return u64Field(rec, f, &st.CTime)
		case schema.StatZCTime:
			return zstrField(rec, f, &st.ZCTime)
		case schema.StatMTime:
			return u64Field(rec, f, &st.MTime)
		case schema.StatZMTime:
			return zstrField(rec, f, &st.ZMTime)
		case schema.StatATime:
			return u64Field(rec, f, &st.ATime)
		case schema.StatZATime:
			return zstrField(rec, f, &st.ZATime)
		case schema.StatSymlink:
			return zstrField(rec, f, &st.Symlink)
		case schema.StatErrno:
			return u32Field(rec, f, &st.Errno)
		case schema.StatErrstr:
			return zstrField(rec, f, &st.Errstr)
		default:
			return unknownTag(rec, f.Tag)
		}
	})
	if err != nil {
		return Stat{}, err
	}
	return st, nil
}

// DecodeDir decodes a listing. Every entry must carry the entry tag; an
// empty value is an empty listing.
func DecodeDir(value []byte) (Dir, error) {
	entries := Dir{}
	err := walk(schema.Dir, value, func(f frame.Frame) error {
		if f.Tag != schema.DirEntry {
			return &TagError{Record: schema.Dir.Name, Tag: f.Tag, Err: ErrUnexpectedEntryTag}
		}
		st, err := DecodeStat(f.Value)
		if err != nil {
			return err
		}
		entries = append(entries, st)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DecodeInfo decodes the capability record. Dev repeats and accumulates in
// wire order and is empty, not nil, when absent. Protocol is 1 unless the
// agent says otherwise.
func DecodeInfo(value []byte) (Info, error) {
	rec := schema.Info
	info := Info{Dev: []string{}, Protocol: 1}
	err := walk(rec, value, func(f frame.Frame) error {
		switch f.Tag {
		case schema.InfoPlatform:
			return zstrField(rec, f, &info.Platform)
		case schema.InfoVersion:
			return zstrField(rec, f, &info.Version)
		case schema.InfoLang:
			return zstrField(rec, f, &info.Lang)
		case schema.InfoTerritory:
			return zstrField(rec, f, &info.Territory)
		case schema.InfoCodeset:
			return zstrField(rec, f, &info.Codeset)
		case schema.InfoLcCtype:
			return zstrField(rec, f, &info.LcCtype)
		case schema.InfoLcNumeric:
			return zstrField(rec, f, &info.LcNumeric)
		case schema.InfoLcTime:
			return zstrField(rec, f, &info.LcTime)
		case schema.InfoLcAll:
			return zstrField(rec, f, &info.LcAll)
		case schema.InfoDev:
			var dev string
			if err := zstrField(rec, f, &dev); err != nil {
				return err
			}
			info.Dev = append(info.Dev, dev)
			return nil
		case schema.InfoBrowseCaps:
			return zstrField(rec, f, &info.BrowseCaps)
		case schema.InfoProtocol:
			return u64Field(rec, f, &info.Protocol)
		default:
			return unknownTag(rec, f.Tag)
		}
	})
	if err != nil {
		return Info{}, err
	}
	return info, nil
}

// DecodeMounts decodes a df reply. The fs tag opens a new mount; every other
// field lands in the mount opened last.
func DecodeMounts(value []byte) (Mounts, error) {
	rec := schema.Mnt
	out := Mounts{Mounts: []Mnt{}}
	var cur *Mnt
	err := walk(rec, value, func(f frame.Frame) error {
		if f.Tag == schema.MntFS {
			if cur != nil {
				out.Mounts = append(out.Mounts, *cur)
			}
			cur = &Mnt{}
			return zstrField(rec, f, &cur.FS)
		}
		if _, known := rec.Lookup(f.Tag); !known {
			return unknownTag(rec, f.Tag)
		}
		if cur == nil {
			return &TagError{Record: rec.Name, Tag: f.Tag, Err: ErrOrphanField}
		}
		switch f.Tag {
		case schema.MntDir:
			return zstrField(rec, f, &cur.Dir)
		case schema.MntIsA:
			return zstrField(rec, f, &cur.IsA)
		case schema.MntTotal:
			return u64Field(rec, f, &cur.Total)
		case schema.MntUsed:
			return u64Field(rec, f, &cur.Used)
		case schema.MntFree:
			return u64Field(rec, f, &cur.Free)
		case schema.MntFCount:
			return u64Field(rec, f, &cur.FCount)
		case schema.MntErrno:
			return u32Field(rec, f, &cur.Errno)
		case schema.MntErrstr:
			return zstrField(rec, f, &cur.Errstr)
		default:
			return unknownTag(rec, f.Tag)
		}
	})
	if err != nil {
		return Mounts{}, err
	}
	if cur != nil {
		out.Mounts = append(out.Mounts, *cur)
	}
	return out, nil
}

func DecodeSize(value []byte) (Size, error) {
	rec := schema.Size
	var sz Size
	err := walk(rec, value, func(f frame.Frame) error {
		switch f.Tag {
		case schema.SizeSize:
			return u64Field(rec, f, &sz.Size)
		case schema.SizeFCount:
			return u32Field(rec, f, &sz.FCount)
		case schema.SizeDCount:
			return u32Field(rec, f, &sz.DCount)
		case schema.SizeFailedFCount:
			return u32Field(rec, f, &sz.FailedFCount)
		case schema.SizeFailedDCount:
			return u32Field(rec, f, &sz.FailedDCount)
		default:
			return unknownTag(rec, f.Tag)
		}
	})
	if err != nil {
		return Size{}, err
	}
	return sz, nil
}

func DecodeCommandError(value []byte) (CommandError, error) {
	rec := schema.Error
	var ce CommandError
	err := walk(rec, value, func(f frame.Frame) error {
		switch f.Tag {
		case schema.ErrorErrno:
			return u32Field(rec, f, &ce.Errno)
		case schema.ErrorErrstr:
			return zstrField(rec, f, &ce.Errstr)
		default:
			return unknownTag(rec, f.Tag)
		}
	})
	if err != nil {
		return CommandError{}, err
	}
	return ce, nil
}

func DecodeMd5sum(value []byte) (Md5sum, error) {
	rec := schema.Md5sum
	var sum string
	err := walk(rec, value, func(f frame.Frame) error {
		if f.Tag != schema.Md5sumValue {
			return unknownTag(rec, f.Tag)
		}
		return zstrField(rec, f, &sum)
	})
	if err != nil {
		return "", err
	}
	return Md5sum(sum), nil
}
