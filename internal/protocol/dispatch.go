package protocol

import (
	"github.com/danmuck/ascmdctl/internal/protocol/frame"
	"github.com/danmuck/ascmdctl/internal/protocol/schema"
)

// Dispatch turns one top-level frame into its Result. An end sentinel at
// the top level means the agent closed the stream without replying.
func Dispatch(f frame.Frame) (Result, error) {
	switch f.Tag {
	case frame.TagEnd:
		return nil, ErrNoResult
	case schema.ResultFile:
		st, err := DecodeStat(f.Value)
		if err != nil {
			return nil, err
		}
		return File{Stat: st}, nil
	case schema.ResultDir:
		dir, err := DecodeDir(f.Value)
		if err != nil {
			return nil, err
		}
		return dir, nil
	case schema.ResultSize:
		sz, err := DecodeSize(f.Value)
		if err != nil {
			return nil, err
		}
		return sz, nil
	case schema.ResultError:
		ce, err := DecodeCommandError(f.Value)
		if err != nil {
			return nil, err
		}
		return ce, nil
	case schema.ResultInfo:
		info, err := DecodeInfo(f.Value)
		if err != nil {
			return nil, err
		}
		return info, nil
	case schema.ResultSuccess:
		return Success{}, nil
	case schema.ResultExit:
		return Exit{}, nil
	case schema.ResultDf:
		mounts, err := DecodeMounts(f.Value)
		if err != nil {
			return nil, err
		}
		return mounts, nil
	case schema.ResultMd5sum:
		sum, err := DecodeMd5sum(f.Value)
		if err != nil {
			return nil, err
		}
		return sum, nil
	default:
		return nil, &TagError{Record: "result", Tag: f.Tag, Err: ErrUnknownTag}
	}
}
