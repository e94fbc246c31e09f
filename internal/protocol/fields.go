package protocol

import (
	"fmt"

	"github.com/danmuck/ascmdctl/internal/protocol/frame"
	"github.com/danmuck/ascmdctl/internal/protocol/schema"
	"github.com/danmuck/ascmdctl/internal/protocol/tlv"
)

// walk feeds every nested frame of value to fn until the end sentinel. An
// explicit end frame with bytes still behind it is a framing error.
func walk(rec schema.Record, value []byte, fn func(frame.Frame) error) error {
	c := frame.NewCursor(value)
	for {
		f, err := c.Next()
		if err != nil {
			return fmt.Errorf("protocol: %s: %w", rec.Name, err)
		}
		if f.End() {
			if n := c.Remaining(); n != 0 {
				return fmt.Errorf("protocol: %s: %w: %d bytes after end frame", rec.Name, frame.ErrReservedTag, n)
			}
			return nil
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}

func unknownTag(rec schema.Record, tag uint8) error {
	return &TagError{Record: rec.Name, Tag: tag, Err: ErrUnknownTag}
}

func fieldError(rec schema.Record, tag uint8, err error) error {
	name := "?"
	if f, ok := rec.Lookup(tag); ok {
		name = f.Name
	}
	return &FieldError{Record: rec.Name, Field: name, Tag: tag, Err: err}
}

func zstrField(rec schema.Record, f frame.Frame, dst *string) error {
	v, err := tlv.DecodeZstr(f.Value)
	if err != nil {
		return fieldError(rec, f.Tag, err)
	}
	*dst = v
	return nil
}

func u32Field(rec schema.Record, f frame.Frame, dst *uint32) error {
	v, err := tlv.DecodeU32(f.Value)
	if err != nil {
		return fieldError(rec, f.Tag, err)
	}
	*dst = v
	return nil
}

func u64Field(rec schema.Record, f frame.Frame, dst *uint64) error {
	v, err := tlv.DecodeU64(f.Value)
	if err != nil {
		return fieldError(rec, f.Tag, err)
	}
	*dst = v
	return nil
}

func zstrFrame(tag uint8, s string) frame.Frame {
	return frame.Frame{Tag: tag, Value: tlv.Zstr(s)}
}

func u32Frame(tag uint8, v uint32) frame.Frame {
	return frame.Frame{Tag: tag, Value: tlv.U32(v)}
}

func u64Frame(tag uint8, v uint64) frame.Frame {
	return frame.Frame{Tag: tag, Value: tlv.U64(v)}
}
