package protocol

import (
	"fmt"

	"github.com/danmuck/ascmdctl/internal/protocol/tlv"
)

// Every record-level failure is a decoding error.
var (
	ErrUnknownTag         = fmt.Errorf("%w: unknown tag", tlv.ErrDecoding)
	ErrUnexpectedEntryTag = fmt.Errorf("%w: unexpected dir entry tag", tlv.ErrDecoding)
	ErrOrphanField        = fmt.Errorf("%w: mount field before fs", tlv.ErrDecoding)
	ErrNoResult           = fmt.Errorf("%w: stream ended before a result", tlv.ErrDecoding)
)

// TagError reports a nested or top-level tag that the record does not accept.
type TagError struct {
	Record string
	Tag    uint8
	Err    error
}

func (e *TagError) Error() string {
	return fmt.Sprintf("protocol: %s: tag %d: %v", e.Record, e.Tag, e.Err)
}

func (e *TagError) Unwrap() error {
	return e.Err
}

// FieldError reports a known field whose value failed to decode.
type FieldError struct {
	Record string
	Field  string
	Tag    uint8
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("protocol: %s.%s (tag %d): %v", e.Record, e.Field, e.Tag, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
