package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	TagLen    = 1
	LengthLen = 4
	HeaderLen = TagLen + LengthLen

	// TagEnd is reserved: it marks the end of a frame stream.
	TagEnd uint8 = 0
)

// ErrFraming is the root of every truncated or malformed frame error.
var ErrFraming = errors.New("frame: framing error")

var (
	ErrShortLength   = fmt.Errorf("%w: short length field", ErrFraming)
	ErrShortValue    = fmt.Errorf("%w: short value", ErrFraming)
	ErrReservedTag   = fmt.Errorf("%w: reserved tag 0 carries a value", ErrFraming)
	ErrValueTooLarge = fmt.Errorf("%w: value too large", ErrFraming)
)

// Frame is one tag-length-value record.
type Frame struct {
	Tag   uint8
	Value []byte
}

// End reports whether f is the end-of-stream sentinel.
func (f Frame) End() bool {
	return f.Tag == TagEnd
}

// Limits bounds the memory a single frame may claim. Zero means unbounded.
type Limits struct {
	MaxValueBytes uint32
}

// DefaultLimits matches the protocol, which has no maximum frame length.
func DefaultLimits() Limits {
	return Limits{}
}

// ReadFrame reads one frame from r. A clean EOF before the tag byte yields
// the end sentinel instead of an error. Reader errors other than EOF are
// returned unchanged.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var tag [TagLen]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{Tag: TagEnd, Value: []byte{}}, nil
		}
		return Frame{}, err
	}

	var length [LengthLen]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		if isShortRead(err) {
			return Frame{}, fmt.Errorf("%w: tag %d", ErrShortLength, tag[0])
		}
		return Frame{}, err
	}
	n := binary.BigEndian.Uint32(length[:])

	if tag[0] == TagEnd {
		if n != 0 {
			return Frame{}, fmt.Errorf("%w: length %d", ErrReservedTag, n)
		}
		return Frame{Tag: TagEnd, Value: []byte{}}, nil
	}
	if limits.MaxValueBytes > 0 && n > limits.MaxValueBytes {
		return Frame{}, fmt.Errorf("%w: tag %d length %d limit %d", ErrValueTooLarge, tag[0], n, limits.MaxValueBytes)
	}

	value := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, value); err != nil {
			if isShortRead(err) {
				return Frame{}, fmt.Errorf("%w: tag %d want %d bytes", ErrShortValue, tag[0], n)
			}
			return Frame{}, err
		}
	}
	return Frame{Tag: tag[0], Value: value}, nil
}

func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// Cursor walks the nested frame stream held in one frame value.
type Cursor struct {
	r *bytes.Reader
}

func NewCursor(value []byte) *Cursor {
	return &Cursor{r: bytes.NewReader(value)}
}

// Next returns the next nested frame, or the end sentinel once the value is
// exhausted.
func (c *Cursor) Next() (Frame, error) {
	return ReadFrame(c.r, DefaultLimits())
}

func (c *Cursor) Remaining() int {
	return c.r.Len()
}

// AppendFrame appends the wire form of f to dst.
func AppendFrame(dst []byte, f Frame) []byte {
	var head [HeaderLen]byte
	head[0] = f.Tag
	binary.BigEndian.PutUint32(head[TagLen:], uint32(len(f.Value)))
	dst = append(dst, head[:]...)
	return append(dst, f.Value...)
}

func Encode(f Frame) []byte {
	return AppendFrame(make([]byte, 0, HeaderLen+len(f.Value)), f)
}

// EncodeAll concatenates frames, the layout used for nested record values.
func EncodeAll(frames ...Frame) []byte {
	out := make([]byte, 0)
	for _, f := range frames {
		out = AppendFrame(out, f)
	}
	return out
}

func WriteFrame(w io.Writer, f Frame) error {
	_, err := w.Write(Encode(f))
	return err
}
