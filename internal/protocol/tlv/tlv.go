package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	U32Len = 4
	U64Len = 8
)

// ErrDecoding is the root of every value-level decode failure.
var ErrDecoding = errors.New("tlv: decoding error")

var (
	ErrMissingTerminator = fmt.Errorf("%w: missing string terminator", ErrDecoding)
	ErrInvalidWidth      = fmt.Errorf("%w: invalid integer width", ErrDecoding)
)

// DecodeZstr decodes a NUL-terminated string value. Invalid UTF-8 is
// replaced rather than rejected.
func DecodeZstr(b []byte) (string, error) {
	if len(b) == 0 || b[len(b)-1] != 0 {
		return "", ErrMissingTerminator
	}
	return strings.ToValidUTF8(string(b[:len(b)-1]), "\uFFFD"), nil
}

func DecodeU32(b []byte) (uint32, error) {
	if len(b) != U32Len {
		return 0, fmt.Errorf("%w: u32 got %d bytes", ErrInvalidWidth, len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

func DecodeU64(b []byte) (uint64, error) {
	if len(b) != U64Len {
		return 0, fmt.Errorf("%w: u64 got %d bytes", ErrInvalidWidth, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// Zstr encodes s as a NUL-terminated value.
func Zstr(s string) []byte {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return buf
}

func U32(v uint32) []byte {
	buf := make([]byte, U32Len)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

func U64(v uint64) []byte {
	buf := make([]byte, U64Len)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
