package oscmanager

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"unicode/utf8"
)

// ArgType is the type tag character of a single OSC argument.
type ArgType byte

const (
	Int32   ArgType = 'i'
	Float32 ArgType = 'f'
	String  ArgType = 's'
	True    ArgType = 'T'
	False   ArgType = 'F'
	Nil     ArgType = 'N'
	Impulse ArgType = 'I'
)

// Argument holds one decoded OSC argument. Only the field matching Type is set.
type Argument struct {
	Type   ArgType
	Int    int32
	Float  float32
	String string
}

// Bool reports the value of a T or F argument.
func (a Argument) Bool() (value, ok bool) {
	switch a.Type {
	case True:
		return true, true
	case False:
		return false, true
	}
	return false, false
}

// Message is one decoded OSC message.
type Message struct {
	Address   string
	TypeTag   string
	Arguments []Argument
}

var bundlePrefix = []byte("#bundle\x00")

// IsBundle reports whether data is framed as an OSC bundle.
func IsBundle(data []byte) bool {
	return bytes.HasPrefix(data, bundlePrefix)
}

// Decode reads an address and a type tag from data, then as many arguments
// as the type tag describes and the payload holds. Argument decoding stops
// quietly at the first unsupported tag or short argument; only a broken
// address or type tag is an error.
func Decode(data []byte) (*Message, error) {
	r := NewReader(data)

	address, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(address, "/") {
		return nil, malformed(0, "address must start with '/'")
	}

	tagOffset := r.Offset()
	typeTag, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(typeTag, ",") {
		return nil, malformed(tagOffset, "type tag must start with ','")
	}

	msg := &Message{Address: address, TypeTag: typeTag}
	msg.Arguments = r.readArguments(typeTag[1:])
	return msg, nil
}

// Reader walks an OSC payload. The zero value is not usable; see NewReader.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset is the position of the next unread byte. It may exceed the payload
// length when the last string's padding was cut off.
func (r *Reader) Offset() int { return r.off }

// ReadString reads a NUL-terminated string and skips to the next 4-byte
// boundary after the terminator.
func (r *Reader) ReadString() (string, error) {
	start := r.off
	if start >= len(r.data) {
		return "", truncated(start, "no string data")
	}
	n := bytes.IndexByte(r.data[start:], 0)
	if n < 0 {
		return "", truncated(start, "string has no NUL terminator")
	}
	raw := r.data[start : start+n]
	if !utf8.Valid(raw) {
		return "", malformed(start, "string is not valid UTF-8")
	}
	r.off = (start + n + 4) &^ 3
	return string(raw), nil
}

// ReadInt32 reads a big-endian two's-complement 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	if r.off+4 > len(r.data) {
		return 0, truncated(r.off, "int32 needs 4 bytes")
	}
	v := int32(binary.BigEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v, nil
}

// ReadFloat32 reads a big-endian IEEE-754 single precision float.
func (r *Reader) ReadFloat32() (float32, error) {
	if r.off+4 > len(r.data) {
		return 0, truncated(r.off, "float32 needs 4 bytes")
	}
	v := math.Float32frombits(binary.BigEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v, nil
}

func (r *Reader) readArguments(tags string) []Argument {
	var args []Argument
	for i := 0; i < len(tags); i++ {
		arg := Argument{Type: ArgType(tags[i])}
		var err error
		switch arg.Type {
		case Int32:
			arg.Int, err = r.ReadInt32()
		case Float32:
			arg.Float, err = r.ReadFloat32()
		case String:
			arg.String, err = r.ReadString()
		case True, False, Nil, Impulse:
		default:
			return args
		}
		if err != nil {
			return args
		}
		args = append(args, arg)
	}
	return args
}
