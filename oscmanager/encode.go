package oscmanager

import (
	"encoding/binary"
	"fmt"
	"math"
)

// AppendString appends s, its NUL terminator and enough NUL padding to end
// on a 4-byte boundary.
func AppendString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	pad := 4 - len(s)%4
	for i := 0; i < pad; i++ {
		buf = append(buf, 0)
	}
	return buf
}

// AppendInt32 appends v as four big-endian bytes.
func AppendInt32(buf []byte, v int32) []byte {
	return binary.BigEndian.AppendUint32(buf, uint32(v))
}

// AppendFloat32 appends the IEEE 754 bits of v, big-endian.
func AppendFloat32(buf []byte, v float32) []byte {
	return binary.BigEndian.AppendUint32(buf, math.Float32bits(v))
}

// MarshalBinary encodes the message. The type tag is taken from the
// arguments, so TypeTag is ignored when Arguments is non-empty.
func (m *Message) MarshalBinary() ([]byte, error) {
	tag := m.TypeTag
	if len(m.Arguments) > 0 || tag == "" {
		b := []byte{','}
		for _, a := range m.Arguments {
			b = append(b, byte(a.Type))
		}
		tag = string(b)
	}

	buf := AppendString(nil, m.Address)
	buf = AppendString(buf, tag)
	for _, a := range m.Arguments {
		switch a.Type {
		case Int32:
			buf = AppendInt32(buf, a.Int)
		case Float32:
			buf = AppendFloat32(buf, a.Float)
		case String:
			buf = AppendString(buf, a.String)
		case True, False, Nil, Impulse:
		default:
			return nil, fmt.Errorf("unsupported osc argument type %q", a.Type)
		}
	}
	return buf, nil
}
