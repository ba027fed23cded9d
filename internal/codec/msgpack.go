package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

// The encoder and decoder cover the msgpack subset the project payloads use:
// nil, bool, int64, float64, string, []byte, arrays and string-keyed maps.

type msgpackEncoder struct {
	buf bytes.Buffer
}

func (e *msgpackEncoder) encodeValue(v interface{}) error {
	switch val := v.(type) {
	case nil:
		e.buf.WriteByte(0xc0)
	case bool:
		if val {
			e.buf.WriteByte(0xc3)
		} else {
			e.buf.WriteByte(0xc2)
		}
	case int:
		e.writeInt(int64(val))
	case int64:
		e.writeInt(val)
	case float64:
		e.buf.WriteByte(0xcb)
		e.writeUint64(math.Float64bits(val))
	case string:
		e.writeString(val)
	case []byte:
		e.writeBytes(val)
	case []interface{}:
		e.writeArrayHeader(len(val))
		for _, item := range val {
			if err := e.encodeValue(item); err != nil {
				return err
			}
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.writeMapHeader(len(keys))
		for _, k := range keys {
			e.writeString(k)
			if err := e.encodeValue(val[k]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported msgpack value %T", v)
	}
	return nil
}

func (e *msgpackEncoder) writeInt(v int64) {
	switch {
	case v >= 0 && v <= 0x7f:
		e.buf.WriteByte(byte(v))
	case v < 0 && v >= -32:
		e.buf.WriteByte(byte(int8(v)))
	case v >= math.MinInt32 && v <= math.MaxInt32:
		e.buf.WriteByte(0xd2)
		e.writeUint32(uint32(int32(v)))
	default:
		e.buf.WriteByte(0xd3)
		e.writeUint64(uint64(v))
	}
}

func (e *msgpackEncoder) writeString(s string) {
	n := len(s)
	switch {
	case n <= 31:
		e.buf.WriteByte(0xa0 | byte(n))
	case n <= math.MaxUint8:
		e.buf.WriteByte(0xd9)
		e.buf.WriteByte(byte(n))
	case n <= math.MaxUint16:
		e.buf.WriteByte(0xda)
		e.writeUint16(uint16(n))
	default:
		e.buf.WriteByte(0xdb)
		e.writeUint32(uint32(n))
	}
	e.buf.WriteString(s)
}

func (e *msgpackEncoder) writeBytes(b []byte) {
	n := len(b)
	switch {
	case n <= math.MaxUint8:
		e.buf.WriteByte(0xc4)
		e.buf.WriteByte(byte(n))
	case n <= math.MaxUint16:
		e.buf.WriteByte(0xc5)
		e.writeUint16(uint16(n))
	default:
		e.buf.WriteByte(0xc6)
		e.writeUint32(uint32(n))
	}
	e.buf.Write(b)
}

func (e *msgpackEncoder) writeArrayHeader(n int) {
	switch {
	case n <= 15:
		e.buf.WriteByte(0x90 | byte(n))
	case n <= math.MaxUint16:
		e.buf.WriteByte(0xdc)
		e.writeUint16(uint16(n))
	default:
		e.buf.WriteByte(0xdd)
		e.writeUint32(uint32(n))
	}
}

func (e *msgpackEncoder) writeMapHeader(n int) {
	switch {
	case n <= 15:
		e.buf.WriteByte(0x80 | byte(n))
	case n <= math.MaxUint16:
		e.buf.WriteByte(0xde)
		e.writeUint16(uint16(n))
	default:
		e.buf.WriteByte(0xdf)
		e.writeUint32(uint32(n))
	}
}

func (e *msgpackEncoder) writeUint16(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	e.buf.Write(buf[:])
}

func (e *msgpackEncoder) writeUint32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	e.buf.Write(buf[:])
}

func (e *msgpackEncoder) writeUint64(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	e.buf.Write(buf[:])
}

func decodeMsgpack(data []byte) (interface{}, error) {
	dec := msgpackDecoder{r: bytes.NewReader(data)}
	val, err := dec.decodeValue()
	if err != nil {
		return nil, err
	}
	if dec.r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes", dec.r.Len())
	}
	return val, nil
}

type msgpackDecoder struct {
	r *bytes.Reader
}

func (d *msgpackDecoder) decodeValue() (interface{}, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch {
	case b <= 0x7f:
		return int64(b), nil
	case b >= 0xe0:
		return int64(int8(b)), nil
	case b >= 0xa0 && b <= 0xbf:
		return d.readString(int(b & 0x1f))
	case b >= 0x90 && b <= 0x9f:
		return d.readArray(int(b & 0x0f))
	case b >= 0x80 && b <= 0x8f:
		return d.readMap(int(b & 0x0f))
	}

	switch b {
	case 0xc0:
		return nil, nil
	case 0xc2:
		return false, nil
	case 0xc3:
		return true, nil
	case 0xc4, 0xc5, 0xc6:
		length, err := d.readLength(b - 0xc4)
		if err != nil {
			return nil, err
		}
		return d.readBytes(length)
	case 0xca:
		val, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		return float64(math.Float32frombits(val)), nil
	case 0xcb:
		val, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(val), nil
	case 0xcc, 0xcd, 0xce:
		length, err := d.readLength(b - 0xcc)
		if err != nil {
			return nil, err
		}
		return int64(length), nil
	case 0xcf:
		val, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("uint64 %d overflows int64", val)
		}
		return int64(val), nil
	case 0xd0:
		val, err := d.r.ReadByte()
		return int64(int8(val)), err
	case 0xd1:
		val, err := d.readUint16()
		return int64(int16(val)), err
	case 0xd2:
		val, err := d.readUint32()
		return int64(int32(val)), err
	case 0xd3:
		val, err := d.readUint64()
		return int64(val), err
	case 0xd9, 0xda, 0xdb:
		length, err := d.readLength(b - 0xd9)
		if err != nil {
			return nil, err
		}
		return d.readString(length)
	case 0xdc, 0xdd:
		length, err := d.readLength(b - 0xdc + 1)
		if err != nil {
			return nil, err
		}
		return d.readArray(length)
	case 0xde, 0xdf:
		length, err := d.readLength(b - 0xde + 1)
		if err != nil {
			return nil, err
		}
		return d.readMap(length)
	default:
		return nil, fmt.Errorf("unsupported msgpack prefix 0x%x", b)
	}
}

// readLength reads a big-endian unsigned length of 1, 2 or 4 bytes
// (width 0, 1, 2).
func (d *msgpackDecoder) readLength(width byte) (int, error) {
	switch width {
	case 0:
		b, err := d.r.ReadByte()
		return int(b), err
	case 1:
		v, err := d.readUint16()
		return int(v), err
	default:
		v, err := d.readUint32()
		return int(v), err
	}
}

func (d *msgpackDecoder) readArray(length int) ([]interface{}, error) {
	// Every element takes at least one byte.
	if length > d.r.Len() {
		return nil, io.ErrUnexpectedEOF
	}
	out := make([]interface{}, 0, length)
	for i := 0; i < length; i++ {
		val, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

func (d *msgpackDecoder) readMap(length int) (map[string]interface{}, error) {
	if length*2 > d.r.Len() {
		return nil, io.ErrUnexpectedEOF
	}
	out := make(map[string]interface{}, length)
	for i := 0; i < length; i++ {
		key, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		name, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("map key %T is not a string", key)
		}
		val, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		out[name] = val
	}
	return out, nil
}

func (d *msgpackDecoder) readString(length int) (string, error) {
	data, err := d.readBytes(length)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (d *msgpackDecoder) readBytes(length int) ([]byte, error) {
	if length < 0 || length > d.r.Len() {
		return nil, fmt.Errorf("invalid length %d", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *msgpackDecoder) readUint16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (d *msgpackDecoder) readUint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (d *msgpackDecoder) readUint64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
