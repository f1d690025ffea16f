/*
 *
 * Copyright 2025 The rlgym-learn Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrShortBuffer reports that an encode ran past the end of the payload
// region or a decode ran past the end of the message. Either way the
// framing is broken and the error is fatal to the exchange.
var ErrShortBuffer = errors.New("buffer too small")

// Primitive append/read helpers. All of them take and return an absolute
// offset into buf, so codecs compose by threading the cursor through.

// AppendByte writes one byte at offset.
func AppendByte(buf []byte, offset int, v byte) (int, error) {
	if offset+1 > len(buf) {
		return 0, fmt.Errorf("append byte at offset %d: %w", offset, ErrShortBuffer)
	}
	buf[offset] = v
	return offset + 1, nil
}

// ReadByte reads one byte at offset.
func ReadByte(buf []byte, offset int) (byte, int, error) {
	if offset+1 > len(buf) {
		return 0, 0, fmt.Errorf("byte at offset %d: %w", offset, ErrShortBuffer)
	}
	return buf[offset], offset + 1, nil
}

// AppendBool writes a bool as a single 0/1 byte.
func AppendBool(buf []byte, offset int, v bool) (int, error) {
	b := byte(0)
	if v {
		b = 1
	}
	return AppendByte(buf, offset, b)
}

// ReadBool reads a single strict 0/1 byte. Any other value means the
// cursor has desynchronized from the encoder.
func ReadBool(buf []byte, offset int) (bool, int, error) {
	b, next, err := ReadByte(buf, offset)
	if err != nil {
		return false, 0, err
	}
	switch b {
	case 0:
		return false, next, nil
	case 1:
		return true, next, nil
	default:
		return false, 0, fmt.Errorf("bool at offset %d: invalid value %d", offset, b)
	}
}

// AppendUint32 writes a little-endian uint32.
func AppendUint32(buf []byte, offset int, v uint32) (int, error) {
	if offset+4 > len(buf) {
		return 0, fmt.Errorf("append uint32 at offset %d: %w", offset, ErrShortBuffer)
	}
	binary.LittleEndian.PutUint32(buf[offset:offset+4], v)
	return offset + 4, nil
}

// ReadUint32 reads a little-endian uint32.
func ReadUint32(buf []byte, offset int) (uint32, int, error) {
	if offset+4 > len(buf) {
		return 0, 0, fmt.Errorf("uint32 at offset %d: %w", offset, ErrShortBuffer)
	}
	return binary.LittleEndian.Uint32(buf[offset : offset+4]), offset + 4, nil
}

// AppendUint64 writes a little-endian uint64.
func AppendUint64(buf []byte, offset int, v uint64) (int, error) {
	if offset+8 > len(buf) {
		return 0, fmt.Errorf("append uint64 at offset %d: %w", offset, ErrShortBuffer)
	}
	binary.LittleEndian.PutUint64(buf[offset:offset+8], v)
	return offset + 8, nil
}

// ReadUint64 reads a little-endian uint64.
func ReadUint64(buf []byte, offset int) (uint64, int, error) {
	if offset+8 > len(buf) {
		return 0, 0, fmt.Errorf("uint64 at offset %d: %w", offset, ErrShortBuffer)
	}
	return binary.LittleEndian.Uint64(buf[offset : offset+8]), offset + 8, nil
}

// AppendInt64 writes a little-endian two's-complement int64.
func AppendInt64(buf []byte, offset int, v int64) (int, error) {
	return AppendUint64(buf, offset, uint64(v))
}

// ReadInt64 reads a little-endian two's-complement int64.
func ReadInt64(buf []byte, offset int) (int64, int, error) {
	u, next, err := ReadUint64(buf, offset)
	return int64(u), next, err
}

// AppendFloat32 writes an IEEE-754 float32.
func AppendFloat32(buf []byte, offset int, v float32) (int, error) {
	return AppendUint32(buf, offset, math.Float32bits(v))
}

// ReadFloat32 reads an IEEE-754 float32.
func ReadFloat32(buf []byte, offset int) (float32, int, error) {
	u, next, err := ReadUint32(buf, offset)
	return math.Float32frombits(u), next, err
}

// AppendFloat64 writes an IEEE-754 float64.
func AppendFloat64(buf []byte, offset int, v float64) (int, error) {
	return AppendUint64(buf, offset, math.Float64bits(v))
}

// ReadFloat64 reads an IEEE-754 float64.
func ReadFloat64(buf []byte, offset int) (float64, int, error) {
	u, next, err := ReadUint64(buf, offset)
	return math.Float64frombits(u), next, err
}

// AppendBytes writes a uint32 length prefix followed by the raw bytes.
func AppendBytes(buf []byte, offset int, v []byte) (int, error) {
	offset, err := AppendUint32(buf, offset, uint32(len(v)))
	if err != nil {
		return 0, err
	}
	if offset+len(v) > len(buf) {
		return 0, fmt.Errorf("append %d bytes at offset %d: %w", len(v), offset, ErrShortBuffer)
	}
	copy(buf[offset:], v)
	return offset + len(v), nil
}

// ReadBytes reads a uint32 length prefix and copies out that many bytes.
func ReadBytes(buf []byte, offset int) ([]byte, int, error) {
	n, offset, err := ReadUint32(buf, offset)
	if err != nil {
		return nil, 0, err
	}
	// n comes off the wire; compare in uint64 so a corrupt length cannot
	// wrap a 32-bit int and slip past the bound.
	if uint64(n) > uint64(len(buf)-offset) {
		return nil, 0, fmt.Errorf("%d bytes at offset %d: %w", n, offset, ErrShortBuffer)
	}
	out := append([]byte(nil), buf[offset:offset+int(n)]...)
	return out, offset + int(n), nil
}

// AppendString writes a uint32 length prefix followed by the string bytes.
func AppendString(buf []byte, offset int, v string) (int, error) {
	offset, err := AppendUint32(buf, offset, uint32(len(v)))
	if err != nil {
		return 0, err
	}
	if offset+len(v) > len(buf) {
		return 0, fmt.Errorf("append string of %d bytes at offset %d: %w", len(v), offset, ErrShortBuffer)
	}
	copy(buf[offset:], v)
	return offset + len(v), nil
}

// ReadString reads a uint32 length prefix and that many string bytes.
func ReadString(buf []byte, offset int) (string, int, error) {
	n, offset, err := ReadUint32(buf, offset)
	if err != nil {
		return "", 0, err
	}
	if uint64(n) > uint64(len(buf)-offset) {
		return "", 0, fmt.Errorf("string of %d bytes at offset %d: %w", n, offset, ErrShortBuffer)
	}
	return string(buf[offset : offset+int(n)]), offset + int(n), nil
}
