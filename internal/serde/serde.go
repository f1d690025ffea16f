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

// Package serde provides the stock codec implementations plugged into a
// protocol.Codecs bundle: fixed-width scalars, length-prefixed strings
// and byte blobs, flat float vectors, JSON-encoded string maps and space
// descriptors. Projects with richer observation or action types
// implement protocol.Codec directly.
package serde

import (
	"encoding/json"
	"fmt"

	"github.com/Kaiyotech/rlgym-learn/internal/protocol"
)

// String is a uint32-length-prefixed UTF-8 string codec.
type String struct{}

func (String) Append(buf []byte, offset int, v string) (int, error) {
	return protocol.AppendString(buf, offset, v)
}

func (String) Read(buf []byte, offset int) (string, int, error) {
	return protocol.ReadString(buf, offset)
}

// Bytes is a uint32-length-prefixed opaque blob codec.
type Bytes struct{}

func (Bytes) Append(buf []byte, offset int, v []byte) (int, error) {
	return protocol.AppendBytes(buf, offset, v)
}

func (Bytes) Read(buf []byte, offset int) ([]byte, int, error) {
	return protocol.ReadBytes(buf, offset)
}

// Bool is a strict one-byte 0/1 codec.
type Bool struct{}

func (Bool) Append(buf []byte, offset int, v bool) (int, error) {
	return protocol.AppendBool(buf, offset, v)
}

func (Bool) Read(buf []byte, offset int) (bool, int, error) {
	return protocol.ReadBool(buf, offset)
}

// Int64 is a fixed eight-byte little-endian signed integer codec.
type Int64 struct{}

func (Int64) Append(buf []byte, offset int, v int64) (int, error) {
	return protocol.AppendInt64(buf, offset, v)
}

func (Int64) Read(buf []byte, offset int) (int64, int, error) {
	return protocol.ReadInt64(buf, offset)
}

// Float32 is a fixed four-byte IEEE-754 codec.
type Float32 struct{}

func (Float32) Append(buf []byte, offset int, v float32) (int, error) {
	return protocol.AppendFloat32(buf, offset, v)
}

func (Float32) Read(buf []byte, offset int) (float32, int, error) {
	return protocol.ReadFloat32(buf, offset)
}

// Float64 is a fixed eight-byte IEEE-754 codec.
type Float64 struct{}

func (Float64) Append(buf []byte, offset int, v float64) (int, error) {
	return protocol.AppendFloat64(buf, offset, v)
}

func (Float64) Read(buf []byte, offset int) (float64, int, error) {
	return protocol.ReadFloat64(buf, offset)
}

// Float32Slice is a uint32-count-prefixed flat float vector codec, the
// usual shape of dense observations.
type Float32Slice struct{}

func (Float32Slice) Append(buf []byte, offset int, v []float32) (int, error) {
	offset, err := protocol.AppendUint32(buf, offset, uint32(len(v)))
	if err != nil {
		return 0, err
	}
	for i, f := range v {
		offset, err = protocol.AppendFloat32(buf, offset, f)
		if err != nil {
			return 0, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return offset, nil
}

func (Float32Slice) Read(buf []byte, offset int) ([]float32, int, error) {
	n, offset, err := protocol.ReadUint32(buf, offset)
	if err != nil {
		return nil, 0, err
	}
	// Reject counts the remaining bytes cannot hold before sizing the
	// slice; the count is wire data.
	if uint64(n)*4 > uint64(len(buf)-offset) {
		return nil, 0, fmt.Errorf("%d floats at offset %d: %w", n, offset, protocol.ErrShortBuffer)
	}
	out := make([]float32, 0, n)
	for i := uint32(0); i < n; i++ {
		var f float32
		f, offset, err = protocol.ReadFloat32(buf, offset)
		if err != nil {
			return nil, 0, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, offset, nil
}

// Int64Slice is a uint32-count-prefixed integer vector codec.
type Int64Slice struct{}

func (Int64Slice) Append(buf []byte, offset int, v []int64) (int, error) {
	offset, err := protocol.AppendUint32(buf, offset, uint32(len(v)))
	if err != nil {
		return 0, err
	}
	for i, n := range v {
		offset, err = protocol.AppendInt64(buf, offset, n)
		if err != nil {
			return 0, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return offset, nil
}

func (Int64Slice) Read(buf []byte, offset int) ([]int64, int, error) {
	n, offset, err := protocol.ReadUint32(buf, offset)
	if err != nil {
		return nil, 0, err
	}
	if uint64(n)*8 > uint64(len(buf)-offset) {
		return nil, 0, fmt.Errorf("%d ints at offset %d: %w", n, offset, protocol.ErrShortBuffer)
	}
	out := make([]int64, 0, n)
	for i := uint32(0); i < n; i++ {
		var v int64
		v, offset, err = protocol.ReadInt64(buf, offset)
		if err != nil {
			return nil, 0, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, offset, nil
}

// JSONMap carries a string-keyed map as a length-prefixed JSON document.
// It is the stock choice for shared-info mappings and patches, whose
// value types are open-ended. A nil map encodes as JSON null and decodes
// back to nil.
type JSONMap struct{}

func (JSONMap) Append(buf []byte, offset int, v map[string]any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("marshaling map: %w", err)
	}
	return protocol.AppendBytes(buf, offset, data)
}

func (JSONMap) Read(buf []byte, offset int) (map[string]any, int, error) {
	data, offset, err := protocol.ReadBytes(buf, offset)
	if err != nil {
		return nil, 0, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, 0, fmt.Errorf("unmarshaling map: %w", err)
	}
	return m, offset, nil
}
