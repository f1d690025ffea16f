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

package serde

import (
	"fmt"

	"github.com/Kaiyotech/rlgym-learn/internal/env"
	"github.com/Kaiyotech/rlgym-learn/internal/protocol"
)

// Space encodes env.Space descriptors for the shape query: a kind byte,
// then the kind's fields. Discrete carries its choice count; Box carries
// a shape vector and bounds.
type Space struct{}

func (Space) Append(buf []byte, offset int, v env.Space) (int, error) {
	offset, err := protocol.AppendByte(buf, offset, byte(v.Kind))
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case env.SpaceDiscrete:
		return protocol.AppendInt64(buf, offset, v.N)
	case env.SpaceBox:
		offset, err = protocol.AppendUint32(buf, offset, uint32(len(v.Shape)))
		if err != nil {
			return 0, err
		}
		for i, d := range v.Shape {
			offset, err = protocol.AppendUint32(buf, offset, uint32(d))
			if err != nil {
				return 0, fmt.Errorf("shape dim %d: %w", i, err)
			}
		}
		offset, err = protocol.AppendFloat32(buf, offset, v.Low)
		if err != nil {
			return 0, err
		}
		return protocol.AppendFloat32(buf, offset, v.High)
	default:
		return 0, fmt.Errorf("cannot encode space kind %s", v.Kind)
	}
}

func (Space) Read(buf []byte, offset int) (env.Space, int, error) {
	var v env.Space

	b, offset, err := protocol.ReadByte(buf, offset)
	if err != nil {
		return v, 0, err
	}
	v.Kind = env.SpaceKind(b)

	switch v.Kind {
	case env.SpaceDiscrete:
		v.N, offset, err = protocol.ReadInt64(buf, offset)
		if err != nil {
			return v, 0, err
		}
		return v, offset, nil
	case env.SpaceBox:
		var dims uint32
		dims, offset, err = protocol.ReadUint32(buf, offset)
		if err != nil {
			return v, 0, err
		}
		if uint64(dims)*4 > uint64(len(buf)-offset) {
			return v, 0, fmt.Errorf("%d shape dims at offset %d: %w", dims, offset, protocol.ErrShortBuffer)
		}
		v.Shape = make([]int32, 0, dims)
		for i := uint32(0); i < dims; i++ {
			var d uint32
			d, offset, err = protocol.ReadUint32(buf, offset)
			if err != nil {
				return v, 0, fmt.Errorf("shape dim %d: %w", i, err)
			}
			v.Shape = append(v.Shape, int32(d))
		}
		v.Low, offset, err = protocol.ReadFloat32(buf, offset)
		if err != nil {
			return v, 0, err
		}
		v.High, offset, err = protocol.ReadFloat32(buf, offset)
		if err != nil {
			return v, 0, err
		}
		return v, offset, nil
	default:
		return v, 0, fmt.Errorf("unknown space kind %d", b)
	}
}
