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

package env

import "fmt"

// SpaceKind discriminates space descriptors. Zero is invalid so a
// zeroed descriptor never passes for a real one.
type SpaceKind uint8

const (
	SpaceInvalid SpaceKind = iota
	SpaceDiscrete
	SpaceBox
)

func (k SpaceKind) String() string {
	switch k {
	case SpaceDiscrete:
		return "Discrete"
	case SpaceBox:
		return "Box"
	default:
		return fmt.Sprintf("SpaceKind(%d)", uint8(k))
	}
}

// Space is an opaque-to-the-transport space descriptor: either a
// discrete choice count or a bounded box with a tensor shape. The shape
// query ships one of these per direction (observation, action).
type Space struct {
	Kind SpaceKind

	// N is the number of choices for Discrete spaces.
	N int64

	// Shape, Low and High describe Box spaces.
	Shape []int32
	Low   float32
	High  float32
}

// Discrete returns a discrete space descriptor with n choices.
func Discrete(n int64) Space {
	return Space{Kind: SpaceDiscrete, N: n}
}

// Box returns a box space descriptor over the given shape and bounds.
func Box(shape []int32, low, high float32) Space {
	return Space{Kind: SpaceBox, Shape: shape, Low: low, High: high}
}
