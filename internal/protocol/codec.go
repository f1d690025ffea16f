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

import "errors"

// Codec encodes and decodes one value type at an offset cursor. Append
// writes v into buf starting at offset and returns the offset just past
// the bytes it wrote; Read consumes the same bytes and returns the value
// plus the advanced offset. Implementations never write length markers
// beyond their own needs: composition is purely sequential.
type Codec[T any] interface {
	Append(buf []byte, offset int, v T) (int, error)
	Read(buf []byte, offset int) (T, int, error)
}

// Codecs is the full serde bundle one worker/coordinator pair agrees on.
// Both sides must construct it identically; there is no negotiation on
// the wire. The five type parameters fix the agent identifier,
// observation, action, reward and space-descriptor types.
//
// The SharedInfo, SharedInfoPatch and State codecs are optional. A nil
// SharedInfo means responses carry no shared-info field; a nil
// SharedInfoPatch means EnvAction messages carry no patch presence flag
// at all; a nil State makes SetState requests unencodable.
type Codecs[ID comparable, O, A, R, SP any] struct {
	AgentID Codec[ID]
	Obs     Codec[O]
	Action  Codec[A]
	Reward  Codec[R]

	ObsSpace    Codec[SP]
	ActionSpace Codec[SP]

	SharedInfo      Codec[map[string]any]
	SharedInfoPatch Codec[map[string]any]
	State           Codec[[]byte]

	// RetransmitIDs forces agent identifiers into every step response
	// even when the roster is unchanged. Rosters that mutate in place
	// without an episode boundary need this; otherwise it is overhead.
	RetransmitIDs bool
}

// Validate checks that every required codec is present. The optional
// ones (SharedInfo, SharedInfoPatch, State) may be nil.
func (c *Codecs[ID, O, A, R, SP]) Validate() error {
	if c.AgentID == nil {
		return errors.New("agent id codec is required")
	}
	if c.Obs == nil {
		return errors.New("observation codec is required")
	}
	if c.Action == nil {
		return errors.New("action codec is required")
	}
	if c.Reward == nil {
		return errors.New("reward codec is required")
	}
	if c.ObsSpace == nil {
		return errors.New("observation space codec is required")
	}
	if c.ActionSpace == nil {
		return errors.New("action space codec is required")
	}
	return nil
}
