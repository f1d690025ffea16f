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

import "fmt"

// Responses carry no discriminant: their shape is implied by the request
// that produced them. Reset and SetState produce an init snapshot; Step
// produces a step snapshot; EnvShapesRequest produces a shapes pair.

// InitSnapshot is the decoded reset/set-state response: the new roster
// in order, observations aligned with it, and the shared-info mapping
// when a shared-info codec is configured.
type InitSnapshot[ID comparable, O any] struct {
	Agents     []ID
	Obs        []O
	SharedInfo map[string]any
}

// StepSnapshot is the decoded step response. All slices align with the
// roster order. Agents repeats the roster the decoder used: either the
// caller's (identifiers omitted on the wire) or the retransmitted one.
type StepSnapshot[ID comparable, O, R any] struct {
	Agents     []ID
	Obs        []O
	Rewards    []R
	Terminated []bool
	Truncated  []bool
	SharedInfo map[string]any
}

// AppendInitSnapshot encodes a reset/set-state response: a leading agent
// count, then per agent its identifier and observation, then the
// shared-info mapping if configured. The count and full identifier list
// are always present here regardless of the retransmission option; this
// is how the coordinator learns the new roster.
func (c *Codecs[ID, O, A, R, SP]) AppendInitSnapshot(buf []byte, offset int, roster []ID, obs map[ID]O, sharedInfo map[string]any) (int, error) {
	offset, err := AppendUint32(buf, offset, uint32(len(roster)))
	if err != nil {
		return 0, err
	}
	for _, id := range roster {
		offset, err = c.AgentID.Append(buf, offset, id)
		if err != nil {
			return 0, fmt.Errorf("encoding agent id %v: %w", id, err)
		}
		o, ok := obs[id]
		if !ok {
			return 0, fmt.Errorf("missing observation for agent %v", id)
		}
		offset, err = c.Obs.Append(buf, offset, o)
		if err != nil {
			return 0, fmt.Errorf("encoding observation for agent %v: %w", id, err)
		}
	}
	return c.appendSharedInfo(buf, offset, sharedInfo)
}

// ReadInitSnapshot decodes a reset/set-state response.
func (c *Codecs[ID, O, A, R, SP]) ReadInitSnapshot(buf []byte, offset int) (InitSnapshot[ID, O], int, error) {
	var snap InitSnapshot[ID, O]

	count, offset, err := ReadUint32(buf, offset)
	if err != nil {
		return snap, 0, err
	}
	// The count is wire data; cap the allocation hint at what the
	// remaining bytes could hold and let the decode loop report the
	// shortfall.
	hint := int(count)
	if rem := len(buf) - offset; hint < 0 || hint > rem {
		hint = rem
	}
	snap.Agents = make([]ID, 0, hint)
	snap.Obs = make([]O, 0, hint)
	for i := uint32(0); i < count; i++ {
		var id ID
		id, offset, err = c.AgentID.Read(buf, offset)
		if err != nil {
			return snap, 0, fmt.Errorf("decoding agent id %d: %w", i, err)
		}
		var o O
		o, offset, err = c.Obs.Read(buf, offset)
		if err != nil {
			return snap, 0, fmt.Errorf("decoding observation %d: %w", i, err)
		}
		snap.Agents = append(snap.Agents, id)
		snap.Obs = append(snap.Obs, o)
	}

	snap.SharedInfo, offset, err = c.readSharedInfo(buf, offset)
	if err != nil {
		return snap, 0, err
	}
	return snap, offset, nil
}

// AppendStepSnapshot encodes a step response: no leading count, then per
// roster agent its identifier (only when RetransmitIDs is set), its
// observation, reward, terminated and truncated flags, then the
// shared-info mapping if configured.
func (c *Codecs[ID, O, A, R, SP]) AppendStepSnapshot(buf []byte, offset int, roster []ID, obs map[ID]O, rewards map[ID]R, terminated, truncated map[ID]bool, sharedInfo map[string]any) (int, error) {
	var err error
	for _, id := range roster {
		if c.RetransmitIDs {
			offset, err = c.AgentID.Append(buf, offset, id)
			if err != nil {
				return 0, fmt.Errorf("encoding agent id %v: %w", id, err)
			}
		}
		o, ok := obs[id]
		if !ok {
			return 0, fmt.Errorf("missing observation for agent %v", id)
		}
		offset, err = c.Obs.Append(buf, offset, o)
		if err != nil {
			return 0, fmt.Errorf("encoding observation for agent %v: %w", id, err)
		}
		r, ok := rewards[id]
		if !ok {
			return 0, fmt.Errorf("missing reward for agent %v", id)
		}
		offset, err = c.Reward.Append(buf, offset, r)
		if err != nil {
			return 0, fmt.Errorf("encoding reward for agent %v: %w", id, err)
		}
		term, ok := terminated[id]
		if !ok {
			return 0, fmt.Errorf("missing terminated flag for agent %v", id)
		}
		offset, err = AppendBool(buf, offset, term)
		if err != nil {
			return 0, err
		}
		trunc, ok := truncated[id]
		if !ok {
			return 0, fmt.Errorf("missing truncated flag for agent %v", id)
		}
		offset, err = AppendBool(buf, offset, trunc)
		if err != nil {
			return 0, err
		}
	}
	return c.appendSharedInfo(buf, offset, sharedInfo)
}

// ReadStepSnapshot decodes a step response against the caller's current
// roster. When identifiers were retransmitted the decoded ones replace
// the caller's; otherwise the roster is reused as-is, in the same order.
func (c *Codecs[ID, O, A, R, SP]) ReadStepSnapshot(buf []byte, offset int, roster []ID) (StepSnapshot[ID, O, R], int, error) {
	var snap StepSnapshot[ID, O, R]

	n := len(roster)
	snap.Agents = make([]ID, 0, n)
	snap.Obs = make([]O, 0, n)
	snap.Rewards = make([]R, 0, n)
	snap.Terminated = make([]bool, 0, n)
	snap.Truncated = make([]bool, 0, n)

	var err error
	for i, id := range roster {
		if c.RetransmitIDs {
			id, offset, err = c.AgentID.Read(buf, offset)
			if err != nil {
				return snap, 0, fmt.Errorf("decoding agent id %d: %w", i, err)
			}
		}
		var o O
		o, offset, err = c.Obs.Read(buf, offset)
		if err != nil {
			return snap, 0, fmt.Errorf("decoding observation %d: %w", i, err)
		}
		var r R
		r, offset, err = c.Reward.Read(buf, offset)
		if err != nil {
			return snap, 0, fmt.Errorf("decoding reward %d: %w", i, err)
		}
		var term, trunc bool
		term, offset, err = ReadBool(buf, offset)
		if err != nil {
			return snap, 0, fmt.Errorf("decoding terminated flag %d: %w", i, err)
		}
		trunc, offset, err = ReadBool(buf, offset)
		if err != nil {
			return snap, 0, fmt.Errorf("decoding truncated flag %d: %w", i, err)
		}

		snap.Agents = append(snap.Agents, id)
		snap.Obs = append(snap.Obs, o)
		snap.Rewards = append(snap.Rewards, r)
		snap.Terminated = append(snap.Terminated, term)
		snap.Truncated = append(snap.Truncated, trunc)
	}

	snap.SharedInfo, offset, err = c.readSharedInfo(buf, offset)
	if err != nil {
		return snap, 0, err
	}
	return snap, offset, nil
}

// AppendShapes encodes the shape-query response: the observation-space
// and action-space descriptors, nothing else.
func (c *Codecs[ID, O, A, R, SP]) AppendShapes(buf []byte, offset int, obsSpace, actionSpace SP) (int, error) {
	offset, err := c.ObsSpace.Append(buf, offset, obsSpace)
	if err != nil {
		return 0, fmt.Errorf("encoding observation space: %w", err)
	}
	offset, err = c.ActionSpace.Append(buf, offset, actionSpace)
	if err != nil {
		return 0, fmt.Errorf("encoding action space: %w", err)
	}
	return offset, nil
}

// ReadShapes decodes the shape-query response.
func (c *Codecs[ID, O, A, R, SP]) ReadShapes(buf []byte, offset int) (obsSpace, actionSpace SP, next int, err error) {
	obsSpace, offset, err = c.ObsSpace.Read(buf, offset)
	if err != nil {
		return obsSpace, actionSpace, 0, fmt.Errorf("decoding observation space: %w", err)
	}
	actionSpace, offset, err = c.ActionSpace.Read(buf, offset)
	if err != nil {
		return obsSpace, actionSpace, 0, fmt.Errorf("decoding action space: %w", err)
	}
	return obsSpace, actionSpace, offset, nil
}

func (c *Codecs[ID, O, A, R, SP]) appendSharedInfo(buf []byte, offset int, sharedInfo map[string]any) (int, error) {
	if c.SharedInfo == nil {
		return offset, nil
	}
	offset, err := c.SharedInfo.Append(buf, offset, sharedInfo)
	if err != nil {
		return 0, fmt.Errorf("encoding shared info: %w", err)
	}
	return offset, nil
}

func (c *Codecs[ID, O, A, R, SP]) readSharedInfo(buf []byte, offset int) (map[string]any, int, error) {
	if c.SharedInfo == nil {
		return nil, offset, nil
	}
	info, offset, err := c.SharedInfo.Read(buf, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding shared info: %w", err)
	}
	return info, offset, nil
}
