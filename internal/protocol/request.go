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
	"errors"
	"fmt"
)

// EnvAction is the decoded form of the coordinator's request. Kind
// selects the variant: Step carries Actions (one per roster agent, in
// roster order), SetState carries State, Reset carries neither. Any
// variant may carry a shared-info patch when a patch codec is
// configured.
type EnvAction[A any] struct {
	Kind    RequestKind
	Actions []A
	State   []byte

	HasPatch bool
	Patch    map[string]any
}

// AppendEnvAction encodes the full EnvAction message including its
// leading header byte. The coordinator is the only writer of requests.
// For Step the action count is never written: both sides agree it
// equals the current roster length.
func (c *Codecs[ID, O, A, R, SP]) AppendEnvAction(buf []byte, offset int, req EnvAction[A]) (int, error) {
	offset, err := AppendHeader(buf, offset, HeaderEnvAction)
	if err != nil {
		return 0, err
	}
	offset, err = appendRequestKind(buf, offset, req.Kind)
	if err != nil {
		return 0, err
	}

	switch req.Kind {
	case RequestStep:
		for i, a := range req.Actions {
			offset, err = c.Action.Append(buf, offset, a)
			if err != nil {
				return 0, fmt.Errorf("encoding action %d: %w", i, err)
			}
		}
	case RequestReset:
		// No variant payload.
	case RequestSetState:
		if c.State == nil {
			return 0, errors.New("set-state request without a state codec")
		}
		offset, err = c.State.Append(buf, offset, req.State)
		if err != nil {
			return 0, fmt.Errorf("encoding state: %w", err)
		}
	default:
		return 0, fmt.Errorf("cannot encode request kind %s", req.Kind)
	}

	if c.SharedInfoPatch != nil {
		offset, err = AppendBool(buf, offset, req.HasPatch)
		if err != nil {
			return 0, err
		}
		if req.HasPatch {
			offset, err = c.SharedInfoPatch.Append(buf, offset, req.Patch)
			if err != nil {
				return 0, fmt.Errorf("encoding shared-info patch: %w", err)
			}
		}
	} else if req.HasPatch {
		return 0, errors.New("shared-info patch without a patch codec")
	}

	return offset, nil
}

// ReadEnvAction decodes the body of an EnvAction message. The caller has
// already consumed the header byte to dispatch here. rosterLen tells the
// decoder how many actions a Step variant carries; the wire has no count.
func (c *Codecs[ID, O, A, R, SP]) ReadEnvAction(buf []byte, offset, rosterLen int) (EnvAction[A], int, error) {
	var req EnvAction[A]

	kind, offset, err := readRequestKind(buf, offset)
	if err != nil {
		return req, 0, err
	}
	req.Kind = kind

	switch kind {
	case RequestStep:
		req.Actions = make([]A, 0, rosterLen)
		for i := 0; i < rosterLen; i++ {
			var a A
			a, offset, err = c.Action.Read(buf, offset)
			if err != nil {
				return req, 0, fmt.Errorf("decoding action %d: %w", i, err)
			}
			req.Actions = append(req.Actions, a)
		}
	case RequestReset:
		// No variant payload.
	case RequestSetState:
		if c.State == nil {
			return req, 0, errors.New("set-state request without a state codec")
		}
		req.State, offset, err = c.State.Read(buf, offset)
		if err != nil {
			return req, 0, fmt.Errorf("decoding state: %w", err)
		}
	}

	if c.SharedInfoPatch != nil {
		req.HasPatch, offset, err = ReadBool(buf, offset)
		if err != nil {
			return req, 0, err
		}
		if req.HasPatch {
			req.Patch, offset, err = c.SharedInfoPatch.Read(buf, offset)
			if err != nil {
				return req, 0, fmt.Errorf("decoding shared-info patch: %w", err)
			}
		}
	}

	return req, offset, nil
}
