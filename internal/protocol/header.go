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

// Header is the one-byte discriminant at the front of every
// coordinator-to-worker message. Zero is reserved as invalid so a
// cleared buffer never decodes as a message.
type Header uint8

const (
	HeaderInvalid Header = iota
	HeaderEnvAction
	HeaderEnvShapesRequest
	HeaderStop
)

func (h Header) String() string {
	switch h {
	case HeaderEnvAction:
		return "EnvAction"
	case HeaderEnvShapesRequest:
		return "EnvShapesRequest"
	case HeaderStop:
		return "Stop"
	default:
		return fmt.Sprintf("Header(%d)", uint8(h))
	}
}

// RequestKind is the sub-discriminant inside an EnvAction message.
type RequestKind uint8

const (
	RequestInvalid RequestKind = iota
	RequestStep
	RequestReset
	RequestSetState
)

func (k RequestKind) String() string {
	switch k {
	case RequestStep:
		return "Step"
	case RequestReset:
		return "Reset"
	case RequestSetState:
		return "SetState"
	default:
		return fmt.Sprintf("RequestKind(%d)", uint8(k))
	}
}

// NewEpisode reports whether a request of this kind starts a new episode
// boundary: the response it produces re-establishes the roster, so it
// carries a leading agent count and the full identifier list.
func (k RequestKind) NewEpisode() bool {
	return k == RequestReset || k == RequestSetState
}

// AppendHeader writes the message discriminant.
func AppendHeader(buf []byte, offset int, h Header) (int, error) {
	return AppendByte(buf, offset, byte(h))
}

// ReadHeader reads and validates the message discriminant.
func ReadHeader(buf []byte, offset int) (Header, int, error) {
	b, next, err := ReadByte(buf, offset)
	if err != nil {
		return HeaderInvalid, 0, err
	}
	h := Header(b)
	switch h {
	case HeaderEnvAction, HeaderEnvShapesRequest, HeaderStop:
		return h, next, nil
	default:
		return HeaderInvalid, 0, fmt.Errorf("unknown message header %d", b)
	}
}

// appendRequestKind writes the EnvAction sub-discriminant.
func appendRequestKind(buf []byte, offset int, k RequestKind) (int, error) {
	return AppendByte(buf, offset, byte(k))
}

// readRequestKind reads and validates the EnvAction sub-discriminant.
func readRequestKind(buf []byte, offset int) (RequestKind, int, error) {
	b, next, err := ReadByte(buf, offset)
	if err != nil {
		return RequestInvalid, 0, err
	}
	k := RequestKind(b)
	switch k {
	case RequestStep, RequestReset, RequestSetState:
		return k, next, nil
	default:
		return RequestInvalid, 0, fmt.Errorf("unknown request kind %d", b)
	}
}
