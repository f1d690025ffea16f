/*
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
 */

// Package protocol implements the message codec spoken over the shared
// memory payload region between the coordinator and an environment worker.
//
// Every coordinator-to-worker message starts with a one-byte Header
// discriminant (EnvAction, EnvShapesRequest or Stop). The fields after it
// are encoded by sequential composition of pluggable per-type codecs: a
// single offset cursor advances through the buffer and each codec consumes
// exactly the bytes it wrote. There are no length or boundary markers
// between fields, so the encode and decode order must match byte for byte;
// both sides must be constructed with the same Codecs bundle.
//
// Worker-to-coordinator responses carry no discriminant. Their shape is
// implied by the request that produced them: reset and set-state produce an
// init snapshot with a leading agent count and the full roster, step
// produces a per-agent observation/reward/terminated/truncated loop with no
// count and, unless identifier retransmission is enabled, no identifiers.
// All integers are little-endian.
package protocol
