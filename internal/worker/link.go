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

package worker

// ControlEvent is the doorbell the worker sleeps on between cycles. The
// coordinator sets it after writing a request into the payload region;
// the worker clears it before reading so the next request can re-arm it.
type ControlEvent interface {
	Wait() error
	Clear()
}

// ReadyPeer carries completion notifications from the worker to the
// coordinator, and the coordinator's startup bytes back during the
// initial rendezvous.
type ReadyPeer interface {
	Notify() error
	AwaitNotify() error
}

// Link bundles the shared payload region with the two signaling
// primitives of one worker/coordinator pair.
//
// Ownership of Payload alternates: after the worker clears the event it
// is the only party reading or writing the region until it notifies via
// Ready, at which point ownership passes back to the coordinator.
type Link struct {
	Payload []byte
	Event   ControlEvent
	Ready   ReadyPeer
}
