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

package shm

import (
	"sync/atomic"
	"time"
)

// Event word states
const (
	eventClear    = uint32(0)
	eventSignaled = uint32(1)
)

// Event is a cross-process auto-reset event backed by a 32-bit word in
// shared memory. The coordinator calls Set after writing a request; the
// worker calls Wait then Clear before reading it. On Linux the wait
// parks on a futex; elsewhere it polls.
//
// The word lives inside the segment header, so an Event is only valid
// while its segment stays mapped.
type Event struct {
	word *uint32
}

// NewEvent wraps an event word. Real transports hand out the segment
// header word via Segment.Event; tests may wrap any uint32.
func NewEvent(word *uint32) *Event {
	return &Event{word: word}
}

// Set signals the event: it stores 1 and wakes one waiter.
func (e *Event) Set() {
	atomic.StoreUint32(e.word, eventSignaled)
	eventWake(e.word)
}

// Clear resets the event word to 0. The waiting side clears immediately
// after its Wait returns, before touching the payload.
func (e *Event) Clear() {
	atomic.StoreUint32(e.word, eventClear)
}

// IsSet reports whether the event word is currently signaled.
func (e *Event) IsSet() bool {
	return atomic.LoadUint32(e.word) == eventSignaled
}

// Wait blocks until the event is signaled. Spurious wakeups are
// absorbed by rechecking the word.
func (e *Event) Wait() error {
	for {
		if atomic.LoadUint32(e.word) == eventSignaled {
			return nil
		}
		if err := eventWait(e.word, eventClear); err != nil {
			return err
		}
	}
}

// WaitTimeout blocks like Wait but gives up after d, returning
// ErrEventTimeout.
func (e *Event) WaitTimeout(d time.Duration) error {
	deadline := time.Now().Add(d)
	for {
		if atomic.LoadUint32(e.word) == eventSignaled {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrEventTimeout
		}
		if err := eventWaitTimeout(e.word, eventClear, remaining); err != nil {
			if err == ErrEventTimeout {
				// One last check: the signal may have landed while
				// the wait was timing out.
				if atomic.LoadUint32(e.word) == eventSignaled {
					return nil
				}
			}
			return err
		}
	}
}
