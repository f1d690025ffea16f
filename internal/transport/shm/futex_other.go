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

//go:build !linux

package shm

import (
	"sync/atomic"
	"time"
)

// Without futexes the event degrades to a short polling loop. Latency
// is worse but the protocol semantics are identical, which keeps the
// transport usable for development on other platforms.

const eventPollInterval = 200 * time.Microsecond

func eventWait(addr *uint32, old uint32) error {
	if atomic.LoadUint32(addr) != old {
		return nil
	}
	time.Sleep(eventPollInterval)
	return nil
}

func eventWaitTimeout(addr *uint32, old uint32, d time.Duration) error {
	if atomic.LoadUint32(addr) != old {
		return nil
	}
	if d < eventPollInterval {
		time.Sleep(d)
		return ErrEventTimeout
	}
	time.Sleep(eventPollInterval)
	return nil
}

func eventWake(addr *uint32) {}
