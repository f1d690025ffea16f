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

import "errors"

// ErrUnsupported indicates shared-memory transport is not available on
// this platform.
var ErrUnsupported = errors.New("shared memory transport not supported on this platform")

// ErrEventTimeout indicates a bounded event wait expired before the
// other process signaled.
var ErrEventTimeout = errors.New("event wait timeout")
