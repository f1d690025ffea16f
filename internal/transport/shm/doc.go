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

// Package shm provides the shared memory transport between an environment
// worker process and its coordinator.
//
// The transport is built from three primitives. A Segment is a memory-mapped
// file holding a fixed 64-byte header followed by a flat payload region; both
// processes encode whole messages at the start of the payload, relying on
// strict turn-taking rather than locks. An Event is a cross-process
// auto-reset event backed by a 32-bit word in the segment header; on Linux
// waiters park on a futex, elsewhere they poll. A ReadyChannel is a
// connectionless UDP socket that carries single marker bytes: the worker
// announces itself with one at startup and reports response completion with
// one after every request it serves.
//
// The segment file lives at a path derived from a configured folder and the
// worker's process identifier string, so the two processes can find each
// other without passing descriptors around. Pointing the folder at a tmpfs
// mount such as /dev/shm keeps the segment off disk.
package shm
