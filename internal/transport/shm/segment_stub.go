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

//go:build !unix

package shm

func init() {
	unmapMemory = func(mem []byte) error {
		return ErrUnsupported
	}
}

// Create is not supported on this platform.
func Create(dir, procID string, size int) (*Segment, func(), error) {
	return nil, nil, ErrUnsupported
}

// Open is not supported on this platform.
func Open(dir, procID string) (*Segment, func(), error) {
	return nil, nil, ErrUnsupported
}

// Inspect is not supported on this platform.
func Inspect(dir, procID string) (*Segment, func(), error) {
	return nil, nil, ErrUnsupported
}
