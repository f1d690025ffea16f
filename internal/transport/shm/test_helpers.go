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

package shm

import (
	"fmt"
	"testing"
	"time"
)

// createTestSegment creates a segment in a per-test temp dir with a unique
// process identifier and registers cleanup so the mapping and file are
// always released, even if the test fails or panics.
func createTestSegment(t *testing.T, size int) (*Segment, string, string) {
	t.Helper()

	dir := t.TempDir()
	procID := fmt.Sprintf("test-%d", time.Now().UnixNano())

	seg, cleanup, err := Create(dir, procID, size)
	if err != nil {
		t.Fatalf("Failed to create test segment %s/%s: %v", dir, procID, err)
	}
	t.Cleanup(cleanup)

	return seg, dir, procID
}

// openTestSegment opens an existing segment and registers cleanup for the
// second mapping.
func openTestSegment(t *testing.T, dir, procID string) *Segment {
	t.Helper()

	seg, cleanup, err := Open(dir, procID)
	if err != nil {
		t.Fatalf("Failed to open test segment %s/%s: %v", dir, procID, err)
	}
	t.Cleanup(cleanup)

	return seg
}
