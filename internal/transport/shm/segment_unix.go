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

//go:build unix

package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func init() {
	unmapMemory = func(mem []byte) error {
		return unix.Munmap(mem)
	}
}

// Create creates a new shared memory segment file at the path derived
// from dir and procID, sizes it, maps it, and initializes the header.
// The worker side creates; creation fails if the file already exists.
// The returned cleanup function unmaps, closes and removes the file.
func Create(dir, procID string, size int) (*Segment, func(), error) {
	if size < HeaderSize+1 {
		return nil, nil, fmt.Errorf("segment size %d too small, need at least %d", size, HeaderSize+1)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create segment dir: %w", err)
	}

	path := SegmentPath(dir, procID)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create segment file: %w", err)
	}

	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		os.Remove(path)
		return nil, nil, fmt.Errorf("failed to size segment file: %w", err)
	}

	mem, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, nil, fmt.Errorf("failed to map segment: %w", err)
	}

	seg := &Segment{File: file, Mem: mem, Path: path}

	// Initialize the header. The event word starts clear: the worker
	// blocks on it until the coordinator writes the first request.
	hdr := seg.Header()
	copy(hdr.magic[:], SegmentMagic)
	hdr.SetVersion(SegmentVersion)
	hdr.SetTotalSize(uint64(size))
	hdr.SetPayloadOffset(HeaderSize)
	hdr.SetWorkerPID(uint32(os.Getpid()))

	cleanup := func() {
		seg.Close()
		os.Remove(path)
	}
	return seg, cleanup, nil
}

// Open maps an existing segment file created by the worker process.
// The coordinator side opens. The returned cleanup function unmaps and
// closes but does not remove the file; that is the creator's job.
func Open(dir, procID string) (*Segment, func(), error) {
	path := SegmentPath(dir, procID)
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open segment file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to stat segment file: %w", err)
	}
	size := int(info.Size())
	if size < HeaderSize {
		file.Close()
		return nil, nil, fmt.Errorf("segment file %d bytes, smaller than header", size)
	}

	mem, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to map segment: %w", err)
	}

	seg := &Segment{File: file, Mem: mem, Path: path}

	if err := ValidateSegmentHeader(seg.Header(), size); err != nil {
		seg.Close()
		return nil, nil, fmt.Errorf("segment validation failed: %w", err)
	}
	seg.Header().SetCoordPID(uint32(os.Getpid()))

	cleanup := func() {
		seg.Close()
	}
	return seg, cleanup, nil
}

// Inspect maps an existing segment read-only without stamping a
// coordinator pid, for diagnostic tools that must not disturb a live
// pair. Writing through the returned segment faults.
func Inspect(dir, procID string) (*Segment, func(), error) {
	path := SegmentPath(dir, procID)
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open segment file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to stat segment file: %w", err)
	}
	size := int(info.Size())
	if size < HeaderSize {
		file.Close()
		return nil, nil, fmt.Errorf("segment file %d bytes, smaller than header", size)
	}

	mem, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to map segment: %w", err)
	}

	seg := &Segment{File: file, Mem: mem, Path: path}

	if err := ValidateSegmentHeader(seg.Header(), size); err != nil {
		seg.Close()
		return nil, nil, fmt.Errorf("segment validation failed: %w", err)
	}

	cleanup := func() {
		seg.Close()
	}
	return seg, cleanup, nil
}
