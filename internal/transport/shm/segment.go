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
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"unsafe"
)

// Memory layout constants
const (
	// Magic bytes for segment identification
	SegmentMagic = "RLGYMSHM"

	// Current segment layout version
	SegmentVersion = uint32(1)

	// Segment header size; the payload region starts at this offset.
	// The header holds the magic, version and the control event word.
	HeaderSize = 64

	// DefaultSegmentSize is the default total segment size (header
	// included) used when the caller does not pick one.
	DefaultSegmentSize = 256 * 1024
)

// Platform-specific functions (implemented in platform-specific files)
var (
	// unmapMemory unmaps a memory-mapped region
	unmapMemory func([]byte) error
)

// SegmentHeader is the fixed region at the front of every segment.
// Layout is 64 bytes; the payload region begins immediately after it.
type SegmentHeader struct {
	magic      [8]byte  // 0x00: "RLGYMSHM"
	version    uint32   // 0x08: layout version
	state      uint32   // 0x0C: control event word (0 clear, 1 signaled)
	totalSize  uint64   // 0x10: total segment size, header included
	payloadOff uint32   // 0x18: offset of the payload region
	workerPID  uint32   // 0x1C: worker process ID (creator)
	coordPID   uint32   // 0x20: coordinator process ID (opener)
	pad        uint32   // 0x24: padding
	reserved   [24]byte // 0x28-0x3F: reserved/padding to 64B
}

// Magic returns the magic bytes
func (h *SegmentHeader) Magic() [8]byte {
	return h.magic
}

// SetMagic sets the magic bytes
func (h *SegmentHeader) SetMagic(magic [8]byte) {
	h.magic = magic
}

// Version returns the layout version
func (h *SegmentHeader) Version() uint32 {
	return atomic.LoadUint32(&h.version)
}

// SetVersion sets the layout version
func (h *SegmentHeader) SetVersion(version uint32) {
	atomic.StoreUint32(&h.version, version)
}

// TotalSize returns the total segment size
func (h *SegmentHeader) TotalSize() uint64 {
	return atomic.LoadUint64(&h.totalSize)
}

// SetTotalSize sets the total segment size
func (h *SegmentHeader) SetTotalSize(size uint64) {
	atomic.StoreUint64(&h.totalSize, size)
}

// PayloadOffset returns the offset of the payload region
func (h *SegmentHeader) PayloadOffset() uint32 {
	return atomic.LoadUint32(&h.payloadOff)
}

// SetPayloadOffset sets the offset of the payload region
func (h *SegmentHeader) SetPayloadOffset(off uint32) {
	atomic.StoreUint32(&h.payloadOff, off)
}

// WorkerPID returns the worker process ID
func (h *SegmentHeader) WorkerPID() uint32 {
	return atomic.LoadUint32(&h.workerPID)
}

// SetWorkerPID sets the worker process ID
func (h *SegmentHeader) SetWorkerPID(pid uint32) {
	atomic.StoreUint32(&h.workerPID, pid)
}

// CoordPID returns the coordinator process ID
func (h *SegmentHeader) CoordPID() uint32 {
	return atomic.LoadUint32(&h.coordPID)
}

// SetCoordPID sets the coordinator process ID
func (h *SegmentHeader) SetCoordPID(pid uint32) {
	atomic.StoreUint32(&h.coordPID, pid)
}

// EventState returns the current control event word
func (h *SegmentHeader) EventState() uint32 {
	return atomic.LoadUint32(&h.state)
}

// eventWord returns the address of the control event word for futex use
func (h *SegmentHeader) eventWord() *uint32 {
	return &h.state
}

// ValidateSegmentHeader validates a segment header for consistency
func ValidateSegmentHeader(h *SegmentHeader, mappedSize int) error {
	if string(h.magic[:]) != SegmentMagic {
		return fmt.Errorf("invalid magic bytes")
	}
	if h.Version() != SegmentVersion {
		return fmt.Errorf("unsupported version %d, expected %d", h.Version(), SegmentVersion)
	}
	if h.PayloadOffset() != HeaderSize {
		return fmt.Errorf("payload offset mismatch: got %d, expected %d", h.PayloadOffset(), HeaderSize)
	}
	if h.TotalSize() != uint64(mappedSize) {
		return fmt.Errorf("total size mismatch: header says %d, mapped %d", h.TotalSize(), mappedSize)
	}
	return nil
}

// Segment is a mapped shared-memory segment: a 64-byte header carrying
// the control event word, followed by the flat payload region both
// processes frame messages into.
type Segment struct {
	File *os.File // File descriptor for the shared memory file
	Mem  []byte   // Memory-mapped region
	Path string   // File path
}

// Header returns the typed view of the segment header.
func (s *Segment) Header() *SegmentHeader {
	return (*SegmentHeader)(unsafe.Pointer(&s.Mem[0]))
}

// Payload returns the payload region: everything after the header.
// Both sides encode and decode messages at offset 0 of this slice;
// the turn-taking protocol, not the segment, keeps them from racing.
func (s *Segment) Payload() []byte {
	return s.Mem[HeaderSize:]
}

// Event returns the control event backed by this segment's header word.
func (s *Segment) Event() *Event {
	return &Event{word: s.Header().eventWord()}
}

// Close unmaps the memory and closes the file. It does not remove the
// file; the creating side calls Remove for that.
func (s *Segment) Close() error {
	var firstErr error

	if s.Mem != nil {
		if err := unmapMemory(s.Mem); err != nil && firstErr == nil {
			firstErr = err
		}
		s.Mem = nil
	}

	if s.File != nil {
		if err := s.File.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.File = nil
	}

	return firstErr
}

// SegmentPath returns the file path both processes derive from the
// segment folder and the worker's process identifier string.
func SegmentPath(dir, procID string) string {
	return filepath.Join(dir, procID)
}

// Remove deletes a segment file. Missing files are not an error.
func Remove(dir, procID string) error {
	err := os.Remove(SegmentPath(dir, procID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SegmentExists reports whether a segment file exists.
func SegmentExists(dir, procID string) bool {
	_, err := os.Stat(SegmentPath(dir, procID))
	return err == nil
}
