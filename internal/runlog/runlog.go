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

// Package runlog records one line per request/response cycle into a
// zstd-compressed JSONL file, giving a replayable trace of a worker run
// without attaching a debugger to the shared memory segment.
package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/valyala/bytebufferpool"
)

// CycleRecord is one request/response cycle as seen by the worker.
type CycleRecord struct {
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"time"`
	Header     string    `json:"header"`
	Kind       string    `json:"kind,omitempty"`
	NewEpisode bool      `json:"new_episode,omitempty"`
	Agents     int       `json:"agents"`
	Bytes      int       `json:"bytes"`
	ElapsedUS  int64     `json:"elapsed_us"`
}

// Recorder appends cycle records to one compressed JSONL file. Methods
// are safe for concurrent use, though the worker only writes from its
// loop goroutine.
type Recorder struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	seq uint64
}

// New creates the run log file, truncating any previous one at path.
func New(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating run log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating run log: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating run log encoder: %w", err)
	}
	return &Recorder{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Record appends one cycle. Seq and Time are filled in here; the caller
// sets the rest.
func (r *Recorder) Record(rec CycleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	rec.Seq = r.seq
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	je := json.NewEncoder(bb)
	if err := je.Encode(rec); err != nil {
		return fmt.Errorf("encoding cycle record: %w", err)
	}
	if _, err := r.w.Write(bb.B); err != nil {
		return fmt.Errorf("writing cycle record: %w", err)
	}
	return r.w.Flush()
}

// Close flushes and closes the log.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	if r.w != nil {
		if err := r.w.Flush(); err != nil {
			firstErr = err
		}
		r.w = nil
	}
	if r.enc != nil {
		if err := r.enc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.enc = nil
	}
	if r.f != nil {
		if err := r.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.f = nil
	}
	return firstErr
}
