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

import (
	"context"
	"fmt"

	"github.com/Kaiyotech/rlgym-learn/internal/env"
	"github.com/Kaiyotech/rlgym-learn/internal/protocol"
	"github.com/Kaiyotech/rlgym-learn/internal/transport/shm"
)

// LinkOptions locates the transport endpoints for one worker process.
type LinkOptions struct {
	// SegmentDir is the directory holding segment files, typically
	// under /dev/shm.
	SegmentDir string

	// SegmentSize is the total segment size in bytes; zero means
	// shm.DefaultSegmentSize.
	SegmentSize int

	// LocalAddr is the UDP address this worker binds its ready channel
	// to. CoordAddr is the coordinator's ready-channel address.
	LocalAddr string
	CoordAddr string
}

// Serve creates the shared-memory segment and ready channel named by
// cfg.ProcID, runs the worker over them, and tears both down on return.
// The worker side owns the segment file: it is created here with
// exclusive semantics and removed when Serve returns.
func Serve[ID comparable, O, A, R, SP any](ctx context.Context, build env.Builder[ID, O, A, R, SP], codecs *protocol.Codecs[ID, O, A, R, SP], cfg Config, opts LinkOptions) error {
	size := opts.SegmentSize
	if size <= 0 {
		size = shm.DefaultSegmentSize
	}
	seg, cleanup, err := shm.Create(opts.SegmentDir, cfg.ProcID, size)
	if err != nil {
		return fmt.Errorf("create segment: %w", err)
	}
	defer cleanup()

	ready, err := shm.DialReady(opts.LocalAddr, opts.CoordAddr)
	if err != nil {
		return fmt.Errorf("dial ready channel: %w", err)
	}
	defer ready.Close()

	w, err := New(build, codecs, Link{Payload: seg.Payload(), Event: seg.Event(), Ready: ready}, cfg)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
