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

// shm-probe inspects a live worker segment without disturbing it: the
// mapping is read-only and no pid is stamped into the header.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/Kaiyotech/rlgym-learn/internal/transport/shm"
)

func main() {
	var (
		segmentDir = flag.String("segment-dir", "/dev/shm/rlgym", "segment directory")
		procID     = flag.String("proc-id", "", "worker process id (segment file name)")
		payload    = flag.Int("payload-bytes", 32, "payload prefix to hex-dump")
	)
	flag.Parse()
	if *procID == "" {
		log.Fatal("shm-probe: -proc-id is required")
	}

	seg, done, err := shm.Inspect(*segmentDir, *procID)
	if err != nil {
		log.Fatalf("shm-probe: %v", err)
	}
	defer done()

	hdr := seg.Header()
	magic := hdr.Magic()

	fmt.Printf("segment:        %s\n", seg.Path)
	fmt.Printf("magic:          %q\n", magic[:])
	fmt.Printf("version:        %d\n", hdr.Version())
	fmt.Printf("total size:     %d bytes\n", hdr.TotalSize())
	fmt.Printf("payload offset: %d\n", hdr.PayloadOffset())
	fmt.Printf("payload size:   %d bytes\n", len(seg.Payload()))
	fmt.Printf("worker pid:     %d\n", hdr.WorkerPID())
	fmt.Printf("coord pid:      %d\n", hdr.CoordPID())

	state := "clear (worker owns the payload or is mid-cycle)"
	if hdr.EventState() != 0 {
		state = "signaled (request pending for the worker)"
	}
	fmt.Printf("event word:     %d, %s\n", hdr.EventState(), state)

	n := *payload
	if n > len(seg.Payload()) {
		n = len(seg.Payload())
	}
	if n > 0 {
		fmt.Printf("payload[0:%d):  % x\n", n, seg.Payload()[:n])
	}
}
