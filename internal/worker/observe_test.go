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

package worker_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Kaiyotech/rlgym-learn/internal/env/gridtag"
	"github.com/Kaiyotech/rlgym-learn/internal/metrics"
	"github.com/Kaiyotech/rlgym-learn/internal/protocol"
	"github.com/Kaiyotech/rlgym-learn/internal/runlog"
	"github.com/Kaiyotech/rlgym-learn/internal/worker"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func readRunLog(t *testing.T, path string) []runlog.CycleRecord {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open run log: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var records []runlog.CycleRecord
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var rec runlog.CycleRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("decode run log line %q: %v", sc.Text(), err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan run log: %v", err)
	}
	return records
}

func TestWorkerObservesCycles(t *testing.T) {
	reg := prometheus.NewRegistry()
	loop := metrics.NewLoop(reg, "p9")
	logPath := filepath.Join(t.TempDir(), "cycles.jsonl.zst")
	rec, err := runlog.New(logPath)
	if err != nil {
		t.Fatalf("runlog.New: %v", err)
	}

	h := startWorker(t, gridtagBuilder(), testCodecs(false), worker.Config{
		ProcID:   "p9",
		Metrics:  loop,
		Recorder: rec,
	})
	h.readInit()

	h.send(stepRequest(gridtag.ActionUp, gridtag.ActionStay))
	h.send(protocol.EnvAction[int64]{Kind: protocol.RequestReset})
	h.stop()
	if err := rec.Close(); err != nil {
		t.Fatalf("close recorder: %v", err)
	}

	// Initial reset plus the mid-run reset are two episode boundaries.
	wantEpisodes := strings.NewReader(`
# HELP rlgym_worker_episodes_total Episode boundaries (reset and set-state responses).
# TYPE rlgym_worker_episodes_total counter
rlgym_worker_episodes_total{proc_id="p9"} 2
`)
	if err := testutil.GatherAndCompare(reg, wantEpisodes, "rlgym_worker_episodes_total"); err != nil {
		t.Fatalf("episodes counter: %v", err)
	}
	wantCycles := strings.NewReader(`
# HELP rlgym_worker_cycles_total Request/response cycles served, by header and request kind.
# TYPE rlgym_worker_cycles_total counter
rlgym_worker_cycles_total{header="EnvAction",kind="Reset",proc_id="p9"} 1
rlgym_worker_cycles_total{header="EnvAction",kind="Step",proc_id="p9"} 1
`)
	if err := testutil.GatherAndCompare(reg, wantCycles, "rlgym_worker_cycles_total"); err != nil {
		t.Fatalf("cycles counter: %v", err)
	}

	records := readRunLog(t, logPath)
	if len(records) != 2 {
		t.Fatalf("run log has %d records, want 2", len(records))
	}
	if records[0].Kind != "Step" || records[0].NewEpisode {
		t.Fatalf("first record = %+v, want a Step cycle", records[0])
	}
	if records[1].Kind != "Reset" || !records[1].NewEpisode {
		t.Fatalf("second record = %+v, want a Reset episode boundary", records[1])
	}
	for i, r := range records {
		if r.Seq != uint64(i+1) {
			t.Fatalf("record %d has seq %d, want %d", i, r.Seq, i+1)
		}
		if r.Header != "EnvAction" || r.Agents != 2 || r.Bytes == 0 {
			t.Fatalf("record %d = %+v, want EnvAction with 2 agents and a body", i, r)
		}
	}
}
