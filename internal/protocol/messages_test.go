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

package protocol_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Kaiyotech/rlgym-learn/internal/env"
	"github.com/Kaiyotech/rlgym-learn/internal/protocol"
	"github.com/Kaiyotech/rlgym-learn/internal/serde"
)

// testCodecs builds the bundle used across these tests: string agent
// ids, flat float observations, integer actions, float64 rewards.
func testCodecs(retransmit bool) protocol.Codecs[string, []float32, int64, float64, env.Space] {
	return protocol.Codecs[string, []float32, int64, float64, env.Space]{
		AgentID:         serde.String{},
		Obs:             serde.Float32Slice{},
		Action:          serde.Int64{},
		Reward:          serde.Float64{},
		ObsSpace:        serde.Space{},
		ActionSpace:     serde.Space{},
		SharedInfo:      serde.JSONMap{},
		SharedInfoPatch: serde.JSONMap{},
		State:           serde.Bytes{},
		RetransmitIDs:   retransmit,
	}
}

func TestCodecsValidate(t *testing.T) {
	c := testCodecs(false)
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	c.Obs = nil
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() with nil observation codec succeeded, want error")
	}

	// Optional codecs may all be absent.
	c = testCodecs(false)
	c.SharedInfo = nil
	c.SharedInfoPatch = nil
	c.State = nil
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() without optional codecs error = %v", err)
	}
}

func TestEnvActionRoundtrip(t *testing.T) {
	c := testCodecs(false)

	tests := []struct {
		name      string
		req       protocol.EnvAction[int64]
		rosterLen int
	}{
		{
			name:      "step",
			req:       protocol.EnvAction[int64]{Kind: protocol.RequestStep, Actions: []int64{1, 0}},
			rosterLen: 2,
		},
		{
			name: "step with patch",
			req: protocol.EnvAction[int64]{
				Kind:     protocol.RequestStep,
				Actions:  []int64{4},
				HasPatch: true,
				Patch:    map[string]any{"score": float64(3)},
			},
			rosterLen: 1,
		},
		{
			name:      "reset",
			req:       protocol.EnvAction[int64]{Kind: protocol.RequestReset},
			rosterLen: 2,
		},
		{
			name: "reset with patch",
			req: protocol.EnvAction[int64]{
				Kind:     protocol.RequestReset,
				HasPatch: true,
				Patch:    map[string]any{"mode": "sudden-death"},
			},
			rosterLen: 2,
		},
		{
			name: "set state",
			req: protocol.EnvAction[int64]{
				Kind:  protocol.RequestSetState,
				State: []byte{0xCA, 0xFE},
			},
			rosterLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 512)
			end, err := c.AppendEnvAction(buf, 0, tt.req)
			if err != nil {
				t.Fatalf("AppendEnvAction() error = %v", err)
			}

			h, offset, err := protocol.ReadHeader(buf, 0)
			if err != nil {
				t.Fatalf("ReadHeader() error = %v", err)
			}
			if h != protocol.HeaderEnvAction {
				t.Fatalf("header = %v, want EnvAction", h)
			}

			got, next, err := c.ReadEnvAction(buf, offset, tt.rosterLen)
			if err != nil {
				t.Fatalf("ReadEnvAction() error = %v", err)
			}
			if next != end {
				t.Errorf("decode consumed %d bytes, encode produced %d", next, end)
			}
			if !reflect.DeepEqual(got, tt.req) {
				t.Errorf("roundtrip = %+v, want %+v", got, tt.req)
			}
		})
	}
}

func TestEnvActionNoPatchCodecOmitsFlag(t *testing.T) {
	c := testCodecs(false)
	c.SharedInfoPatch = nil

	buf := make([]byte, 64)
	end, err := c.AppendEnvAction(buf, 0, protocol.EnvAction[int64]{Kind: protocol.RequestReset})
	if err != nil {
		t.Fatalf("AppendEnvAction() error = %v", err)
	}
	// Header byte plus kind byte, nothing else.
	if end != 2 {
		t.Errorf("reset without patch codec = %d bytes, want 2", end)
	}

	_, offset, _ := protocol.ReadHeader(buf, 0)
	got, next, err := c.ReadEnvAction(buf, offset, 0)
	if err != nil {
		t.Fatalf("ReadEnvAction() error = %v", err)
	}
	if next != end || got.HasPatch {
		t.Errorf("decode = %+v ending %d, want no patch ending %d", got, next, end)
	}
}

func TestEnvActionPatchWithoutCodecFails(t *testing.T) {
	c := testCodecs(false)
	c.SharedInfoPatch = nil

	buf := make([]byte, 64)
	_, err := c.AppendEnvAction(buf, 0, protocol.EnvAction[int64]{
		Kind:     protocol.RequestReset,
		HasPatch: true,
		Patch:    map[string]any{"k": "v"},
	})
	if err == nil {
		t.Fatal("AppendEnvAction() with patch but no codec succeeded, want error")
	}
}

func TestSetStateWithoutCodecFails(t *testing.T) {
	c := testCodecs(false)
	c.State = nil

	buf := make([]byte, 64)
	req := protocol.EnvAction[int64]{Kind: protocol.RequestSetState, State: []byte{1}}
	if _, err := c.AppendEnvAction(buf, 0, req); err == nil {
		t.Fatal("AppendEnvAction(SetState) without state codec succeeded, want error")
	}

	// Decode side must refuse too: the wire would be unparseable.
	full := testCodecs(false)
	end, err := full.AppendEnvAction(buf, 0, req)
	if err != nil {
		t.Fatalf("AppendEnvAction() error = %v", err)
	}
	_ = end
	_, offset, _ := protocol.ReadHeader(buf, 0)
	if _, _, err := c.ReadEnvAction(buf, offset, 0); err == nil {
		t.Fatal("ReadEnvAction(SetState) without state codec succeeded, want error")
	}
}

func TestInitSnapshotCarriesCountAndIDs(t *testing.T) {
	// Count and identifiers are always present on an episode boundary,
	// with or without the retransmission option.
	for _, retransmit := range []bool{false, true} {
		c := testCodecs(retransmit)

		roster := []string{"blue0", "orange0"}
		obs := map[string][]float32{
			"blue0":   {1, 2, 3},
			"orange0": {4, 5, 6},
		}
		info := map[string]any{"tick": float64(0)}

		buf := make([]byte, 1024)
		end, err := c.AppendInitSnapshot(buf, 0, roster, obs, info)
		if err != nil {
			t.Fatalf("AppendInitSnapshot() error = %v", err)
		}

		// The message leads with the agent count.
		count, _, err := protocol.ReadUint32(buf, 0)
		if err != nil {
			t.Fatalf("ReadUint32() error = %v", err)
		}
		if count != 2 {
			t.Fatalf("leading count = %d, want 2", count)
		}

		snap, next, err := c.ReadInitSnapshot(buf, 0)
		if err != nil {
			t.Fatalf("ReadInitSnapshot() error = %v", err)
		}
		if next != end {
			t.Errorf("decode consumed %d bytes, encode produced %d", next, end)
		}
		if !reflect.DeepEqual(snap.Agents, roster) {
			t.Errorf("agents = %v, want %v", snap.Agents, roster)
		}
		if !reflect.DeepEqual(snap.Obs, [][]float32{{1, 2, 3}, {4, 5, 6}}) {
			t.Errorf("obs = %v", snap.Obs)
		}
		if !reflect.DeepEqual(snap.SharedInfo, info) {
			t.Errorf("shared info = %v, want %v", snap.SharedInfo, info)
		}
	}
}

func TestInitSnapshotMissingObservationFails(t *testing.T) {
	c := testCodecs(false)
	buf := make([]byte, 256)
	_, err := c.AppendInitSnapshot(buf, 0, []string{"blue0"}, map[string][]float32{}, nil)
	if err == nil {
		t.Fatal("AppendInitSnapshot() with missing observation succeeded, want error")
	}
}

func TestInitSnapshotCorruptCountFails(t *testing.T) {
	// A corrupt leading count must fail as a short buffer, not size the
	// roster slices for billions of agents.
	c := testCodecs(false)
	buf := make([]byte, 32)
	if _, err := protocol.AppendUint32(buf, 0, 0xFFFFFFF0); err != nil {
		t.Fatalf("AppendUint32() error = %v", err)
	}
	if _, _, err := c.ReadInitSnapshot(buf, 0); !errors.Is(err, protocol.ErrShortBuffer) {
		t.Fatalf("ReadInitSnapshot() with corrupt count error = %v, want ErrShortBuffer", err)
	}
}

func TestStepSnapshotOmitsCountAndIDs(t *testing.T) {
	c := testCodecs(false)

	roster := []string{"blue0", "orange0"}
	obs := map[string][]float32{
		"blue0":   {0.5},
		"orange0": {0.25},
	}
	rewards := map[string]float64{"blue0": 1, "orange0": -1}
	term := map[string]bool{"blue0": false, "orange0": false}
	trunc := map[string]bool{"blue0": false, "orange0": false}

	buf := make([]byte, 1024)
	end, err := c.AppendStepSnapshot(buf, 0, roster, obs, rewards, term, trunc, nil)
	if err != nil {
		t.Fatalf("AppendStepSnapshot() error = %v", err)
	}

	// No leading count, no identifiers: the first bytes are blue0's
	// observation vector.
	first, _, err := serde.Float32Slice{}.Read(buf, 0)
	if err != nil {
		t.Fatalf("reading leading observation: %v", err)
	}
	if !reflect.DeepEqual(first, []float32{0.5}) {
		t.Errorf("leading field = %v, want blue0 observation [0.5]", first)
	}

	snap, next, err := c.ReadStepSnapshot(buf, 0, roster)
	if err != nil {
		t.Fatalf("ReadStepSnapshot() error = %v", err)
	}
	if next != end {
		t.Errorf("decode consumed %d bytes, encode produced %d", next, end)
	}
	if !reflect.DeepEqual(snap.Agents, roster) {
		t.Errorf("agents = %v, want roster reuse %v", snap.Agents, roster)
	}
	if !reflect.DeepEqual(snap.Rewards, []float64{1, -1}) {
		t.Errorf("rewards = %v, want [1 -1]", snap.Rewards)
	}
	if snap.Terminated[0] || snap.Terminated[1] || snap.Truncated[0] || snap.Truncated[1] {
		t.Errorf("flags = %v/%v, want all false", snap.Terminated, snap.Truncated)
	}
}

func TestStepSnapshotRetransmitsIDsWhenEnabled(t *testing.T) {
	c := testCodecs(true)

	roster := []string{"blue0"}
	obs := map[string][]float32{"blue0": {9}}
	rewards := map[string]float64{"blue0": 0}
	flags := map[string]bool{"blue0": false}

	buf := make([]byte, 512)
	if _, err := c.AppendStepSnapshot(buf, 0, roster, obs, rewards, flags, flags, nil); err != nil {
		t.Fatalf("AppendStepSnapshot() error = %v", err)
	}

	// Leading field is now the identifier.
	id, _, err := serde.String{}.Read(buf, 0)
	if err != nil {
		t.Fatalf("reading leading id: %v", err)
	}
	if id != "blue0" {
		t.Errorf("leading id = %q, want blue0", id)
	}

	// A decoder holding a stale roster picks up the transmitted names.
	snap, _, err := c.ReadStepSnapshot(buf, 0, []string{"stale"})
	if err != nil {
		t.Fatalf("ReadStepSnapshot() error = %v", err)
	}
	if !reflect.DeepEqual(snap.Agents, roster) {
		t.Errorf("agents = %v, want %v", snap.Agents, roster)
	}
}

func TestStepSnapshotMissingFieldsFail(t *testing.T) {
	c := testCodecs(false)
	roster := []string{"blue0"}
	obs := map[string][]float32{"blue0": {1}}
	rewards := map[string]float64{"blue0": 0}
	flags := map[string]bool{"blue0": false}
	buf := make([]byte, 256)

	if _, err := c.AppendStepSnapshot(buf, 0, roster, nil, rewards, flags, flags, nil); err == nil {
		t.Error("missing observations succeeded, want error")
	}
	if _, err := c.AppendStepSnapshot(buf, 0, roster, obs, nil, flags, flags, nil); err == nil {
		t.Error("missing rewards succeeded, want error")
	}
	if _, err := c.AppendStepSnapshot(buf, 0, roster, obs, rewards, nil, flags, nil); err == nil {
		t.Error("missing terminated flags succeeded, want error")
	}
	if _, err := c.AppendStepSnapshot(buf, 0, roster, obs, rewards, flags, nil, nil); err == nil {
		t.Error("missing truncated flags succeeded, want error")
	}
}

func TestShapesRoundtrip(t *testing.T) {
	c := testCodecs(false)

	obsSpace := env.Box([]int32{8}, -1, 1)
	actSpace := env.Discrete(5)

	buf := make([]byte, 256)
	end, err := c.AppendShapes(buf, 0, obsSpace, actSpace)
	if err != nil {
		t.Fatalf("AppendShapes() error = %v", err)
	}

	gotObs, gotAct, next, err := c.ReadShapes(buf, 0)
	if err != nil {
		t.Fatalf("ReadShapes() error = %v", err)
	}
	if next != end {
		t.Errorf("decode consumed %d bytes, encode produced %d", next, end)
	}
	if !reflect.DeepEqual(gotObs, obsSpace) {
		t.Errorf("obs space = %+v, want %+v", gotObs, obsSpace)
	}
	if !reflect.DeepEqual(gotAct, actSpace) {
		t.Errorf("action space = %+v, want %+v", gotAct, actSpace)
	}
}

func TestEncodeIntoSmallBufferFails(t *testing.T) {
	c := testCodecs(false)

	// A payload region too small for the message is a framing bug and
	// must surface as an error, not a partial write.
	buf := make([]byte, 6)
	roster := []string{"blue0"}
	obs := map[string][]float32{"blue0": {1, 2, 3, 4}}
	_, err := c.AppendInitSnapshot(buf, 0, roster, obs, nil)
	if !errors.Is(err, protocol.ErrShortBuffer) {
		t.Fatalf("error = %v, want ErrShortBuffer", err)
	}
}
