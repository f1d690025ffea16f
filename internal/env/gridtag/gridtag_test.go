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

package gridtag

import (
	"reflect"
	"strings"
	"testing"
)

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	e := New(Config{Size: 4, StepLimit: 10, Seed: 7})
	e.SetOutput(&strings.Builder{})
	return e
}

func TestResetRosterAndObservations(t *testing.T) {
	e := newTestEnv(t)

	roster, obs, err := e.Reset()
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if !reflect.DeepEqual(roster, []string{AgentBlue, AgentOrange}) {
		t.Fatalf("roster = %v", roster)
	}
	for _, id := range roster {
		o, ok := obs[id]
		if !ok {
			t.Fatalf("no observation for %s", id)
		}
		if len(o) != ObsLen {
			t.Errorf("observation for %s has %d values, want %d", id, len(o), ObsLen)
		}
	}
	// The two agents never spawn on the same cell.
	if obs[AgentBlue][0] == obs[AgentOrange][0] && obs[AgentBlue][1] == obs[AgentOrange][1] {
		t.Error("agents spawned on the same cell")
	}
}

func TestStepRequiresFullActionMap(t *testing.T) {
	e := newTestEnv(t)
	if _, _, err := e.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if _, err := e.Step(map[string]int64{AgentBlue: ActionStay}); err == nil {
		t.Fatal("Step() with missing action succeeded, want error")
	}
	if _, err := e.Step(map[string]int64{AgentBlue: 99, AgentOrange: ActionStay}); err == nil {
		t.Fatal("Step() with unknown action succeeded, want error")
	}
}

func TestTagTerminatesEpisode(t *testing.T) {
	e := newTestEnv(t)
	if _, _, err := e.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	// Force adjacency, then step blue onto orange while orange stays.
	if _, _, err := e.SetState(EncodeState(0, 0, 1, 0)); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	res, err := e.Step(map[string]int64{AgentBlue: ActionRight, AgentOrange: ActionStay})
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	if !res.Terminated[AgentBlue] || !res.Terminated[AgentOrange] {
		t.Errorf("terminated = %v, want both true", res.Terminated)
	}
	if res.Truncated[AgentBlue] || res.Truncated[AgentOrange] {
		t.Errorf("truncated = %v, want both false", res.Truncated)
	}
	if res.Rewards[AgentBlue] != 1 || res.Rewards[AgentOrange] != -1 {
		t.Errorf("rewards = %v, want +1/-1", res.Rewards)
	}
}

func TestStepLimitTruncates(t *testing.T) {
	e := newTestEnv(t)
	if _, _, err := e.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	// Opposite corners, nobody moves: no tag is possible.
	if _, _, err := e.SetState(EncodeState(0, 0, 3, 3)); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	stay := map[string]int64{AgentBlue: ActionStay, AgentOrange: ActionStay}
	var last finalStep
	for i := 0; i < 10; i++ {
		res, err := e.Step(stay)
		if err != nil {
			t.Fatalf("Step() %d error = %v", i, err)
		}
		last = finalStep{res.Terminated[AgentBlue], res.Truncated[AgentBlue]}
	}
	if last.terminated {
		t.Error("episode terminated without a tag")
	}
	if !last.truncated {
		t.Error("episode not truncated at the step limit")
	}
}

type finalStep struct {
	terminated bool
	truncated  bool
}

func TestSetStateValidation(t *testing.T) {
	e := newTestEnv(t)
	if _, _, err := e.SetState([]byte{0, 0}); err == nil {
		t.Error("SetState() with short blob succeeded, want error")
	}
	if _, _, err := e.SetState(EncodeState(0, 0, 9, 0)); err == nil {
		t.Error("SetState() with out-of-range coordinate succeeded, want error")
	}
}

func TestSharedInfoMergeAndOwnership(t *testing.T) {
	e := newTestEnv(t)
	if _, _, err := e.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	e.MergeSharedInfo(map[string]any{"score": float64(3)})
	if got := e.SharedInfo()["score"]; got != float64(3) {
		t.Errorf("score = %v, want 3", got)
	}

	// Game-owned keys update on step, merged keys survive.
	if _, err := e.Step(map[string]int64{AgentBlue: ActionStay, AgentOrange: ActionStay}); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	info := e.SharedInfo()
	if info["tick"] != float64(1) {
		t.Errorf("tick = %v, want 1", info["tick"])
	}
	if info["score"] != float64(3) {
		t.Errorf("score after step = %v, want 3", info["score"])
	}
}

func TestSpaces(t *testing.T) {
	e := newTestEnv(t)

	obsSpaces := e.ObservationSpaces()
	actSpaces := e.ActionSpaces()
	for _, id := range []string{AgentBlue, AgentOrange} {
		os, ok := obsSpaces[id]
		if !ok || len(os.Shape) != 1 || os.Shape[0] != ObsLen {
			t.Errorf("observation space for %s = %+v", id, os)
		}
		as, ok := actSpaces[id]
		if !ok || as.N != int64(actionCount) {
			t.Errorf("action space for %s = %+v", id, as)
		}
	}
}

func TestRenderDrawsBothAgents(t *testing.T) {
	e := New(Config{Size: 4, StepLimit: 10, Seed: 7})
	var out strings.Builder
	e.SetOutput(&out)

	if _, _, err := e.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if err := e.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	frame := out.String()
	if !strings.Contains(frame, "B") || !strings.Contains(frame, "O") {
		t.Errorf("frame missing agents:\n%s", frame)
	}
}

func TestDeterministicSpawns(t *testing.T) {
	a := New(Config{Size: 6, StepLimit: 10, Seed: 42})
	b := New(Config{Size: 6, StepLimit: 10, Seed: 42})

	_, obsA, err := a.Reset()
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	_, obsB, err := b.Reset()
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if !reflect.DeepEqual(obsA, obsB) {
		t.Errorf("same seed produced different spawns: %v vs %v", obsA, obsB)
	}
}
