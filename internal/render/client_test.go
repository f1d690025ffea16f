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

package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

// fakeVisualizer runs a websocket endpoint answering speed/paused
// queries from fixed state.
func fakeVisualizer(t *testing.T, speed float64, paused bool) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var q struct {
				Query string `json:"query"`
			}
			if err := conn.ReadJSON(&q); err != nil {
				return
			}
			switch q.Query {
			case "speed":
				conn.WriteJSON(map[string]float64{"speed": speed})
			case "paused":
				conn.WriteJSON(map[string]bool{"paused": paused})
			default:
				conn.WriteJSON(map[string]string{"error": "unknown query"})
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientQueries(t *testing.T) {
	url := fakeVisualizer(t, 1.5, true)

	c, err := Dial(url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	speed, err := c.Speed()
	if err != nil {
		t.Fatalf("Speed() error = %v", err)
	}
	if speed != 1.5 {
		t.Errorf("Speed() = %v, want 1.5", speed)
	}

	paused, err := c.Paused()
	if err != nil {
		t.Fatalf("Paused() error = %v", err)
	}
	if !paused {
		t.Error("Paused() = false, want true")
	}
}

func TestClientRejectsMalformedReply(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var q map[string]string
			if err := conn.ReadJSON(&q); err != nil {
				return
			}
			// Reply without the expected field.
			conn.WriteJSON(map[string]string{"status": "ok"})
		}
	}))
	defer srv.Close()

	c, err := Dial("ws" + strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	if _, err := c.Speed(); err == nil {
		t.Error("Speed() with fieldless reply succeeded, want error")
	}
	if _, err := c.Paused(); err == nil {
		t.Error("Paused() with fieldless reply succeeded, want error")
	}
}

func TestClientImplementsStateSource(t *testing.T) {
	var _ StateSource = (*Client)(nil)
}
