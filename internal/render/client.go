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
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

const clientIOTimeout = 5 * time.Second

// Client queries a visualizer over a websocket. The protocol is a pair
// of JSON request/reply shapes: {"query":"speed"} answered by
// {"speed":1.5} and {"query":"paused"} answered by {"paused":true}.
// Queries are issued one at a time from the worker's single loop
// goroutine.
type Client struct {
	conn *websocket.Conn
}

type stateQuery struct {
	Query string `json:"query"`
}

type stateReply struct {
	Speed  *float64 `json:"speed"`
	Paused *bool    `json:"paused"`
}

// Dial connects to the visualizer, retrying briefly: the visualizer is
// usually launched alongside the worker and may bind a moment later.
func Dial(url string) (*Client, error) {
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	var conn *websocket.Conn
	op := func() error {
		c, resp, err := d.Dial(url, nil)
		if err != nil {
			return err
		}
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		conn = c
		return nil
	}
	if err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewConstantBackOff(200*time.Millisecond), 10)); err != nil {
		return nil, fmt.Errorf("dialing visualizer %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Speed asks the visualizer for the current playback speed.
func (c *Client) Speed() (float64, error) {
	reply, err := c.roundtrip("speed")
	if err != nil {
		return 0, err
	}
	if reply.Speed == nil {
		return 0, fmt.Errorf("visualizer reply missing speed field")
	}
	return *reply.Speed, nil
}

// Paused asks the visualizer whether playback is paused.
func (c *Client) Paused() (bool, error) {
	reply, err := c.roundtrip("paused")
	if err != nil {
		return false, err
	}
	if reply.Paused == nil {
		return false, fmt.Errorf("visualizer reply missing paused field")
	}
	return *reply.Paused, nil
}

// Close shuts the websocket down.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundtrip(query string) (stateReply, error) {
	var reply stateReply

	c.conn.SetWriteDeadline(time.Now().Add(clientIOTimeout))
	if err := c.conn.WriteJSON(stateQuery{Query: query}); err != nil {
		return reply, fmt.Errorf("sending %s query: %w", query, err)
	}

	c.conn.SetReadDeadline(time.Now().Add(clientIOTimeout))
	if err := c.conn.ReadJSON(&reply); err != nil {
		return reply, fmt.Errorf("reading %s reply: %w", query, err)
	}
	return reply, nil
}
