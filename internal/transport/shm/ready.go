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
	"net"
	"sync"
	"time"
)

// ReadyMarker is the single byte a ready notification carries. Receipt
// of any datagram counts as the notification; the content is ignored.
const ReadyMarker = byte(0x01)

// ReadyChannel is the connectionless completion channel between the
// worker and the coordinator. Each notification is one datagram with a
// single marker byte. The side that only listens learns its peer from
// the source address of the first datagram it receives.
type ReadyChannel struct {
	conn *net.UDPConn

	mu   sync.Mutex
	peer *net.UDPAddr
}

// DialReady binds a local UDP socket and targets notifications at the
// given remote address. The worker side uses this: it knows the
// coordinator's address up front and announces itself with the first
// notification.
func DialReady(localAddr, remoteAddr string) (*ReadyChannel, error) {
	peer, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ready peer %q: %w", remoteAddr, err)
	}
	local, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local ready addr %q: %w", localAddr, err)
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, fmt.Errorf("failed to bind ready socket: %w", err)
	}
	return &ReadyChannel{conn: conn, peer: peer}, nil
}

// ListenReady binds a local UDP socket with no peer yet. The
// coordinator side uses this; the worker's hello datagram fills in the
// peer address.
func ListenReady(localAddr string) (*ReadyChannel, error) {
	local, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local ready addr %q: %w", localAddr, err)
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, fmt.Errorf("failed to bind ready socket: %w", err)
	}
	return &ReadyChannel{conn: conn}, nil
}

// Notify sends one marker byte to the peer.
func (r *ReadyChannel) Notify() error {
	r.mu.Lock()
	peer := r.peer
	r.mu.Unlock()
	if peer == nil {
		return fmt.Errorf("ready peer not known yet")
	}
	if _, err := r.conn.WriteToUDP([]byte{ReadyMarker}, peer); err != nil {
		return fmt.Errorf("failed to send ready notification: %w", err)
	}
	return nil
}

// AwaitNotify blocks until one datagram arrives. If no peer is known
// yet, the sender of this datagram becomes the peer.
func (r *ReadyChannel) AwaitNotify() error {
	var buf [1]byte
	_, from, err := r.conn.ReadFromUDP(buf[:])
	if err != nil {
		return fmt.Errorf("failed to receive ready notification: %w", err)
	}
	r.mu.Lock()
	if r.peer == nil {
		r.peer = from
	}
	r.mu.Unlock()
	return nil
}

// AwaitNotifyTimeout is AwaitNotify with a read deadline.
func (r *ReadyChannel) AwaitNotifyTimeout(d time.Duration) error {
	if err := r.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return err
	}
	defer r.conn.SetReadDeadline(time.Time{})
	return r.AwaitNotify()
}

// LocalAddr returns the bound address of the underlying socket.
func (r *ReadyChannel) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

// PeerAddr returns the current peer address, or nil if none is known.
func (r *ReadyChannel) PeerAddr() *net.UDPAddr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peer
}

// Close closes the underlying socket.
func (r *ReadyChannel) Close() error {
	return r.conn.Close()
}
