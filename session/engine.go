/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package session implements the Session/Engine split: a Session binds a
// Socket (via a pipe pair) to an Engine (the transport). Session owns
// reconnect back-off and linger; Engine owns the wire.
package session

import (
	"time"

	"github.com/crossroads-io/xscore/iothread"
	"github.com/crossroads-io/xscore/wire"
)

// Engine is the transport-specific side of a connection. Concrete
// transports (TCP, UDP) implement this; IPC/inproc bring-up is out of core
// scope.
type Engine interface {
	iothread.Pollable
	Plug(t *iothread.Thread, s *Session)
	Unplug()
	Terminate()
	ActivateIn()
	ActivateOut()
	TimerEvent(id int)
}

// PullMsg is supplied by the Session to the Engine: called whenever the
// Engine has output capacity, to ask the Socket-side pipe for the next
// outbound message.
type PullMsg func() (wire.Message, bool)

// PushMsg is supplied by the Session to the Engine: called whenever the
// Engine has decoded an inbound message, to push it onto the Socket-side
// pipe.
type PushMsg func(wire.Message)

// ReconnectPolicy bounds the exponential back-off applied between connect
// attempts for connector-opened Sessions.
type ReconnectPolicy struct {
	Initial time.Duration
	Max     time.Duration
}

// Next returns the next back-off interval, given the current one (0 means
// "first attempt").
func (p ReconnectPolicy) Next(current time.Duration) time.Duration {
	if current <= 0 {
		if p.Initial <= 0 {
			return 100 * time.Millisecond
		}
		return p.Initial
	}
	next := current * 2
	if p.Max > 0 && next > p.Max {
		return p.Max
	}
	return next
}
