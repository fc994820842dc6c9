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

package session

import (
	"context"
	"time"

	"github.com/crossroads-io/xscore/iothread"
	"github.com/crossroads-io/xscore/pipe"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xslog"
)

// Session binds a Socket (via a Pipe pair, owned by the caller) to an
// Engine. It is owned by exactly one I/O thread.
type Session struct {
	thread   *iothread.Thread
	engine   Engine
	toSocket *pipe.Pipe // inbound: engine -> socket
	toEngine *pipe.Pipe // outbound: socket -> engine

	connector bool
	endpoint  string
	policy    ReconnectPolicy
	backoff   time.Duration
	linger    time.Duration

	log xslog.Logger

	terminating bool

	onReconnect func() // optional metrics hook, set via SetOnReconnect
}

// New returns a Session over the given pipe pair. toSocket carries inbound
// messages (engine to application); toEngine carries outbound.
func New(t *iothread.Thread, toSocket, toEngine *pipe.Pipe, connector bool, endpoint string, policy ReconnectPolicy, linger time.Duration, log xslog.Logger) *Session {
	return &Session{
		thread:    t,
		toSocket:  toSocket,
		toEngine:  toEngine,
		connector: connector,
		endpoint:  endpoint,
		policy:    policy,
		linger:    linger,
		log:       log.WithField("actor", "session").WithField("endpoint", endpoint),
	}
}

// SetOnReconnect installs a callback fired each time this session schedules
// a reconnect attempt, for metrics reporting.
func (s *Session) SetOnReconnect(fn func()) {
	s.onReconnect = fn
}

// Plug attaches an Engine to this session and registers it with the owning
// I/O thread.
func (s *Session) Plug(e Engine) {
	s.engine = e
	e.Plug(s.thread, s)
	s.thread.Register(e)
}

// PullMsg returns the next outbound wire.Message for the Engine to send, if
// the socket-to-engine pipe has one ready.
func (s *Session) PullMsg() (wire.Message, bool) {
	return s.toEngine.Read()
}

// PushMsg delivers an inbound message from the Engine onto the engine-to-
// socket pipe and publishes it: an unflushed Write is invisible to the
// socket's Recv side.
func (s *Session) PushMsg(m wire.Message) error {
	if err := s.toSocket.Write(m); err != nil {
		return err
	}
	s.toSocket.Flush()
	return nil
}

// OnEngineError is called by the Engine when the connection drops. For a
// connector-opened session, this schedules a reconnect with exponential
// back-off; for an acceptor-spawned session, this terminates the session.
func (s *Session) OnEngineError(ctx context.Context, redial func(context.Context) (Engine, error)) {
	if !s.connector {
		s.Terminate()
		return
	}

	s.backoff = s.policy.Next(s.backoff)
	s.log.WithField("backoff_ms", s.backoff.Milliseconds()).Warning("engine error, scheduling reconnect")
	if s.onReconnect != nil {
		s.onReconnect()
	}

	go func() {
		t := time.NewTimer(s.backoff)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		e, err := redial(ctx)
		if err != nil {
			s.OnEngineError(ctx, redial)
			return
		}
		s.backoff = 0
		s.Plug(e)
	}()
}

// Terminate begins session teardown: linger-drain the outbound pipe, then
// unplug the engine and complete the pipe-termination handshake.
func (s *Session) Terminate() {
	if s.terminating {
		return
	}
	s.terminating = true

	deadline := time.Now().Add(s.linger)
	go func() {
		for s.linger > 0 && !s.toEngine.Drained() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		s.toEngine.Terminate()
		s.toSocket.Terminate()
		s.toEngine.AckTerm()
		s.toSocket.AckTerm()
		if s.engine != nil {
			s.thread.Unregister(s.engine)
			s.engine.Unplug()
		}
	}()
}
