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

package udp

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/crossroads-io/xscore/filter"
	"github.com/crossroads-io/xscore/iothread"
	"github.com/crossroads-io/xscore/session"
	"github.com/crossroads-io/xscore/signaler"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
	"github.com/crossroads-io/xscore/xslog"
)

// Sender is the Engine half that frames outbound messages behind the 6-byte
// seq/offset header. Since each datagram write is a single syscall, frames
// are written directly from OutEvent on the reactor goroutine rather than
// handed to a separate writer goroutine.
type Sender struct {
	conn *net.UDPConn
	opt  socket.Options
	log  xslog.Logger

	thread *iothread.Thread
	sess   *session.Session

	seqNo  uint32
	paused bool

	writeC *signaler.Signaler

	closeOnce sync.Once

	redialer func(context.Context) (session.Engine, error)
}

func newSender(conn *net.UDPConn, opt socket.Options, log xslog.Logger) *Sender {
	return &Sender{
		conn:   conn,
		opt:    opt,
		log:    log.WithField("actor", "udp-sender").WithField("remote", conn.RemoteAddr().String()),
		seqNo:  1,
		writeC: signaler.New(),
	}
}

// Plug fakes a subscribe-all into its own Session: UDP carries no upstream
// subscription traffic, so without this a PUB pattern sitting above the
// sender would never see a subscriber and would filter every message away.
func (s *Sender) Plug(t *iothread.Thread, sess *session.Session) {
	s.thread = t
	s.sess = sess

	sub := wire.EncodeSubscription(wire.CmdSubscribe, uint16(filter.Prefix), nil)
	_ = sess.PushMsg(sub)

	s.writeC.Send()
}

// ReadC is nil: the sender never receives, InEvent is never dispatched.
func (s *Sender) ReadC() <-chan struct{} { return nil }

// WriteC signals the reactor should call OutEvent.
func (s *Sender) WriteC() <-chan struct{} { return s.writeC.C() }

func (s *Sender) InEvent() {}

// OutEvent drains every outbound message queued on the Session and writes
// one datagram per message.
func (s *Sender) OutEvent() {
	if s.paused {
		return
	}
	for {
		m, ok := s.sess.PullMsg()
		if !ok {
			return
		}
		s.send(m)
	}
}

func (s *Sender) send(m wire.Message) {
	var buf bytes.Buffer
	buf.Write(encodeHeader(s.seqNo, 0))
	// seqNo always advances, even on encode/write failure, so the receiver
	// can detect the gap the dropped datagram leaves behind.
	s.seqNo++

	if err := wire.EncodeFrame(&buf, m); err != nil {
		s.log.WithField("error", err.Error()).Warning("encode outbound frame")
		return
	}
	if _, err := s.conn.Write(buf.Bytes()); err != nil {
		s.onWriteError(err)
	}
}

func (s *Sender) onWriteError(err error) {
	if isRefused(err) {
		s.pauseAndBackoff()
		return
	}
	s.log.WithField("error", err.Error()).Warning("udp send failed, terminating engine")
	s.fail()
}

func (s *Sender) pauseAndBackoff() {
	s.paused = true
	ivl := s.opt.ReconnectIvl
	if ivl <= 0 {
		ivl = 100 * time.Millisecond
	}
	s.log.WithField("backoff_ms", ivl.Milliseconds()).Warning("udp peer refused connection, pausing output")
	s.thread.AddTimer(ivl, func() {
		s.paused = false
		s.writeC.Send()
	})
}

func isRefused(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return strings.Contains(opErr.Err.Error(), "refused")
	}
	return false
}

func (s *Sender) ActivateIn()       {}
func (s *Sender) ActivateOut()      { s.OutEvent() }
func (s *Sender) TimerEvent(id int) {}

func (s *Sender) Unplug() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}

func (s *Sender) Terminate() { s.Unplug() }

func (s *Sender) fail() {
	s.Unplug()
	if s.sess == nil {
		return
	}
	redial := s.redialer
	if redial == nil {
		redial = func(ctx context.Context) (session.Engine, error) {
			return nil, xserr.ECONNREFUSED.Error()
		}
	}
	s.sess.OnEngineError(context.Background(), redial)
}
