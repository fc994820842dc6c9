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

package tcp

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/crossroads-io/xscore/iothread"
	"github.com/crossroads-io/xscore/session"
	"github.com/crossroads-io/xscore/signaler"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
	"github.com/crossroads-io/xscore/xslog"
)

const handshakeTimeout = 10 * time.Second

// Engine is the session.Engine over a net.Conn: one reader goroutine
// decoding frames off the wire, one writer goroutine encoding frames onto
// it, and the I/O thread's reactor shuttling queued messages between them
// and the Session. The reactor itself never touches the socket directly —
// that would block the whole thread on a slow peer.
type Engine struct {
	conn   net.Conn
	opt    socket.Options
	log    xslog.Logger
	legacy bool

	thread *iothread.Thread
	sess   *session.Session

	r *bufio.Reader
	w *bufio.Writer

	inMu    sync.Mutex
	inQueue []wire.Message
	inSig   *signaler.Signaler

	outMu    sync.Mutex
	outQueue []wire.Message
	outSig   *signaler.Signaler // wakes writeLoop when OutEvent queues work
	outReady *signaler.Signaler // WriteC: writeLoop is idle, wants more

	stopCh   chan struct{}
	stopOnce sync.Once

	// redialer re-dials the same endpoint; set by Transport.Dial, left nil
	// for accepted (listener-side) engines, which never reconnect.
	redialer func(context.Context) (session.Engine, error)
}

func newEngine(conn net.Conn, opt socket.Options, log xslog.Logger) *Engine {
	return &Engine{
		conn:     conn,
		opt:      opt,
		log:      log.WithField("actor", "tcp-engine").WithField("remote", conn.RemoteAddr().String()),
		r:        bufio.NewReader(conn),
		w:        bufio.NewWriter(conn),
		inSig:    signaler.New(),
		outSig:   signaler.New(),
		outReady: signaler.New(),
		stopCh:   make(chan struct{}),
	}
}

func patternRole(k socket.Kind) (pattern, role byte) {
	switch k {
	case socket.KindXREQ, socket.KindREQ:
		return wire.PatternReqRep, wire.RoleReqRepReq
	case socket.KindXREP, socket.KindREP:
		return wire.PatternReqRep, wire.RoleReqRepRep
	case socket.KindXPUB, socket.KindPUB:
		return wire.PatternPubSub, wire.RolePubSubPub
	case socket.KindXSUB, socket.KindSUB:
		return wire.PatternPubSub, wire.RolePubSubSub
	case socket.KindPUSH:
		return wire.PatternPipeline, wire.RolePipelinePush
	case socket.KindPULL:
		return wire.PatternPipeline, wire.RolePipelinePull
	case socket.KindXSURVEYOR, socket.KindSURVEYOR:
		return wire.PatternSurvey, wire.RoleSurveySurveyor
	case socket.KindXRESPONDENT, socket.KindRESPONDENT:
		return wire.PatternSurvey, wire.RoleSurveyRespondent
	default:
		return 0, 0
	}
}

// handshake exchanges the 8-byte SP greeting and rejects an incompatible
// peer before any frame traffic is allowed.
func (e *Engine) handshake() error {
	pattern, role := patternRole(e.opt.Type)
	version := byte(wire.CurrentVersion)
	if e.opt.Protocol == socket.ProtocolLegacy {
		version = byte(wire.LegacyVersion)
	}
	local := wire.BuildGreeting(pattern, version, role)

	_ = e.conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer e.conn.SetDeadline(time.Time{})

	if _, err := e.conn.Write(local[:]); err != nil {
		return err
	}

	remote := make([]byte, wire.GreetingLength)
	if _, err := io.ReadFull(e.r, remote); err != nil {
		return err
	}

	rPattern, rVersion, rRole, err := wire.ParseGreeting(remote)
	if err != nil {
		return err
	}
	if !wire.Compatible(pattern, role, rPattern, rRole) {
		return xserr.ENOCOMPATPROTO.Error()
	}
	e.legacy = rVersion == byte(wire.LegacyVersion)
	return nil
}

// Plug performs the handshake and starts the reader/writer goroutines. On
// handshake failure the engine fails itself immediately, which drives the
// Session's reconnect-or-terminate path exactly as a later I/O error would.
func (e *Engine) Plug(t *iothread.Thread, s *session.Session) {
	e.thread = t
	e.sess = s

	if err := e.handshake(); err != nil {
		e.log.WithField("error", err.Error()).Warning("greeting handshake failed")
		e.fail()
		return
	}

	go e.readLoop()
	go e.writeLoop()
	e.outReady.Send()
}

func (e *Engine) readLoop() {
	for {
		m, err := wire.DecodeFrame(e.r, e.legacy)
		if err != nil {
			e.fail()
			return
		}

		e.inMu.Lock()
		e.inQueue = append(e.inQueue, m)
		e.inMu.Unlock()
		e.inSig.Send()

		select {
		case <-e.stopCh:
			return
		default:
		}
	}
}

func (e *Engine) writeLoop() {
	for {
		select {
		case <-e.outSig.C():
		case <-e.stopCh:
			return
		}

		for {
			e.outMu.Lock()
			if len(e.outQueue) == 0 {
				e.outMu.Unlock()
				break
			}
			m := e.outQueue[0]
			e.outQueue = e.outQueue[1:]
			e.outMu.Unlock()

			if err := wire.EncodeFrame(e.w, m); err != nil {
				e.fail()
				return
			}
			if !m.More() {
				if err := e.w.Flush(); err != nil {
					e.fail()
					return
				}
			}
		}

		select {
		case <-e.stopCh:
			return
		default:
		}
		e.outReady.Send()
	}
}

// ReadC signals that decoded inbound frames are waiting for InEvent to hand
// off to the Session.
func (e *Engine) ReadC() <-chan struct{} { return e.inSig.C() }

// WriteC signals that the writer goroutine has drained its queue and is
// ready to accept more outbound messages via OutEvent.
func (e *Engine) WriteC() <-chan struct{} { return e.outReady.C() }

// InEvent drains every queued inbound message into the Session.
func (e *Engine) InEvent() {
	for {
		e.inMu.Lock()
		if len(e.inQueue) == 0 {
			e.inMu.Unlock()
			return
		}
		m := e.inQueue[0]
		e.inQueue = e.inQueue[1:]
		e.inMu.Unlock()

		if err := e.sess.PushMsg(m); err != nil {
			e.log.WithField("error", err.Error()).Warning("drop inbound message, socket-side pipe full")
		}
	}
}

// OutEvent pulls every currently queued outbound message from the Session
// and hands it to the writer goroutine.
func (e *Engine) OutEvent() {
	for {
		m, ok := e.sess.PullMsg()
		if !ok {
			return
		}
		e.outMu.Lock()
		e.outQueue = append(e.outQueue, m)
		e.outMu.Unlock()
		e.outSig.Send()
	}
}

// ActivateIn is a no-op: this engine doesn't throttle reads on pipe credit,
// InEvent's PushMsg call surfaces inbound backpressure directly.
func (e *Engine) ActivateIn() {}

// ActivateOut mirrors OutEvent, used by the Session to wake the engine the
// first time data appears on the outbound pipe, ahead of any writeC cycle.
func (e *Engine) ActivateOut() { e.OutEvent() }

// TimerEvent is unused: this engine schedules no timers of its own.
func (e *Engine) TimerEvent(id int) {}

// Unplug closes the connection and stops both goroutines.
func (e *Engine) Unplug() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		_ = e.conn.Close()
	})
}

// Terminate is Unplug's counterpart from the session.Engine interface; for
// this transport the two are the same operation.
func (e *Engine) Terminate() {
	e.Unplug()
}

func (e *Engine) fail() {
	e.Unplug()
	if e.sess == nil {
		return
	}
	redial := e.redialer
	if redial == nil {
		redial = func(ctx context.Context) (session.Engine, error) {
			return nil, xserr.ECONNREFUSED.Error()
		}
	}
	e.sess.OnEngineError(context.Background(), redial)
}
