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
	"bufio"
	"bytes"
	"net"
	"sync"

	"github.com/crossroads-io/xscore/iothread"
	"github.com/crossroads-io/xscore/session"
	"github.com/crossroads-io/xscore/signaler"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xslog"
)

// Receiver is the Engine half that reassembles the datagram stream: it
// tracks the last-seen sequence number, drops stale/duplicate packets, and
// re-synchronizes using a packet's offset field when a gap is detected.
type Receiver struct {
	conn *net.UDPConn
	opt  socket.Options
	log  xslog.Logger

	thread *iothread.Thread
	sess   *session.Session

	synced  bool
	lastSeq uint32
	dec     *bufio.Reader

	inMu    sync.Mutex
	inQueue []wire.Message
	inSig   *signaler.Signaler

	outReady *signaler.Signaler

	closeOnce sync.Once
}

func newReceiver(conn *net.UDPConn, opt socket.Options, log xslog.Logger) *Receiver {
	return &Receiver{
		conn:     conn,
		opt:      opt,
		log:      log.WithField("actor", "udp-receiver").WithField("local", conn.LocalAddr().String()),
		inSig:    signaler.New(),
		outReady: signaler.New(),
	}
}

func (r *Receiver) Plug(t *iothread.Thread, sess *session.Session) {
	r.thread = t
	r.sess = sess
	go r.readLoop()
	r.outReady.Send()
}

func (r *Receiver) readLoop() {
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if n < headerLen {
			continue // malformed, too short to carry a header
		}
		r.onPacket(buf[:n])
	}
}

func (r *Receiver) onPacket(packet []byte) {
	seqNo, offset := decodeHeader(packet)
	payload := packet[headerLen:]

	switch {
	case !r.synced:
		if offset == noBoundary {
			return // still hunting for the first message boundary
		}
		r.resync(seqNo, offset, payload)
	case seqNo == r.lastSeq+1:
		r.lastSeq = seqNo
		r.dec = bufio.NewReader(bytes.NewReader(payload))
	case seqNo <= r.lastSeq:
		return // old or duplicate, drop
	default:
		// gap detected: only the offset field can re-anchor us.
		if offset == noBoundary {
			r.synced = false
			return
		}
		r.resync(seqNo, offset, payload)
	}

	r.drainDecoder()
}

func (r *Receiver) resync(seqNo uint32, offset uint16, payload []byte) {
	r.synced = true
	r.lastSeq = seqNo
	if int(offset) > len(payload) {
		offset = uint16(len(payload))
	}
	r.dec = bufio.NewReader(bytes.NewReader(payload[offset:]))
}

func (r *Receiver) drainDecoder() {
	for {
		m, err := wire.DecodeFrame(r.dec, r.opt.Protocol == socket.ProtocolLegacy)
		if err != nil {
			return
		}
		r.inMu.Lock()
		r.inQueue = append(r.inQueue, m)
		r.inMu.Unlock()
		r.inSig.Send()
	}
}

func (r *Receiver) ReadC() <-chan struct{}  { return r.inSig.C() }
func (r *Receiver) WriteC() <-chan struct{} { return r.outReady.C() }

func (r *Receiver) InEvent() {
	for {
		r.inMu.Lock()
		if len(r.inQueue) == 0 {
			r.inMu.Unlock()
			return
		}
		m := r.inQueue[0]
		r.inQueue = r.inQueue[1:]
		r.inMu.Unlock()

		if err := r.sess.PushMsg(m); err != nil {
			r.log.WithField("error", err.Error()).Warning("drop inbound message, socket-side pipe full")
		}
	}
}

// OutEvent discards whatever the pattern above tries to push down: UDP
// carries no upstream subscription traffic, so XSUB's subscribe/unsubscribe
// control frames have nowhere to go.
func (r *Receiver) OutEvent() {
	for {
		_, ok := r.sess.PullMsg()
		if !ok {
			return
		}
	}
}

func (r *Receiver) ActivateIn()       {}
func (r *Receiver) ActivateOut()      { r.OutEvent() }
func (r *Receiver) TimerEvent(id int) {}

func (r *Receiver) Unplug() {
	r.closeOnce.Do(func() {
		_ = r.conn.Close()
	})
}

func (r *Receiver) Terminate() { r.Unplug() }
