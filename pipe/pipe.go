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

package pipe

import (
	"sync"

	"github.com/crossroads-io/xscore/atomicx"
	"github.com/crossroads-io/xscore/mailbox"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
)

// TermState tracks the three-message pipe-termination handshake.
type TermState int

const (
	TermNone TermState = iota
	TermRequested
	TermAcked
)

// Pipe is one direction of a logical connection: an ordered, bounded, SPSC
// queue of Messages plus a credit-based back-channel. A full duplex
// connection is a pair of Pipes (see NewPair).
type Pipe struct {
	mu sync.Mutex

	q *ypipe

	hwm int64
	lwm int64

	msgsWritten   atomicx.Counter64
	lastMsgsRead  atomicx.Counter64
	msgsRead      atomicx.Counter64

	writerMore bool // writer-private: mid-multipart guard

	peer    *Pipe // the other direction of the pair
	peerMbx *mailbox.Mailbox

	term TermState
}

// NewPair builds two Pipes wired to each other's mailbox for activation and
// termination commands, with the given high/low water marks (message
// counts; 0 means "no buffering", i.e. always full).
func NewPair(hwmAB, hwmBA, lwm int64, mbxA, mbxB *mailbox.Mailbox) (a, b *Pipe) {
	a = &Pipe{q: newYPipe(), hwm: hwmAB, lwm: lwm, peerMbx: mbxB}
	b = &Pipe{q: newYPipe(), hwm: hwmBA, lwm: lwm, peerMbx: mbxA}
	a.peer = b
	b.peer = a
	return a, b
}

// credit returns how many more messages may be written before the pipe is
// considered full.
func (p *Pipe) credit() int64 {
	if p.hwm <= 0 {
		return 0
	}
	avail := p.hwm - (p.msgsWritten.Load() - p.lastMsgsRead.Load())
	if avail < 0 {
		return 0
	}
	return avail
}

// Full reports whether the pipe currently has zero write credit.
func (p *Pipe) Full() bool {
	return p.credit() <= 0
}

// Depth returns the number of messages written but not yet read, for
// metrics reporting.
func (p *Pipe) Depth() int64 {
	return p.msgsWritten.Load() - p.msgsRead.Load()
}

// Write enqueues a single-part message (more=false) if credit allows.
// Returns EAGAIN if the pipe is full.
func (p *Pipe) Write(m wire.Message) error {
	return p.writeGuarded(m, false)
}

// WriteMore enqueues one part of a multipart message. Only the first part
// of a chain is checked against HWM; once a chain has started, its later
// parts (including the final Write) are admitted even past HWM so the
// message can complete. No part is visible to the reader until Flush.
func (p *Pipe) WriteMore(m wire.Message) error {
	m.SetMore(true)
	return p.writeGuarded(m, true)
}

func (p *Pipe) writeGuarded(m wire.Message, more bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.term != TermNone {
		return xserr.ETERM.Error()
	}

	if p.credit() <= 0 && !p.writerMore {
		return xserr.EAGAIN.Error()
	}

	p.q.write(m)
	p.msgsWritten.Add(1)
	p.writerMore = more
	return nil
}

// Flush publishes everything written so far to the reader side. If the
// reader had caught up to the previous divider, it posts an ActivateRead
// command to the reader's own mailbox so a blocked Recv/reactor loop wakes
// up instead of waiting out its next timer tick. That mailbox is the
// peer pipe's peerMbx: NewPair wires each pipe's peerMbx to the mailbox of
// whoever owns the OTHER pipe's write side, so p.peer.peerMbx is always
// the mailbox of p's own reader.
func (p *Pipe) Flush() bool {
	p.mu.Lock()
	needWake := p.q.flush()
	peer := p.peer
	p.mu.Unlock()

	if needWake && peer != nil && peer.peerMbx != nil {
		peer.peerMbx.Send(mailbox.Command{Type: mailbox.ActivateRead})
	}
	return needWake
}

// Read dequeues the next message, if any.
func (p *Pipe) Read() (wire.Message, bool) {
	msg, ok := p.q.read()
	if !ok {
		return wire.Message{}, false
	}
	n := p.msgsRead.Add(1)
	// Every time the reader crosses below lwm credit remaining on the
	// *peer's* accounting, tell the writer how much has been consumed.
	if p.lwm > 0 && n%p.lwm == 0 {
		p.lastMsgsRead.Store(n)
		if p.peerMbx != nil {
			p.peerMbx.Send(mailbox.Command{Type: mailbox.ActivateWrite, Payload: n})
		}
	}
	return msg, true
}

// ApplyCredit is invoked by the writer side on receipt of an ActivateWrite
// command carrying the reader's new msgsRead tally.
func (p *Pipe) ApplyCredit(msgsRead int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastMsgsRead.Store(msgsRead)
}

// Terminate begins the three-message pipe_term handshake by marking the
// pipe TermRequested; later writes fail with ETERM. It posts no command
// itself: any PipeTerm/PipeTermAck exchange is up to the caller, and
// AckTerm completes the handshake.
func (p *Pipe) Terminate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.term = TermRequested
}

// AckTerm completes the handshake on the initiator's side once the peer's
// pipe_term_ack has been observed.
func (p *Pipe) AckTerm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.term = TermAcked
}

// Terminated reports whether the handshake has fully completed.
func (p *Pipe) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.term == TermAcked
}

// Drained reports whether every flushed message has been read — used by
// Session.Terminate to decide when its linger wait can end.
func (p *Pipe) Drained() bool {
	return p.q.peekAvailable() == 0
}
