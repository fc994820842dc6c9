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

// Package dist implements the three pipe-selection strategies shared by the
// pattern sockets: round-robin fair-queued read, round-robin load-balanced
// write, and broadcast write.
package dist

import (
	"github.com/crossroads-io/xscore/pipe"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
)

// FairQueue round-robins reads across a set of pipes, skipping any that are
// empty or terminated, so no single peer can starve the others.
type FairQueue struct {
	pipes  []*pipe.Pipe
	cursor int
}

// NewFairQueue returns an empty fair-queue.
func NewFairQueue() *FairQueue { return &FairQueue{} }

// Attach adds a pipe to the rotation.
func (f *FairQueue) Attach(p *pipe.Pipe) { f.pipes = append(f.pipes, p) }

// Detach removes a pipe from the rotation.
func (f *FairQueue) Detach(p *pipe.Pipe) {
	for i, q := range f.pipes {
		if q == p {
			f.pipes = append(f.pipes[:i], f.pipes[i+1:]...)
			if f.cursor > i {
				f.cursor--
			}
			return
		}
	}
}

// Len reports the number of pipes currently attached.
func (f *FairQueue) Len() int { return len(f.pipes) }

// Recv returns the next available message from the rotation, advancing the
// cursor past the pipe it read from. It tries each attached pipe at most
// once per call.
func (f *FairQueue) Recv() (wire.Message, error) {
	n := len(f.pipes)
	if n == 0 {
		return wire.Message{}, xserr.EAGAIN.Error()
	}
	for i := 0; i < n; i++ {
		idx := (f.cursor + i) % n
		p := f.pipes[idx]
		if p.Terminated() {
			continue
		}
		if m, ok := p.Read(); ok {
			f.cursor = (idx + 1) % n
			return m, nil
		}
	}
	return wire.Message{}, xserr.EAGAIN.Error()
}

// LoadBalance round-robins writes across a set of pipes, skipping any that
// are full (at HWM) or terminated. A multipart message stays pinned to
// whichever pipe took its first frame so the parts can't scatter across
// peers mid-message.
type LoadBalance struct {
	pipes   []*pipe.Pipe
	cursor  int
	pending *pipe.Pipe
}

// NewLoadBalance returns an empty load-balancer.
func NewLoadBalance() *LoadBalance { return &LoadBalance{} }

// Attach adds a pipe to the rotation.
func (l *LoadBalance) Attach(p *pipe.Pipe) { l.pipes = append(l.pipes, p) }

// Detach removes a pipe from the rotation.
func (l *LoadBalance) Detach(p *pipe.Pipe) {
	if l.pending == p {
		l.pending = nil
	}
	for i, q := range l.pipes {
		if q == p {
			l.pipes = append(l.pipes[:i], l.pipes[i+1:]...)
			if l.cursor > i {
				l.cursor--
			}
			return
		}
	}
}

// Len reports the number of pipes currently attached.
func (l *LoadBalance) Len() int { return len(l.pipes) }

// HasOut reports whether at least one attached pipe currently has spare
// credit to accept a write.
func (l *LoadBalance) HasOut() bool {
	for _, p := range l.pipes {
		if !p.Terminated() && !p.Full() {
			return true
		}
	}
	return false
}

// Send writes the message (honouring its own more flag) to the next pipe in
// rotation that is neither full nor terminated, picking a fresh pipe only
// when no multipart send is already pinned; the final (non-more) frame
// flushes and releases the pin.
func (l *LoadBalance) Send(m wire.Message) error {
	p := l.pending
	if p == nil {
		n := len(l.pipes)
		if n == 0 {
			return xserr.EAGAIN.Error()
		}
		picked := -1
		for i := 0; i < n; i++ {
			idx := (l.cursor + i) % n
			cand := l.pipes[idx]
			if cand.Terminated() || cand.Full() {
				continue
			}
			p = cand
			picked = idx
			break
		}
		if picked < 0 {
			return xserr.EAGAIN.Error()
		}
		l.cursor = (picked + 1) % n
	}

	var err error
	if m.More() {
		err = p.WriteMore(m)
	} else {
		err = p.Write(m)
	}
	if err != nil {
		l.pending = nil
		return err
	}

	if m.More() {
		l.pending = p
	} else {
		l.pending = nil
		p.Flush()
	}
	return nil
}

// Distribute broadcasts a message (all parts of a multipart write) to every
// attached pipe with spare credit, used by PUB/XPUB after filter matching
// has produced the recipient set.
type Distribute struct {
	pipes []*pipe.Pipe
}

// NewDistribute returns an empty broadcaster.
func NewDistribute() *Distribute { return &Distribute{} }

// Attach adds a pipe to the broadcast set.
func (d *Distribute) Attach(p *pipe.Pipe) { d.pipes = append(d.pipes, p) }

// Detach removes a pipe from the broadcast set.
func (d *Distribute) Detach(p *pipe.Pipe) {
	for i, q := range d.pipes {
		if q == p {
			d.pipes = append(d.pipes[:i], d.pipes[i+1:]...)
			return
		}
	}
}

// SendTo writes a message to exactly the pipes identified by subs (typically
// the callback set produced by a filter.PublisherFilter.Match), silently
// dropping it for any that are full — PUB sockets never block a publisher on
// a slow subscriber. The final (non-more) frame flushes each pipe it
// reached, publishing the whole multipart message to it atomically.
func SendTo(subs []*pipe.Pipe, m wire.Message) {
	for _, p := range subs {
		if p.Terminated() || p.Full() {
			continue
		}
		var err error
		if m.More() {
			err = p.WriteMore(m)
		} else {
			err = p.Write(m)
		}
		if err != nil {
			continue
		}
		if !m.More() {
			p.Flush()
		}
	}
}
