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

package mailbox

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/crossroads-io/xscore/signaler"
	"github.com/crossroads-io/xscore/xserr"
)

// Mailbox is a multi-producer/single-consumer ordered Command queue with a
// pollable wake signal. At most one goroutine may call Recv at a time;
// Send is safe from any goroutine.
type Mailbox struct {
	mu     sync.Mutex
	queue  *list.List
	active bool
	sig    *signaler.Signaler
}

// New returns an empty, passive Mailbox.
func New() *Mailbox {
	return &Mailbox{
		queue: list.New(),
		sig:   signaler.New(),
	}
}

// Send pushes cmd onto the queue. If the reader was passive, raises the
// signal so a blocked Recv wakes up.
func (m *Mailbox) Send(cmd Command) {
	m.mu.Lock()
	m.queue.PushBack(cmd)
	wasActive := m.active
	m.mu.Unlock()

	if !wasActive {
		m.sig.Send()
	}
}

// Recv pops the next command. If the queue is non-empty it returns
// immediately. Otherwise it marks the mailbox passive and waits on the
// signal until timeout elapses or ctx is canceled.
//
// timeout < 0 means wait indefinitely; timeout == 0 means don't block.
func (m *Mailbox) Recv(ctx context.Context, timeout time.Duration) (Command, error) {
	if cmd, ok := m.pop(); ok {
		return cmd, nil
	}

	m.mu.Lock()
	m.active = false
	m.mu.Unlock()

	if timeout == 0 {
		return Command{}, xserr.EAGAIN.Error()
	}

	waitCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		if err := m.sig.Recv(waitCtx); err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return Command{}, xserr.ETIMEDOUT.Error()
			}
			return Command{}, xserr.EINTR.Error()
		}

		m.mu.Lock()
		m.active = true
		m.mu.Unlock()

		if cmd, ok := m.pop(); ok {
			return cmd, nil
		}
		// Spurious wake (concurrent passive flip lost a race); go passive
		// again and keep waiting out the remaining timeout.
		m.mu.Lock()
		m.active = false
		m.mu.Unlock()
	}
}

func (m *Mailbox) pop() (Command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = true
	front := m.queue.Front()
	if front == nil {
		return Command{}, false
	}
	m.queue.Remove(front)
	return front.Value.(Command), true
}

// Len reports the number of commands currently queued — used by the metrics
// package to export mailbox depth.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// ReadySignal exposes the mailbox's wake channel for inclusion in a
// reflect.Select fan-in (the I/O thread's reactor loop). A readable value
// here means "check Recv", not "a command is guaranteed" — Recv still
// performs the authoritative drain-and-consume.
func (m *Mailbox) ReadySignal() <-chan struct{} {
	return m.sig.C()
}
