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

// Package iothread implements the per-thread reactor: one goroutine per I/O
// thread, fanning in registered Pollables, a timer wheel and its own
// mailbox, and dispatching readiness/timer events to the registered
// objects. Raw epoll/kqueue/poll/select is out of core scope (see
// SPEC_FULL.md design note "poller replaced by channel fan-in"); Pollable
// exposes readiness as channels instead.
package iothread

import (
	"context"
	"reflect"
	"time"

	"github.com/crossroads-io/xscore/atomicx"
	"github.com/crossroads-io/xscore/mailbox"
	"github.com/crossroads-io/xscore/timerwheel"
	"github.com/crossroads-io/xscore/xslog"
)

// Pollable is implemented by any I/O object (typically an Engine) that the
// I/O thread dispatches readiness events to.
type Pollable interface {
	ReadC() <-chan struct{}
	WriteC() <-chan struct{}
	InEvent()
	OutEvent()
}

// TID is the 16-bit thread-id used to index the Context's slot table.
type TID uint16

// Thread is one I/O thread: a goroutine running a reactor loop.
type Thread struct {
	tid     TID
	log     xslog.Logger
	mbx     *mailbox.Mailbox
	timers  *timerwheel.Wheel
	load    atomicx.Counter64
	pollReg map[Pollable]struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New returns a Thread bound to tid, logging through log.
func New(tid TID, log xslog.Logger) *Thread {
	return &Thread{
		tid:     tid,
		log:     log.WithField("tid", uint16(tid)).WithField("actor", "io-thread"),
		mbx:     mailbox.New(),
		timers:  timerwheel.New(),
		pollReg: make(map[Pollable]struct{}),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// TID returns this thread's id.
func (t *Thread) TID() TID { return t.tid }

// Mailbox returns the thread's command mailbox, for other actors to Send to.
func (t *Thread) Mailbox() *mailbox.Mailbox { return t.mbx }

// Load returns the current registration + timer count, used by the Context
// to balance new sessions across I/O threads.
func (t *Thread) Load() int64 {
	return int64(len(t.pollReg)) + int64(t.timers.Len())
}

// Register adds p to the reactor's fan-in set. Must be called from the
// owning thread's goroutine (typically in response to a Plug command).
func (t *Thread) Register(p Pollable) {
	t.pollReg[p] = struct{}{}
}

// Unregister removes p from the fan-in set.
func (t *Thread) Unregister(p Pollable) {
	delete(t.pollReg, p)
}

// AddTimer schedules a one-shot timer, delegating to the timer wheel.
func (t *Thread) AddTimer(d time.Duration, fire func()) timerwheel.Handle {
	return t.timers.AddTimer(d, fire)
}

// RmTimer cancels a previously scheduled timer.
func (t *Thread) RmTimer(h timerwheel.Handle) {
	t.timers.RmTimer(h)
}

// Run executes the reactor's main loop until Stop is called or ctx is
// canceled. Intended to be launched with `go thread.Run(ctx)`.
func (t *Thread) Run(ctx context.Context) {
	defer close(t.doneCh)
	for {
		select {
		case <-t.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		wait := t.nextWait()
		t.selectOnce(ctx, wait)

		now := time.Now()
		t.timers.FireExpired(now)
		t.drainMailbox(ctx)
	}
}

func (t *Thread) nextWait() time.Duration {
	if d, ok := t.timers.NextDeadline(); ok {
		rem := time.Until(d)
		if rem < 0 {
			return 0
		}
		return rem
	}
	return time.Hour // effectively "forever"; re-evaluated each loop
}

// selectOnce blocks until some readiness channel fires, the timer deadline
// is reached, the mailbox signals, or ctx ends — then dispatches exactly
// the events observed. Dynamic fan-in uses reflect.Select since the set of
// registered Pollables changes at runtime (objects Plug/Unplug on the fly).
func (t *Thread) selectOnce(ctx context.Context, wait time.Duration) {
	type target struct {
		p  Pollable
		op byte // 'r' or 'w'
	}

	cases := make([]reflect.SelectCase, 0, len(t.pollReg)*2+3)
	targets := make([]target, 0, len(t.pollReg)*2)

	for p := range t.pollReg {
		if rc := p.ReadC(); rc != nil {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(rc)})
			targets = append(targets, target{p, 'r'})
		}
		if wc := p.WriteC(); wc != nil {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(wc)})
			targets = append(targets, target{p, 'w'})
		}
	}

	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(t.mbx.ReadySignal())})
	mbxIdx := len(cases) - 1

	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})
	ctxIdx := len(cases) - 1

	timer := time.NewTimer(wait)
	defer timer.Stop()
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(timer.C)})
	timerIdx := len(cases) - 1

	chosen, _, _ := reflect.Select(cases)
	switch {
	case chosen == mbxIdx || chosen == ctxIdx || chosen == timerIdx:
		return
	default:
		tg := targets[chosen]
		if tg.op == 'r' {
			tg.p.InEvent()
		} else {
			tg.p.OutEvent()
		}
	}
}

func (t *Thread) drainMailbox(ctx context.Context) {
	for {
		cmd, err := t.mbx.Recv(ctx, 0)
		if err != nil {
			return
		}
		t.handle(cmd)
	}
}

func (t *Thread) handle(cmd mailbox.Command) {
	switch cmd.Type {
	case mailbox.Stop:
		close(t.stopCh)
	case mailbox.ActivateRead, mailbox.ActivateWrite:
		t.wakeAll()
	default:
		t.log.WithField("command", cmd.Type.String()).Debug("io-thread command")
	}
}

// wakeAll asks every registered Pollable to re-check its own queues. A pipe
// Flush on either side of a connection posts an activation command here
// rather than naming the one Engine it concerns, since the thread has no
// cheaper way to identify which registration a conn-less command belongs
// to; InEvent/OutEvent are no-ops when a Pollable has nothing queued, so
// sweeping the whole registration set costs nothing on the common path.
func (t *Thread) wakeAll() {
	for p := range t.pollReg {
		p.InEvent()
		p.OutEvent()
	}
}

// Stop requests the reactor loop to exit at its next iteration.
func (t *Thread) Stop() {
	t.mbx.Send(mailbox.Command{Type: mailbox.Stop})
}

// Done returns a channel closed once Run has returned.
func (t *Thread) Done() <-chan struct{} { return t.doneCh }
