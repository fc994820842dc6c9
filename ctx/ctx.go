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

// Package ctx is the top-level Context: it owns the I/O thread pool, the
// transport and filter registries, and the socket-id/slot accounting every
// new Socket is carved out of. A single process normally holds one Context;
// every Socket it mints shares its thread pool and is torn down together by
// Term.
package ctx

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/crossroads-io/xscore/engine/tcp"
	"github.com/crossroads-io/xscore/engine/udp"
	"github.com/crossroads-io/xscore/filter"
	"github.com/crossroads-io/xscore/iothread"
	"github.com/crossroads-io/xscore/pattern"
	"github.com/crossroads-io/xscore/reaper"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/xserr"
	"github.com/crossroads-io/xscore/xslog"
)

// Options configures a Context at construction time. Unlike per-Socket
// Options, these are fixed for the Context's lifetime: changing the thread
// count or socket ceiling after sockets exist isn't supported.
type Options struct {
	MaxSockets int
	IOThreads  int
}

// DefaultOptions mirrors the reference implementation's built-in ceilings
// (512 sockets, a single I/O thread) before any setctxopt-equivalent call.
func DefaultOptions() Options {
	return Options{MaxSockets: 512, IOThreads: 1}
}

// Context is the root object of a crossroads-io process: it lazily spins up
// its I/O thread pool and reaper on the first NewSocket call, mirroring the
// original's lazy slot-table initialization.
type Context struct {
	mu  sync.Mutex
	opt Options
	log xslog.Logger

	started bool
	term    bool

	threads []*iothread.Thread
	sem     *semaphore.Weighted
	nextTID iothread.TID

	filters    *filter.Registry
	transports map[string]socket.Transport

	reap *reaper.Reaper

	rootCtx context.Context
	cancel  context.CancelFunc
}

// New returns a Context that has not yet started its thread pool; threads
// and the reaper are created on the first NewSocket call.
func New(opt Options, log xslog.Logger) *Context {
	if opt.MaxSockets <= 0 {
		opt.MaxSockets = DefaultOptions().MaxSockets
	}
	if opt.IOThreads <= 0 {
		opt.IOThreads = DefaultOptions().IOThreads
	}
	root, cancel := context.WithCancel(context.Background())
	c := &Context{
		opt:     opt,
		log:     log.WithField("actor", "ctx"),
		sem:     semaphore.NewWeighted(int64(opt.MaxSockets)),
		rootCtx: root,
		cancel:  cancel,
	}
	return c
}

// startLocked spins up the thread pool, transport registry and filter
// registry. Called with mu held, exactly once, on the first NewSocket.
func (c *Context) startLocked() {
	c.filters = filter.NewRegistry(c.log)

	tcpT := tcp.New(c.log)
	udpT := udp.New(c.log)
	c.transports = map[string]socket.Transport{
		// tcp+tls shares the Transport: TLS is selected internally from
		// socket.Options.TLSConfig, not by a distinct transport type.
		"tcp":     tcpT,
		"tcp+tls": tcpT,
		"udp":     udpT,
	}

	c.threads = make([]*iothread.Thread, c.opt.IOThreads)
	for i := range c.threads {
		t := iothread.New(c.nextTID, c.log)
		c.nextTID++
		c.threads[i] = t
		go t.Run(c.rootCtx)
	}

	c.reap = reaper.New(c.log)
	c.started = true
}

// pickThread returns the least-loaded I/O thread, mirroring choose_io_thread
// in the original Context.
func (c *Context) pickThread() *iothread.Thread {
	best := c.threads[0]
	for _, t := range c.threads[1:] {
		if t.Load() < best.Load() {
			best = t
		}
	}
	return best
}

func newPattern(kind socket.Kind) (socket.Pattern, error) {
	switch kind {
	case socket.KindXREQ:
		return pattern.NewXREQ(), nil
	case socket.KindREQ:
		return pattern.NewREQ(), nil
	case socket.KindXREP:
		return pattern.NewXREP(), nil
	case socket.KindREP:
		return pattern.NewREP(), nil
	case socket.KindXPUB:
		return pattern.NewXPUB(true), nil
	case socket.KindPUB:
		return pattern.NewPUB(), nil
	case socket.KindXSUB:
		return pattern.NewXSUB(), nil
	case socket.KindSUB:
		return pattern.NewSUB(), nil
	case socket.KindPUSH:
		return pattern.NewPUSH(), nil
	case socket.KindPULL:
		return pattern.NewPULL(), nil
	case socket.KindXSURVEYOR:
		return pattern.NewXSURVEYOR(), nil
	case socket.KindSURVEYOR:
		return pattern.NewSURVEYOR(), nil
	case socket.KindXRESPONDENT:
		return pattern.NewXRESPONDENT(), nil
	case socket.KindRESPONDENT:
		return pattern.NewRESPONDENT(), nil
	default:
		return nil, xserr.EINVAL.Error()
	}
}

// NewSocket mints a Socket of the given Kind, bound to the Context's thread
// pool, transport registry and filter registry. Returns EMFILE once
// MaxSockets concurrently-live sockets are outstanding, ETERM once Term has
// been called.
func (c *Context) NewSocket(kind socket.Kind) (*socket.Core, error) {
	c.mu.Lock()
	if c.term {
		c.mu.Unlock()
		return nil, xserr.ETERM.Error()
	}
	if !c.started {
		c.startLocked()
	}
	c.mu.Unlock()

	if !c.sem.TryAcquire(1) {
		return nil, xserr.EMFILE.Error()
	}

	pat, err := newPattern(kind)
	if err != nil {
		c.sem.Release(1)
		return nil, err
	}

	thr := c.pickThread()
	opt := socket.Default(kind)
	sk := socket.New(c.rootCtx, pat, opt, thr, c.transports, c.filters, c.log)

	c.reap.Register(sk, func() { c.sem.Release(1) })
	return sk, nil
}

// Term tears down every Socket minted by this Context and stops its I/O
// threads. Restartable on ctx cancellation exactly as socket.Core.Term is:
// a caller that gives up and calls Term again resumes the same teardown.
func (c *Context) Term(callerCtx context.Context) error {
	c.mu.Lock()
	c.term = true
	started := c.started
	c.mu.Unlock()

	if !started {
		return nil
	}

	if err := c.reap.TermAll(callerCtx); err != nil {
		c.mu.Lock()
		c.term = false
		c.mu.Unlock()
		return err
	}

	c.cancel()
	for _, t := range c.threads {
		t.Stop()
	}
	return nil
}
