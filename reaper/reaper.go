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

// Package reaper coordinates Context-wide teardown. The original
// implementation runs this as a dedicated actor exchanging term_req/term_ack
// commands with every live socket and a term_mailbox that blocks the
// terminating thread until the reaper reports done; here each socket.Core
// already knows how to tear itself down correctly (Core.Term), so the
// Reaper's job collapses to fanning Term out across every registered socket
// and barrier-waiting on the result with an errgroup, rather than
// reimplementing socket-level teardown.
package reaper

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/xserr"
	"github.com/crossroads-io/xscore/xslog"
)

type entry struct {
	sk     *socket.Core
	onDone func()
}

// Reaper tracks every socket.Core minted by a Context and drives their
// coordinated termination.
type Reaper struct {
	mu      sync.Mutex
	log     xslog.Logger
	entries []entry
}

// New returns an empty Reaper.
func New(log xslog.Logger) *Reaper {
	return &Reaper{log: log.WithField("actor", "reaper")}
}

// Register adds sk to the set torn down by TermAll. onDone runs once sk has
// terminated successfully, used by the Context to release its socket-count
// semaphore slot.
func (r *Reaper) Register(sk *socket.Core, onDone func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{sk: sk, onDone: onDone})
}

// TermAll calls Term on every registered socket concurrently and waits for
// all of them to finish. If ctx is canceled before every socket has
// terminated, it returns EINTR without discarding the registry: a later
// TermAll call resumes, each socket.Core.Term being itself restartable.
func (r *Reaper) TermAll(ctx context.Context) error {
	r.mu.Lock()
	live := make([]entry, len(r.entries))
	copy(live, r.entries)
	r.mu.Unlock()

	if len(live) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range live {
		e := e
		g.Go(func() error {
			if err := e.sk.Term(gctx); err != nil {
				return err
			}
			if e.onDone != nil {
				e.onDone()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if xserr.CodeOf(err) == xserr.EINTR {
			r.log.Warning("context canceled before every socket finished terminating")
		}
		return err
	}

	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
	return nil
}
