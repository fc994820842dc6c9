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

// Package pipe implements the Y-pipe: a single-producer/single-consumer
// message queue using an atomic-pointer flush, plus the credit-based flow
// control and three-message termination handshake layered on top of it.
package pipe

import (
	"sync/atomic"

	"github.com/crossroads-io/xscore/wire"
)

type node struct {
	msg  wire.Message
	next atomic.Pointer[node]
}

// ypipe is the lock-free SPSC queue. The writer appends to a private list
// and periodically "flushes" by atomically publishing the backlog's first
// node to the reader side; the reader walks the published chain without
// ever taking a lock.
type ypipe struct {
	// writer-only state
	writeTail *node
	// shared: the last node the reader has consumed up to
	readHead atomic.Pointer[node]
	// shared: divider between flushed (visible) and unflushed (private) data
	divider atomic.Pointer[node]
	// writer-only: the backlog entry point for pending (unflushed) writes
	backlogHead *node
	backlogTail *node
}

func newYPipe() *ypipe {
	sentinel := &node{}
	yp := &ypipe{writeTail: sentinel, backlogHead: sentinel, backlogTail: sentinel}
	yp.divider.Store(sentinel)
	yp.readHead.Store(sentinel)
	return yp
}

// write appends msg to the writer's private backlog. It is not visible to
// the reader until Flush is called.
func (y *ypipe) write(msg wire.Message) {
	n := &node{msg: msg}
	y.backlogTail.next.Store(n)
	y.backlogTail = n
}

// flush atomically publishes everything written since the last flush.
// Returns true if the reader was caught up to the old divider (i.e. the
// reader needs to be woken by a command) and false if the reader was still
// behind and will discover the new data on its own.
func (y *ypipe) flush() (needWake bool) {
	old := y.divider.Load()
	if old == y.backlogTail {
		return false
	}
	y.divider.Store(y.backlogTail)
	return y.readHead.Load() == old
}

// read pops the next message visible to the reader, if any. A node is
// visible only once the writer's divider has moved past it (Flush); a
// backlog entry linked in via write() but not yet flushed must stay
// invisible even though it is already reachable by walking next-pointers,
// or an in-progress multipart admission would leak partial messages.
func (y *ypipe) read() (wire.Message, bool) {
	head := y.readHead.Load()
	if head == y.divider.Load() {
		return wire.Message{}, false
	}
	next := head.next.Load()
	if next == nil {
		return wire.Message{}, false
	}
	y.readHead.Store(next)
	return next.msg, true
}

// peekAvailable reports how many published-but-unread nodes remain,
// without consuming them — used by Pipe.Drained.
func (y *ypipe) peekAvailable() int {
	n := 0
	cur := y.readHead.Load()
	div := y.divider.Load()
	for cur != div {
		next := cur.next.Load()
		if next == nil {
			break
		}
		cur = next
		n++
	}
	return n
}
