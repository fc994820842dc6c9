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

// Package wire implements the Message type and the on-the-wire encodings:
// the SP greeting, the variable-length frame format, and the current and
// legacy subscription-frame formats.
package wire

// Flag bits carried by a Message.
const (
	FlagMore    byte = 1 << 0 // another part follows
	FlagCommand byte = 1 << 1 // internal control frame, not user data
	FlagShared  byte = 1 << 2 // reference-counted backing store
)

// Message is an owned byte buffer plus a flags byte. Messages are movable:
// ownership transfers across the Send/Recv boundary, matching the source's
// msg_t::move semantics — callers should not reuse a Message after handing
// it to a Pipe.
type Message struct {
	Flags byte
	Data  []byte
}

// More reports whether another part follows this one.
func (m Message) More() bool { return m.Flags&FlagMore != 0 }

// IsCommand reports whether this is an internal control frame.
func (m Message) IsCommand() bool { return m.Flags&FlagCommand != 0 }

// SetMore sets or clears the more flag.
func (m *Message) SetMore(v bool) {
	if v {
		m.Flags |= FlagMore
	} else {
		m.Flags &^= FlagMore
	}
}

// NewFrame builds a single-part-or-not Message from data.
func NewFrame(data []byte, more bool) Message {
	m := Message{Data: data}
	m.SetMore(more)
	return m
}

// Clone returns a deep copy, used where a message must be replayed (e.g.
// subscription replay on hiccup) without aliasing the original backing array.
func (m Message) Clone() Message {
	d := make([]byte, len(m.Data))
	copy(d, m.Data)
	return Message{Flags: m.Flags, Data: d}
}
