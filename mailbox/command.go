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

// Package mailbox implements the actor command channel: a multi-producer,
// single-consumer ordered queue of Commands backed by a signaler.Signaler
// wake primitive.
package mailbox

// Type tags the kind of a Command. The set matches the data model's command
// vocabulary; destinations interpret Payload according to Type.
type Type int

const (
	Stop Type = iota
	Plug
	Own
	Attach
	Bind
	ActivateRead
	ActivateWrite
	Hiccup
	PipeTerm
	PipeTermAck
	TermReq
	Term
	TermAck
	Reap
	Reaped
	InprocConnected
	Done
)

func (t Type) String() string {
	switch t {
	case Stop:
		return "stop"
	case Plug:
		return "plug"
	case Own:
		return "own"
	case Attach:
		return "attach"
	case Bind:
		return "bind"
	case ActivateRead:
		return "activate_read"
	case ActivateWrite:
		return "activate_write"
	case Hiccup:
		return "hiccup"
	case PipeTerm:
		return "pipe_term"
	case PipeTermAck:
		return "pipe_term_ack"
	case TermReq:
		return "term_req"
	case Term:
		return "term"
	case TermAck:
		return "term_ack"
	case Reap:
		return "reap"
	case Reaped:
		return "reaped"
	case InprocConnected:
		return "inproc_connected"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Command is the sole unit of cross-actor state change. Destination is an
// opaque handle (the data model's "slot"/actor reference) interpreted by the
// receiving actor; Payload is command-specific (e.g. the new msgs_read value
// for ActivateWrite, the hiccuped pipe for Hiccup).
type Command struct {
	Type        Type
	Destination any
	Payload     any
}
