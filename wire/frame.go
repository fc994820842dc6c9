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

package wire

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/crossroads-io/xscore/xserr"
)

// longFormMarker flags a frame whose size exceeds what a single byte can
// hold; the next 8 bytes (big-endian) carry the real size.
const longFormMarker = 0xff

// legacyFlagMask keeps only the bits meaningful to the 0MQ/2.1 wire (bit 0,
// "more"); unused bits in a legacy frame are masked rather than rejected,
// per the Open Question decision in SPEC_FULL.md.
const legacyFlagMask = FlagMore

// EncodeFrame writes one message frame: short-form (1-byte size, 1-byte
// flags) when size < 255, long-form (0xff marker, 8-byte BE size, 1-byte
// flags) otherwise.
func EncodeFrame(w io.Writer, m Message) error {
	size := uint64(len(m.Data))
	if size < longFormMarker {
		if _, err := w.Write([]byte{byte(size), m.Flags}); err != nil {
			return err
		}
	} else {
		hdr := make([]byte, 10)
		hdr[0] = longFormMarker
		binary.BigEndian.PutUint64(hdr[1:9], size)
		hdr[9] = m.Flags
		if _, err := w.Write(hdr); err != nil {
			return err
		}
	}
	if size == 0 {
		return nil
	}
	_, err := w.Write(m.Data)
	return err
}

// DecodeFrame reads one message frame from r. legacy masks unused flag bits
// per the 0MQ/2.1 interop rule.
func DecodeFrame(r *bufio.Reader, legacy bool) (Message, error) {
	first, err := r.ReadByte()
	if err != nil {
		return Message{}, err
	}

	var size uint64
	if first == longFormMarker {
		buf := make([]byte, 8)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Message{}, err
		}
		size = binary.BigEndian.Uint64(buf)
	} else {
		size = uint64(first)
	}

	flags, err := r.ReadByte()
	if err != nil {
		return Message{}, err
	}
	if legacy {
		flags &= legacyFlagMask
	}

	data := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(r, data); err != nil {
			return Message{}, err
		}
	}
	return Message{Flags: flags, Data: data}, nil
}

// Subscription command ids, carried in the current-wire subscription frame.
const (
	CmdSubscribe   uint16 = 1
	CmdUnsubscribe uint16 = 2
)

// EncodeSubscription builds a current-wire (SP >= 3) subscription frame:
// u16 cmd, u16 filter-id, payload.
func EncodeSubscription(cmd uint16, filterID uint16, prefix []byte) Message {
	buf := make([]byte, 4+len(prefix))
	binary.BigEndian.PutUint16(buf[0:2], cmd)
	binary.BigEndian.PutUint16(buf[2:4], filterID)
	copy(buf[4:], prefix)
	return Message{Data: buf}
}

// DecodeSubscription parses a current-wire subscription frame.
func DecodeSubscription(data []byte) (cmd uint16, filterID uint16, prefix []byte, err error) {
	if len(data) < 4 {
		return 0, 0, nil, xserr.EINVAL.Error()
	}
	cmd = binary.BigEndian.Uint16(data[0:2])
	filterID = binary.BigEndian.Uint16(data[2:4])
	prefix = data[4:]
	return cmd, filterID, prefix, nil
}

// EncodeLegacySubscription builds a 0MQ/2.1-compatible inline subscription
// frame: a single frame whose first byte is 1 (subscribe) or 0
// (unsubscribe), followed by the raw prefix.
func EncodeLegacySubscription(subscribe bool, prefix []byte) Message {
	buf := make([]byte, 1+len(prefix))
	if subscribe {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	copy(buf[1:], prefix)
	return Message{Data: buf}
}

// DecodeLegacySubscription parses a legacy inline subscription frame.
func DecodeLegacySubscription(data []byte) (subscribe bool, prefix []byte, err error) {
	if len(data) < 1 {
		return false, nil, xserr.EINVAL.Error()
	}
	return data[0] != 0, data[1:], nil
}
