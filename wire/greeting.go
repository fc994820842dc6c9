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

import "github.com/crossroads-io/xscore/xserr"

// SP patterns, exchanged in the greeting's 5th byte.
const (
	PatternPair     byte = 1
	PatternPubSub   byte = 2
	PatternReqRep   byte = 3
	PatternPipeline byte = 4
	PatternSurvey   byte = 5
)

// SP roles, exchanged in the greeting's 7th byte.
const (
	RolePair            byte = 1
	RolePubSubPub       byte = 1
	RolePubSubSub       byte = 2
	RoleReqRepReq       byte = 1
	RoleReqRepRep       byte = 2
	RolePipelinePush    byte = 1
	RolePipelinePull    byte = 2
	RoleSurveySurveyor  byte = 1
	RoleSurveyRespondent byte = 2
)

// GreetingLength is the fixed size of the SP header.
const GreetingLength = 8

// CurrentVersion is the SP wire-protocol version spoken by this module
// unless the socket's PROTOCOL option selects the legacy (1) wire.
const CurrentVersion byte = 3

// LegacyVersion is the 0MQ/2.1-compatible wire version.
const LegacyVersion byte = 1

// BuildGreeting encodes the 8-byte SP header.
func BuildGreeting(pattern, version, role byte) [GreetingLength]byte {
	var h [GreetingLength]byte
	h[0] = 0
	h[1] = 0
	h[2] = 'S'
	h[3] = 'P'
	h[4] = pattern
	h[5] = version
	h[6] = role
	h[7] = 0
	return h
}

// ParseGreeting validates and decodes an 8-byte SP header.
func ParseGreeting(b []byte) (pattern, version, role byte, err error) {
	if len(b) != GreetingLength || b[0] != 0 || b[1] != 0 || b[2] != 'S' || b[3] != 'P' || b[7] != 0 {
		return 0, 0, 0, xserr.EPROTONOSUPPORT.Error()
	}
	return b[4], b[5], b[6], nil
}

// Compatible reports whether a remote greeting's pattern/role is compatible
// with the locally expected pattern/role pair, per §6's ENOCOMPATPROTO rule.
func Compatible(localPattern, localRole, remotePattern, remoteRole byte) bool {
	if localPattern != remotePattern {
		return false
	}
	switch localPattern {
	case PatternReqRep:
		return (localRole == RoleReqRepReq && remoteRole == RoleReqRepRep) ||
			(localRole == RoleReqRepRep && remoteRole == RoleReqRepReq)
	case PatternPubSub:
		return (localRole == RolePubSubPub && remoteRole == RolePubSubSub) ||
			(localRole == RolePubSubSub && remoteRole == RolePubSubPub)
	case PatternPipeline:
		return (localRole == RolePipelinePush && remoteRole == RolePipelinePull) ||
			(localRole == RolePipelinePull && remoteRole == RolePipelinePush)
	case PatternSurvey:
		return (localRole == RoleSurveySurveyor && remoteRole == RoleSurveyRespondent) ||
			(localRole == RoleSurveyRespondent && remoteRole == RoleSurveySurveyor)
	case PatternPair:
		return remoteRole == RolePair
	default:
		return false
	}
}
