package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossroads-io/xscore/socket"
)

func TestKindFromStringCoversEveryPattern(t *testing.T) {
	cases := map[string]socket.Kind{
		"xreq":        socket.KindXREQ,
		"req":         socket.KindREQ,
		"xrep":        socket.KindXREP,
		"rep":         socket.KindREP,
		"xpub":        socket.KindXPUB,
		"pub":         socket.KindPUB,
		"xsub":        socket.KindXSUB,
		"sub":         socket.KindSUB,
		"push":        socket.KindPUSH,
		"pull":        socket.KindPULL,
		"xsurveyor":   socket.KindXSURVEYOR,
		"surveyor":    socket.KindSURVEYOR,
		"xrespondent": socket.KindXRESPONDENT,
		"respondent":  socket.KindRESPONDENT,
	}
	for s, want := range cases {
		got, err := kindFromString(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}
}

func TestKindFromStringUnknownReturnsError(t *testing.T) {
	_, err := kindFromString("bogus")
	assert.Error(t, err)
}

func TestRewriteSchemeReplacesOnlyScheme(t *testing.T) {
	assert.Equal(t, "tcp+tls://host:5555", rewriteScheme("tcp://host:5555", "tcp+tls"))
	assert.Equal(t, "tcp+tls://1.2.3.4:9", rewriteScheme("udp://1.2.3.4:9", "tcp+tls"))
}

func TestRewriteSchemeLeavesMalformedEndpointUnchanged(t *testing.T) {
	assert.Equal(t, "not-an-endpoint", rewriteScheme("not-an-endpoint", "tcp+tls"))
}

func TestBuildTLSConfigNoFlagsReturnsNil(t *testing.T) {
	flagTLSCert, flagTLSKey = "", ""
	cfg, err := buildTLSConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestBuildTLSConfigMissingFileReturnsError(t *testing.T) {
	flagTLSCert, flagTLSKey = "/nonexistent-cert.pem", "/nonexistent-key.pem"
	defer func() { flagTLSCert, flagTLSKey = "", "" }()
	_, err := buildTLSConfig()
	assert.Error(t, err)
}
