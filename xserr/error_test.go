package xserr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossroads-io/xscore/xserr"
)

func TestCodeErrorRoundTrip(t *testing.T) {
	err := xserr.EAGAIN.Error()
	require.Error(t, err)
	assert.Equal(t, xserr.EAGAIN, err.Code())
	assert.True(t, err.Is(xserr.EAGAIN))
	assert.False(t, err.Is(xserr.ETIMEDOUT))
	assert.Equal(t, "resource temporarily unavailable", err.Error())
}

func TestErrorfWrapsParents(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := xserr.ECONNREFUSED.Errorf(cause)
	assert.Equal(t, xserr.ECONNREFUSED, err.Code())
	assert.Contains(t, err.Error(), "connection refused")
	require.Len(t, err.Parents(), 1)
	assert.Equal(t, cause, err.Parents()[0])
}

func TestCodeOfAndIs(t *testing.T) {
	err := xserr.ETERM.Error()
	assert.Equal(t, xserr.ETERM, xserr.CodeOf(err))
	assert.True(t, xserr.Is(err, xserr.ETERM))
	assert.False(t, xserr.Is(err, xserr.EFSM))

	plain := errors.New("boom")
	assert.Equal(t, xserr.Unknown, xserr.CodeOf(plain))
	assert.Equal(t, xserr.Unknown, xserr.CodeOf(nil))
}

func TestUnknownCodeStringFallback(t *testing.T) {
	var c xserr.Code = 9999
	assert.Equal(t, "error code 9999", c.String())
}
