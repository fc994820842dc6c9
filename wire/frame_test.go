package wire_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossroads-io/xscore/wire"
)

func TestEncodeDecodeFrameShortForm(t *testing.T) {
	var buf bytes.Buffer
	m := wire.NewFrame([]byte("payload"), true)
	require.NoError(t, wire.EncodeFrame(&buf, m))

	got, err := wire.DecodeFrame(bufio.NewReader(&buf), false)
	require.NoError(t, err)
	assert.Equal(t, m.Data, got.Data)
	assert.True(t, got.More())
}

func TestEncodeDecodeFrameLongForm(t *testing.T) {
	var buf bytes.Buffer
	data := bytes.Repeat([]byte{0x42}, 300)
	m := wire.NewFrame(data, false)
	require.NoError(t, wire.EncodeFrame(&buf, m))

	// long-form marker byte present
	encoded := buf.Bytes()
	assert.Equal(t, byte(0xff), encoded[0])

	got, err := wire.DecodeFrame(bufio.NewReader(&buf), false)
	require.NoError(t, err)
	assert.Equal(t, data, got.Data)
	assert.False(t, got.More())
}

func TestEncodeDecodeEmptyFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.EncodeFrame(&buf, wire.NewFrame(nil, false)))
	got, err := wire.DecodeFrame(bufio.NewReader(&buf), false)
	require.NoError(t, err)
	assert.Empty(t, got.Data)
}

func TestDecodeFrameLegacyMasksUnusedFlagBits(t *testing.T) {
	var buf bytes.Buffer
	m := wire.Message{Flags: wire.FlagMore | wire.FlagCommand | wire.FlagShared, Data: []byte("x")}
	require.NoError(t, wire.EncodeFrame(&buf, m))

	got, err := wire.DecodeFrame(bufio.NewReader(&buf), true)
	require.NoError(t, err)
	assert.True(t, got.More())
	assert.False(t, got.IsCommand(), "legacy decode must mask the command bit")
	assert.Equal(t, byte(wire.FlagMore), got.Flags)
}

func TestDecodeFrameNonLegacyPreservesAllBits(t *testing.T) {
	var buf bytes.Buffer
	m := wire.Message{Flags: wire.FlagMore | wire.FlagCommand, Data: []byte("x")}
	require.NoError(t, wire.EncodeFrame(&buf, m))

	got, err := wire.DecodeFrame(bufio.NewReader(&buf), false)
	require.NoError(t, err)
	assert.True(t, got.IsCommand())
}

func TestSubscriptionFrameRoundTrip(t *testing.T) {
	m := wire.EncodeSubscription(wire.CmdSubscribe, 1, []byte("topic.a"))
	cmd, fid, prefix, err := wire.DecodeSubscription(m.Data)
	require.NoError(t, err)
	assert.Equal(t, wire.CmdSubscribe, cmd)
	assert.Equal(t, uint16(1), fid)
	assert.Equal(t, []byte("topic.a"), prefix)
}

func TestDecodeSubscriptionTooShort(t *testing.T) {
	_, _, _, err := wire.DecodeSubscription([]byte{0, 1})
	assert.Error(t, err)
}

func TestLegacySubscriptionFrameRoundTrip(t *testing.T) {
	m := wire.EncodeLegacySubscription(true, []byte("abc"))
	subscribe, prefix, err := wire.DecodeLegacySubscription(m.Data)
	require.NoError(t, err)
	assert.True(t, subscribe)
	assert.Equal(t, []byte("abc"), prefix)

	m2 := wire.EncodeLegacySubscription(false, []byte("abc"))
	subscribe2, _, err := wire.DecodeLegacySubscription(m2.Data)
	require.NoError(t, err)
	assert.False(t, subscribe2)
}

func TestDecodeLegacySubscriptionEmpty(t *testing.T) {
	_, _, err := wire.DecodeLegacySubscription(nil)
	assert.Error(t, err)
}
