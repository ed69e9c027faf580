package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := NewPacket(MessageSend, 42, []byte(`{"content":"hi"}`), []byte("chunk"))
	encoded := Encode(p)

	decoded, consumed, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), consumed)
	assert.Equal(t, Magic, decoded.Header.Magic)
	assert.Equal(t, Version, decoded.Header.Version)
	assert.Equal(t, MessageSend, decoded.Header.Type)
	assert.Equal(t, uint64(42), decoded.Header.RequestID)
	assert.True(t, bytes.Equal(p.Meta, decoded.Meta))
	assert.True(t, bytes.Equal(p.Binary, decoded.Binary))
}

func TestDecodeEmptyPayloadsValid(t *testing.T) {
	p := NewPacket(AuthLogin, 1, nil, nil)
	decoded, consumed, err := Decode(Encode(p))
	require.NoError(t, err)
	assert.Equal(t, HeaderSize, consumed)
	assert.Empty(t, decoded.Meta)
	assert.Empty(t, decoded.Binary)
}

func TestDecodeNeedMoreOnPartialFrame(t *testing.T) {
	p := NewPacket(MessageSend, 1, []byte(`{"a":1}`), []byte("payload"))
	full := Encode(p)

	for n := 0; n < len(full); n++ {
		_, _, err := Decode(full[:n])
		assert.ErrorIs(t, err, ErrNeedMore, "prefix of length %d should need more", n)
	}
	_, consumed, err := Decode(full)
	require.NoError(t, err)
	assert.Equal(t, len(full), consumed)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	p := NewPacket(AuthLogin, 1, nil, nil)
	buf := Encode(p)
	buf[0] ^= 0xFF

	_, _, err := Decode(buf)
	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	p := NewPacket(AuthLogin, 1, nil, nil)
	buf := Encode(p)
	buf[5] = 2

	_, _, err := Decode(buf)
	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
}

func TestDecodeAcceptsMaxSizesAndRejectsOneByteOver(t *testing.T) {
	header := make([]byte, HeaderSize)
	copy(header, Encode(NewPacket(MessageSend, 0, nil, nil)))

	setLens := func(metaLen, binLen uint32) []byte {
		buf := append([]byte(nil), header...)
		buf[20] = byte(metaLen >> 24)
		buf[21] = byte(metaLen >> 16)
		buf[22] = byte(metaLen >> 8)
		buf[23] = byte(metaLen)
		buf[24] = byte(binLen >> 24)
		buf[25] = byte(binLen >> 16)
		buf[26] = byte(binLen >> 8)
		buf[27] = byte(binLen)
		return buf
	}

	// Declaring the max meta size without supplying the bytes must
	// still report NeedMore, not Invalid — the cap check happens
	// before the length check.
	_, _, err := Decode(setLens(MaxMetaSize, 0))
	assert.ErrorIs(t, err, ErrNeedMore)

	_, _, err = Decode(setLens(0, MaxBinarySize))
	assert.ErrorIs(t, err, ErrNeedMore)

	_, _, err = Decode(setLens(MaxMetaSize+1, 0))
	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)

	_, _, err = Decode(setLens(0, MaxBinarySize+1))
	require.ErrorAs(t, err, &invalid)
}
