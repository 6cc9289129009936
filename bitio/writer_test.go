package bitio

import (
	"testing"

	flaccore "github.com/mewkiz/flaccore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterIgnoresBitsAboveN(t *testing.T) {
	buf := &byteSink{}
	w := NewWriter(buf)
	require.NoError(t, w.WriteInt(4, 0xFF)) // only the low 4 bits (0xF) matter
	require.NoError(t, w.WriteInt(4, 0x00))
	require.NoError(t, w.Flush())
	assert.Equal(t, []byte{0xF0}, buf.data)
}

func TestWriterAlignToByte(t *testing.T) {
	buf := &byteSink{}
	w := NewWriter(buf)
	require.NoError(t, w.WriteInt(3, 0b101))
	require.NoError(t, w.AlignToByte())
	require.NoError(t, w.Flush())
	require.Len(t, buf.data, 1)
	assert.Equal(t, byte(0b10100000), buf.data[0])
}

func TestWriterRoundTripWithReader(t *testing.T) {
	buf := &byteSink{}
	w := NewWriter(buf)
	require.NoError(t, w.WriteInt(14, 0x3FFE))
	require.NoError(t, w.WriteInt(18, 123456))
	require.NoError(t, w.AlignToByte())
	require.NoError(t, w.Flush())

	r := NewReader(NewByteSliceSource(buf.data))
	v, err := r.ReadUint(14)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3FFE), v)
	v, err = r.ReadUint(18)
	require.NoError(t, err)
	assert.Equal(t, uint32(123456), v)
}

func TestWriterCrcMatchesReader(t *testing.T) {
	data := []byte{0x4D, 0x6F, 0x6E, 0x6B, 0x65, 0x79}
	buf := &byteSink{}
	w := NewWriter(buf)
	for _, b := range data {
		require.NoError(t, w.WriteInt(8, uint32(b)))
	}
	gotWriter, err := w.GetCrc8()
	require.NoError(t, err)

	r := NewReader(NewByteSliceSource(data))
	require.NoError(t, r.ResetCrcs())
	require.NoError(t, r.ReadFully(make([]byte, len(data)), len(data)))
	gotReader, err := r.GetCrc8()
	require.NoError(t, err)

	assert.Equal(t, gotReader, gotWriter)
	assert.Equal(t, standaloneCrc8(data), gotWriter)
}

func TestWriterGetByteCount(t *testing.T) {
	buf := &byteSink{}
	w := NewWriter(buf)
	require.NoError(t, w.WriteInt(8, 0x01))
	require.NoError(t, w.WriteInt(4, 0x0A))
	assert.Equal(t, int64(1), w.GetByteCount())
	require.NoError(t, w.AlignToByte())
	assert.Equal(t, int64(2), w.GetByteCount())
}

func TestWriterCloseRequiresAlignment(t *testing.T) {
	buf := &byteSink{}
	w := NewWriter(buf)
	require.NoError(t, w.WriteInt(3, 0b101))
	err := w.Close()
	requireKind(t, err, flaccore.NotAligned)
}
