package bitio

import (
	"errors"
	"testing"

	flaccore "github.com/mewkiz/flaccore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireKind(t *testing.T, err error, kind flaccore.Kind) {
	t.Helper()
	require.Error(t, err)
	require.True(t, flaccore.Is(err, kind), "got %v, want kind %v", err, kind)
}

func TestReaderReadUintBoundary(t *testing.T) {
	r := NewReader(NewByteSliceSource([]byte{0xFF, 0x00, 0xAB, 0xCD, 0xEF}))

	v, err := r.ReadUint(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v)

	v, err = r.ReadUint(8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFF), v)

	v, err = r.ReadUint(32)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00ABCDEF), v)
}

func TestReaderBitBytePositionLaw(t *testing.T) {
	data := []byte{0x12, 0x34, 0x56, 0x78, 0x9A}
	r := NewReader(NewByteSliceSource(data))
	total := uint(0)
	for _, n := range []uint{3, 5, 8, 1, 7, 8, 8} {
		_, err := r.ReadUint(n)
		require.NoError(t, err)
		total += n
		got := uint(r.GetPosition())*8 + r.GetBitPosition()
		assert.Equal(t, total, got)
	}
}

func TestReaderReadByteAlignment(t *testing.T) {
	r := NewReader(NewByteSliceSource([]byte{0xAB}))
	_, err := r.ReadUint(4)
	require.NoError(t, err)

	_, err = r.ReadByte()
	requireKind(t, err, flaccore.NotAligned)
}

func TestReaderReadByteEOF(t *testing.T) {
	r := NewReader(NewByteSliceSource([]byte{0x42}))
	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, 0x42, b)

	b, err = r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, -1, b)
}

func TestReaderCrcResetAndGet(t *testing.T) {
	data := []byte{0x4D, 0x6F, 0x6E, 0x6B, 0x65, 0x79}
	r := NewReader(NewByteSliceSource(data))
	require.NoError(t, r.ResetCrcs())
	require.NoError(t, r.ReadFully(make([]byte, len(data)), len(data)))

	got8, err := r.GetCrc8()
	require.NoError(t, err)
	got16, err := r.GetCrc16()
	require.NoError(t, err)

	assert.Equal(t, standaloneCrc8(data), got8)
	assert.Equal(t, standaloneCrc16(data), got16)
}

func TestReaderSeekTo(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	r := NewReader(NewByteSliceSource(data))
	require.NoError(t, r.SeekTo(3))
	v, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, 0x04, v)
}

func TestReaderSeekUnsupported(t *testing.T) {
	r := NewReader(&readOnlySource{data: []byte{1, 2, 3}})
	err := r.SeekTo(0)
	requireKind(t, err, flaccore.Unsupported)
}

func TestReaderRiceFastSlowAgreement(t *testing.T) {
	// Encode a run of known Rice values with param=4 long enough to drive
	// both the >=4-symbol fast path and the slow-path tail, then decode
	// and require the bitstream round trips exactly.
	const param = 4
	values := []int32{0, 1, -1, 2, -2, 31, -16, 100, -100, 0, 5, -5, 7, -7, 9, -9, 3, -3}

	buf := &byteSink{}
	w := NewWriter(buf)
	for _, v := range values {
		writeRiceSigned(t, w, param, v)
	}
	require.NoError(t, w.AlignToByte())
	require.NoError(t, w.Flush())

	r := NewReader(NewByteSliceSource(buf.data))
	got := make([]int32, len(values))
	require.NoError(t, r.ReadRiceSignedInts(param, got, 0, len(got)))
	assert.Equal(t, values, got)
}

func TestReaderRiceSlowPathOnly(t *testing.T) {
	// Fewer than 4 symbols never enters the chunked fast path.
	const param = 3
	values := []int32{2, -1, 0}

	buf := &byteSink{}
	w := NewWriter(buf)
	for _, v := range values {
		writeRiceSigned(t, w, param, v)
	}
	require.NoError(t, w.AlignToByte())
	require.NoError(t, w.Flush())

	r := NewReader(NewByteSliceSource(buf.data))
	got := make([]int32, len(values))
	require.NoError(t, r.ReadRiceSignedInts(param, got, 0, len(got)))
	assert.Equal(t, values, got)
}

func TestReaderRiceResidualTooLarge(t *testing.T) {
	// All-zero bytes never terminate the unary prefix. The limit is
	// 1<<(53-param), so with param=31 it is 1<<22 zero bits; exactly that
	// many zero bits are supplied and ResidualTooLarge must surface.
	data := make([]byte, 1<<22/8)
	r := NewReader(NewByteSliceSource(data))
	out := make([]int32, 1)
	err := r.ReadRiceSignedInts(31, out, 0, 1)
	requireKind(t, err, flaccore.ResidualTooLarge)
}

// --- test helpers ---

var errStubEOF = errors.New("stub: exhausted")

type readOnlySource struct {
	data []byte
	pos  int
}

func (s *readOnlySource) ReadInto(p []byte) (int, error) {
	if s.pos >= len(s.data) {
		return 0, errStubEOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += n
	return n, nil
}

type byteSink struct {
	data []byte
}

func (w *byteSink) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

// writeRiceSigned writes v's Rice code with parameter param directly, bit
// by bit, independent of any decoder logic under test.
func writeRiceSigned(t *testing.T, w *Writer, param uint, v int32) {
	t.Helper()
	var u uint64
	if v < 0 {
		u = uint64(-int64(v))*2 - 1
	} else {
		u = uint64(v) * 2
	}
	q := u >> param
	rem := uint32(u & (1<<param - 1))
	for i := uint64(0); i < q; i++ {
		require.NoError(t, w.WriteInt(1, 0))
	}
	require.NoError(t, w.WriteInt(1, 1))
	require.NoError(t, w.WriteInt(param, rem))
}

func standaloneCrc8(data []byte) uint8 {
	var crc uint8
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func standaloneCrc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x8005
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
