package frame

import (
	"math/bits"

	flaccore "github.com/mewkiz/flaccore"
	"github.com/mewkiz/flaccore/bitio"
)

// Absent marks a FrameIndex, SampleOffset, SampleRate, SampleDepth, or
// FrameSize field as not present / not yet known.
const Absent = -1

// Info is a decoded FLAC frame header.
type Info struct {
	// Exactly one of FrameIndex (fixed-block-size streams) or SampleOffset
	// (variable-block-size streams) is set; the other is Absent.
	FrameIndex   int64
	SampleOffset int64
	// ChannelAssignment is the raw 4-bit field: 0..7 mean
	// (value+1) independent channels; 8/9/10 are left/side, right/side,
	// mid/side stereo; 11..15 are reserved.
	ChannelAssignment uint8
	// NumChannels is derived from ChannelAssignment.
	NumChannels int
	// BlockSize is the number of samples per channel in this frame, 1..65536.
	BlockSize int
	// SampleRate is Absent (consult StreamInfo) or 1..655350 Hz.
	SampleRate int64
	// SampleDepth is Absent (consult StreamInfo) or 8..24 bits.
	SampleDepth int
	// FrameSize is Absent until known, otherwise the byte count from sync
	// through the trailing CRC-16.
	FrameSize int64
}

// numChannelsFor derives the channel count from a raw channel assignment
// field, failing on the 11..15 reserved range.
func numChannelsFor(ca uint8) (int, error) {
	const op = "frame.numChannelsFor"
	switch {
	case ca <= 7:
		return int(ca) + 1, nil
	case ca <= 10:
		return 2, nil
	default:
		return 0, flaccore.Newf(flaccore.InvalidData, op, "reserved channel assignment %d", ca)
	}
}

// ReadHeader parses one frame header from r. It returns (nil, nil) at a
// clean end of stream (no bytes available where a sync byte was expected).
func ReadHeader(r *bitio.Reader) (*Info, error) {
	const op = "frame.ReadHeader"

	if err := r.ResetCrcs(); err != nil {
		return nil, flaccore.Wrap(flaccore.InvalidData, op, err)
	}

	first, err := r.ReadByte()
	if err != nil {
		return nil, flaccore.Wrap(flaccore.InvalidData, op, err)
	}
	if first == -1 {
		return nil, nil
	}

	rest, err := r.ReadUint(6)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	sync := uint32(first)<<6 | rest
	if sync != Sync {
		return nil, flaccore.Newf(flaccore.InvalidData, op, "invalid sync code; want 0x%04X, got 0x%04X", Sync, sync)
	}

	reserved1, err := r.ReadUint(1)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if reserved1 != 0 {
		return nil, flaccore.New(flaccore.InvalidData, op, "reserved bit must be 0")
	}
	blockStrategy, err := r.ReadUint(1)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	blockSizeCode, err := r.ReadUint(4)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	sampleRateCode, err := r.ReadUint(4)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	channelAssignment, err := r.ReadUint(4)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	numChannels, err := numChannelsFor(uint8(channelAssignment))
	if err != nil {
		return nil, err
	}

	sampleDepthCode, err := r.ReadUint(3)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	sampleDepth := Absent
	if sampleDepthCode != 0 {
		v, ok := sampleDepthValue(uint8(sampleDepthCode))
		if !ok {
			return nil, flaccore.Newf(flaccore.InvalidData, op, "reserved sample depth code %d", sampleDepthCode)
		}
		sampleDepth = int(v)
	}
	reserved2, err := r.ReadUint(1)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if reserved2 != 0 {
		return nil, flaccore.New(flaccore.InvalidData, op, "reserved bit must be 0")
	}

	pos, err := readUTF8Int(r)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.InvalidData, op, err)
	}

	info := &Info{
		FrameIndex:        Absent,
		SampleOffset:      Absent,
		ChannelAssignment: uint8(channelAssignment),
		NumChannels:       numChannels,
		SampleRate:        Absent,
		SampleDepth:       sampleDepth,
		FrameSize:         Absent,
	}
	if blockStrategy == 0 {
		if pos > 1<<31-1 {
			return nil, flaccore.Newf(flaccore.InvalidData, op, "frame index %d exceeds 31 bits", pos)
		}
		info.FrameIndex = int64(pos)
	} else {
		info.SampleOffset = int64(pos)
	}

	blockSize, err := readBlockSize(r, uint8(blockSizeCode))
	if err != nil {
		return nil, flaccore.Wrap(flaccore.InvalidData, op, err)
	}
	info.BlockSize = blockSize

	sampleRate, err := readSampleRate(r, uint8(sampleRateCode))
	if err != nil {
		return nil, flaccore.Wrap(flaccore.InvalidData, op, err)
	}
	info.SampleRate = sampleRate

	wantCRC, err := r.GetCrc8()
	if err != nil {
		return nil, flaccore.Wrap(flaccore.InvalidData, op, err)
	}
	gotCRC, err := r.ReadUint(8)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if uint8(gotCRC) != wantCRC {
		return nil, flaccore.Newf(flaccore.InvalidData, op, "header CRC-8 mismatch; want 0x%02X, got 0x%02X", wantCRC, gotCRC)
	}

	return info, nil
}

// sampleDepthValue reverse-looks-up a 3-bit sample depth code, explicitly
// rejecting the two reserved codes (3, 7) and code 0 (the "unknown, consult
// StreamInfo" sentinel). Code 0 is never a valid table hit: it means the
// frame header itself carries no sample depth, so callers must special-case
// it before reaching this lookup rather than let it silently resolve to a
// zero value.
func sampleDepthValue(code uint8) (uint8, bool) {
	switch code {
	case 0, 3, 7:
		return 0, false
	}
	if int(code) >= len(sampleDepthByCode) {
		return 0, false
	}
	v := sampleDepthByCode[code]
	if v == 0 {
		return 0, false
	}
	return v, true
}

// readBlockSize decodes the block-size field, reading the variable-length
// tail from r when the code calls for one.
func readBlockSize(r *bitio.Reader, code uint8) (int, error) {
	const op = "frame.readBlockSize"
	switch {
	case code == 0:
		return 0, flaccore.New(flaccore.InvalidData, op, "reserved block size code 0")
	case code == 6:
		v, err := r.ReadUint(8)
		if err != nil {
			return 0, flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
		return int(v) + 1, nil
	case code == 7:
		v, err := r.ReadUint(16)
		if err != nil {
			return 0, flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
		return int(v) + 1, nil
	default:
		v := blockSizeByCode[code]
		if v == 0 {
			return 0, flaccore.Newf(flaccore.InvalidData, op, "reserved block size code %d", code)
		}
		return int(v), nil
	}
}

// readSampleRate decodes the sample-rate field, reading the variable-length
// tail from r when the code calls for one. Absent is returned for code 0
// ("consult StreamInfo").
func readSampleRate(r *bitio.Reader, code uint8) (int64, error) {
	const op = "frame.readSampleRate"
	switch code {
	case 0:
		return Absent, nil
	case 12:
		v, err := r.ReadUint(8)
		if err != nil {
			return 0, flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
		return int64(v), nil
	case 13:
		v, err := r.ReadUint(16)
		if err != nil {
			return 0, flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
		return int64(v), nil
	case 14:
		v, err := r.ReadUint(16)
		if err != nil {
			return 0, flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
		return int64(v) * 10, nil
	case 15:
		return 0, flaccore.New(flaccore.InvalidData, op, "invalid sample rate code 15")
	default:
		v := sampleRateByCode[code]
		if v == 0 {
			return 0, flaccore.Newf(flaccore.InvalidData, op, "reserved sample rate code %d", code)
		}
		return int64(v), nil
	}
}

// WriteHeader serializes info to w. Only the variable-block-size form
// (blockStrategy=1, SampleOffset) is ever written, even though ReadHeader
// also accepts the fixed-block-size form (blockStrategy=0, FrameIndex) found
// in streams produced elsewhere.
func WriteHeader(w *bitio.Writer, info *Info) error {
	const op = "frame.WriteHeader"

	if (info.FrameIndex == Absent) == (info.SampleOffset == Absent) {
		return flaccore.New(flaccore.InvalidState, op, "exactly one of FrameIndex or SampleOffset must be present")
	}
	if info.SampleOffset == Absent {
		return flaccore.New(flaccore.InvalidState, op, "WriteHeader requires SampleOffset (variable block size); FrameIndex-only headers cannot be encoded")
	}

	if err := w.ResetCrcs(); err != nil {
		return flaccore.Wrap(flaccore.InvalidState, op, err)
	}

	blockSizeCode, blockSizeTail, tailBits, err := encodeBlockSize(info.BlockSize)
	if err != nil {
		return flaccore.Wrap(flaccore.InvalidState, op, err)
	}
	sampleRateCode, sampleRateTail, rateTailBits, err := encodeSampleRate(info.SampleRate)
	if err != nil {
		return flaccore.Wrap(flaccore.InvalidState, op, err)
	}
	sampleDepthCode := uint32(0)
	if info.SampleDepth != Absent {
		c, ok := sampleDepthCodeFor(uint8(info.SampleDepth))
		if !ok {
			return flaccore.Newf(flaccore.InvalidState, op, "sample depth %d has no code", info.SampleDepth)
		}
		sampleDepthCode = uint32(c)
	}

	if err := w.WriteInt(14, Sync); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(1, 0); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(1, 1); err != nil { // block strategy: always variable
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(4, uint32(blockSizeCode)); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(4, uint32(sampleRateCode)); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(4, uint32(info.ChannelAssignment)); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(3, sampleDepthCode); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(1, 0); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}

	if err := writeUTF8Int(w, uint64(info.SampleOffset)); err != nil {
		return flaccore.Wrap(flaccore.InvalidState, op, err)
	}
	if tailBits > 0 {
		if err := w.WriteInt(tailBits, blockSizeTail); err != nil {
			return flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
	}
	if rateTailBits > 0 {
		if err := w.WriteInt(rateTailBits, sampleRateTail); err != nil {
			return flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
	}

	crc, err := w.GetCrc8()
	if err != nil {
		return flaccore.Wrap(flaccore.InvalidState, op, err)
	}
	if err := w.WriteInt(8, uint32(crc)); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	return nil
}

// encodeBlockSize picks a block-size code for v, preferring a fixed table
// entry and falling back to the 8-bit or 16-bit tail forms.
func encodeBlockSize(v int) (code uint8, tail uint32, tailBits uint, err error) {
	const op = "frame.encodeBlockSize"
	if c, ok := blockSizeCodeFor(uint32(v)); ok {
		return c, 0, 0, nil
	}
	switch {
	case v >= 1 && v <= 256:
		return 6, uint32(v - 1), 8, nil
	case v >= 1 && v <= 65536:
		return 7, uint32(v - 1), 16, nil
	default:
		return 0, 0, 0, flaccore.Newf(flaccore.InvalidState, op, "block size %d out of range", v)
	}
}

// encodeSampleRate picks a sample-rate code for v, preferring a fixed table
// entry and falling back to the tail forms; Absent defers to StreamInfo
// (code 0).
func encodeSampleRate(v int64) (code uint8, tail uint32, tailBits uint, err error) {
	if v == Absent {
		return 0, 0, 0, nil
	}
	if c, ok := sampleRateCodeFor(uint32(v)); ok {
		return c, 0, 0, nil
	}
	switch {
	case v > 0 && v < 256:
		return 12, uint32(v), 8, nil
	case v > 0 && v < 65536:
		return 13, uint32(v), 16, nil
	case v > 0 && v < 655360 && v%10 == 0:
		return 14, uint32(v / 10), 16, nil
	default:
		return 0, 0, 0, nil
	}
}

// readUTF8Int decodes FLAC's "UTF-8" extension coded integer, up to 36 bits
// wide across up to 7 bytes.
func readUTF8Int(r *bitio.Reader) (uint64, error) {
	const op = "frame.readUTF8Int"
	head, err := r.ReadUint(8)
	if err != nil {
		return 0, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	notHead := ^(head << 24)
	n := bits.LeadingZeros32(notHead)
	if n == 0 {
		return uint64(head), nil
	}
	if n == 1 || n == 8 {
		return 0, flaccore.Newf(flaccore.InvalidData, op, "invalid UTF-8 lead byte 0x%02X", head)
	}
	value := uint64(head) & (1<<uint(7-n) - 1)
	for i := 0; i < n-1; i++ {
		b, err := r.ReadUint(8)
		if err != nil {
			return 0, flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
		if b>>6 != 0b10 {
			return 0, flaccore.Newf(flaccore.InvalidData, op, "invalid UTF-8 continuation byte 0x%02X", b)
		}
		value = value<<6 | uint64(b&0x3F)
	}
	if value >= 1<<36 {
		return 0, flaccore.Newf(flaccore.InvalidData, op, "UTF-8 value %d exceeds 36 bits", value)
	}
	return value, nil
}

// writeUTF8Int encodes v, which must fit 36 bits, as FLAC's "UTF-8"
// extension coded integer.
func writeUTF8Int(w *bitio.Writer, v uint64) error {
	const op = "frame.writeUTF8Int"
	if v >= 1<<36 {
		return flaccore.Newf(flaccore.InvalidState, op, "value %d exceeds 36 bits", v)
	}
	bitLen := 64 - bits.LeadingZeros64(v)
	if bitLen <= 7 {
		return w.WriteInt(8, uint32(v))
	}
	n := (bitLen - 2) / 5
	lead := uint32(0xFF80)>>uint(n) | uint32(v>>uint(n*6))
	if err := w.WriteInt(8, lead); err != nil {
		return err
	}
	for i := n - 1; i >= 0; i-- {
		b := 0x80 | uint32(v>>uint(i*6))&0x3F
		if err := w.WriteInt(8, b); err != nil {
			return err
		}
	}
	return nil
}
