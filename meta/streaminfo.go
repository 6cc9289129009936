package meta

import (
	flaccore "github.com/mewkiz/flaccore"
	"github.com/mewkiz/flaccore/bitio"
	"github.com/mewkiz/flaccore/frame"
)

// payloadLength is the fixed byte length of a STREAMINFO body.
const payloadLength = 34

// StreamInfo is the always-present stream descriptor block.
type StreamInfo struct {
	MinBlockSize uint16
	MaxBlockSize uint16
	MinFrameSize uint32 // 24-bit; 0 means unknown
	MaxFrameSize uint32 // 24-bit; 0 means unknown
	SampleRate   uint32 // 20-bit
	NumChannels  int    // 1..8
	SampleDepth  int    // 4..32
	NumSamples   uint64 // 36-bit; 0 means unknown
	Md5Hash      [16]byte
}

// ParseStreamInfo reads a 34-byte STREAMINFO payload from r, which must be
// byte-aligned. The block header is assumed to have already been consumed.
func ParseStreamInfo(r *bitio.Reader) (*StreamInfo, error) {
	const op = "meta.ParseStreamInfo"
	minBlockSize, err := r.ReadUint(16)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	maxBlockSize, err := r.ReadUint(16)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	minFrameSize, err := r.ReadUint(24)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	maxFrameSize, err := r.ReadUint(24)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	sampleRate, err := r.ReadUint(20)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	numChannelsField, err := r.ReadUint(3)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	sampleDepthField, err := r.ReadUint(5)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	numSamplesHi, err := r.ReadUint(18)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	numSamplesLo, err := r.ReadUint(18)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	var md5Hash [16]byte
	if err := r.ReadFully(md5Hash[:], len(md5Hash)); err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}

	si := &StreamInfo{
		MinBlockSize: uint16(minBlockSize),
		MaxBlockSize: uint16(maxBlockSize),
		MinFrameSize: minFrameSize,
		MaxFrameSize: maxFrameSize,
		SampleRate:   sampleRate,
		NumChannels:  int(numChannelsField) + 1,
		SampleDepth:  int(sampleDepthField) + 1,
		NumSamples:   uint64(numSamplesHi)<<18 | uint64(numSamplesLo),
		Md5Hash:      md5Hash,
	}
	if err := si.CheckValues(); err != nil {
		return nil, flaccore.Wrap(flaccore.InvalidData, op, err)
	}
	return si, nil
}

// CheckValues validates si's field ranges and cross-field invariants.
func (si *StreamInfo) CheckValues() error {
	const op = "meta.StreamInfo.CheckValues"
	if si.MinBlockSize < 16 {
		return flaccore.Newf(flaccore.InvalidData, op, "minBlockSize %d below 16", si.MinBlockSize)
	}
	if si.MaxBlockSize < si.MinBlockSize {
		return flaccore.Newf(flaccore.InvalidData, op, "maxBlockSize %d below minBlockSize %d", si.MaxBlockSize, si.MinBlockSize)
	}
	if si.MinFrameSize != 0 && si.MaxFrameSize != 0 && si.MaxFrameSize < si.MinFrameSize {
		return flaccore.Newf(flaccore.InvalidData, op, "maxFrameSize %d below minFrameSize %d", si.MaxFrameSize, si.MinFrameSize)
	}
	if si.SampleRate == 0 || si.SampleRate > 655350 {
		return flaccore.Newf(flaccore.InvalidData, op, "sample rate %d out of range", si.SampleRate)
	}
	if si.NumChannels < 1 || si.NumChannels > 8 {
		return flaccore.Newf(flaccore.InvalidData, op, "numChannels %d out of range", si.NumChannels)
	}
	if si.SampleDepth < 4 || si.SampleDepth > 32 {
		return flaccore.Newf(flaccore.InvalidData, op, "sampleDepth %d out of range", si.SampleDepth)
	}
	if si.NumSamples >= 1<<36 {
		return flaccore.Newf(flaccore.InvalidData, op, "numSamples %d exceeds 36 bits", si.NumSamples)
	}
	return nil
}

// Write serializes si as a 38-byte metadata block (4-byte header + 34-byte
// payload), failing with InvalidState if CheckValues does not hold.
func (si *StreamInfo) Write(w *bitio.Writer, isLast bool) error {
	const op = "meta.StreamInfo.Write"
	if err := si.CheckValues(); err != nil {
		return &flaccore.Error{Kind: flaccore.InvalidState, Op: op, Err: err}
	}
	header := &BlockHeader{IsLast: isLast, Type: TypeStreamInfo, Length: payloadLength}
	if err := WriteBlockHeader(w, header); err != nil {
		return flaccore.Wrap(flaccore.InvalidState, op, err)
	}
	if err := w.WriteInt(16, uint32(si.MinBlockSize)); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(16, uint32(si.MaxBlockSize)); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(24, si.MinFrameSize); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(24, si.MaxFrameSize); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(20, si.SampleRate); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(3, uint32(si.NumChannels-1)); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(5, uint32(si.SampleDepth-1)); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(18, uint32(si.NumSamples>>18)); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(18, uint32(si.NumSamples&(1<<18-1))); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	for _, b := range si.Md5Hash {
		if err := w.WriteInt(8, uint32(b)); err != nil {
			return flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
	}
	return nil
}

// CheckFrame cross-validates a decoded frame header against si, per the
// stream-level/frame-level consistency rules every frame must satisfy.
func (si *StreamInfo) CheckFrame(fi *frame.Info) error {
	const op = "meta.StreamInfo.CheckFrame"
	if fi.NumChannels != si.NumChannels {
		return flaccore.Newf(flaccore.InvalidData, op, "frame channel count %d disagrees with stream channel count %d", fi.NumChannels, si.NumChannels)
	}
	if fi.SampleRate != frame.Absent && uint32(fi.SampleRate) != si.SampleRate {
		return flaccore.Newf(flaccore.InvalidData, op, "frame sample rate %d disagrees with stream sample rate %d", fi.SampleRate, si.SampleRate)
	}
	if fi.SampleDepth != frame.Absent && fi.SampleDepth != si.SampleDepth {
		return flaccore.Newf(flaccore.InvalidData, op, "frame sample depth %d disagrees with stream sample depth %d", fi.SampleDepth, si.SampleDepth)
	}
	if fi.BlockSize > int(si.MaxBlockSize) {
		return flaccore.Newf(flaccore.InvalidData, op, "frame block size %d exceeds stream max block size %d", fi.BlockSize, si.MaxBlockSize)
	}
	if si.MinFrameSize != 0 && si.MaxFrameSize != 0 && fi.FrameSize != frame.Absent {
		if uint32(fi.FrameSize) < si.MinFrameSize || uint32(fi.FrameSize) > si.MaxFrameSize {
			return flaccore.Newf(flaccore.InvalidData, op, "frame size %d outside stream range [%d,%d]", fi.FrameSize, si.MinFrameSize, si.MaxFrameSize)
		}
	}
	if si.NumSamples != 0 && uint64(fi.BlockSize) > si.NumSamples {
		return flaccore.Newf(flaccore.InvalidData, op, "frame block size %d exceeds stream sample count %d", fi.BlockSize, si.NumSamples)
	}
	return nil
}
