package flaccore

import (
	"crypto/md5"

	"github.com/go-audio/audio"
)

// flushSamples caps how many interleaved samples are fed to the running MD5
// digest between flushes, bounding peak allocation for very long streams.
const flushSamples = 2048

// Md5OfSamples computes the MD5 digest FLAC's STREAMINFO block expects: the
// interleaved little-endian PCM samples of a decoded stream. channels holds
// one slice per channel, each numSamples long; depth is the sample size in
// bits and must be a multiple of 8, at most 32.
func Md5OfSamples(channels [][]int32, numSamples int, depth int) ([16]byte, error) {
	const op = "flaccore.Md5OfSamples"
	if depth <= 0 || depth > 32 || depth%8 != 0 {
		return [16]byte{}, Newf(InvalidArgument, op, "sample depth %d is not a positive multiple of 8 no greater than 32", depth)
	}
	for i, ch := range channels {
		if len(ch) < numSamples {
			return [16]byte{}, Newf(InvalidArgument, op, "channel %d has %d samples, want at least %d", i, len(ch), numSamples)
		}
	}
	bytesPerSample := depth / 8
	h := md5.New()
	buf := make([]byte, 0, flushSamples*len(channels)*bytesPerSample)
	for i := 0; i < numSamples; i++ {
		for _, ch := range channels {
			v := uint32(ch[i])
			for b := 0; b < bytesPerSample; b++ {
				buf = append(buf, byte(v>>(8*uint(b))))
			}
		}
		if len(buf) >= flushSamples*len(channels)*bytesPerSample {
			if _, err := h.Write(buf); err != nil {
				return [16]byte{}, Wrap(InvalidData, op, err)
			}
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if _, err := h.Write(buf); err != nil {
			return [16]byte{}, Wrap(InvalidData, op, err)
		}
	}
	var sum [16]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// Md5OfBuffer is a convenience wrapper around Md5OfSamples for callers that
// already hold their decoded samples in a *github.com/go-audio/audio.IntBuffer,
// the common interchange type once a decoder hands audio off for further
// processing (resampling, WAV encoding, playback). The channel count and
// sample depth are derived from buf.Format and buf.SourceBitDepth.
func Md5OfBuffer(buf *audio.IntBuffer) ([16]byte, error) {
	const op = "flaccore.Md5OfBuffer"
	if buf == nil || buf.Format == nil {
		return [16]byte{}, New(InvalidArgument, op, "nil buffer or format")
	}
	numChannels := buf.Format.NumChannels
	if numChannels <= 0 {
		return [16]byte{}, Newf(InvalidArgument, op, "invalid channel count %d", numChannels)
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = 16
	}
	if len(buf.Data)%numChannels != 0 {
		return [16]byte{}, Newf(InvalidArgument, op, "sample count %d is not a multiple of channel count %d", len(buf.Data), numChannels)
	}
	numSamples := len(buf.Data) / numChannels
	channels := make([][]int32, numChannels)
	for c := range channels {
		channels[c] = make([]int32, numSamples)
	}
	for i, v := range buf.Data {
		channels[i%numChannels][i/numChannels] = int32(v)
	}
	return Md5OfSamples(channels, numSamples, depth)
}
