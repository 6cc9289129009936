package flaccore

import (
	"crypto/md5"
	"testing"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMd5OfSamplesMatchesExternalSerialization(t *testing.T) {
	left := []int32{1, -2, 3, -4}
	right := []int32{100, 200, 300, 400}
	channels := [][]int32{left, right}

	got, err := Md5OfSamples(channels, len(left), 16)
	require.NoError(t, err)

	var want []byte
	for i := range left {
		for _, ch := range channels {
			v := uint32(ch[i])
			want = append(want, byte(v), byte(v>>8))
		}
	}
	assert.Equal(t, md5.Sum(want), got)
}

func TestMd5OfSamplesRejectsBadDepth(t *testing.T) {
	_, err := Md5OfSamples([][]int32{{1}}, 1, 12)
	requireErrKind(t, err, InvalidArgument)

	_, err = Md5OfSamples([][]int32{{1}}, 1, 0)
	requireErrKind(t, err, InvalidArgument)

	_, err = Md5OfSamples([][]int32{{1}}, 1, 40)
	requireErrKind(t, err, InvalidArgument)
}

func TestMd5OfSamplesRejectsShortChannel(t *testing.T) {
	_, err := Md5OfSamples([][]int32{{1, 2}, {1}}, 2, 16)
	requireErrKind(t, err, InvalidArgument)
}

func TestMd5OfBufferDeinterleaves(t *testing.T) {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 44100},
		SourceBitDepth: 16,
		Data:           []int{1, 100, -2, 200, 3, 300},
	}
	got, err := Md5OfBuffer(buf)
	require.NoError(t, err)

	want, err := Md5OfSamples([][]int32{{1, -2, 3}, {100, 200, 300}}, 3, 16)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMd5OfBufferRejectsNil(t *testing.T) {
	_, err := Md5OfBuffer(nil)
	requireErrKind(t, err, InvalidArgument)
}

func requireErrKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.True(t, Is(err, kind))
}
