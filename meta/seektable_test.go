package meta

import (
	"testing"

	flaccore "github.com/mewkiz/flaccore"
	"github.com/mewkiz/flaccore/bitio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeekTableRoundTrip(t *testing.T) {
	table := &SeekTable{Points: []SeekPoint{
		{SampleOffset: 0, FileOffset: 0, FrameSamples: 4096},
		{SampleOffset: 4096, FileOffset: 1024, FrameSamples: 4096},
		{SampleOffset: placeholderSampleOffset},
	}}
	require.NoError(t, table.CheckValues())

	buf := &bufSink{}
	w := bitio.NewWriter(buf)
	require.NoError(t, table.Write(w, true))
	require.NoError(t, w.Flush())
	assert.Len(t, buf.data, 4+3*18)

	r := bitio.NewReader(bitio.NewByteSliceSource(buf.data[4:]))
	got, err := ParseSeekTable(r, 3*seekPointLength)
	require.NoError(t, err)
	assert.Equal(t, table.Points, got.Points)
}

func TestSeekTableOrderingViolation(t *testing.T) {
	table := &SeekTable{Points: []SeekPoint{
		{SampleOffset: 4096, FileOffset: 1024, FrameSamples: 4096},
		{SampleOffset: 0, FileOffset: 0, FrameSamples: 4096},
		{SampleOffset: placeholderSampleOffset},
	}}
	requireKind(t, table.CheckValues(), flaccore.InvalidData)
}

func TestSeekTablePlaceholderMustBeSuffix(t *testing.T) {
	table := &SeekTable{Points: []SeekPoint{
		{SampleOffset: placeholderSampleOffset},
		{SampleOffset: 0, FileOffset: 0, FrameSamples: 4096},
	}}
	requireKind(t, table.CheckValues(), flaccore.InvalidData)
}

func TestSeekTableNonDecreasingFileOffset(t *testing.T) {
	table := &SeekTable{Points: []SeekPoint{
		{SampleOffset: 0, FileOffset: 1024, FrameSamples: 4096},
		{SampleOffset: 4096, FileOffset: 512, FrameSamples: 4096},
	}}
	requireKind(t, table.CheckValues(), flaccore.InvalidData)
}

func TestParseSeekTableRejectsPartialLength(t *testing.T) {
	r := bitio.NewReader(bitio.NewByteSliceSource(make([]byte, 20)))
	_, err := ParseSeekTable(r, 20)
	requireKind(t, err, flaccore.InvalidData)
}
