// Package frame implements FLAC frame header parsing and serialization: the
// variable-length UTF-8-style position field, and the lookup tables driving
// the block-size, sample-rate, and sample-depth codes.
package frame

// Sync is the 14-bit sync code every frame header begins with.
const Sync = 0x3FFE

// blockSizeCodes maps a decoded block size to its fixed 4-bit code, for the
// entries that have one. Sizes not present here are only reachable through
// the variable-length codes 6 and 7.
var blockSizeCodes = []struct {
	Value uint32
	Code  uint8
}{
	{192, 1},
	{576, 2},
	{1152, 3},
	{2304, 4},
	{4608, 5},
	{256, 8},
	{512, 9},
	{1024, 10},
	{2048, 11},
	{4096, 12},
	{8192, 13},
	{16384, 14},
	{32768, 15},
}

// blockSizeByCode maps a 4-bit code to the block size it decodes to,
// excluding the variable-length codes 0 (reserved), 6, and 7.
var blockSizeByCode = buildBlockSizeByCode()

func buildBlockSizeByCode() [16]uint32 {
	var m [16]uint32
	for _, e := range blockSizeCodes {
		m[e.Code] = e.Value
	}
	return m
}

// sampleDepthCodes maps a decoded sample depth to its 3-bit code.
var sampleDepthCodes = []struct {
	Value uint8
	Code  uint8
}{
	{8, 1},
	{12, 2},
	{16, 4},
	{20, 5},
	{24, 6},
}

var sampleDepthByCode = buildSampleDepthByCode()

func buildSampleDepthByCode() [8]uint8 {
	var m [8]uint8
	for _, e := range sampleDepthCodes {
		m[e.Code] = e.Value
	}
	return m
}

// sampleRateCodes maps a decoded sample rate in Hz to its 4-bit code.
var sampleRateCodes = []struct {
	Value uint32
	Code  uint8
}{
	{88200, 1},
	{176400, 2},
	{192000, 3},
	{8000, 4},
	{16000, 5},
	{22050, 6},
	{24000, 7},
	{32000, 8},
	{44100, 9},
	{48000, 10},
	{96000, 11},
}

var sampleRateByCode = buildSampleRateByCode()

func buildSampleRateByCode() [16]uint32 {
	var m [16]uint32
	for _, e := range sampleRateCodes {
		m[e.Code] = e.Value
	}
	return m
}

// blockSizeCodeFor returns the fixed table code for a block size, if one
// exists.
func blockSizeCodeFor(v uint32) (uint8, bool) {
	for _, e := range blockSizeCodes {
		if e.Value == v {
			return e.Code, true
		}
	}
	return 0, false
}

// sampleDepthCodeFor returns the table code for a sample depth, if one
// exists.
func sampleDepthCodeFor(v uint8) (uint8, bool) {
	for _, e := range sampleDepthCodes {
		if e.Value == v {
			return e.Code, true
		}
	}
	return 0, false
}

// sampleRateCodeFor returns the fixed table code for a sample rate, if one
// exists.
func sampleRateCodeFor(v uint32) (uint8, bool) {
	for _, e := range sampleRateCodes {
		if e.Value == v {
			return e.Code, true
		}
	}
	return 0, false
}
