// Package meta implements the FLAC metadata block header codec, and the
// STREAMINFO and SEEKTABLE block bodies.
//
// Other block types (PADDING, APPLICATION, VORBIS_COMMENT, CUESHEET,
// PICTURE) are recognized by header parsing but their bodies are out of
// scope; callers skip them by byte length.
package meta

import (
	flaccore "github.com/mewkiz/flaccore"
	"github.com/mewkiz/flaccore/bitio"
)

// BlockType identifies the body format of a metadata block.
type BlockType uint8

// Metadata block types, per the FLAC format's block header encoding.
const (
	TypeStreamInfo    BlockType = 0
	TypePadding       BlockType = 1
	TypeApplication   BlockType = 2
	TypeSeekTable     BlockType = 3
	TypeVorbisComment BlockType = 4
	TypeCueSheet      BlockType = 5
	TypePicture       BlockType = 6
)

var blockTypeName = map[BlockType]string{
	TypeStreamInfo:    "stream info",
	TypePadding:       "padding",
	TypeApplication:   "application",
	TypeSeekTable:     "seek table",
	TypeVorbisComment: "vorbis comment",
	TypeCueSheet:      "cue sheet",
	TypePicture:       "picture",
}

func (t BlockType) String() string {
	if name, ok := blockTypeName[t]; ok {
		return name
	}
	return "reserved"
}

// maxBlockLength is the largest value the 24-bit length field can hold.
const maxBlockLength = 1<<24 - 1

// BlockHeader precedes every metadata block: a continuation flag, the body
// type, and the body's byte length.
type BlockHeader struct {
	// IsLast reports whether this is the final metadata block before the
	// audio frames begin.
	IsLast bool
	// Type is the raw 7-bit block type field. Values 7..126 are reserved
	// and 127 is invalid (it would collide with a frame sync code); both
	// are rejected during parsing.
	Type BlockType
	// Length is the byte length of the block body that follows the header.
	Length int
}

// ReadBlockHeader parses one metadata block header from r, which must be
// byte-aligned.
func ReadBlockHeader(r *bitio.Reader) (*BlockHeader, error) {
	const op = "meta.ReadBlockHeader"
	isLast, err := r.ReadUint(1)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	rawType, err := r.ReadUint(7)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if rawType == 127 {
		return nil, flaccore.New(flaccore.InvalidData, op, "invalid block type 127")
	}
	if rawType > 6 && rawType < 127 {
		return nil, flaccore.Newf(flaccore.InvalidData, op, "reserved block type %d", rawType)
	}
	length, err := r.ReadUint(24)
	if err != nil {
		return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	return &BlockHeader{
		IsLast: isLast != 0,
		Type:   BlockType(rawType),
		Length: int(length),
	}, nil
}

// WriteBlockHeader serializes h to w, which must be byte-aligned.
func WriteBlockHeader(w *bitio.Writer, h *BlockHeader) error {
	const op = "meta.WriteBlockHeader"
	if h.Length < 0 || h.Length > maxBlockLength {
		return flaccore.Newf(flaccore.InvalidState, op, "block length %d out of range", h.Length)
	}
	last := uint32(0)
	if h.IsLast {
		last = 1
	}
	if err := w.WriteInt(1, last); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(7, uint32(h.Type)); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	if err := w.WriteInt(24, uint32(h.Length)); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	return nil
}
