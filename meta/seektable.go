package meta

import (
	flaccore "github.com/mewkiz/flaccore"
	"github.com/mewkiz/flaccore/bitio"
)

const seekPointLength = 18

// placeholderSampleOffset marks a SeekPoint as a placeholder: its FileOffset
// and FrameSamples carry no meaning.
const placeholderSampleOffset = 0xFFFFFFFFFFFFFFFF

// maxSeekPoints is the most points a SeekTable can hold and still fit the
// 24-bit metadata block length field.
const maxSeekPoints = (1<<24 - 1) / seekPointLength

// SeekPoint is one entry of a SEEKTABLE: the sample and byte offset of a
// target frame, and that frame's sample count.
type SeekPoint struct {
	SampleOffset uint64
	FileOffset   uint64
	FrameSamples uint16
}

// IsPlaceholder reports whether p is a placeholder point.
func (p SeekPoint) IsPlaceholder() bool {
	return p.SampleOffset == placeholderSampleOffset
}

// SeekTable is an ordered list of seek points.
type SeekTable struct {
	Points []SeekPoint
}

// ParseSeekTable reads a SEEKTABLE payload of the given byte length from r,
// which must be byte-aligned. Ordering is not enforced here; call
// CheckValues for that.
func ParseSeekTable(r *bitio.Reader, length int) (*SeekTable, error) {
	const op = "meta.ParseSeekTable"
	if length%seekPointLength != 0 {
		return nil, flaccore.Newf(flaccore.InvalidData, op, "seek table length %d not a multiple of %d", length, seekPointLength)
	}
	n := length / seekPointLength
	table := &SeekTable{Points: make([]SeekPoint, n)}
	for i := range table.Points {
		sampleOffset, err := readUint64(r)
		if err != nil {
			return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
		fileOffset, err := readUint64(r)
		if err != nil {
			return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
		frameSamples, err := r.ReadUint(16)
		if err != nil {
			return nil, flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
		table.Points[i] = SeekPoint{
			SampleOffset: sampleOffset,
			FileOffset:   fileOffset,
			FrameSamples: uint16(frameSamples),
		}
	}
	return table, nil
}

func readUint64(r *bitio.Reader) (uint64, error) {
	hi, err := r.ReadUint(32)
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadUint(32)
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

func writeUint64(w *bitio.Writer, v uint64) error {
	if err := w.WriteInt(32, uint32(v>>32)); err != nil {
		return err
	}
	return w.WriteInt(32, uint32(v))
}

// CheckValues validates the ordering invariants: non-placeholder points
// have a strictly increasing SampleOffset and a non-decreasing FileOffset,
// and all placeholders form a suffix.
func (t *SeekTable) CheckValues() error {
	const op = "meta.SeekTable.CheckValues"
	if len(t.Points) > maxSeekPoints {
		return flaccore.Newf(flaccore.InvalidData, op, "%d seek points exceeds the %d-point limit", len(t.Points), maxSeekPoints)
	}
	seenPlaceholder := false
	var prevSample, prevFile uint64
	havePrev := false
	for i, p := range t.Points {
		if p.IsPlaceholder() {
			seenPlaceholder = true
			continue
		}
		if seenPlaceholder {
			return flaccore.Newf(flaccore.InvalidData, op, "non-placeholder point %d follows a placeholder", i)
		}
		if havePrev {
			if p.SampleOffset <= prevSample {
				return flaccore.Newf(flaccore.InvalidData, op, "sample offset %d at point %d is not strictly increasing", p.SampleOffset, i)
			}
			if p.FileOffset < prevFile {
				return flaccore.Newf(flaccore.InvalidData, op, "file offset %d at point %d decreases", p.FileOffset, i)
			}
		}
		prevSample, prevFile = p.SampleOffset, p.FileOffset
		havePrev = true
	}
	return nil
}

// Write serializes t as a metadata block, failing with InvalidState if
// CheckValues does not hold.
func (t *SeekTable) Write(w *bitio.Writer, isLast bool) error {
	const op = "meta.SeekTable.Write"
	if err := t.CheckValues(); err != nil {
		return &flaccore.Error{Kind: flaccore.InvalidState, Op: op, Err: err}
	}
	header := &BlockHeader{IsLast: isLast, Type: TypeSeekTable, Length: len(t.Points) * seekPointLength}
	if err := WriteBlockHeader(w, header); err != nil {
		return flaccore.Wrap(flaccore.InvalidState, op, err)
	}
	for _, p := range t.Points {
		if err := writeUint64(w, p.SampleOffset); err != nil {
			return flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
		if err := writeUint64(w, p.FileOffset); err != nil {
			return flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
		if err := w.WriteInt(16, uint32(p.FrameSamples)); err != nil {
			return flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
	}
	return nil
}
