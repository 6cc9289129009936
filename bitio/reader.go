// Package bitio implements the bit-level, dual-CRC-tracking I/O layer FLAC's
// frame and metadata codecs are built on: Reader for decoding, Writer for
// encoding. Both are sequential state machines over a borrowed ByteSource or
// io.Writer and must not be shared across goroutines.
package bitio

import (
	flaccore "github.com/mewkiz/flaccore"
	"github.com/mewkiz/flaccore/internal/bitmath"
	"github.com/mewkiz/flaccore/internal/crctab"
	"github.com/mewkiz/flaccore/internal/ricetab"
)

const byteBufferCap = 4096

// Reader is a buffered, seek-capable, bit-level reader that tracks byte
// position, bit position, and CRC-8/CRC-16 simultaneously over
// caller-delimited spans. It exclusively owns its byte buffer; the
// underlying ByteSource is borrowed for the Reader's lifetime.
type Reader struct {
	src ByteSource

	byteBuffer         []byte
	byteBufferStartPos int64 // stream position byteBuffer[0] logically sits at
	byteBufferLen      int   // bytes currently loaded; -1 after close/EOF
	byteBufferIndex    int   // next byte to consume into the bit buffer

	bitBuffer    uint64 // low bitBufferLen bits are fresh, unconsumed
	bitBufferLen uint

	crcStartIndex int // offset into byteBuffer where the current CRC span began
	crc8          uint8
	crc16         uint16

	closed bool
}

// NewReader returns a Reader that reads from src.
func NewReader(src ByteSource) *Reader {
	r := &Reader{src: src, byteBuffer: make([]byte, byteBufferCap)}
	r.fillByteBuffer()
	return r
}

// GetLength returns the total byte length of the underlying source. It fails
// with Unsupported if the source does not implement LengthKnower.
func (r *Reader) GetLength() (int64, error) {
	const op = "bitio.Reader.GetLength"
	lk, ok := r.src.(LengthKnower)
	if !ok {
		return 0, flaccore.New(flaccore.Unsupported, op, "byte source does not report a length")
	}
	n, err := lk.Length()
	if err != nil {
		return 0, flaccore.Wrap(flaccore.Unsupported, op, err)
	}
	return n, nil
}

// GetPosition returns the byte offset of the next bit to be read. A
// partially consumed byte counts as unread.
func (r *Reader) GetPosition() int64 {
	unreadBytes := int64((r.bitBufferLen + 7) / 8)
	return r.byteBufferStartPos + int64(r.byteBufferIndex) - unreadBytes
}

// GetBitPosition returns the number of bits already consumed inside the
// current byte, in [0,8).
func (r *Reader) GetBitPosition() uint {
	return (8 - r.bitBufferLen%8) % 8
}

// SeekTo positions the next read at byte pos from the start of the source.
// It invalidates the bit buffer and resets both CRC accumulators. It fails
// with Unsupported if the source does not implement SeekableSource.
func (r *Reader) SeekTo(pos int64) error {
	const op = "bitio.Reader.SeekTo"
	if r.closed {
		return flaccore.New(flaccore.InvalidState, op, "reader is closed")
	}
	ss, ok := r.src.(SeekableSource)
	if !ok {
		return flaccore.New(flaccore.Unsupported, op, "byte source is not seekable")
	}
	if err := ss.SeekTo(pos); err != nil {
		return flaccore.Wrap(flaccore.Unsupported, op, err)
	}
	r.byteBufferStartPos = pos
	r.byteBufferLen = 0
	r.byteBufferIndex = 0
	r.bitBufferLen = 0
	r.bitBuffer = 0
	r.crc8 = 0
	r.crc16 = 0
	r.crcStartIndex = 0
	r.fillByteBuffer()
	return nil
}

// fillByteBuffer refills the byte buffer from the source, updating CRCs over
// whatever remained unconsumed first. It is a no-op once EOF has been
// observed.
func (r *Reader) fillByteBuffer() {
	if r.byteBufferLen < 0 {
		return
	}
	r.updateCrcs()
	r.byteBufferStartPos += int64(r.byteBufferLen)
	n, _ := r.src.ReadInto(r.byteBuffer)
	if n <= 0 {
		r.byteBufferLen = -1
		r.byteBufferIndex = 0
		r.crcStartIndex = 0
		return
	}
	r.byteBufferLen = n
	r.byteBufferIndex = 0
	r.crcStartIndex = 0
}

// updateCrcs folds byteBuffer[crcStartIndex:byteBufferIndex] into the
// running CRC-8 and CRC-16 accumulators and advances crcStartIndex.
func (r *Reader) updateCrcs() {
	if r.byteBufferLen <= 0 || r.crcStartIndex >= r.byteBufferIndex {
		return
	}
	span := r.byteBuffer[r.crcStartIndex:r.byteBufferIndex]
	r.crc8 = crctab.UpdateCRC8(r.crc8, span)
	r.crc16 = crctab.UpdateCRC16(r.crc16, span)
	r.crcStartIndex = r.byteBufferIndex
}

// refillBits pulls one more byte from the byte buffer into the low bits of
// bitBuffer, refilling the byte buffer first if it is exhausted. It reports
// EndOfStream if no more bytes are available.
func (r *Reader) refillBits(op string) error {
	if r.byteBufferIndex >= r.byteBufferLen {
		if r.byteBufferLen < 0 {
			return flaccore.New(flaccore.EndOfStream, op, "source exhausted")
		}
		r.fillByteBuffer()
		if r.byteBufferLen <= 0 {
			return flaccore.New(flaccore.EndOfStream, op, "source exhausted")
		}
	}
	b := r.byteBuffer[r.byteBufferIndex]
	r.byteBufferIndex++
	r.bitBuffer = r.bitBuffer<<8 | uint64(b)
	r.bitBufferLen += 8
	return nil
}

// ReadUint reads and returns an n-bit unsigned integer, MSB-first. n must be
// in [0,32].
func (r *Reader) ReadUint(n uint) (uint32, error) {
	const op = "bitio.Reader.ReadUint"
	if n > 32 {
		return 0, flaccore.Newf(flaccore.InvalidArgument, op, "n=%d exceeds 32", n)
	}
	if n == 0 {
		return 0, nil
	}
	for r.bitBufferLen < n {
		if err := r.refillBits(op); err != nil {
			return 0, err
		}
	}
	shift := r.bitBufferLen - n
	x := r.bitBuffer >> shift
	if n < 32 {
		x &= 1<<n - 1
	}
	r.bitBufferLen -= n
	return uint32(x), nil
}

// ReadSignedInt reads an n-bit field and sign-extends it from n bits to a
// signed 32-bit value.
func (r *Reader) ReadSignedInt(n uint) (int32, error) {
	u, err := r.ReadUint(n)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return bitmath.SignExtend(u, n), nil
}

// ReadByte reads and returns the next byte in [0,255], or -1 at EOF. The
// reader must be at a byte boundary.
func (r *Reader) ReadByte() (int, error) {
	const op = "bitio.Reader.ReadByte"
	if r.GetBitPosition() != 0 {
		return 0, flaccore.New(flaccore.NotAligned, op, "reader is mid-byte")
	}
	u, err := r.ReadUint(8)
	if err != nil {
		if flaccore.Is(err, flaccore.EndOfStream) {
			return -1, nil
		}
		return 0, err
	}
	return int(u), nil
}

// ReadFully fills buf[:n] by reading n bytes at 8 bits each. The reader must
// be at a byte boundary.
func (r *Reader) ReadFully(buf []byte, n int) error {
	const op = "bitio.Reader.ReadFully"
	if r.GetBitPosition() != 0 {
		return flaccore.New(flaccore.NotAligned, op, "reader is mid-byte")
	}
	if n > len(buf) {
		return flaccore.Newf(flaccore.InvalidArgument, op, "n=%d exceeds len(buf)=%d", n, len(buf))
	}
	for i := 0; i < n; i++ {
		u, err := r.ReadUint(8)
		if err != nil {
			return flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
		buf[i] = byte(u)
	}
	return nil
}

// ResetCrcs marks the current position as the start of both CRC spans and
// resets both accumulators to 0. The reader must be at a byte boundary.
func (r *Reader) ResetCrcs() error {
	const op = "bitio.Reader.ResetCrcs"
	if r.GetBitPosition() != 0 {
		return flaccore.New(flaccore.NotAligned, op, "reader is mid-byte")
	}
	r.updateCrcs()
	r.crcStartIndex = r.byteBufferIndex - int(r.bitBufferLen/8)
	r.crc8 = 0
	r.crc16 = 0
	return nil
}

// GetCrc8 returns the CRC-8 over bytes from the last reset (or seek, or
// stream start) up to the current byte position. The reader must be at a
// byte boundary.
func (r *Reader) GetCrc8() (uint8, error) {
	const op = "bitio.Reader.GetCrc8"
	if r.GetBitPosition() != 0 {
		return 0, flaccore.New(flaccore.NotAligned, op, "reader is mid-byte")
	}
	r.flushCrcSpan()
	return r.crc8, nil
}

// GetCrc16 returns the CRC-16 over bytes from the last reset (or seek, or
// stream start) up to the current byte position. The reader must be at a
// byte boundary.
func (r *Reader) GetCrc16() (uint16, error) {
	const op = "bitio.Reader.GetCrc16"
	if r.GetBitPosition() != 0 {
		return 0, flaccore.New(flaccore.NotAligned, op, "reader is mid-byte")
	}
	r.flushCrcSpan()
	return r.crc16, nil
}

// flushCrcSpan folds every byte through the current (byte-aligned) read
// position into the CRC accumulators, excluding bytes still buffered as
// unread bits.
func (r *Reader) flushCrcSpan() {
	unreadBytes := int(r.bitBufferLen / 8)
	end := r.byteBufferIndex - unreadBytes
	if end > r.crcStartIndex {
		span := r.byteBuffer[r.crcStartIndex:end]
		r.crc8 = crctab.UpdateCRC8(r.crc8, span)
		r.crc16 = crctab.UpdateCRC16(r.crc16, span)
		r.crcStartIndex = end
	}
}

// Close invalidates the reader. It is idempotent and safe to call after a
// failure.
func (r *Reader) Close() error {
	r.closed = true
	r.byteBufferLen = -1
	r.bitBufferLen = 0
	return nil
}

// ReadRiceSignedInts decodes Rice-coded signed integers with parameter param
// (in [0,31]) into result[start:end]. A Rice-coded unsigned value is q
// zero-bits followed by a terminating one-bit, followed by a k-bit binary
// remainder; the unsigned value is (q<<k)|r, and the signed value is its
// zig-zag decoding. It fails with ResidualTooLarge if a unary prefix reaches
// 1<<(53-param) before terminating, a conservative guard so the reconstructed
// value fits a signed 53-bit integer for downstream LPC arithmetic.
func (r *Reader) ReadRiceSignedInts(param uint, result []int32, start, end int) error {
	const op = "bitio.Reader.ReadRiceSignedInts"
	if param > 31 {
		return flaccore.Newf(flaccore.InvalidArgument, op, "param=%d exceeds 31", param)
	}
	if start < 0 || end > len(result) || start > end {
		return flaccore.Newf(flaccore.InvalidArgument, op, "invalid range [%d,%d) into result of length %d", start, end, len(result))
	}
	unaryLimit := uint64(1) << (53 - param)
	i := start
	const tableMask = 1<<ricetab.TableBits - 1

	if param <= ricetab.MaxParam {
		tables := ricetab.Get()
		consumed := &tables.Consumed[param]
		value := &tables.Value[param]
		// The chunked fast path is only worth entering when at least 8 bytes
		// remain staged in the byte buffer; otherwise the per-symbol refill
		// below degrades to the same work as the slow path with more
		// bookkeeping.
		for i+4 <= end && r.byteBufferLen >= 0 && r.byteBufferLen-r.byteBufferIndex >= 8 {
			for j := 0; j < 4; j++ {
				for r.bitBufferLen < ricetab.TableBits {
					if err := r.refillBits(op); err != nil {
						return err
					}
				}
				idx := (r.bitBuffer >> (r.bitBufferLen - ricetab.TableBits)) & tableMask
				if n := consumed[idx]; n != 0 {
					result[i+j] = value[idx]
					r.bitBufferLen -= uint(n)
					continue
				}
				// Symbol doesn't fit in TableBits bits; fall back to a
				// bit-at-a-time decode for this one value only.
				if err := r.decodeOneRiceSlow(op, param, unaryLimit, &result[i+j]); err != nil {
					return err
				}
			}
			i += 4
		}
	}

	for i < end {
		if err := r.decodeOneRiceSlow(op, param, unaryLimit, &result[i]); err != nil {
			return err
		}
		i++
	}
	return nil
}

// decodeOneRiceSlow decodes a single Rice-coded value bit by bit.
func (r *Reader) decodeOneRiceSlow(op string, param uint, unaryLimit uint64, out *int32) error {
	var q uint64
	for {
		bit, err := r.ReadUint(1)
		if err != nil {
			return err
		}
		if bit == 1 {
			break
		}
		q++
		if q >= unaryLimit {
			return flaccore.Newf(flaccore.ResidualTooLarge, op, "unary prefix reached limit %d for param %d", unaryLimit, param)
		}
	}
	rem, err := r.ReadUint(param)
	if err != nil {
		return err
	}
	u := q<<param | uint64(rem)
	*out = int32(bitmath.ZigZag(u))
	return nil
}
