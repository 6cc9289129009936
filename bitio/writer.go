package bitio

import (
	"io"

	flaccore "github.com/mewkiz/flaccore"
	"github.com/mewkiz/flaccore/internal/crctab"
)

// Writer is a bit-level, MSB-first output writer with matching dual-CRC
// tracking and aligned flushing. It owns no resources beyond its underlying
// io.Writer, which is borrowed for the Writer's lifetime.
type Writer struct {
	w io.Writer

	bitBuffer    uint64 // only the low bitBufferLen bits are valid
	bitBufferLen uint

	byteCount int64
	crc8      uint8
	crc16     uint16

	flushBuf [8]byte
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteInt writes the low n bits of val, MSB-first. n must be in [0,32];
// bits of val above bit n are ignored.
func (w *Writer) WriteInt(n uint, val uint32) error {
	const op = "bitio.Writer.WriteInt"
	if n > 32 {
		return flaccore.Newf(flaccore.InvalidArgument, op, "n=%d exceeds 32", n)
	}
	if n == 0 {
		return nil
	}
	if w.bitBufferLen+n > 64 {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	var v uint64
	if n < 32 {
		v = uint64(val) & (1<<n - 1)
	} else {
		v = uint64(val)
	}
	w.bitBuffer = w.bitBuffer<<n | v
	w.bitBufferLen += n
	return nil
}

// Flush drains whole bytes out of the bit buffer, MSB-first, to the
// underlying writer, updating both CRCs per byte and leaving 0..7 bits
// unflushed.
func (w *Writer) Flush() error {
	const op = "bitio.Writer.Flush"
	n := 0
	for w.bitBufferLen >= 8 {
		w.bitBufferLen -= 8
		w.flushBuf[n] = byte(w.bitBuffer >> w.bitBufferLen)
		n++
		if n == len(w.flushBuf) {
			if err := w.emit(op, w.flushBuf[:n]); err != nil {
				return err
			}
			n = 0
		}
	}
	if n > 0 {
		if err := w.emit(op, w.flushBuf[:n]); err != nil {
			return err
		}
	}
	// Clear bits above bitBufferLen so leftover garbage never leaks into the
	// next flush's shift arithmetic.
	if w.bitBufferLen > 0 {
		w.bitBuffer &= 1<<w.bitBufferLen - 1
	} else {
		w.bitBuffer = 0
	}
	return nil
}

func (w *Writer) emit(op string, data []byte) error {
	if _, err := w.w.Write(data); err != nil {
		return flaccore.Wrap(flaccore.EndOfStream, op, err)
	}
	w.byteCount += int64(len(data))
	w.crc8 = crctab.UpdateCRC8(w.crc8, data)
	w.crc16 = crctab.UpdateCRC16(w.crc16, data)
	return nil
}

// AlignToByte pads the bit buffer with zero bits up to the next byte
// boundary.
func (w *Writer) AlignToByte() error {
	pad := (64 - w.bitBufferLen) % 8
	if pad == 0 {
		return nil
	}
	return w.WriteInt(pad, 0)
}

// ResetCrcs flushes to a byte boundary, then resets both CRC accumulators to
// 0.
func (w *Writer) ResetCrcs() error {
	if err := w.AlignToByte(); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	w.crc8 = 0
	w.crc16 = 0
	return nil
}

// GetCrc8 returns the running CRC-8. The writer must be byte-aligned.
func (w *Writer) GetCrc8() (uint8, error) {
	const op = "bitio.Writer.GetCrc8"
	if w.bitBufferLen%8 != 0 {
		return 0, flaccore.New(flaccore.NotAligned, op, "writer is mid-byte")
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	return w.crc8, nil
}

// GetCrc16 returns the running CRC-16. The writer must be byte-aligned.
func (w *Writer) GetCrc16() (uint16, error) {
	const op = "bitio.Writer.GetCrc16"
	if w.bitBufferLen%8 != 0 {
		return 0, flaccore.New(flaccore.NotAligned, op, "writer is mid-byte")
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	return w.crc16, nil
}

// GetByteCount returns the number of whole bytes emitted, including any
// bytes still pending flush.
func (w *Writer) GetByteCount() int64 {
	return w.byteCount + int64(w.bitBufferLen/8)
}

// Close flushes any pending bytes and closes the underlying writer if it
// implements io.Closer. The writer must be byte-aligned.
func (w *Writer) Close() error {
	const op = "bitio.Writer.Close"
	if w.bitBufferLen%8 != 0 {
		return flaccore.New(flaccore.NotAligned, op, "writer is mid-byte")
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if c, ok := w.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return flaccore.Wrap(flaccore.EndOfStream, op, err)
		}
	}
	return nil
}
