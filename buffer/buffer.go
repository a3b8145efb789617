// Package buffer implements the indexed byte container shared by every other
// layer of the proxy: the wire codec reads and writes through it, connection
// contexts use it for their read/write buffering, and the framing pipeline
// uses it as per-event scratch space.
//
// A Buffer holds a growable byte slice with two independent cursors, r and w,
// such that 0 <= r <= w <= len(buf). Reads consume bytes at r; writes append
// at w. Reads past w are errors; writes beyond the current capacity grow the
// backing slice.
package buffer

import "errors"

// ErrShortBuffer is returned when a read would need to consume bytes past the
// writer cursor, i.e. the buffer does not yet hold a full frame or field.
var ErrShortBuffer = errors.New("buffer: short buffer")

// Buffer is an indexed byte container with independent reader and writer
// cursors. The zero value is not usable; use New.
type Buffer struct {
	buf []byte
	r   int
	w   int
}

// New returns a Buffer with the given initial capacity.
func New(initialCap int) *Buffer {
	if initialCap < 0 {
		initialCap = 0
	}
	return &Buffer{buf: make([]byte, initialCap)}
}

// NewFromBytes wraps an existing slice as a full, readable buffer (r=0, w=len(b)).
func NewFromBytes(b []byte) *Buffer {
	return &Buffer{buf: b, r: 0, w: len(b)}
}

// Len returns the number of unread bytes (w - r).
func (b *Buffer) Len() int { return b.w - b.r }

// Cap returns the capacity of the backing slice.
func (b *Buffer) Cap() int { return len(b.buf) }

// ReaderIndex returns the current read cursor.
func (b *Buffer) ReaderIndex() int { return b.r }

// WriterIndex returns the current write cursor.
func (b *Buffer) WriterIndex() int { return b.w }

// SetReaderIndex repositions the read cursor. Callers are responsible for
// keeping it within [0, WriterIndex()].
func (b *Buffer) SetReaderIndex(r int) { b.r = r }

// SetWriterIndex repositions the write cursor. Callers are responsible for
// keeping it within [ReaderIndex(), Cap()].
func (b *Buffer) SetWriterIndex(w int) { b.w = w }

// Reset clears both cursors without releasing the backing slice.
func (b *Buffer) Reset() {
	b.r = 0
	b.w = 0
}

// Unread returns a slice view of the unread region [r, w). The slice aliases
// the buffer's backing array and is invalidated by the next grow.
func (b *Buffer) Unread() []byte { return b.buf[b.r:b.w] }

// Writable returns a slice view of the spare capacity [w, cap). Callers that
// write directly into this slice must call Advance with the number of bytes
// written.
func (b *Buffer) Writable() []byte { return b.buf[b.w:] }

// Advance moves the write cursor forward by n, as if n bytes had been written
// into the slice previously returned by Writable.
func (b *Buffer) Advance(n int) { b.w += n }

// Discard moves the read cursor forward by n, as if n bytes had been consumed.
func (b *Buffer) Discard(n int) { b.r += n }

// EnsureWritable grows the backing slice, if necessary, so that at least n
// bytes of spare capacity are available after the write cursor. Growth is
// geometric (doubling, with a floor of n) to amortize repeated small grows.
func (b *Buffer) EnsureWritable(n int) {
	if len(b.buf)-b.w >= n {
		return
	}
	need := b.w + n
	newCap := len(b.buf)
	if newCap == 0 {
		newCap = 256
	}
	for newCap < need {
		newCap *= 2
	}
	grown := make([]byte, newCap)
	copy(grown, b.buf[:b.w])
	b.buf = grown
}

// WriteBytes appends p at the write cursor, growing as needed.
func (b *Buffer) WriteBytes(p []byte) {
	b.EnsureWritable(len(p))
	copy(b.buf[b.w:], p)
	b.w += len(p)
}

// WriteByte appends a single byte at the write cursor, growing as needed.
func (b *Buffer) WriteByte(c byte) error {
	b.EnsureWritable(1)
	b.buf[b.w] = c
	b.w++
	return nil
}

// ReadBytes returns a slice view of the next n unread bytes and advances the
// read cursor past them. The returned slice aliases the backing array.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if b.r+n > b.w {
		return nil, ErrShortBuffer
	}
	p := b.buf[b.r : b.r+n]
	b.r += n
	return p, nil
}

// Peek returns a slice view of the next n unread bytes without advancing the
// read cursor.
func (b *Buffer) Peek(n int) ([]byte, error) {
	if b.r+n > b.w {
		return nil, ErrShortBuffer
	}
	return b.buf[b.r : b.r+n], nil
}

// ReadByte consumes and returns the next unread byte.
func (b *Buffer) ReadByte() (byte, error) {
	if b.r >= b.w {
		return 0, ErrShortBuffer
	}
	c := b.buf[b.r]
	b.r++
	return c, nil
}

// Compact moves the unread region [r, w) to the front of the backing slice
// (r=0, w=len(unread)), discarding already-consumed bytes. This is used to
// fold a partial trailing frame back into scratch space before the next
// socket read, matching the "move buffered partial frame back" step of the
// framing pipeline.
func (b *Buffer) Compact() {
	n := copy(b.buf, b.buf[b.r:b.w])
	b.r = 0
	b.w = n
}
