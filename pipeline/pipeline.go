// Package pipeline implements frame reassembly: turning whatever bytes
// arrived on one leg of a conn.Pair into zero or more complete protocol
// frames, running each through the dispatch registry, and flushing the
// (possibly rewritten) result to the other leg in a single write.
//
// This is a direct translation of the reference proxy's process_read: the
// same length-prefix-then-body framing, the same optional zlib layer gated
// by the pair's compression threshold, and the same caching-buffer idiom
// (accumulate every frame produced while draining one readable event, then
// flush once) — adapted from mio's non-blocking poll loop to a goroutine
// that blocks on net.Conn.Read, since the Go runtime's netpoller already
// does the non-blocking multiplexing a hand-rolled WouldBlock loop would
// otherwise exist for (see SPEC_FULL.md §4.5, §4.7).
package pipeline

import (
	"bytes"
	"compress/zlib"
	"io"

	"mcproxy/buffer"
	"mcproxy/conn"
	"mcproxy/dispatch"
	"mcproxy/packet"
	"mcproxy/transform"
	"mcproxy/wire"
)

// Scratch bundles the per-direction working buffers a Pump call needs
// beyond the connection's own persistent read-buffering, so a worker can
// reuse the same allocations across many Pump calls instead of allocating
// fresh buffers on every readable event.
type Scratch struct {
	caching    *buffer.Buffer
	decompress *buffer.Buffer
}

// NewScratch allocates a Scratch with starting capacities matching the
// reference implementation's 2048-byte per-thread buffers.
func NewScratch() *Scratch {
	return &Scratch{
		caching:    buffer.New(2048),
		decompress: buffer.New(2048),
	}
}

// Pump drains whatever is available on from.Conn, reassembles it into
// complete frames against from.ReadBuffering (which also carries over any
// partial frame left by the previous call), runs each frame through reg,
// and flushes the net effect to to.Conn in one write. It returns a non-nil
// error only for unexpected I/O failures; socket EOF and protocol errors are
// reported by setting from.ShouldClose or to.ShouldClose instead, since the
// caller (the worker loop) needs to tear down both legs of the pair either
// way.
func Pump(from, to *conn.Context, reg *dispatch.Registry, scratch *Scratch) error {
	buf := from.ReadBuffering

	if err := fillFromSocket(from, buf); err != nil {
		return err
	}
	if from.ShouldClose() {
		return nil
	}

	scratch.caching.Reset()

	for {
		mark := buf.ReaderIndex()

		length, _, err := wire.ReadVarIntBounded(buf, 3)
		if err == buffer.ErrShortBuffer {
			buf.SetReaderIndex(mark)
			break
		}
		if err != nil {
			// A length prefix that never terminates within 3 bytes is not a
			// recoverable framing error; the reference implementation treats
			// it the same way (read_frame sets should_close on this path).
			from.SetShouldClose(true)
			break
		}
		if buf.Len() < int(length) {
			// Full body not buffered yet; wait for more bytes next call.
			buf.SetReaderIndex(mark)
			break
		}

		frame, err := buf.ReadBytes(int(length))
		if err != nil {
			from.SetShouldClose(true)
			break
		}

		if err := processFrame(from, reg, scratch, length, frame); err != nil {
			from.SetShouldClose(true)
			break
		}
		if from.ShouldClose() {
			break
		}
	}

	buf.Compact()

	if scratch.caching.Len() > 0 {
		flush(to, scratch.caching.Unread())
	}
	return nil
}

// processFrame decodes a single already-length-delimited frame (optional
// compression, then the id VarInt), runs it through the registry, and
// appends whatever the result implies to scratch.caching: the original
// bytes verbatim on Unchanged (or a registry miss, which never decodes at
// all and is handled identically), a freshly re-encoded frame on Modified,
// or nothing on Canceled.
func processFrame(from *conn.Context, reg *dispatch.Registry, scratch *Scratch, length int32, frame []byte) error {
	pair := from.Pair
	threshold := pair.CompressionThreshold()

	body := buffer.NewFromBytes(frame)
	if threshold > 0 {
		realLength, err := wire.ReadVarInt(body)
		if err != nil {
			return err
		}
		if realLength > 0 {
			scratch.decompress.Reset()
			if err := inflate(body.Unread(), scratch.decompress, int(realLength)); err != nil {
				return err
			}
			body = scratch.decompress
		}
	}

	id, err := wire.ReadVarInt(body)
	if err != nil {
		return err
	}

	dir := packet.Outbound
	if from.Inbound {
		dir = packet.Inbound
	}

	result, p := reg.Dispatch(dir, pair.State(), id, body, pair)

	switch result {
	case transform.Canceled:
		// Drop the frame entirely.
	case transform.Modified:
		return reencode(scratch.caching, p, threshold)
	default:
		// Unchanged, including the registry-miss case where p is nil: the
		// frame is forwarded byte for byte, length prefix included.
		wire.WriteVarInt(scratch.caching, length)
		scratch.caching.WriteBytes(frame)
	}
	return nil
}

// reencode rebuilds a Modified packet as id-VarInt + body, applies the
// compression-threshold rule (compress above threshold, else prepend the
// 0-length "uncompressed" sentinel whenever compression is active at all),
// and appends the final length-prefixed frame to caching.
func reencode(caching *buffer.Buffer, p packet.Packet, threshold int32) error {
	body := buffer.New(64)
	wire.WriteVarInt(body, p.ID())
	if err := p.Write(body); err != nil {
		return err
	}
	raw := body.Unread()

	payload := raw
	if threshold > 0 {
		if len(raw) > int(threshold) {
			compressed, err := deflate(raw)
			if err != nil {
				return err
			}
			out := buffer.New(len(compressed) + wire.SizeVarInt(int32(len(raw))))
			wire.WriteVarInt(out, int32(len(raw)))
			out.WriteBytes(compressed)
			payload = out.Unread()
		} else {
			out := buffer.New(len(raw) + 1)
			wire.WriteVarInt(out, 0)
			out.WriteBytes(raw)
			payload = out.Unread()
		}
	}

	wire.WriteVarInt(caching, int32(len(payload)))
	caching.WriteBytes(payload)
	return nil
}

func inflate(compressed []byte, dst *buffer.Buffer, realLength int) error {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return err
	}
	dst.EnsureWritable(realLength)
	n, err := io.ReadFull(r, dst.Writable()[:realLength])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return err
	}
	dst.Advance(n)
	return r.Close()
}

func deflate(p []byte) ([]byte, error) {
	var out bytes.Buffer
	w := zlib.NewWriter(&out)
	if _, err := w.Write(p); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func flush(to *conn.Context, data []byte) {
	_, err := to.Conn.Write(data)
	if err != nil {
		to.SetShouldClose(true)
		to.SetWritable(false)
		return
	}
	to.SetWritable(true)
}

// maxFillIterations bounds how many times fillFromSocket will grow buf and
// read again after a read that exactly filled the available space. Without
// a cap, a frame set whose size happens to land on a buffer-capacity
// boundary on every growth would keep this loop reading (and delay flushing
// anything already reassembled) for as long as the peer keeps the socket
// that busy; capping it forces a flush of whatever is already complete
// every maxFillIterations reads, at the cost of occasionally finishing one
// read short of fully draining an already-queued burst (the next Pump call
// picks up exactly where this one left off, so nothing is lost).
const maxFillIterations = 16

// fillFromSocket drains from.Conn into buf, growing buf and continuing to
// read for as long as each read completely fills the available writable
// space (a signal there is very likely more already queued in the kernel),
// and stopping once a read returns fewer bytes than it was offered or
// maxFillIterations is reached.
//
// This is the translation of get_needed_data's reallocate-and-keep-reading
// loop: the original distinguishes "drained" from "more pending" using
// WouldBlock on a non-blocking socket; since net.Conn.Read blocks until at
// least one byte is ready (or EOF/error), a short read is this
// translation's equivalent signal that the socket had nothing more
// immediately available. Growth must keep looping after each reallocation
// rather than reading only once more — a single extra read after growing
// can itself come back short of a second full buffer's worth of already
// queued data, which would wrongly stop draining with bytes still pending.
func fillFromSocket(ctx *conn.Context, buf *buffer.Buffer) error {
	for i := 0; i < maxFillIterations; i++ {
		writable := buf.Writable()
		if len(writable) == 0 {
			buf.EnsureWritable(buf.Cap())
			writable = buf.Writable()
		}

		n, err := ctx.Conn.Read(writable)
		if n > 0 {
			buf.Advance(n)
		}
		if err != nil {
			ctx.SetShouldClose(true)
			if err == io.EOF {
				return nil
			}
			return err
		}
		if n == 0 {
			ctx.SetShouldClose(true)
			return nil
		}
		if n < len(writable) {
			return nil
		}
		buf.EnsureWritable(buf.Cap())
	}
	return nil
}
