// Package conn models one proxied TCP connection pair: the client's leg and
// the backend server's leg that a single accepted connection is spliced
// into. Both legs share protocol state (the current packet.State and the
// active compression threshold) because the Minecraft protocol defines state
// and compression as properties of the logical session, not of either
// socket alone.
package conn

import (
	"bytes"
	"compress/zlib"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"mcproxy/buffer"
	"mcproxy/packet"
	"mcproxy/wire"
)

// ErrPacketTooLarge is returned by SendPacket when the encoded frame would
// need a length prefix wider than 3 VarInt bytes (2_097_151 bytes), which the
// wire format (and every Minecraft client) rejects.
var ErrPacketTooLarge = errors.New("conn: encoded packet exceeds 3-byte VarInt length prefix")

// Context is one half of a Pair: either the client-facing leg (Inbound) or
// the server-facing leg. It owns the live socket and the per-direction
// bookkeeping the pipeline needs between reads: whether the last write fully
// drained, whether the leg should be torn down, and the partial-frame bytes
// left over from the previous read.
type Context struct {
	Conn    net.Conn
	Inbound bool
	Pair    *Pair

	// shouldClose is set once this leg's socket has hit EOF or an
	// unrecoverable error; the worker's pump loop tears down both legs of
	// the pair once either sets it. A pair's two legs are pumped by two separate
	// goroutines (worker.own starts one per direction), and each direction
	// reads both legs' flag to decide whether to keep looping, so this is
	// atomic rather than a plain bool.
	shouldClose atomic.Bool
	// isWritable tracks whether the last flush fully drained the caching
	// buffer. It's an observable flag rather than load-bearing backpressure
	// control, since net.Conn.Write already blocks the calling goroutine
	// until the kernel accepts the bytes (or errors). Set from the opposite
	// direction's goroutine (flush writes to this leg), so it's atomic for
	// the same reason as shouldClose.
	isWritable atomic.Bool

	// ReadBuffering holds bytes read from Conn that didn't yet form a
	// complete frame, carried over to the next read.
	ReadBuffering *buffer.Buffer
	// WriteBuffering holds bytes still pending a write, in case a caller
	// wants to buffer across pump invocations instead of flushing inline.
	WriteBuffering *buffer.Buffer
}

// newContext builds one leg of a pair with freshly allocated scratch buffers.
func newContext(c net.Conn, inbound bool) *Context {
	ctx := &Context{
		Conn:           c,
		Inbound:        inbound,
		ReadBuffering:  buffer.New(2048),
		WriteBuffering: buffer.New(2048),
	}
	ctx.isWritable.Store(true)
	return ctx
}

// ShouldClose reports whether this leg has hit EOF or an unrecoverable
// error and should be torn down.
func (c *Context) ShouldClose() bool { return c.shouldClose.Load() }

// SetShouldClose marks this leg for teardown.
func (c *Context) SetShouldClose(v bool) { c.shouldClose.Store(v) }

// IsWritable reports whether the last flush to this leg fully drained.
func (c *Context) IsWritable() bool { return c.isWritable.Load() }

// SetWritable updates whether the last flush to this leg fully drained.
func (c *Context) SetWritable(v bool) { c.isWritable.Store(v) }

// Other returns this leg's sibling within the same Pair.
func (c *Context) Other() *Context {
	if c.Inbound {
		return c.Pair.Server
	}
	return c.Pair.Client
}

// SendPacket encodes p as a standalone frame (VarInt length, optional
// compression, VarInt id, body) honoring the pair's current compression
// threshold, and writes it directly to this leg's socket. It's meant for
// packets the proxy itself originates (e.g. a Disconnect kick) rather than
// ones relayed from the other leg, which flow through the pipeline package
// instead.
func (c *Context) SendPacket(p packet.Packet) error {
	threshold := c.Pair.CompressionThreshold()

	body := buffer.New(64)
	wire.WriteVarInt(body, p.ID())
	if err := p.Write(body); err != nil {
		return err
	}

	frame := body.Unread()
	if threshold > 0 {
		if len(frame) > int(threshold) {
			compressed, err := deflate(frame)
			if err != nil {
				return err
			}
			out := buffer.New(len(compressed) + wire.SizeVarInt(int32(len(frame))))
			wire.WriteVarInt(out, int32(len(frame)))
			out.WriteBytes(compressed)
			frame = out.Unread()
		} else {
			out := buffer.New(len(frame) + 1)
			wire.WriteVarInt(out, 0)
			out.WriteBytes(frame)
			frame = out.Unread()
		}
	}

	if wire.SizeVarInt(int32(len(frame))) > 3 {
		c.SetShouldClose(true)
		return ErrPacketTooLarge
	}

	out := buffer.New(len(frame) + 3)
	wire.WriteVarInt(out, int32(len(frame)))
	out.WriteBytes(frame)

	_, err := c.Conn.Write(out.Unread())
	if err != nil {
		c.SetShouldClose(true)
	}
	return err
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

// Pair is the shared state between the two legs of one proxied connection:
// the protocol state and compression threshold, which the Minecraft
// protocol requires transition together on both legs (see the Handshake,
// LoginSuccess and SetCompression transformers), guarded by a mutex since Go
// runs each leg's pump loop on its own goroutine instead of the reference
// implementation's single-threaded-per-worker event loop.
type Pair struct {
	ID uint64

	mu                   sync.Mutex
	state                packet.State
	compressionThreshold int32

	Client *Context // the leg facing the Minecraft client
	Server *Context // the leg facing the backend server
}

// NewPair wires up both legs of a freshly accepted connection, sharing the
// same Pair so state and compression transitions apply to both at once.
func NewPair(id uint64, client, server net.Conn) *Pair {
	p := &Pair{ID: id}
	p.Client = newContext(client, true)
	p.Server = newContext(server, false)
	p.Client.Pair = p
	p.Server.Pair = p
	return p
}

// State returns the protocol state currently shared by both legs.
func (p *Pair) State() packet.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState transitions both legs to s. Called by the Handshake and
// LoginSuccess transformers.
func (p *Pair) SetState(s packet.State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// CompressionThreshold returns the threshold currently shared by both legs.
// A value <= 0 means compression is not active.
func (p *Pair) CompressionThreshold() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.compressionThreshold
}

// SetCompressionThreshold installs a new threshold on both legs. Called by
// the SetCompression transformer.
func (p *Pair) SetCompressionThreshold(threshold int32) {
	p.mu.Lock()
	p.compressionThreshold = threshold
	p.mu.Unlock()
}

// Close tears down both legs' sockets. Safe to call more than once.
func (p *Pair) Close() error {
	err1 := p.Client.Conn.Close()
	err2 := p.Server.Conn.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
