// Package dispatch is the protocol registry: a (direction, state, id)
// indexed table mapping each known packet type to a constructor and an
// ordered chain of transformers. A registry miss — no constructor, or a
// constructor with no transformers registered against it — means the
// pipeline forwards the frame verbatim without decoding it, which is the
// proxy's default fast path for every packet type nobody asked to intercept.
package dispatch

import (
	"log"
	"reflect"
	"sync/atomic"

	"mcproxy/buffer"
	"mcproxy/conn"
	"mcproxy/packet"
	"mcproxy/transform"
)

// TransformFunc is a single transformer registered against one concrete
// packet type. It receives the decoded packet (already downcast to its
// concrete type by the generic OnPacket helper) and the connection pair, so
// it can mutate shared state such as Pair.SetState or
// Pair.SetCompressionThreshold.
type TransformFunc[P packet.Packet] func(p P, pair *conn.Pair) transform.Result

type cell struct {
	construct    func() packet.Packet
	transformers []func(p any, pair *conn.Pair) transform.Result
}

// Registry holds the packet-construction and transformer tables for both
// directions, indexed first by protocol state and then by packet id.
type Registry struct {
	sealed   atomic.Bool
	inbound  [packet.NumStates]map[int32]*cell
	outbound [packet.NumStates]map[int32]*cell
}

// New builds an empty registry, ready for Register/OnPacket calls.
func New() *Registry {
	r := &Registry{}
	for i := range r.inbound {
		r.inbound[i] = make(map[int32]*cell)
		r.outbound[i] = make(map[int32]*cell)
	}
	return r
}

// Seal marks the registry read-only. Further Register/OnPacket calls panic.
// cmd/mcproxy seals the registry once after wiring every built-in and
// caller-supplied transformer, so a stray registration from a worker
// goroutine after startup is a programming error, not a racy mutation.
func (r *Registry) Seal() { r.sealed.Store(true) }

func (r *Registry) checkNotSealed() {
	if r.sealed.Load() {
		panic("dispatch: registry is sealed, cannot register after startup")
	}
}

// table returns the per-direction state-indexed table. It does no bounds
// checking of its own; cellFor checks state before indexing it.
func (r *Registry) table(dir packet.Direction) *[packet.NumStates]map[int32]*cell {
	if dir == packet.Inbound {
		return &r.inbound
	}
	return &r.outbound
}

// cellFor looks up (or, with create, installs) the cell for (dir, state, id).
// State is bounds checked against packet.NumStates, and an out-of-range state
// alone is enough to report "no such cell" — independent of whatever id was
// asked for; a negative id is likewise a miss on its own. This is a
// deliberate OR: an earlier draft of this guard required *both* the state and
// the id to be out of range before treating the lookup as a miss, which let
// an out-of-range state on an in-range id silently fall through to a map that
// didn't exist for it. Both axes are checked independently; being out of
// range on either one is already a miss.
func (r *Registry) cellFor(dir packet.Direction, state packet.State, id int32, create bool) *cell {
	if int(state) >= packet.NumStates || id < 0 {
		return nil
	}
	m := r.table(dir)[state]
	c, ok := m[id]
	if !ok {
		if !create {
			return nil
		}
		c = &cell{}
		m[id] = c
	}
	return c
}

// constructorFor builds a zero-value constructor for P via reflection, so
// Register doesn't require P to carry an explicit factory function. P is
// expected to be a pointer to a struct, as every type in the packet package
// is, mirroring the reference implementation's default-construct-then-Read
// pattern (register_packet_supplier called with P::read when no explicit
// supplier was registered yet).
func constructorFor[P packet.Packet]() func() packet.Packet {
	var sample P
	t := reflect.TypeOf(sample)
	if t != nil && t.Kind() == reflect.Ptr {
		elem := t.Elem()
		return func() packet.Packet {
			return reflect.New(elem).Interface().(packet.Packet)
		}
	}
	return func() packet.Packet {
		var p P
		return p
	}
}

// Register installs a default constructor for P, keyed by the (direction,
// state, id) the zero-valued sample reports. It's implicit in OnPacket and
// rarely needs to be called directly. A constructor on its own does not make
// the packet type decodable: until a transformer is added with OnPacket,
// Dispatch still treats the cell as a miss and the frame takes the verbatim
// fast path without being decoded.
func Register[P packet.Packet](r *Registry, sample P) {
	r.checkNotSealed()
	c := r.cellFor(sample.Direction(), sample.State(), sample.ID(), true)
	if c.construct == nil {
		c.construct = constructorFor[P]()
	}
}

// OnPacket registers fn as the next transformer in the chain for P's
// (direction, state, id). It installs a default constructor first if one
// isn't already registered, exactly as the reference implementation's
// register_transformer falls back to P::read.
func OnPacket[P packet.Packet](r *Registry, sample P, fn TransformFunc[P]) {
	r.checkNotSealed()
	c := r.cellFor(sample.Direction(), sample.State(), sample.ID(), true)
	if c.construct == nil {
		c.construct = constructorFor[P]()
	}
	c.transformers = append(c.transformers, func(p any, pair *conn.Pair) transform.Result {
		typed, ok := p.(P)
		if !ok {
			log.Printf("dispatch: downcast failure for state=%s direction=%s id=%d, treating as unchanged",
				sample.State(), sample.Direction(), sample.ID())
			return transform.Unchanged
		}
		return fn(typed, pair)
	})
}

// Dispatch looks up the (direction, state, id) cell, decodes body against
// it if one exists with at least one transformer, and folds the chain's
// results together. A miss — no cell, or a cell with no transformers —
// returns (Unchanged, nil) without ever calling Read, which is what lets
// the pipeline forward an unregistered packet type without paying for a
// decode it has no use for.
func (r *Registry) Dispatch(dir packet.Direction, state packet.State, id int32, body *buffer.Buffer, pair *conn.Pair) (transform.Result, packet.Packet) {
	c := r.cellFor(dir, state, id, false)
	if c == nil || c.construct == nil || len(c.transformers) == 0 {
		return transform.Unchanged, nil
	}

	p := c.construct()
	if err := p.Read(body); err != nil {
		log.Printf("dispatch: decode error state=%s direction=%s id=%d: %v", state, dir, id, err)
		return transform.Unchanged, nil
	}

	funcs := make([]transform.Func, len(c.transformers))
	for i, t := range c.transformers {
		t := t
		funcs[i] = func(x any) transform.Result { return t(x, pair) }
	}
	result := transform.Run(p, funcs)
	return result, p
}
