package dispatch_test

import (
	"net"
	"testing"

	"mcproxy/buffer"
	"mcproxy/conn"
	"mcproxy/dispatch"
	"mcproxy/packet"
	"mcproxy/transform"
	"mcproxy/wire"
)

func testPair(t *testing.T) *conn.Pair {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return conn.NewPair(1, a, b)
}

func TestDispatchMissForwardsWithoutDecode(t *testing.T) {
	r := dispatch.New()
	pair := testPair(t)
	body := buffer.New(8)
	result, p := r.Dispatch(packet.Inbound, packet.Handshaking, 0x00, body, pair)
	if result != transform.Unchanged || p != nil {
		t.Fatalf("Dispatch on empty registry = (%v, %v), want (Unchanged, nil)", result, p)
	}
}

func TestRegisterWithoutTransformerIsStillAMiss(t *testing.T) {
	r := dispatch.New()
	pair := testPair(t)
	dispatch.Register(r, &packet.Handshake{})

	body := buffer.New(8)
	wire.WriteVarInt(body, 47)
	wire.WriteString(body, "host")
	wire.WriteUint16(body, 25565)
	wire.WriteVarInt(body, 2)

	result, p := r.Dispatch(packet.Inbound, packet.Handshaking, 0x00, body, pair)
	if result != transform.Unchanged || p != nil {
		t.Fatalf("Dispatch with constructor but no transformer = (%v, %v), want (Unchanged, nil)", result, p)
	}
}

func TestOnPacketDecodesAndRunsTransformer(t *testing.T) {
	r := dispatch.New()
	pair := testPair(t)

	var seenState packet.State
	dispatch.OnPacket(r, &packet.Handshake{}, func(p *packet.Handshake, pair *conn.Pair) transform.Result {
		pair.SetState(packet.State(p.NextState))
		seenState = pair.State()
		return transform.Unchanged
	})

	body := buffer.New(8)
	wire.WriteVarInt(body, 47)
	wire.WriteString(body, "host")
	wire.WriteUint16(body, 25565)
	wire.WriteVarInt(body, 2)

	result, p := r.Dispatch(packet.Inbound, packet.Handshaking, 0x00, body, pair)
	if result != transform.Unchanged {
		t.Fatalf("result = %v, want Unchanged", result)
	}
	hs, ok := p.(*packet.Handshake)
	if !ok || hs.NextState != 2 {
		t.Fatalf("decoded packet = %+v", p)
	}
	if seenState != packet.Login {
		t.Fatalf("pair state after transformer = %v, want Login", seenState)
	}
}

func TestMultipleTransformersFoldAndShortCircuit(t *testing.T) {
	r := dispatch.New()
	pair := testPair(t)

	var ran []string
	dispatch.OnPacket(r, &packet.Ping{}, func(p *packet.Ping, pair *conn.Pair) transform.Result {
		ran = append(ran, "first")
		return transform.Modified
	})
	dispatch.OnPacket(r, &packet.Ping{}, func(p *packet.Ping, pair *conn.Pair) transform.Result {
		ran = append(ran, "second")
		return transform.Canceled
	})
	dispatch.OnPacket(r, &packet.Ping{}, func(p *packet.Ping, pair *conn.Pair) transform.Result {
		ran = append(ran, "third")
		return transform.Modified
	})

	body := buffer.New(8)
	wire.WriteInt64(body, 99)
	result, _ := r.Dispatch(packet.Inbound, packet.Status, 0x01, body, pair)
	if result != transform.Canceled {
		t.Fatalf("result = %v, want Canceled", result)
	}
	if len(ran) != 2 {
		t.Fatalf("ran = %v, want 2 transformers to have run", ran)
	}
}

func TestSealPreventsFurtherRegistration(t *testing.T) {
	r := dispatch.New()
	r.Seal()
	defer func() {
		if recover() == nil {
			t.Fatal("Register after Seal did not panic")
		}
	}()
	dispatch.Register(r, &packet.Handshake{})
}

func TestOutOfRangeStateIsAMissRegardlessOfID(t *testing.T) {
	r := dispatch.New()
	pair := testPair(t)
	dispatch.Register(r, &packet.Handshake{})

	body := buffer.New(8)
	result, p := r.Dispatch(packet.Inbound, packet.State(200), 0x00, body, pair)
	if result != transform.Unchanged || p != nil {
		t.Fatalf("out-of-range state lookup = (%v, %v), want (Unchanged, nil)", result, p)
	}
}
