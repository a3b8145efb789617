package packet

import (
	"mcproxy/buffer"
	"mcproxy/wire"
)

// Handshake is the packet that starts every connection and selects the next
// protocol state. Registering its mandatory transformer (see dispatch and
// cmd/mcproxy) is how the proxy tracks state transitions at all.
type Handshake struct {
	ProtocolVersion int32
	Address         string
	Port            uint16
	NextState       int32
}

func (p *Handshake) ID() int32            { return 0x00 }
func (p *Handshake) State() State         { return Handshaking }
func (p *Handshake) Direction() Direction { return Inbound }
func (p *Handshake) Unwrap() any          { return p }

func (p *Handshake) Read(src *buffer.Buffer) error {
	var err error
	if p.ProtocolVersion, err = wire.ReadVarInt(src); err != nil {
		return err
	}
	if p.Address, err = wire.ReadString(src); err != nil {
		return err
	}
	if p.Port, err = wire.ReadUint16(src); err != nil {
		return err
	}
	if p.NextState, err = wire.ReadVarInt(src); err != nil {
		return err
	}
	return nil
}

func (p *Handshake) Write(dst *buffer.Buffer) error {
	wire.WriteVarInt(dst, p.ProtocolVersion)
	wire.WriteString(dst, p.Address)
	wire.WriteUint16(dst, p.Port)
	wire.WriteVarInt(dst, p.NextState)
	return nil
}

// LoginStart begins the login sequence.
type LoginStart struct {
	Username string
}

func (p *LoginStart) ID() int32            { return 0x00 }
func (p *LoginStart) State() State         { return Login }
func (p *LoginStart) Direction() Direction { return Inbound }
func (p *LoginStart) Unwrap() any          { return p }

func (p *LoginStart) Read(src *buffer.Buffer) error {
	var err error
	p.Username, err = wire.ReadString(src)
	return err
}

func (p *LoginStart) Write(dst *buffer.Buffer) error {
	wire.WriteString(dst, p.Username)
	return nil
}

// EncryptionRequest is sent by the server to begin the (unimplemented,
// TODO-stubbed per spec.md §9) encryption handshake.
type EncryptionRequest struct {
	ServerID    string
	PublicKey   []byte
	VerifyToken []byte
}

func (p *EncryptionRequest) ID() int32            { return 0x01 }
func (p *EncryptionRequest) State() State         { return Login }
func (p *EncryptionRequest) Direction() Direction { return Outbound }
func (p *EncryptionRequest) Unwrap() any          { return p }

func (p *EncryptionRequest) Read(src *buffer.Buffer) error {
	var err error
	if p.ServerID, err = wire.ReadString(src); err != nil {
		return err
	}
	if p.PublicKey, err = wire.ReadByteArray(src); err != nil {
		return err
	}
	p.VerifyToken, err = wire.ReadByteArray(src)
	return err
}

func (p *EncryptionRequest) Write(dst *buffer.Buffer) error {
	wire.WriteString(dst, p.ServerID)
	wire.WriteByteArray(dst, p.PublicKey)
	wire.WriteByteArray(dst, p.VerifyToken)
	return nil
}

// EncryptionResponse answers an EncryptionRequest.
type EncryptionResponse struct {
	SharedSecret []byte
	VerifyToken  []byte
}

func (p *EncryptionResponse) ID() int32            { return 0x01 }
func (p *EncryptionResponse) State() State         { return Login }
func (p *EncryptionResponse) Direction() Direction { return Inbound }
func (p *EncryptionResponse) Unwrap() any          { return p }

func (p *EncryptionResponse) Read(src *buffer.Buffer) error {
	var err error
	if p.SharedSecret, err = wire.ReadByteArray(src); err != nil {
		return err
	}
	p.VerifyToken, err = wire.ReadByteArray(src)
	return err
}

func (p *EncryptionResponse) Write(dst *buffer.Buffer) error {
	wire.WriteByteArray(dst, p.SharedSecret)
	wire.WriteByteArray(dst, p.VerifyToken)
	return nil
}

// LoginSuccess is the packet whose arrival moves both halves of a pair to the
// Play state (see the mandatory transformer in cmd/mcproxy).
type LoginSuccess struct {
	UUID     wire.UUID
	Username string
}

func (p *LoginSuccess) ID() int32            { return 0x02 }
func (p *LoginSuccess) State() State         { return Login }
func (p *LoginSuccess) Direction() Direction { return Outbound }
func (p *LoginSuccess) Unwrap() any          { return p }

func (p *LoginSuccess) Read(src *buffer.Buffer) error {
	var err error
	if p.UUID, err = wire.ReadUUID(src); err != nil {
		return err
	}
	p.Username, err = wire.ReadString(src)
	return err
}

func (p *LoginSuccess) Write(dst *buffer.Buffer) error {
	wire.WriteUUID(dst, p.UUID)
	wire.WriteString(dst, p.Username)
	return nil
}

// SetCompression is the packet whose arrival installs a compression
// threshold on both halves of a pair (see the mandatory transformer in
// cmd/mcproxy).
type SetCompression struct {
	Threshold int32
}

func (p *SetCompression) ID() int32            { return 0x03 }
func (p *SetCompression) State() State         { return Login }
func (p *SetCompression) Direction() Direction { return Outbound }
func (p *SetCompression) Unwrap() any          { return p }

func (p *SetCompression) Read(src *buffer.Buffer) error {
	var err error
	p.Threshold, err = wire.ReadVarInt(src)
	return err
}

func (p *SetCompression) Write(dst *buffer.Buffer) error {
	wire.WriteVarInt(dst, p.Threshold)
	return nil
}

// LoginPluginRequest lets the server ask for custom login-time data.
type LoginPluginRequest struct {
	MessageID int32
	Channel   string
	Data      []byte
}

func (p *LoginPluginRequest) ID() int32            { return 0x04 }
func (p *LoginPluginRequest) State() State         { return Login }
func (p *LoginPluginRequest) Direction() Direction { return Outbound }
func (p *LoginPluginRequest) Unwrap() any          { return p }

func (p *LoginPluginRequest) Read(src *buffer.Buffer) error {
	var err error
	if p.MessageID, err = wire.ReadVarInt(src); err != nil {
		return err
	}
	if p.Channel, err = wire.ReadString(src); err != nil {
		return err
	}
	p.Data = wire.ReadRest(src)
	return nil
}

func (p *LoginPluginRequest) Write(dst *buffer.Buffer) error {
	wire.WriteVarInt(dst, p.MessageID)
	wire.WriteString(dst, p.Channel)
	dst.WriteBytes(p.Data)
	return nil
}

// LoginPluginResponse answers a LoginPluginRequest.
type LoginPluginResponse struct {
	MessageID  int32
	Successful bool
	Data       []byte
}

func (p *LoginPluginResponse) ID() int32            { return 0x02 }
func (p *LoginPluginResponse) State() State         { return Login }
func (p *LoginPluginResponse) Direction() Direction { return Inbound }
func (p *LoginPluginResponse) Unwrap() any          { return p }

func (p *LoginPluginResponse) Read(src *buffer.Buffer) error {
	var err error
	if p.MessageID, err = wire.ReadVarInt(src); err != nil {
		return err
	}
	if p.Successful, err = wire.ReadBool(src); err != nil {
		return err
	}
	if p.Successful {
		p.Data = wire.ReadRest(src)
	}
	return nil
}

func (p *LoginPluginResponse) Write(dst *buffer.Buffer) error {
	wire.WriteVarInt(dst, p.MessageID)
	wire.WriteBool(dst, p.Successful)
	if p.Successful {
		dst.WriteBytes(p.Data)
	}
	return nil
}

// Disconnect terminates a session with a reason, before Play is reached.
type Disconnect struct {
	Reason string
}

func (p *Disconnect) ID() int32            { return 0x00 }
func (p *Disconnect) State() State         { return Login }
func (p *Disconnect) Direction() Direction { return Outbound }
func (p *Disconnect) Unwrap() any          { return p }

func (p *Disconnect) Read(src *buffer.Buffer) error {
	var err error
	p.Reason, err = wire.ReadString(src)
	return err
}

func (p *Disconnect) Write(dst *buffer.Buffer) error {
	wire.WriteString(dst, p.Reason)
	return nil
}

// StatusRequest asks the server for its status page payload.
type StatusRequest struct{}

func (p *StatusRequest) ID() int32                      { return 0x00 }
func (p *StatusRequest) State() State                   { return Status }
func (p *StatusRequest) Direction() Direction           { return Inbound }
func (p *StatusRequest) Unwrap() any                    { return p }
func (p *StatusRequest) Read(src *buffer.Buffer) error  { return nil }
func (p *StatusRequest) Write(dst *buffer.Buffer) error { return nil }

// StatusResponse carries the server's status page payload as JSON text.
type StatusResponse struct {
	JSON string
}

func (p *StatusResponse) ID() int32            { return 0x00 }
func (p *StatusResponse) State() State         { return Status }
func (p *StatusResponse) Direction() Direction { return Outbound }
func (p *StatusResponse) Unwrap() any          { return p }

func (p *StatusResponse) Read(src *buffer.Buffer) error {
	var err error
	p.JSON, err = wire.ReadString(src)
	return err
}

func (p *StatusResponse) Write(dst *buffer.Buffer) error {
	wire.WriteString(dst, p.JSON)
	return nil
}

// Ping is the client's keep-alive probe during Status (spec.md §8 scenario 6
// cancels this packet type to demonstrate the Canceled result).
type Ping struct {
	Payload int64
}

func (p *Ping) ID() int32            { return 0x01 }
func (p *Ping) State() State         { return Status }
func (p *Ping) Direction() Direction { return Inbound }
func (p *Ping) Unwrap() any          { return p }

func (p *Ping) Read(src *buffer.Buffer) error {
	var err error
	p.Payload, err = wire.ReadInt64(src)
	return err
}

func (p *Ping) Write(dst *buffer.Buffer) error {
	wire.WriteInt64(dst, p.Payload)
	return nil
}

// Pong answers a Ping with the same payload.
type Pong struct {
	Payload int64
}

func (p *Pong) ID() int32            { return 0x01 }
func (p *Pong) State() State         { return Status }
func (p *Pong) Direction() Direction { return Outbound }
func (p *Pong) Unwrap() any          { return p }

func (p *Pong) Read(src *buffer.Buffer) error {
	var err error
	p.Payload, err = wire.ReadInt64(src)
	return err
}

func (p *Pong) Write(dst *buffer.Buffer) error {
	wire.WriteInt64(dst, p.Payload)
	return nil
}

// PluginMessageC2S carries an arbitrary, channel-addressed payload client -> server.
type PluginMessageC2S struct {
	Channel string
	Data    []byte
}

func (p *PluginMessageC2S) ID() int32            { return 0x0C }
func (p *PluginMessageC2S) State() State         { return Play }
func (p *PluginMessageC2S) Direction() Direction { return Inbound }
func (p *PluginMessageC2S) Unwrap() any          { return p }

func (p *PluginMessageC2S) Read(src *buffer.Buffer) error {
	var err error
	if p.Channel, err = wire.ReadString(src); err != nil {
		return err
	}
	p.Data = wire.ReadRest(src)
	return nil
}

func (p *PluginMessageC2S) Write(dst *buffer.Buffer) error {
	wire.WriteString(dst, p.Channel)
	dst.WriteBytes(p.Data)
	return nil
}

// PluginMessageS2C carries an arbitrary, channel-addressed payload server -> client.
type PluginMessageS2C struct {
	Channel string
	Data    []byte
}

func (p *PluginMessageS2C) ID() int32            { return 0x17 }
func (p *PluginMessageS2C) State() State         { return Play }
func (p *PluginMessageS2C) Direction() Direction { return Outbound }
func (p *PluginMessageS2C) Unwrap() any          { return p }

func (p *PluginMessageS2C) Read(src *buffer.Buffer) error {
	var err error
	if p.Channel, err = wire.ReadString(src); err != nil {
		return err
	}
	p.Data = wire.ReadRest(src)
	return nil
}

func (p *PluginMessageS2C) Write(dst *buffer.Buffer) error {
	wire.WriteString(dst, p.Channel)
	dst.WriteBytes(p.Data)
	return nil
}

// EntityPosition is the relative-move packet used by spec.md §8 scenario 5 to
// demonstrate field mutation under the Modified result.
type EntityPosition struct {
	EntityID int32
	DeltaX   int16
	DeltaY   int16
	DeltaZ   int16
	OnGround bool
}

func (p *EntityPosition) ID() int32            { return 0x27 }
func (p *EntityPosition) State() State         { return Play }
func (p *EntityPosition) Direction() Direction { return Outbound }
func (p *EntityPosition) Unwrap() any          { return p }

func (p *EntityPosition) Read(src *buffer.Buffer) error {
	var err error
	if p.EntityID, err = wire.ReadVarInt(src); err != nil {
		return err
	}
	if p.DeltaX, err = wire.ReadInt16(src); err != nil {
		return err
	}
	if p.DeltaY, err = wire.ReadInt16(src); err != nil {
		return err
	}
	if p.DeltaZ, err = wire.ReadInt16(src); err != nil {
		return err
	}
	p.OnGround, err = wire.ReadBool(src)
	return err
}

func (p *EntityPosition) Write(dst *buffer.Buffer) error {
	wire.WriteVarInt(dst, p.EntityID)
	wire.WriteInt16(dst, p.DeltaX)
	wire.WriteInt16(dst, p.DeltaY)
	wire.WriteInt16(dst, p.DeltaZ)
	wire.WriteBool(dst, p.OnGround)
	return nil
}
