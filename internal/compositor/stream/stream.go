// Package stream defines the pipeline-side contract the compositor consumes:
// input stream handles (Pids), their property bags and the access units
// queued on them.
//
// The host pipeline owns transport and threading. Everything here is
// non-blocking: a Pid with nothing queued simply reports no packet.
package stream

import "fmt"

// StreamType is the declared media category of a stream.
type StreamType uint32

const (
	StreamUnknown StreamType = iota
	StreamOD                 // object descriptor stream
	StreamClock              // object clock reference
	StreamScene              // scene description
	StreamVisual
	StreamAudio
)

func (t StreamType) String() string {
	switch t {
	case StreamOD:
		return "od"
	case StreamClock:
		return "ocr"
	case StreamScene:
		return "scene"
	case StreamVisual:
		return "visual"
	case StreamAudio:
		return "audio"
	}
	return fmt.Sprintf("stream(%d)", uint32(t))
}

// IsStructured reports whether the category carries scene structure
// (object descriptors or scene description) rather than raw media.
func (t StreamType) IsStructured() bool {
	return t == StreamOD || t == StreamScene
}

// ObjectType is the codec identity of a stream.
type ObjectType uint32

// Codec identities. The scene values follow the MPEG-4 systems object type
// indications for BIFS.
const (
	ObjectTypeSceneBIFS   ObjectType = 0x01
	ObjectTypeSceneBIFSv2 ObjectType = 0x02
	ObjectTypeRawMedia    ObjectType = 0xFF
)

func (o ObjectType) String() string {
	switch o {
	case ObjectTypeSceneBIFS:
		return "bifs"
	case ObjectTypeSceneBIFSv2:
		return "bifs-v2"
	case ObjectTypeRawMedia:
		return "raw"
	}
	return fmt.Sprintf("oti(0x%02x)", uint32(o))
}

// IsSceneCodec reports whether o is a structured scene-description codec.
func (o ObjectType) IsSceneCodec() bool {
	return o == ObjectTypeSceneBIFS || o == ObjectTypeSceneBIFSv2
}

// PropCode names a property in a Pid's property bag.
type PropCode int

const (
	PropID            PropCode = iota + 1 // elementary stream id (Uint)
	PropStreamType                        // StreamType (Uint)
	PropObjectType                        // ObjectType (Uint)
	PropDecoderConfig                     // decoder specific info (Data)
	PropInIOD                             // primary stream flag (Bool)
	PropClockID                           // clock reference stream id (Uint)
	PropTimescale                         // default timescale (Uint)
)

func (c PropCode) String() string {
	switch c {
	case PropID:
		return "ID"
	case PropStreamType:
		return "StreamType"
	case PropObjectType:
		return "ObjectType"
	case PropDecoderConfig:
		return "DecoderConfig"
	case PropInIOD:
		return "InIOD"
	case PropClockID:
		return "ClockID"
	case PropTimescale:
		return "Timescale"
	}
	return fmt.Sprintf("prop(%d)", int(c))
}

// Value is a single property value. Only the field matching the property's
// declared kind is meaningful.
type Value struct {
	Uint uint32
	Bool bool
	Data []byte
}

// UintValue, BoolValue and DataValue build property values.
func UintValue(v uint32) Value { return Value{Uint: v} }
func BoolValue(v bool) Value   { return Value{Bool: v} }
func DataValue(b []byte) Value { return Value{Data: b} }

// Packet is one access unit queued on a Pid.
type Packet interface {
	// Data returns the payload. It may be nil for signalling packets.
	Data() []byte
	// CTS is the composition timestamp expressed in Timescale units.
	CTS() uint64
	Timescale() uint32
	// EOS reports that the packet signals end of stream.
	EOS() bool
}

// Pid is the handle for one logical input stream. Implementations must be
// comparable (pointer types) because the compositor keys its binding
// registry on Pid identity.
type Pid interface {
	Name() string
	// Property returns the value for code and whether it is set.
	Property(code PropCode) (Value, bool)
	// Packet returns the head access unit without removing it. It never
	// blocks; ok is false when nothing is queued.
	Packet() (pck Packet, ok bool)
	// DropPacket releases the head access unit.
	DropPacket()
}

// Filter is the lifecycle surface a host pipeline drives.
type Filter interface {
	Initialize() error
	ConfigureInput(pid Pid, isRemove bool) error
	Process() error
	Finalize()
	UpdateArg(name string, value Value) error
}
