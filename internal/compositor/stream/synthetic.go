package stream

import (
	"encoding/binary"
	"sync/atomic"
)

// Synthetic produces scene-description access units for demos and tests.
// Each unit carries a big-endian sequence number followed by an opcode
// byte; the reference decoder turns it into one graph node.
type Synthetic struct {
	seq atomic.Uint64

	// Configuration
	Timescale uint32 // ticks per second
	Duration  uint64 // ticks between units
	Opcode    byte
}

// NewSynthetic creates a generator emitting one unit per frame at fps.
func NewSynthetic(fps float64) *Synthetic {
	if fps <= 0 {
		fps = 25
	}
	const timescale = 90000
	return &Synthetic{
		Timescale: timescale,
		Duration:  uint64(float64(timescale) / fps),
		Opcode:    0x01,
	}
}

// Next returns the next access unit.
func (g *Synthetic) Next() *MemPacket {
	n := g.seq.Add(1) - 1
	payload := make([]byte, 9)
	binary.BigEndian.PutUint64(payload, n)
	payload[8] = g.Opcode
	return &MemPacket{
		Payload: payload,
		Time:    n * g.Duration,
		Scale:   g.Timescale,
	}
}

// DecoderConfig returns a minimal decoder configuration for the generated
// stream: a version byte followed by the codec identity.
func (g *Synthetic) DecoderConfig(codec ObjectType) []byte {
	return []byte{0x01, byte(codec)}
}

// Emitted returns the number of units generated so far.
func (g *Synthetic) Emitted() uint64 {
	return g.seq.Load()
}
