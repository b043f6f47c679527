// Package scenedec provides a reference scene-description decoder. It does
// not parse a real bitstream: each access unit becomes one node under a
// per-stream group, which is enough to drive the compositor end to end.
//
// Unit layout: 8-byte big-endian sequence number, 1 opcode byte, optional
// body. Opcodes: 0x01 insert node, 0x02 replace the stream's subtree.
package scenedec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/banshee-data/compositor/internal/compositor/scene"
	"github.com/banshee-data/compositor/internal/compositor/stream"
)

var (
	// ErrUnsupportedCodec is returned for streams that are not scene codecs.
	ErrUnsupportedCodec = errors.New("scenedec: unsupported codec")
	// ErrStreamConfigured is returned when an ES id is configured twice.
	ErrStreamConfigured = errors.New("scenedec: stream already configured")
	// ErrUnknownStream is returned for units on an unconfigured ES id.
	ErrUnknownStream = errors.New("scenedec: unknown stream")
	// ErrCorruptUnit is returned for units that cannot be parsed.
	ErrCorruptUnit = errors.New("scenedec: corrupt access unit")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("scenedec: decoder closed")
)

const (
	opInsert  = 0x01
	opReplace = 0x02

	headerSize = 9
)

type streamState struct {
	codec   stream.ObjectType
	version byte
	group   *scene.Node
	units   int
	lastSeq uint64
}

// Recorder materialises access units as graph nodes.
type Recorder struct {
	graph   *scene.Graph
	command bool
	streams map[uint32]*streamState
	closed  bool
}

// New builds a Recorder bound to g. It matches scene.DecoderFactory.
func New(g *scene.Graph, commandStream bool) (scene.Decoder, error) {
	if g == nil {
		return nil, errors.New("scenedec: nil graph")
	}
	return &Recorder{
		graph:   g,
		command: commandStream,
		streams: make(map[uint32]*streamState),
	}, nil
}

func (r *Recorder) ConfigureStream(esID uint32, config []byte, codec stream.ObjectType) error {
	if r.closed {
		return ErrClosed
	}
	if !codec.IsSceneCodec() {
		return fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
	}
	if _, ok := r.streams[esID]; ok {
		return fmt.Errorf("%w: es %d", ErrStreamConfigured, esID)
	}
	if len(config) == 0 {
		return fmt.Errorf("%w: empty decoder config for es %d", ErrCorruptUnit, esID)
	}
	r.streams[esID] = &streamState{
		codec:   codec,
		version: config[0],
		group:   r.graph.Add(nil, "Group", fmt.Sprintf("es%d", esID)),
	}
	return nil
}

func (r *Recorder) DecodeAccessUnit(esID uint32, data []byte, offset float64) error {
	if r.closed {
		return ErrClosed
	}
	st, ok := r.streams[esID]
	if !ok {
		return fmt.Errorf("%w: es %d", ErrUnknownStream, esID)
	}
	if len(data) == 0 {
		return nil
	}
	if len(data) < headerSize {
		return fmt.Errorf("%w: %d bytes", ErrCorruptUnit, len(data))
	}

	seq := binary.BigEndian.Uint64(data[:8])
	switch data[8] {
	case opInsert:
	case opReplace:
		st.group.Children = nil
	default:
		return fmt.Errorf("%w: opcode 0x%02x", ErrCorruptUnit, data[8])
	}

	n := r.graph.Add(st.group, "Transform", fmt.Sprintf("au%d", seq))
	n.Time = offset
	if len(data) > headerSize {
		n.Payload = append([]byte(nil), data[headerSize:]...)
	}
	st.units++
	st.lastSeq = seq
	return nil
}

// Units returns how many units were decoded on esID.
func (r *Recorder) Units(esID uint32) int {
	if st, ok := r.streams[esID]; ok {
		return st.units
	}
	return 0
}

// Close releases the decoder. Further calls fail with ErrClosed.
func (r *Recorder) Close() error {
	r.closed = true
	r.streams = nil
	return nil
}
