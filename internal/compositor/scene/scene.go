// Package scene holds the compositor's scene model: a Scene with its single
// root ObjectManager, the live node Graph, the scene namespace and the
// scene-description decoder contract.
//
// Ownership runs one way: Scene → ObjectManager → stream reference. Nothing
// in this package points back from a stream to its object; the compositor
// keeps that mapping in its own binding registry.
package scene

import (
	"errors"
	"fmt"

	"github.com/banshee-data/compositor/internal/compositor/stream"
	"github.com/google/uuid"
)

// Mode distinguishes scenes driven by a scene-description stream from
// scenes generated out of raw media objects.
type Mode int

const (
	ModeAuthored Mode = iota + 1
	ModeDynamic
)

func (m Mode) String() string {
	switch m {
	case ModeAuthored:
		return "authored"
	case ModeDynamic:
		return "dynamic"
	}
	return "none"
}

// ErrNamespaceMismatch is returned when an object is inserted through a
// namespace that does not belong to the target scene.
var ErrNamespaceMismatch = errors.New("scene: namespace does not belong to scene")

// ErrNoDecoder is returned when a decoder factory succeeds without
// producing a decoder.
var ErrNoDecoder = errors.New("scene: decoder factory returned no decoder")

// Decoder translates scene-description access units into graph nodes.
type Decoder interface {
	// ConfigureStream registers an elementary stream with its decoder
	// specific configuration.
	ConfigureStream(esID uint32, config []byte, codec stream.ObjectType) error
	// DecodeAccessUnit decodes one unit presented at offset seconds.
	DecodeAccessUnit(esID uint32, data []byte, offset float64) error
}

// DecoderFactory builds a decoder bound to g. commandStream selects the
// command-only decoding profile.
type DecoderFactory func(g *Graph, commandStream bool) (Decoder, error)

// Attacher is the engine side of scene attachment.
type Attacher interface {
	Scene() *Scene
	SetScene(s *Scene)
}

// Namespace is the naming scope a scene was instantiated from.
type Namespace struct {
	Name  string
	Scene *Scene
	Owner *ObjectManager
}

// Scene owns one root ObjectManager, a graph and at most one decoder.
type Scene struct {
	ID   string
	Mode Mode

	root    *ObjectManager
	graph   *Graph
	decoder Decoder
	objects []*ObjectManager

	decodersCreated int
	regenerations   int
}

// New creates a scene in the given mode with its root object and
// namespace wired: root.SubScene == scene and root.Namespace.Scene == scene.
func New(mode Mode, namespace string) *Scene {
	s := &Scene{
		ID:    uuid.NewString(),
		Mode:  mode,
		graph: NewGraph(),
	}
	rootType := stream.StreamScene
	if mode == ModeDynamic {
		rootType = stream.StreamUnknown
	}
	root := newObjectManager(rootType)
	root.SubScene = s
	root.Namespace = &Namespace{Name: namespace, Scene: s, Owner: root}
	s.root = root
	return s
}

// Root returns the scene's root object.
func (s *Scene) Root() *ObjectManager { return s.root }

// Graph returns the scene graph.
func (s *Scene) Graph() *Graph { return s.graph }

// Decoder returns the scene decoder, or nil before one was created.
func (s *Scene) Decoder() Decoder { return s.decoder }

// DecodersCreated returns how many times EnsureDecoder built a decoder.
func (s *Scene) DecodersCreated() int { return s.decodersCreated }

// Regenerations returns how many times Regenerate ran.
func (s *Scene) Regenerations() int { return s.regenerations }

// Objects returns the objects inserted under the root, in insertion order.
func (s *Scene) Objects() []*ObjectManager {
	out := make([]*ObjectManager, len(s.objects))
	copy(out, s.objects)
	return out
}

// EnsureDecoder returns the scene decoder, creating it with newDecoder on
// first use. created reports whether this call built it.
func (s *Scene) EnsureDecoder(newDecoder DecoderFactory) (dec Decoder, created bool, err error) {
	if s.decoder != nil {
		return s.decoder, false, nil
	}
	if newDecoder == nil {
		return nil, false, errors.New("scene: no decoder factory")
	}
	dec, err = newDecoder(s.graph, false)
	if err != nil {
		return nil, false, err
	}
	if dec == nil {
		return nil, false, ErrNoDecoder
	}
	s.decoder = dec
	s.decodersCreated++
	return dec, true, nil
}

// InsertObject creates a child object for pid under ns and returns it.
func (s *Scene) InsertObject(ns *Namespace, pid stream.Pid, t stream.StreamType) (*ObjectManager, error) {
	if ns == nil || ns.Scene != s {
		return nil, ErrNamespaceMismatch
	}
	odm := newObjectManager(t)
	odm.Parent = s
	odm.Pid = pid
	odm.SetupStream(pid)
	s.objects = append(s.objects, odm)
	return odm, nil
}

// Regenerate rebuilds the default graph of a dynamic scene: one group
// holding a node per inserted media object. Authored scenes are left to
// their decoder.
func (s *Scene) Regenerate() {
	if s.Mode != ModeDynamic {
		return
	}
	s.regenerations++
	s.graph.Reset()
	for _, odm := range s.objects {
		kind := "Shape"
		switch odm.Type {
		case stream.StreamVisual:
			kind = "Bitmap"
		case stream.StreamAudio:
			kind = "Sound2D"
		}
		name := ""
		if odm.Pid != nil {
			name = odm.Pid.Name()
		}
		odm.Object.Node = s.graph.Add(nil, kind, name)
	}
}

// AttachTo hands the scene to the engine. It is idempotent: an engine
// already presenting s is left untouched.
func (s *Scene) AttachTo(a Attacher) {
	if a == nil || a.Scene() == s {
		return
	}
	a.SetScene(s)
}

// Summary is a read-only view of a scene for observers outside the
// compositor goroutine.
type Summary struct {
	ID         string `json:"id"`
	Mode       string `json:"mode"`
	Objects    int    `json:"objects"`
	Nodes      int    `json:"nodes"`
	HasDecoder bool   `json:"has_decoder"`
	RootPid    string `json:"root_pid,omitempty"`
}

// Summary captures the scene's current shape.
func (s *Scene) Summary() Summary {
	sum := Summary{
		ID:         s.ID,
		Mode:       s.Mode.String(),
		Objects:    len(s.objects),
		Nodes:      s.graph.Len(),
		HasDecoder: s.decoder != nil,
	}
	if s.root.Pid != nil {
		sum.RootPid = s.root.Pid.Name()
	}
	return sum
}

func (s *Scene) String() string {
	return fmt.Sprintf("scene %s (%s, %d objects)", s.ID, s.Mode, len(s.objects))
}
