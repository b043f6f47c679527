package scene

import (
	"errors"
	"io"

	"github.com/banshee-data/compositor/internal/compositor/stream"
)

// MediaObject is the renderable face of an ObjectManager.
type MediaObject struct {
	Type stream.StreamType
	// ConfigChanged is raised when the upstream stream reconfigures; the
	// renderer clears it once it has picked up the new configuration.
	ConfigChanged bool
	Node          *Node
}

// ObjectManager binds one decodable object to its stream(s). The root
// object of a Scene carries the Scene as SubScene; inserted objects do not.
type ObjectManager struct {
	Type     stream.StreamType
	Object   *MediaObject
	SubScene *Scene

	// Namespace is the scope this object instantiated (root objects only).
	Namespace *Namespace
	// Parent is the scene this object was inserted into (children only).
	Parent *Scene

	// Pid is the stream bound as this object's main channel.
	Pid     stream.Pid
	ESID    uint32
	ClockID uint32

	streams   []stream.Pid
	connected bool
}

func newObjectManager(t stream.StreamType) *ObjectManager {
	return &ObjectManager{
		Type:      t,
		Object:    &MediaObject{Type: t},
		connected: true,
	}
}

// IsSceneRoot reports whether odm is the root object of its SubScene.
func (odm *ObjectManager) IsSceneRoot() bool {
	return odm != nil && odm.SubScene != nil && odm.SubScene.root == odm
}

// Connected reports whether the object has not been disconnected.
func (odm *ObjectManager) Connected() bool { return odm.connected }

// Streams returns the pids set up on this object, in setup order.
func (odm *ObjectManager) Streams() []stream.Pid {
	out := make([]stream.Pid, len(odm.streams))
	copy(out, odm.streams)
	return out
}

// SetupStream associates pid with the object and derives its clock. The
// clock is the stream's declared clock reference, or its own ES id when the
// stream is self-clocked.
func (odm *ObjectManager) SetupStream(pid stream.Pid) {
	for _, p := range odm.streams {
		if p == pid {
			return
		}
	}
	odm.streams = append(odm.streams, pid)

	var esID uint32
	if v, ok := pid.Property(stream.PropID); ok {
		esID = v.Uint
	}
	if odm.Pid == pid {
		odm.ESID = esID
	}
	if odm.ClockID == 0 {
		if v, ok := pid.Property(stream.PropClockID); ok && v.Uint != 0 {
			odm.ClockID = v.Uint
		} else {
			odm.ClockID = esID
		}
	}
}

// Disconnect detaches the object from its streams. For a scene root it
// recursively disconnects every inserted object, closes the scene decoder
// and clears the graph. Calling it twice is harmless.
func (odm *ObjectManager) Disconnect() error {
	if odm == nil || !odm.connected {
		return nil
	}
	odm.connected = false

	var errs []error
	if s := odm.SubScene; s != nil && s.root == odm {
		for _, child := range s.objects {
			if err := child.Disconnect(); err != nil {
				errs = append(errs, err)
			}
		}
		s.objects = nil
		if c, ok := s.decoder.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.decoder = nil
		s.graph.Reset()
	}

	odm.Pid = nil
	odm.streams = nil
	if odm.Object != nil {
		odm.Object.Node = nil
	}
	return errors.Join(errs...)
}
