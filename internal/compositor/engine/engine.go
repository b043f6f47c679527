// Package engine defines the rendering engine contract the compositor
// drives, the host callback surface the engine reports events through,
// and a software reference engine.
package engine

import (
	"github.com/banshee-data/compositor/internal/compositor/scene"
	"github.com/banshee-data/compositor/internal/config"
)

// Engine renders the active scene. It references the scene but never
// owns it.
type Engine interface {
	scene.Attacher
	// DrawFrame runs one frame step and returns the suggested number of
	// milliseconds until the next frame is due. It never sleeps.
	DrawFrame(noWait bool) int
	Destroy()
}

// Factory constructs an engine reporting to host.
type Factory func(host HostCallbacks, store *config.Store) (Engine, error)

// EventType classifies engine events.
type EventType int

const (
	EventRefresh EventType = iota + 1
	EventSizeChanged
	EventKey
	EventMouse
	EventMessage
	EventQuit
)

// Event is a UI or input notification from the engine.
type Event struct {
	Type    EventType
	Width   int
	Height  int
	Key     int
	Message string
}

// HostCallbacks receives engine events. Process returns true when the host
// consumed the event.
type HostCallbacks interface {
	Process(evt Event) bool
}

// DiscardEvents is the minimal host stub: it consumes nothing.
type DiscardEvents struct{}

func (DiscardEvents) Process(Event) bool { return false }
