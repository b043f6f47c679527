package compositor

import "github.com/banshee-data/compositor/internal/compositor/stream"

// Capability is one accepted stream category and codec combination.
type Capability struct {
	StreamType stream.StreamType
	ObjectType stream.ObjectType
}

// Registration describes the filter to a host pipeline.
type Registration struct {
	Name        string
	Description string
	// RequiresMainThread asks the host to run every lifecycle call on one
	// designated goroutine.
	RequiresMainThread bool
	Inputs             []Capability
	New                func(opts Options) stream.Filter
}

// Accepts reports whether a stream of st carrying oti matches one of the
// declared inputs.
func (r Registration) Accepts(st stream.StreamType, oti stream.ObjectType) bool {
	for _, c := range r.Inputs {
		if c.StreamType == st && c.ObjectType == oti {
			return true
		}
	}
	return false
}

// Register is the compositor's registration with host pipelines.
var Register = Registration{
	Name:               "compositor",
	Description:        "Scene compositor sink: binds scene-description and raw media streams into one scene and renders one frame per cycle",
	RequiresMainThread: true,
	Inputs: []Capability{
		{stream.StreamAudio, stream.ObjectTypeRawMedia},
		{stream.StreamVisual, stream.ObjectTypeRawMedia},
		{stream.StreamScene, stream.ObjectTypeSceneBIFS},
		{stream.StreamScene, stream.ObjectTypeSceneBIFSv2},
		{stream.StreamOD, stream.ObjectTypeSceneBIFS},
		{stream.StreamOD, stream.ObjectTypeSceneBIFSv2},
	},
	New: func(opts Options) stream.Filter { return New(opts) },
}
