// Package compositor is the scene compositor sink filter. It classifies the
// streams a host pipeline connects to it, binds them into a single live
// scene and, once per host cycle, feeds pending scene-description units to
// the scene decoder and steps the rendering engine by one frame.
//
// A Filter is driven from one goroutine. Observers on other goroutines use
// Snapshot, which the filter republishes after every state change.
package compositor

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/banshee-data/compositor/internal/compositor/engine"
	"github.com/banshee-data/compositor/internal/compositor/modules"
	"github.com/banshee-data/compositor/internal/compositor/scene"
	"github.com/banshee-data/compositor/internal/compositor/stream"
	"github.com/banshee-data/compositor/internal/config"
)

var _ stream.Filter = (*Filter)(nil)

// CycleStats describes one Process call.
type CycleStats struct {
	SessionID  string
	Cycle      uint64
	Streams    int // scene root streams visited
	Decoded    int
	DecodeErr  string
	PacingMs   int
	// SceneNodes is the scene graph size after the frame; 0 with no scene.
	SceneNodes int
	At         time.Time
}

// CycleRecorder persists cycle statistics. Implementations must not block
// for long; they run on the compositor goroutine.
type CycleRecorder interface {
	RecordCycle(stats CycleStats) error
}

// Options are the resources a filter instance runs with. They are scoped
// to the instance: the filter releases Store and Modules in Finalize.
type Options struct {
	Store   *config.Store
	Modules *modules.Registry
	// Host receives engine events; nil installs engine.DiscardEvents.
	Host engine.HostCallbacks
	// Recorder, when set, receives one CycleStats per Process call.
	Recorder CycleRecorder
	// Now is the time source for cycle stats; nil means time.Now.
	Now func() time.Time
}

// sceneState is the filter's scene slot: no scene yet, or exactly one
// scene whose mode was fixed by the first stream bound to it.
type sceneState struct {
	mode  scene.Mode // zero while no scene exists
	scene *scene.Scene
}

func (s sceneState) empty() bool { return s.scene == nil }

// Snapshot is a read-only view of the filter for other goroutines.
type Snapshot struct {
	Initialized  bool           `json:"initialized"`
	Finalized    bool           `json:"finalized"`
	Cycle        uint64         `json:"cycle"`
	Bound        int            `json:"bound_streams"`
	LastPacingMs int            `json:"last_pacing_ms"`
	LastError    string         `json:"last_error,omitempty"`
	Scene        *scene.Summary `json:"scene,omitempty"`
}

// Filter is one compositor instance.
type Filter struct {
	opts Options
	now  func() time.Time

	store   *config.Store
	modules *modules.Registry
	engine  engine.Engine

	state    sceneState
	bindings map[stream.Pid]*scene.ObjectManager
	inputs   []stream.Pid

	cycle     uint64
	lastHint  int
	lastError string
	finalized bool

	snapshot atomic.Pointer[Snapshot]
}

// New creates a filter. Nothing is acquired until Initialize.
func New(opts Options) *Filter {
	f := &Filter{
		opts:     opts,
		now:      opts.Now,
		bindings: make(map[stream.Pid]*scene.ObjectManager),
	}
	if f.now == nil {
		f.now = time.Now
	}
	f.publish()
	return f
}

// Initialize acquires the configuration store and module registry and
// constructs the engine with a host stub that discards all events. A
// second call fails and leaves the running engine in place.
func (f *Filter) Initialize() error {
	if f.engine != nil {
		return fmt.Errorf("%w: already initialized", ErrServiceError)
	}
	if f.opts.Store == nil {
		return fmt.Errorf("%w: no configuration store", ErrServiceError)
	}
	f.store = f.opts.Store

	if f.opts.Modules == nil || f.opts.Modules.Count() == 0 {
		opsf("no modules found - cannot load compositor")
		return fmt.Errorf("%w: no modules found", ErrServiceError)
	}
	f.modules = f.opts.Modules

	host := f.opts.Host
	if host == nil {
		host = engine.DiscardEvents{}
	}

	backend := f.store.Config().GetEngineBackend()
	newEngine, err := f.modules.Engine(backend)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServiceError, err)
	}
	eng, err := newEngine(host, f.store)
	if err != nil {
		return fmt.Errorf("%w: engine %s: %w", ErrServiceError, backend, err)
	}
	if eng == nil {
		return fmt.Errorf("%w: engine %s returned no handle", ErrServiceError, backend)
	}
	f.engine = eng

	diagf("initialized session=%s engine=%s modules=%v", f.store.SessionID(), backend, f.modules.Names())
	f.publish()
	return nil
}

// Finalize tears the filter down in a fixed order: detach the scene from
// the engine, disconnect the root object recursively, destroy the engine,
// release the module registry, release the configuration store. The
// engine may still consult the registry and store while it is destroyed.
func (f *Filter) Finalize() {
	if f.engine != nil {
		f.engine.SetScene(nil)
		if !f.state.empty() {
			if err := f.state.scene.Root().Disconnect(); err != nil {
				opsf("disconnect scene %s: %v", f.state.scene.ID, err)
			}
		}
		f.engine.Destroy()
		f.engine = nil
	}
	if f.modules != nil {
		if err := f.modules.Close(); err != nil {
			opsf("release modules: %v", err)
		}
		f.modules = nil
	}
	if f.store != nil {
		f.store.Release()
		f.store = nil
	}

	f.state = sceneState{}
	f.bindings = make(map[stream.Pid]*scene.ObjectManager)
	f.inputs = nil
	f.finalized = true
	diagf("finalized after %d cycles", f.cycle)
	f.publish()
}

// UpdateArg accepts runtime argument changes. The compositor has no
// tunable arguments yet, so every update is accepted and ignored.
func (f *Filter) UpdateArg(name string, value stream.Value) error {
	tracef("update_arg %s ignored", name)
	return nil
}

// Scene returns the active scene, or nil.
func (f *Filter) Scene() *scene.Scene { return f.state.scene }

// Engine returns the engine handle, or nil outside Initialize/Finalize.
func (f *Filter) Engine() engine.Engine { return f.engine }

// Binding returns the object pid is bound to.
func (f *Filter) Binding(pid stream.Pid) (*scene.ObjectManager, bool) {
	odm, ok := f.bindings[pid]
	return odm, ok
}

// LastPacingHint returns the engine's most recent milliseconds-until-next
// frame suggestion. The filter itself does not act on it.
func (f *Filter) LastPacingHint() int { return f.lastHint }

// Snapshot returns the most recently published view of the filter. It is
// safe to call from any goroutine.
func (f *Filter) Snapshot() Snapshot {
	return *f.snapshot.Load()
}

func (f *Filter) publish() {
	snap := &Snapshot{
		Initialized:  f.engine != nil,
		Finalized:    f.finalized,
		Cycle:        f.cycle,
		Bound:        len(f.inputs),
		LastPacingMs: f.lastHint,
		LastError:    f.lastError,
	}
	if !f.state.empty() {
		sum := f.state.scene.Summary()
		snap.Scene = &sum
	}
	f.snapshot.Store(snap)
}
