package engine

import (
	"sync"
	"time"

	"github.com/banshee-data/compositor/internal/compositor/scene"
	"github.com/banshee-data/compositor/internal/config"
)

// Soft is a software engine that walks the attached graph once per frame
// and paces itself at a fixed target frame rate. It stands in for a real
// rendering backend in the host binary and in tests.
type Soft struct {
	host     HostCallbacks
	interval time.Duration
	now      func() time.Time

	mu          sync.Mutex
	scene       *scene.Scene
	frames      uint64
	attachments int
	lastNodes   int
	lastDraw    time.Time
	destroyed   bool
}

// NewSoft builds a Soft engine. It matches Factory.
func NewSoft(host HostCallbacks, store *config.Store) (Engine, error) {
	if host == nil {
		host = DiscardEvents{}
	}
	fps := config.DefaultTargetFPS
	if store != nil {
		fps = store.Config().GetTargetFPS()
	}
	return &Soft{
		host:     host,
		interval: time.Duration(float64(time.Second) / fps),
		now:      time.Now,
	}, nil
}

// SetClock replaces the time source. Intended for tests.
func (e *Soft) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

func (e *Soft) Scene() *scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene
}

func (e *Soft) SetScene(s *scene.Scene) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.scene = s
	if s != nil {
		e.attachments++
	}
	host := e.host
	e.mu.Unlock()

	host.Process(Event{Type: EventRefresh})
}

func (e *Soft) DrawFrame(noWait bool) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return 0
	}

	now := e.now()
	e.frames++
	e.lastNodes = 0
	if e.scene != nil {
		e.scene.Graph().Walk(func(*scene.Node) bool {
			e.lastNodes++
			return true
		})
	}

	var wait time.Duration
	if !e.lastDraw.IsZero() {
		wait = e.interval - now.Sub(e.lastDraw)
	} else {
		wait = e.interval
	}
	e.lastDraw = now
	if noWait || wait < 0 {
		return 0
	}
	return int(wait / time.Millisecond)
}

func (e *Soft) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyed = true
	e.scene = nil
}

// Stats reports what the engine has done so far.
type Stats struct {
	Frames      uint64
	Attachments int
	LastNodes   int
	Destroyed   bool
}

// Stats returns a snapshot of the engine counters.
func (e *Soft) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Frames:      e.frames,
		Attachments: e.attachments,
		LastNodes:   e.lastNodes,
		Destroyed:   e.destroyed,
	}
}
