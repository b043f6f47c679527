// Package modules is the compositor's module registry: the engine backends
// and scene-description decoders available to a filter instance. A
// registry is built by the host and passed to the filter explicitly; there
// is no process-wide registry.
package modules

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/compositor/internal/compositor/engine"
	"github.com/banshee-data/compositor/internal/compositor/scene"
	"github.com/banshee-data/compositor/internal/compositor/scenedec"
	"github.com/banshee-data/compositor/internal/compositor/stream"
)

var (
	ErrUnknownModule   = errors.New("modules: unknown module")
	ErrDuplicateModule = errors.New("modules: duplicate module")
	ErrClosed          = errors.New("modules: registry closed")
)

// Kind is the service a module provides.
type Kind int

const (
	KindEngine Kind = iota + 1
	KindSceneDecoder
)

func (k Kind) String() string {
	switch k {
	case KindEngine:
		return "engine"
	case KindSceneDecoder:
		return "scene-decoder"
	}
	return "unknown"
}

// Module describes one loadable service. Exactly one of NewEngine and
// NewDecoder is set, according to Kind.
type Module struct {
	Name       string
	Kind       Kind
	NewEngine  engine.Factory
	NewDecoder scene.DecoderFactory
	// Codecs lists the codec identities a decoder module handles.
	Codecs []stream.ObjectType
	// Close, when set, is called once when the registry is closed.
	Close func() error
}

// Registry holds modules in registration order.
type Registry struct {
	mu      sync.Mutex
	modules []*Module
	byName  map[string]*Module
	closed  bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Module)}
}

// Builtin returns a registry holding the software engine and the reference
// scene decoder.
func Builtin() *Registry {
	r := NewRegistry()
	// Names are unique and the registry is fresh, so these cannot fail.
	_ = r.Register(&Module{
		Name:      "soft",
		Kind:      KindEngine,
		NewEngine: engine.NewSoft,
	})
	_ = r.Register(&Module{
		Name:       "bifs",
		Kind:       KindSceneDecoder,
		NewDecoder: scenedec.New,
		Codecs:     []stream.ObjectType{stream.ObjectTypeSceneBIFS, stream.ObjectTypeSceneBIFSv2},
	})
	return r
}

// Register adds m.
func (r *Registry) Register(m *Module) error {
	if m == nil || m.Name == "" {
		return errors.New("modules: module needs a name")
	}
	switch m.Kind {
	case KindEngine:
		if m.NewEngine == nil {
			return fmt.Errorf("modules: engine module %q has no constructor", m.Name)
		}
	case KindSceneDecoder:
		if m.NewDecoder == nil {
			return fmt.Errorf("modules: decoder module %q has no constructor", m.Name)
		}
	default:
		return fmt.Errorf("modules: module %q has unknown kind %d", m.Name, m.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.byName[m.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, m.Name)
	}
	r.modules = append(r.modules, m)
	r.byName[m.Name] = m
	return nil
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.modules)
}

// Names returns the registered module names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.modules))
	for _, m := range r.modules {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// Engine returns the constructor of the engine module called name.
func (r *Registry) Engine(name string) (engine.Factory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	m, ok := r.byName[name]
	if !ok || m.Kind != KindEngine {
		return nil, fmt.Errorf("%w: engine %q", ErrUnknownModule, name)
	}
	return m.NewEngine, nil
}

// SceneDecoder returns the first registered decoder handling codec.
func (r *Registry) SceneDecoder(codec stream.ObjectType) (scene.DecoderFactory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	for _, m := range r.modules {
		if m.Kind != KindSceneDecoder {
			continue
		}
		for _, c := range m.Codecs {
			if c == codec {
				return m.NewDecoder, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no decoder for %s", ErrUnknownModule, codec)
}

// Close releases every module in reverse registration order. The registry
// is unusable afterwards; closing twice is a no-op.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for i := len(r.modules) - 1; i >= 0; i-- {
		m := r.modules[i]
		if m.Close == nil {
			continue
		}
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", m.Name, err))
		}
	}
	r.modules = nil
	r.byName = make(map[string]*Module)
	return errors.Join(errs...)
}
