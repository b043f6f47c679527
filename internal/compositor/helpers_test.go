package compositor

import (
	"testing"

	"github.com/banshee-data/compositor/internal/compositor/engine"
	"github.com/banshee-data/compositor/internal/compositor/modules"
	"github.com/banshee-data/compositor/internal/compositor/scene"
	"github.com/banshee-data/compositor/internal/compositor/stream"
	"github.com/banshee-data/compositor/internal/config"
	"github.com/stretchr/testify/require"
)

type decodeCall struct {
	esID   uint32
	data   []byte
	offset float64
}

type fakeDecoder struct {
	events     *[]string
	configured map[uint32]stream.ObjectType
	decoded    []decodeCall
	configErr  error
	decodeErr  error
	closed     bool
}

func (d *fakeDecoder) ConfigureStream(esID uint32, cfg []byte, codec stream.ObjectType) error {
	if d.configErr != nil {
		return d.configErr
	}
	d.configured[esID] = codec
	return nil
}

func (d *fakeDecoder) DecodeAccessUnit(esID uint32, data []byte, offset float64) error {
	d.decoded = append(d.decoded, decodeCall{esID: esID, data: data, offset: offset})
	return d.decodeErr
}

func (d *fakeDecoder) Close() error {
	d.closed = true
	*d.events = append(*d.events, "decoder-close")
	return nil
}

type fakeEngine struct {
	events    *[]string
	scene     *scene.Scene
	sets      int
	draws     int
	hint      int
	noWait    []bool
	destroyed bool
}

func (e *fakeEngine) Scene() *scene.Scene { return e.scene }

func (e *fakeEngine) SetScene(s *scene.Scene) {
	e.scene = s
	e.sets++
	if s == nil {
		*e.events = append(*e.events, "detach")
	} else {
		*e.events = append(*e.events, "attach")
	}
}

func (e *fakeEngine) DrawFrame(noWait bool) int {
	e.draws++
	e.noWait = append(e.noWait, noWait)
	*e.events = append(*e.events, "draw")
	return e.hint
}

func (e *fakeEngine) Destroy() {
	e.destroyed = true
	*e.events = append(*e.events, "destroy")
}

// harness wires a Filter to fake collaborators that share one event log.
type harness struct {
	f        *Filter
	store    *config.Store
	reg      *modules.Registry
	eng      *fakeEngine
	decoders []*fakeDecoder
	events   []string

	// decoder behaviour applied to every decoder the factory builds
	configErr error
	decodeErr error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := newUninitializedHarness(t, config.EmptyCompositorConfig())
	require.NoError(t, h.f.Initialize())
	return h
}

func newUninitializedHarness(t *testing.T, cfg *config.CompositorConfig) *harness {
	t.Helper()
	h := &harness{store: config.NewStore(cfg)}
	h.eng = &fakeEngine{events: &h.events, hint: 40}

	h.reg = modules.NewRegistry()
	require.NoError(t, h.reg.Register(&modules.Module{
		Name: "soft",
		Kind: modules.KindEngine,
		NewEngine: func(engine.HostCallbacks, *config.Store) (engine.Engine, error) {
			return h.eng, nil
		},
		Close: func() error {
			h.events = append(h.events, "modules-close")
			return nil
		},
	}))
	require.NoError(t, h.reg.Register(&modules.Module{
		Name: "bifs",
		Kind: modules.KindSceneDecoder,
		NewDecoder: func(*scene.Graph, bool) (scene.Decoder, error) {
			d := &fakeDecoder{
				events:     &h.events,
				configured: make(map[uint32]stream.ObjectType),
				configErr:  h.configErr,
				decodeErr:  h.decodeErr,
			}
			h.decoders = append(h.decoders, d)
			return d, nil
		},
		Codecs: []stream.ObjectType{stream.ObjectTypeSceneBIFS, stream.ObjectTypeSceneBIFSv2},
	}))

	h.f = New(Options{Store: h.store, Modules: h.reg})
	return h
}

func scenePid(name string, esID uint32, primary bool) *stream.MemPid {
	return stream.NewMemPid(name).
		SetProperty(stream.PropID, stream.UintValue(esID)).
		SetProperty(stream.PropStreamType, stream.UintValue(uint32(stream.StreamScene))).
		SetProperty(stream.PropObjectType, stream.UintValue(uint32(stream.ObjectTypeSceneBIFS))).
		SetProperty(stream.PropInIOD, stream.BoolValue(primary)).
		SetProperty(stream.PropDecoderConfig, stream.DataValue([]byte{0x01, 0x01}))
}

func mediaPid(name string, st stream.StreamType, oti stream.ObjectType) *stream.MemPid {
	return stream.NewMemPid(name).
		SetProperty(stream.PropStreamType, stream.UintValue(uint32(st))).
		SetProperty(stream.PropObjectType, stream.UintValue(uint32(oti)))
}
