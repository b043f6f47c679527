package compositor

import (
	"errors"
	"testing"

	"github.com/banshee-data/compositor/internal/compositor/engine"
	"github.com/banshee-data/compositor/internal/compositor/modules"
	"github.com/banshee-data/compositor/internal/compositor/scene"
	"github.com/banshee-data/compositor/internal/compositor/stream"
	"github.com/banshee-data/compositor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureInput_RemovalAlwaysNotSupported(t *testing.T) {
	h := newHarness(t)
	bound := scenePid("bifs", 1, true)
	require.NoError(t, h.f.ConfigureInput(bound, false))

	pids := []stream.Pid{
		bound,
		scenePid("anim", 2, false),
		mediaPid("video", stream.StreamVisual, stream.ObjectTypeRawMedia),
		mediaPid("odd", stream.StreamAudio, stream.ObjectType(0x40)),
		stream.NewMemPid("bare"),
	}
	for _, pid := range pids {
		err := h.f.ConfigureInput(pid, true)
		assert.ErrorIs(t, err, ErrNotSupported, pid.Name())
	}

	// Removal is rejected even before Initialize.
	fresh := New(Options{})
	assert.ErrorIs(t, fresh.ConfigureInput(bound, true), ErrNotSupported)
}

func TestConfigureInput_NotInitialized(t *testing.T) {
	f := New(Options{})
	err := f.ConfigureInput(scenePid("bifs", 1, true), false)
	assert.ErrorIs(t, err, ErrServiceError)
}

func TestConfigureInput_MissingProperties(t *testing.T) {
	h := newHarness(t)

	noType := stream.NewMemPid("a").SetProperty(stream.PropObjectType, stream.UintValue(uint32(stream.ObjectTypeRawMedia)))
	assert.ErrorIs(t, h.f.ConfigureInput(noType, false), ErrNotSupported)

	noCodec := stream.NewMemPid("b").SetProperty(stream.PropStreamType, stream.UintValue(uint32(stream.StreamVisual)))
	assert.ErrorIs(t, h.f.ConfigureInput(noCodec, false), ErrNotSupported)

	assert.Nil(t, h.f.Scene())
}

func TestConfigureInput_PrimaryCreatesAuthoredScene(t *testing.T) {
	h := newHarness(t)
	pid := scenePid("bifs", 1, true)
	pid.SetProperty(stream.PropClockID, stream.UintValue(5))

	require.NoError(t, h.f.ConfigureInput(pid, false))

	s := h.f.Scene()
	require.NotNil(t, s)
	assert.Equal(t, scene.ModeAuthored, s.Mode)
	assert.Same(t, pid, s.Root().Pid)
	assert.Same(t, s, s.Root().SubScene)
	assert.Equal(t, uint32(5), s.Root().ClockID)

	odm, ok := h.f.Binding(pid)
	require.True(t, ok)
	assert.Same(t, s.Root(), odm)

	require.Len(t, h.decoders, 1)
	assert.Equal(t, stream.ObjectTypeSceneBIFS, h.decoders[0].configured[1])
}

func TestConfigureInput_TwoPrimaryStreamsShareOneDecoder(t *testing.T) {
	h := newHarness(t)
	a := scenePid("bifs-a", 1, true)
	b := scenePid("bifs-b", 2, true)

	require.NoError(t, h.f.ConfigureInput(a, false))
	require.NoError(t, h.f.ConfigureInput(b, false))

	s := h.f.Scene()
	assert.Len(t, h.decoders, 1)
	assert.Equal(t, 1, s.DecodersCreated())
	assert.Same(t, a, s.Root().Pid, "first primary stays the root stream")
	assert.Len(t, s.Root().Streams(), 2)
	assert.Len(t, h.decoders[0].configured, 2)

	odm, _ := h.f.Binding(b)
	assert.Same(t, s.Root(), odm)
}

func TestConfigureInput_SecondaryBeforePrimary(t *testing.T) {
	h := newHarness(t)

	err := h.f.ConfigureInput(scenePid("anim", 2, false), false)
	assert.ErrorIs(t, err, ErrNonCompliantBitstream)
	assert.Nil(t, h.f.Scene(), "a rejected stream must not create the scene")
	assert.Empty(t, h.decoders)
}

func TestConfigureInput_SecondaryAfterPrimary(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.f.ConfigureInput(scenePid("bifs", 1, true), false))

	anim := scenePid("anim", 2, false)
	require.NoError(t, h.f.ConfigureInput(anim, false))

	s := h.f.Scene()
	require.Len(t, s.Objects(), 1)
	child := s.Objects()[0]
	assert.Same(t, anim, child.Pid)
	assert.Same(t, s, child.Parent)
	assert.False(t, child.IsSceneRoot())
	assert.Len(t, h.decoders, 1)
	assert.Contains(t, h.decoders[0].configured, uint32(2))
}

func TestConfigureInput_MissingDecoderConfig(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *stream.MemPid)
	}{
		{"absent", func(p *stream.MemPid) { p.ClearProperty(stream.PropDecoderConfig) }},
		{"empty", func(p *stream.MemPid) { p.SetProperty(stream.PropDecoderConfig, stream.DataValue([]byte{})) }},
		{"nil", func(p *stream.MemPid) { p.SetProperty(stream.PropDecoderConfig, stream.DataValue(nil)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			pid := scenePid("bifs", 1, true)
			tt.setup(pid)

			err := h.f.ConfigureInput(pid, false)
			assert.ErrorIs(t, err, ErrNonCompliantBitstream)
			_, bound := h.f.Binding(pid)
			assert.False(t, bound)
		})
	}

	t.Run("secondary", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.f.ConfigureInput(scenePid("bifs", 1, true), false))
		pid := scenePid("anim", 2, false)
		pid.ClearProperty(stream.PropDecoderConfig)
		assert.ErrorIs(t, h.f.ConfigureInput(pid, false), ErrNonCompliantBitstream)
		assert.Empty(t, h.f.Scene().Objects())
	})
}

func TestConfigureInput_StructuredStreamWithRawCodec(t *testing.T) {
	h := newHarness(t)
	pid := scenePid("bifs", 1, true)
	pid.SetProperty(stream.PropObjectType, stream.UintValue(uint32(stream.ObjectTypeRawMedia)))

	assert.ErrorIs(t, h.f.ConfigureInput(pid, false), ErrNotSupported)
	assert.Nil(t, h.f.Scene())
}

func TestConfigureInput_DecoderConfigErrorPropagatesVerbatim(t *testing.T) {
	h := newUninitializedHarness(t, nil)
	boom := errors.New("bad decoder specific info")
	h.configErr = boom
	require.NoError(t, h.f.Initialize())

	pid := scenePid("bifs", 1, true)
	err := h.f.ConfigureInput(pid, false)
	assert.Same(t, boom, err, "decoder errors are not wrapped")

	_, bound := h.f.Binding(pid)
	assert.False(t, bound)
	assert.Nil(t, h.f.Scene(), "scene of a failed first stream is discarded")
	require.Len(t, h.decoders, 1)
	assert.True(t, h.decoders[0].closed)
}

func TestConfigureInput_RawMedia(t *testing.T) {
	h := newHarness(t)

	err := h.f.ConfigureInput(mediaPid("h264", stream.StreamVisual, stream.ObjectType(0x21)), false)
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.Nil(t, h.f.Scene())

	err = h.f.ConfigureInput(mediaPid("clock", stream.StreamClock, stream.ObjectTypeRawMedia), false)
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.Nil(t, h.f.Scene())

	video := mediaPid("video", stream.StreamVisual, stream.ObjectTypeRawMedia)
	require.NoError(t, h.f.ConfigureInput(video, false))
	s := h.f.Scene()
	require.NotNil(t, s)
	assert.Equal(t, scene.ModeDynamic, s.Mode)
	assert.Equal(t, 1, s.Regenerations())

	audio := mediaPid("audio", stream.StreamAudio, stream.ObjectTypeRawMedia)
	require.NoError(t, h.f.ConfigureInput(audio, false))
	assert.Same(t, s, h.f.Scene(), "dynamic scene is reused")
	assert.Equal(t, 2, s.Regenerations())
	assert.Len(t, s.Objects(), 2)
	assert.Empty(t, h.decoders)
}

func TestConfigureInput_TieBreak(t *testing.T) {
	t.Run("media first", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.f.ConfigureInput(mediaPid("video", stream.StreamVisual, stream.ObjectTypeRawMedia), false))

		err := h.f.ConfigureInput(scenePid("bifs", 1, true), false)
		assert.ErrorIs(t, err, ErrNotSupported)
		assert.Equal(t, scene.ModeDynamic, h.f.Scene().Mode)
		assert.Empty(t, h.decoders)
	})

	t.Run("scene first", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.f.ConfigureInput(scenePid("bifs", 1, true), false))

		err := h.f.ConfigureInput(mediaPid("video", stream.StreamVisual, stream.ObjectTypeRawMedia), false)
		assert.ErrorIs(t, err, ErrNotSupported)
		assert.Equal(t, scene.ModeAuthored, h.f.Scene().Mode)
		assert.Empty(t, h.f.Scene().Objects())
	})

	t.Run("failed first stream does not decide", func(t *testing.T) {
		h := newHarness(t)
		require.Error(t, h.f.ConfigureInput(scenePid("anim", 2, false), false))
		require.NoError(t, h.f.ConfigureInput(mediaPid("video", stream.StreamVisual, stream.ObjectTypeRawMedia), false))
		assert.Equal(t, scene.ModeDynamic, h.f.Scene().Mode)
	})
}

func TestConfigureInput_Reconfigure(t *testing.T) {
	h := newHarness(t)
	primary := scenePid("bifs", 1, true)
	require.NoError(t, h.f.ConfigureInput(primary, false))

	// Structured streams reconfigure as a no-op, whatever else changed.
	primary.ClearProperty(stream.PropDecoderConfig)
	assert.NoError(t, h.f.ConfigureInput(primary, false))
	assert.Len(t, h.decoders, 1)

	// A structured stream turning into raw media is a category change.
	primary.SetProperty(stream.PropStreamType, stream.UintValue(uint32(stream.StreamVisual)))
	assert.ErrorIs(t, h.f.ConfigureInput(primary, false), ErrNotSupported)

	m := newHarness(t)
	video := mediaPid("video", stream.StreamVisual, stream.ObjectTypeRawMedia)
	require.NoError(t, m.f.ConfigureInput(video, false))
	odm, _ := m.f.Binding(video)
	assert.False(t, odm.Object.ConfigChanged)

	require.NoError(t, m.f.ConfigureInput(video, false))
	assert.True(t, odm.Object.ConfigChanged)
	assert.Equal(t, 1, m.f.Scene().Regenerations(), "reconfiguration does not regenerate")

	video.SetProperty(stream.PropStreamType, stream.UintValue(uint32(stream.StreamAudio)))
	assert.ErrorIs(t, m.f.ConfigureInput(video, false), ErrNotSupported)
	assert.Equal(t, stream.StreamVisual, odm.Type, "category is immutable")
}

func TestConfigureInput_NoDecoderModule(t *testing.T) {
	reg := modules.NewRegistry()
	require.NoError(t, reg.Register(&modules.Module{
		Name: "soft",
		Kind: modules.KindEngine,
		NewEngine: func(engine.HostCallbacks, *config.Store) (engine.Engine, error) {
			return &fakeEngine{events: new([]string)}, nil
		},
	}))
	f := New(Options{Store: config.NewStore(nil), Modules: reg})
	require.NoError(t, f.Initialize())

	err := f.ConfigureInput(scenePid("bifs", 1, true), false)
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.ErrorIs(t, err, modules.ErrUnknownModule)
	assert.Nil(t, f.Scene())
}

func TestConfigureInput_DecoderModuleReturnsNoDecoder(t *testing.T) {
	reg := modules.NewRegistry()
	require.NoError(t, reg.Register(&modules.Module{
		Name: "soft",
		Kind: modules.KindEngine,
		NewEngine: func(engine.HostCallbacks, *config.Store) (engine.Engine, error) {
			return &fakeEngine{events: new([]string)}, nil
		},
	}))
	require.NoError(t, reg.Register(&modules.Module{
		Name:       "bifs",
		Kind:       modules.KindSceneDecoder,
		NewDecoder: func(*scene.Graph, bool) (scene.Decoder, error) { return nil, nil },
		Codecs:     []stream.ObjectType{stream.ObjectTypeSceneBIFS},
	}))
	f := New(Options{Store: config.NewStore(nil), Modules: reg})
	require.NoError(t, f.Initialize())

	pid := scenePid("bifs", 1, true)
	var err error
	require.NotPanics(t, func() { err = f.ConfigureInput(pid, false) })
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.ErrorIs(t, err, scene.ErrNoDecoder)
	assert.Nil(t, f.Scene())
	_, bound := f.Binding(pid)
	assert.False(t, bound)
	assert.Zero(t, f.Snapshot().Bound)
}
