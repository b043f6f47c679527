package compositor

import (
	"fmt"

	"github.com/banshee-data/compositor/internal/compositor/scene"
	"github.com/banshee-data/compositor/internal/compositor/stream"
)

// bindStructured binds an object-descriptor or scene-description stream.
//
// The primary (in-IOD) stream owns the scene decoder: the first one creates
// it and becomes the root stream, later ones share both. Secondary streams
// are inserted as child objects and require the decoder to exist already.
// Every structured stream must carry decoder configuration. Nothing is
// bound unless the decoder accepts the stream configuration; its error is
// returned as is.
func (f *Filter) bindStructured(pid stream.Pid, st stream.StreamType, oti stream.ObjectType, esID uint32) error {
	if !oti.IsSceneCodec() {
		return fmt.Errorf("%w: codec %s on %s stream", ErrNotSupported, oti, st)
	}

	primary := false
	if v, ok := pid.Property(stream.PropInIOD); ok && v.Bool {
		primary = true
	}

	s, fresh, err := f.sceneFor(scene.ModeAuthored)
	if err != nil {
		return err
	}
	if !primary && s.Decoder() == nil {
		return fmt.Errorf("%w: secondary stream %s before primary", ErrNonCompliantBitstream, pid.Name())
	}

	dsi, ok := pid.Property(stream.PropDecoderConfig)
	if !ok || len(dsi.Data) == 0 {
		return fmt.Errorf("%w: pid %s has no decoder configuration", ErrNonCompliantBitstream, pid.Name())
	}

	dec := s.Decoder()
	if dec == nil {
		newDecoder, err := f.modules.SceneDecoder(oti)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotSupported, err)
		}
		if dec, _, err = s.EnsureDecoder(newDecoder); err != nil {
			return fmt.Errorf("%w: %s decoder: %w", ErrNotSupported, oti, err)
		}
		diagf("scene %s: created %s decoder", s.ID, oti)
	}

	if err := dec.ConfigureStream(esID, dsi.Data, oti); err != nil {
		if fresh {
			// The scene was never committed; drop it with its decoder.
			_ = s.Root().Disconnect()
		}
		return err
	}

	if fresh {
		f.commitScene(s)
	}
	root := s.Root()
	if primary {
		if root.Pid == nil {
			root.Pid = pid
		}
		root.SetupStream(pid)
		f.bind(pid, root)
		diagf("pid %s: bound as scene root stream es=%d clock=%d", pid.Name(), esID, root.ClockID)
		return nil
	}

	odm, err := s.InsertObject(root.Namespace, pid, st)
	if err != nil {
		return err
	}
	f.bind(pid, odm)
	diagf("pid %s: inserted secondary %s stream es=%d", pid.Name(), st, esID)
	return nil
}
