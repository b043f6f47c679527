package compositor

import (
	"fmt"

	"github.com/banshee-data/compositor/internal/compositor/scene"
	"github.com/banshee-data/compositor/internal/compositor/stream"
)

// ConfigureInput classifies pid and binds it into the scene, or rejects
// it. Removal is not supported. A stream already bound may only be
// reconfigured within its original category.
func (f *Filter) ConfigureInput(pid stream.Pid, isRemove bool) error {
	if isRemove {
		opsf("pid %s: removal not supported", pid.Name())
		return fmt.Errorf("%w: stream removal", ErrNotSupported)
	}
	if f.engine == nil {
		return fmt.Errorf("%w: filter not initialized", ErrServiceError)
	}

	var esID uint32
	if v, ok := pid.Property(stream.PropID); ok {
		esID = v.Uint
	}
	v, ok := pid.Property(stream.PropStreamType)
	if !ok {
		return fmt.Errorf("%w: pid %s has no stream type", ErrNotSupported, pid.Name())
	}
	st := stream.StreamType(v.Uint)
	v, ok = pid.Property(stream.PropObjectType)
	if !ok {
		return fmt.Errorf("%w: pid %s has no codec", ErrNotSupported, pid.Name())
	}
	oti := stream.ObjectType(v.Uint)

	if odm, bound := f.bindings[pid]; bound {
		return f.reconfigure(pid, odm, st)
	}

	var err error
	if st.IsStructured() {
		err = f.bindStructured(pid, st, oti, esID)
	} else {
		err = f.bindMedia(pid, st, oti)
	}
	if err != nil {
		opsf("pid %s (%s/%s): %v", pid.Name(), st, oti, err)
		return err
	}
	f.publish()
	return nil
}

func (f *Filter) reconfigure(pid stream.Pid, odm *scene.ObjectManager, st stream.StreamType) error {
	if st.IsStructured() {
		return nil
	}
	if odm.Type != st {
		opsf("pid %s: stream type change %s -> %s", pid.Name(), odm.Type, st)
		return fmt.Errorf("%w: stream type change %s -> %s", ErrNotSupported, odm.Type, st)
	}
	if odm.Object != nil {
		odm.Object.ConfigChanged = true
	}
	diagf("pid %s: configuration changed", pid.Name())
	return nil
}

// bindMedia inserts a raw audio/visual stream into the dynamic scene and
// regenerates its default graph.
func (f *Filter) bindMedia(pid stream.Pid, st stream.StreamType, oti stream.ObjectType) error {
	if oti != stream.ObjectTypeRawMedia {
		return fmt.Errorf("%w: codec %s on %s stream", ErrNotSupported, oti, st)
	}
	if st != stream.StreamAudio && st != stream.StreamVisual {
		return fmt.Errorf("%w: stream type %s", ErrNotSupported, st)
	}

	s, fresh, err := f.sceneFor(scene.ModeDynamic)
	if err != nil {
		return err
	}
	odm, err := s.InsertObject(s.Root().Namespace, pid, st)
	if err != nil {
		return err
	}
	if fresh {
		f.commitScene(s)
	}
	f.bind(pid, odm)
	s.Regenerate()
	diagf("pid %s: inserted %s object into %s", pid.Name(), st, s)
	return nil
}

// sceneFor returns the scene a stream of the given mode binds into. When
// no scene exists a new one is built but not committed: the caller commits
// it once the stream is successfully bound, so a failed stream never fixes
// the scene's mode. A scene of the other mode rejects the stream.
func (f *Filter) sceneFor(mode scene.Mode) (s *scene.Scene, fresh bool, err error) {
	if f.state.empty() {
		return scene.New(mode, f.store.Config().GetSceneNamespace()), true, nil
	}
	if f.state.mode != mode {
		return nil, false, fmt.Errorf("%w: %s stream on %s scene", ErrNotSupported, mode, f.state.mode)
	}
	return f.state.scene, false, nil
}

func (f *Filter) commitScene(s *scene.Scene) {
	f.state = sceneState{mode: s.Mode, scene: s}
	diagf("created %s", s)
}

func (f *Filter) bind(pid stream.Pid, odm *scene.ObjectManager) {
	f.bindings[pid] = odm
	f.inputs = append(f.inputs, pid)
}
