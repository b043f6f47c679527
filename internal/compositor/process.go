package compositor

import (
	"fmt"

	"github.com/banshee-data/compositor/internal/compositor/stream"
)

// Process runs one render cycle. For every bound stream feeding a scene
// root it decodes at most one pending access unit and attaches the scene
// to the engine; then it steps the engine by exactly one frame, whatever
// happened before. A decode failure stops the stream loop and is returned
// after the frame step; the failing unit has been released and is not
// replayed.
func (f *Filter) Process() error {
	if f.engine == nil {
		return fmt.Errorf("%w: filter not initialized", ErrServiceError)
	}
	f.cycle++
	stats := CycleStats{Cycle: f.cycle}

	decodeErr := f.pump(&stats)

	noWait := f.store.Config().GetDrawNoWait()
	f.lastHint = f.engine.DrawFrame(noWait)
	stats.PacingMs = f.lastHint
	if !f.state.empty() {
		stats.SceneNodes = f.state.scene.Graph().Len()
	}

	if decodeErr != nil {
		f.lastError = decodeErr.Error()
		stats.DecodeErr = f.lastError
	}
	tracef("cycle %d: streams=%d decoded=%d next=%dms", f.cycle, stats.Streams, stats.Decoded, stats.PacingMs)

	f.record(stats)
	f.publish()
	return decodeErr
}

func (f *Filter) pump(stats *CycleStats) error {
	for _, pid := range f.inputs {
		odm := f.bindings[pid]
		if !odm.IsSceneRoot() {
			continue
		}
		s := odm.SubScene
		dec := s.Decoder()
		if dec == nil {
			continue
		}
		stats.Streams++

		pck, ok := pid.Packet()
		if !ok {
			continue
		}
		data := pck.Data()
		if len(data) == 0 && pck.EOS() {
			continue
		}

		var esID uint32
		if v, ok := pid.Property(stream.PropID); ok {
			esID = v.Uint
		}
		offset := presentationOffset(pck)

		err := dec.DecodeAccessUnit(esID, data, offset)
		pid.DropPacket()
		if err != nil {
			opsf("pid %s: decode es=%d at %.3fs: %v", pid.Name(), esID, offset, err)
			return err
		}
		stats.Decoded++
		s.AttachTo(f.engine)
	}
	return nil
}

// presentationOffset converts the packet's composition time to seconds. A
// packet without a timescale presents at zero.
func presentationOffset(pck stream.Packet) float64 {
	ts := pck.Timescale()
	if ts == 0 {
		return 0
	}
	return float64(pck.CTS()) / float64(ts)
}

func (f *Filter) record(stats CycleStats) {
	if f.opts.Recorder == nil || !f.store.Config().GetRecordCycles() {
		return
	}
	stats.SessionID = f.store.SessionID()
	stats.At = f.now()
	if err := f.opts.Recorder.RecordCycle(stats); err != nil {
		opsf("record cycle %d: %v", stats.Cycle, err)
	}
}
