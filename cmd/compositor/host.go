package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/banshee-data/compositor/internal/compositor"
	"github.com/banshee-data/compositor/internal/compositor/stream"
)

// source is one input stream the host feeds into the filter.
type source struct {
	pid *stream.MemPid
	gen *stream.Synthetic // nil for streams that carry no scene units
}

// sceneSources builds a primary scene-description stream fed by a
// synthetic generator and a secondary object-descriptor stream.
func sceneSources(fps float64) []source {
	gen := stream.NewSynthetic(fps)
	primary := stream.NewMemPid("scene").
		SetProperty(stream.PropID, stream.UintValue(1)).
		SetProperty(stream.PropStreamType, stream.UintValue(uint32(stream.StreamScene))).
		SetProperty(stream.PropObjectType, stream.UintValue(uint32(stream.ObjectTypeSceneBIFS))).
		SetProperty(stream.PropInIOD, stream.BoolValue(true)).
		SetProperty(stream.PropTimescale, stream.UintValue(gen.Timescale)).
		SetProperty(stream.PropDecoderConfig, stream.DataValue(gen.DecoderConfig(stream.ObjectTypeSceneBIFS)))
	od := stream.NewMemPid("od").
		SetProperty(stream.PropID, stream.UintValue(2)).
		SetProperty(stream.PropClockID, stream.UintValue(1)).
		SetProperty(stream.PropStreamType, stream.UintValue(uint32(stream.StreamOD))).
		SetProperty(stream.PropObjectType, stream.UintValue(uint32(stream.ObjectTypeSceneBIFS))).
		SetProperty(stream.PropDecoderConfig, stream.DataValue(gen.DecoderConfig(stream.ObjectTypeSceneBIFS)))
	return []source{{pid: primary, gen: gen}, {pid: od}}
}

// mediaSources builds raw audio and video streams for a dynamic scene.
func mediaSources() []source {
	video := stream.NewMemPid("video").
		SetProperty(stream.PropStreamType, stream.UintValue(uint32(stream.StreamVisual))).
		SetProperty(stream.PropObjectType, stream.UintValue(uint32(stream.ObjectTypeRawMedia)))
	audio := stream.NewMemPid("audio").
		SetProperty(stream.PropStreamType, stream.UintValue(uint32(stream.StreamAudio))).
		SetProperty(stream.PropObjectType, stream.UintValue(uint32(stream.ObjectTypeRawMedia)))
	return []source{{pid: video}, {pid: audio}}
}

// configure connects every source. A rejected stream is logged and left
// out; the host keeps running with the rest.
func configure(f stream.Filter, sources []source) []source {
	var bound []source
	for _, src := range sources {
		if err := f.ConfigureInput(src.pid, false); err != nil {
			log.Printf("stream %s rejected: %v", src.pid.Name(), err)
			continue
		}
		bound = append(bound, src)
	}
	return bound
}

// pacer is implemented by filters that expose the engine's next-frame hint.
type pacer interface {
	LastPacingHint() int
}

// runCycles drives f until ctx is done or maxCycles cycles ran (0 means no
// limit). Each cycle tops up the generators, runs one Process call and
// waits for the pacing hint. Decode errors are logged and do not stop the
// loop.
func runCycles(ctx context.Context, f stream.Filter, sources []source, maxCycles uint64) (uint64, error) {
	var cycles uint64
	for maxCycles == 0 || cycles < maxCycles {
		if err := ctx.Err(); err != nil {
			return cycles, nil
		}
		for _, src := range sources {
			if src.gen != nil && src.pid.Pending() == 0 {
				src.pid.Push(src.gen.Next())
			}
		}

		err := f.Process()
		cycles++
		switch {
		case err == nil:
		case isFatal(err):
			return cycles, fmt.Errorf("cycle %d: %w", cycles, err)
		default:
			log.Printf("cycle %d: %v", cycles, err)
		}

		wait := 0
		if p, ok := f.(pacer); ok {
			wait = p.LastPacingHint()
		}
		if wait > 0 {
			t := time.NewTimer(time.Duration(wait) * time.Millisecond)
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
		}
	}
	return cycles, nil
}

func isFatal(err error) bool {
	return errors.Is(err, compositor.ErrServiceError)
}
