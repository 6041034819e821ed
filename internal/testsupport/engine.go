package testsupport

import (
	"testing"

	"splicer/internal/engine"
	"splicer/internal/timeline"
)

// NewEngine returns an engine over an empty composition with the given
// tracks and a memory backend. The engine is closed on cleanup.
func NewEngine(t testing.TB, videoTracks, audioTracks int) *engine.Engine {
	t.Helper()

	e, err := engine.New(timeline.NewDefaultTractor(videoTracks, audioTracks), engine.Options{})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() {
		_ = e.Close()
	})
	return e
}

// Source returns a file producer with a long enough declared length for
// any test edit.
func Source(id string) *timeline.Producer {
	return timeline.NewProducer(id, timeline.ServiceAvformat, id+".mp4", 10000)
}

// PlaceClip inserts a cut of prod of length frames at start on track.
func PlaceClip(t testing.TB, e *engine.Engine, track, start, length int, prod *timeline.Producer) {
	t.Helper()

	p := engine.ClipPlacement{Track: track, Start: start, End: start + length}
	if _, err := e.InsertClip(p, prod, false, false); err != nil {
		t.Fatalf("insert clip on track %d at %d: %v", track, start, err)
	}
}
