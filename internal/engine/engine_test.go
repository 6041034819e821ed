package engine_test

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splicer/internal/effects"
	"splicer/internal/engine"
	"splicer/internal/mltxml"
	"splicer/internal/services"
	"splicer/internal/slowmo"
	"splicer/internal/timeline"
)

type recorder struct {
	mu        sync.Mutex
	durations []int
	invalid   []string
	refreshes int
	frames    []int
	stopped   []int
}

func (r *recorder) NotifyDurationChanged(frames int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, frames)
}

func (r *recorder) NotifyClipInvalid(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalid = append(r.invalid, id)
}

func (r *recorder) NotifyRefresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
}

func (r *recorder) NotifyFramePosition(frame int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *recorder) NotifyConsumerStopped(frame int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, frame)
}

type fixture struct {
	*engine.Engine
	backend *engine.MemoryBackend
	events  *recorder
}

func newFixture(t *testing.T, videoTracks, audioTracks int) fixture {
	t.Helper()
	backend := engine.NewMemoryBackend()
	events := &recorder{}
	e, err := engine.New(timeline.NewDefaultTractor(videoTracks, audioTracks), engine.Options{
		Backend:  backend,
		Notifier: events,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return fixture{Engine: e, backend: backend, events: events}
}

func source(id string) *timeline.Producer {
	return timeline.NewProducer(id, timeline.ServiceAvformat, id+".mp4", 1000)
}

func (f fixture) place(t *testing.T, track, start, length int, prod *timeline.Producer) {
	t.Helper()
	_, err := f.InsertClip(engine.ClipPlacement{Track: track, Start: start, End: start + length}, prod, false, false)
	require.NoError(t, err)
}

// layout renders a track as "id@start+length" tokens, "_" for blanks.
func (f fixture) layout(t *testing.T, track int) []string {
	t.Helper()
	entries, err := f.Entries(track)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		id := "_"
		if !e.IsBlank() {
			id = e.Clip.ID()
		}
		out = append(out, fmt.Sprintf("%s@%d+%d", id, e.Start, e.Length))
	}
	return out
}

func (f fixture) clip(t *testing.T, track, pos int) *timeline.Clip {
	t.Helper()
	entries, err := f.Entries(track)
	require.NoError(t, err)
	for _, e := range entries {
		if pos >= e.Start && pos < e.End() {
			require.False(t, e.IsBlank(), "frame %d of track %d is blank", pos, track)
			return e.Clip
		}
	}
	t.Fatalf("frame %d is past the end of track %d", pos, track)
	return nil
}

func (f fixture) transitions() []*timeline.Transition {
	var out []*timeline.Transition
	f.View(func(tr *timeline.Tractor) {
		for _, t := range tr.Transitions {
			if !t.IsMix() {
				out = append(out, t.Clone())
			}
		}
	})
	return out
}

func (f fixture) mixPairs() [][2]int {
	var out [][2]int
	f.View(func(tr *timeline.Tractor) {
		for _, t := range tr.Transitions {
			if t.IsMix() {
				out = append(out, [2]int{t.ATrack, t.BTrack})
			}
		}
	})
	return out
}

func filterIndexes(c *timeline.Clip) map[string]int {
	out := make(map[string]int)
	for _, f := range c.Filters.All() {
		out[f.EffectID] = f.Index
	}
	return out
}

func TestInsertClipPushSplitsAndShifts(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 100, source("a"))

	idx, err := f.InsertClip(engine.ClipPlacement{Track: 1, Start: 50, End: 70}, source("b"), false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, []string{"a@0+50", "b@50+20", "a@70+50"}, f.layout(t, 1))
	assert.Equal(t, 120, f.Duration())

	second := f.clip(t, 1, 70)
	assert.Equal(t, 50, second.In)
	assert.Equal(t, 99, second.Out)
}

func TestInsertClipOverwriteKeepsLength(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 100, source("a"))

	_, err := f.InsertClip(engine.ClipPlacement{Track: 1, Start: 40, End: 70}, source("b"), true, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@0+40", "b@40+30", "a@70+30"}, f.layout(t, 1))
	assert.Equal(t, 100, f.Duration())
	assert.Equal(t, 70, f.clip(t, 1, 70).In)
}

func TestInsertClipOverwriteLongerThanTrack(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 10, 20, source("a"))

	_, err := f.InsertClip(engine.ClipPlacement{Track: 1, Start: 0, End: 50}, source("b"), true, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@0+50"}, f.layout(t, 1))
}

func TestInsertClipIntoBlank(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 100, 10, source("a"))

	idx, err := f.InsertClip(engine.ClipPlacement{Track: 1, Start: 20, End: 40, CropStart: 5}, source("b"), false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, []string{"_@0+20", "b@20+20", "_@40+60", "a@100+10"}, f.layout(t, 1))
	assert.Equal(t, 5, f.clip(t, 1, 20).In)
}

func TestInsertClipRejectsBadInput(t *testing.T) {
	f := newFixture(t, 2, 0)

	_, err := f.InsertClip(engine.ClipPlacement{Track: 0, Start: 0, End: 10}, source("a"), false, false)
	assert.ErrorIs(t, err, services.ErrTopology)

	_, err = f.InsertClip(engine.ClipPlacement{Track: 1, Start: 10, End: 10}, source("a"), false, false)
	assert.ErrorIs(t, err, services.ErrValidation)

	broken := timeline.NewProducer("missing", timeline.ServiceAvformat, "missing.mp4", 0)
	_, err = f.InsertClip(engine.ClipPlacement{Track: 1, Start: 0, End: 10}, broken, false, false)
	assert.ErrorIs(t, err, services.ErrProducer)
	assert.Equal(t, []string{"missing"}, f.events.invalid)
	assert.Empty(t, f.layout(t, 1))
}

func TestLockedTrackRejectsEdits(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))
	require.NoError(t, f.SetTrackLocked(1, true))

	_, err := f.InsertClip(engine.ClipPlacement{Track: 1, Start: 60, End: 70}, source("b"), false, false)
	assert.ErrorIs(t, err, services.ErrLocked)
	assert.ErrorIs(t, f.RemoveClip(1, 10), services.ErrLocked)

	require.NoError(t, f.SetTrackLocked(1, false))
	assert.NoError(t, f.RemoveClip(1, 10))
}

func TestCutClipCopiesDuplicableEffects(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 100, source("a"))
	require.NoError(t, f.AddEffect(1, 10, effects.NewParams("id", "brightness", "tag", "brightness", "kdenlive_ix", "1")))
	require.NoError(t, f.AddEffect(1, 10, effects.NewParams("id", "fadein", "tag", "volume", "kdenlive_ix", "2")))

	require.NoError(t, f.CutClip(1, 40))
	assert.Equal(t, []string{"a@0+40", "a@40+60"}, f.layout(t, 1))
	assert.Equal(t, map[string]int{"brightness": 1, "fadein": 2}, filterIndexes(f.clip(t, 1, 0)))
	assert.Equal(t, map[string]int{"brightness": 1}, filterIndexes(f.clip(t, 1, 40)))

	assert.ErrorIs(t, f.CutClip(1, 500), services.ErrOccupancy)
}

func TestRemoveClipLeavesBlank(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))
	f.place(t, 1, 50, 50, source("b"))

	require.NoError(t, f.RemoveClip(1, 10))
	assert.Equal(t, []string{"_@0+50", "b@50+50"}, f.layout(t, 1))

	require.NoError(t, f.RemoveClip(1, 60))
	assert.Equal(t, []string{"_@0+100"}, f.layout(t, 1))
	require.NoError(t, f.CheckTrackSequence(1, nil))

	assert.ErrorIs(t, f.RemoveClip(1, 10), services.ErrOccupancy)
}

func TestUpdateClipMovesEffects(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))
	f.place(t, 1, 80, 20, source("c"))
	require.NoError(t, f.AddEffect(1, 0, effects.NewParams("id", "blur", "tag", "boxblur", "kdenlive_ix", "1")))

	err := f.UpdateClip(engine.ClipPlacement{Track: 1, Start: 0, CropStart: 10, CropDuration: 30}, source("b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b@0+30", "_@30+50", "c@80+20"}, f.layout(t, 1))
	updated := f.clip(t, 1, 0)
	assert.Equal(t, 10, updated.In)
	assert.Equal(t, map[string]int{"blur": 1}, filterIndexes(updated))
}

func TestUpdateClipProducerKeepsRange(t *testing.T) {
	f := newFixture(t, 2, 0)
	_, err := f.InsertClip(engine.ClipPlacement{Track: 1, Start: 10, End: 40, CropStart: 5}, source("a"), false, false)
	require.NoError(t, err)

	require.NoError(t, f.UpdateClipProducer(1, 20, source("b")))
	assert.Equal(t, []string{"_@0+10", "b@10+30"}, f.layout(t, 1))
	assert.Equal(t, 5, f.clip(t, 1, 10).In)
}

func TestMoveClipAcrossTracks(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))

	require.NoError(t, f.MoveClip(1, 2, 0, 50, nil, false))
	assert.Equal(t, []string{"_@0+50"}, f.layout(t, 1))
	assert.Equal(t, []string{"_@0+50", "a@50+50"}, f.layout(t, 2))
	assert.Equal(t, 100, f.Duration())
}

func TestMoveClipRejectsOccupiedDestination(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))
	f.place(t, 1, 50, 50, source("b"))
	f.place(t, 2, 0, 30, source("c"))
	before := f.layout(t, 1)

	assert.ErrorIs(t, f.MoveClip(1, 1, 0, 60, nil, false), services.ErrOccupancy)
	assert.Equal(t, before, f.layout(t, 1))

	assert.ErrorIs(t, f.MoveClip(1, 2, 0, 10, nil, false), services.ErrOccupancy)
	assert.Equal(t, before, f.layout(t, 1))
	assert.Equal(t, []string{"c@0+30"}, f.layout(t, 2))
}

func TestMoveClipRejectsBlankShorterThanClip(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))
	f.place(t, 1, 60, 40, source("b"))
	f.place(t, 2, 0, 10, source("c"))
	f.place(t, 2, 40, 20, source("d"))
	track1, track2 := f.layout(t, 1), f.layout(t, 2)

	assert.ErrorIs(t, f.MoveClip(1, 1, 0, 50, nil, false), services.ErrOccupancy)
	assert.Equal(t, track1, f.layout(t, 1))
	assert.Equal(t, 100, f.Duration())

	assert.ErrorIs(t, f.MoveClip(1, 2, 0, 10, nil, false), services.ErrOccupancy)
	assert.Equal(t, track1, f.layout(t, 1))
	assert.Equal(t, track2, f.layout(t, 2))

	// Past the last entry there is always room.
	require.NoError(t, f.MoveClip(1, 2, 0, 70, nil, false))
	assert.Equal(t, []string{"_@0+60", "b@60+40"}, f.layout(t, 1))
	assert.Equal(t, []string{"c@0+10", "_@10+30", "d@40+20", "_@60+10", "a@70+50"}, f.layout(t, 2))
}

func TestMoveClipWithinTrack(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 20, source("a"))
	f.place(t, 1, 50, 10, source("b"))

	require.NoError(t, f.MoveClip(1, 1, 0, 25, nil, false))
	assert.Equal(t, []string{"_@0+25", "a@25+20", "_@45+5", "b@50+10"}, f.layout(t, 1))
}

func TestMoveClipOverwrite(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 20, source("a"))
	f.place(t, 2, 0, 100, source("b"))

	require.NoError(t, f.MoveClip(1, 2, 0, 30, nil, true))
	assert.Equal(t, []string{"_@0+20"}, f.layout(t, 1))
	assert.Equal(t, []string{"b@0+30", "a@30+20", "b@50+50"}, f.layout(t, 2))
}

func TestResizeClipEnd(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))
	f.place(t, 1, 70, 30, source("b"))
	at := engine.ClipPlacement{Track: 1, Start: 0}

	require.NoError(t, f.ResizeClipEnd(at, 60))
	assert.Equal(t, []string{"a@0+60", "_@60+10", "b@70+30"}, f.layout(t, 1))

	assert.ErrorIs(t, f.ResizeClipEnd(at, 90), services.ErrOccupancy)
	assert.Equal(t, []string{"a@0+60", "_@60+10", "b@70+30"}, f.layout(t, 1))

	require.NoError(t, f.ResizeClipEnd(at, 70))
	assert.Equal(t, []string{"a@0+70", "b@70+30"}, f.layout(t, 1))

	require.NoError(t, f.ResizeClipEnd(at, 40))
	assert.Equal(t, []string{"a@0+40", "_@40+30", "b@70+30"}, f.layout(t, 1))

	last := engine.ClipPlacement{Track: 1, Start: 70}
	require.NoError(t, f.ResizeClipEnd(last, 80))
	assert.Equal(t, 150, f.Duration())
	assert.Equal(t, []int{100, 150}, f.events.durations[len(f.events.durations)-2:])
}

func TestResizeClipStart(t *testing.T) {
	f := newFixture(t, 2, 0)
	_, err := f.InsertClip(engine.ClipPlacement{Track: 1, Start: 20, End: 70, CropStart: 30}, source("a"), false, false)
	require.NoError(t, err)

	require.NoError(t, f.ResizeClipStart(engine.ClipPlacement{Track: 1, Start: 20}, -10))
	assert.Equal(t, []string{"_@0+10", "a@10+60"}, f.layout(t, 1))
	assert.Equal(t, 20, f.clip(t, 1, 10).In)

	require.NoError(t, f.ResizeClipStart(engine.ClipPlacement{Track: 1, Start: 10}, 5))
	assert.Equal(t, []string{"_@0+15", "a@15+55"}, f.layout(t, 1))
	assert.Equal(t, 25, f.clip(t, 1, 15).In)

	assert.ErrorIs(t, f.ResizeClipStart(engine.ClipPlacement{Track: 1, Start: 15}, -20), services.ErrOccupancy)
	assert.ErrorIs(t, f.ResizeClipStart(engine.ClipPlacement{Track: 1, Start: 15}, 60), services.ErrValidation)
}

func TestResizeClipCrop(t *testing.T) {
	f := newFixture(t, 2, 0)
	_, err := f.InsertClip(engine.ClipPlacement{Track: 1, Start: 0, End: 50, CropStart: 100}, source("a"), false, false)
	require.NoError(t, err)

	require.NoError(t, f.ResizeClipCrop(engine.ClipPlacement{Track: 1, Start: 0}, 25))
	c := f.clip(t, 1, 0)
	assert.Equal(t, 125, c.In)
	assert.Equal(t, 174, c.Out)
	assert.Equal(t, []string{"a@0+50"}, f.layout(t, 1))

	assert.ErrorIs(t, f.ResizeClipCrop(engine.ClipPlacement{Track: 1, Start: 0}, 2000), services.ErrCapacity)
}

func TestInsertSpaceOnAllTracks(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))
	f.place(t, 2, 10, 30, source("b"))
	require.NoError(t, f.AddTransition("luma", 1, 2, 30, 40, effects.TransitionDescription{}))

	require.NoError(t, f.InsertSpace(engine.AllTracks, 20, 5))
	assert.Equal(t, []string{"_@0+20", "a@20+50"}, f.layout(t, 1))
	assert.Equal(t, []string{"_@0+30", "b@30+30"}, f.layout(t, 2))
	trs := f.transitions()
	require.Len(t, trs, 1)
	assert.Equal(t, 50, trs[0].In)
	assert.Equal(t, 59, trs[0].Out)

	assert.ErrorIs(t, f.InsertSpace(engine.AllTracks, -25, 5), services.ErrOccupancy)
	assert.Equal(t, []string{"_@0+20", "a@20+50"}, f.layout(t, 1))

	require.NoError(t, f.InsertSpace(engine.AllTracks, -20, 5))
	assert.Equal(t, []string{"a@0+50"}, f.layout(t, 1))
	assert.Equal(t, []string{"_@0+10", "b@10+30"}, f.layout(t, 2))
	assert.Equal(t, 30, f.transitions()[0].In)
}

func TestInsertSpaceOnAllTracksLeavesLockedAndShortTracks(t *testing.T) {
	f := newFixture(t, 3, 0)
	f.place(t, 1, 0, 50, source("a"))
	f.place(t, 2, 20, 30, source("c"))
	f.place(t, 3, 0, 10, source("b"))
	require.NoError(t, f.AddTransition("luma", 0, 1, 20, 30, effects.TransitionDescription{}))
	require.NoError(t, f.AddTransition("luma", 1, 2, 30, 40, effects.TransitionDescription{}))
	require.NoError(t, f.AddTransition("luma", 2, 3, 20, 30, effects.TransitionDescription{}))
	require.NoError(t, f.SetTrackLocked(2, true))
	starts := func() map[int]int {
		out := make(map[int]int)
		for _, tr := range f.transitions() {
			out[tr.BTrack] = tr.In
		}
		return out
	}

	assert.ErrorIs(t, f.InsertSpace(2, 15, 0), services.ErrLocked)

	require.NoError(t, f.InsertSpace(engine.AllTracks, 15, 12))
	assert.Equal(t, []string{"_@0+15", "a@15+50"}, f.layout(t, 1))
	assert.Equal(t, []string{"_@0+20", "c@20+30"}, f.layout(t, 2))
	assert.Equal(t, []string{"b@0+10"}, f.layout(t, 3))
	assert.Equal(t, map[int]int{1: 35, 2: 30, 3: 20}, starts())

	require.NoError(t, f.InsertSpace(engine.AllTracks, -15, 12))
	assert.Equal(t, []string{"a@0+50"}, f.layout(t, 1))
	assert.Equal(t, []string{"_@0+20", "c@20+30"}, f.layout(t, 2))
	assert.Equal(t, map[int]int{1: 20, 2: 30, 3: 20}, starts())
}

func TestInsertSpaceSingleTrackSkipsOtherTransitions(t *testing.T) {
	f := newFixture(t, 3, 0)
	f.place(t, 2, 0, 50, source("a"))
	require.NoError(t, f.AddTransition("luma", 1, 2, 10, 20, effects.TransitionDescription{}))
	require.NoError(t, f.AddTransition("luma", 2, 3, 10, 20, effects.TransitionDescription{}))

	require.NoError(t, f.InsertSpace(2, 10, 0))
	assert.Equal(t, []string{"_@0+10", "a@10+50"}, f.layout(t, 2))
	for _, tr := range f.transitions() {
		if tr.BTrack == 2 {
			assert.Equal(t, 20, tr.In)
		} else {
			assert.Equal(t, 10, tr.In)
		}
	}
}

func TestSpaceLengthAndTrackDuration(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 2, 10, 30, source("b"))

	cases := []struct {
		pos       int
		fromStart bool
		want      int
	}{
		{pos: 4, want: 6},
		{pos: 4, fromStart: true, want: 10},
		{pos: 15, want: 0},
		{pos: 100, want: -1},
	}
	for _, tc := range cases {
		got, err := f.SpaceLength(tc.pos, 2, tc.fromStart)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "pos %d fromStart %v", tc.pos, tc.fromStart)
	}

	last, err := f.TrackDuration(2)
	require.NoError(t, err)
	assert.Equal(t, 39, last)
	last, err = f.TrackDuration(1)
	require.NoError(t, err)
	assert.Equal(t, -1, last)

	_, err = f.SpaceLength(0, 9, false)
	assert.ErrorIs(t, err, services.ErrTopology)
}

func TestCheckTrackSequence(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 10, source("a"))
	f.place(t, 1, 30, 10, source("b"))

	assert.NoError(t, f.CheckTrackSequence(1, []int{0, 30}))
	assert.ErrorIs(t, f.CheckTrackSequence(1, []int{0, 20}), services.ErrValidation)
}

func TestChangeClipSpeedSharesResampledProducer(t *testing.T) {
	f := newFixture(t, 2, 0)
	src := source("a")
	f.place(t, 1, 0, 100, src)
	whole := engine.ClipPlacement{Track: 1, Start: 0, End: 100, CropDuration: 100}

	length, err := f.ChangeClipSpeed(whole, whole, 2.0, 1, src)
	require.NoError(t, err)
	assert.InDelta(t, 50, length, 1)
	assert.Equal(t, 1, f.Cache().Len())

	resampled := f.clip(t, 1, 0).Producer
	assert.Equal(t, timeline.ServiceFramebuffer, resampled.Service)
	assert.True(t, slowmo.IsResampledID(resampled.ID))

	length, err = f.ChangeClipSpeed(whole, whole, 2.0, 1, src)
	require.NoError(t, err)
	assert.InDelta(t, 50, length, 1)
	assert.Equal(t, 1, f.Cache().Len())
	assert.Same(t, resampled, f.clip(t, 1, 0).Producer)

	length, err = f.ChangeClipSpeed(whole, whole, 1.0, 1, src)
	require.NoError(t, err)
	assert.Equal(t, 100, length)
	assert.Same(t, src, f.clip(t, 1, 0).Producer)
}

func TestChangeClipSpeedFromResampledClip(t *testing.T) {
	f := newFixture(t, 2, 0)
	src := source("a")
	f.place(t, 1, 0, 100, src)
	at := engine.ClipPlacement{Track: 1, Start: 0}

	length, err := f.ChangeClipSpeed(at, engine.ClipPlacement{}, 2.0, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, length)

	length, err = f.ChangeClipSpeed(at, engine.ClipPlacement{}, 0.5, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, length)
	assert.InDelta(t, 0.5, slowmo.Speed(f.clip(t, 1, 0).Producer), 1e-9)

	length, err = f.ChangeClipSpeed(at, engine.ClipPlacement{}, 1.0, 1, src)
	require.NoError(t, err)
	assert.Equal(t, 100, length)
}

func TestChangeClipSpeedTruncatesToBlank(t *testing.T) {
	f := newFixture(t, 2, 0)
	src := source("a")
	f.place(t, 1, 0, 40, src)
	f.place(t, 1, 60, 10, source("b"))
	at := engine.ClipPlacement{Track: 1, Start: 0, End: 40, CropDuration: 40}

	length, err := f.ChangeClipSpeed(at, at, 0.5, 1, src)
	require.NoError(t, err)
	assert.Equal(t, 60, length)
	assert.Equal(t, 60, f.clip(t, 1, 0).Length())
	require.NoError(t, f.CheckTrackSequence(1, []int{0, 60}))
}

func TestChangeClipSpeedRejectsGenerators(t *testing.T) {
	f := newFixture(t, 2, 0)
	title := timeline.NewProducer("title", timeline.ServicePango, "title.txt", 200)
	f.place(t, 1, 0, 50, title)
	at := engine.ClipPlacement{Track: 1, Start: 0, End: 50, CropDuration: 50}

	_, err := f.ChangeClipSpeed(at, at, 2.0, 1, nil)
	assert.ErrorIs(t, err, services.ErrProducer)
	assert.Equal(t, []string{"title@0+50"}, f.layout(t, 1))
}

func TestProducersListSkipsResampled(t *testing.T) {
	f := newFixture(t, 2, 0)
	a, b := source("a"), source("b")
	f.place(t, 1, 0, 100, a)
	f.place(t, 2, 0, 100, b)
	whole := engine.ClipPlacement{Track: 1, Start: 0, End: 100, CropDuration: 100}
	_, err := f.ChangeClipSpeed(whole, whole, 2.0, 1, a)
	require.NoError(t, err)

	producers := f.ProducersList()
	require.Len(t, producers, 1)
	assert.Equal(t, "b", producers[0].ID)
	assert.Equal(t, 0, f.FillSlowMotionProducers())
}

func TestClipEffectStack(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))
	brightness := effects.NewParams("id", "brightness", "tag", "brightness", "kdenlive_ix", "1", "level", "1")
	blur := effects.NewParams("id", "blur", "tag", "boxblur", "kdenlive_ix", "1")
	sepia := effects.NewParams("id", "sepia", "tag", "sepia", "kdenlive_ix", "3")

	require.NoError(t, f.AddEffect(1, 0, brightness))
	require.NoError(t, f.AddEffect(1, 0, blur))
	require.NoError(t, f.AddEffect(1, 0, sepia))
	assert.Equal(t, map[string]int{"blur": 1, "brightness": 2, "sepia": 3}, filterIndexes(f.clip(t, 1, 0)))

	require.NoError(t, f.MoveEffect(1, 0, 3, 1))
	assert.Equal(t, map[string]int{"sepia": 1, "blur": 2, "brightness": 3}, filterIndexes(f.clip(t, 1, 0)))

	edit := effects.NewParams("id", "brightness", "tag", "brightness", "kdenlive_ix", "3", "level", "2")
	require.NoError(t, f.EditEffect(1, 0, edit))
	for _, flt := range f.clip(t, 1, 0).Filters.WithIndex(3) {
		assert.Equal(t, "2", flt.Props.Get("level"))
	}

	require.NoError(t, f.RemoveEffect(1, 0, 1, true))
	assert.Equal(t, map[string]int{"blur": 1, "brightness": 2}, filterIndexes(f.clip(t, 1, 0)))

	require.NoError(t, f.UpdateEffectPosition(1, 0, 2, 5))
	assert.Equal(t, map[string]int{"blur": 1, "brightness": 5}, filterIndexes(f.clip(t, 1, 0)))

	assert.ErrorIs(t, f.MoveEffect(1, 0, 9, 1), services.ErrNotFound)
	require.NoError(t, f.RemoveEffect(1, 0, engine.AllEffects, false))
	assert.Empty(t, filterIndexes(f.clip(t, 1, 0)))
}

func TestSpeedEffectReservesSlot(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))
	require.NoError(t, f.AddEffect(1, 0, effects.NewParams("id", "blur", "tag", "boxblur", "kdenlive_ix", "1")))

	require.NoError(t, f.AddEffect(1, 0, effects.NewParams("id", "speed", "tag", "speed", "kdenlive_ix", "1")))
	assert.Equal(t, map[string]int{"blur": 2}, filterIndexes(f.clip(t, 1, 0)))
}

func TestTrackEffects(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))
	params := effects.NewParams("id", "gain", "tag", "volume", "kdenlive_ix", "1", "gain", "0.5")

	require.NoError(t, f.AddTrackEffect(1, params))
	missing := effects.NewParams("id", "gain", "tag", "volume", "kdenlive_ix", "4")
	assert.ErrorIs(t, f.EditTrackEffect(1, missing), services.ErrNotFound)

	require.NoError(t, f.AddTrackEffect(1, effects.NewParams("id", "mute", "tag", "volume", "kdenlive_ix", "2")))
	require.NoError(t, f.MoveTrackEffect(1, 2, 1))
	require.NoError(t, f.RemoveTrackEffect(1, 1, true))

	var remaining map[string]int
	f.View(func(tr *timeline.Tractor) {
		remaining = make(map[string]int)
		for _, flt := range tr.Tracks[1].Filters.All() {
			remaining[flt.EffectID] = flt.Index
		}
	})
	assert.Equal(t, map[string]int{"gain": 1}, remaining)
}

func TestTransitionLifecycle(t *testing.T) {
	f := newFixture(t, 3, 0)
	desc := effects.TransitionDescription{ID: "dissolve"}

	require.NoError(t, f.AddTransition("luma", 1, 2, 10, 30, desc))
	trs := f.transitions()
	require.Len(t, trs, 1)
	assert.Equal(t, 10, trs[0].In)
	assert.Equal(t, 29, trs[0].Out)
	assert.ErrorIs(t, f.AddTransition("luma", 1, 2, 30, 30, desc), services.ErrValidation)
	assert.ErrorIs(t, f.AddTransition("luma", 1, 7, 0, 10, desc), services.ErrTopology)

	require.NoError(t, f.MoveTransition("luma", 2, 2, 1, 10, 30, 40, 60))
	trs = f.transitions()
	assert.Equal(t, 40, trs[0].In)
	assert.Equal(t, 59, trs[0].Out)

	require.NoError(t, f.MoveTransition("luma", 2, 3, 2, 40, 60, 40, 60))
	trs = f.transitions()
	assert.Equal(t, 2, trs[0].ATrack)
	assert.Equal(t, 3, trs[0].BTrack)

	require.NoError(t, f.UpdateTransition("luma", "composite", 2, 3, 40, 60, effects.TransitionDescription{ID: "wipe"}, false))
	trs = f.transitions()
	require.Len(t, trs, 1)
	assert.Equal(t, "composite", trs[0].Service)
	assert.Equal(t, "wipe", trs[0].Props.Get("kdenlive_id"))

	require.NoError(t, f.UpdateTransitionParams("composite", 1, 3, 40, 60, effects.TransitionDescription{ID: "wipe"}))
	assert.Equal(t, 1, f.transitions()[0].ATrack)
	assert.ErrorIs(t, f.UpdateTransitionParams("composite", 1, 3, 41, 60, effects.TransitionDescription{}), services.ErrNotFound)

	require.NoError(t, f.DeleteTransition("composite", 3, 40, 60))
	assert.Empty(t, f.transitions())
	assert.ErrorIs(t, f.DeleteTransition("composite", 3, 40, 60), services.ErrNotFound)
}

func TestClipTransparency(t *testing.T) {
	f := newFixture(t, 3, 0)

	require.NoError(t, f.AddClipTransparency(engine.ClipPlacement{Track: 2, Start: 10, End: 30}, 1, 7))
	trs := f.transitions()
	require.Len(t, trs, 1)
	assert.Equal(t, timeline.ServiceComposite, trs[0].Service)
	assert.True(t, trs[0].Internal())
	assert.Equal(t, 7, trs[0].Props.Int(engine.PropTransparency))
	assert.Equal(t, 10, trs[0].In)
	assert.Equal(t, 29, trs[0].Out)

	require.NoError(t, f.ResizeTransparency(10, 5, 40, 2, 7))
	trs = f.transitions()
	assert.Equal(t, 5, trs[0].In)
	assert.Equal(t, 40, trs[0].Out)

	require.NoError(t, f.MoveTransparency(5, 50, 2, 3, 7))
	trs = f.transitions()
	assert.Equal(t, 2, trs[0].ATrack)
	assert.Equal(t, 3, trs[0].BTrack)
	assert.Equal(t, 50, trs[0].In)
	assert.Equal(t, 85, trs[0].Out)

	assert.ErrorIs(t, f.DeleteTransparency(50, 3, 8), services.ErrNotFound)
	require.NoError(t, f.DeleteTransparency(50, 3, 7))
	assert.Empty(t, f.transitions())
}

func TestDeleteTrackRenumbersTransitions(t *testing.T) {
	f := newFixture(t, 3, 0)
	require.NoError(t, f.AddTransition("composite", 1, 3, 0, 10, effects.TransitionDescription{}))
	require.NoError(t, f.AddTransition("luma", 1, 2, 0, 10, effects.TransitionDescription{}))

	require.NoError(t, f.DeleteTrack(2))
	assert.Equal(t, 3, f.TrackCount())
	trs := f.transitions()
	require.Len(t, trs, 1)
	assert.Equal(t, "composite", trs[0].Service)
	assert.Equal(t, 1, trs[0].ATrack)
	assert.Equal(t, 2, trs[0].BTrack)

	assert.ErrorIs(t, f.DeleteTrack(0), services.ErrTopology)
}

func TestInsertTrackShiftsTransitions(t *testing.T) {
	f := newFixture(t, 2, 0)
	require.NoError(t, f.AddTransition("luma", 1, 2, 0, 10, effects.TransitionDescription{}))

	ix, err := f.InsertTrack(2, true)
	require.NoError(t, err)
	assert.Equal(t, 2, ix)
	assert.Equal(t, 4, f.TrackCount())
	trs := f.transitions()
	require.Len(t, trs, 1)
	assert.Equal(t, 2, trs[0].ATrack)
	assert.Equal(t, 3, trs[0].BTrack)
}

func TestChangeTrackStateRebuildsMix(t *testing.T) {
	f := newFixture(t, 2, 1)
	assert.Equal(t, [][2]int{{1, 2}, {1, 3}}, f.mixPairs())

	require.NoError(t, f.ChangeTrackState(1, true, true))
	assert.Equal(t, [][2]int{{2, 3}}, f.mixPairs())

	require.NoError(t, f.ChangeTrackState(1, false, false))
	assert.Equal(t, [][2]int{{1, 2}, {1, 3}}, f.mixPairs())

	require.NoError(t, f.ChangeTrackState(3, true, false))
	assert.Equal(t, [][2]int{{1, 2}, {1, 3}}, f.mixPairs())
}

func TestRefreshOnlyWhenPlayheadCovered(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.Seek(500)
	base := f.backend.Refreshes()

	f.place(t, 1, 0, 100, source("a"))
	assert.Equal(t, base, f.backend.Refreshes())

	require.NoError(t, f.InsertSpace(1, 10, 0))
	assert.Equal(t, base+1, f.backend.Refreshes())

	f.Seek(20)
	base = f.backend.Refreshes()
	require.NoError(t, f.CutClip(1, 50))
	assert.Equal(t, base+1, f.backend.Refreshes())
}

func TestBlockedStateMachine(t *testing.T) {
	f := newFixture(t, 2, 0)
	assert.False(t, f.Blocked())

	f.Stop()
	assert.True(t, f.Blocked())
	f.OnFrame(3)
	assert.Empty(t, f.events.frames)

	f.Seek(3)
	assert.False(t, f.Blocked())
	f.OnFrame(3)
	assert.Equal(t, []int{3}, f.events.frames)

	f.Play(1)
	f.Pause()
	assert.True(t, f.Blocked())
	f.Play(1)
	assert.False(t, f.Blocked())

	require.NoError(t, f.Close())
	assert.True(t, f.Blocked())
	f.Seek(10)
	assert.True(t, f.Blocked())
	_, err := f.InsertClip(engine.ClipPlacement{Track: 1, Start: 0, End: 10}, source("a"), false, false)
	assert.ErrorIs(t, err, services.ErrTopology)
	f.OnConsumerStopped()
	assert.Empty(t, f.events.stopped)
}

func TestLoopZone(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 100, source("a"))
	assert.Equal(t, 99, f.backend.Out())

	f.LoopZone(10, 20)
	assert.Equal(t, 20, f.backend.Out())
	assert.Equal(t, 10, f.SeekPosition())

	f.backend.Seek(21)
	f.OnFrame(21)
	assert.Equal(t, 10, f.SeekPosition())

	f.OnConsumerStopped()
	assert.Equal(t, []int{10}, f.events.stopped)
	assert.Equal(t, 1.0, f.PlaySpeed())

	f.place(t, 1, 100, 50, source("b"))
	assert.Equal(t, 20, f.backend.Out())

	f.ResetZoneMode()
	assert.Equal(t, 149, f.backend.Out())
}

func TestVolumeIsClamped(t *testing.T) {
	f := newFixture(t, 1, 0)
	assert.Equal(t, 1.0, f.Volume())
	f.SetVolume(1.5)
	assert.Equal(t, 1.0, f.Volume())
	f.SetVolume(-1)
	assert.Equal(t, 0.0, f.Volume())
	f.SetVolume(0.25)
	assert.Equal(t, 0.25, f.Volume())
}

func TestSceneListRoundTrip(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))
	f.place(t, 2, 20, 30, source("b"))
	require.NoError(t, f.AddEffect(1, 0, effects.NewParams("id", "blur", "tag", "boxblur", "kdenlive_ix", "1")))
	require.NoError(t, f.AddTransition("luma", 1, 2, 20, 40, effects.TransitionDescription{}))
	f.SetTransitionMode(true)

	doc, err := f.SceneList()
	require.NoError(t, err)
	assert.True(t, f.TransitionMode())
	assert.Equal(t, 25.0, doc.FPS())

	g := newFixture(t, 1, 0)
	require.NoError(t, g.SetSceneList(doc, 12))
	assert.Equal(t, f.layout(t, 1), g.layout(t, 1))
	assert.Equal(t, f.layout(t, 2), g.layout(t, 2))
	assert.Equal(t, map[string]int{"blur": 1}, filterIndexes(g.clip(t, 1, 0)))
	assert.Len(t, g.transitions(), 1)
	assert.Equal(t, 12, g.SeekPosition())
	assert.Equal(t, engine.DefaultProfile, g.Profile().Name)
	assert.False(t, g.Blocked())
}

func TestSetSceneListRejectsEmptyDocument(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))

	err := f.SetSceneList(&mltxml.Document{}, 0)
	assert.ErrorIs(t, err, services.ErrTopology)
	assert.Equal(t, []string{"a@0+50"}, f.layout(t, 1))
}

func TestSaveZone(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 50, source("a"))
	path := filepath.Join(t.TempDir(), "zone.mlt")

	require.NoError(t, f.SaveZone(path, 10, 30))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := mltxml.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "10", doc.Tractor.In)
	assert.Equal(t, "30", doc.Tractor.Out)

	assert.ErrorIs(t, f.SaveZone(path, 30, 10), services.ErrValidation)
}

func TestChangeFPSRescalesComposition(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.place(t, 1, 0, 100, source("a"))
	f.Seek(40)

	require.NoError(t, f.ChangeFPS(50))
	assert.Equal(t, 50.0, f.Profile().FPS())
	assert.InDelta(t, 200, f.Duration(), 1)
	assert.Equal(t, 80, f.SeekPosition())

	assert.ErrorIs(t, f.ChangeFPS(0), services.ErrValidation)
}

func TestInvalidProducerPlaceholder(t *testing.T) {
	f := newFixture(t, 1, 0)
	p := f.InvalidProducer("clip7")
	assert.True(t, p.Placeholder())
	assert.Equal(t, "clip7", p.ID)
	assert.Equal(t, []string{"clip7"}, f.events.invalid)
}

// Random edit sequences never break contiguity, leave adjacent blanks, or
// let the background drift from the longest track.
func TestRandomEditsPreserveInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	f := newFixture(t, 3, 0)
	producers := []*timeline.Producer{source("a"), source("b"), source("c")}
	rejected := 0

	for step := 0; step < 400; step++ {
		track := 1 + rng.IntN(3)
		pos := rng.IntN(300)
		length := 1 + rng.IntN(60)
		var err error
		switch rng.IntN(8) {
		case 0, 1:
			p := engine.ClipPlacement{Track: track, Start: pos, End: pos + length, CropStart: rng.IntN(100)}
			_, err = f.InsertClip(p, producers[rng.IntN(len(producers))], rng.IntN(2) == 0, rng.IntN(3) == 0)
		case 2:
			err = f.RemoveClip(track, pos)
		case 3:
			err = f.CutClip(track, pos)
		case 4:
			err = f.MoveClip(track, 1+rng.IntN(3), pos, rng.IntN(300), nil, rng.IntN(2) == 0)
		case 5:
			err = f.ResizeClipEnd(engine.ClipPlacement{Track: track, Start: pos}, length)
		case 6:
			err = f.ResizeClipStart(engine.ClipPlacement{Track: track, Start: pos}, rng.IntN(21)-10)
		case 7:
			duration := rng.IntN(41) - 20
			if rng.IntN(2) == 0 {
				track = engine.AllTracks
			}
			err = f.InsertSpace(track, duration, pos)
		}
		if err != nil {
			rejected++
			require.NotErrorIs(t, err, services.ErrLocked, "step %d", step)
		}

		for i := 1; i < 4; i++ {
			require.NoError(t, f.CheckTrackSequence(i, nil), "step %d track %d", step, i)
		}
		f.View(func(tr *timeline.Tractor) {
			duration := tr.Duration()
			require.Equal(t, max(duration-1, 0), tr.Out, "step %d", step)
			if duration > 0 {
				require.Equal(t, duration, tr.Tracks[0].Playtime(), "step %d", step)
			}
			require.NoError(t, tr.Validate(), "step %d", step)
		})
	}
	assert.Less(t, rejected, 400)
}
