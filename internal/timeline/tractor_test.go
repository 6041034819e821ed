package timeline_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splicer/internal/services"
	"splicer/internal/timeline"
)

func transitionPairs(tr *timeline.Tractor, includeMix bool) [][2]int {
	var out [][2]int
	for _, t := range tr.Transitions {
		if t.IsMix() && !includeMix {
			continue
		}
		out = append(out, [2]int{t.ATrack, t.BTrack})
	}
	return out
}

func TestPlantTransitionOrdersByPriority(t *testing.T) {
	tr := timeline.NewDefaultTractor(4, 0)
	tr.PlantTransition(timeline.NewTransition("luma", 1, 2, 0, 10))
	tr.PlantTransition(timeline.NewTransition("composite", 2, 4, 0, 10))
	tr.PlantTransition(timeline.NewTransition("composite", 2, 3, 0, 10))
	tr.PlantTransition(timeline.NewTransition("composite", 3, 4, 0, 10))
	tr.PlantTransition(timeline.NewTransition("luma", 1, 3, 0, 10))

	assert.Equal(t, [][2]int{{3, 4}, {2, 3}, {2, 4}, {1, 2}, {1, 3}}, transitionPairs(tr, false))
}

func TestPlantTransitionIsIndependentOfHistory(t *testing.T) {
	pairs := [][2]int{{1, 2}, {2, 3}, {1, 3}, {3, 4}, {2, 4}}
	orders := [][]int{{0, 1, 2, 3, 4}, {4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}}
	var want [][2]int
	for i, order := range orders {
		tr := timeline.NewDefaultTractor(4, 0)
		for _, idx := range order {
			p := pairs[idx]
			tr.PlantTransition(timeline.NewTransition("composite", p[0], p[1], 0, 10))
		}
		got := transitionPairs(tr, false)
		if i == 0 {
			want = got
			continue
		}
		assert.Equal(t, want, got, "order %v", order)
	}
}

func TestFixAudioMixingUsesLowestUnmutedTrack(t *testing.T) {
	tr := timeline.NewDefaultTractor(2, 2)
	assert.Equal(t, 1, tr.LowestUnmutedTrack())
	assert.Equal(t, [][2]int{{1, 2}, {1, 3}, {1, 4}}, transitionPairs(tr, true))

	tr.Tracks[1].Visibility = timeline.Muted
	tr.FixAudioMixing()
	assert.Equal(t, 2, tr.LowestUnmutedTrack())
	assert.Equal(t, [][2]int{{2, 3}, {2, 4}}, transitionPairs(tr, true))
	for _, mix := range tr.Transitions {
		assert.Equal(t, 1, mix.Props.Int("always_active"))
		assert.Equal(t, 1, mix.Props.Int("combine"))
		assert.True(t, mix.Internal())
	}

	for _, track := range tr.Tracks[1:] {
		track.Visibility = timeline.MutedAndHidden
	}
	tr.FixAudioMixing()
	assert.Equal(t, 4, tr.LowestUnmutedTrack())
	assert.Empty(t, tr.Transitions)
}

func TestDeleteTrackRenumbersTransitions(t *testing.T) {
	tr := timeline.NewDefaultTractor(3, 0)
	keep := timeline.NewTransition("composite", 1, 3, 0, 10)
	drop := timeline.NewTransition("composite", 1, 2, 0, 10)
	tr.PlantTransition(keep)
	tr.PlantTransition(drop)

	require.NoError(t, tr.DeleteTrack(2))
	assert.Equal(t, 3, tr.Count())
	assert.Equal(t, 2, keep.BTrack)
	assert.Equal(t, 1, keep.ATrack)
	for _, t2 := range tr.Transitions {
		assert.NotSame(t, drop, t2)
	}
	assert.Equal(t, [][2]int{{1, 2}}, transitionPairs(tr, false))
	assert.Equal(t, [][2]int{{1, 2}}, transitionPairs(tr, true)[1:])
}

func TestDeleteTrackRejectsBackground(t *testing.T) {
	tr := timeline.NewDefaultTractor(1, 0)
	err := tr.DeleteTrack(0)
	assert.True(t, errors.Is(err, services.ErrTopology))
	err = tr.DeleteTrack(5)
	assert.True(t, errors.Is(err, services.ErrTopology))
}

func TestInsertTrackShiftsTransitions(t *testing.T) {
	tr := timeline.NewDefaultTractor(3, 0)
	upper := timeline.NewTransition("composite", 2, 3, 0, 10)
	lower := timeline.NewTransition("composite", 1, 2, 0, 10)
	tr.PlantTransition(upper)
	tr.PlantTransition(lower)

	ix := tr.InsertTrack(3, timeline.AudioTrack, "")
	assert.Equal(t, 3, ix)
	assert.Equal(t, 5, tr.Count())
	assert.Equal(t, [2]int{3, 4}, [2]int{upper.ATrack, upper.BTrack})
	assert.Equal(t, [2]int{1, 2}, [2]int{lower.ATrack, lower.BTrack})
	assert.Equal(t, timeline.Hidden, tr.Tracks[3].Visibility)

	last := tr.Transitions[len(tr.Transitions)-1]
	assert.True(t, last.IsMix())
	assert.Equal(t, [2]int{1, 4}, [2]int{last.ATrack, last.BTrack})

	assert.Equal(t, 5, tr.InsertTrack(99, timeline.VideoTrack, ""))
}

func TestCheckLengthTracksLongestTrack(t *testing.T) {
	tr := timeline.NewDefaultTractor(2, 0)
	src := timeline.NewProducer("a", "avformat", "a.mp4", 500)
	clip, err := src.Cut(0, 99)
	require.NoError(t, err)
	tr.Tracks[2].Blank(20)
	tr.Tracks[2].Append(clip)

	assert.True(t, tr.CheckLength())
	assert.Equal(t, 120, tr.Duration())
	assert.Equal(t, 119, tr.Out)
	assert.Equal(t, 120, tr.Tracks[0].Playtime())
	assert.False(t, tr.CheckLength())
	require.NoError(t, tr.Validate())

	require.NoError(t, tr.Tracks[2].RemoveRegion(0, 50))
	assert.True(t, tr.CheckLength())
	assert.Equal(t, 70, tr.Tracks[0].Playtime())
	assert.Equal(t, 69, tr.Out)
}

func TestCheckLengthGrowsBackgroundProducer(t *testing.T) {
	tr := timeline.NewDefaultTractor(1, 0)
	src := timeline.NewProducer("long", "avformat", "long.mp4", 40000)
	clip, err := src.Cut(0, 19999)
	require.NoError(t, err)
	tr.Tracks[1].Append(clip)

	assert.True(t, tr.CheckLength())
	assert.GreaterOrEqual(t, tr.Background.Length, 20000)
	require.NoError(t, tr.Validate())
}

func TestTrackDisplayName(t *testing.T) {
	track := timeline.NewTrack(timeline.AudioTrack, "")
	assert.Equal(t, "Audio 2", track.DisplayName(2))
	track.Name = "dialogue mix"
	assert.Equal(t, "Dialogue Mix", track.DisplayName(2))
}

func TestVisibilityCodes(t *testing.T) {
	cases := []struct {
		mute, blind bool
		want        timeline.Visibility
	}{
		{false, false, timeline.Visible},
		{false, true, timeline.Hidden},
		{true, false, timeline.Muted},
		{true, true, timeline.MutedAndHidden},
	}
	for _, tc := range cases {
		got := timeline.VisibilityFor(tc.mute, tc.blind)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.mute, got.IsMuted())
		assert.Equal(t, tc.blind, got.IsHidden())
	}
}
