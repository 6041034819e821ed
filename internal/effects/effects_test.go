package effects_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splicer/internal/effects"
)

func TestBuildPlainEffect(t *testing.T) {
	params := effects.NewParams("id", "brightness", "tag", "brightness", "kdenlive_ix", "2", "level", "1.2")
	filters, err := effects.Build(params, effects.Target{In: 10, Out: 59, Duration: 50})
	require.NoError(t, err)
	require.Len(t, filters, 1)

	f := filters[0]
	assert.Equal(t, "brightness", f.Service)
	assert.Equal(t, "brightness", f.EffectID)
	assert.Equal(t, 2, f.Index)
	assert.Equal(t, "1.2", f.Props.Get("level"))
	assert.False(t, f.Props.Has("kdenlive_ix"))
	assert.Equal(t, 0, f.In)
}

func TestBuildSyncsInOut(t *testing.T) {
	params := effects.NewParams("id", "fadein", "tag", "volume", "kdenlive_ix", "1", "_sync_in_out", "1")
	filters, err := effects.Build(params, effects.Target{In: 10, Out: 59, Duration: 50})
	require.NoError(t, err)
	assert.Equal(t, 10, filters[0].In)
	assert.Equal(t, 59, filters[0].Out)
	assert.False(t, filters[0].Props.Has("_sync_in_out"))
}

func TestBuildRegionEffect(t *testing.T) {
	params := effects.NewParams("id", "blur", "tag", "boxblur", "kdenlive_ix", "1", "region", "mask.png", "hori", "4")
	filters, err := effects.Build(params, effects.Target{Duration: 25})
	require.NoError(t, err)
	f := filters[0]
	assert.Equal(t, effects.RegionService, f.Service)
	assert.Equal(t, "mask.png", f.Props.Get("resource"))
	assert.Equal(t, "boxblur", f.Props.Get("filter0"))
	assert.Equal(t, "4", f.Props.Get("filter0.hori"))
	assert.False(t, f.Props.Has("hori"))
}

func TestBuildSoxEffect(t *testing.T) {
	params := effects.NewParams("id", "sox_gain", "tag", "sox", "kdenlive_ix", "3", "disable", "0", "gain", " 6 ")
	filters, err := effects.Build(params, effects.Target{Duration: 25})
	require.NoError(t, err)
	assert.Equal(t, "gain 6", filters[0].Props.Get("effect"))
}

func TestBuildKeyframedSegments(t *testing.T) {
	params := effects.NewParams(
		"id", "volume", "tag", "volume", "kdenlive_ix", "1",
		"keyframes", "0:0;20:50;-1:100",
		"starttag", "gain", "endtag", "end",
		"min", "0", "factor", "100",
	)
	filters, err := effects.Build(params, effects.Target{Duration: 80})
	require.NoError(t, err)
	require.Len(t, filters, 2)

	assert.Equal(t, 0, filters[0].In)
	assert.Equal(t, 20, filters[0].Out)
	assert.Equal(t, "0", filters[0].Props.Get("gain"))
	assert.Equal(t, "0.5", filters[0].Props.Get("end"))

	assert.Equal(t, 21, filters[1].In, "segments after the first start one frame later")
	assert.Equal(t, 80, filters[1].Out, "-1 extends to the full duration")
	assert.Equal(t, "1", filters[1].Props.Get("end"))
	for _, f := range filters {
		assert.Equal(t, 1, f.Index)
		assert.False(t, f.Props.Has("keyframes"))
		assert.False(t, f.Props.Has("factor"))
	}
}

func TestBuildSingleKeyframeIsConstant(t *testing.T) {
	params := effects.NewParams("id", "volume", "tag", "volume", "kdenlive_ix", "1", "keyframes", "5:10", "min", "2")
	filters, err := effects.Build(params, effects.Target{Duration: 80})
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, 5, filters[0].In)
	assert.Equal(t, "12", filters[0].Props.Get("start"))
	assert.False(t, filters[0].Props.Has("end"))
}

func TestBuildRejectsBadInput(t *testing.T) {
	_, err := effects.Build(effects.NewParams("id", "x"), effects.Target{})
	require.Error(t, err)
	_, err = effects.Build(effects.NewParams("id", "x", "tag", "x", "keyframes", "a:1"), effects.Target{})
	require.Error(t, err)
}

func TestRequiresRebuild(t *testing.T) {
	cases := map[string]struct {
		params effects.Params
		want   bool
	}{
		"plain":     {effects.NewParams("tag", "brightness"), false},
		"keyframes": {effects.NewParams("tag", "volume", "keyframes", "0:1"), true},
		"ladspa":    {effects.NewParams("tag", "ladspa.1433"), true},
		"sox":       {effects.NewParams("tag", "sox"), true},
		"region":    {effects.NewParams("tag", "blur", "region", "a.png"), true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.params.RequiresRebuild())
		})
	}
}

func TestApplyUsesRegionPrefix(t *testing.T) {
	filters, err := effects.Build(effects.NewParams("id", "blur", "tag", "boxblur", "kdenlive_ix", "1", "region", "m.png"), effects.Target{})
	require.NoError(t, err)
	effects.Apply(filters[0], effects.NewParams("kdenlive_ix", "1", "hori", "9"), effects.Target{})
	assert.Equal(t, "9", filters[0].Props.Get("filter0.hori"))
}

func TestParseKeyframesSkipsEmptyItems(t *testing.T) {
	keys, err := effects.ParseKeyframes("0:1;;10:2.5;")
	require.NoError(t, err)
	assert.Equal(t, []effects.Keyframe{{Frame: 0, Value: 1}, {Frame: 10, Value: 2.5}}, keys)
}
