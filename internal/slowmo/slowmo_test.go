package slowmo_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splicer/internal/services"
	"splicer/internal/slowmo"
	"splicer/internal/timeline"
)

func source() *timeline.Producer {
	p := timeline.NewProducer("12_video", timeline.ServiceAvformat, "/media/a.mp4", 200)
	p.Props.Set("force_fps", "25")
	p.Props.Set("threads", "0")
	p.Props.Set("video_index", "1")
	return p
}

func TestKeyAndProducerID(t *testing.T) {
	assert.Equal(t, "/media/a.mp4?2", slowmo.Key("/media/a.mp4", 2, 1))
	assert.Equal(t, "/media/a.mp4?0.5&strobe=3", slowmo.Key("/media/a.mp4", 0.5, 3))
	assert.Equal(t, "slowmotion:12:2", slowmo.ProducerID("12_video", 2, 1))
	assert.Equal(t, "slowmotion:12:-1:4", slowmo.ProducerID("12", -1, 4))
	assert.Equal(t, "12", slowmo.SourceID("slowmotion:12:2"))
	assert.Equal(t, "/media/a.mp4", slowmo.SourceResource("/media/a.mp4?2"))
}

func TestNormalizeSpeed(t *testing.T) {
	assert.Equal(t, 1.0, slowmo.NormalizeSpeed(0))
	assert.Equal(t, 1.0, slowmo.NormalizeSpeed(-0.5))
	assert.Equal(t, -1.0, slowmo.NormalizeSpeed(-1))
	assert.Equal(t, 2.0, slowmo.NormalizeSpeed(2))
}

func TestAcquireCreatesOnce(t *testing.T) {
	cache := slowmo.NewCache(0, nil)
	src := source()

	first, created, err := cache.Acquire(src, 2, 1)
	require.NoError(t, err)
	assert.True(t, created)
	second, created, err := cache.Acquire(src, 2, 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.Len())

	assert.Equal(t, timeline.ServiceFramebuffer, first.Service)
	assert.Equal(t, "slowmotion:12:2", first.ID)
	assert.Equal(t, 100, first.Length)
	assert.Equal(t, "25", first.Props.Get("force_fps"))
	assert.Equal(t, "1", first.Props.Get("video_index"))
	assert.False(t, first.Props.Has("threads"))
	assert.Equal(t, 2.0, slowmo.Speed(first))

	strobed, created, err := cache.Acquire(src, 2, 3)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotSame(t, first, strobed)
	assert.Equal(t, 3, strobed.Props.Int("strobe"))
}

func TestAcquireRejectsInvalidSource(t *testing.T) {
	cache := slowmo.NewCache(0, nil)
	_, _, err := cache.Acquire(nil, 2, 1)
	assert.True(t, errors.Is(err, services.ErrProducer))
	_, _, err = cache.Acquire(source(), 0, 1)
	assert.True(t, errors.Is(err, services.ErrValidation))
}

func TestAcquireConcurrentCallersShareProducer(t *testing.T) {
	cache := slowmo.NewCache(0, nil)
	src := source()
	results := make([]*timeline.Producer, 16)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _, err := cache.Acquire(src, 0.5, 1)
			if err == nil {
				results[i] = p
			}
		}(i)
	}
	wg.Wait()
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
}

func TestLimitEvictsLeastRecentlyUsed(t *testing.T) {
	cache := slowmo.NewCache(2, nil)
	src := source()
	_, _, _ = cache.Acquire(src, 2, 1)
	_, _, _ = cache.Acquire(src, 3, 1)
	_, _, _ = cache.Acquire(src, 2, 1)
	_, _, _ = cache.Acquire(src, 4, 1)

	assert.Equal(t, []string{"/media/a.mp4?2", "/media/a.mp4?4"}, cache.Keys())
}

func TestFillRegistersLoadedProducers(t *testing.T) {
	cache := slowmo.NewCache(0, nil)
	loaded := timeline.NewProducer("slowmotion:7:0.5:2", timeline.ServiceFramebuffer, "/media/b.mp4?0.5", 400)
	loaded.Props.SetInt("strobe", 2)
	plain := timeline.NewProducer("7", timeline.ServiceAvformat, "/media/b.mp4", 200)

	assert.Equal(t, 1, cache.Fill([]*timeline.Producer{loaded, plain, nil}))
	assert.Equal(t, 0, cache.Fill([]*timeline.Producer{loaded}))
	got, ok := cache.Get("/media/b.mp4?0.5&strobe=2")
	require.True(t, ok)
	assert.Same(t, loaded, got)

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}
