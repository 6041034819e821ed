package engine

import (
	"sync"

	"splicer/internal/logging"
)

// Backend is the frame pipeline the engine drives: a producer positioned on
// the composition and a consumer delivering frames.
type Backend interface {
	Start() error
	Stop()
	IsStopped() bool
	Seek(frame int)
	Position() int
	SetSpeed(speed float64)
	Speed() float64
	SetOut(frame int)
	Out() int
	Refresh()
	Purge()
}

// playState is the zone and loop bookkeeping guarded by playMu.
type playState struct {
	zone        bool
	loop        bool
	loopStart   int
	originalOut int
	volume      float64
}

// Play starts playback at speed.
func (e *Engine) Play(speed float64) {
	if e.closed.Load() {
		return
	}
	e.halted.Store(false)
	e.backend.SetSpeed(speed)
	e.requestRefresh()
}

// PlayFrom seeks to frame and plays at normal speed.
func (e *Engine) PlayFrom(frame int) {
	if e.closed.Load() {
		return
	}
	e.halted.Store(false)
	e.backend.Seek(frame)
	e.backend.SetSpeed(1)
	e.requestRefresh()
}

// Pause halts playback at the current frame.
func (e *Engine) Pause() {
	if e.backend.Speed() == 0 {
		return
	}
	e.ResetZoneMode()
	e.halted.Store(true)
	e.backend.SetSpeed(0)
	e.backend.Purge()
}

// Stop halts playback and the consumer.
func (e *Engine) Stop() {
	if !e.backend.IsStopped() {
		e.backend.Stop()
	}
	e.halted.Store(true)
	e.ResetZoneMode()
	e.backend.SetSpeed(0)
}

// Start restarts a stopped consumer.
func (e *Engine) Start() error {
	if e.closed.Load() {
		return nil
	}
	if e.backend.IsStopped() {
		if err := e.backend.Start(); err != nil {
			logging.ErrorWithContext(e.logger, "consumer start failed", "consumer_start_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "playback unavailable"),
			)
			return err
		}
	}
	e.halted.Store(false)
	e.requestRefresh()
	return nil
}

// SwitchPlay toggles between normal speed playback and pause.
func (e *Engine) SwitchPlay(play bool) {
	if e.closed.Load() {
		return
	}
	e.ResetZoneMode()
	switch {
	case play && e.backend.Speed() == 0:
		e.halted.Store(false)
		e.backend.SetSpeed(1)
		e.requestRefresh()
	case !play:
		e.halted.Store(true)
		e.backend.SetSpeed(0)
		e.backend.Seek(e.backend.Position())
	}
}

// Seek moves the playhead to frame and redraws it.
func (e *Engine) Seek(frame int) {
	if e.closed.Load() {
		return
	}
	if frame < 0 {
		frame = 0
	}
	e.halted.Store(false)
	e.ResetZoneMode()
	e.backend.Seek(frame)
	e.requestRefresh()
}

// SeekDiff moves the playhead by delta frames.
func (e *Engine) SeekDiff(delta int) {
	e.Seek(e.backend.Position() + delta)
}

// PlayZone plays [in, out] once.
func (e *Engine) PlayZone(in, out int) {
	if e.closed.Load() {
		return
	}
	e.playMu.Lock()
	if !e.play.zone {
		e.play.originalOut = e.backend.Out()
	}
	e.play.zone = true
	e.playMu.Unlock()

	e.halted.Store(false)
	e.backend.SetOut(out)
	e.backend.Seek(in)
	e.backend.SetSpeed(1)
	e.requestRefresh()
}

// LoopZone plays [in, out] repeatedly.
func (e *Engine) LoopZone(in, out int) {
	e.playMu.Lock()
	e.play.loop = true
	e.play.loopStart = in
	e.playMu.Unlock()
	e.PlayZone(in, out)
}

// ResetZoneMode leaves zone and loop playback, restoring the out point.
func (e *Engine) ResetZoneMode() {
	e.playMu.Lock()
	defer e.playMu.Unlock()
	if !e.play.zone && !e.play.loop {
		return
	}
	e.backend.SetOut(e.play.originalOut)
	e.play.zone = false
	e.play.loop = false
}

// Refresh redraws the current frame unless delivery is blocked.
func (e *Engine) Refresh() {
	e.requestRefresh()
}

// PlaySpeed returns the current playback speed.
func (e *Engine) PlaySpeed() float64 {
	return e.backend.Speed()
}

// SeekPosition returns the playhead frame.
func (e *Engine) SeekPosition() int {
	return e.backend.Position()
}

// SetVolume sets the output volume, clamped to [0, 1].
func (e *Engine) SetVolume(volume float64) {
	volume = min(max(volume, 0), 1)
	e.playMu.Lock()
	e.play.volume = volume
	e.playMu.Unlock()
}

// Volume returns the output volume.
func (e *Engine) Volume() float64 {
	e.playMu.Lock()
	defer e.playMu.Unlock()
	return e.play.volume
}

// OnFrame is called by the consumer for each displayed frame. It returns
// at once while delivery is blocked.
func (e *Engine) OnFrame(frame int) {
	if e.Blocked() {
		return
	}
	e.playMu.Lock()
	loop, start := e.play.loop, e.play.loopStart
	out := e.backend.Out()
	e.playMu.Unlock()
	if loop && frame > out {
		e.backend.Seek(start)
		return
	}
	e.notifier.NotifyFramePosition(frame)
}

// OnConsumerStopped is called when the consumer reaches the end of its
// range.
func (e *Engine) OnConsumerStopped() {
	if e.blocked.Load() > 0 || e.closed.Load() {
		return
	}
	e.playMu.Lock()
	loop, zone, start := e.play.loop, e.play.zone, e.play.loopStart
	e.playMu.Unlock()
	switch {
	case loop:
		e.PlayFrom(start)
	case zone:
		e.ResetZoneMode()
	}
	e.notifier.NotifyConsumerStopped(e.backend.Position())
}

// MemoryBackend is a Backend without a real consumer. It records the calls
// made to it and is used headless and in tests.
type MemoryBackend struct {
	mu        sync.Mutex
	stopped   bool
	position  int
	speed     float64
	out       int
	refreshes int
	purges    int
}

// NewMemoryBackend returns a running backend positioned at frame 0.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = false
	return nil
}

func (b *MemoryBackend) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
}

func (b *MemoryBackend) IsStopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

func (b *MemoryBackend) Seek(frame int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = frame
}

func (b *MemoryBackend) Position() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position
}

func (b *MemoryBackend) SetSpeed(speed float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.speed = speed
}

func (b *MemoryBackend) Speed() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speed
}

func (b *MemoryBackend) SetOut(frame int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out = frame
}

func (b *MemoryBackend) Out() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.out
}

func (b *MemoryBackend) Refresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshes++
}

func (b *MemoryBackend) Purge() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.purges++
}

// Refreshes returns the number of Refresh calls received.
func (b *MemoryBackend) Refreshes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshes
}
