package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"splicer/internal/logging"
	"splicer/internal/notifications"
	"splicer/internal/profile"
	"splicer/internal/services"
	"splicer/internal/slowmo"
	"splicer/internal/timeline"
)

// DefaultProfile is used when Options carries no profile.
const DefaultProfile = "atsc_1080p_25"

// ClipPlacement addresses one clip instance: its track, the timeline range
// [Start, End) and the source range beginning at CropStart.
type ClipPlacement struct {
	Track        int
	Start        int
	End          int
	CropStart    int
	CropDuration int
}

// Duration returns the number of timeline frames covered.
func (p ClipPlacement) Duration() int { return p.End - p.Start }

// Options configures an Engine.
type Options struct {
	Logger         *slog.Logger
	Cache          *slowmo.Cache
	Notifier       notifications.Service
	Backend        Backend
	Profile        profile.Profile
	TransitionMode bool
}

// Engine applies edits to one composition.
type Engine struct {
	mu       sync.Mutex
	tractor  *timeline.Tractor
	profile  profile.Profile
	cache    *slowmo.Cache
	notifier notifications.Service
	backend  Backend
	logger   *slog.Logger

	blocked atomic.Int32
	halted  atomic.Bool
	closed  atomic.Bool

	playMu         sync.Mutex
	play           playState
	transitionMode atomic.Bool
}

// span is the timeline range touched by an edit. An end below zero means
// the edit reaches the end of the composition.
type span struct {
	start int
	end   int
}

func (s span) covers(pos int) bool {
	return pos >= s.start && (s.end < 0 || pos < s.end)
}

var (
	noSpan    = span{start: 1, end: 0}
	wholeSpan = span{start: 0, end: -1}
)

// New returns an engine editing tractor. A nil tractor starts an empty
// composition holding only the background track.
func New(tractor *timeline.Tractor, opts Options) (*Engine, error) {
	if tractor == nil {
		tractor = timeline.NewTractor(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	prof := opts.Profile
	if prof.Name == "" {
		var err error
		prof, err = profile.Lookup(DefaultProfile)
		if err != nil {
			return nil, err
		}
	}
	cache := opts.Cache
	if cache == nil {
		cache = slowmo.NewCache(0, logger)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.Noop()
	}
	backend := opts.Backend
	if backend == nil {
		backend = NewMemoryBackend()
	}

	tractor.CheckLength()
	if err := tractor.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "engine", "new", "invalid composition", err)
	}

	e := &Engine{
		tractor:  tractor,
		profile:  prof,
		cache:    cache,
		notifier: notifier,
		backend:  backend,
		logger:   logging.NewComponentLogger(logger, "engine"),
	}
	e.play.volume = 1
	e.backend.SetOut(tractor.Out)
	e.transitionMode.Store(opts.TransitionMode)
	e.cache.Fill(producersOf(tractor))
	return e, nil
}

// Close stops playback and leaves the engine blocked for good.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.halted.Store(true)
	if !e.backend.IsStopped() {
		e.backend.Stop()
	}
	e.logger.Debug("engine closed")
	return nil
}

// Blocked reports whether frame delivery is suspended.
func (e *Engine) Blocked() bool {
	return e.blocked.Load() > 0 || e.halted.Load() || e.closed.Load()
}

// Profile returns the video profile the composition renders at.
func (e *Engine) Profile() profile.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile
}

// TransitionMode reports whether automatic transitions follow clip edits.
func (e *Engine) TransitionMode() bool {
	return e.transitionMode.Load()
}

// SetTransitionMode toggles automatic transitions.
func (e *Engine) SetTransitionMode(enabled bool) {
	e.transitionMode.Store(enabled)
}

// Cache returns the slow-motion producer cache.
func (e *Engine) Cache() *slowmo.Cache {
	return e.cache
}

// View runs fn with read access to the composition under the structural
// lock. fn must not retain the tractor or modify it.
func (e *Engine) View(fn func(t *timeline.Tractor)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.tractor)
}

// Duration returns the composed length in frames.
func (e *Engine) Duration() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tractor.Duration()
}

// TrackCount returns the number of tracks, background included.
func (e *Engine) TrackCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tractor.Count()
}

// Entries describes the slots of track.
func (e *Engine) Entries(track int) ([]timeline.EntryInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.tractor.Track(track)
	if err != nil {
		return nil, err
	}
	return t.Entries(), nil
}

// edit runs one structural mutation. fn returns the timeline range it
// touched; the current frame is refreshed when that range covers it.
func (e *Engine) edit(op string, fn func(t *timeline.Tractor) (span, error)) error {
	if e.closed.Load() {
		return services.Wrap(services.ErrTopology, "engine", op, "engine is closed", nil)
	}
	e.mu.Lock()
	e.blocked.Add(1)
	before := e.tractor.Out
	region, err := fn(e.tractor)
	e.tractor.CheckLength()
	out := e.tractor.Out
	duration := e.tractor.Duration()
	e.blocked.Add(-1)
	e.mu.Unlock()

	if out != before {
		e.syncOut(out)
		e.notifier.NotifyDurationChanged(duration)
	}
	if err != nil {
		e.logRejected(op, err)
		return err
	}
	if region.covers(e.backend.Position()) {
		e.requestRefresh()
	}
	return nil
}

func (e *Engine) logRejected(op string, err error) {
	if services.UserVisible(err) {
		logging.WarnWithContext(e.logger, "edit rejected", "edit_rejected",
			logging.String(logging.FieldOperation, op),
			logging.Error(err),
			logging.ErrorKind(err),
			logging.String(logging.FieldErrorHint, "check that the clip source is available"),
		)
		return
	}
	e.logger.Debug("edit rejected",
		logging.String(logging.FieldOperation, op),
		logging.Error(err),
		logging.ErrorKind(err),
	)
}

// syncOut moves the playback out point to the end of the composition. In
// zone mode the new end is restored when the zone is left.
func (e *Engine) syncOut(out int) {
	e.playMu.Lock()
	defer e.playMu.Unlock()
	if e.play.zone {
		e.play.originalOut = out
		return
	}
	e.backend.SetOut(out)
}

// requestRefresh redraws the current frame unless delivery is blocked.
func (e *Engine) requestRefresh() {
	if e.Blocked() {
		return
	}
	e.backend.Refresh()
	e.notifier.NotifyRefresh()
}

// editableTrack returns track i when clip edits may touch it.
func editableTrack(t *timeline.Tractor, op string, i int) (*timeline.Track, error) {
	if i < 1 || i >= t.Count() {
		return nil, services.Wrap(services.ErrTopology, "engine", op,
			fmt.Sprintf("track %d is not an editable track of %d", i, t.Count()), nil)
	}
	track := t.Tracks[i]
	if track.Locked {
		return nil, services.Wrap(services.ErrLocked, "engine", op, fmt.Sprintf("track %d is locked", i), nil)
	}
	return track, nil
}

// clipAt returns the clip covering pos on track together with its slot.
func clipAt(track *timeline.Track, op string, pos int) (timeline.EntryInfo, error) {
	info, ok := track.Info(track.ClipIndexAt(pos))
	if !ok || info.IsBlank() {
		return info, services.Wrap(services.ErrOccupancy, "engine", op, fmt.Sprintf("no clip at frame %d", pos), nil)
	}
	return info, nil
}

// resolveProducer checks prod before it is cut. Resampled producers are
// swapped for the shared cached instance with the same key.
func (e *Engine) resolveProducer(op string, prod *timeline.Producer) (*timeline.Producer, error) {
	if !prod.Valid() {
		id := ""
		if prod != nil {
			id = prod.ID
		}
		if id != "" {
			e.notifier.NotifyClipInvalid(id)
		}
		return nil, services.Wrap(services.ErrProducer, "engine", op, fmt.Sprintf("producer %q is not valid", id), nil)
	}
	if prod.Service != timeline.ServiceFramebuffer || !slowmo.IsResampledID(prod.ID) {
		return prod, nil
	}
	key := slowmo.ProducerKey(prod)
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}
	e.cache.Fill([]*timeline.Producer{prod})
	return prod, nil
}

// moveEffects detaches the user effects of from and attaches them to to.
func moveEffects(from, to *timeline.Clip) {
	for _, f := range from.Filters.DetachFunc(isEffect) {
		to.Filters.Attach(f)
	}
}

func isEffect(f *timeline.Filter) bool { return f.Index != 0 }

// producersOf lists the distinct producers cut by clips above the
// background.
func producersOf(t *timeline.Tractor) []*timeline.Producer {
	seen := make(map[*timeline.Producer]bool)
	var out []*timeline.Producer
	for i := 1; i < t.Count(); i++ {
		for _, c := range t.Tracks[i].Clips() {
			if c.Producer == nil || seen[c.Producer] {
				continue
			}
			seen[c.Producer] = true
			out = append(out, c.Producer)
		}
	}
	return out
}
