package timeline

import (
	"fmt"

	"splicer/internal/services"
)

// Tractor is the multi-track composition: an ordered track list with the
// background track at index 0, plus the transition field.
type Tractor struct {
	Tracks      []*Track
	Transitions []*Transition
	Background  *Producer
	Out         int
	Props       Props
}

// NewTractor returns a composition holding only the background track.
func NewTractor(background *Producer) *Tractor {
	if background == nil {
		background = NewBlackProducer()
	}
	return &Tractor{
		Tracks:     []*Track{NewTrack(VideoTrack, "black")},
		Background: background,
	}
}

// NewDefaultTractor returns a composition with the given number of video and
// audio tracks above the background, audio mixed onto the lowest track.
func NewDefaultTractor(videoTracks, audioTracks int) *Tractor {
	t := NewTractor(nil)
	for i := 0; i < audioTracks; i++ {
		t.Tracks = append(t.Tracks, NewTrack(AudioTrack, fmt.Sprintf("audio %d", audioTracks-i)))
	}
	for i := 0; i < videoTracks; i++ {
		t.Tracks = append(t.Tracks, NewTrack(VideoTrack, fmt.Sprintf("video %d", i+1)))
	}
	t.FixAudioMixing()
	return t
}

// Count returns the number of tracks, background included.
func (t *Tractor) Count() int {
	return len(t.Tracks)
}

// Track returns track i.
func (t *Tractor) Track(i int) (*Track, error) {
	if i < 0 || i >= len(t.Tracks) {
		return nil, services.Wrap(services.ErrTopology, "tractor", "track",
			fmt.Sprintf("track %d out of range [0, %d)", i, len(t.Tracks)), nil)
	}
	return t.Tracks[i], nil
}

// Duration returns the composed length in frames.
func (t *Tractor) Duration() int {
	if len(t.Tracks) == 1 {
		return t.Tracks[0].Playtime()
	}
	longest := 0
	for _, track := range t.Tracks[1:] {
		if n := track.Playtime(); n > longest {
			longest = n
		}
	}
	return longest
}

// CheckLength resizes the background track to the longest track and updates
// Out, reporting whether the duration changed.
func (t *Tractor) CheckLength() bool {
	if len(t.Tracks) == 0 {
		return false
	}
	duration := t.Duration()
	out := max(duration-1, 0)
	if len(t.Tracks) == 1 {
		changed := t.Out != out
		t.Out = out
		return changed
	}
	bg := t.Tracks[0]
	if bg.Playtime() == duration && t.Out == out {
		return false
	}
	if bg.Count() == 1 && !bg.IsBlank(0) && duration > 0 {
		clip := bg.ClipAt(0)
		clip.Producer.EnsureLength(duration)
		_ = bg.ResizeClip(0, 0, duration-1)
	} else {
		bg.Clear()
		if duration > 0 {
			t.Background.EnsureLength(duration)
			clip, err := t.Background.Cut(0, duration-1)
			if err == nil {
				bg.Append(clip)
			}
		}
	}
	t.Out = out
	return true
}

// LowestUnmutedTrack returns the audio mix reference: the first track above
// the background whose audio is enabled, or the last track.
func (t *Tractor) LowestUnmutedTrack() int {
	for i := 1; i < len(t.Tracks); i++ {
		if !t.Tracks[i].Visibility.IsMuted() {
			return i
		}
	}
	return len(t.Tracks) - 1
}

// FixAudioMixing replants the audio mix transitions from the lowest unmuted
// track to every track above it.
func (t *Tractor) FixAudioMixing() {
	kept := t.Transitions[:0]
	for _, tr := range t.Transitions {
		if !tr.IsMix() {
			kept = append(kept, tr)
		}
	}
	t.Transitions = kept
	lowest := t.LowestUnmutedTrack()
	for i := lowest + 1; i < len(t.Tracks); i++ {
		t.Transitions = append(t.Transitions, NewMixTransition(lowest, i))
	}
}

// PlantTransition adds tr to the field keeping compositing priority ordered
// by a_track ascending then b_track descending. Transitions that must
// evaluate after tr are detached and re-attached in their original relative
// order. Mix transitions only move when tr is itself a mix.
func (t *Tractor) PlantTransition(tr *Transition) {
	mix := tr.IsMix()
	var kept, detached []*Transition
	for _, existing := range t.Transitions {
		if (mix || !existing.IsMix()) &&
			(existing.ATrack < tr.ATrack || (existing.ATrack == tr.ATrack && existing.BTrack > tr.BTrack)) {
			detached = append(detached, existing)
			continue
		}
		kept = append(kept, existing)
	}
	kept = append(kept, tr)
	t.Transitions = append(kept, detached...)
}

// RemoveTransition disconnects tr, reporting whether it was planted.
func (t *Tractor) RemoveTransition(tr *Transition) bool {
	for i, existing := range t.Transitions {
		if existing == tr {
			t.Transitions = append(t.Transitions[:i], t.Transitions[i+1:]...)
			return true
		}
	}
	return false
}

// FindTransition returns the last planted transition of service on bTrack
// covering pos.
func (t *Tractor) FindTransition(service string, bTrack, pos int) *Transition {
	for i := len(t.Transitions) - 1; i >= 0; i-- {
		tr := t.Transitions[i]
		if tr.Service == service && tr.BTrack == bTrack && tr.Covers(pos) {
			return tr
		}
	}
	return nil
}

// TransitionsAt returns the non-mix transitions covering pos in field order.
func (t *Tractor) TransitionsAt(pos int) []*Transition {
	var out []*Transition
	for _, tr := range t.Transitions {
		if !tr.IsMix() && tr.Covers(pos) {
			out = append(out, tr)
		}
	}
	return out
}

// InsertTrack inserts an empty track at ix, shifting the track references of
// every non-mix transition at or above ix, and plants a mix onto the new last
// track. It returns the index actually used.
func (t *Tractor) InsertTrack(ix int, kind TrackKind, name string) int {
	count := len(t.Tracks)
	if ix > count {
		ix = count
	}
	if ix < 1 {
		ix = 1
	}
	track := NewTrack(kind, name)
	t.Tracks = append(t.Tracks, nil)
	copy(t.Tracks[ix+1:], t.Tracks[ix:])
	t.Tracks[ix] = track

	for _, tr := range t.Transitions {
		if tr.IsMix() {
			continue
		}
		if tr.BTrack >= ix {
			tr.BTrack++
			tr.ATrack++
		}
	}
	t.Transitions = append(t.Transitions, NewMixTransition(1, count))
	return ix
}

// DeleteTrack removes track ix. Transitions whose b_track is ix are dropped,
// references to higher tracks are renumbered and the audio mix topology is
// rebuilt.
func (t *Tractor) DeleteTrack(ix int) error {
	if ix <= 0 || ix >= len(t.Tracks) {
		return services.Wrap(services.ErrTopology, "tractor", "delete_track",
			fmt.Sprintf("track %d cannot be deleted from %d tracks", ix, len(t.Tracks)), nil)
	}
	last := len(t.Tracks) - 1
	kept := t.Transitions[:0]
	for _, tr := range t.Transitions {
		if tr.IsMix() {
			if tr.BTrack == last {
				continue
			}
			kept = append(kept, tr)
			continue
		}
		if tr.BTrack >= ix || tr.ATrack >= ix {
			if tr.ATrack > 0 && tr.ATrack >= ix {
				tr.ATrack--
			}
			if tr.BTrack == ix {
				continue
			}
			if tr.BTrack > 0 && tr.BTrack > ix {
				tr.BTrack--
			}
		}
		kept = append(kept, tr)
	}
	t.Transitions = kept
	t.Tracks = append(t.Tracks[:ix], t.Tracks[ix+1:]...)
	t.FixAudioMixing()
	t.CheckLength()
	return nil
}

// Validate checks every playlist and transition reference.
func (t *Tractor) Validate() error {
	if len(t.Tracks) == 0 {
		return fmt.Errorf("tractor has no tracks")
	}
	for i, track := range t.Tracks {
		if err := track.Validate(); err != nil {
			return fmt.Errorf("track %d: %w", i, err)
		}
	}
	for _, tr := range t.Transitions {
		if tr.ATrack < 0 || tr.ATrack >= len(t.Tracks) || tr.BTrack < 0 || tr.BTrack >= len(t.Tracks) {
			return fmt.Errorf("transition %s references tracks %d/%d of %d", tr.Service, tr.ATrack, tr.BTrack, len(t.Tracks))
		}
	}
	if len(t.Tracks) > 1 && t.Tracks[0].Playtime() != t.Duration() {
		return fmt.Errorf("background length %d does not match duration %d", t.Tracks[0].Playtime(), t.Duration())
	}
	return nil
}
