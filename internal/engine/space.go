package engine

import (
	"fmt"
	"slices"

	"splicer/internal/services"
	"splicer/internal/timeline"
)

// AllTracks addresses every track above the background in InsertSpace.
const AllTracks = -1

// InsertSpace inserts duration frames of empty space at frame at on track,
// or on every unlocked track when track is AllTracks. A negative duration
// removes space instead and fails unless each affected track has a blank of
// at least that length at or just before at. Tracks ending before at are
// left alone. Transitions ending after at shift with the content of their
// b track.
func (e *Engine) InsertSpace(track, duration, at int) error {
	const op = "insert_space"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		if duration == 0 {
			return noSpan, nil
		}
		if at < 0 {
			return noSpan, services.Wrap(services.ErrValidation, "engine", op, fmt.Sprintf("negative position %d", at), nil)
		}
		var targets []int
		if track == AllTracks {
			for i := 1; i < t.Count(); i++ {
				if !t.Tracks[i].Locked {
					targets = append(targets, i)
				}
			}
		} else {
			if _, err := editableTrack(t, op, track); err != nil {
				return noSpan, err
			}
			targets = []int{track}
		}

		if duration < 0 {
			for _, i := range targets {
				if _, _, err := removableBlank(t.Tracks[i], at, -duration); err != nil {
					return noSpan, services.Wrap(services.ErrOccupancy, "engine", op,
						fmt.Sprintf("track %d cannot give up %d frames at %d", i, -duration, at), err)
				}
			}
		}

		moved := make(map[int]bool, len(targets))
		for _, i := range targets {
			pl := t.Tracks[i]
			idx := pl.ClipIndexAt(at)
			if duration > 0 {
				if idx >= pl.Count() {
					continue
				}
				if err := pl.InsertBlank(idx, duration); err != nil {
					return noSpan, err
				}
				moved[i] = true
				continue
			}
			blank, ok, _ := removableBlank(pl, at, -duration)
			if !ok {
				continue
			}
			if blank.Length == -duration {
				_ = pl.Remove(blank.Index)
			} else if err := pl.RemoveRegion(blank.Start, -duration); err != nil {
				return noSpan, err
			}
			pl.ConsolidateBlanks(0)
			moved[i] = true
		}

		for _, tr := range t.Transitions {
			if tr.IsMix() || tr.Out <= at || !moved[tr.BTrack] {
				continue
			}
			tr.In += duration
			tr.Out += duration
		}
		return span{start: at, end: -1}, nil
	})
}

// removableBlank finds the blank at or just before pos that can give up
// length frames. ok is false when pos lies past the end of the track.
func removableBlank(pl *timeline.Track, pos, length int) (timeline.EntryInfo, bool, error) {
	idx := pl.ClipIndexAt(pos)
	if idx >= pl.Count() {
		return timeline.EntryInfo{}, false, nil
	}
	if !pl.IsBlank(idx) {
		idx--
	}
	info, ok := pl.Info(idx)
	if !ok || !info.IsBlank() {
		return info, false, fmt.Errorf("no blank at frame %d", pos)
	}
	if info.Length < length {
		return info, false, fmt.Errorf("blank of %d frames at %d is too short", info.Length, info.Start)
	}
	return info, true, nil
}

// SpaceLength returns the empty frames available at pos on track: zero
// when pos is inside a clip and -1 past the end of the track. Counting
// starts at the beginning of the blank when fromBlankStart is set.
func (e *Engine) SpaceLength(pos, track int, fromBlankStart bool) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pl, err := e.tractor.Track(track)
	if err != nil {
		return 0, err
	}
	idx := pl.ClipIndexAt(pos)
	info, ok := pl.Info(idx)
	switch {
	case !ok:
		return -1, nil
	case !info.IsBlank():
		return 0, nil
	case fromBlankStart:
		return info.Length, nil
	default:
		return info.End() - pos, nil
	}
}

// TrackDuration returns the last frame of track, or -1 when it is empty.
func (e *Engine) TrackDuration(track int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pl, err := e.tractor.Track(track)
	if err != nil {
		return 0, err
	}
	return pl.Playtime() - 1, nil
}

// CheckTrackSequence verifies the playlist invariants of track and, when
// starts is not nil, that its clips begin at exactly those frames.
func (e *Engine) CheckTrackSequence(track int, starts []int) error {
	const op = "check_track_sequence"
	e.mu.Lock()
	defer e.mu.Unlock()
	pl, err := e.tractor.Track(track)
	if err != nil {
		return err
	}
	if err := pl.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "engine", op, fmt.Sprintf("track %d", track), err)
	}
	if starts == nil {
		return nil
	}
	var actual []int
	for _, info := range pl.Entries() {
		if !info.IsBlank() {
			actual = append(actual, info.Start)
		}
	}
	if !slices.Equal(actual, starts) {
		return services.Wrap(services.ErrValidation, "engine", op,
			fmt.Sprintf("track %d clips start at %v, expected %v", track, actual, starts), nil)
	}
	return nil
}
