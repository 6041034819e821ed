package engine

import (
	"splicer/internal/logging"
	"splicer/internal/timeline"
)

// ChangeTrackState sets the mute and blind flags of track. The audio mix is
// rebuilt when the change moves the lowest unmuted track.
func (e *Engine) ChangeTrackState(track int, mute, blind bool) error {
	const op = "change_track_state"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		pl, err := t.Track(track)
		if err != nil {
			return noSpan, err
		}
		broken := false
		switch muted := pl.Visibility.IsMuted(); {
		case mute && !muted:
			broken = track == t.LowestUnmutedTrack()
		case !mute && muted:
			broken = track < t.LowestUnmutedTrack()
		}
		pl.Visibility = timeline.VisibilityFor(mute, blind)
		if broken {
			t.FixAudioMixing()
		}
		return wholeSpan, nil
	})
}

// SetTrackLocked allows or forbids clip edits on track.
func (e *Engine) SetTrackLocked(track int, locked bool) error {
	const op = "set_track_locked"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		pl, err := t.Track(track)
		if err != nil {
			return noSpan, err
		}
		pl.Locked = locked
		return noSpan, nil
	})
}

// InsertTrack inserts an empty track at ix and returns the index used.
func (e *Engine) InsertTrack(ix int, video bool) (int, error) {
	const op = "insert_track"
	used := -1
	err := e.edit(op, func(t *timeline.Tractor) (span, error) {
		kind := timeline.AudioTrack
		if video {
			kind = timeline.VideoTrack
		}
		used = t.InsertTrack(ix, kind, "")
		e.logger.Info("track inserted",
			logging.String(logging.FieldOperation, op),
			logging.Int(logging.FieldTrack, used),
			logging.String("kind", kind.String()),
		)
		return wholeSpan, nil
	})
	return used, err
}

// DeleteTrack removes track ix together with the transitions targeting it.
func (e *Engine) DeleteTrack(ix int) error {
	const op = "delete_track"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		if err := t.DeleteTrack(ix); err != nil {
			return noSpan, err
		}
		e.logger.Info("track deleted",
			logging.String(logging.FieldOperation, op),
			logging.Int(logging.FieldTrack, ix),
		)
		return wholeSpan, nil
	})
}
