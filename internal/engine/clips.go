package engine

import (
	"fmt"
	"strings"

	"splicer/internal/services"
	"splicer/internal/timeline"
)

// nonDuplicatedEffects are not copied onto the second half of a cut clip.
var nonDuplicatedEffects = map[string]bool{
	"":                true,
	"fadein":          true,
	"fade_from_black": true,
}

// InsertClip cuts prod to the placement's source range and places it at
// p.Start. Overwrite replaces whatever lies under the new clip; push shifts
// later entries right. Neither flag inserts into empty space, splitting a
// clip under p.Start. It returns the playlist index of the new clip.
func (e *Engine) InsertClip(p ClipPlacement, prod *timeline.Producer, overwrite, push bool) (int, error) {
	const op = "insert_clip"
	index := -1
	err := e.edit(op, func(t *timeline.Tractor) (span, error) {
		track, err := editableTrack(t, op, p.Track)
		if err != nil {
			return noSpan, err
		}
		length := p.Duration()
		if p.Start < 0 || length <= 0 {
			return noSpan, services.Wrap(services.ErrValidation, "engine", op,
				fmt.Sprintf("placement [%d, %d) is empty", p.Start, p.End), nil)
		}
		prod, err := e.resolveProducer(op, prod)
		if err != nil {
			return noSpan, err
		}
		cropStart := max(p.CropStart, 0)
		clip, err := prod.Cut(cropStart, cropStart+length-1)
		if err != nil {
			return noSpan, err
		}

		region := span{start: p.Start, end: p.End}
		trackLength := track.Playtime()
		switch {
		case overwrite && p.Start < trackLength:
			if err := track.RemoveRegion(p.Start, length); err != nil {
				return noSpan, err
			}
			if err := track.InsertBlank(track.ClipIndexAt(p.Start), length); err != nil {
				return noSpan, err
			}
		case push && p.Start < trackLength:
			idx, err := track.SplitAt(p.Start)
			if err != nil {
				return noSpan, err
			}
			if err := track.InsertBlank(idx, length); err != nil {
				return noSpan, err
			}
			region.end = -1
		}
		index, err = track.InsertAt(p.Start, clip, timeline.InsertSplit)
		if err != nil {
			return noSpan, err
		}
		track.ConsolidateBlanks(0)
		index = track.ClipIndexAt(p.Start)
		return region, nil
	})
	return index, err
}

// CutClip splits the clip under pos in two. User effects are copied onto
// the second half, except fade-ins which only belong at the start.
func (e *Engine) CutClip(trackIndex, pos int) error {
	const op = "cut_clip"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		track, err := editableTrack(t, op, trackIndex)
		if err != nil {
			return noSpan, err
		}
		info, err := clipAt(track, op, pos)
		if err != nil {
			return noSpan, err
		}
		if err := track.Split(info.Index, pos-info.Start); err != nil {
			return noSpan, err
		}
		second := track.ClipAt(info.Index + 1)
		for _, f := range info.Clip.Filters.All() {
			if nonDuplicatedEffects[f.EffectID] {
				continue
			}
			second.Filters.Attach(f.Clone())
		}
		return span{start: info.Start, end: info.End()}, nil
	})
}

// UpdateClip replaces the clip starting at p.Start with a cut of prod over
// the placement's crop range. User effects move to the new clip.
func (e *Engine) UpdateClip(p ClipPlacement, prod *timeline.Producer) error {
	const op = "update_clip"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		track, err := editableTrack(t, op, p.Track)
		if err != nil {
			return noSpan, err
		}
		info, err := clipAt(track, op, p.Start)
		if err != nil {
			return noSpan, err
		}
		prod, err := e.resolveProducer(op, prod)
		if err != nil {
			return noSpan, err
		}
		cropStart := max(p.CropStart, 0)
		clip, err := prod.Cut(cropStart, cropStart+p.CropDuration-1)
		if err != nil {
			return noSpan, err
		}
		if _, err := track.ReplaceWithBlank(info.Index); err != nil {
			return noSpan, err
		}
		if _, err := track.InsertAt(info.Start, clip, timeline.InsertSplit); err != nil {
			restoreClip(track, info)
			return noSpan, err
		}
		moveEffects(info.Clip, clip)
		track.ConsolidateBlanks(0)
		return span{start: info.Start, end: info.Start + max(info.Length, clip.Length())}, nil
	})
}

// UpdateClipProducer swaps the producer of the clip under pos keeping its
// source range and effects.
func (e *Engine) UpdateClipProducer(trackIndex, pos int, prod *timeline.Producer) error {
	const op = "update_clip_producer"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		track, err := editableTrack(t, op, trackIndex)
		if err != nil {
			return noSpan, err
		}
		info, err := clipAt(track, op, pos)
		if err != nil {
			return noSpan, err
		}
		prod, err := e.resolveProducer(op, prod)
		if err != nil {
			return noSpan, err
		}
		clip, err := prod.Cut(info.Clip.In, info.Clip.Out)
		if err != nil {
			return noSpan, err
		}
		if _, err := track.ReplaceWithBlank(info.Index); err != nil {
			return noSpan, err
		}
		if _, err := track.InsertAt(info.Start, clip, timeline.InsertAligned); err != nil {
			restoreClip(track, info)
			return noSpan, err
		}
		moveEffects(info.Clip, clip)
		return span{start: info.Start, end: info.End()}, nil
	})
}

// RemoveClip replaces the clip under pos with empty space.
func (e *Engine) RemoveClip(trackIndex, pos int) error {
	const op = "remove_clip"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		track, err := editableTrack(t, op, trackIndex)
		if err != nil {
			return noSpan, err
		}
		info, err := clipAt(track, op, pos)
		if err != nil {
			return noSpan, err
		}
		if _, err := track.ReplaceWithBlank(info.Index); err != nil {
			return noSpan, err
		}
		track.ConsolidateBlanks(0)
		return span{start: info.Start, end: info.End()}, nil
	})
}

// MoveClip moves the clip under moveStart on startTrack to moveEnd on
// endTrack. Without overwrite the destination must have room for the whole
// clip. On a
// track change the clip is recut from prod when given, so each track keeps
// its own producer instance; resampled clips travel as they are.
func (e *Engine) MoveClip(startTrack, endTrack, moveStart, moveEnd int, prod *timeline.Producer, overwrite bool) error {
	const op = "move_clip"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		src, err := editableTrack(t, op, startTrack)
		if err != nil {
			return noSpan, err
		}
		dst, err := editableTrack(t, op, endTrack)
		if err != nil {
			return noSpan, err
		}
		if moveEnd < 0 {
			return noSpan, services.Wrap(services.ErrValidation, "engine", op, fmt.Sprintf("negative destination %d", moveEnd), nil)
		}
		info, err := clipAt(src, op, moveStart)
		if err != nil {
			return noSpan, err
		}

		clip := info.Clip
		if startTrack != endTrack {
			if !overwrite && !hasRoom(dst, moveEnd, clip.Length()) {
				return noSpan, occupiedError(op, endTrack, moveEnd, clip.Length())
			}
			if clip, err = e.recut(op, info.Clip, prod); err != nil {
				return noSpan, err
			}
		}

		if _, err := src.ReplaceWithBlank(info.Index); err != nil {
			return noSpan, err
		}
		src.ConsolidateBlanks(0)
		if startTrack == endTrack && !overwrite && !hasRoom(src, moveEnd, clip.Length()) {
			restoreClip(src, info)
			return noSpan, occupiedError(op, endTrack, moveEnd, clip.Length())
		}

		if overwrite {
			if err := dst.RemoveRegion(moveEnd, clip.Length()); err != nil {
				return noSpan, err
			}
			if err := dst.InsertBlank(dst.ClipIndexAt(moveEnd), clip.Length()); err != nil {
				return noSpan, err
			}
		}
		if _, err := dst.InsertAt(moveEnd, clip, timeline.InsertSplit); err != nil {
			return noSpan, err
		}
		if clip != info.Clip {
			moveEffects(info.Clip, clip)
		}
		dst.ConsolidateBlanks(0)

		from := min(info.Start, moveEnd)
		to := max(info.End(), moveEnd+clip.Length())
		return span{start: from, end: to}, nil
	})
}

// recut returns the clip that lands on another track. Resampled clips keep
// their shared producer.
func (e *Engine) recut(op string, clip *timeline.Clip, prod *timeline.Producer) (*timeline.Clip, error) {
	if clip.Service() == timeline.ServiceFramebuffer || strings.HasSuffix(clip.ID(), "_video") {
		return clip, nil
	}
	if prod == nil {
		return clip.Producer.Cut(clip.In, clip.Out)
	}
	prod, err := e.resolveProducer(op, prod)
	if err != nil {
		return nil, err
	}
	return prod.Cut(clip.In, clip.Out)
}

// ResizeClipEnd changes the clip at p.Start to last newDuration frames.
// Growing consumes the blank that follows it.
func (e *Engine) ResizeClipEnd(p ClipPlacement, newDuration int) error {
	const op = "resize_clip_end"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		track, err := editableTrack(t, op, p.Track)
		if err != nil {
			return noSpan, err
		}
		info, err := clipAt(track, op, p.Start)
		if err != nil {
			return noSpan, err
		}
		if newDuration <= 0 {
			return noSpan, services.Wrap(services.ErrValidation, "engine", op, fmt.Sprintf("duration %d", newDuration), nil)
		}
		diff := newDuration - info.Length
		next, hasNext := track.Info(info.Index + 1)
		if diff > 0 && hasNext && (!next.IsBlank() || next.Length < diff) {
			return noSpan, services.Wrap(services.ErrOccupancy, "engine", op,
				fmt.Sprintf("no room to grow clip at %d by %d frames", info.Start, diff), nil)
		}

		clip := info.Clip
		out := clip.In + newDuration - 1
		clip.Producer.EnsureLength(out + 1)
		if err := track.ResizeClip(info.Index, clip.In, out); err != nil {
			return noSpan, err
		}
		switch {
		case diff > 0 && hasNext:
			if next.Length == diff {
				_ = track.Remove(info.Index + 1)
			} else if err := track.RemoveRegion(track.ClipStart(info.Index+1), diff); err != nil {
				return noSpan, err
			}
		case diff < 0 && hasNext:
			if err := track.InsertBlank(info.Index+1, -diff); err != nil {
				return noSpan, err
			}
		}
		track.ConsolidateBlanks(0)
		return span{start: info.Start, end: info.Start + max(info.Length, newDuration)}, nil
	})
}

// ResizeClipStart moves the start of the clip at p.Start by diff frames,
// keeping its end in place. Extending to the left consumes the preceding
// blank.
func (e *Engine) ResizeClipStart(p ClipPlacement, diff int) error {
	const op = "resize_clip_start"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		track, err := editableTrack(t, op, p.Track)
		if err != nil {
			return noSpan, err
		}
		info, err := clipAt(track, op, p.Start)
		if err != nil {
			return noSpan, err
		}
		if diff == 0 {
			return noSpan, nil
		}
		prev, hasPrev := track.Info(info.Index - 1)
		if diff < 0 && (!hasPrev || !prev.IsBlank() || prev.Length < -diff) {
			return noSpan, services.Wrap(services.ErrOccupancy, "engine", op,
				fmt.Sprintf("no room to extend clip at %d by %d frames", info.Start, -diff), nil)
		}
		clip := info.Clip
		in, out := clip.In+diff, clip.Out
		if in < 0 {
			// Generated sources have no real start; shift the range instead.
			out -= in
			in = 0
		}
		if in > out {
			return noSpan, services.Wrap(services.ErrValidation, "engine", op,
				fmt.Sprintf("trimming %d frames empties clip of %d", diff, info.Length), nil)
		}
		clip.Producer.EnsureLength(out + 1)
		if err := track.ResizeClip(info.Index, in, out); err != nil {
			return noSpan, err
		}
		if diff > 0 {
			if err := track.InsertBlank(info.Index, diff); err != nil {
				return noSpan, err
			}
		} else if prev.Length == -diff {
			_ = track.Remove(prev.Index)
		} else if err := track.RemoveRegion(prev.Start, -diff); err != nil {
			return noSpan, err
		}
		track.ConsolidateBlanks(0)
		return span{start: min(info.Start, info.Start+diff), end: info.End()}, nil
	})
}

// ResizeClipCrop slides the source range of the clip at p.Start by diff
// frames without moving it on the timeline.
func (e *Engine) ResizeClipCrop(p ClipPlacement, diff int) error {
	const op = "resize_clip_crop"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		track, err := editableTrack(t, op, p.Track)
		if err != nil {
			return noSpan, err
		}
		info, err := clipAt(track, op, p.Start)
		if err != nil {
			return noSpan, err
		}
		if err := track.ResizeClip(info.Index, info.Clip.In+diff, info.Clip.Out+diff); err != nil {
			return noSpan, err
		}
		return span{start: info.Start, end: info.End()}, nil
	})
}

// restoreClip puts a clip taken out with ReplaceWithBlank back in place.
func restoreClip(track *timeline.Track, info timeline.EntryInfo) {
	_, _ = track.InsertAt(info.Start, info.Clip, timeline.InsertSplit)
	track.ConsolidateBlanks(0)
}

// hasRoom reports whether length frames starting at pos are empty on track.
// Space past the last entry is unbounded.
func hasRoom(track *timeline.Track, pos, length int) bool {
	idx := track.ClipIndexAt(pos)
	info, ok := track.Info(idx)
	switch {
	case !ok:
		return true
	case !info.IsBlank():
		return false
	default:
		return idx == track.Count()-1 || info.End()-pos >= length
	}
}

func occupiedError(op string, track, pos, length int) error {
	return services.Wrap(services.ErrOccupancy, "engine", op,
		fmt.Sprintf("frames [%d, %d) of track %d are not empty", pos, pos+length, track), nil)
}
