package engine

import (
	"cmp"
	"fmt"
	"slices"

	"splicer/internal/effects"
	"splicer/internal/services"
	"splicer/internal/timeline"
)

// AllEffects selects every user effect in RemoveEffect.
const AllEffects = -1

// AddEffect attaches the effect described by params to the clip under pos.
// An effect already holding the same index is pushed one slot up together
// with everything above it.
func (e *Engine) AddEffect(track, pos int, params effects.Params) error {
	const op = "add_effect"
	return e.editClipEffects(op, track, pos, func(clip *timeline.Clip, target effects.Target) error {
		return addFilters(&clip.Filters, params, target)
	})
}

// RemoveEffect detaches the effect with index from the clip under pos, or
// every user effect when index is AllEffects. With updateIndex the effects
// above it move down one slot.
func (e *Engine) RemoveEffect(track, pos, index int, updateIndex bool) error {
	const op = "remove_effect"
	return e.editClipEffects(op, track, pos, func(clip *timeline.Clip, _ effects.Target) error {
		if !removeFilters(&clip.Filters, index, updateIndex) {
			return effectNotFound(op, index)
		}
		return nil
	})
}

// EditEffect applies params to the clip effect with the same index. Effects
// whose filters depend on the parameters are rebuilt; a missing effect is
// added.
func (e *Engine) EditEffect(track, pos int, params effects.Params) error {
	const op = "edit_effect"
	return e.editClipEffects(op, track, pos, func(clip *timeline.Clip, target effects.Target) error {
		if params.RequiresRebuild() {
			removeFilters(&clip.Filters, params.Index(), false)
			return addFilters(&clip.Filters, params, target)
		}
		if !applyFilters(&clip.Filters, params, target) {
			return addFilters(&clip.Filters, params, target)
		}
		return nil
	})
}

// UpdateEffectPosition renumbers the clip effect at oldIndex to newIndex
// without reordering the stack.
func (e *Engine) UpdateEffectPosition(track, pos, oldIndex, newIndex int) error {
	const op = "update_effect_position"
	return e.editClipEffects(op, track, pos, func(clip *timeline.Clip, _ effects.Target) error {
		found := false
		for _, f := range clip.Filters.WithIndex(oldIndex) {
			f.Index = newIndex
			found = true
		}
		if !found {
			return effectNotFound(op, oldIndex)
		}
		return nil
	})
}

// MoveEffect moves the clip effect at oldIndex to newIndex, shifting the
// effects in between by one slot.
func (e *Engine) MoveEffect(track, pos, oldIndex, newIndex int) error {
	const op = "move_effect"
	return e.editClipEffects(op, track, pos, func(clip *timeline.Clip, _ effects.Target) error {
		if !moveFilters(&clip.Filters, oldIndex, newIndex) {
			return effectNotFound(op, oldIndex)
		}
		return nil
	})
}

// AddTrackEffect attaches an effect to the whole of track.
func (e *Engine) AddTrackEffect(track int, params effects.Params) error {
	const op = "add_track_effect"
	return e.editTrackEffects(op, track, func(pl *timeline.Track, target effects.Target) error {
		return addFilters(&pl.Filters, params, target)
	})
}

// RemoveTrackEffect detaches the track effect with index, or every user
// effect when index is AllEffects.
func (e *Engine) RemoveTrackEffect(track, index int, updateIndex bool) error {
	const op = "remove_track_effect"
	return e.editTrackEffects(op, track, func(pl *timeline.Track, _ effects.Target) error {
		if !removeFilters(&pl.Filters, index, updateIndex) {
			return effectNotFound(op, index)
		}
		return nil
	})
}

// EditTrackEffect applies params to the track effect with the same index.
// Unlike clip effects a missing track effect is an error.
func (e *Engine) EditTrackEffect(track int, params effects.Params) error {
	const op = "edit_track_effect"
	return e.editTrackEffects(op, track, func(pl *timeline.Track, target effects.Target) error {
		if params.RequiresRebuild() {
			removeFilters(&pl.Filters, params.Index(), false)
			return addFilters(&pl.Filters, params, target)
		}
		if !applyFilters(&pl.Filters, params, target) {
			return effectNotFound(op, params.Index())
		}
		return nil
	})
}

// MoveTrackEffect moves the track effect at oldIndex to newIndex.
func (e *Engine) MoveTrackEffect(track, oldIndex, newIndex int) error {
	const op = "move_track_effect"
	return e.editTrackEffects(op, track, func(pl *timeline.Track, _ effects.Target) error {
		if !moveFilters(&pl.Filters, oldIndex, newIndex) {
			return effectNotFound(op, oldIndex)
		}
		return nil
	})
}

func (e *Engine) editClipEffects(op string, track, pos int, fn func(*timeline.Clip, effects.Target) error) error {
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		pl, err := editableTrack(t, op, track)
		if err != nil {
			return noSpan, err
		}
		info, err := clipAt(pl, op, pos)
		if err != nil {
			return noSpan, err
		}
		target := effects.Target{In: info.Clip.In, Out: info.Clip.Out, Duration: info.Length}
		if err := fn(info.Clip, target); err != nil {
			return noSpan, err
		}
		return span{start: info.Start, end: info.End()}, nil
	})
}

func (e *Engine) editTrackEffects(op string, track int, fn func(*timeline.Track, effects.Target) error) error {
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		pl, err := t.Track(track)
		if err != nil {
			return noSpan, err
		}
		last := max(pl.Playtime()-1, 0)
		if err := fn(pl, effects.Target{In: 0, Out: last, Duration: last}); err != nil {
			return noSpan, err
		}
		return wholeSpan, nil
	})
}

// addFilters builds params into stack at its index.
func addFilters(stack *timeline.FilterStack, params effects.Params, target effects.Target) error {
	ix := params.Index()
	collision := len(stack.WithIndex(ix)) > 0
	if params.IsSpeed() {
		// The speed effect only reserves its slot.
		if collision {
			for _, f := range stack.All() {
				if f.Index >= ix {
					f.Index++
				}
			}
		}
		return nil
	}
	built, err := effects.Build(params, target)
	if err != nil {
		return err
	}
	above := stack.DetachFunc(func(f *timeline.Filter) bool { return f.Index >= ix })
	for _, f := range built {
		stack.Attach(f)
	}
	for _, f := range above {
		if collision {
			f.Index++
		}
		stack.Attach(f)
	}
	return nil
}

// removeFilters detaches the filters of effect index, or of every user
// effect for AllEffects, reporting whether any was found.
func removeFilters(stack *timeline.FilterStack, index int, updateIndex bool) bool {
	removed := stack.DetachFunc(func(f *timeline.Filter) bool {
		if index == AllEffects {
			return f.EffectID != ""
		}
		return f.Index == index
	})
	if updateIndex && index != AllEffects {
		for _, f := range stack.All() {
			if f.Index > index {
				f.Index--
			}
		}
	}
	return len(removed) > 0
}

// applyFilters edits the filters of effect params.Index() in place.
func applyFilters(stack *timeline.FilterStack, params effects.Params, target effects.Target) bool {
	matched := stack.WithIndex(params.Index())
	for _, f := range matched {
		effects.Apply(f, params, target)
	}
	return len(matched) > 0
}

// moveFilters gives the filters of oldIndex the slot newIndex and
// reattaches every filter from the lower of the two in index order.
func moveFilters(stack *timeline.FilterStack, oldIndex, newIndex int) bool {
	moving := stack.WithIndex(oldIndex)
	if len(moving) == 0 {
		return false
	}
	if oldIndex == newIndex {
		return true
	}
	moved := make(map[*timeline.Filter]bool, len(moving))
	for _, f := range moving {
		moved[f] = true
	}
	lowest := min(oldIndex, newIndex)
	detached := stack.DetachFunc(func(f *timeline.Filter) bool { return f.Index >= lowest })
	for _, f := range detached {
		switch {
		case moved[f]:
			f.Index = newIndex
		case newIndex > oldIndex && f.Index > oldIndex && f.Index <= newIndex:
			f.Index--
		case newIndex < oldIndex && f.Index >= newIndex && f.Index < oldIndex:
			f.Index++
		}
	}
	slices.SortStableFunc(detached, func(a, b *timeline.Filter) int { return cmp.Compare(a.Index, b.Index) })
	for _, f := range detached {
		stack.Attach(f)
	}
	return true
}

func effectNotFound(op string, index int) error {
	return services.Wrap(services.ErrNotFound, "engine", op, fmt.Sprintf("no effect with index %d", index), nil)
}
