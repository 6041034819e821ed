package engine

import (
	"fmt"

	"splicer/internal/effects"
	"splicer/internal/services"
	"splicer/internal/timeline"
)

// PropTransparency carries the clip id on internal composite transitions.
const PropTransparency = "transparency"

// AddTransition plants a transition of service compositing bTrack onto
// aTrack over the timeline range [in, out).
func (e *Engine) AddTransition(service string, aTrack, bTrack, in, out int, desc effects.TransitionDescription) error {
	const op = "add_transition"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		if err := addTransition(t, op, service, aTrack, bTrack, in, out, desc); err != nil {
			return noSpan, err
		}
		return span{start: in, end: out}, nil
	})
}

// MoveTransition moves the transition of service on startTrack covering
// the middle of [oldIn, oldOut) to [newIn, newOut). A track change replants
// it between newTransitionTrack and newTrack.
func (e *Engine) MoveTransition(service string, startTrack, newTrack, newTransitionTrack, oldIn, oldOut, newIn, newOut int) error {
	const op = "move_transition"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		if newIn >= newOut {
			return noSpan, emptyRange(op, newIn, newOut)
		}
		tr := t.FindTransition(service, startTrack, (oldIn+oldOut)/2)
		if tr == nil {
			return noSpan, transitionNotFound(op, service, startTrack, oldIn)
		}
		if startTrack != newTrack {
			if err := checkTracks(t, op, newTransitionTrack, newTrack); err != nil {
				return noSpan, err
			}
			moved := tr.Clone()
			moved.ATrack = newTransitionTrack
			moved.BTrack = newTrack
			moved.In, moved.Out = newIn, newOut-1
			t.RemoveTransition(tr)
			t.PlantTransition(moved)
		} else {
			tr.In, tr.Out = newIn, newOut-1
		}
		return span{start: min(oldIn, newIn), end: max(oldOut, newOut)}, nil
	})
}

// UpdateTransition edits the transition of oldService on bTrack covering
// [in, out). A different service or force replaces it with a new one.
func (e *Engine) UpdateTransition(oldService, service string, aTrack, bTrack, in, out int, desc effects.TransitionDescription, force bool) error {
	const op = "update_transition"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		if oldService == service && !force {
			if err := updateTransitionParams(t, op, service, aTrack, bTrack, in, out, desc); err != nil {
				return noSpan, err
			}
			return span{start: in, end: out}, nil
		}
		old := t.FindTransition(oldService, bTrack, (in+out)/2)
		if old == nil {
			return noSpan, transitionNotFound(op, oldService, bTrack, in)
		}
		t.RemoveTransition(old)
		if err := addTransition(t, op, service, aTrack, bTrack, in, out, desc); err != nil {
			t.PlantTransition(old)
			return noSpan, err
		}
		return span{start: in, end: out}, nil
	})
}

// UpdateTransitionParams rewrites the parameters of the transition of
// service on bTrack spanning exactly [in, out).
func (e *Engine) UpdateTransitionParams(service string, aTrack, bTrack, in, out int, desc effects.TransitionDescription) error {
	const op = "update_transition_params"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		if err := updateTransitionParams(t, op, service, aTrack, bTrack, in, out, desc); err != nil {
			return noSpan, err
		}
		return span{start: in, end: out}, nil
	})
}

// DeleteTransition removes the transition of service on bTrack covering
// the middle of [in, out).
func (e *Engine) DeleteTransition(service string, bTrack, in, out int) error {
	const op = "delete_transition"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		tr := t.FindTransition(service, bTrack, (in+out)/2)
		if tr == nil {
			return noSpan, transitionNotFound(op, service, bTrack, in)
		}
		t.RemoveTransition(tr)
		return span{start: in, end: out}, nil
	})
}

// AddClipTransparency composites the clip placed at p onto transitionTrack
// with the internal transparency transition of clip id.
func (e *Engine) AddClipTransparency(p ClipPlacement, transitionTrack, id int) error {
	const op = "add_clip_transparency"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		if p.Start >= p.End {
			return noSpan, emptyRange(op, p.Start, p.End)
		}
		if err := checkTracks(t, op, transitionTrack, p.Track); err != nil {
			return noSpan, err
		}
		tr := timeline.NewTransition(timeline.ServiceComposite, transitionTrack, p.Track, p.Start, p.End-1)
		tr.Props.SetInt(PropTransparency, id)
		tr.Props.SetInt("fill", 1)
		tr.Props.SetInt("internal_added", timeline.InternalAddedMarker)
		t.PlantTransition(tr)
		return span{start: p.Start, end: p.End}, nil
	})
}

// DeleteTransparency removes the transparency transition of clip id that
// starts at pos on track.
func (e *Engine) DeleteTransparency(pos, track, id int) error {
	const op = "delete_transparency"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		tr := findTransparency(t, track, pos, id)
		if tr == nil {
			return noSpan, transitionNotFound(op, timeline.ServiceComposite, track, pos)
		}
		t.RemoveTransition(tr)
		return span{start: tr.In, end: tr.Out + 1}, nil
	})
}

// ResizeTransparency sets the range of the transparency transition of clip
// id starting at oldStart to [newStart, newEnd].
func (e *Engine) ResizeTransparency(oldStart, newStart, newEnd, track, id int) error {
	const op = "resize_transparency"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		if newEnd < newStart {
			return noSpan, emptyRange(op, newStart, newEnd)
		}
		tr := findTransparency(t, track, oldStart, id)
		if tr == nil {
			return noSpan, transitionNotFound(op, timeline.ServiceComposite, track, oldStart)
		}
		region := span{start: min(tr.In, newStart), end: max(tr.Out, newEnd) + 1}
		tr.In, tr.Out = newStart, newEnd
		return region, nil
	})
}

// MoveTransparency follows a clip moved from startTime on startTrack to
// endTime on endTrack, keeping the transition length and the distance
// between its tracks.
func (e *Engine) MoveTransparency(startTime, endTime, startTrack, endTrack, id int) error {
	const op = "move_transparency"
	return e.edit(op, func(t *timeline.Tractor) (span, error) {
		tr := findTransparency(t, startTrack, startTime, id)
		if tr == nil {
			return noSpan, transitionNotFound(op, timeline.ServiceComposite, startTrack, startTime)
		}
		if endTrack != startTrack {
			aTrack := tr.ATrack + endTrack - tr.BTrack
			if err := checkTracks(t, op, aTrack, endTrack); err != nil {
				return noSpan, err
			}
			tr.ATrack, tr.BTrack = aTrack, endTrack
		}
		length := tr.Out - tr.In
		region := span{start: min(tr.In, endTime), end: max(tr.Out, endTime+length) + 1}
		tr.In, tr.Out = endTime, endTime+length
		return region, nil
	})
}

func addTransition(t *timeline.Tractor, op, service string, aTrack, bTrack, in, out int, desc effects.TransitionDescription) error {
	if in >= out {
		return emptyRange(op, in, out)
	}
	if err := checkTracks(t, op, aTrack, bTrack); err != nil {
		return err
	}
	t.PlantTransition(effects.NewTransition(service, aTrack, bTrack, in, out-1, desc))
	return nil
}

func updateTransitionParams(t *timeline.Tractor, op, service string, aTrack, bTrack, in, out int, desc effects.TransitionDescription) error {
	if err := checkTracks(t, op, aTrack, bTrack); err != nil {
		return err
	}
	for i := len(t.Transitions) - 1; i >= 0; i-- {
		tr := t.Transitions[i]
		if tr.Service == service && tr.BTrack == bTrack && tr.In == in && tr.Out == out-1 {
			effects.UpdateTransition(tr, aTrack, desc)
			return nil
		}
	}
	return transitionNotFound(op, service, bTrack, in)
}

// findTransparency returns the most recently planted transparency
// transition of clip id starting at pos on track.
func findTransparency(t *timeline.Tractor, track, pos, id int) *timeline.Transition {
	for i := len(t.Transitions) - 1; i >= 0; i-- {
		tr := t.Transitions[i]
		if tr.Service == timeline.ServiceComposite && tr.BTrack == track && tr.In == pos &&
			tr.Props.Has(PropTransparency) && tr.Props.Int(PropTransparency) == id {
			return tr
		}
	}
	return nil
}

func checkTracks(t *timeline.Tractor, op string, tracks ...int) error {
	for _, i := range tracks {
		if i < 0 || i >= t.Count() {
			return services.Wrap(services.ErrTopology, "engine", op, fmt.Sprintf("track %d out of range [0, %d)", i, t.Count()), nil)
		}
	}
	return nil
}

func emptyRange(op string, in, out int) error {
	return services.Wrap(services.ErrValidation, "engine", op, fmt.Sprintf("empty range [%d, %d)", in, out), nil)
}

func transitionNotFound(op, service string, track, pos int) error {
	return services.Wrap(services.ErrNotFound, "engine", op,
		fmt.Sprintf("no %s transition on track %d at frame %d", service, track, pos), nil)
}
