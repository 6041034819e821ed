package editscript

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"splicer/internal/effects"
	"splicer/internal/engine"
	"splicer/internal/logging"
	"splicer/internal/services"
	"splicer/internal/timeline"
)

// Result summarizes an applied script.
type Result struct {
	Applied  int
	Duration int
}

// OpError reports the op a script stopped at.
type OpError struct {
	Index int
	Kind  string
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("op %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Apply runs the ops of s against e in order. It stops at the first op the
// engine rejects; edits applied before it are kept.
func Apply(ctx context.Context, e *engine.Engine, s *Script, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "editscript")

	a := applier{engine: e, declared: s.producers()}
	var result Result
	for i, op := range s.Ops {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		opCtx := services.WithOperation(services.WithTrack(ctx, op.Track), op.Kind)
		if err := a.apply(op); err != nil {
			logging.WarnWithContext(logging.WithContext(opCtx, logger), "edit script stopped", "script_op_rejected",
				logging.Int("op", i),
				logging.Error(err),
				logging.ErrorKind(err),
				logging.String(logging.FieldImpact, "later ops were not applied"),
			)
			result.Duration = e.Duration()
			return result, &OpError{Index: i, Kind: op.Kind, Err: err}
		}
		result.Applied++
		logging.WithContext(opCtx, logger).Debug("op applied", logging.Int("op", i))
	}
	result.Duration = e.Duration()
	logger.Info("edit script applied",
		logging.Int("ops", result.Applied),
		logging.Int("duration", result.Duration),
	)
	return result, nil
}

type applier struct {
	engine   *engine.Engine
	declared map[string]*timeline.Producer
}

func (a *applier) apply(op Op) error {
	e := a.engine
	placement := engine.ClipPlacement{Track: op.Track, Start: op.Start, End: op.End, CropStart: op.CropStart}
	switch op.Kind {
	case KindInsert:
		prod, err := a.producer(op.Producer)
		if err != nil {
			return err
		}
		_, err = e.InsertClip(placement, prod, op.Overwrite, op.Push)
		return err
	case KindCut:
		return e.CutClip(op.Track, op.Pos)
	case KindRemove:
		return e.RemoveClip(op.Track, op.Pos)
	case KindMove:
		toTrack := op.Track
		if op.ToTrack != nil {
			toTrack = *op.ToTrack
		}
		var prod *timeline.Producer
		if op.Producer != "" {
			var err error
			if prod, err = a.producer(op.Producer); err != nil {
				return err
			}
		}
		return e.MoveClip(op.Track, toTrack, op.Pos, op.To, prod, op.Overwrite)
	case KindResizeEnd:
		return e.ResizeClipEnd(placement, op.Duration)
	case KindResizeStart:
		return e.ResizeClipStart(placement, op.Diff)
	case KindCrop:
		return e.ResizeClipCrop(placement, op.Diff)
	case KindSpace:
		track := op.Track
		if op.AllTracks {
			track = engine.AllTracks
		}
		return e.InsertSpace(track, op.Duration, op.Pos)
	case KindSpeed:
		_, err := e.ChangeClipSpeed(placement, engine.ClipPlacement{}, op.Speed, max(op.Strobe, 1), nil)
		return err
	case KindEffect:
		params := effectParams(op.Params)
		if op.WholeTrack {
			return e.AddTrackEffect(op.Track, params)
		}
		return e.AddEffect(op.Track, op.Pos, params)
	case KindTransition:
		return e.AddTransition(op.Service, op.ATrack, op.Track, op.Start, op.End, transitionDescription(op))
	case KindTrackState:
		return e.ChangeTrackState(op.Track, op.Mute, op.Blind)
	case KindTrackLock:
		return e.SetTrackLocked(op.Track, op.Locked)
	case KindInsertTrack:
		_, err := e.InsertTrack(op.Track, op.Video)
		return err
	case KindDeleteTrack:
		return e.DeleteTrack(op.Track)
	}
	return services.Wrap(services.ErrValidation, "editscript", "apply", fmt.Sprintf("unknown kind %q", op.Kind), nil)
}

// producer resolves id against the declared producers, then against the
// sources already used by the composition.
func (a *applier) producer(id string) (*timeline.Producer, error) {
	if p, ok := a.declared[id]; ok {
		return p, nil
	}
	for _, p := range a.engine.ProducersList() {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, services.Wrap(services.ErrNotFound, "editscript", "apply", fmt.Sprintf("producer %q", id), nil)
}

// effectParams orders the reserved names first so the built filters match
// an effect description read from XML.
func effectParams(values map[string]string) effects.Params {
	reserved := []string{effects.ParamID, effects.ParamTag, effects.ParamIndex}
	pairs := make([]string, 0, 2*len(values))
	for _, name := range reserved {
		if v, ok := values[name]; ok {
			pairs = append(pairs, name, v)
		}
	}
	for _, name := range sortedKeys(values) {
		if slices.Contains(reserved, name) {
			continue
		}
		pairs = append(pairs, name, values[name])
	}
	params := effects.NewParams(pairs...)
	if _, ok := values[effects.ParamTag]; !ok {
		params.Set(effects.ParamTag, values[effects.ParamID])
	}
	return params
}

func transitionDescription(op Op) effects.TransitionDescription {
	desc := effects.TransitionDescription{ID: op.Service, Tag: op.Service}
	for _, name := range sortedKeys(op.Params) {
		desc.Parameters = append(desc.Parameters, effects.Parameter{Name: name, Value: op.Params[name]})
	}
	return desc
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Describe renders op in one line for listings.
func Describe(op Op) string {
	switch op.Kind {
	case KindInsert:
		return fmt.Sprintf("insert %s on track %d at [%d, %d)", op.Producer, op.Track, op.Start, op.End)
	case KindMove:
		to := op.Track
		if op.ToTrack != nil {
			to = *op.ToTrack
		}
		return fmt.Sprintf("move clip %d/%d to %d/%d", op.Track, op.Pos, to, op.To)
	case KindSpace:
		track := strconv.Itoa(op.Track)
		if op.AllTracks {
			track = "all"
		}
		return fmt.Sprintf("space %+d on track %s at %d", op.Duration, track, op.Pos)
	case KindSpeed:
		return fmt.Sprintf("speed %s on track %d at %d", effects.FormatNumber(op.Speed), op.Track, op.Start)
	case KindTransition:
		return fmt.Sprintf("%s transition %d onto %d at [%d, %d)", op.Service, op.Track, op.ATrack, op.Start, op.End)
	}
	return fmt.Sprintf("%s on track %d", op.Kind, op.Track)
}
