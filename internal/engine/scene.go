package engine

import (
	"fmt"
	"math"

	"splicer/internal/fileutil"
	"splicer/internal/logging"
	"splicer/internal/mltxml"
	"splicer/internal/profile"
	"splicer/internal/services"
	"splicer/internal/slowmo"
	"splicer/internal/timeline"
)

// SceneList serializes the composition at the engine profile. Automatic
// transitions are suspended for the duration of the pass.
func (e *Engine) SceneList() (*mltxml.Document, error) {
	if e.transitionMode.Swap(false) {
		defer e.transitionMode.Store(true)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, err := mltxml.Encode(e.tractor)
	if err != nil {
		return nil, err
	}
	doc.SetProfile(e.profile)
	return doc, nil
}

// SetSceneList replaces the composition with the one described by doc and
// parks the playhead at position. The slow-motion cache is rebuilt from the
// producers the new composition uses.
func (e *Engine) SetSceneList(doc *mltxml.Document, position int) error {
	const op = "set_scene_list"
	tractor, err := mltxml.Decode(doc)
	if err != nil {
		e.logRejected(op, err)
		return err
	}
	prof := documentProfile(doc, e.Profile())

	e.Stop()
	err = e.edit(op, func(*timeline.Tractor) (span, error) {
		e.tractor = tractor
		e.profile = prof
		e.cache.Clear()
		e.cache.Fill(producersOf(tractor))
		return wholeSpan, nil
	})
	if err != nil {
		return err
	}
	e.backend.Seek(max(position, 0))
	e.logger.Info("scene loaded",
		logging.String(logging.FieldOperation, op),
		logging.Int("tracks", tractor.Count()),
		logging.Int("duration", tractor.Duration()),
		logging.String("profile", prof.Name),
	)
	return e.Start()
}

// SaveZone writes the composition restricted to frames [in, out] to path.
func (e *Engine) SaveZone(path string, in, out int) error {
	const op = "save_zone"
	if in < 0 || out < in {
		return services.Wrap(services.ErrValidation, "engine", op, fmt.Sprintf("zone [%d, %d]", in, out), nil)
	}
	doc, err := e.SceneList()
	if err != nil {
		return err
	}
	doc.Tractor.In = fmt.Sprint(in)
	doc.Tractor.Out = fmt.Sprint(out)
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "engine", op, "write zone", err)
	}
	return nil
}

// ChangeFPS rescales every frame position of the composition to newFPS.
func (e *Engine) ChangeFPS(newFPS float64) error {
	const op = "change_fps"
	if newFPS <= 0 || math.IsNaN(newFPS) || math.IsInf(newFPS, 0) {
		return services.Wrap(services.ErrValidation, "engine", op, fmt.Sprintf("frame rate %v", newFPS), nil)
	}
	oldFPS := e.Profile().FPS()
	if oldFPS == newFPS {
		return nil
	}
	doc, err := e.SceneList()
	if err != nil {
		return err
	}
	if err := mltxml.RescaleFPS(doc, oldFPS, newFPS); err != nil {
		return err
	}
	doc.SetFPS(newFPS)
	position := int(float64(e.backend.Position())*newFPS/oldFPS + 0.5)
	e.logger.Info("frame rate changed",
		logging.String(logging.FieldOperation, op),
		logging.Float64("from", oldFPS),
		logging.Float64("to", newFPS),
	)
	return e.SetSceneList(doc, position)
}

// ProducersList returns the distinct source producers cut by clips above
// the background, excluding resampled and anonymous ones.
func (e *Engine) ProducersList() []*timeline.Producer {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*timeline.Producer
	for _, p := range producersOf(e.tractor) {
		if p.ID == "" || slowmo.IsResampledID(p.ID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FillSlowMotionProducers registers the resampled producers used by the
// composition with the cache and returns how many were new.
func (e *Engine) FillSlowMotionProducers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Fill(producersOf(e.tractor))
}

// InvalidProducer reports id as unresolvable and returns the placeholder
// that stands in for it.
func (e *Engine) InvalidProducer(id string) *timeline.Producer {
	e.notifier.NotifyClipInvalid(id)
	logging.WarnWithContext(e.logger, "clip source missing", "clip_invalid",
		logging.String("producer_id", id),
		logging.String(logging.FieldImpact, "clip renders as a placeholder"),
		logging.String(logging.FieldErrorHint, "relink the missing media"),
	)
	return timeline.InvalidProducer(id)
}

// documentProfile returns the profile recorded in doc, or fallback when
// the document carries none.
func documentProfile(doc *mltxml.Document, fallback profile.Profile) profile.Profile {
	el := doc.Profile
	if el == nil || el.FrameRateDen == 0 {
		return fallback
	}
	p := profile.Profile{
		Name:         fallback.Name,
		Description:  el.Description,
		Width:        el.Width,
		Height:       el.Height,
		FrameRateNum: el.FrameRateNum,
		FrameRateDen: el.FrameRateDen,
		Progressive:  el.Progressive == 1,
	}
	if p.Width == 0 || p.Height == 0 {
		p.Width, p.Height = fallback.Width, fallback.Height
	}
	if p.Description == "" {
		p.Description = fallback.Description
	}
	if p != fallback {
		p.Name = fmt.Sprintf("custom_%dx%d_%g", p.Width, p.Height, p.FPS())
	}
	return p
}
