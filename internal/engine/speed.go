package engine

import (
	"fmt"
	"math"

	"splicer/internal/logging"
	"splicer/internal/services"
	"splicer/internal/slowmo"
	"splicer/internal/timeline"
)

// ChangeClipSpeed replays the clip at p.Start at speed, strobing every
// strobe frames. source describes the clip in source frames at normal
// speed; src is the normal speed producer and may be nil when the clip
// itself carries it. The new clip keeps its start and is truncated to the
// blank that follows it. It returns the new clip length.
func (e *Engine) ChangeClipSpeed(p ClipPlacement, source ClipPlacement, speed float64, strobe int, src *timeline.Producer) (int, error) {
	const op = "change_clip_speed"
	newLength := 0
	err := e.edit(op, func(t *timeline.Tractor) (span, error) {
		track, err := editableTrack(t, op, p.Track)
		if err != nil {
			return noSpan, err
		}
		info, err := clipAt(track, op, p.Start)
		if err != nil {
			return noSpan, err
		}
		speed = slowmo.NormalizeSpeed(speed)
		target, err := e.speedProducer(op, info.Clip, speed, strobe, src)
		if err != nil {
			return noSpan, err
		}

		cropStart, cropDuration := source.CropStart, source.CropDuration
		if cropDuration <= 0 {
			cropStart, cropDuration = p.CropStart, p.CropDuration
		}
		if cropDuration <= 0 {
			// A resampled clip counts frames at its current speed.
			current := math.Abs(slowmo.Speed(info.Clip.Producer))
			cropStart = int(math.Round(float64(info.Clip.In) * current))
			cropDuration = int(math.Round(float64(info.Length) * current))
		}
		factor := math.Abs(speed)
		start := int(float64(cropStart) / factor)
		duration := int(float64(cropDuration) / factor)

		if _, err := track.ReplaceWithBlank(info.Index); err != nil {
			return noSpan, err
		}
		track.ConsolidateBlanks(0)
		blank, _ := track.Info(track.ClipIndexAt(info.Start))
		if blank.Index+1 < track.Count() && info.Start+duration > blank.End() {
			duration = blank.End() - info.Start
		}
		if duration <= 0 {
			restoreClip(track, info)
			return noSpan, services.Wrap(services.ErrOccupancy, "engine", op,
				fmt.Sprintf("no room for clip at %d at speed %s", info.Start, formatSpeed(speed)), nil)
		}
		clip, err := target.Cut(start, start+duration-1)
		if err != nil {
			restoreClip(track, info)
			return noSpan, err
		}
		moveEffects(info.Clip, clip)
		if _, err := track.InsertAt(info.Start, clip, timeline.InsertSplit); err != nil {
			moveEffects(clip, info.Clip)
			restoreClip(track, info)
			return noSpan, err
		}
		track.ConsolidateBlanks(0)
		newLength = clip.Length()
		e.logger.Debug("clip speed changed",
			logging.Int(logging.FieldTrack, p.Track),
			logging.Int("start", info.Start),
			logging.Float64("speed", speed),
			logging.Int("strobe", strobe),
			logging.Int("length", newLength),
		)
		return span{start: info.Start, end: info.Start + max(info.Length, newLength)}, nil
	})
	return newLength, err
}

// speedProducer returns the producer a clip at speed must cut: a shared
// resampled producer, or the normal speed source.
func (e *Engine) speedProducer(op string, clip *timeline.Clip, speed float64, strobe int, src *timeline.Producer) (*timeline.Producer, error) {
	service := clip.Service()
	if !slowmo.Supports(service) && service != timeline.ServiceFramebuffer {
		if !slowmo.NeedsResample(speed, strobe) && src != nil {
			return e.resolveProducer(op, src)
		}
		return nil, services.Wrap(services.ErrProducer, "engine", op,
			fmt.Sprintf("producer %q of service %q cannot change speed", clip.ID(), service), nil)
	}

	base := src
	if base == nil {
		base = clip.Producer
		if service == timeline.ServiceFramebuffer {
			base = sourceOf(clip.Producer)
		}
	}
	if !slowmo.NeedsResample(speed, strobe) {
		return e.resolveProducer(op, base)
	}
	if !slowmo.Supports(base.Service) {
		return nil, services.Wrap(services.ErrProducer, "engine", op,
			fmt.Sprintf("source %q of service %q cannot be resampled", base.ID, base.Service), nil)
	}
	p, created, err := e.cache.Acquire(base, speed, strobe)
	if err != nil {
		return nil, err
	}
	if created {
		e.logger.Info("slow motion producer created",
			logging.String("producer_id", p.ID),
			logging.String("resource", p.Resource),
		)
	}
	return p, nil
}

// sourceOf rebuilds the normal speed producer behind a resampled one.
func sourceOf(p *timeline.Producer) *timeline.Producer {
	speed := math.Abs(slowmo.Speed(p))
	length := int(math.Ceil(float64(p.Length) * speed))
	src := timeline.NewProducer(slowmo.SourceID(p.ID), timeline.ServiceAvformat, slowmo.SourceResource(p.Resource), max(length, 1))
	src.Props.Inherit(&p.Props)
	src.Props.Delete("strobe")
	return src
}

func formatSpeed(speed float64) string {
	return fmt.Sprintf("%g", speed)
}
