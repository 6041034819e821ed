package mltxml

import (
	"strconv"
	"strings"

	"splicer/internal/services"
)

// RescaleFPS rewrites every frame position in doc from oldFPS to newFPS.
// Entry, filter and transition ranges, blank lengths, "pos=" geometry keys
// and the tractor out point are multiplied by newFPS/oldFPS and rounded to
// the nearest frame. Derived producer metadata (in/out, length and meta.*
// properties) is dropped so it is recomputed on load.
func RescaleFPS(doc *Document, oldFPS, newFPS float64) error {
	if doc == nil {
		return services.Wrap(services.ErrValidation, "mltxml", "rescale_fps", "nil document", nil)
	}
	if oldFPS <= 0 || newFPS <= 0 {
		return services.Wrap(services.ErrValidation, "mltxml", "rescale_fps", "frame rates must be positive", nil)
	}
	factor := newFPS / oldFPS
	scale := func(v string) string {
		if v == "" {
			return v
		}
		return strconv.Itoa(rescaleFrame(atoi(v), factor))
	}

	for i := range doc.Producers {
		p := &doc.Producers[i]
		p.In, p.Out = "", ""
		kept := p.Properties[:0]
		for _, prop := range p.Properties {
			if strings.HasPrefix(prop.Name, "meta.") || prop.Name == propLength {
				continue
			}
			kept = append(kept, prop)
		}
		p.Properties = kept
	}

	rescaleFilters := func(filters []Filter) {
		for i := range filters {
			filters[i].In = scale(filters[i].In)
			filters[i].Out = scale(filters[i].Out)
		}
	}
	for i := range doc.Playlists {
		pl := &doc.Playlists[i]
		rescaleFilters(pl.Filters)
		for j := range pl.Items {
			item := &pl.Items[j]
			if item.IsBlank() {
				item.Length = scale(item.Length)
				continue
			}
			item.In = scale(item.In)
			item.Out = scale(item.Out)
			rescaleFilters(item.Filters)
		}
	}

	if doc.Tractor != nil {
		for i := range doc.Tractor.Transitions {
			tr := &doc.Tractor.Transitions[i]
			tr.In = scale(tr.In)
			tr.Out = scale(tr.Out)
			for j := range tr.Properties {
				if tr.Properties[j].Name == "geometry" {
					tr.Properties[j].Value = rescaleGeometry(tr.Properties[j].Value, factor)
				}
			}
		}
		doc.Tractor.Out = scale(doc.Tractor.Out)
	}
	doc.SetFPS(newFPS)
	return nil
}

func rescaleFrame(v int, factor float64) int {
	return int(factor*float64(v) + 0.5)
}

// rescaleGeometry rescales the position of every "pos=value" key of a
// semicolon separated geometry string.
func rescaleGeometry(geometry string, factor float64) string {
	keys := strings.Split(geometry, ";")
	for i, key := range keys {
		pos, rest, ok := strings.Cut(key, "=")
		if !ok {
			continue
		}
		keys[i] = strconv.Itoa(rescaleFrame(atoi(pos), factor)) + "=" + rest
	}
	return strings.Join(keys, ";")
}
