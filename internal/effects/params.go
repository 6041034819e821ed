package effects

import (
	"strings"

	"splicer/internal/timeline"
)

// Reserved parameter names carried by every effect description.
const (
	ParamID        = "id"
	ParamTag       = "tag"
	ParamIndex     = "kdenlive_ix"
	ParamEffectID  = "kdenlive_id"
	ParamRegion    = "region"
	ParamKeyframes = "keyframes"
	ParamStartTag  = "starttag"
	ParamEndTag    = "endtag"
	ParamMin       = "min"
	ParamMax       = "max"
	ParamFactor    = "factor"
	ParamSyncInOut = "_sync_in_out"
	ParamDisable   = "disable"
)

// SpeedEffectID names the pseudo-effect that reserves an index slot without
// attaching a filter.
const SpeedEffectID = "speed"

// Params is the ordered parameter list describing one effect.
type Params struct {
	timeline.Props
}

// NewParams builds a parameter list from alternating name/value pairs.
func NewParams(pairs ...string) Params {
	return Params{Props: timeline.NewProps(pairs...)}
}

// ID returns the effect identifier.
func (p *Params) ID() string { return p.Get(ParamID) }

// Tag returns the filter service the effect instantiates.
func (p *Params) Tag() string { return p.Get(ParamTag) }

// Index returns the effect position in its stack.
func (p *Params) Index() int { return p.Int(ParamIndex) }

// Value returns name or fallback when it is missing or empty.
func (p *Params) Value(name, fallback string) string {
	if v := p.Get(name); v != "" {
		return v
	}
	return fallback
}

// IsSpeed reports whether the description is the speed pseudo-effect.
func (p *Params) IsSpeed() bool {
	return p.ID() == SpeedEffectID
}

// Keyframed reports whether the effect is expressed as per-segment filters.
func (p *Params) Keyframed() bool {
	return strings.TrimSpace(p.Get(ParamKeyframes)) != ""
}

// RequiresRebuild reports whether editing the effect means removing every
// filter instance and building them again from the new description.
func (p *Params) RequiresRebuild() bool {
	tag := p.Tag()
	return p.Keyframed() ||
		strings.HasPrefix(tag, "ladspa") ||
		tag == "sox" ||
		tag == "autotrack_rectangle" ||
		p.Has(ParamRegion)
}

// Clone returns an independent copy.
func (p *Params) Clone() Params {
	return Params{Props: p.Props.Clone()}
}
