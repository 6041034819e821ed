// Package effects turns effect and transition descriptions into the filters
// and transitions planted on a timeline.
//
// An effect description is an ordered parameter list. Keyframed effects are
// expanded into one filter per keyframe segment, region effects are wrapped
// in a region filter whose parameters carry the "filter0." prefix, and sox
// effects collapse their parameters into a single argument string.
// Transition descriptions are XML documents whose <parameter> elements are
// resolved with defaults, factors and composite formats.
package effects
