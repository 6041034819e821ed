package timeline

import "github.com/google/uuid"

// InternalAddedMarker tags transitions created by the engine itself rather
// than by the user.
const InternalAddedMarker = 237

const (
	ServiceMix       = "mix"
	ServiceComposite = "composite"
)

// Transition is a binary operator between two tracks over [In, Out].
type Transition struct {
	ID      string
	Service string
	ATrack  int
	BTrack  int
	In      int
	Out     int
	Props   Props
}

// NewTransition returns a transition with a fresh identifier.
func NewTransition(service string, aTrack, bTrack, in, out int) *Transition {
	return &Transition{
		ID:      uuid.NewString(),
		Service: service,
		ATrack:  aTrack,
		BTrack:  bTrack,
		In:      in,
		Out:     out,
	}
}

// NewMixTransition returns the internal audio mix between two tracks.
func NewMixTransition(aTrack, bTrack int) *Transition {
	t := NewTransition(ServiceMix, aTrack, bTrack, 0, 0)
	t.Props.SetInt("always_active", 1)
	t.Props.SetInt("combine", 1)
	t.Props.SetInt("internal_added", InternalAddedMarker)
	return t
}

// IsMix reports whether t is an audio mix transition.
func (t *Transition) IsMix() bool {
	return t.Service == ServiceMix
}

// Internal reports whether t was planted by the engine.
func (t *Transition) Internal() bool {
	return t.Props.Int("internal_added") == InternalAddedMarker
}

// Automatic reports whether t follows its clips automatically.
func (t *Transition) Automatic() bool {
	return t.Props.Int("automatic") == 1
}

// Tag returns the effect identifier, falling back to the service name.
func (t *Transition) Tag() string {
	if id := t.Props.Get("kdenlive_id"); id != "" {
		return id
	}
	return t.Service
}

// Covers reports whether pos lies in [In, Out].
func (t *Transition) Covers(pos int) bool {
	return t.In <= pos && pos <= t.Out
}

// Clone copies t under a new identifier.
func (t *Transition) Clone() *Transition {
	cp := *t
	cp.ID = uuid.NewString()
	cp.Props = t.Props.Clone()
	return &cp
}
