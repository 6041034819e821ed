package timeline

import "github.com/google/uuid"

// Filter is one effect instance attached to a clip or a track.
type Filter struct {
	ID       string
	Service  string
	EffectID string
	Index    int
	In       int
	Out      int
	Props    Props
}

// NewFilter returns a filter for service with a fresh identifier.
func NewFilter(service string) *Filter {
	return &Filter{ID: uuid.NewString(), Service: service}
}

// Clone copies the filter parameter for parameter under a new identifier.
func (f *Filter) Clone() *Filter {
	cp := *f
	cp.ID = uuid.NewString()
	cp.Props = f.Props.Clone()
	return &cp
}

// FilterStack is the ordered list of filters of one attachment point.
type FilterStack struct {
	items []*Filter
}

// Len returns the number of attached filters.
func (s *FilterStack) Len() int {
	return len(s.items)
}

// At returns the filter at position i in attachment order.
func (s *FilterStack) At(i int) *Filter {
	if i < 0 || i >= len(s.items) {
		return nil
	}
	return s.items[i]
}

// All returns the filters in attachment order.
func (s *FilterStack) All() []*Filter {
	out := make([]*Filter, len(s.items))
	copy(out, s.items)
	return out
}

// Attach appends f to the stack.
func (s *FilterStack) Attach(f *Filter) {
	if f != nil {
		s.items = append(s.items, f)
	}
}

// Detach removes f, reporting whether it was attached.
func (s *FilterStack) Detach(f *Filter) bool {
	for i, item := range s.items {
		if item == f {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// DetachFunc removes and returns, in order, every filter matching fn.
func (s *FilterStack) DetachFunc(fn func(*Filter) bool) []*Filter {
	var detached []*Filter
	kept := s.items[:0]
	for _, item := range s.items {
		if fn(item) {
			detached = append(detached, item)
			continue
		}
		kept = append(kept, item)
	}
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = nil
	}
	s.items = kept
	return detached
}

// WithIndex returns the filters carrying effect index ix. Keyframed effects
// are expressed as several filters sharing one index.
func (s *FilterStack) WithIndex(ix int) []*Filter {
	var out []*Filter
	for _, item := range s.items {
		if item.Index == ix {
			out = append(out, item)
		}
	}
	return out
}

// Effects returns the filters that belong to user effects (non-zero index).
func (s *FilterStack) Effects() []*Filter {
	var out []*Filter
	for _, item := range s.items {
		if item.Index != 0 {
			out = append(out, item)
		}
	}
	return out
}
