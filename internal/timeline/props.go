package timeline

import (
	"strconv"
	"strings"
)

// Prop is a single named property value.
type Prop struct {
	Name  string
	Value string
}

// Props is an insertion-ordered property bag. Order matters for serialization
// and for effect parameter strings, so a map is not used.
type Props struct {
	list []Prop
}

// NewProps builds a bag from alternating name/value pairs.
func NewProps(pairs ...string) Props {
	var p Props
	for i := 0; i+1 < len(pairs); i += 2 {
		p.Set(pairs[i], pairs[i+1])
	}
	return p
}

// Len returns the number of properties.
func (p *Props) Len() int {
	return len(p.list)
}

// Lookup returns the value for name and whether it exists.
func (p *Props) Lookup(name string) (string, bool) {
	for _, item := range p.list {
		if item.Name == name {
			return item.Value, true
		}
	}
	return "", false
}

// Get returns the value for name or the empty string.
func (p *Props) Get(name string) string {
	v, _ := p.Lookup(name)
	return v
}

// Has reports whether name is present.
func (p *Props) Has(name string) bool {
	_, ok := p.Lookup(name)
	return ok
}

// Set updates name in place or appends it.
func (p *Props) Set(name, value string) {
	for i := range p.list {
		if p.list[i].Name == name {
			p.list[i].Value = value
			return
		}
	}
	p.list = append(p.list, Prop{Name: name, Value: value})
}

// Delete removes name, reporting whether it was present.
func (p *Props) Delete(name string) bool {
	for i := range p.list {
		if p.list[i].Name == name {
			p.list = append(p.list[:i], p.list[i+1:]...)
			return true
		}
	}
	return false
}

// DeleteFunc removes every property whose name matches fn.
func (p *Props) DeleteFunc(fn func(name string) bool) {
	kept := p.list[:0]
	for _, item := range p.list {
		if !fn(item.Name) {
			kept = append(kept, item)
		}
	}
	p.list = kept
}

// Int parses name as an integer, returning 0 when missing or malformed.
func (p *Props) Int(name string) int {
	v, ok := p.Lookup(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}

// SetInt stores an integer value.
func (p *Props) SetInt(name string, value int) {
	p.Set(name, strconv.Itoa(value))
}

// Float parses name as a float, returning fallback when missing or malformed.
func (p *Props) Float(name string, fallback float64) float64 {
	v, ok := p.Lookup(name)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return f
}

// SetFloat stores a float value using the shortest exact representation.
func (p *Props) SetFloat(name string, value float64) {
	p.Set(name, strconv.FormatFloat(value, 'f', -1, 64))
}

// All returns a copy of the ordered properties.
func (p *Props) All() []Prop {
	out := make([]Prop, len(p.list))
	copy(out, p.list)
	return out
}

// Clone returns an independent copy.
func (p *Props) Clone() Props {
	return Props{list: p.All()}
}

// Inherit copies every property of other into p, overwriting duplicates.
func (p *Props) Inherit(other *Props) {
	if other == nil {
		return
	}
	for _, item := range other.list {
		p.Set(item.Name, item.Value)
	}
}
