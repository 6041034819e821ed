package timeline

import (
	"fmt"

	"splicer/internal/services"
)

// DefaultProducerLength is the declared length given to generated producers
// (background black, placeholders) before any clip extends them.
const DefaultProducerLength = 15000

const (
	ServiceAvformat           = "avformat"
	ServiceAvformatNoValidate = "avformat-novalidate"
	ServiceFramebuffer        = "framebuffer"
	ServiceColor              = "color"
	ServicePango              = "pango"
)

// Producer is a source media handle. Several clips may cut the same producer.
type Producer struct {
	ID       string
	Service  string
	Resource string
	Length   int
	Props    Props
}

// NewProducer returns a producer with the given identity and declared length.
func NewProducer(id, service, resource string, length int) *Producer {
	return &Producer{ID: id, Service: service, Resource: resource, Length: length}
}

// NewBlackProducer returns the generator used by the background track.
func NewBlackProducer() *Producer {
	p := NewProducer("black", ServiceColor, "black", DefaultProducerLength)
	p.Props.Set("aspect_ratio", "0")
	p.Props.Set("set.test_audio", "0")
	return p
}

// InvalidProducer returns the "Missing clip" placeholder substituted for a
// source that cannot be resolved.
func InvalidProducer(id string) *Producer {
	p := NewProducer(id, ServicePango, "+Missing clip.txt", DefaultProducerLength)
	p.Props.Set("bgcolour", "0xff0000ff")
	p.Props.Set("pad", "10")
	p.Props.Set("kdenlive:invalid", "1")
	return p
}

// Valid reports whether the producer can be cut.
func (p *Producer) Valid() bool {
	return p != nil && p.Service != "" && p.Length > 0
}

// Placeholder reports whether p stands in for missing media.
func (p *Producer) Placeholder() bool {
	return p != nil && p.Props.Int("kdenlive:invalid") == 1
}

// EnsureLength grows the declared length to at least frames, reporting
// whether it changed.
func (p *Producer) EnsureLength(frames int) bool {
	if p == nil || frames <= p.Length {
		return false
	}
	p.Length = frames
	return true
}

// Cut returns a new clip restricted to [in, out]. A negative in is clamped to
// zero and the producer's declared length is extended when out exceeds it.
func (p *Producer) Cut(in, out int) (*Clip, error) {
	if !p.Valid() {
		return nil, services.Wrap(services.ErrProducer, "timeline", "cut", "invalid producer", nil)
	}
	if in < 0 {
		in = 0
	}
	if out < in {
		return nil, services.Wrap(services.ErrValidation, "timeline", "cut", fmt.Sprintf("empty range [%d, %d]", in, out), nil)
	}
	p.EnsureLength(out + 1)
	return &Clip{Producer: p, In: in, Out: out}, nil
}

// Clip is a cut of a producer placed in one playlist slot.
type Clip struct {
	Producer *Producer
	In       int
	Out      int
	Filters  FilterStack
}

// Length returns the number of frames the clip occupies.
func (c *Clip) Length() int {
	return c.Out - c.In + 1
}

// ID returns the producer id backing the clip.
func (c *Clip) ID() string {
	if c == nil || c.Producer == nil {
		return ""
	}
	return c.Producer.ID
}

// Service returns the producer service backing the clip.
func (c *Clip) Service() string {
	if c == nil || c.Producer == nil {
		return ""
	}
	return c.Producer.Service
}

func (c *Clip) validate() error {
	switch {
	case c.Producer == nil:
		return fmt.Errorf("clip has no producer")
	case c.In < 0 || c.Out < c.In:
		return fmt.Errorf("clip %q range [%d, %d] is empty", c.ID(), c.In, c.Out)
	case c.Out >= c.Producer.Length:
		return fmt.Errorf("clip %q out %d exceeds producer length %d", c.ID(), c.Out, c.Producer.Length)
	}
	return nil
}
