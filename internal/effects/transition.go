package effects

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"splicer/internal/services"
	"splicer/internal/timeline"
)

// TransitionDescription is the XML description of a transition as produced
// by the effect catalogue.
type TransitionDescription struct {
	XMLName    xml.Name    `xml:"transition"`
	ID         string      `xml:"id,attr,omitempty"`
	Tag        string      `xml:"tag,attr,omitempty"`
	Automatic  string      `xml:"automatic,attr,omitempty"`
	ForceTrack string      `xml:"force_track,attr,omitempty"`
	Parameters []Parameter `xml:"parameter"`
}

// Parameter is one <parameter> element of a description.
type Parameter struct {
	Name     string `xml:"name,attr"`
	Type     string `xml:"type,attr,omitempty"`
	Default  string `xml:"default,attr,omitempty"`
	Value    string `xml:"value,attr,omitempty"`
	Factor   string `xml:"factor,attr,omitempty"`
	NameDesc string `xml:"namedesc,attr,omitempty"`
	Format   string `xml:"format,attr,omitempty"`
}

// ParseTransitionDescription decodes a <transition> element.
func ParseTransitionDescription(data []byte) (TransitionDescription, error) {
	var desc TransitionDescription
	if err := xml.Unmarshal(data, &desc); err != nil {
		return TransitionDescription{}, services.Wrap(services.ErrValidation, "effects", "parse_transition", "invalid transition description", err)
	}
	return desc, nil
}

// IsAutomatic reports whether the transition follows its clips.
func (d TransitionDescription) IsAutomatic() bool {
	return d.Automatic == "1"
}

// ForcedTrack returns the force_track attribute as an integer.
func (d TransitionDescription) ForcedTrack() int {
	n, _ := strconv.Atoi(strings.TrimSpace(d.ForceTrack))
	return n
}

var valueSeparators = regexp.MustCompile(`[,:;x]`)

// Params resolves every parameter to the value stored on the transition.
// Values default to the parameter's default, numeric values are divided by
// their factor, and parameters with a multi-part namedesc are rebuilt from
// their format string.
func (d TransitionDescription) Params() timeline.Props {
	var out timeline.Props
	for _, p := range d.Parameters {
		value := p.Default
		if p.Value != "" {
			value = p.Value
		}
		if p.Type != "addedgeometry" && p.Factor != "" {
			if factor, err := strconv.ParseFloat(p.Factor, 64); err == nil && factor > 0 {
				n, _ := strconv.ParseFloat(strings.TrimSpace(value), 64)
				value = FormatNumber(n / factor)
			}
		}
		if strings.Contains(p.NameDesc, ";") {
			value = formatComposite(p.Format, p.Value)
		}
		out.Set(p.Name, value)
	}
	return out
}

// formatComposite interleaves the integer parts of value with the literal
// separators of a "%d"-style format, e.g. "%d,%d:%dx%d".
func formatComposite(format, value string) string {
	var separators []string
	for _, s := range strings.Split(format, "%d") {
		if s != "" {
			separators = append(separators, s)
		}
	}
	values := valueSeparators.Split(value, -1)
	var b strings.Builder
	if len(values) > 0 {
		fmt.Fprintf(&b, "%d", truncate(values[0]))
	}
	i := 0
	for ; i < len(separators) && i+1 < len(values); i++ {
		b.WriteString(separators[i])
		fmt.Fprintf(&b, "%d", truncate(values[i+1]))
	}
	if i < len(separators) {
		b.WriteString(separators[i])
	}
	return b.String()
}

func truncate(s string) int {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return int(f)
}

// permanentTransitionProps survive a change of transition identifier.
var permanentTransitionProps = map[string]bool{
	"factory":     true,
	"kdenlive_id": true,
	"mlt_service": true,
	"mlt_type":    true,
	"in":          true,
	"out":         true,
	"a_track":     true,
	"b_track":     true,
}

// NewTransition builds a transition of service between two tracks from a
// description. Empty parameter values are not stored.
func NewTransition(service string, aTrack, bTrack, in, out int, desc TransitionDescription) *timeline.Transition {
	tr := timeline.NewTransition(service, aTrack, bTrack, in, out)
	if desc.IsAutomatic() {
		tr.Props.SetInt("automatic", 1)
	}
	if desc.ID != "" {
		tr.Props.Set("kdenlive_id", desc.ID)
	}
	if desc.ForceTrack != "" {
		tr.Props.SetInt("force_track", desc.ForcedTrack())
	}
	params := desc.Params()
	for _, p := range params.All() {
		if p.Value != "" {
			tr.Props.Set(p.Name, p.Value)
		}
	}
	return tr
}

// UpdateTransition rewrites the parameters of tr from desc. When the
// description identifies a different effect every non-permanent property is
// cleared first.
func UpdateTransition(tr *timeline.Transition, aTrack int, desc TransitionDescription) {
	if tr.Props.Get("kdenlive_id") != desc.ID {
		tr.Props.Set("kdenlive_id", desc.ID)
		for _, p := range tr.Props.All() {
			if !strings.HasPrefix(p.Name, "_") && !permanentTransitionProps[p.Name] {
				tr.Props.Set(p.Name, "")
			}
		}
	}
	tr.Props.SetInt("force_track", desc.ForcedTrack())
	automatic := 0
	if desc.IsAutomatic() {
		automatic = 1
	}
	tr.Props.SetInt("automatic", automatic)
	tr.ATrack = aTrack
	params := desc.Params()
	for _, p := range params.All() {
		tr.Props.Set(p.Name, p.Value)
	}
}
