package effects

import (
	"fmt"
	"strconv"
	"strings"

	"splicer/internal/services"
	"splicer/internal/timeline"
)

// RegionService is the wrapper filter that restricts an effect to an area.
const RegionService = "region"

// RegionPrefix namespaces the wrapped filter's parameters on a region filter.
const RegionPrefix = "filter0."

// Target describes the service an effect attaches to.
type Target struct {
	In       int
	Out      int
	Duration int
}

var reserved = map[string]bool{
	ParamID:       true,
	ParamTag:      true,
	ParamIndex:    true,
	ParamEffectID: true,
	"mlt_service": true,
	"in":          true,
	"out":         true,
}

// Build returns the filter instances implementing one effect. A keyframed
// effect produces one filter per keyframe segment, or a single constant
// filter when only one keyframe is given.
func Build(params Params, target Target) ([]*timeline.Filter, error) {
	params = params.Clone()
	tag := params.Tag()
	if tag == "" {
		return nil, services.Wrap(services.ErrValidation, "effects", "build", "effect has no tag", nil)
	}
	if params.Keyframed() {
		return buildKeyframed(params, target)
	}
	f, err := buildSingle(params, target)
	if err != nil {
		return nil, err
	}
	return []*timeline.Filter{f}, nil
}

func buildSingle(params Params, target Target) (*timeline.Filter, error) {
	tag := params.Tag()
	id := params.ID()
	index := params.Index()
	region := params.Get(ParamRegion)

	service := tag
	prefix := ""
	if region != "" {
		service = RegionService
		prefix = RegionPrefix
	}
	f := timeline.NewFilter(service)
	f.EffectID = id
	f.Index = index
	if region != "" {
		f.Props.Set("resource", region)
		f.Props.Set("filter0", tag)
		params.Delete(ParamRegion)
	}
	if params.Delete(ParamSyncInOut) {
		f.In, f.Out = target.In, target.Out
	}
	for _, p := range params.All() {
		if reserved[p.Name] {
			continue
		}
		f.Props.Set(prefix+p.Name, p.Value)
	}
	if tag == "sox" {
		f.Props.Set("effect", soxArguments(params))
	}
	return f, nil
}

// soxArguments joins the sox effect name, taken from the effect id after its
// first underscore, with the remaining parameter values.
func soxArguments(params Params) string {
	var args []string
	if _, name, ok := strings.Cut(params.ID(), "_"); ok {
		args = append(args, name)
	}
	for _, p := range params.All() {
		switch p.Name {
		case ParamID, ParamIndex, ParamTag, ParamDisable, ParamRegion, ParamEffectID:
			continue
		}
		args = append(args, p.Value)
	}
	return strings.Join(strings.Fields(strings.Join(args, " ")), " ")
}

// Keyframe is one point of a keyframed parameter.
type Keyframe struct {
	Frame int
	Value float64
}

// ParseKeyframes parses "frame:value;frame:value" lists. Empty items are
// skipped.
func ParseKeyframes(raw string) ([]Keyframe, error) {
	var out []Keyframe
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		frameText, valueText, _ := strings.Cut(item, ":")
		frame, err := strconv.Atoi(strings.TrimSpace(frameText))
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "effects", "parse_keyframes",
				fmt.Sprintf("bad frame in %q", item), err)
		}
		value := 0.0
		if strings.TrimSpace(valueText) != "" {
			value, err = strconv.ParseFloat(strings.TrimSpace(valueText), 64)
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, "effects", "parse_keyframes",
					fmt.Sprintf("bad value in %q", item), err)
			}
		}
		out = append(out, Keyframe{Frame: frame, Value: value})
	}
	return out, nil
}

func buildKeyframed(params Params, target Target) ([]*timeline.Filter, error) {
	keyframes, err := ParseKeyframes(params.Get(ParamKeyframes))
	if err != nil {
		return nil, err
	}
	if len(keyframes) == 0 {
		return nil, services.Wrap(services.ErrValidation, "effects", "build", "empty keyframe list", nil)
	}
	startTag := params.Value(ParamStartTag, "start")
	endTag := params.Value(ParamEndTag, "end")
	minimum := params.Float(ParamMin, 0)
	factor := params.Float(ParamFactor, 1)
	if factor == 0 {
		factor = 1
	}
	for _, name := range []string{ParamStartTag, ParamEndTag, ParamKeyframes, ParamMin, ParamMax, ParamFactor} {
		params.Delete(name)
	}
	scale := func(v float64) string {
		return FormatNumber((minimum + v) / factor)
	}
	newSegment := func() *timeline.Filter {
		f := timeline.NewFilter(params.Tag())
		f.EffectID = params.ID()
		f.Index = params.Index()
		for _, p := range params.All() {
			if !reserved[p.Name] {
				f.Props.Set(p.Name, p.Value)
			}
		}
		return f
	}

	if len(keyframes) == 1 {
		f := newSegment()
		f.In = keyframes[0].Frame
		f.Props.Set(startTag, scale(keyframes[0].Value))
		return []*timeline.Filter{f}, nil
	}
	out := make([]*timeline.Filter, 0, len(keyframes)-1)
	offset := 0
	for i := 0; i+1 < len(keyframes); i++ {
		x2 := keyframes[i+1].Frame
		if x2 == -1 {
			x2 = target.Duration
		}
		f := newSegment()
		f.In = keyframes[i].Frame + offset
		f.Out = x2
		f.Props.Set(startTag, scale(keyframes[i].Value))
		f.Props.Set(endTag, scale(keyframes[i+1].Value))
		out = append(out, f)
		offset = 1
	}
	return out, nil
}

// Apply edits f in place from params. Region filters receive the wrapped
// filter's parameters under the region prefix.
func Apply(f *timeline.Filter, params Params, target Target) {
	params = params.Clone()
	prefix := ""
	if f.Service == RegionService {
		prefix = RegionPrefix
	}
	if params.Delete(ParamSyncInOut) {
		f.In, f.Out = target.In, target.Out
	}
	for _, p := range params.All() {
		if reserved[p.Name] {
			continue
		}
		f.Props.Set(prefix+p.Name, p.Value)
	}
}

// FormatNumber renders a parameter value with six significant digits.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
