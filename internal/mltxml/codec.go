package mltxml

import (
	"fmt"
	"strconv"
	"strings"

	"splicer/internal/services"
	"splicer/internal/timeline"
)

// MainTractorID is the identifier of the serialized composition.
const MainTractorID = "maintractor"

const (
	propService   = "mlt_service"
	propResource  = "resource"
	propLength    = "length"
	propEffectID  = "kdenlive_id"
	propIndex     = "kdenlive_ix"
	propATrack    = "a_track"
	propBTrack    = "b_track"
	propTrackName = "kdenlive:track_name"
	propAudio     = "kdenlive:audio_track"
	propLocked    = "kdenlive:locked_track"
)

// Encode builds a document from the composition.
func Encode(t *timeline.Tractor) (*Document, error) {
	if t == nil || len(t.Tracks) == 0 {
		return nil, services.Wrap(services.ErrTopology, "mltxml", "encode", "composition has no tracks", nil)
	}
	doc := &Document{Tractor: &Tractor{ID: MainTractorID, In: "0", Out: strconv.Itoa(t.Out)}}
	seen := map[string]bool{}
	addProducer := func(p *timeline.Producer) {
		if p == nil || seen[p.ID] {
			return
		}
		seen[p.ID] = true
		doc.Producers = append(doc.Producers, encodeProducer(p))
	}
	if t.Background != nil {
		addProducer(t.Background)
	}

	for i, track := range t.Tracks {
		pl := Playlist{ID: playlistID(i)}
		if name := strings.TrimSpace(track.Name); name != "" {
			pl.Properties = append(pl.Properties, Property{Name: propTrackName, Value: name})
		}
		if track.Kind == timeline.AudioTrack {
			pl.Properties = append(pl.Properties, Property{Name: propAudio, Value: "1"})
		}
		if track.Locked {
			pl.Properties = append(pl.Properties, Property{Name: propLocked, Value: "1"})
		}
		for _, f := range track.Filters.All() {
			pl.Filters = append(pl.Filters, encodeFilter(f))
		}
		for _, e := range track.Entries() {
			if e.IsBlank() {
				pl.Items = append(pl.Items, PlaylistItem{XMLName: blankName, Length: strconv.Itoa(e.Length)})
				continue
			}
			addProducer(e.Clip.Producer)
			item := PlaylistItem{
				XMLName:  entryName,
				Producer: e.Clip.ID(),
				In:       strconv.Itoa(e.Clip.In),
				Out:      strconv.Itoa(e.Clip.Out),
			}
			for _, f := range e.Clip.Filters.All() {
				item.Filters = append(item.Filters, encodeFilter(f))
			}
			pl.Items = append(pl.Items, item)
		}
		doc.Playlists = append(doc.Playlists, pl)
		doc.Tractor.Multitrack.Tracks = append(doc.Tractor.Multitrack.Tracks, TrackRef{
			Producer: pl.ID,
			Hide:     encodeHide(track.Visibility),
		})
	}

	for _, p := range t.Props.All() {
		doc.Tractor.Properties = append(doc.Tractor.Properties, Property{Name: p.Name, Value: p.Value})
	}
	for _, tr := range t.Transitions {
		doc.Tractor.Transitions = append(doc.Tractor.Transitions, encodeTransition(tr))
	}
	return doc, nil
}

// Decode rebuilds the composition described by doc.
func Decode(doc *Document) (*timeline.Tractor, error) {
	if doc == nil || doc.Tractor == nil {
		return nil, services.Wrap(services.ErrTopology, "mltxml", "decode", "document has no tractor", nil)
	}
	producers := make(map[string]*timeline.Producer, len(doc.Producers))
	for _, p := range doc.Producers {
		producers[p.ID] = decodeProducer(p)
	}
	playlists := make(map[string]Playlist, len(doc.Playlists))
	for _, pl := range doc.Playlists {
		playlists[pl.ID] = pl
	}
	refs := doc.Tractor.Multitrack.Tracks
	if len(refs) == 0 {
		return nil, services.Wrap(services.ErrTopology, "mltxml", "decode", "tractor has no tracks", nil)
	}

	tractor := &timeline.Tractor{Out: atoi(doc.Tractor.Out)}
	for i, ref := range refs {
		pl, ok := playlists[ref.Producer]
		if !ok {
			return nil, services.Wrap(services.ErrTopology, "mltxml", "decode",
				fmt.Sprintf("track %d references unknown playlist %q", i, ref.Producer), nil)
		}
		track, err := decodeTrack(pl, ref, producers)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		tractor.Tracks = append(tractor.Tracks, track)
	}
	tractor.Background = backgroundProducer(tractor.Tracks[0], producers)
	for _, p := range doc.Tractor.Properties {
		tractor.Props.Set(p.Name, p.Value)
	}
	for _, tr := range doc.Tractor.Transitions {
		tractor.Transitions = append(tractor.Transitions, decodeTransition(tr))
	}
	tractor.CheckLength()
	if err := tractor.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "mltxml", "decode", "inconsistent composition", err)
	}
	return tractor, nil
}

var (
	entryName = xmlName("entry")
	blankName = xmlName("blank")
)

func playlistID(i int) string {
	return "playlist" + strconv.Itoa(i)
}

func encodeProducer(p *timeline.Producer) Producer {
	out := Producer{ID: p.ID, In: "0", Out: strconv.Itoa(max(p.Length-1, 0))}
	out.Properties = append(out.Properties,
		Property{Name: propLength, Value: strconv.Itoa(p.Length)},
		Property{Name: propService, Value: p.Service},
		Property{Name: propResource, Value: p.Resource},
	)
	for _, prop := range p.Props.All() {
		out.Properties = append(out.Properties, Property{Name: prop.Name, Value: prop.Value})
	}
	return out
}

func decodeProducer(p Producer) *timeline.Producer {
	out := &timeline.Producer{ID: p.ID}
	for _, prop := range p.Properties {
		switch prop.Name {
		case propLength:
			out.Length = atoi(prop.Value)
		case propService:
			out.Service = prop.Value
		case propResource:
			out.Resource = prop.Value
		default:
			out.Props.Set(prop.Name, prop.Value)
		}
	}
	return out
}

func encodeFilter(f *timeline.Filter) Filter {
	out := Filter{ID: f.ID, In: strconv.Itoa(f.In), Out: strconv.Itoa(f.Out)}
	out.Properties = append(out.Properties, Property{Name: propService, Value: f.Service})
	if f.EffectID != "" {
		out.Properties = append(out.Properties, Property{Name: propEffectID, Value: f.EffectID})
	}
	if f.Index != 0 {
		out.Properties = append(out.Properties, Property{Name: propIndex, Value: strconv.Itoa(f.Index)})
	}
	for _, prop := range f.Props.All() {
		out.Properties = append(out.Properties, Property{Name: prop.Name, Value: prop.Value})
	}
	return out
}

func decodeFilter(f Filter) *timeline.Filter {
	out := &timeline.Filter{ID: f.ID, In: atoi(f.In), Out: atoi(f.Out)}
	for _, prop := range f.Properties {
		switch prop.Name {
		case propService:
			out.Service = prop.Value
		case propEffectID:
			out.EffectID = prop.Value
		case propIndex:
			out.Index = atoi(prop.Value)
		default:
			out.Props.Set(prop.Name, prop.Value)
		}
	}
	return out
}

func encodeTransition(tr *timeline.Transition) Transition {
	out := Transition{ID: tr.ID, In: strconv.Itoa(tr.In), Out: strconv.Itoa(tr.Out)}
	out.Properties = append(out.Properties,
		Property{Name: propService, Value: tr.Service},
		Property{Name: propATrack, Value: strconv.Itoa(tr.ATrack)},
		Property{Name: propBTrack, Value: strconv.Itoa(tr.BTrack)},
	)
	for _, prop := range tr.Props.All() {
		out.Properties = append(out.Properties, Property{Name: prop.Name, Value: prop.Value})
	}
	return out
}

func decodeTransition(tr Transition) *timeline.Transition {
	out := &timeline.Transition{ID: tr.ID, In: atoi(tr.In), Out: atoi(tr.Out)}
	for _, prop := range tr.Properties {
		switch prop.Name {
		case propService:
			out.Service = prop.Value
		case propATrack:
			out.ATrack = atoi(prop.Value)
		case propBTrack:
			out.BTrack = atoi(prop.Value)
		default:
			out.Props.Set(prop.Name, prop.Value)
		}
	}
	return out
}

func decodeTrack(pl Playlist, ref TrackRef, producers map[string]*timeline.Producer) (*timeline.Track, error) {
	kind := timeline.VideoTrack
	if v, _ := getProperty(pl.Properties, propAudio); v == "1" {
		kind = timeline.AudioTrack
	}
	name, _ := getProperty(pl.Properties, propTrackName)
	track := &timeline.Track{Name: name, Kind: kind, Visibility: decodeHide(ref.Hide)}
	if v, _ := getProperty(pl.Properties, propLocked); v == "1" {
		track.Locked = true
	}
	for _, f := range pl.Filters {
		track.Filters.Attach(decodeFilter(f))
	}
	for _, item := range pl.Items {
		switch item.XMLName.Local {
		case "blank":
			track.Blank(atoi(item.Length))
		case "entry":
			p, ok := producers[item.Producer]
			if !ok {
				return nil, services.Wrap(services.ErrProducer, "mltxml", "decode",
					fmt.Sprintf("entry references unknown producer %q", item.Producer), nil)
			}
			if p.Length <= 0 {
				// Rescaled documents drop derived lengths; cutting grows it back.
				p.Length = 1
			}
			clip, err := p.Cut(atoi(item.In), atoi(item.Out))
			if err != nil {
				return nil, err
			}
			for _, f := range item.Filters {
				clip.Filters.Attach(decodeFilter(f))
			}
			track.Append(clip)
		}
	}
	track.ConsolidateBlanks(0)
	return track, nil
}

func backgroundProducer(bg *timeline.Track, producers map[string]*timeline.Producer) *timeline.Producer {
	if c := bg.ClipAt(0); c != nil {
		return c.Producer
	}
	if p, ok := producers["black"]; ok {
		return p
	}
	return timeline.NewBlackProducer()
}

// encodeHide writes visibility in the multitrack's hide vocabulary.
func encodeHide(v timeline.Visibility) string {
	switch v {
	case timeline.Hidden:
		return "video"
	case timeline.Muted:
		return "audio"
	case timeline.MutedAndHidden:
		return "both"
	default:
		return ""
	}
}

func decodeHide(s string) timeline.Visibility {
	switch strings.TrimSpace(s) {
	case "video", "1":
		return timeline.Hidden
	case "audio", "2":
		return timeline.Muted
	case "both", "3":
		return timeline.MutedAndHidden
	default:
		return timeline.Visible
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}
