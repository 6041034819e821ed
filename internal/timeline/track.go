package timeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TrackKind distinguishes video from audio tracks.
type TrackKind int

const (
	VideoTrack TrackKind = iota
	AudioTrack
)

func (k TrackKind) String() string {
	if k == AudioTrack {
		return "audio"
	}
	return "video"
}

// Visibility is the mute/blind state of a track. The numeric values are the
// serialized "hide" codes.
type Visibility int

const (
	Visible        Visibility = 0
	Hidden         Visibility = 1
	Muted          Visibility = 2
	MutedAndHidden Visibility = 3
)

// VisibilityFor maps mute and blind flags to a visibility code.
func VisibilityFor(mute, blind bool) Visibility {
	switch {
	case mute && blind:
		return MutedAndHidden
	case mute:
		return Muted
	case blind:
		return Hidden
	default:
		return Visible
	}
}

// IsMuted reports whether the audio of the track is disabled.
func (v Visibility) IsMuted() bool { return v >= Muted }

// IsHidden reports whether the video of the track is disabled.
func (v Visibility) IsHidden() bool { return v == Hidden || v == MutedAndHidden }

func (v Visibility) String() string {
	switch v {
	case Visible:
		return "visible"
	case Hidden:
		return "hidden"
	case Muted:
		return "muted"
	case MutedAndHidden:
		return "muted+hidden"
	default:
		return fmt.Sprintf("visibility(%d)", int(v))
	}
}

// Track is a playlist plus its display and mixing state.
type Track struct {
	Playlist
	Name       string
	Kind       TrackKind
	Visibility Visibility
	Locked     bool
}

// NewTrack returns an empty track. Audio tracks start with video hidden.
func NewTrack(kind TrackKind, name string) *Track {
	t := &Track{Kind: kind, Name: name}
	if kind == AudioTrack {
		t.Visibility = Hidden
	}
	return t
}

// DisplayName returns a title-cased name, deriving one from the kind and
// index when the track is unnamed.
func (t *Track) DisplayName(index int) string {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		name = fmt.Sprintf("%s %d", t.Kind, index)
	}
	return cases.Title(language.Und, cases.NoLower).String(name)
}
