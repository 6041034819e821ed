package mltxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"

	"splicer/internal/profile"
	"splicer/internal/services"
)

// Document is the root <mlt> element of a serialized timeline.
type Document struct {
	XMLName   xml.Name        `xml:"mlt"`
	Title     string          `xml:"title,attr,omitempty"`
	Root      string          `xml:"root,attr,omitempty"`
	Profile   *ProfileElement `xml:"profile"`
	Producers []Producer      `xml:"producer"`
	Playlists []Playlist      `xml:"playlist"`
	Tractor   *Tractor        `xml:"tractor"`
}

// ProfileElement describes the render profile of the document.
type ProfileElement struct {
	Description  string `xml:"description,attr,omitempty"`
	Width        int    `xml:"width,attr"`
	Height       int    `xml:"height,attr"`
	Progressive  int    `xml:"progressive,attr"`
	FrameRateNum int    `xml:"frame_rate_num,attr"`
	FrameRateDen int    `xml:"frame_rate_den,attr"`
}

// Property is a named value stored as element text.
type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// Producer is a <producer> element.
type Producer struct {
	ID         string     `xml:"id,attr"`
	In         string     `xml:"in,attr,omitempty"`
	Out        string     `xml:"out,attr,omitempty"`
	Properties []Property `xml:"property"`
}

// Playlist is a <playlist> element. Items keeps entries and blanks in order.
type Playlist struct {
	ID         string         `xml:"id,attr"`
	Properties []Property     `xml:"property"`
	Filters    []Filter       `xml:"filter"`
	Items      []PlaylistItem `xml:",any"`
}

// PlaylistItem is an <entry> or a <blank>.
type PlaylistItem struct {
	XMLName  xml.Name
	Producer string   `xml:"producer,attr,omitempty"`
	In       string   `xml:"in,attr,omitempty"`
	Out      string   `xml:"out,attr,omitempty"`
	Length   string   `xml:"length,attr,omitempty"`
	Filters  []Filter `xml:"filter"`
}

// IsBlank reports whether the item is empty space.
func (i PlaylistItem) IsBlank() bool {
	return i.XMLName.Local == "blank"
}

// Filter is a <filter> element.
type Filter struct {
	ID         string     `xml:"id,attr"`
	In         string     `xml:"in,attr,omitempty"`
	Out        string     `xml:"out,attr,omitempty"`
	Properties []Property `xml:"property"`
}

// Tractor is the <tractor> element holding the multitrack and transitions.
type Tractor struct {
	ID          string       `xml:"id,attr"`
	In          string       `xml:"in,attr,omitempty"`
	Out         string       `xml:"out,attr,omitempty"`
	Properties  []Property   `xml:"property"`
	Multitrack  Multitrack   `xml:"multitrack"`
	Transitions []Transition `xml:"transition"`
}

// Multitrack lists the tracks of the tractor.
type Multitrack struct {
	Tracks []TrackRef `xml:"track"`
}

// TrackRef references a playlist from the multitrack.
type TrackRef struct {
	Producer string `xml:"producer,attr"`
	Hide     string `xml:"hide,attr,omitempty"`
}

// Transition is a <transition> element.
type Transition struct {
	ID         string     `xml:"id,attr"`
	In         string     `xml:"in,attr,omitempty"`
	Out        string     `xml:"out,attr,omitempty"`
	Properties []Property `xml:"property"`
}

// Unmarshal parses a document.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrValidation, "mltxml", "unmarshal", "invalid timeline document", err)
	}
	return &doc, nil
}

// Read parses a document from r.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read timeline document: %w", err)
	}
	return Unmarshal(data)
}

// Marshal renders the document with an XML header.
func (d *Document) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(d, "", " ")
	if err != nil {
		return nil, fmt.Errorf("marshal timeline document: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Write renders the document to w.
func (d *Document) Write(w io.Writer) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// SetProfile records p as the document profile.
func (d *Document) SetProfile(p profile.Profile) {
	progressive := 0
	if p.Progressive {
		progressive = 1
	}
	d.Profile = &ProfileElement{
		Description:  p.Description,
		Width:        p.Width,
		Height:       p.Height,
		Progressive:  progressive,
		FrameRateNum: p.FrameRateNum,
		FrameRateDen: p.FrameRateDen,
	}
}

// FPS returns the document frame rate, or 0 when no profile is recorded.
func (d *Document) FPS() float64 {
	if d.Profile == nil || d.Profile.FrameRateDen == 0 {
		return 0
	}
	return float64(d.Profile.FrameRateNum) / float64(d.Profile.FrameRateDen)
}

// SetFPS rewrites the profile frame rate. Rates that are not integral are
// stored over a denominator of 1001 when that is exact enough, otherwise
// over 1000.
func (d *Document) SetFPS(fps float64) {
	if d.Profile == nil {
		d.Profile = &ProfileElement{}
	}
	num, den := rational(fps)
	d.Profile.FrameRateNum, d.Profile.FrameRateDen = num, den
}

func rational(fps float64) (int, int) {
	if fps == math.Trunc(fps) {
		return int(fps), 1
	}
	if n := fps * 1001; math.Abs(n-math.Round(n)) < 0.01 {
		return int(math.Round(n)), 1001
	}
	return int(math.Round(fps * 1000)), 1000
}

func xmlName(local string) xml.Name {
	return xml.Name{Local: local}
}

func getProperty(props []Property, name string) (string, bool) {
	for _, p := range props {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}
