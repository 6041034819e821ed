// Package profile lists the video profiles a project can be rendered in.
package profile

import (
	"fmt"
	"sort"
	"strings"
)

// Profile describes the frame geometry and rate of a project.
type Profile struct {
	Name         string
	Description  string
	Width        int
	Height       int
	FrameRateNum int
	FrameRateDen int
	Progressive  bool
}

// FPS returns the frame rate as a float.
func (p Profile) FPS() float64 {
	if p.FrameRateDen == 0 {
		return 0
	}
	return float64(p.FrameRateNum) / float64(p.FrameRateDen)
}

var known = map[string]Profile{
	"dv_pal":          {Name: "dv_pal", Description: "DV/DVD PAL", Width: 720, Height: 576, FrameRateNum: 25, FrameRateDen: 1},
	"dv_ntsc":         {Name: "dv_ntsc", Description: "DV/DVD NTSC", Width: 720, Height: 480, FrameRateNum: 30000, FrameRateDen: 1001},
	"atsc_720p_2997":  {Name: "atsc_720p_2997", Description: "HD 720p 29.97 fps", Width: 1280, Height: 720, FrameRateNum: 30000, FrameRateDen: 1001, Progressive: true},
	"atsc_720p_50":    {Name: "atsc_720p_50", Description: "HD 720p 50 fps", Width: 1280, Height: 720, FrameRateNum: 50, FrameRateDen: 1, Progressive: true},
	"atsc_1080p_2398": {Name: "atsc_1080p_2398", Description: "HD 1080p 23.98 fps", Width: 1920, Height: 1080, FrameRateNum: 24000, FrameRateDen: 1001, Progressive: true},
	"atsc_1080p_24":   {Name: "atsc_1080p_24", Description: "HD 1080p 24 fps", Width: 1920, Height: 1080, FrameRateNum: 24, FrameRateDen: 1, Progressive: true},
	"atsc_1080p_25":   {Name: "atsc_1080p_25", Description: "HD 1080p 25 fps", Width: 1920, Height: 1080, FrameRateNum: 25, FrameRateDen: 1, Progressive: true},
	"atsc_1080p_2997": {Name: "atsc_1080p_2997", Description: "HD 1080p 29.97 fps", Width: 1920, Height: 1080, FrameRateNum: 30000, FrameRateDen: 1001, Progressive: true},
	"atsc_1080p_30":   {Name: "atsc_1080p_30", Description: "HD 1080p 30 fps", Width: 1920, Height: 1080, FrameRateNum: 30, FrameRateDen: 1, Progressive: true},
	"atsc_1080p_50":   {Name: "atsc_1080p_50", Description: "HD 1080p 50 fps", Width: 1920, Height: 1080, FrameRateNum: 50, FrameRateDen: 1, Progressive: true},
	"atsc_1080p_60":   {Name: "atsc_1080p_60", Description: "HD 1080p 60 fps", Width: 1920, Height: 1080, FrameRateNum: 60, FrameRateDen: 1, Progressive: true},
	"uhd_2160p_25":    {Name: "uhd_2160p_25", Description: "4K UHD 2160p 25 fps", Width: 3840, Height: 2160, FrameRateNum: 25, FrameRateDen: 1, Progressive: true},
	"uhd_2160p_2997":  {Name: "uhd_2160p_2997", Description: "4K UHD 2160p 29.97 fps", Width: 3840, Height: 2160, FrameRateNum: 30000, FrameRateDen: 1001, Progressive: true},
}

// Lookup returns the named profile.
func Lookup(name string) (Profile, error) {
	p, ok := known[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q", name)
	}
	return p, nil
}

// Names returns the known profile names in sorted order.
func Names() []string {
	out := make([]string, 0, len(known))
	for name := range known {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
