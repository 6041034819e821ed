package editscript

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"splicer/internal/services"
	"splicer/internal/timeline"
)

// Op kinds.
const (
	KindInsert      = "insert"
	KindCut         = "cut"
	KindRemove      = "remove"
	KindMove        = "move"
	KindResizeEnd   = "resize_end"
	KindResizeStart = "resize_start"
	KindCrop        = "crop"
	KindSpace       = "space"
	KindSpeed       = "speed"
	KindEffect      = "effect"
	KindTransition  = "transition"
	KindTrackState  = "track_state"
	KindTrackLock   = "track_lock"
	KindInsertTrack = "insert_track"
	KindDeleteTrack = "delete_track"
)

// Script is a decoded edit script.
type Script struct {
	Producers []ProducerSpec `toml:"producer"`
	Ops       []Op           `toml:"op"`
}

// ProducerSpec declares a source the ops refer to by ID.
type ProducerSpec struct {
	ID       string `toml:"id"`
	Service  string `toml:"service"`
	Resource string `toml:"resource"`
	Length   int    `toml:"length"`
}

// Op is one edit. Fields not used by Kind are ignored.
type Op struct {
	Kind       string            `toml:"kind"`
	Track      int               `toml:"track"`
	ToTrack    *int              `toml:"to_track"`
	AllTracks  bool              `toml:"all_tracks"`
	Start      int               `toml:"start"`
	End        int               `toml:"end"`
	Pos        int               `toml:"pos"`
	To         int               `toml:"to"`
	CropStart  int               `toml:"crop_start"`
	Producer   string            `toml:"producer"`
	Overwrite  bool              `toml:"overwrite"`
	Push       bool              `toml:"push"`
	Duration   int               `toml:"duration"`
	Diff       int               `toml:"diff"`
	Speed      float64           `toml:"speed"`
	Strobe     int               `toml:"strobe"`
	Service    string            `toml:"service"`
	ATrack     int               `toml:"a_track"`
	Params     map[string]string `toml:"params"`
	WholeTrack bool              `toml:"whole_track"`
	Mute       bool              `toml:"mute"`
	Blind      bool              `toml:"blind"`
	Locked     bool              `toml:"locked"`
	Video      bool              `toml:"video"`
}

// Parse decodes and validates a script.
func Parse(data []byte) (*Script, error) {
	return Read(bytes.NewReader(data))
}

// Read decodes and validates a script from r.
func Read(r io.Reader) (*Script, error) {
	var script Script
	decoder := toml.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&script); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, services.Wrap(services.ErrValidation, "editscript", "parse", strict.String(), nil)
		}
		return nil, services.Wrap(services.ErrValidation, "editscript", "parse", "invalid script", err)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

// Load reads the script at path.
func Load(path string) (*Script, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer file.Close()
	return Read(file)
}

// Validate checks producer declarations and op kinds. Ranges are left to
// the engine, which rejects them with the matching error class.
func (s *Script) Validate() error {
	seen := make(map[string]struct{}, len(s.Producers))
	for i, p := range s.Producers {
		if strings.TrimSpace(p.ID) == "" {
			return invalid(fmt.Sprintf("producer %d has no id", i))
		}
		if _, dup := seen[p.ID]; dup {
			return invalid(fmt.Sprintf("producer %q declared twice", p.ID))
		}
		seen[p.ID] = struct{}{}
		if p.Length <= 0 {
			return invalid(fmt.Sprintf("producer %q needs a positive length", p.ID))
		}
	}
	for i, op := range s.Ops {
		switch op.Kind {
		case KindInsert:
			if op.Producer == "" {
				return invalid(fmt.Sprintf("op %d: insert needs a producer", i))
			}
		case KindSpeed:
			if op.Speed == 0 {
				return invalid(fmt.Sprintf("op %d: speed must not be zero", i))
			}
		case KindEffect:
			if op.Params["id"] == "" {
				return invalid(fmt.Sprintf("op %d: effect params need an id", i))
			}
		case KindTransition:
			if op.Service == "" {
				return invalid(fmt.Sprintf("op %d: transition needs a service", i))
			}
		case KindCut, KindRemove, KindMove, KindResizeEnd, KindResizeStart, KindCrop,
			KindSpace, KindTrackState, KindTrackLock, KindInsertTrack, KindDeleteTrack:
		default:
			return invalid(fmt.Sprintf("op %d: unknown kind %q", i, op.Kind))
		}
	}
	return nil
}

// producers builds the declared producers keyed by ID.
func (s *Script) producers() map[string]*timeline.Producer {
	out := make(map[string]*timeline.Producer, len(s.Producers))
	for _, p := range s.Producers {
		service := p.Service
		if service == "" {
			service = timeline.ServiceAvformat
		}
		out[p.ID] = timeline.NewProducer(p.ID, service, p.Resource, p.Length)
	}
	return out
}

func invalid(msg string) error {
	return services.Wrap(services.ErrValidation, "editscript", "validate", msg, nil)
}
