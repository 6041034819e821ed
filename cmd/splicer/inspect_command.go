package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"splicer/internal/logging"
	"splicer/internal/notifications"
	"splicer/internal/textutil"
	"splicer/internal/timeline"
)

type trackSummary struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Clips      int    `json:"clips"`
	Blanks     int    `json:"blanks"`
	Length     int    `json:"length"`
	Visibility string `json:"visibility"`
	Locked     bool   `json:"locked"`
	Effects    int    `json:"effects"`
}

type transitionSummary struct {
	Service  string `json:"service"`
	ATrack   int    `json:"a_track"`
	BTrack   int    `json:"b_track"`
	In       int    `json:"in"`
	Out      int    `json:"out"`
	Internal bool   `json:"internal"`
}

type projectSummary struct {
	Path        string              `json:"path"`
	Profile     string              `json:"profile"`
	FPS         float64             `json:"fps"`
	Duration    int                 `json:"duration"`
	Producers   int                 `json:"producers"`
	Tracks      []trackSummary      `json:"tracks"`
	Transitions []transitionSummary `json:"transitions"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var showMix bool

	cmd := &cobra.Command{
		Use:   "inspect <project>",
		Short: "Summarize the tracks and transitions of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			e, _, err := openEngine(cfg, args[0], false, logging.NewNop(), notifications.Noop())
			if err != nil {
				return err
			}
			defer e.Close()

			prof := e.Profile()
			summary := projectSummary{
				Path:      args[0],
				Profile:   prof.Name,
				FPS:       prof.FPS(),
				Duration:  e.Duration(),
				Producers: len(e.ProducersList()),
			}
			e.View(func(t *timeline.Tractor) {
				summary.Tracks = summarizeTracks(t)
				summary.Transitions = summarizeTransitions(t, showMix)
			})

			if jsonOut {
				return writeJSON(cmd, summary)
			}
			renderProjectSummary(cmd, summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showMix, "mix", false, "Include the automatic audio mix transitions")
	return cmd
}

func summarizeTracks(t *timeline.Tractor) []trackSummary {
	out := make([]trackSummary, 0, t.Count()-1)
	for i := 1; i < t.Count(); i++ {
		track := t.Tracks[i]
		clips := len(track.Clips())
		out = append(out, trackSummary{
			Index:      i,
			Name:       track.DisplayName(i),
			Kind:       track.Kind.String(),
			Clips:      clips,
			Blanks:     track.Count() - clips,
			Length:     track.Playtime(),
			Visibility: track.Visibility.String(),
			Locked:     track.Locked,
			Effects:    len(track.Filters.All()),
		})
	}
	return out
}

func summarizeTransitions(t *timeline.Tractor, showMix bool) []transitionSummary {
	var out []transitionSummary
	for _, tr := range t.Transitions {
		if tr.IsMix() && !showMix {
			continue
		}
		out = append(out, transitionSummary{
			Service:  tr.Service,
			ATrack:   tr.ATrack,
			BTrack:   tr.BTrack,
			In:       tr.In,
			Out:      tr.Out,
			Internal: tr.Internal(),
		})
	}
	return out
}

func renderProjectSummary(cmd *cobra.Command, s projectSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project:   %s\n", s.Path)
	fmt.Fprintf(out, "Profile:   %s (%s fps)\n", s.Profile, strconv.FormatFloat(s.FPS, 'f', -1, 64))
	fmt.Fprintf(out, "Duration:  %d frames\n", s.Duration)
	fmt.Fprintf(out, "Producers: %d\n", s.Producers)

	rows := make([][]string, 0, len(s.Tracks))
	for _, tr := range s.Tracks {
		rows = append(rows, []string{
			strconv.Itoa(tr.Index),
			tr.Name,
			tr.Kind,
			strconv.Itoa(tr.Clips),
			strconv.Itoa(tr.Blanks),
			strconv.Itoa(tr.Length),
			tr.Visibility,
			textutil.YesNo(tr.Locked),
			strconv.Itoa(tr.Effects),
		})
	}
	fmt.Fprintln(out, renderTable("Tracks",
		[]string{"#", "Name", "Kind", "Clips", "Blanks", "Length", "State", "Locked", "Effects"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignRight}))

	if len(s.Transitions) == 0 {
		fmt.Fprintln(out, "No transitions")
		return
	}
	rows = rows[:0]
	for _, tr := range s.Transitions {
		rows = append(rows, []string{
			tr.Service,
			strconv.Itoa(tr.BTrack),
			strconv.Itoa(tr.ATrack),
			strconv.Itoa(tr.In),
			strconv.Itoa(tr.Out),
			textutil.YesNo(tr.Internal),
		})
	}
	fmt.Fprintln(out, renderTable("Transitions",
		[]string{"Service", "Track", "Onto", "In", "Out", "Internal"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}))
}
