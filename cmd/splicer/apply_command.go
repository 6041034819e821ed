package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"splicer/internal/editscript"
	"splicer/internal/logging"
	"splicer/internal/notifications"
	"splicer/internal/session"
	"splicer/internal/snapshots"
)

type applyReport struct {
	Project      string   `json:"project"`
	Created      bool     `json:"created"`
	Applied      int      `json:"applied"`
	Total        int      `json:"total"`
	Duration     int      `json:"duration"`
	Changes      int      `json:"duration_changes"`
	InvalidClips []string `json:"invalid_clips,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply <project> <script.toml>",
		Short: "Apply an edit script to a project",
		Long: "Apply the ops of a TOML edit script to a project in order. A missing " +
			"project starts from the configured default tracks. The project is " +
			"written back only when every op succeeds.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.commandLogger()

			script, err := editscript.Load(args[1])
			if err != nil {
				return err
			}

			hub := notifications.NewHub(cfg.RefreshCoalesce(), logger)
			events, unsubscribe := hub.Subscribe(0)
			defer unsubscribe()
			report := applyReport{Project: args[0], Total: len(script.Ops)}
			watched := make(chan struct{})
			go func() {
				defer close(watched)
				for msg := range events {
					switch msg.Event {
					case notifications.EventDurationChanged:
						report.Changes++
					case notifications.EventClipInvalid:
						report.InvalidClips = append(report.InvalidClips, msg.ClipID)
					}
				}
			}()

			e, created, err := openEngine(cfg, args[0], true, logger, hub)
			if err != nil {
				hub.Close()
				return err
			}
			defer e.Close()
			report.Created = created

			var store *snapshots.Store
			if cfg.Autosave.Enabled && !dryRun {
				if store, err = snapshots.Open(cfg); err != nil {
					hub.Close()
					return err
				}
				defer store.Close()
			}
			s, err := session.Open(cfg, args[0], e, store, session.Options{Logger: logger})
			if err != nil {
				hub.Close()
				return err
			}
			defer s.Close(cmd.Context())

			if store != nil && !created {
				if _, err := s.Snapshot(cmd.Context(), snapshots.ReasonManual); err != nil {
					logging.WarnWithContext(logger, "pre-apply snapshot failed", "snapshot_failed",
						logging.Error(err),
						logging.String(logging.FieldImpact, "the previous state cannot be restored from the store"),
					)
				}
			}

			result, applyErr := editscript.Apply(s.Context(cmd.Context()), e, script, logger)
			report.Applied = result.Applied
			report.Duration = result.Duration
			if applyErr != nil {
				report.Error = applyErr.Error()
			} else if !dryRun {
				if err := s.Save(); err != nil {
					applyErr = err
					report.Error = err.Error()
				}
			}
			hub.Close()
			<-watched

			if jsonOut {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				renderApplyReport(cmd, report, dryRun)
			}
			var opErr *editscript.OpError
			if errors.As(applyErr, &opErr) {
				return fmt.Errorf("%s left unchanged: %w", filepath.Base(args[0]), applyErr)
			}
			return applyErr
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Apply the script without writing the project")
	return cmd
}

func renderApplyReport(cmd *cobra.Command, r applyReport, dryRun bool) {
	out := cmd.OutOrStdout()
	if r.Created {
		fmt.Fprintf(out, "Started new project %s\n", r.Project)
	}
	fmt.Fprintf(out, "Applied %d of %d ops\n", r.Applied, r.Total)
	fmt.Fprintf(out, "Duration: %d frames\n", r.Duration)
	for _, id := range r.InvalidClips {
		fmt.Fprintf(out, "Missing source: %s\n", id)
	}
	switch {
	case r.Error != "":
	case dryRun:
		fmt.Fprintln(out, "Dry run: project not written")
	default:
		fmt.Fprintf(out, "Wrote %s\n", r.Project)
	}
}
