package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"splicer/internal/fileutil"
	"splicer/internal/logging"
	"splicer/internal/mltxml"
	"splicer/internal/preflight"
)

type rescaleResult struct {
	Path   string  `json:"path"`
	From   float64 `json:"from"`
	To     float64 `json:"to"`
	Backup string  `json:"backup,omitempty"`
	Error  string  `json:"error,omitempty"`
}

func newRescaleCommand(ctx *commandContext) *cobra.Command {
	var fps float64
	var noBackup bool
	var jobs int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "rescale <project>...",
		Short: "Rescale every frame position of projects to a new frame rate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fps <= 0 {
				return fmt.Errorf("--fps must be positive")
			}
			logger := logging.NewComponentLogger(ctx.commandLogger(), "rescale")

			results := make([]rescaleResult, len(args))
			var mu sync.Mutex
			g, gctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(jobs, 1))
			for i, path := range args {
				g.Go(func() error {
					res := rescaleProject(gctx, path, fps, !noBackup)
					mu.Lock()
					results[i] = res
					mu.Unlock()
					if res.Error != "" {
						logging.WarnWithContext(logger, "rescale failed", "rescale_failed",
							logging.String(logging.FieldProject, path),
							logging.String("reason", res.Error),
						)
						return nil
					}
					logger.Info("project rescaled",
						logging.String(logging.FieldProject, path),
						logging.Float64("from", res.From),
						logging.Float64("to", res.To),
					)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
				}
			}
			if jsonOut {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				colorize := shouldColorize(cmd.OutOrStdout())
				for _, r := range results {
					if r.Error != "" {
						fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(r.Path, statusError, r.Error, colorize))
						continue
					}
					msg := fmt.Sprintf("%s -> %s fps", formatFPS(r.From), formatFPS(r.To))
					kind := statusOK
					if r.From == r.To {
						kind, msg = statusInfo, "already at "+formatFPS(r.To)+" fps"
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(r.Path, kind, msg, colorize))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d projects failed to rescale", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&fps, "fps", 0, "Target frame rate")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Do not keep a .bak copy of each project")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "Projects rescaled in parallel")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("fps")
	return cmd
}

// rescaleProject rewrites the project at path in place at fps, keeping a
// verified backup first when backup is set.
func rescaleProject(ctx context.Context, path string, fps float64, backup bool) rescaleResult {
	res := rescaleResult{Path: path, To: fps}
	fail := func(err error) rescaleResult {
		res.Error = err.Error()
		return res
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if lock := preflight.CheckProjectLock(path); !lock.Passed {
		return fail(fmt.Errorf("project lock: %s", lock.Detail))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	doc, err := mltxml.Unmarshal(data)
	if err != nil {
		return fail(err)
	}
	res.From = doc.FPS()
	if res.From == fps {
		return res
	}
	if err := mltxml.RescaleFPS(doc, res.From, fps); err != nil {
		return fail(err)
	}
	doc.SetFPS(fps)
	out, err := doc.Marshal()
	if err != nil {
		return fail(err)
	}

	if backup {
		res.Backup = path + ".bak"
		if err := fileutil.CopyFileVerified(path, res.Backup); err != nil {
			return fail(fmt.Errorf("backup: %w", err))
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return fail(err)
	}
	if err := fileutil.WriteFileAtomic(path, out, info.Mode().Perm()); err != nil {
		return fail(err)
	}
	return res
}

func formatFPS(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}
