package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"splicer/internal/fileutil"
	"splicer/internal/preflight"
	"splicer/internal/snapshots"
)

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"snapshots"},
		Short:   "Inspect and restore autosave snapshots",
	}
	snapshotCmd.AddCommand(newSnapshotListCommand(ctx))
	snapshotCmd.AddCommand(newSnapshotRestoreCommand(ctx))
	snapshotCmd.AddCommand(newSnapshotPruneCommand(ctx))
	return snapshotCmd
}

// withStore opens the snapshot store for the duration of fn.
func withStore(ctx *commandContext, fn func(*snapshots.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := snapshots.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// projectKey resolves a project argument the way sessions record it.
func projectKey(arg string) (string, error) {
	if strings.TrimSpace(arg) == "" {
		return "", nil
	}
	return filepath.Abs(arg)
}

func newSnapshotListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list [project]",
		Short: "List stored snapshots, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := ""
			if len(args) == 1 {
				var err error
				if project, err = projectKey(args[0]); err != nil {
					return err
				}
			}
			return withStore(ctx, func(store *snapshots.Store) error {
				list, err := store.List(cmd.Context(), project)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No snapshots")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, snap := range list {
					row := []string{
						shortID(snap.ID),
						string(snap.Reason),
						humanize.Time(snap.CreatedAt),
						strconv.Itoa(snap.Duration),
						strconv.Itoa(snap.Tracks),
						snap.Profile,
					}
					if project == "" {
						row = append(row, snap.Project)
					}
					rows = append(rows, row)
				}
				headers := []string{"ID", "Reason", "Taken", "Frames", "Tracks", "Profile"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
				if project == "" {
					headers = append(headers, "Project")
					aligns = append(aligns, alignLeft)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable("", headers, rows, aligns))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newSnapshotRestoreCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Write a snapshot back to its project file",
		Long: "Write a snapshot back to its project file, or to --output. An " +
			"existing target is first copied to <target>.bak. IDs may be " +
			"shortened to any unique prefix.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *snapshots.Store) error {
				snap, err := findSnapshot(cmd, store, args[0])
				if err != nil {
					return err
				}
				target := snap.Project
				if strings.TrimSpace(outputPath) != "" {
					target = outputPath
				}
				if lock := preflight.CheckProjectLock(target); !lock.Passed {
					return fmt.Errorf("%s: %s", target, lock.Detail)
				}

				backup := ""
				if _, err := os.Stat(target); err == nil {
					backup = target + ".bak"
					if err := fileutil.CopyFileVerified(target, backup); err != nil {
						return fmt.Errorf("back up %s: %w", target, err)
					}
				} else if !errors.Is(err, os.ErrNotExist) {
					return err
				}
				if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
					return err
				}
				if err := fileutil.WriteFileAtomic(target, snap.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", target, err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Restored snapshot %s (%s, %s) to %s\n",
					shortID(snap.ID), snap.Reason, humanize.Bytes(uint64(snap.Size())), target)
				if backup != "" {
					fmt.Fprintf(out, "Previous version kept at %s\n", backup)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to this path instead of the original project")
	return cmd
}

func newSnapshotPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune <project>",
		Short: "Delete all but the newest snapshots of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := projectKey(args[0])
			if err != nil {
				return err
			}
			if keep <= 0 {
				keep = ctx.configValue().Autosave.Keep
			}
			return withStore(ctx, func(store *snapshots.Store) error {
				removed, err := store.Prune(cmd.Context(), project, keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshots (kept %d)\n", removed, keep)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "Snapshots to keep (default autosave.keep)")
	return cmd
}

// findSnapshot resolves a full ID or a unique ID prefix.
func findSnapshot(cmd *cobra.Command, store *snapshots.Store, id string) (*snapshots.Snapshot, error) {
	snap, err := store.Get(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		return snap, nil
	}
	list, err := store.List(cmd.Context(), "")
	if err != nil {
		return nil, err
	}
	var match string
	for _, s := range list {
		if !strings.HasPrefix(s.ID, id) {
			continue
		}
		if match != "" {
			return nil, fmt.Errorf("snapshot prefix %q is ambiguous", id)
		}
		match = s.ID
	}
	if match == "" {
		return nil, fmt.Errorf("snapshot %q not found", id)
	}
	return store.Get(cmd.Context(), match)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
