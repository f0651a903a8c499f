package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"vidchunk/internal/runstore"
)

// sourceColumnWidth caps the Source column so long file names do not push
// the table past a normal terminal width.
const sourceColumnWidth = 40

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded extraction runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, "runs", runViews(runs))
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				now := time.Now()
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortRunID(run.ID),
						run.Label,
						string(run.Status),
						strconv.Itoa(run.ChunkCount),
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						run.Elapsed(now).Round(time.Second).String(),
						filepath.Base(run.SourcePath),
					})
				}
				fmt.Fprintln(out, renderTable([]tableColumn{
					col("ID"), col("Label"), col("Status"), numCol("Chunks"),
					col("Started"), numCol("Elapsed"), {header: "Source", maxWidth: sourceColumnWidth},
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print runs as JSON")
	cmd.AddCommand(newRunsRemoveCommand(ctx))
	return cmd
}

func newRunsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <run>",
		Short: "Forget a run (output files are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				removed, err := store.Remove(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed run %s (%s); files remain in %s\n", shortRunID(run.ID), run.Label, run.OutputDir)
				}
				return nil
			})
		},
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// runView is the JSON shape of a ledger row.
type runView struct {
	ID              string  `json:"id"`
	Label           string  `json:"label"`
	Status          string  `json:"status"`
	Source          string  `json:"source"`
	OutputDir       string  `json:"output_dir"`
	ManifestPath    string  `json:"manifest_path,omitempty"`
	FPS             float64 `json:"fps"`
	WindowSeconds   float64 `json:"window_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	Chunks          int     `json:"chunks"`
	Complete        bool    `json:"complete"`
	ErrorKind       string  `json:"error_kind,omitempty"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	StartedAt       string  `json:"started_at"`
	FinishedAt      string  `json:"finished_at,omitempty"`
}

func newRunView(run *runstore.Run) runView {
	view := runView{
		ID:              run.ID,
		Label:           run.Label,
		Status:          string(run.Status),
		Source:          run.SourcePath,
		OutputDir:       run.OutputDir,
		ManifestPath:    run.ManifestPath,
		FPS:             run.FPS,
		WindowSeconds:   run.WindowSeconds,
		DurationSeconds: run.DurationSeconds,
		Chunks:          run.ChunkCount,
		Complete:        run.Report.Complete(),
		ErrorKind:       run.ErrorKind,
		ErrorMessage:    run.ErrorMessage,
		StartedAt:       run.StartedAt.Format(time.RFC3339),
	}
	if !run.FinishedAt.IsZero() {
		view.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return view
}

func runViews(runs []*runstore.Run) []runView {
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, newRunView(run))
	}
	return views
}
