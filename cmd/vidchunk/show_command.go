package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidchunk/internal/dataset"
	"vidchunk/internal/extraction"
	"vidchunk/internal/runstore"
)

const transcriptPreviewWidth = 48

func newShowCommand(ctx *commandContext) *cobra.Command {
	var showChunks bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <run>",
		Short: "Display a run by id, id prefix or label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				events, err := store.Events(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				var chunks []dataset.Chunk
				if showChunks || jsonOut {
					if chunks, err = store.Chunks(cmd.Context(), run.ID); err != nil {
						return err
					}
				}
				if jsonOut {
					return writeJSON(cmd, "run_detail", struct {
						Run    runView            `json:"run"`
						Report extraction.Report  `json:"report"`
						Chunks []dataset.Chunk    `json:"chunks"`
						Events []extraction.Event `json:"events"`
					}{newRunView(run), run.Report, chunks, events})
				}

				out := cmd.OutOrStdout()
				renderRun(out, run, events, shouldColorize(out))
				if showChunks {
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderChunkTable(chunks))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showChunks, "chunks", false, "List every chunk with a transcript preview")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run as JSON")
	return cmd
}

func renderRun(out io.Writer, run *runstore.Run, events []extraction.Event, colorize bool) {
	for _, line := range renderSectionHeader("Run "+run.Label, colorize) {
		fmt.Fprintln(out, line)
	}
	kind := statusOK
	switch run.Status {
	case extraction.StatusFailed:
		kind = statusError
	case extraction.StatusRunning:
		kind = statusInfo
	default:
		if !run.Report.Complete() {
			kind = statusWarn
		}
	}
	status := string(run.Status)
	if run.ErrorMessage != "" {
		status = fmt.Sprintf("%s at %s (%s): %s", status, run.ErrorStage, run.ErrorKind, run.ErrorMessage)
	}
	fmt.Fprintln(out, renderStatusLine("Status", kind, status, colorize))
	fmt.Fprintln(out, renderStatusLine("ID", statusInfo, run.ID, colorize))
	fmt.Fprintln(out, renderStatusLine("Source", statusInfo, run.SourcePath, colorize))
	fmt.Fprintln(out, renderStatusLine("Output", statusInfo, run.OutputDir, colorize))
	fmt.Fprintln(out, renderStatusLine("Sampling", statusInfo,
		fmt.Sprintf("%g fps, %gs windows, %.3fs source", run.FPS, run.WindowSeconds, run.DurationSeconds), colorize))
	fmt.Fprintln(out, renderStatusLine("Chunks", statusInfo,
		fmt.Sprintf("%d (elapsed %s)", run.ChunkCount, run.Elapsed(time.Now()).Round(time.Second)), colorize))
	fmt.Fprintln(out, renderStatusLine("Complete", statusInfo, yesNo(run.Report.Complete()), colorize))
	for _, line := range reportLines(run.Report, colorize) {
		fmt.Fprintln(out, line)
	}

	if len(events) == 0 {
		return
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Events", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, event := range events {
		label := event.Stage
		if event.Key != "" {
			label += " " + event.Key
		}
		fmt.Fprintln(out, renderStatusLine(label, eventKind(event.Level), event.Message, colorize))
	}
}

func eventKind(level string) statusKind {
	switch level {
	case "error":
		return statusError
	case "warn":
		return statusWarn
	default:
		return statusInfo
	}
}

func renderChunkTable(chunks []dataset.Chunk) string {
	if len(chunks) == 0 {
		return "No chunks assembled"
	}
	rows := make([][]string, 0, len(chunks))
	for _, chunk := range chunks {
		audio := strconv.FormatFloat(chunk.AudioSeconds, 'f', 3, 64)
		if chunk.ShortAudio {
			audio += "*"
		}
		rows = append(rows, []string{
			chunk.Key,
			filepath.Base(chunk.ImagePath),
			audio,
			string(chunk.Outcome),
			transcriptPreview(chunk.TranscriptPath),
		})
	}
	return renderTable([]tableColumn{
		col("Key"), col("Image"), numCol("Audio (s)"), col("Outcome"), col("Transcript"),
	}, rows)
}

func transcriptPreview(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "(missing)"
	}
	text := strings.Join(strings.Fields(string(data)), " ")
	if len([]rune(text)) > transcriptPreviewWidth {
		text = string([]rune(text)[:transcriptPreviewWidth-1]) + "…"
	}
	return text
}
