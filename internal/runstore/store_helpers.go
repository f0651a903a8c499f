package runstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"vidchunk/internal/extraction"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id            string
		label         string
		sourcePath    string
		outputDir     string
		manifestPath  sql.NullString
		fps           float64
		windowSeconds float64
		duration      float64
		status        string
		chunkCount    int
		reportJSON    sql.NullString
		errorKind     sql.NullString
		errorStage    sql.NullString
		errorMessage  sql.NullString
		startedRaw    string
		finishedRaw   sql.NullString
		updatedRaw    string
	)
	if err := scanner.Scan(
		&id,
		&label,
		&sourcePath,
		&outputDir,
		&manifestPath,
		&fps,
		&windowSeconds,
		&duration,
		&status,
		&chunkCount,
		&reportJSON,
		&errorKind,
		&errorStage,
		&errorMessage,
		&startedRaw,
		&finishedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:              id,
		Label:           label,
		SourcePath:      sourcePath,
		OutputDir:       outputDir,
		ManifestPath:    manifestPath.String,
		FPS:             fps,
		WindowSeconds:   windowSeconds,
		DurationSeconds: duration,
		Status:          extraction.Status(status),
		ChunkCount:      chunkCount,
		ErrorKind:       errorKind.String,
		ErrorStage:      errorStage.String,
		ErrorMessage:    errorMessage.String,
	}
	if reportJSON.Valid && reportJSON.String != "" {
		// A report written by an older build decodes partially; the row stays usable.
		_ = json.Unmarshal([]byte(reportJSON.String), &run.Report)
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = finished
		}
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		run.UpdatedAt = updated
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return formatTime(value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
