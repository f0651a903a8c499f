package preflight

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"vidchunk/internal/config"
	"vidchunk/internal/deps"
	"vidchunk/internal/transcribe"
)

// CheckBinaryVersion verifies that command runs and reports the first line of
// its -version banner. It uses a 10-second timeout.
func CheckBinaryVersion(ctx context.Context, name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	output, err := exec.CommandContext(checkCtx, resolved, "-version").CombinedOutput() //nolint:gosec
	if err != nil {
		if errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: -version timed out)", resolved)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", resolved, err)}
	}
	banner := firstLine(output)
	if banner == "" {
		banner = "version unknown"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", resolved, banner)}
}

func firstLine(output []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckModelDir verifies that the speech model directory exists and is
// readable. A missing model degrades transcription rather than failing runs,
// so the detail says so.
func CheckModelDir(path string) Result {
	const name = "Speech model"

	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "model_dir not configured (transcripts will be empty)"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist; transcripts will be empty)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unreadable: %v)", path, err)}
	}
	entries, err := os.ReadDir(path)
	if err != nil || len(entries) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: empty)", path)}
	}
	if _, err := os.Stat(filepath.Join(path, "am")); err != nil {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (no am/ subdirectory; may not be a vosk model)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckSpeechEngine reports whether the binary was built with a recognizer.
func CheckSpeechEngine(engine transcribe.Engine) Result {
	const name = "Speech engine"
	if engine == nil || engine.Name() == "none" {
		return Result{Name: name, Detail: "not compiled in (rebuild with -tags vosk)"}
	}
	return Result{Name: name, Passed: true, Detail: engine.Name()}
}

// CheckSystemDeps evaluates the external binaries the extraction pipeline invokes.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for frame sampling and audio windows",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for source inspection",
		},
	}
	return deps.CheckBinaries(requirements)
}
