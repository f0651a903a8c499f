package decode

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Stage names reported on tool failures.
const (
	StageSample     = "sample"
	StageTimestamps = "timestamps"
	StageWindow     = "window"
)

// stderrTail bounds how much diagnostic output a ToolError retains. showinfo
// logs grow with every frame and are useless in an error message.
const stderrTail = 2048

// ToolError describes a failed external tool invocation.
type ToolError struct {
	Stage    string
	Binary   string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

// Error names the binary and its exit. The stage is left to the wrapping
// services error so it appears once in the full message.
func (e *ToolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Binary)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " exited with status %d", e.ExitCode)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if detail := lastLine(e.Stderr); detail != "" {
		b.WriteString(": ")
		b.WriteString(detail)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error { return e.Err }

func newToolError(stage, binary string, args []string, stderr string, err error) *ToolError {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	var coded interface{ ExitCode() int }
	if code < 0 && errors.As(err, &coded) {
		code = coded.ExitCode()
	}
	return &ToolError{
		Stage:    stage,
		Binary:   binary,
		Args:     append([]string(nil), args...),
		ExitCode: code,
		Stderr:   tail(stderr, stderrTail),
		Err:      err,
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}
