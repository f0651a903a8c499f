package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"vidchunk/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "window", "ffmpeg", "cut failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"window", "ffmpeg", "cut failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrConfiguration, "config", "", "fps must be positive", nil), "configuration"},
		{services.Wrap(services.ErrValidation, "align", "", "count mismatch", nil), "validation"},
		{fmt.Errorf("outer: %w", services.Wrap(services.ErrExternalTool, "window", "", "", nil)), "external_tool"},
		{services.Wrap(services.ErrNotFound, "source", "", "", nil), "not_found"},
		{services.Wrap(services.ErrTimeout, "sample", "", "", nil), "timeout"},
		{errors.New("plain"), "transient"},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestMarked(t *testing.T) {
	if !services.Marked(fmt.Errorf("outer: %w", services.Wrap(services.ErrTimeout, "window", "", "", nil))) {
		t.Fatal("expected wrapped marker to be detected")
	}
	if services.Marked(errors.New("plain")) || services.Marked(nil) {
		t.Fatal("unmarked errors must not report a marker")
	}
}
