package ottohost

import (
	"context"
	"testing"
)

func TestHost_UserAgent(t *testing.T) {
	h, err := New("test-ua", Viewport{Width: 1280, Height: 800})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ua, err := h.UserAgent(context.Background())
	if err != nil {
		t.Fatalf("UserAgent: %v", err)
	}
	if ua != "test-ua" {
		t.Fatalf("expected test-ua, got %q", ua)
	}
}

func TestHost_MatchMediaDimensionQueries(t *testing.T) {
	h, err := New("ua", Viewport{Width: 1280, Height: 800, PixelRatio: 2, ColorDepth: 24})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var matches bool
	if err := h.Eval(context.Background(), `window.matchMedia("(min-width: 1000px)").matches`, &matches); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !matches {
		t.Fatal("expected 1280px width to match (min-width: 1000px)")
	}

	if err := h.Eval(context.Background(), `window.matchMedia("(min-width: 2000px)").matches`, &matches); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if matches {
		t.Fatal("expected 1280px width to not match (min-width: 2000px)")
	}

	if err := h.Eval(context.Background(), `window.matchMedia("(min-resolution: 1.5dppx)").matches`, &matches); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !matches {
		t.Fatal("expected pixel ratio 2 to match (min-resolution: 1.5dppx)")
	}
}

func TestHost_CanvasAndAudioAPIsAreAbsent(t *testing.T) {
	h, err := New("ua", Viewport{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var out string
	if err := h.Eval(context.Background(), `document.createElement("canvas").toDataURL()`, &out); err == nil {
		t.Fatal("expected an error evaluating canvas APIs against the otto VM")
	}
	if err := h.EvalAwait(context.Background(), `new AudioContext()`, &out); err == nil {
		t.Fatal("expected an error evaluating AudioContext against the otto VM")
	}
}

func TestHost_CloseIsSafeToCallRepeatedly(t *testing.T) {
	h, err := New("ua", Viewport{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
