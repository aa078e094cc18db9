package audio

import (
	"context"
	"testing"

	"github.com/arjunkade/browserentropy/internal/browserhost/memhost"
	"github.com/arjunkade/browserentropy/sources/environment"
)

func TestGetAudioFingerprint_IOSSafari11ShortCircuits(t *testing.T) {
	env := environment.Class{IsMobile: true, IsWebKit: true, MajorVersion: 11}
	out := GetAudioFingerprint(env)

	if !out.KnownForSuspending {
		t.Fatal("expected KnownForSuspending=true for mobile WebKit 11")
	}
	if out.Producer != nil {
		t.Fatal("expected no producer when short-circuiting")
	}
}

func TestGetAudioFingerprint_DesktopSafari17ReturnsProducer(t *testing.T) {
	env := environment.Class{IsMobile: false, IsWebKit: true, MajorVersion: 17}
	out := GetAudioFingerprint(env)

	if out.KnownForSuspending {
		t.Fatal("expected KnownForSuspending=false for desktop Safari")
	}
	if out.Producer == nil {
		t.Fatal("expected a producer")
	}
}

func TestGetAudioFingerprint_MobileWebKit12DoesNotShortCircuit(t *testing.T) {
	env := environment.Class{IsMobile: true, IsWebKit: true, MajorVersion: 12}
	out := GetAudioFingerprint(env)

	if out.KnownForSuspending {
		t.Fatal("WebKit 12 is at the boundary and must not short-circuit")
	}
}

func TestProducer_ValueMemoizesAndDoesNotReEvaluate(t *testing.T) {
	h := memhost.New("ua").WithResponse(audioJS, map[string]any{"supported": true, "scalar": 42.5})
	p := NewProducer()

	v1, err1 := p.Value(context.Background(), h)
	if err1 != nil {
		t.Fatalf("unexpected error: %v", err1)
	}
	v2, err2 := p.Value(context.Background(), h)
	if err2 != nil {
		t.Fatalf("unexpected error: %v", err2)
	}
	if v1 != v2 {
		t.Fatalf("expected memoized value, got %v then %v", v1, v2)
	}
	if v1 != 42.5 {
		t.Fatalf("expected scalar 42.5, got %v", v1)
	}
	if len(h.Calls) != 1 {
		t.Fatalf("expected the pipeline to run exactly once, ran %d times", len(h.Calls))
	}
	if !p.Evaluated() {
		t.Fatal("expected Evaluated()=true after first Value call")
	}
}

func TestProducer_UnsupportedHostMemoizesError(t *testing.T) {
	h := memhost.New("ua").WithResponse(audioJS, map[string]any{"supported": false, "scalar": 0})
	p := NewProducer()

	_, err1 := p.Value(context.Background(), h)
	_, err2 := p.Value(context.Background(), h)
	if err1 == nil || err2 == nil {
		t.Fatal("expected an error on an unsupported host")
	}
	if len(h.Calls) != 1 {
		t.Fatalf("expected exactly one evaluation even when unsupported, got %d", len(h.Calls))
	}
}
