package environment

import (
	"context"
	"errors"
	"testing"

	"github.com/arjunkade/browserentropy/internal/browserhost/ottohost"
)

const (
	safari17MacUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/616.1.22 (KHTML, like Gecko) Version/17.0 Safari/616.1.22"
	iosSafari11UA = "Mozilla/5.0 (iPhone; CPU iPhone OS 11_0 like Mac OS X) AppleWebKit/604.1.38 (KHTML, like Gecko) Version/11.0 Mobile/15A372 Safari/604.1"
	chromeDesktop = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	samsungUA     = "Mozilla/5.0 (Linux; Android 13) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/26.0 Chrome/120.0.0.0 Mobile Safari/537.36"
)

func TestClassifyUserAgent_Safari17DesktopIsDenoiseEligible(t *testing.T) {
	c := ClassifyUserAgent(safari17MacUA, "Apple Computer, Inc.", 0)
	if !c.IsSafariWebKit {
		t.Fatalf("expected IsSafariWebKit=true, got %+v", c)
	}
	if !c.IsWebKit616OrNewer {
		t.Fatalf("expected IsWebKit616OrNewer=true, got %+v", c)
	}
	if c.IsMobile {
		t.Fatalf("expected desktop UA to not classify as mobile, got %+v", c)
	}
}

func TestClassifyUserAgent_IOSSafari11IsMobileAndOldWebKit(t *testing.T) {
	c := ClassifyUserAgent(iosSafari11UA, "Apple Computer, Inc.", 5)
	if !c.IsMobile {
		t.Fatalf("expected IsMobile=true, got %+v", c)
	}
	if c.IsWebKit616OrNewer {
		t.Fatalf("expected IsWebKit616OrNewer=false for WebKit 604 build, got %+v", c)
	}
}

func TestClassifyUserAgent_SamsungInternetIsNotSafariWebKit(t *testing.T) {
	c := ClassifyUserAgent(samsungUA, "", 5)
	if !c.IsSamsungInternet {
		t.Fatalf("expected IsSamsungInternet=true, got %+v", c)
	}
	if c.IsSafariWebKit {
		t.Fatalf("Samsung Internet must not be classified as Safari WebKit, got %+v", c)
	}
}

func TestClassifyUserAgent_ChromeDesktopIsNotSafariWebKit(t *testing.T) {
	c := ClassifyUserAgent(chromeDesktop, "Google Inc.", 0)
	if c.IsSafariWebKit {
		t.Fatalf("expected IsSafariWebKit=false for Chrome, got %+v", c)
	}
	if c.MajorVersion != 120 {
		t.Fatalf("expected major version 120, got %d", c.MajorVersion)
	}
}

type stubHost struct {
	result probeResult
	err    error
}

func (s stubHost) Eval(ctx context.Context, js string, out any) error {
	if s.err != nil {
		return s.err
	}
	p, ok := out.(*probeResult)
	if !ok {
		return errors.New("unexpected out type")
	}
	*p = s.result
	return nil
}

func TestClassify_PropagatesHostError(t *testing.T) {
	h := stubHost{err: errors.New("boom")}
	if _, err := Classify(context.Background(), h); err == nil {
		t.Fatal("expected error from Classify when host Eval fails")
	}
}

func TestClassify_UsesProbedFields(t *testing.T) {
	h := stubHost{result: probeResult{UserAgent: chromeDesktop, Vendor: "Google Inc.", MaxTouchPoints: 0}}
	c, err := Classify(context.Background(), h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.MajorVersion != 120 {
		t.Fatalf("expected major version 120, got %+v", c)
	}
}

// TestClassify_AgainstOttoHost runs Classify against a genuine (if
// DOM-free) JS VM instead of a scripted fake, confirming probeJS evaluates
// cleanly outside a real browser.
func TestClassify_AgainstOttoHost(t *testing.T) {
	h, err := ottohost.New(chromeDesktop, ottohost.Viewport{Width: 1280, Height: 800})
	if err != nil {
		t.Fatalf("ottohost.New: %v", err)
	}
	c, err := Classify(context.Background(), h)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if c.MajorVersion != 120 {
		t.Fatalf("expected major version 120, got %+v", c)
	}
	if c.IsSafariWebKit {
		t.Fatalf("expected IsSafariWebKit=false for a Chrome UA, got %+v", c)
	}
}

func TestIsWebKit616OrNewerVersion(t *testing.T) {
	if IsWebKit616OrNewerVersion(615) {
		t.Fatal("615 should be below the denoise threshold")
	}
	if !IsWebKit616OrNewerVersion(616) {
		t.Fatal("616 should meet the denoise threshold")
	}
}
