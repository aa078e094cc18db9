package screen

import (
	"context"
	"regexp"
	"strconv"
	"testing"

	"github.com/arjunkade/browserentropy/internal/browserhost/memhost"
	"github.com/arjunkade/browserentropy/internal/browserhost/ottohost"
)

var (
	reMinWidth  = regexp.MustCompile(`min-width:\s*(\d+)px`)
	reMaxWidth  = regexp.MustCompile(`max-width:\s*(\d+)px`)
	reMinHeight = regexp.MustCompile(`min-height:\s*(\d+)px`)
	reMaxHeight = regexp.MustCompile(`max-height:\s*(\d+)px`)
	reMinRes    = regexp.MustCompile(`min-resolution:\s*([\d.]+)dppx`)
)

func matchesViewport(js string, width, height int, ratio float64) bool {
	if m := reMinWidth.FindStringSubmatch(js); m != nil {
		n, _ := strconv.Atoi(m[1])
		return width >= n
	}
	if m := reMaxWidth.FindStringSubmatch(js); m != nil {
		n, _ := strconv.Atoi(m[1])
		return width <= n
	}
	if m := reMinHeight.FindStringSubmatch(js); m != nil {
		n, _ := strconv.Atoi(m[1])
		return height >= n
	}
	if m := reMaxHeight.FindStringSubmatch(js); m != nil {
		n, _ := strconv.Atoi(m[1])
		return height <= n
	}
	if m := reMinRes.FindStringSubmatch(js); m != nil {
		r, _ := strconv.ParseFloat(m[1], 64)
		return ratio >= r
	}
	return false
}

// fakeViewportHost answers matchMedia queries as if the true viewport were
// width x height, without going through a real browser or even otto.
type fakeViewportHost struct {
	width, height int
	ratio         float64
}

func (f fakeViewportHost) Eval(ctx context.Context, js string, out any) error {
	if m, ok := out.(*matchResult); ok {
		m.Matches = matchesViewport(js, f.width, f.height, f.ratio)
		return nil
	}
	if dp, ok := out.(*devicePixelRatio); ok {
		dp.Ratio = f.ratio
		return nil
	}
	return nil
}

func TestProbeDimension_BracketsTrueWidth(t *testing.T) {
	h := fakeViewportHost{width: 1280, height: 800, ratio: 2}
	b := probeDimension(context.Background(), h, "width")

	if b.Low > 1280 || b.High < 1280 {
		t.Fatalf("expected bracket to contain 1280, got %+v", b)
	}
	if b.High-b.Low > bracketWidth {
		t.Fatalf("expected bracket width <= %d, got %+v", bracketWidth, b)
	}
}

func TestProbeDimension_BracketsTrueHeight(t *testing.T) {
	h := fakeViewportHost{width: 1280, height: 800, ratio: 2}
	b := probeDimension(context.Background(), h, "height")

	if b.Low > 800 || b.High < 800 {
		t.Fatalf("expected bracket to contain 800, got %+v", b)
	}
}

func TestGetScreenMediaQueries_NeverErrors(t *testing.T) {
	h := fakeViewportHost{width: 1920, height: 1080, ratio: 2.5}
	mq := GetScreenMediaQueries(context.Background(), h)

	if mq.Width.Low > 1920 || mq.Width.High < 1920 {
		t.Fatalf("expected width bracket to contain 1920, got %+v", mq.Width)
	}
	if mq.PixelRatio != 2.5 {
		t.Fatalf("expected pixel ratio 2.5, got %v", mq.PixelRatio)
	}
}

func TestGetScreenMediaQueries_UnsupportedHostDowngradesGracefully(t *testing.T) {
	h := memhost.New("ua") // no scripted responses: every Eval call errors
	mq := GetScreenMediaQueries(context.Background(), h)

	if mq.Width != (Bracket{Low: 0, High: 0}) {
		t.Fatalf("expected zero bracket on a fully unsupported host, got %+v", mq.Width)
	}
	if mq.Orientation != NotObservable {
		t.Fatalf("expected NotObservable orientation, got %v", mq.Orientation)
	}
	if mq.PixelRatio != 1 {
		t.Fatalf("expected pixel ratio fallback of 1, got %v", mq.PixelRatio)
	}
}

// TestGetScreenMediaQueries_AgainstOttoHost runs the real matchMediaJS
// strings against a genuine (if DOM-free) JS VM, rather than a scripted or
// hand-rolled fake — exercising the binary search and table probes without
// a real browser.
func TestGetScreenMediaQueries_AgainstOttoHost(t *testing.T) {
	h, err := ottohost.New("ua", ottohost.Viewport{Width: 1366, Height: 768, PixelRatio: 1.5, ColorDepth: 24})
	if err != nil {
		t.Fatalf("ottohost.New: %v", err)
	}

	mq := GetScreenMediaQueries(context.Background(), h)

	if mq.Width.Low > 1366 || mq.Width.High < 1366 {
		t.Fatalf("expected width bracket to contain 1366, got %+v", mq.Width)
	}
	if mq.Height.Low > 768 || mq.Height.High < 768 {
		t.Fatalf("expected height bracket to contain 768, got %+v", mq.Height)
	}
	if mq.PixelRatio != 1.5 {
		t.Fatalf("expected pixel ratio 1.5, got %v", mq.PixelRatio)
	}
}
