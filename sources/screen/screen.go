// Package screen implements the media-query binary search that
// reconstructs viewport dimensions through matchMedia alone, plus the
// fixed-order feature, pixel-ratio, and color-depth enumerations. No host
// API other than matchMedia is ever queried, so a host that lies about
// window.screen cannot corrupt the result.
package screen

import (
	"context"
	"fmt"
)

// host is the subset of browserhost.Host this package depends on.
type host interface {
	Eval(ctx context.Context, js string, out any) error
}

// searchMax bounds the binary search range; no real viewport dimension
// exceeds it.
const searchMax = 8192

// bracketWidth is the termination threshold: the search stops once the
// candidate window is this wide or narrower.
const bracketWidth = 10

// Bracket is a closed integer range known to contain the true dimension.
type Bracket struct {
	Low, High int
}

// Feature is a small closed string enum, or NotObservable.
type Feature string

// NotObservable is returned for a feature when no enumerated value matched
// any matchMedia probe.
const NotObservable Feature = ""

// MediaQueries is the frozen, per-call result.
type MediaQueries struct {
	Width, Height                                  Bracket
	Orientation, DisplayMode, Pointer, AnyPointer  Feature
	Hover, AnyHover, OverflowBlock, OverflowInline Feature
	Update, Scripting                              Feature
	PixelRatio                                      float64
	ColorDepth                                      int
}

var pixelRatioTable = []float64{4, 3.5, 3, 2.75, 2.5, 2.25, 2, 1.75, 1.5, 1.25, 1, 0.75, 0.5}

var colorDepthTable = []int{48, 30, 24, 16, 12, 8, 4, 1}

var orientationValues = []string{"landscape", "portrait"}
var displayModeValues = []string{"fullscreen", "standalone", "minimal-ui", "browser"}
var pointerValues = []string{"fine", "coarse", "none"}
var anyPointerValues = []string{"fine", "coarse", "none"}
var hoverValues = []string{"hover", "none"}
var anyHoverValues = []string{"hover", "none"}
var overflowBlockValues = []string{"paged", "scroll", "optional-paged", "none"}
var overflowInlineValues = []string{"scroll", "none"}
var updateValues = []string{"fast", "slow", "none"}
var scriptingValues = []string{"enabled", "initial-only", "none"}

// matchResult is the decoded reply to a single matchMedia probe.
type matchResult struct {
	Matches bool `json:"matches"`
}

func matchMediaJS(query string) string {
	return fmt.Sprintf(`(function() { var m = window.matchMedia(%q); return { matches: !!(m && m.matches) }; })()`, query)
}

// probe evaluates a single matchMedia query and reports whether it
// matched. A Host error (the API absent, or a throwing host) is treated as
// "does not match" rather than propagated, per the "no source may throw"
// invariant — GetScreenMediaQueries below never returns an error itself.
func probe(ctx context.Context, h host, query string) bool {
	var res matchResult
	if err := h.Eval(ctx, matchMediaJS(query), &res); err != nil {
		return false
	}
	return res.Matches
}

// probeDimension performs the two independent binary searches described
// for one dimension (named by its CSS media-feature prefix, "width" or
// "height") and returns the resulting bracket. Searches that disagree
// (only possible when the host's matchMedia answers are incoherent, e.g.
// every probe fails) collapse to [low, low].
func probeDimension(ctx context.Context, h host, feature string) Bracket {
	lowBound := binarySearchLow(ctx, h, feature)
	highBound := binarySearchHigh(ctx, h, feature)
	if highBound < lowBound || highBound-lowBound > bracketWidth {
		highBound = lowBound
	}
	return Bracket{Low: lowBound, High: highBound}
}

// binarySearchLow finds the largest m for which (min-<feature>: m px)
// matches, using the invariant matches(low) may hold, matches(high) does
// not, terminating once the window is bracketWidth or narrower.
func binarySearchLow(ctx context.Context, h host, feature string) int {
	low, high := 0, searchMax
	if !probe(ctx, h, fmt.Sprintf("(min-%s: %dpx)", feature, low)) {
		return 0
	}
	if probe(ctx, h, fmt.Sprintf("(min-%s: %dpx)", feature, high)) {
		return high
	}
	for high-low > bracketWidth {
		mid := low + (high-low)/2
		if probe(ctx, h, fmt.Sprintf("(min-%s: %dpx)", feature, mid)) {
			low = mid
		} else {
			high = mid
		}
	}
	return low
}

// binarySearchHigh finds the smallest m for which (max-<feature>: m px)
// matches, using the invariant matches(high) holds, matches(low) does not.
func binarySearchHigh(ctx context.Context, h host, feature string) int {
	low, high := 0, searchMax
	if probe(ctx, h, fmt.Sprintf("(max-%s: %dpx)", feature, low)) {
		return low
	}
	if !probe(ctx, h, fmt.Sprintf("(max-%s: %dpx)", feature, high)) {
		return high
	}
	for high-low > bracketWidth {
		mid := low + (high-low)/2
		if probe(ctx, h, fmt.Sprintf("(max-%s: %dpx)", feature, mid)) {
			high = mid
		} else {
			low = mid
		}
	}
	return high
}

// probeFeature enumerates values in a fixed order and returns the first
// one whose matchMedia query matches, or NotObservable.
func probeFeature(ctx context.Context, h host, featureName string, values []string) Feature {
	for _, v := range values {
		if probe(ctx, h, fmt.Sprintf("(%s: %s)", featureName, v)) {
			return Feature(v)
		}
	}
	return NotObservable
}

type devicePixelRatio struct {
	Ratio float64 `json:"ratio"`
}

func probePixelRatio(ctx context.Context, h host) float64 {
	for _, r := range pixelRatioTable {
		if probe(ctx, h, fmt.Sprintf("(min-resolution: %gdppx)", r)) {
			return r
		}
	}
	var fallback devicePixelRatio
	if err := h.Eval(ctx, `(function(){ return { ratio: window.devicePixelRatio || 1 }; })()`, &fallback); err != nil {
		return 1
	}
	if fallback.Ratio <= 0 {
		return 1
	}
	return fallback.Ratio
}

func probeColorDepth(ctx context.Context, h host) int {
	for _, d := range colorDepthTable {
		colorIndex := int64(1) << uint(d)
		if probe(ctx, h, fmt.Sprintf("(min-color-index: %d)", colorIndex)) {
			return d
		}
	}
	return 0
}

// GetScreenMediaQueries runs every probe described above and returns the
// assembled, frozen result. Never returns an error: every probe downgrades
// a host failure to "did not match" / NotObservable.
func GetScreenMediaQueries(ctx context.Context, h host) MediaQueries {
	return MediaQueries{
		Width:          probeDimension(ctx, h, "width"),
		Height:         probeDimension(ctx, h, "height"),
		Orientation:    probeFeature(ctx, h, "orientation", orientationValues),
		DisplayMode:    probeFeature(ctx, h, "display-mode", displayModeValues),
		Pointer:        probeFeature(ctx, h, "pointer", pointerValues),
		AnyPointer:     probeFeature(ctx, h, "any-pointer", anyPointerValues),
		Hover:          probeFeature(ctx, h, "hover", hoverValues),
		AnyHover:       probeFeature(ctx, h, "any-hover", anyHoverValues),
		OverflowBlock:  probeFeature(ctx, h, "overflow-block", overflowBlockValues),
		OverflowInline: probeFeature(ctx, h, "overflow-inline", overflowInlineValues),
		Update:         probeFeature(ctx, h, "update", updateValues),
		Scripting:      probeFeature(ctx, h, "scripting", scriptingValues),
		PixelRatio:     probePixelRatio(ctx, h),
		ColorDepth:     probeColorDepth(ctx, h),
	}
}
