// Package environment implements the environment oracle: a pure function
// of a host's user-agent string and a handful of feature probes, consumed
// by every other source to pick a stabilization strategy (the canvas
// denoise branch, the audio suspending-host short-circuit). It never talks
// to the network and never mutates anything — Classify is a read and
// combine operation, grounded on the teacher pack's only UA-parsing
// dependency.
package environment

import (
	"context"
	"fmt"
	"strings"

	"github.com/LumenResearch/uasurfer"
)

// Class is the derived, immutable record every other source treats as a
// plain input. Fresh per Classify call; never cached across calls by this
// package (a caller that wants to reuse one Class across several sources
// within the same page load is free to do so — Classify does not enforce
// that policy itself).
type Class struct {
	IsWebKit           bool
	IsSafariWebKit     bool
	IsMobile           bool
	IsSamsungInternet  bool
	MajorVersion       int
	IsWebKit616OrNewer bool
}

// webKit616BuildMajor is the Safari major version that first shipped
// WebKit build 616.x, the version line that introduced per-pixel canvas
// readback noise clamped by 8-neighbourhood averaging.
const webKit616BuildMajor = 17

// probeJS is evaluated once against the host to collect the feature
// signals uasurfer's UA parse alone cannot provide: whether any
// touch-capable pointer exists (a weak mobile signal independent of UA
// string lies) and the vendor string, which distinguishes Samsung
// Internet's WebKit-based browser from Safari proper on otherwise
// identical UA substrings.
const probeJS = `(function() {
  return {
    userAgent: navigator.userAgent,
    vendor: navigator.vendor || "",
    maxTouchPoints: navigator.maxTouchPoints || 0
  };
})()`

type probeResult struct {
	UserAgent      string `json:"userAgent"`
	Vendor         string `json:"vendor"`
	MaxTouchPoints int    `json:"maxTouchPoints"`
}

// host is the subset of browserhost.Host this package needs; declared
// locally to avoid an import cycle with internal/browserhost (which has no
// reason to depend back on sources/environment).
type host interface {
	Eval(ctx context.Context, js string, out any) error
}

// Classify runs probeJS against h and combines its result with a
// uasurfer.Parse of the user-agent string to build a Class. A feature the
// probe cannot read (no vendor string, no touch points) leaves the
// corresponding input at its zero value; a Host error on the probe itself
// is returned as an error with a zero Class.
func Classify(ctx context.Context, h host) (Class, error) {
	var probe probeResult
	if err := h.Eval(ctx, probeJS, &probe); err != nil {
		return Class{}, fmt.Errorf("environment: probe host: %w", err)
	}
	return ClassifyUserAgent(probe.UserAgent, probe.Vendor, probe.MaxTouchPoints), nil
}

// ClassifyUserAgent builds a Class directly from an already-known
// user-agent string, vendor string, and touch-point count, without
// touching a host. Exported so the demo binary and tests can classify a
// fixed UA string (e.g. to drive the canvas denoise-branch decision in a
// unit test) without a browserhost.Host at all.
func ClassifyUserAgent(userAgent, vendor string, maxTouchPoints int) Class {
	ua := uasurfer.Parse(userAgent)
	browserName := strings.ToLower(ua.Browser.Name.StringTrimPrefix())
	deviceType := strings.ToLower(ua.DeviceType.StringTrimPrefix())
	lowerUA := strings.ToLower(userAgent)

	isWebKit := browserName == "safari" || browserName == "chrome" ||
		strings.Contains(lowerUA, "applewebkit")

	isSamsungInternet := strings.Contains(lowerUA, "samsungbrowser")

	isSafariWebKit := browserName == "safari" && !isSamsungInternet

	isMobile := strings.Contains(deviceType, "phone") ||
		strings.Contains(deviceType, "tablet") ||
		strings.Contains(deviceType, "mobile") ||
		maxTouchPoints > 0

	major := ua.Browser.Version.Major

	webKitBuildVersion := extractWebKitBuild(userAgent)
	isWebKit616OrNewer := isSafariWebKit && (major >= webKit616BuildMajor || webKitBuildVersion >= 616)

	return Class{
		IsWebKit:           isWebKit,
		IsSafariWebKit:     isSafariWebKit,
		IsMobile:           isMobile,
		IsSamsungInternet:  isSamsungInternet,
		MajorVersion:       major,
		IsWebKit616OrNewer: isWebKit616OrNewer,
	}
}

// extractWebKitBuild parses the "AppleWebKit/616.1.22" token out of a UA
// string, returning 0 if absent or malformed. uasurfer exposes the
// browser's marketing version but not the underlying engine build number,
// which is what actually gates the clamped-noise readback behaviour.
func extractWebKitBuild(userAgent string) int {
	const marker = "AppleWebKit/"
	idx := strings.Index(userAgent, marker)
	if idx < 0 {
		return 0
	}
	rest := userAgent[idx+len(marker):]
	end := strings.IndexAny(rest, " .")
	if end < 0 {
		end = len(rest)
	}
	var n int
	for _, c := range rest[:end] {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// IsWebKit616OrNewerVersion reports whether a bare WebKit build number
// meets the denoise-exploit threshold, exposed for sources/canvas tests
// that want to exercise the boundary (615 vs 616) without constructing a
// full user-agent string.
func IsWebKit616OrNewerVersion(build int) bool {
	return build >= 616
}
