// Package fpvalidate collects the universal testable properties every
// entropy source must satisfy into standalone, reusable assertions,
// adapted from the teacher's payload.Validator pattern of centralizing a
// structural check. No other package in this repository imports it; its
// own tests are its only callers, and sources/canvas and sources/webrtc
// carry their own copies of the data-URL and private-IPv4 checks.
package fpvalidate

import (
	"net"
	"regexp"
)

var dataURLPattern = regexp.MustCompile(`^data:image/png;base64,([0-9A-Za-z+/]{4})*([0-9A-Za-z+/]{2}==|[0-9A-Za-z+/]{3}=)?$`)

// IsPNGDataURL reports whether s matches the documented PNG data-URL
// shape.
func IsPNGDataURL(s string) bool {
	return dataURLPattern.MatchString(s)
}

// IsNarrowBracket reports whether [lo, hi] is a valid media-query
// dimension bracket: 0 <= lo <= hi <= max, and hi - lo <= maxWidth.
func IsNarrowBracket(lo, hi, max, maxWidth int) bool {
	if lo < 0 || lo > hi || hi > max {
		return false
	}
	return hi-lo <= maxWidth
}

// IsBatteryLevelMultiple reports whether level is a multiple of step
// (within floating-point tolerance), the shape every observable battery
// level must have after rounding.
func IsBatteryLevelMultiple(level, step float64) bool {
	const epsilon = 1e-9
	ratio := level / step
	rounded := float64(int64(ratio + 0.5))
	return abs(ratio-rounded) < epsilon
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

var privateIPv4Blocks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// IsPrivateIPv4InRange reports whether addr parses as an IPv4 address
// falling in one of the four documented private/link-local ranges.
func IsPrivateIPv4InRange(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() == nil {
		return false
	}
	for _, n := range privateIPv4Blocks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// IsNotLinkLocalIPv6 reports whether addr parses as an IPv6 address that
// is not link-local (does not begin with fe80::/10).
func IsNotLinkLocalIPv6(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() != nil {
		return false
	}
	return !ip.IsLinkLocalUnicast()
}
