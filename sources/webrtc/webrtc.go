// Package webrtc implements the time-bounded WebRTC ICE-gathering race
// that classifies local IP addresses revealed by ICE candidates. The race
// itself — opening a data channel, creating an SDP offer, listening for
// candidates, and enforcing a 1000ms deadline — runs entirely inside one
// evaluated JS expression; this package's Go-side job is deduplication and
// classification of whatever candidate strings come back, and guaranteeing
// the call never blocks past its documented deadline.
package webrtc

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// host is the subset of browserhost.Host this package depends on.
type host interface {
	EvalAwait(ctx context.Context, js string, out any) error
}

// GatherDeadline is the hard wall-clock bound on ICE gathering, enforced
// both inside the evaluated JS and, redundantly, by the ctx passed to
// EvalAwait, so a host that ignores its own internal timer still cannot
// make this call hang.
const GatherDeadline = 1000 * time.Millisecond

// ctxSlack is added on top of GatherDeadline before the Go-side context
// deadline fires, so the in-browser timer always wins the race under
// normal scheduling and this package's own deadline is only a backstop.
const ctxSlack = 100 * time.Millisecond

// IPs is the frozen, deduplicated, classified result.
type IPs struct {
	LocalIPv4 []string
	LocalIPv6 []string
	Supported bool
}

type gatherResult struct {
	Supported  bool     `json:"supported"`
	Candidates []string `json:"candidates"`
}

// GetWebRTCIPs resolves within GatherDeadline plus a small scheduling
// margin. It never returns an error: any failure during setup, evaluation,
// or a Host timeout downgrades to IPs{Supported: true} with empty slices,
// matching the documented "any throw during setup resolves with
// supported:true, empty slices" failure mode.
func GetWebRTCIPs(ctx context.Context, h host) IPs {
	callCtx, cancel := context.WithTimeout(ctx, GatherDeadline+ctxSlack)
	defer cancel()

	var res gatherResult
	if err := h.EvalAwait(callCtx, webrtcJS, &res); err != nil {
		return IPs{Supported: true, LocalIPv4: nil, LocalIPv6: nil}
	}
	if !res.Supported {
		return IPs{Supported: false}
	}
	return classify(res.Candidates)
}

var (
	ipv4Pattern = regexp.MustCompile(`\b(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\b`)
	ipv6Pattern = regexp.MustCompile(`\b([0-9a-fA-F]{1,4}:[0-9a-fA-F:]*:[0-9a-fA-F]{1,4})\b`)
	mdnsPattern = regexp.MustCompile(`\.local\b`)
)

// classify extracts, deduplicates, and classifies IP addresses embedded in
// raw ICE candidate lines.
func classify(candidates []string) IPs {
	seenV4 := make(map[string]bool)
	seenV6 := make(map[string]bool)
	var v4, v6 []string

	for _, c := range candidates {
		if mdnsPattern.MatchString(c) {
			continue
		}
		if m := ipv4Pattern.FindStringSubmatch(c); m != nil {
			addr := m[1]
			if isPrivateIPv4(addr) && !seenV4[addr] {
				seenV4[addr] = true
				v4 = append(v4, addr)
			}
			continue
		}
		if m := ipv6Pattern.FindStringSubmatch(c); m != nil {
			addr := m[1]
			if !isLinkLocalIPv6(addr) && !seenV6[addr] {
				seenV6[addr] = true
				v6 = append(v6, addr)
			}
		}
	}

	sort.Strings(v4)
	sort.Strings(v6)
	return IPs{Supported: true, LocalIPv4: v4, LocalIPv6: v6}
}

// isPrivateIPv4 reports whether addr falls in 10/8, 172.16/12, 192.168/16,
// or 169.254/16 — public STUN-reflexive addresses are deliberately
// excluded by this check, not merely left unclassified.
func isPrivateIPv4(addr string) bool {
	var a, b, c, d int
	if n, err := fmt.Sscanf(addr, "%d.%d.%d.%d", &a, &b, &c, &d); n != 4 || err != nil {
		return false
	}
	if a < 0 || a > 255 || b < 0 || b > 255 || c < 0 || c > 255 || d < 0 || d > 255 {
		return false
	}
	switch {
	case a == 10:
		return true
	case a == 172 && b >= 16 && b <= 31:
		return true
	case a == 192 && b == 168:
		return true
	case a == 169 && b == 254:
		return true
	}
	return false
}

// isLinkLocalIPv6 reports whether addr begins with the fe80: link-local
// prefix.
func isLinkLocalIPv6(addr string) bool {
	return len(addr) >= 5 && (addr[:5] == "fe80:" || addr[:4] == "FE80" || addr[:4] == "Fe80")
}

// webrtcJS resolves a vendor-prefixed RTCPeerConnection constructor,
// races ICE gathering against a hard deadline, and returns the raw
// candidate strings collected before whichever completion path fired
// first — state-change, end-of-candidates, or the timer. Completion is
// idempotent via the `done` guard, since more than one of those paths can
// fire for the same connection.
const webrtcJS = `
(function() {
  var RTCPeerConnection = window.RTCPeerConnection || window.webkitRTCPeerConnection || window.mozRTCPeerConnection;
  if (!RTCPeerConnection) {
    return Promise.resolve({ supported: false, candidates: [] });
  }

  return new Promise(function(resolve) {
    var candidates = [];
    var done = false;
    var pc;

    function finish() {
      if (done) return;
      done = true;
      try { if (pc) pc.close(); } catch (e) {}
      resolve({ supported: true, candidates: candidates });
    }

    try {
      pc = new RTCPeerConnection({ iceServers: [{ urls: 'stun:stun.l.google.com:19302' }] });
      pc.onicecandidate = function(evt) {
        if (evt && evt.candidate && evt.candidate.candidate) {
          candidates.push(evt.candidate.candidate);
        } else if (evt && !evt.candidate) {
          finish();
        }
      };
      pc.onicegatheringstatechange = function() {
        if (pc.iceGatheringState === 'complete') finish();
      };
      pc.createDataChannel('');
      pc.createOffer().then(function(offer) {
        return pc.setLocalDescription(offer);
      }).catch(function() { finish(); });

      setTimeout(finish, 1000);
    } catch (e) {
      finish();
    }
  });
})()
`
