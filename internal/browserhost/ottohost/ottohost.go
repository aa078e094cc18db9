// Package ottohost implements browserhost.Host using the otto pure-Go
// JavaScript interpreter, in the same role the teacher's jschallenge
// package plays for anti-bot challenges: a zero-browser fallback for
// environments with no Chrome binary available (CI, a constrained
// container). It seeds the VM with a navigator stub and a matchMedia
// implementation driven by a configurable synthetic viewport, which is
// enough to exercise sources/screen and sources/environment without a real
// browser.
//
// Canvas, AudioContext and RTCPeerConnection are deliberately left
// undefined, and otto has no Promise: code that touches them fails, and
// Eval surfaces that as an error. Every source in sources/* treats a Host
// error as "the API is absent here" and downgrades to its failure value
// (canvas Unsupported, an error from the audio Producer, webrtc's
// Supported=true result with empty address lists, battery
// Supported=false) — so an OttoHost exercises the sources' documented
// failure paths for free.
package ottohost

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/robertkrimen/otto"
)

// Viewport configures the synthetic matchMedia answers.
type Viewport struct {
	Width, Height int
	PixelRatio    float64
	ColorDepth    int
	// Features maps a discrete media feature name (e.g. "orientation",
	// "pointer") to the single value it should report as matching.
	Features map[string]string
}

// Host is a browserhost.Host backed by an otto VM.
type Host struct {
	vm *otto.Otto
	ua string
}

// New creates a Host with a browser-stub environment seeded from ua and vp.
func New(ua string, vp Viewport) (*Host, error) {
	if ua == "" {
		ua = "Mozilla/5.0 (compatible; browserentropy-ottohost/1.0)"
	}
	vm := otto.New()

	if err := vm.Set("__mq_width", vp.Width); err != nil {
		return nil, fmt.Errorf("ottohost: set width: %w", err)
	}
	if err := vm.Set("__mq_height", vp.Height); err != nil {
		return nil, fmt.Errorf("ottohost: set height: %w", err)
	}
	if err := vm.Set("__mq_ratio", vp.PixelRatio); err != nil {
		return nil, fmt.Errorf("ottohost: set ratio: %w", err)
	}
	if err := vm.Set("__mq_colorIndex", colorIndexFor(vp.ColorDepth)); err != nil {
		return nil, fmt.Errorf("ottohost: set color index: %w", err)
	}
	featuresJSON, err := json.Marshal(vp.Features)
	if err != nil {
		return nil, fmt.Errorf("ottohost: marshal features: %w", err)
	}

	bootstrap := fmt.Sprintf(`
var window = this;
var __mq_features = %s;
var navigator = {
  userAgent: %q,
  deviceMemory: undefined,
  connection: undefined,
  getBattery: undefined
};
var document = { cookie: "" };
var screen = { width: __mq_width, height: __mq_height, colorDepth: 24, pixelDepth: 24 };

function __mq_eval(query) {
  var m;
  if ((m = query.match(/min-width:\s*(\d+)px/))) return __mq_width >= parseInt(m[1], 10);
  if ((m = query.match(/max-width:\s*(\d+)px/))) return __mq_width <= parseInt(m[1], 10);
  if ((m = query.match(/min-height:\s*(\d+)px/))) return __mq_height >= parseInt(m[1], 10);
  if ((m = query.match(/max-height:\s*(\d+)px/))) return __mq_height <= parseInt(m[1], 10);
  if ((m = query.match(/min-resolution:\s*([\d.]+)dppx/))) return __mq_ratio >= parseFloat(m[1]);
  if ((m = query.match(/min-color-index:\s*(\d+)/))) return __mq_colorIndex >= parseInt(m[1], 10);
  for (var feature in __mq_features) {
    var re = new RegExp(feature + ':\\s*' + __mq_features[feature]);
    if (re.test(query)) return true;
  }
  return false;
}

window.matchMedia = function(query) {
  return { matches: __mq_eval(query), media: query };
};
`, featuresJSON, ua)

	if _, err := vm.Run(bootstrap); err != nil {
		return nil, fmt.Errorf("ottohost: bootstrap globals: %w", err)
	}
	return &Host{vm: vm, ua: ua}, nil
}

var trailingSemicolon = regexp.MustCompile(`;\s*$`)

func (h *Host) Eval(ctx context.Context, js string, out any) error {
	expr := trailingSemicolon.ReplaceAllString(js, "")
	val, err := h.vm.Run("(" + expr + ")")
	if err != nil {
		return fmt.Errorf("ottohost: eval: %w", err)
	}
	return decode(val, out)
}

// EvalAwait has no real event loop to await against; otto has no Promise
// support, so this simply evaluates js as a plain expression. Sources that
// rely on real asynchronous behaviour (audio rendering, ICE gathering) are
// expected to fail against this host and fall back to their documented
// "API absent" sentinel.
func (h *Host) EvalAwait(ctx context.Context, js string, out any) error {
	return h.Eval(ctx, js, out)
}

func (h *Host) UserAgent(ctx context.Context) (string, error) {
	return h.ua, nil
}

func (h *Host) Close() error { return nil }

func decode(val otto.Value, out any) error {
	if out == nil {
		return nil
	}
	exported, err := val.Export()
	if err != nil {
		return fmt.Errorf("ottohost: export result: %w", err)
	}
	b, err := json.Marshal(exported)
	if err != nil {
		return fmt.Errorf("ottohost: marshal result: %w", err)
	}
	return json.Unmarshal(b, out)
}

// colorIndexFor converts a bit depth into the 2^depth color-table size that
// the (min-color-index) media feature historically described.
func colorIndexFor(depth int) int64 {
	if depth <= 0 {
		return 0
	}
	if depth > 62 {
		depth = 62
	}
	return int64(1) << uint(depth)
}
