// Package canvas implements the 3x3 spatial-oversampling denoise exploit
// and the render-twice-and-compare fallback for browsers that noise canvas
// readback without the clamped-to-neighbourhood behaviour the exploit
// depends on. Every rendering and pixel-reassembly step happens in-browser,
// inside a single evaluated JS expression, so the one noisy getImageData
// call this package allows itself actually happens exactly once per scene,
// matching the "reads noise, does not forge it" role of this package.
package canvas

import (
	"context"
	"regexp"
	"strings"

	"github.com/arjunkade/browserentropy/sources/environment"
)

// Sentinel is the tagged alternative to an actual data-URL image field.
type Sentinel string

const (
	// Unsupported means the host has no canvas element or 2D context.
	Unsupported Sentinel = "unsupported"
	// Unstable means two successive readbacks of the same scene differed,
	// i.e. the host injects noise this package's exploit cannot defeat.
	Unstable Sentinel = "unstable"
)

// ImageField is either a PNG data-URL or a Sentinel. Exactly one of the two
// is non-zero.
type ImageField struct {
	DataURL  string
	Sentinel Sentinel
}

// IsSentinel reports whether this field carries a sentinel instead of an
// image.
func (f ImageField) IsSentinel() bool { return f.Sentinel != "" }

// Fingerprint is the per-call result. Winding and both image fields are
// frozen at construction and never mutated afterward.
type Fingerprint struct {
	Winding  bool
	Geometry ImageField
	Text     ImageField
}

// host is the subset of browserhost.Host this package depends on.
type host interface {
	EvalAwait(ctx context.Context, js string, out any) error
}

type sceneResult struct {
	Winding     bool   `json:"winding"`
	Supported   bool   `json:"supported"`
	Unstable    bool   `json:"unstable"`
	GeometryURL string `json:"geometryUrl"`
	TextURL     string `json:"textUrl"`
}

// GetCanvasFingerprint renders the fixed text and geometry scenes and
// extracts a stable data-URL from each, choosing the stabilization
// strategy implied by env: the 3x3 denoise branch on Safari-WebKit hosts
// at or beyond the build that clamps readback noise to its 8-neighbourhood,
// or the render-twice-and-compare branch everywhere else.
func GetCanvasFingerprint(ctx context.Context, h host, env environment.Class) Fingerprint {
	js := canvasJS
	if env.IsSafariWebKit && env.IsWebKit616OrNewer {
		js = denoiseReplacer.Replace(canvasJS)
	} else {
		js = compareReplacer.Replace(canvasJS)
	}

	var res sceneResult
	if err := h.EvalAwait(ctx, js, &res); err != nil {
		return Fingerprint{
			Geometry: ImageField{Sentinel: Unsupported},
			Text:     ImageField{Sentinel: Unsupported},
		}
	}
	if !res.Supported {
		return Fingerprint{
			Geometry: ImageField{Sentinel: Unsupported},
			Text:     ImageField{Sentinel: Unsupported},
		}
	}
	if res.Unstable {
		return Fingerprint{
			Winding:  res.Winding,
			Geometry: ImageField{Sentinel: Unstable},
			Text:     ImageField{Sentinel: Unstable},
		}
	}
	return Fingerprint{
		Winding:  res.Winding,
		Geometry: ImageField{DataURL: res.GeometryURL},
		Text:     ImageField{DataURL: res.TextURL},
	}
}

// dataURLPattern matches the documented PNG data-URL shape used by the
// testable-properties suite.
var dataURLPattern = regexp.MustCompile(`^data:image/png;base64,([0-9A-Za-z+/]{4})*([0-9A-Za-z+/]{2}==|[0-9A-Za-z+/]{3}=)?$`)

// LooksLikeDataURL reports whether s matches the PNG data-URL shape every
// non-sentinel ImageField must produce.
func LooksLikeDataURL(s string) bool {
	return dataURLPattern.MatchString(s)
}

var (
	denoiseReplacer = strings.NewReplacer("__STRATEGY__", "denoise")
	compareReplacer = strings.NewReplacer("__STRATEGY__", "compare")
)

// canvasJS builds both reference scenes, runs the winding feature test,
// and then reassembles each scene's pixels via whichever of the two
// strategies __STRATEGY__ selects: "denoise" executes the 3x3
// spatial-oversampling procedure once per scene against a single noisy
// getImageData call each; "compare" renders and encodes each scene twice
// and reports Unstable if the two encodings of either scene differ.
const canvasJS = `
(function() {
  function renderTextScene() {
    var c = document.createElement('canvas');
    c.width = 240; c.height = 60;
    var ctx = c.getContext('2d');
    if (!ctx) return null;
    ctx.textBaseline = 'alphabetic';
    ctx.fillStyle = '#f60';
    ctx.fillRect(100, 1, 62, 20);
    ctx.fillStyle = '#069';
    ctx.font = '11pt "Times New Roman"';
    ctx.fillText('Cwm fjordbank gly \u{1F603}', 2, 15);
    ctx.fillStyle = 'rgba(102, 204, 0, 0.2)';
    ctx.font = '18pt Arial';
    ctx.fillText('Cwm fjordbank gly \u{1F603}', 4, 45);
    return c;
  }

  function renderGeometryScene() {
    var c = document.createElement('canvas');
    c.width = 122; c.height = 110;
    var ctx = c.getContext('2d');
    if (!ctx) return null;
    ctx.globalCompositeOperation = 'multiply';
    ctx.fillStyle = '#f2f';
    ctx.beginPath(); ctx.arc(40, 40, 40, 0, Math.PI * 2, true); ctx.closePath(); ctx.fill();
    ctx.fillStyle = '#2ff';
    ctx.beginPath(); ctx.arc(80, 40, 40, 0, Math.PI * 2, true); ctx.closePath(); ctx.fill();
    ctx.fillStyle = '#ff2';
    ctx.beginPath(); ctx.arc(60, 80, 40, 0, Math.PI * 2, true); ctx.closePath(); ctx.fill();
    ctx.fillStyle = '#f9c';
    ctx.beginPath();
    ctx.arc(60, 60, 60, 0, Math.PI * 2, true);
    ctx.arc(60, 60, 20, 0, Math.PI * 2, true);
    ctx.fill('evenodd');
    return c;
  }

  function testWinding(ctx) {
    ctx.save();
    ctx.beginPath();
    ctx.rect(0, 0, 10, 10);
    ctx.rect(2, 2, 6, 6);
    var result = !ctx.isPointInPath(5, 5, 'evenodd');
    ctx.restore();
    return result;
  }

  function denoise(source) {
    var w = source.width, h = source.height;
    var scratch = document.createElement('canvas');
    scratch.width = w * 3; scratch.height = h * 3;
    var sctx = scratch.getContext('2d');
    if (!sctx) return source.toDataURL('image/png');
    sctx.imageSmoothingEnabled = false;
    sctx.drawImage(source, 0, 0, w * 3, h * 3);
    var noisy;
    try {
      noisy = sctx.getImageData(0, 0, w * 3, h * 3);
    } catch (e) {
      return source.toDataURL('image/png');
    }
    var out = document.createElement('canvas');
    out.width = w; out.height = h;
    var octx = out.getContext('2d');
    var clean = octx.createImageData(w, h);
    for (var y = 0; y < h; y++) {
      for (var x = 0; x < w; x++) {
        var srcIdx = ((y * 3 + 1) * (w * 3) + (x * 3 + 1)) * 4;
        var dstIdx = (y * w + x) * 4;
        clean.data[dstIdx] = noisy.data[srcIdx];
        clean.data[dstIdx + 1] = noisy.data[srcIdx + 1];
        clean.data[dstIdx + 2] = noisy.data[srcIdx + 2];
        clean.data[dstIdx + 3] = noisy.data[srcIdx + 3];
      }
    }
    octx.putImageData(clean, 0, 0);
    return out.toDataURL('image/png');
  }

  try {
    var textCanvas = renderTextScene();
    var geoCanvas = renderGeometryScene();
    if (!textCanvas || !geoCanvas) {
      return { supported: false, unstable: false, winding: false, geometryUrl: '', textUrl: '' };
    }
    var winding = testWinding(geoCanvas.getContext('2d'));

    if ('__STRATEGY__' === 'denoise') {
      var geometryUrl = denoise(geoCanvas);
      var textUrl = denoise(textCanvas);
      return { supported: true, unstable: false, winding: winding, geometryUrl: geometryUrl, textUrl: textUrl };
    }

    var geometryFirst = geoCanvas.toDataURL('image/png');
    var geometrySecond = geoCanvas.toDataURL('image/png');
    var textFirst = textCanvas.toDataURL('image/png');
    var textSecond = textCanvas.toDataURL('image/png');
    if (geometryFirst !== geometrySecond || textFirst !== textSecond) {
      return { supported: true, unstable: true, winding: winding, geometryUrl: '', textUrl: '' };
    }
    return { supported: true, unstable: false, winding: winding, geometryUrl: geometryFirst, textUrl: textFirst };
  } catch (e) {
    return { supported: false, unstable: false, winding: false, geometryUrl: '', textUrl: '' };
  }
})()
`
