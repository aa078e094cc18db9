// Package audio implements the audio fingerprint stabilizer: a producer
// that runs a short offline audio graph exactly once and memoizes the
// resulting scalar, plus the mobile-WebKit short-circuit that avoids ever
// constructing that graph on hosts known to suspend it indefinitely
// outside a user gesture.
package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/arjunkade/browserentropy/sources/environment"
)

// suspendingMobileWebKitMajor is the mobile WebKit major version below
// which an OfflineAudioContext never resolves without a user gesture.
const suspendingMobileWebKitMajor = 12

// host is the subset of browserhost.Host this package depends on.
type host interface {
	EvalAwait(ctx context.Context, js string, out any) error
}

// Outcome is the tagged result GetAudioFingerprint returns: either the
// KnownForSuspending sentinel, or a non-nil Producer.
type Outcome struct {
	KnownForSuspending bool
	Producer           *Producer
}

// GetAudioFingerprint decides, from env alone, whether to short-circuit to
// KnownForSuspending or hand back a fresh Producer. It takes no host: the
// Producer is given one only when Value is called.
func GetAudioFingerprint(env environment.Class) Outcome {
	if env.IsMobile && env.IsWebKit && env.MajorVersion > 0 && env.MajorVersion < suspendingMobileWebKitMajor {
		return Outcome{KnownForSuspending: true}
	}
	return Outcome{Producer: NewProducer()}
}

// Producer is a deferred, memoized computation: Value runs the audio
// pipeline against h on its first call only, and returns the cached
// (value, error) pair on every subsequent call without touching h again.
// The zero Producer is ready for use; NewProducer returns one.
type Producer struct {
	once      sync.Once
	evaluated bool
	value     float64
	err       error
}

// NewProducer returns an unevaluated Producer.
func NewProducer() *Producer {
	return &Producer{}
}

// Value resolves the producer against h the first time it is called, and
// returns the memoized result on every later call, satisfying
// `await p() === await p()` regardless of how many times Value is invoked
// or on which host — subsequent calls do not even look at h.
func (p *Producer) Value(ctx context.Context, h host) (float64, error) {
	p.once.Do(func() {
		defer func() { p.evaluated = true }()
		var res audioResult
		if err := h.EvalAwait(ctx, audioJS, &res); err != nil {
			p.err = fmt.Errorf("audio: render pipeline: %w", err)
			return
		}
		if !res.Supported {
			p.err = fmt.Errorf("audio: offline audio context unsupported on this host")
			return
		}
		p.value = res.Scalar
	})
	return p.value, p.err
}

// Evaluated reports whether Value has completed at least once (useful for
// tests asserting the pipeline runs exactly once).
func (p *Producer) Evaluated() bool {
	return p.evaluated
}

type audioResult struct {
	Supported bool    `json:"supported"`
	Scalar    float64 `json:"scalar"`
}

// Fixed rendering constants. Any implementation must match these exactly
// for cross-implementation scalar comparability; see the open question in
// the design notes about why stronger guarantees aren't possible.
const (
	renderDurationSeconds = 10
	oscillatorType        = "triangle"
	oscillatorFrequencyHz = 10000
	filterType            = "lowpass"
	filterFrequencyHz     = 1000
	filterQ               = 1
	tailWindowStart       = 4500
	tailWindowEnd         = 5000
)

// audioJS builds a short offline audio graph (triangle oscillator through
// a lowpass biquad filter) and reduces the rendered buffer to a single
// scalar by summing the absolute value of samples in a fixed tail window.
var audioJS = fmt.Sprintf(`
(function() {
  return (function() {
    try {
      var OfflineCtx = window.OfflineAudioContext || window.webkitOfflineAudioContext;
      if (!OfflineCtx) {
        return Promise.resolve({ supported: false, scalar: 0 });
      }
      var ctx = new OfflineCtx(1, 44100 * %d, 44100);

      var oscillator = ctx.createOscillator();
      oscillator.type = %q;
      oscillator.frequency.value = %d;

      var filter = ctx.createBiquadFilter();
      filter.type = %q;
      filter.frequency.value = %d;
      filter.Q.value = %d;

      oscillator.connect(filter);
      filter.connect(ctx.destination);
      oscillator.start(0);

      return ctx.startRendering().then(function(buffer) {
        var channel = buffer.getChannelData(0);
        var sum = 0;
        var start = %d, end = %d;
        for (var i = start; i < end && i < channel.length; i++) {
          sum += Math.abs(channel[i]);
        }
        return { supported: true, scalar: sum };
      });
    } catch (e) {
      return Promise.resolve({ supported: false, scalar: 0 });
    }
  })();
})()
`, renderDurationSeconds, oscillatorType, oscillatorFrequencyHz, filterType, filterFrequencyHz, filterQ, tailWindowStart, tailWindowEnd)
