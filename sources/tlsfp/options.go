// Package tlsfp implements the TLS-fingerprint source: an async fetch
// against a caller-configured endpoint, performed over a uTLS-shaped
// connection so the outbound ClientHello itself carries a consistent,
// named browser fingerprint (the JA3/JA4 an observer on the wire would
// see). The only process-wide mutable state in this repository's core
// lives here — a single options record, set by Configure and read only
// from within Get.
package tlsfp

import (
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
)

// Options configures the process-wide TLS-fingerprint source. Configure
// replaces a zero HelloID or Timeout with its default; Endpoint has no
// default.
type Options struct {
	// Endpoint is the URL Get issues a GET request against. Must be set
	// before the first call to Get.
	Endpoint string

	// HelloID selects the uTLS ClientHello fingerprint the outbound
	// connection presents. Defaults to utls.HelloChrome_120.
	HelloID utls.ClientHelloID

	// Timeout bounds the whole fetch, including the TLS handshake.
	// Defaults to 3000ms.
	Timeout time.Duration
}

// DefaultOptions returns the configuration used before any Configure call.
func DefaultOptions() Options {
	return Options{
		HelloID: utls.HelloChrome_120,
		Timeout: 3000 * time.Millisecond,
	}
}

var (
	optionsMu sync.RWMutex
	options   = DefaultOptions()
)

// Configure overwrites the process-wide options record. Safe for
// concurrent use; a concurrent Get sees either the old or the new record
// in its entirety, never a mix of fields from both.
func Configure(opts Options) {
	if opts.HelloID == (utls.ClientHelloID{}) {
		opts.HelloID = utls.HelloChrome_120
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3000 * time.Millisecond
	}
	optionsMu.Lock()
	defer optionsMu.Unlock()
	options = opts
}

// currentOptions returns a copy of the live options record.
func currentOptions() Options {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return options
}
