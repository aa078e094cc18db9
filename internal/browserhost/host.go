// Package browserhost defines the interface through which every entropy
// source talks to "the host environment": a single browser tab (or a
// stand-in for one). The package pins the shape of that collaborator; it
// does not implement canvas rendering, audio processing, or ICE gathering
// itself — those live on the other side of the interface, in
// internal/browserhost/chromium (a real headless Chrome tab) or
// internal/browserhost/memhost and internal/browserhost/ottohost (fakes
// used by tests and by hosts with no Chrome available).
package browserhost

import "context"

// Host is one browser tab's worth of evaluation capability. Every source in
// sources/* is a pure function of a Host plus, where relevant, an
// environment.Class.
//
// Eval and EvalAwait never themselves classify a result as Unsupported or
// Unstable — that is the calling source's job, per the "no source may
// throw" invariant. They return an error only when the underlying
// transport (the CDP connection, or the fake) itself failed; a JS
// ReferenceError because the host has no RTCPeerConnection is reported as
// an error too, and sources treat any error from Host as "the API is
// absent here."
type Host interface {
	// Eval evaluates a synchronous JavaScript expression and decodes its
	// JSON-compatible result into out (which should be a pointer).
	Eval(ctx context.Context, js string, out any) error

	// EvalAwait evaluates an expression that yields a Promise, awaits it,
	// and decodes the resolved value into out.
	EvalAwait(ctx context.Context, js string, out any) error

	// UserAgent returns navigator.userAgent for this host.
	UserAgent(ctx context.Context) (string, error)

	// Close releases any resources (a real browser tab, a VM) held by the
	// host. Safe to call more than once.
	Close() error
}
