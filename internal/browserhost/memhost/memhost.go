// Package memhost provides an in-process fake browserhost.Host for unit
// tests. It answers a fixed table of JS expression -> JSON result pairs
// instead of driving a real browser, so the stabilization algorithms in
// sources/* (the binary search, the producer memoization, the denoise
// branch selection) can be tested deterministically and without a Chrome
// binary on the test machine.
package memhost

import (
	"context"
	"encoding/json"
	"fmt"
)

// Host is a scripted browserhost.Host. Responses are matched by exact
// string equality against the JS passed to Eval/EvalAwait; callers
// typically build the table once per test case from the same JS-building
// helpers the production sources use, so the keys stay in sync.
type Host struct {
	// Responses maps a JS expression to its pre-baked JSON-encoded result.
	Responses map[string]string

	// Errors maps a JS expression to an error to return instead of a
	// response, simulating an absent API or a thrown exception.
	Errors map[string]error

	// UA is the value returned by UserAgent.
	UA string

	// Calls records every JS expression evaluated, in order, so tests can
	// assert on call count (e.g. the audio producer must not re-evaluate
	// its pipeline on the second Value() call).
	Calls []string

	closed bool
}

// New creates an empty Host ready to have Responses/Errors populated.
func New(ua string) *Host {
	return &Host{
		Responses: make(map[string]string),
		Errors:    make(map[string]error),
		UA:        ua,
	}
}

// WithResponse registers js -> value (marshaled to JSON) and returns the
// host for chaining.
func (h *Host) WithResponse(js string, value any) *Host {
	b, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("memhost: marshal response for %q: %v", js, err))
	}
	h.Responses[js] = string(b)
	return h
}

// WithError registers js -> err and returns the host for chaining.
func (h *Host) WithError(js string, err error) *Host {
	h.Errors[js] = err
	return h
}

func (h *Host) Eval(ctx context.Context, js string, out any) error {
	return h.lookup(js, out)
}

func (h *Host) EvalAwait(ctx context.Context, js string, out any) error {
	return h.lookup(js, out)
}

func (h *Host) lookup(js string, out any) error {
	h.Calls = append(h.Calls, js)
	if err, ok := h.Errors[js]; ok {
		return err
	}
	raw, ok := h.Responses[js]
	if !ok {
		return fmt.Errorf("memhost: no scripted response for %q", js)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

func (h *Host) UserAgent(ctx context.Context) (string, error) {
	return h.UA, nil
}

func (h *Host) Close() error {
	h.closed = true
	return nil
}

// Closed reports whether Close has been called, for test assertions.
func (h *Host) Closed() bool { return h.closed }
