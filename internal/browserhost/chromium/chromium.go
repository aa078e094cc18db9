// Package chromium implements browserhost.Host by driving a single real
// headless Chrome tab over the Chrome DevTools Protocol, using chromedp. It
// is the host implementation meant for production use: every anti-
// fingerprinting behaviour this repository defeats (Safari's clamped canvas
// noise, Chrome's audio-graph jitter, the refusal to let JS read
// window.screen honestly) only exists in a real browser, so only a real
// browser can exercise it.
package chromium

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
)

// Config groups the tunable parameters for a Host's underlying Chrome
// process. Mirrors the allocator options a headless scraper would set, minus
// any stealth/noise-injection flags — this package reads fingerprints, it
// does not forge them.
type Config struct {
	// ChromePath is the path to the Chrome/Chromium binary. Empty lets
	// chromedp locate one on $PATH.
	ChromePath string

	// Headless selects Chrome's "new" headless mode when true.
	Headless bool

	// WindowWidth/WindowHeight size the initial viewport; the screen
	// prober's binary search measures whatever the browser reports for
	// this window, so non-zero values make results reproducible across
	// runs of the demo binary.
	WindowWidth, WindowHeight int

	// UserAgent, if non-empty, overrides Chrome's default UA string —
	// useful for exercising the environment oracle against a specific
	// engine/version combination without installing that browser.
	UserAgent string

	// ProxyServer, if non-empty, is passed to Chrome's --proxy-server
	// flag so this tab's traffic (and therefore its WebRTC STUN
	// round-trip and TLS-fetch source) originates from a distinct
	// network path — the same role a proxy pool plays for a fleet of
	// HTTP sessions.
	ProxyServer string

	// NavigateTimeout bounds how long Host construction waits for the
	// blank tab to finish an initial navigation.
	NavigateTimeout time.Duration
}

// Host is a browserhost.Host backed by one chromedp tab.
type Host struct {
	id         uuid.UUID
	allocCtx   context.Context
	allocCancl context.CancelFunc
	taskCtx    context.Context
	taskCancel context.CancelFunc
}

// New launches a Chrome process (or attaches to the allocator implied by
// cfg) and opens one blank tab. The returned Host owns that tab; call Close
// to tear it down.
func New(ctx context.Context, cfg Config) (*Host, error) {
	opts := allocatorOpts(cfg)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	navTimeout := cfg.NavigateTimeout
	if navTimeout <= 0 {
		navTimeout = 10 * time.Second
	}
	runCtx, cancel := context.WithTimeout(taskCtx, navTimeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate("about:blank")); err != nil {
		taskCancel()
		allocCancel()
		return nil, fmt.Errorf("chromium: open blank tab: %w", err)
	}

	return &Host{
		id:         uuid.New(),
		allocCtx:   allocCtx,
		allocCancl: allocCancel,
		taskCtx:    taskCtx,
		taskCancel: taskCancel,
	}, nil
}

// ID is the session-correlation identifier surfaced to logs and the
// dashboard; it has no bearing on the fingerprint algorithms themselves.
func (h *Host) ID() uuid.UUID { return h.id }

// Eval evaluates a synchronous JS expression in the tab and decodes its
// value into out.
func (h *Host) Eval(ctx context.Context, js string, out any) error {
	return h.run(ctx, js, out, false)
}

// EvalAwait evaluates a JS expression that yields a Promise, awaits it, and
// decodes the resolved value into out.
func (h *Host) EvalAwait(ctx context.Context, js string, out any) error {
	return h.run(ctx, js, out, true)
}

// run evaluates js against the tab, bounding the call by both the caller's
// ctx and the Host's own lifetime (h.taskCtx). chromedp's context carries
// the browser/target it is bound to, so the caller's deadline cannot simply
// replace h.taskCtx outright — instead runCtx derives from h.taskCtx and a
// background goroutine cancels it early if ctx finishes first, so a caller
// deadline (e.g. webrtc's gather deadline, tlsfp's request timeout) actually
// aborts the in-flight CDP call rather than being silently ignored.
func (h *Host) run(ctx context.Context, js string, out any, await bool) error {
	runCtx, cancel := context.WithCancel(h.taskCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var deadlineCancel context.CancelFunc
		runCtx, deadlineCancel = context.WithDeadline(runCtx, deadline)
		defer deadlineCancel()
	}

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-watchDone:
		}
	}()

	var raw []byte
	action := chromedp.Evaluate(js, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		p = p.WithReturnByValue(true)
		if await {
			p = p.WithAwaitPromise(true)
		}
		return p
	})
	if err := chromedp.Run(runCtx, action); err != nil {
		return fmt.Errorf("chromium: eval: %w", err)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("chromium: decode eval result: %w", err)
	}
	return nil
}

// UserAgent returns navigator.userAgent for the tab.
func (h *Host) UserAgent(ctx context.Context) (string, error) {
	var ua string
	if err := h.Eval(ctx, "navigator.userAgent", &ua); err != nil {
		return "", err
	}
	return ua, nil
}

// Close tears down the tab and its allocator. Safe to call more than once.
func (h *Host) Close() error {
	if h.taskCancel != nil {
		h.taskCancel()
		h.taskCancel = nil
	}
	if h.allocCancl != nil {
		h.allocCancl()
		h.allocCancl = nil
	}
	return nil
}

// allocatorOpts builds the chromedp exec-allocator options implied by cfg.
func allocatorOpts(cfg Config) []chromedp.ExecAllocatorOption {
	headlessVal := ""
	if cfg.Headless {
		headlessVal = "new"
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", headlessVal),
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ProxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyServer))
	}
	return opts
}
