// Package session provides BrowserSession, the fundamental unit of the
// demo collection fleet. Each session owns its own browser tab (a
// browserhost.Host) so sessions never interfere with one another, mirroring
// the teacher's one-HTTP-client-per-session isolation but for a tab instead
// of a transport.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arjunkade/browserentropy/internal/browserhost"
	"github.com/arjunkade/browserentropy/internal/browserhost/chromium"
	"github.com/arjunkade/browserentropy/internal/browserhost/ottohost"
	"github.com/arjunkade/browserentropy/sources/audio"
	"github.com/arjunkade/browserentropy/sources/battery"
	"github.com/arjunkade/browserentropy/sources/canvas"
	"github.com/arjunkade/browserentropy/sources/environment"
	"github.com/arjunkade/browserentropy/sources/network"
	"github.com/arjunkade/browserentropy/sources/screen"
	"github.com/arjunkade/browserentropy/sources/webrtc"
)

// Report aggregates the result of every entropy source for one session,
// collected against the same browser tab within the same page load.
type Report struct {
	SessionID   uuid.UUID
	Environment environment.Class
	Canvas      canvas.Fingerprint
	Audio       audio.Outcome
	AudioValue  float64 // resolved eagerly here for convenience; see AudioError
	AudioError  error
	Screen      screen.MediaQueries
	WebRTC      webrtc.IPs
	Battery     battery.Info
	Network     network.Info
}

// BrowserSession represents one independent collection session: a single
// browser tab plus the bookkeeping needed to schedule and report on it.
type BrowserSession struct {
	// SlotID is the key under which the session is stored in its
	// Manager's internal map.
	SlotID int

	// ID is the UUID surfaced to logs and the dashboard — the
	// human/operator-facing correlation identifier for this tab.
	ID uuid.UUID

	Host browserhost.Host

	CreatedAt time.Time

	mu           sync.RWMutex
	state        string
	lastActivity time.Time
}

// NewBrowserSession launches a Chrome tab per cfg and wraps it in a
// BrowserSession.
func NewBrowserSession(ctx context.Context, slotID int, cfg chromium.Config) (*BrowserSession, error) {
	h, err := chromium.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("session %d: launch browser host: %w", slotID, err)
	}
	return newBrowserSession(slotID, h.ID(), h), nil
}

// NewFallbackBrowserSession wraps an otto-VM host in a BrowserSession, for
// callers that could not launch a real Chrome tab (no binary on $PATH, a
// constrained container) and still want the media-query and environment
// sources exercised rather than a completely dead session.
func NewFallbackBrowserSession(slotID int, ua string, vp ottohost.Viewport) (*BrowserSession, error) {
	h, err := ottohost.New(ua, vp)
	if err != nil {
		return nil, fmt.Errorf("session %d: launch fallback host: %w", slotID, err)
	}
	return newBrowserSession(slotID, uuid.New(), h), nil
}

func newBrowserSession(slotID int, id uuid.UUID, h browserhost.Host) *BrowserSession {
	now := time.Now()
	return &BrowserSession{
		SlotID:       slotID,
		ID:           id,
		Host:         h,
		CreatedAt:    now,
		state:        "idle",
		lastActivity: now,
	}
}

// State returns the session's current lifecycle state ("idle", "active",
// "closed").
func (s *BrowserSession) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == "" {
		return "idle"
	}
	return s.state
}

// setState transitions the session's lifecycle state and bumps
// lastActivity.
func (s *BrowserSession) setState(state string) {
	s.mu.Lock()
	s.state = state
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Collect runs every in-scope entropy source against this session's host
// and returns the assembled Report. No source may throw, so Collect itself
// never returns an error for an individual source's failure — only a
// failure to classify the environment at all (a Host that cannot even
// answer navigator.userAgent) is surfaced as an error, since every other
// source depends on that classification to choose its strategy.
func (s *BrowserSession) Collect(ctx context.Context) (Report, error) {
	s.setState("active")
	defer s.setState("idle")

	env, err := environment.Classify(ctx, s.Host)
	if err != nil {
		return Report{}, fmt.Errorf("session %d: classify environment: %w", s.SlotID, err)
	}

	report := Report{
		SessionID:   s.ID,
		Environment: env,
		Canvas:      canvas.GetCanvasFingerprint(ctx, s.Host, env),
		Screen:      screen.GetScreenMediaQueries(ctx, s.Host),
		WebRTC:      webrtc.GetWebRTCIPs(ctx, s.Host),
		Battery:     battery.GetBatteryInfo(ctx, s.Host),
		Network:     network.GetNetworkInformation(ctx, s.Host),
	}

	report.Audio = audio.GetAudioFingerprint(env)
	if !report.Audio.KnownForSuspending && report.Audio.Producer != nil {
		report.AudioValue, report.AudioError = report.Audio.Producer.Value(ctx, s.Host)
	}

	return report, nil
}

// Close tears down the underlying browser tab. After Close returns the
// session must not be used.
func (s *BrowserSession) Close() error {
	s.setState("closed")
	return s.Host.Close()
}
