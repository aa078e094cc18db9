// Package config provides configuration management for the demo
// collection fleet: a JSON-loadable Config struct plus an optional YAML
// profile manifest for operators who want to describe several
// fleet-member viewport/UA combinations without editing JSON by hand.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the ambient, operator-facing knobs for the demo binary.
// The core sources/* packages never read this struct directly — every
// tunable that affects the stabilization algorithms themselves (the
// audio constants, the search bracket width, the ICE deadline) is a
// package-level constant, not a config field, per the "no process-wide
// state except tlsfp options" invariant.
type Config struct {
	// ChromePath is the Chrome/Chromium binary path passed to the
	// chromium host. Empty lets chromedp locate one on $PATH.
	ChromePath string `json:"chrome_path"`

	// Headless selects Chrome's headless mode.
	Headless bool `json:"headless"`

	// WorkerCount bounds how many browser tabs run collection jobs
	// concurrently.
	WorkerCount int `json:"worker_count"`

	// JobQueueSize is loaded and reported by the dashboard. The worker
	// pool does not read it: its job channel always buffers WorkerCount*4
	// jobs.
	JobQueueSize int `json:"job_queue_size"`

	// NavigateTimeout bounds how long a new Host waits for its initial
	// blank-tab navigation.
	NavigateTimeout time.Duration `json:"navigate_timeout"`

	// DashboardAddr is the listen address for the metrics/log dashboard.
	// Empty disables the dashboard.
	DashboardAddr string `json:"dashboard_addr"`

	// TLSFingerprintEndpoint, if non-empty, is passed to
	// tlsfp.Configure's Options.Endpoint at startup.
	TLSFingerprintEndpoint string `json:"tls_fingerprint_endpoint"`

	// ProxyFile is the path to a newline-delimited file of proxy
	// addresses used by the proxy-rotation pool when launching Chrome
	// instances that should each appear to originate from a different
	// network path.
	ProxyFile string `json:"proxy_file"`
}

// LoadConfig reads a JSON file at filename and deserialises it into a
// Config.
func LoadConfig(filename string) (*Config, error) {
	f, err := os.Open(filename) // #nosec G304 -- filename is caller-provided config path
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", filename, err)
	}
	defer f.Close()

	var cfg Config
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %q: %w", filename, err)
	}
	return &cfg, nil
}

// DefaultConfig returns a *Config pre-filled with sensible defaults for a
// single operator running the demo binary on a workstation.
func DefaultConfig() *Config {
	return &Config{
		ChromePath:      "",
		Headless:        true,
		WorkerCount:     4,
		JobQueueSize:    64,
		NavigateTimeout: 10 * time.Second,
		DashboardAddr:   "",
	}
}

// Profile describes one fleet member's browser shape for a multi-tab
// collection run: the UA string to request and the viewport to open
// Chrome at.
type Profile struct {
	Name   string `yaml:"name"`
	UA     string `yaml:"user_agent"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// ProfileManifest is the top-level shape of a YAML fleet manifest.
type ProfileManifest struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads a YAML fleet manifest listing the browser profiles a
// multi-tab collection run should probe.
func LoadProfiles(filename string) ([]Profile, error) {
	data, err := os.ReadFile(filename) // #nosec G304 -- filename is caller-provided config path
	if err != nil {
		return nil, fmt.Errorf("config: read profiles %q: %w", filename, err)
	}
	var manifest ProfileManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("config: decode profiles %q: %w", filename, err)
	}
	return manifest.Profiles, nil
}
