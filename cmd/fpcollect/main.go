// fpcollect drives a fleet of headless Chrome tabs through the entropy
// sources in sources/* on a repeating interval. Each session's result is
// logged at debug level; aggregate job metrics go to the console and to a
// live dashboard.
//
// Startup sequence:
//  1. Initialise the logger.
//  2. Load configuration (JSON file or defaults).
//  3. Configure the TLS-fingerprint source's process-wide options.
//  4. Load the proxy list (optional) and an optional YAML fleet profile
//     manifest.
//  5. Initialise metrics and the session manager, and start the dashboard
//     server.
//  6. Launch one Chrome tab per fleet profile (or a single default tab),
//     falling back to the otto VM host when Chrome cannot be launched.
//  7. Start the worker pool, then the scheduler, which runs a full
//     Collect() against every tab on a fixed interval.
//  8. Block until OS signals SIGINT or SIGTERM, then perform a clean
//     shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arjunkade/browserentropy/internal/browserhost/chromium"
	"github.com/arjunkade/browserentropy/internal/browserhost/ottohost"
	"github.com/arjunkade/browserentropy/internal/engine/config"
	"github.com/arjunkade/browserentropy/internal/engine/dashboard"
	"github.com/arjunkade/browserentropy/internal/engine/logger"
	"github.com/arjunkade/browserentropy/internal/engine/metrics"
	"github.com/arjunkade/browserentropy/internal/engine/proxy"
	"github.com/arjunkade/browserentropy/internal/engine/scheduler"
	"github.com/arjunkade/browserentropy/internal/engine/session"
	"github.com/arjunkade/browserentropy/internal/engine/worker"
	"github.com/arjunkade/browserentropy/sources/tlsfp"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file (optional; uses defaults if omitted)")
	profilesFile := flag.String("profiles", "", "Path to a YAML fleet profile manifest (optional; one default tab if omitted)")
	dashboardAddr := flag.String("dashboard", ":8080", "Address for the real-time dashboard HTTP server (e.g. :8080)")
	interval := flag.Duration("interval", 30*time.Second, "How often each session re-runs the full collection pass")
	flag.Parse()

	log := logger.New(logger.LevelInfo)
	log.Info("fpcollect starting up")

	var cfg *config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.LoadConfig(*configFile)
		if err != nil {
			log.Errorf("failed to load config from %q: %v", *configFile, err)
			os.Exit(1)
		}
		log.Infof("configuration loaded from %q", *configFile)
	} else {
		cfg = config.DefaultConfig()
		log.Info("using default configuration")
	}
	if *dashboardAddr != "" {
		cfg.DashboardAddr = *dashboardAddr
	}

	if cfg.TLSFingerprintEndpoint != "" {
		opts := tlsfp.DefaultOptions()
		opts.Endpoint = cfg.TLSFingerprintEndpoint
		tlsfp.Configure(opts)
		log.Infof("tls fingerprint endpoint configured: %s", cfg.TLSFingerprintEndpoint)
	}

	pm := &proxy.Manager{}
	if cfg.ProxyFile != "" {
		if err := pm.LoadProxies(cfg.ProxyFile); err != nil {
			log.Errorf("failed to load proxies from %q: %v", cfg.ProxyFile, err)
			os.Exit(1)
		}
		log.Infof("loaded %d proxies from %q", pm.Count(), cfg.ProxyFile)
	} else {
		log.Info("no proxy file configured; tabs will connect directly")
	}

	var profiles []config.Profile
	if *profilesFile != "" {
		var err error
		profiles, err = config.LoadProfiles(*profilesFile)
		if err != nil {
			log.Errorf("failed to load fleet profiles from %q: %v", *profilesFile, err)
			os.Exit(1)
		}
	}
	if len(profiles) == 0 {
		profiles = []config.Profile{{Name: "default", Width: 1280, Height: 800}}
	}

	m := metrics.NewMetrics()
	baseCfg := chromium.Config{
		ChromePath:      cfg.ChromePath,
		Headless:        cfg.Headless,
		NavigateTimeout: cfg.NavigateTimeout,
	}
	mgr := session.NewManager(baseCfg)

	dash := dashboard.New(m, mgr, cfg)
	if cfg.DashboardAddr != "" {
		go func() {
			if err := dash.ListenAndServe(cfg.DashboardAddr, log); err != nil {
				log.Errorf("dashboard server error: %v", err)
			}
		}()
		log.Infof("dashboard server starting on %s", cfg.DashboardAddr)
	}

	launchCtx, cancelLaunch := context.WithTimeout(context.Background(), 2*time.Minute)
	for i, p := range profiles {
		tabCfg := baseCfg
		tabCfg.UserAgent = p.UA
		tabCfg.WindowWidth = p.Width
		tabCfg.WindowHeight = p.Height
		if pm.Count() > 0 {
			tabCfg.ProxyServer = pm.GetNextProxy()
		}
		sess, err := session.NewBrowserSession(launchCtx, i, tabCfg)
		if err != nil {
			log.Errorf("failed to launch tab for profile %q: %v; falling back to the otto VM host", p.Name, err)
			vp := ottohost.Viewport{Width: p.Width, Height: p.Height, PixelRatio: 1, ColorDepth: 24}
			sess, err = session.NewFallbackBrowserSession(i, p.UA, vp)
			if err != nil {
				log.Errorf("failed to launch fallback host for profile %q: %v", p.Name, err)
				continue
			}
		}
		mgr.AddSession(i, sess)
		log.Infof("launched tab %d (%q, %dx%d) as session %s", i, p.Name, p.Width, p.Height, sess.ID)
	}
	cancelLaunch()
	if mgr.Count() == 0 {
		log.Error("no browser tabs could be launched; exiting")
		os.Exit(1)
	}

	workerCount := cfg.WorkerCount
	if workerCount < 1 {
		workerCount = mgr.Count()
	}
	wp := worker.NewPool(workerCount)
	wp.Start()
	log.Infof("worker pool started with %d workers", workerCount)

	sc := scheduler.New(mgr, wp, log, m)
	jobFn := func(ctx context.Context, s *session.BrowserSession) {
		report, err := s.Collect(ctx)
		if err != nil {
			log.Debugf("session %s collection error: %v", s.ID, err)
			return
		}
		log.Debugf("session %s: webkit=%v mobile=%v audio=%.6f local-ipv4=%v",
			s.ID, report.Environment.IsWebKit, report.Environment.IsMobile, report.AudioValue, report.WebRTC.LocalIPv4)
	}
	sc.Start(*interval, jobFn)
	log.Info("scheduler started; sessions are now active")

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			total, success, failed := m.Snapshot()
			cps := m.CollectionsPerSecond()
			log.Infof("metrics - total: %d | success: %d | failed: %d | collections/s: %.2f | sessions: %d",
				total, success, failed, cps, mgr.Count())
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	fmt.Println()
	log.Infof("received signal %s; shutting down", sig)
	dash.AddLog("INFO", fmt.Sprintf("received signal %s; shutting down", sig))

	sc.Stop()
	wp.Stop()
	if err := mgr.StopAll(); err != nil {
		log.Errorf("error stopping sessions: %v", err)
	}

	total, success, failed := m.Snapshot()
	log.Infof("final metrics - total: %d | success: %d | failed: %d | collections/s: %.2f",
		total, success, failed, m.CollectionsPerSecond())
	log.Info("fpcollect shut down cleanly")
}
