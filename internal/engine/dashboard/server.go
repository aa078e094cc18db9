// Package dashboard exposes a small real-time HTTP dashboard over the
// collection fleet: live metrics and logs over SSE, the active config, and
// a snapshot of every browser session's state. Adapted from the teacher's
// Command Center backend, with "HTTP session fleet" replaced by "browser
// tab fleet" throughout.
package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/arjunkade/browserentropy/internal/engine/config"
	"github.com/arjunkade/browserentropy/internal/engine/logger"
	"github.com/arjunkade/browserentropy/internal/engine/metrics"
	"github.com/arjunkade/browserentropy/internal/engine/session"
)

// MetricsSnapshot is the JSON payload pushed to dashboard clients every
// tick.
type MetricsSnapshot struct {
	Timestamp int64   `json:"timestamp"`
	Total     uint64  `json:"total"`
	Success   uint64  `json:"success"`
	Failed    uint64  `json:"failed"`
	CPS       float64 `json:"collections_per_second"`
	Sessions  int     `json:"sessions"`
}

// SessionStatus is one browser tab's state as rendered on the dashboard.
type SessionStatus struct {
	Slot  int    `json:"slot"`
	ID    string `json:"id"`
	State string `json:"state"`
}

// LogEntry is a structured log line streamed to the dashboard.
type LogEntry struct {
	Timestamp int64  `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// ConfigPayload is the subset of Config fields readable from the
// dashboard. A POST writes Headless, WorkerCount and
// NavigateTimeoutSeconds; JobQueueSize is read-only.
type ConfigPayload struct {
	Headless               bool `json:"headless"`
	WorkerCount            int  `json:"worker_count"`
	NavigateTimeoutSeconds int  `json:"navigate_timeout_seconds"`
	JobQueueSize           int  `json:"job_queue_size"`
}

const maxLogs = 10_000
const maxProxyUploadSize = 10 << 20 // 10 MiB

// Server provides the HTTP endpoints the dashboard frontend consumes.
type Server struct {
	metrics *metrics.Metrics
	manager *session.Manager
	cfg     *config.Config
	cfgMu   sync.RWMutex

	logMu    sync.Mutex
	logs     []LogEntry
	logSubs  map[chan LogEntry]struct{}
	logSubMu sync.Mutex

	metricsSubs  map[chan MetricsSnapshot]struct{}
	metricsSubMu sync.Mutex

	mux *http.ServeMux
}

// New creates a dashboard Server backed by m, the fleet manager, and cfg.
// manager may be nil before the fleet has been launched; /api/sessions then
// reports an empty list.
func New(m *metrics.Metrics, manager *session.Manager, cfg *config.Config) *Server {
	s := &Server{
		metrics:     m,
		manager:     manager,
		cfg:         cfg,
		logs:        make([]LogEntry, 0, 512),
		logSubs:     make(map[chan LogEntry]struct{}),
		metricsSubs: make(map[chan MetricsSnapshot]struct{}),
		mux:         http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// SetManager attaches the fleet manager once sessions have been launched.
func (s *Server) SetManager(manager *session.Manager) {
	s.cfgMu.Lock()
	s.manager = manager
	s.cfgMu.Unlock()
}

// AddLog appends a structured log entry to the ring buffer and fans it out
// to every active /api/logs/stream subscriber. Intended to be wired as a
// sink alongside logger.Logger's own output, not a replacement for it.
func (s *Server) AddLog(level, message string) {
	entry := LogEntry{Timestamp: time.Now().UnixMilli(), Level: level, Message: message}

	s.logMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[len(s.logs)-maxLogs:]
	}
	s.logMu.Unlock()

	s.logSubMu.Lock()
	for ch := range s.logSubs {
		select {
		case ch <- entry:
		default:
		}
	}
	s.logSubMu.Unlock()
}

// ListenAndServe starts the HTTP server on addr and blocks until the
// process exits or the server errors. Also starts the background goroutine
// ticking metrics to SSE subscribers.
func (s *Server) ListenAndServe(addr string, log *logger.Logger) error {
	go s.metricsTicker()
	if log != nil {
		log.Infof("dashboard: listening on %s", addr)
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams are unbounded
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/metrics/stream", s.withCORS(s.handleMetricsStream))
	s.mux.HandleFunc("/api/logs/stream", s.withCORS(s.handleLogsStream))
	s.mux.HandleFunc("/api/config", s.withCORS(s.handleConfig))
	s.mux.HandleFunc("/api/sessions", s.withCORS(s.handleSessions))
	s.mux.HandleFunc("/api/proxy", s.withCORS(s.handleProxy))
}

func (s *Server) withCORS(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h(w, r)
	}
}

func (s *Server) metricsTicker() {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		snap := s.snapshot()
		s.metricsSubMu.Lock()
		for ch := range s.metricsSubs {
			select {
			case ch <- snap:
			default:
			}
		}
		s.metricsSubMu.Unlock()
	}
}

func (s *Server) snapshot() MetricsSnapshot {
	total, success, failed := s.metrics.Snapshot()
	n := 0
	s.cfgMu.RLock()
	if s.manager != nil {
		n = s.manager.Count()
	}
	s.cfgMu.RUnlock()
	return MetricsSnapshot{
		Timestamp: time.Now().UnixMilli(),
		Total:     total,
		Success:   success,
		Failed:    failed,
		CPS:       s.metrics.CollectionsPerSecond(),
		Sessions:  n,
	}
}

func (s *Server) handleMetricsStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan MetricsSnapshot, 16)
	s.metricsSubMu.Lock()
	s.metricsSubs[ch] = struct{}{}
	s.metricsSubMu.Unlock()
	defer func() {
		s.metricsSubMu.Lock()
		delete(s.metricsSubs, ch)
		s.metricsSubMu.Unlock()
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			if err := sseWrite(w, snap); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleLogsStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logMu.Lock()
	history := make([]LogEntry, len(s.logs))
	copy(history, s.logs)
	s.logMu.Unlock()
	for _, entry := range history {
		if err := sseWrite(w, entry); err != nil {
			return
		}
	}
	flusher.Flush()

	ch := make(chan LogEntry, 256)
	s.logSubMu.Lock()
	s.logSubs[ch] = struct{}{}
	s.logSubMu.Unlock()
	defer func() {
		s.logSubMu.Lock()
		delete(s.logSubs, ch)
		s.logSubMu.Unlock()
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-ch:
			if err := sseWrite(w, entry); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func sseWrite(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.cfgMu.RLock()
		cfg := *s.cfg
		s.cfgMu.RUnlock()
		payload := ConfigPayload{
			Headless:               cfg.Headless,
			WorkerCount:            cfg.WorkerCount,
			NavigateTimeoutSeconds: int(cfg.NavigateTimeout / time.Second),
			JobQueueSize:           cfg.JobQueueSize,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)

	case http.MethodPost:
		var payload ConfigPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		s.cfgMu.Lock()
		if payload.WorkerCount > 0 && payload.WorkerCount <= 256 {
			s.cfg.WorkerCount = payload.WorkerCount
		}
		if payload.NavigateTimeoutSeconds > 0 {
			s.cfg.NavigateTimeout = time.Duration(payload.NavigateTimeoutSeconds) * time.Second
		}
		s.cfg.Headless = payload.Headless
		s.cfgMu.Unlock()
		s.AddLog("INFO", fmt.Sprintf("config updated via dashboard: workers=%d headless=%v",
			payload.WorkerCount, payload.Headless))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true}`)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSessions returns the current state of every browser tab in the
// fleet. Takes the place of the teacher's cluster node matrix: there is no
// cluster here, only the tabs this process itself drives.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	s.cfgMu.RLock()
	manager := s.manager
	s.cfgMu.RUnlock()

	statuses := make([]SessionStatus, 0)
	if manager != nil {
		for _, slot := range manager.Slots() {
			sess, ok := manager.GetSession(slot)
			if !ok {
				continue
			}
			statuses = append(statuses, SessionStatus{
				Slot:  slot,
				ID:    sess.ID.String(),
				State: sess.State(),
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statuses)
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProxyUploadSize)
	if err := r.ParseMultipartForm(maxProxyUploadSize); err != nil {
		http.Error(w, "request too large or not multipart", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("proxies")
	if err != nil {
		http.Error(w, "missing 'proxies' field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	dest, err := os.CreateTemp("", "proxies-*.txt")
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	defer dest.Close()

	n, err := io.Copy(dest, file)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	s.cfgMu.Lock()
	s.cfg.ProxyFile = dest.Name()
	s.cfgMu.Unlock()

	s.AddLog("INFO", fmt.Sprintf("proxy list uploaded: file=%q size=%d bytes original=%q",
		dest.Name(), n, header.Filename))

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"ok":true,"path":%q,"bytes":%d}`, dest.Name(), n)
}
