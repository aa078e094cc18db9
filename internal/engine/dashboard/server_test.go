package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/arjunkade/browserentropy/internal/browserhost/chromium"
	"github.com/arjunkade/browserentropy/internal/browserhost/memhost"
	"github.com/arjunkade/browserentropy/internal/engine/config"
	"github.com/arjunkade/browserentropy/internal/engine/metrics"
	"github.com/arjunkade/browserentropy/internal/engine/session"
)

func TestHandleConfig_GetAndPost(t *testing.T) {
	cfg := config.DefaultConfig()
	s := New(metrics.NewMetrics(), nil, cfg)
	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/config")
	if err != nil {
		t.Fatalf("GET /api/config: %v", err)
	}
	defer resp.Body.Close()
	var got ConfigPayload
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.WorkerCount != cfg.WorkerCount {
		t.Fatalf("expected worker_count %d, got %d", cfg.WorkerCount, got.WorkerCount)
	}

	body := `{"worker_count": 8, "headless": false}`
	resp2, err := http.Post(srv.URL+"/api/config", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/config: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp2.StatusCode)
	}
	if cfg.WorkerCount != 8 || cfg.Headless {
		t.Fatalf("expected config to be updated in place, got worker_count=%d headless=%v", cfg.WorkerCount, cfg.Headless)
	}
}

func TestHandleSessions_ReportsFleetState(t *testing.T) {
	mgr := session.NewManager(chromium.Config{})
	mgr.AddSession(0, &session.BrowserSession{SlotID: 0, ID: uuid.New(), Host: memhost.New("ua")})

	s := New(metrics.NewMetrics(), mgr, config.DefaultConfig())
	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sessions")
	if err != nil {
		t.Fatalf("GET /api/sessions: %v", err)
	}
	defer resp.Body.Close()

	var statuses []SessionStatus
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 session, got %d", len(statuses))
	}
	if statuses[0].State == "" {
		t.Fatalf("expected a non-empty state")
	}
}

func TestMetricsSnapshotAndAddLog(t *testing.T) {
	m := metrics.NewMetrics()
	m.IncrementTotal()
	m.IncrementSuccess()

	s := New(m, nil, config.DefaultConfig())
	s.AddLog("INFO", "test entry")

	snap := s.snapshot()
	if snap.Total != 1 || snap.Success != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	s.logMu.Lock()
	n := len(s.logs)
	s.logMu.Unlock()
	if n != 1 {
		t.Fatalf("expected 1 buffered log entry, got %d", n)
	}
}
