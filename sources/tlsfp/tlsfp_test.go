package tlsfp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	utls "github.com/refraction-networking/utls"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.HelloID != utls.HelloChrome_120 {
		t.Fatalf("expected default HelloID Chrome_120, got %v", opts.HelloID)
	}
	if opts.Timeout != 3000*time.Millisecond {
		t.Fatalf("expected default timeout 3000ms, got %v", opts.Timeout)
	}
}

func TestConfigure_FillsInZeroFieldsWithDefaults(t *testing.T) {
	t.Cleanup(func() { Configure(DefaultOptions()) })

	Configure(Options{Endpoint: "https://example.test/fp"})
	got := currentOptions()

	if got.Endpoint != "https://example.test/fp" {
		t.Fatalf("expected endpoint to be preserved, got %q", got.Endpoint)
	}
	if got.HelloID != utls.HelloChrome_120 {
		t.Fatalf("expected zero HelloID to default to Chrome_120, got %v", got.HelloID)
	}
	if got.Timeout != 3000*time.Millisecond {
		t.Fatalf("expected zero timeout to default to 3000ms, got %v", got.Timeout)
	}
}

func TestConfigure_OverwritesPreviousRecordEntirely(t *testing.T) {
	t.Cleanup(func() { Configure(DefaultOptions()) })

	Configure(Options{Endpoint: "https://first.test", Timeout: 1 * time.Second})
	Configure(Options{Endpoint: "https://second.test", Timeout: 2 * time.Second})

	got := currentOptions()
	if got.Endpoint != "https://second.test" || got.Timeout != 2*time.Second {
		t.Fatalf("expected second Configure call to fully replace the record, got %+v", got)
	}
}

func TestGet_NoEndpointConfiguredNeverErrors(t *testing.T) {
	t.Cleanup(func() { Configure(DefaultOptions()) })
	Configure(Options{})

	fp, err := Get(context.Background())
	if err != nil {
		t.Fatalf("Get must never return an error, got %v", err)
	}
	if fp.Success {
		t.Fatal("expected Success=false with no endpoint configured")
	}
}

func TestGet_PlainHTTPEndpointDowngradesToFailureRecord(t *testing.T) {
	// The http2.Transport this source is built on only speaks h2 over TLS;
	// pointing it at a plain-HTTP test server exercises the "transient I/O
	// error downgrades to a structured record" failure path without
	// needing a trusted certificate.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { Configure(DefaultOptions()) })

	Configure(Options{Endpoint: ts.URL, Timeout: 2 * time.Second})

	fp, err := Get(context.Background())
	if err != nil {
		t.Fatalf("Get must never return an error, got %v", err)
	}
	if fp.Success {
		t.Fatal("expected Success=false against a non-TLS endpoint")
	}
	if fp.Error == "" {
		t.Fatal("expected a non-empty Error message")
	}
}

func TestExtractField_PrefersFirstPresentAlias(t *testing.T) {
	raw := map[string]json.RawMessage{
		"ja3Hash": json.RawMessage(`"second-alias"`),
		"ja3":     json.RawMessage(`"third-alias"`),
	}
	// ja3_hash is absent, so the union should fall through to ja3Hash
	// before reaching the bare ja3 alias.
	if got := extractField(raw, "ja3Hash"); got != "second-alias" {
		t.Fatalf("expected second-alias, got %q", got)
	}
}

func TestExtractField_FallsBackThroughAllAliases(t *testing.T) {
	raw := map[string]json.RawMessage{
		"ja3": json.RawMessage(`"bare-ja3"`),
	}
	if got := extractField(raw, "ja3Hash"); got != "bare-ja3" {
		t.Fatalf("expected fallback to bare ja3 alias, got %q", got)
	}
}

func TestExtractField_MissingReturnsEmptyString(t *testing.T) {
	raw := map[string]json.RawMessage{}
	if got := extractField(raw, "ja4"); got != "" {
		t.Fatalf("expected empty string for missing field, got %q", got)
	}
}

func TestExtractField_WrongTypeReturnsEmptyString(t *testing.T) {
	raw := map[string]json.RawMessage{
		"ja4": json.RawMessage(`12345`),
	}
	if got := extractField(raw, "ja4"); got != "" {
		t.Fatalf("expected empty string when field is not a JSON string, got %q", got)
	}
}
