package tlsfp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Fingerprint is the frozen result of one Get call. Exactly one of
// Success's associated fields is meaningful: when Success is false, Error
// explains why; the JA3/JA4 fields carry whatever aliases the endpoint's
// JSON response happened to use, per the permissive field-name union.
type Fingerprint struct {
	Success bool
	Error   string

	JA3Hash string
	JA3Full string
	JA4     string
}

// Get performs a GET against the configured endpoint with credentials
// omitted and caching disabled, over a connection shaped by the
// configured uTLS HelloID, and decodes whichever JA3/JA4 field aliases the
// response happens to use. Never returns an error itself: timeouts,
// non-2xx responses, and malformed bodies all downgrade into
// Fingerprint{Success: false, Error: ...}.
func Get(ctx context.Context) (Fingerprint, error) {
	opts := currentOptions()
	if opts.Endpoint == "" {
		return Fingerprint{Success: false, Error: "tlsfp: no endpoint configured"}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, opts.Endpoint, nil)
	if err != nil {
		return Fingerprint{Success: false, Error: fmt.Sprintf("build request: %v", err)}, nil
	}
	req.Header.Set("Cache-Control", "no-store")

	httpClient := newFingerprintedClient(opts.HelloID, opts.Timeout)
	resp, err := httpClient.Do(req)
	if err != nil {
		return Fingerprint{Success: false, Error: fmt.Sprintf("fetch: %v", err)}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Fingerprint{Success: false, Error: fmt.Sprintf("non-2xx status: %d", resp.StatusCode)}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fingerprint{Success: false, Error: fmt.Sprintf("read body: %v", err)}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Fingerprint{Success: false, Error: fmt.Sprintf("decode json: %v", err)}, nil
	}

	return Fingerprint{
		Success: true,
		JA3Hash: extractField(raw, "ja3Hash"),
		JA3Full: extractField(raw, "ja3Full"),
		JA4:     extractField(raw, "ja4"),
	}, nil
}
