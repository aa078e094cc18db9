package tlsfp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// newFingerprintedClient builds an *http.Client whose outbound TLS
// handshake is shaped by helloID via uTLS, adapted from the teacher's
// UTLSDialer/NewChrome120H2Transport pair. Unlike the teacher's version
// this one is built fresh per Get call rather than kept per-session, since
// this source issues exactly one best-effort GET and then discards the
// client — there is no connection pool worth amortizing across sessions
// here.
func newFingerprintedClient(helloID utls.ClientHelloID, timeout time.Duration) *http.Client {
	transport := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, tlsCfg *tls.Config) (net.Conn, error) {
			return utlsDial(ctx, helloID, network, addr, tlsCfg)
		},
		MaxDecoderHeaderTableSize: chrome120HeaderTableSize,
		MaxEncoderHeaderTableSize: chrome120HeaderTableSize,
		MaxHeaderListSize:         chrome120MaxHeaderListSize,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Chrome 120 HTTP/2 SETTINGS values, carried from the teacher's
// client/h2_transport.go constants so the same SETTINGS-frame shape backs
// this fetch.
const (
	chrome120HeaderTableSize   uint32 = 65536
	chrome120MaxHeaderListSize uint32 = 262144
)

// utlsDial performs the raw dial plus uTLS handshake for one connection,
// the same sequence as the teacher's UTLSDialer closure, collapsed into a
// plain function since this package needs no per-call configuration
// beyond helloID.
func utlsDial(ctx context.Context, helloID utls.ClientHelloID, network, addr string, tlsCfg *tls.Config) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("tlsfp: parse addr %q: %w", addr, err)
	}
	sni := host
	if tlsCfg != nil && tlsCfg.ServerName != "" {
		sni = tlsCfg.ServerName
	}

	var d net.Dialer
	rawConn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("tlsfp: dial %s: %w", addr, err)
	}

	uConn := utls.UClient(rawConn, &utls.Config{ServerName: sni}, helloID)

	spec, specErr := utls.UTLSIdToSpec(helloID)
	if specErr == nil {
		if err := uConn.ApplyPreset(&spec); err != nil {
			_ = rawConn.Close()
			return nil, fmt.Errorf("tlsfp: apply client hello preset: %w", err)
		}
	}

	if err := uConn.HandshakeContext(ctx); err != nil {
		_ = uConn.Close()
		return nil, fmt.Errorf("tlsfp: TLS handshake with %s: %w", addr, err)
	}
	return uConn, nil
}
