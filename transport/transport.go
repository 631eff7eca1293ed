package transport

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Default bounds applied to every request
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	defaultMaxIdleConns   = 50
)

// Options configures the shared HTTP client
type Options struct {
	// ConnectTimeout bounds dialing and the TLS handshake
	ConnectTimeout time.Duration
	// RequestTimeout bounds the whole request lifetime
	RequestTimeout time.Duration
	// TrustStorePath points at a PEM bundle or a PKCS#12 file. Empty means platform roots.
	TrustStorePath string
	// TrustStorePassword unlocks a PKCS#12 trust store
	TrustStorePassword string
	// MaxIdleConns caps pooled keep-alive connections per host
	MaxIdleConns int
}

// New builds the process-wide HTTP client. Trust store problems never fail
// construction; they are logged and the platform roots are used instead.
func New(opts Options, logger zerolog.Logger) *http.Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = defaultMaxIdleConns
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    rootCAs(opts, logger),
	}

	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSClientConfig = tlsConfig
	transport.TLSHandshakeTimeout = opts.ConnectTimeout
	transport.ForceAttemptHTTP2 = false
	transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	transport.MaxIdleConns = opts.MaxIdleConns
	transport.MaxIdleConnsPerHost = opts.MaxIdleConns

	return &http.Client{
		Transport: transport,
		Timeout:   opts.RequestTimeout,
	}
}

// rootCAs returns nil, meaning platform roots, unless a trust store loads cleanly
func rootCAs(opts Options, logger zerolog.Logger) *x509.CertPool {
	if opts.TrustStorePath == "" {
		return nil
	}

	pool, err := LoadTrustStore(opts.TrustStorePath, opts.TrustStorePassword)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("path", opts.TrustStorePath).
			Msg("Failed to load trust store, using platform default roots")
		return nil
	}

	logger.Debug().Str("path", opts.TrustStorePath).Msg("Loaded custom trust store")
	return pool
}
