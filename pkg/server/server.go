// Package server implements the proxy's HTTP serving loop: CORS headers on
// every response, a TLS gate, and an exact-match route table over "/" (the
// Web3 JSON-RPC endpoint) and "/quote" (enclave attestation, enabled only
// when Config.QuoteProvider is set).
package server

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/sapphire-relay/encrypting-proxy/internal/constants"
	"github.com/sapphire-relay/encrypting-proxy/pkg/arena"
	"github.com/sapphire-relay/encrypting-proxy/pkg/handler"
	"github.com/sapphire-relay/encrypting-proxy/pkg/metrics"
)

const (
	routeWeb3  = "/"
	routeQuote = "/quote"

	challengeParam = "challenge"
)

// QuoteProvider produces a remote-attestation quote for a 32-byte
// client-supplied challenge. Servers configured without enclave support
// leave this nil, which disables the /quote route entirely.
type QuoteProvider func(challenge [32]byte) ([]byte, error)

// Config configures a Server. Only ListenAddr and Handler are required;
// everything else has a documented default.
type Config struct {
	// ListenAddr is the "host:port" the server binds to.
	ListenAddr string

	// Handler is the request handler for the Web3 JSON-RPC endpoint.
	Handler *handler.Handler

	// RequireTLS rejects any non-TLS connection with 421 Misdirected
	// Request. Set this when the server is not fronted by a terminating
	// load balancer.
	RequireTLS bool

	// QuoteProvider enables the GET /quote route when non-nil.
	QuoteProvider QuoteProvider

	// ReadHeaderTimeout, ReadTimeout, WriteTimeout, IdleTimeout tune the
	// underlying http.Server. Zero values fall back to DefaultConfig's.
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	Observer *metrics.RequestObserver
}

// DefaultConfig returns a Config with production-sensible HTTP timeouts.
func DefaultConfig(listenAddr string, h *handler.Handler) Config {
	return Config{
		ListenAddr:        listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Server is the proxy's HTTP front end.
type Server struct {
	cfg      Config
	pool     *arena.Pool
	observer *metrics.RequestObserver
	http     *http.Server
}

// New builds a Server from cfg. It does not start listening; call
// ListenAndServe (or ListenAndServeTLS, ListenAndServeWithTLSConfig) to do
// that.
func New(cfg Config) *Server {
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 120 * time.Second
	}
	observer := cfg.Observer
	if observer == nil {
		observer = metrics.NewRequestObserver(metrics.RequestObserverConfig{})
	}

	s := &Server{cfg: cfg, pool: arena.NewPool(), observer: observer}
	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

// ListenAndServe starts the server. It blocks until the server stops, the
// way http.Server.ListenAndServe does.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// ListenAndServeTLS starts the server with the given certificate/key pair.
func (s *Server) ListenAndServeTLS(certFile, keyFile string) error {
	return s.http.ListenAndServeTLS(certFile, keyFile)
}

// ListenAndServeWithTLSConfig starts the server with a pre-built tls.Config,
// the shape autocert.Manager.TLSConfig returns for ACME-acquired certificates.
func (s *Server) ListenAndServeWithTLSConfig(tlsCfg *tls.Config) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.http.Serve(tls.NewListener(ln, tlsCfg))
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// ServeHTTP implements http.Handler: CORS headers on every response, a TLS
// gate, then the exact-match route table.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST,OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "content-type")
	w.Header().Set("Access-Control-Max-Age", "86400")

	if s.cfg.RequireTLS && r.TLS == nil {
		w.WriteHeader(http.StatusMisdirectedRequest)
		return
	}

	switch r.URL.Path {
	case routeWeb3:
		s.serveWeb3(w, r)
	case routeQuote:
		s.serveQuote(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveWeb3(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ar := s.pool.Get()
	defer ar.Reset()

	ctx, end := s.observer.OnRequestStart(r.Context(), "")

	contentLength := r.ContentLength
	res := s.cfg.Handler.Handle(ctx, ar, contentLength, r.Body)
	end(res.Err != nil)

	w.Header().Set("Content-Type", "application/json")
	body := jsonRPCResponseBody(res)
	w.Write(body)
}

// jsonRPCResponseBody renders a handler.Result as a JSON-RPC 2.0 envelope.
func jsonRPCResponseBody(res *handler.Result) []byte {
	type envelope struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   *rpcErrorBody   `json:"error,omitempty"`
	}

	env := envelope{JSONRPC: "2.0", ID: res.ID, Result: res.Result}
	if res.Err != nil {
		env.Result = nil
		env.Error = &rpcErrorBody{Code: res.Err.Code, Message: res.Err.Message}
	}
	data, err := json.Marshal(env)
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}
	return data
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// serveQuote serves GET /quote?challenge=<32 base64url bytes without
// padding>, returning a remote-attestation quote over the challenge. It is
// a 404 when the server has no QuoteProvider configured (serve was started
// without --enclave).
func (s *Server) serveQuote(w http.ResponseWriter, r *http.Request) {
	if s.cfg.QuoteProvider == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	challengeStr := r.URL.Query().Get(challengeParam)
	if len(challengeStr) != constants.ChallengeBase64URLLen {
		writeQuoteError(w, http.StatusBadRequest, "invalid challenge: expected 32 base64url-encoded bytes")
		return
	}
	var challenge [constants.ChallengeRawLen]byte
	n, err := base64.RawURLEncoding.Decode(challenge[:], []byte(challengeStr))
	if err != nil || n != constants.ChallengeRawLen {
		writeQuoteError(w, http.StatusBadRequest, "invalid challenge: malformed base64url")
		return
	}

	quote, err := s.cfg.QuoteProvider(challenge)
	if err != nil {
		writeQuoteError(w, http.StatusInternalServerError, "failed to produce attestation quote")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"quote": base64.StdEncoding.EncodeToString(quote)})
}

func writeQuoteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
