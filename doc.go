// Package sapphirerelay implements a transparent encrypting reverse proxy
// that sits between JSON-RPC clients and a confidential paratime's Web3
// gateway.
//
// The proxy classifies each incoming JSON-RPC request by method, and for
// the confidential subset transparently encrypts the request parameters
// (and decrypts the response) against the paratime's runtime public key
// using X25519 key agreement and Deoxys-II-256-128 AEAD. Everything else is
// passed straight through to the upstream gateway unmodified.
//
// # Quick Start
//
//	sess, _ := cipher.Create(runtimePublicKey)
//	up := upstream.NewHTTPUpstream(upstream.DefaultConfig("http://localhost:8545"))
//	h := handler.New(sess, up, constants.DefaultMaxRequestSizeBytes)
//	srv := server.New(server.DefaultConfig(":23294", h))
//	srv.ListenAndServe()
//
// # Package Structure
//
//   - pkg/cipher: X25519 session establishment and Deoxys-II request/response encryption
//   - pkg/rpc: JSON-RPC 2.0 envelope types and method classification
//   - pkg/arena: per-request scratch allocator
//   - pkg/upstream: HTTP transport to the paratime gateway and its fault taxonomy
//   - pkg/handler: the request pipeline tying the above together
//   - pkg/server: the HTTP serving loop, routing, and CORS/TLS handling
//   - pkg/attestation: the duplex-stream enclave quote service for GET /quote
//   - pkg/metrics: structured logging, tracing, and Prometheus-compatible metrics
//   - pkg/tls: TLS key loading and CSR generation for cmd/sapphire-relay
//   - internal/constants: wire-format sizes and protocol constants
//   - internal/errors: JSON-RPC error taxonomy
//
// # Testing
//
//	go test ./...                       # All tests
//	go test ./test/integration/...      # End-to-end HTTP scenarios
//
// For more information, see: https://github.com/oasisprotocol/encrypting-proxy
package sapphirerelay
