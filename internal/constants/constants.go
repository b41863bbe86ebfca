// Package constants defines wire-format sizes and default configuration
// values for the sapphire-relay encrypting proxy.
package constants

// Protocol version and identification
const (
	// EnvelopeVersion is the only version byte this revision accepts.
	EnvelopeVersion byte = 0

	// SymmetricKeyLabel is the fixed HMAC-SHA512/256 label used to derive the
	// session's AEAD key from the X25519 shared secret.
	SymmetricKeyLabel = "MRAE_Box_Deoxys-II-256-128"
)

// X25519 Parameters (RFC 7748)
const (
	// X25519PublicKeySize is the size of an X25519 public key in bytes.
	X25519PublicKeySize = 32

	// X25519PrivateKeySize is the size of an X25519 private key in bytes.
	X25519PrivateKeySize = 32
)

// Deoxys-II-256-128 AEAD parameters
const (
	// AEADKeySize is the size of a Deoxys-II-256-128 key in bytes.
	AEADKeySize = 32

	// AEADNonceSize is the size of a Deoxys-II-256-128 nonce in bytes.
	AEADNonceSize = 15

	// AEADTagSize is the size of a Deoxys-II-256-128 authentication tag in bytes.
	AEADTagSize = 16
)

// Request-ID and envelope header sizes
const (
	// RequestIDSize is the width, in bytes, of the big-endian request-id
	// suffix embedded in every nonce.
	RequestIDSize = 8

	// TxHeaderSize is version(1) + nonce(15) + ephemeral_pub(32).
	TxHeaderSize = 1 + AEADNonceSize + X25519PublicKeySize

	// RxHeaderSize is version(1) + nonce(15).
	RxHeaderSize = 1 + AEADNonceSize

	// TxOverhead is the number of bytes an outbound envelope adds to a
	// plaintext: header plus AEAD tag.
	TxOverhead = TxHeaderSize + AEADTagSize

	// RxOverhead is the number of bytes an inbound envelope adds to a
	// plaintext: header plus AEAD tag.
	RxOverhead = RxHeaderSize + AEADTagSize
)

// Counter discipline
const (
	// InitialCounter is the first request_id handed out by a fresh session;
	// zero is reserved as an overflow sentinel and is never a valid id.
	InitialCounter uint64 = 1
)

// Default configuration values (spec §6)
const (
	// DefaultListenAddr is the address the proxy listens on by default.
	DefaultListenAddr = "127.0.0.1:23294"

	// DefaultUpstreamURL is the paratime gateway URL used by default.
	DefaultUpstreamURL = "http://127.0.0.1:8545"

	// DefaultMaxRequestSizeBytes is the default request body size limit.
	DefaultMaxRequestSizeBytes = 1048576

	// UpstreamTimeoutSeconds is the total timeout for a single upstream POST.
	UpstreamTimeoutSeconds = 30

	// ChallengeBase64URLLen is the exact length of the base64url-encoded
	// attestation challenge query parameter (32 raw bytes).
	ChallengeBase64URLLen = 43

	// ChallengeRawLen is the decoded length of the attestation challenge.
	ChallengeRawLen = 32

	// TargetInfoSize is the fixed size of the enclave-target-info structure
	// written on the first read of the attestation pseudo-socket (the
	// sgx_isa::Targetinfo struct in the original implementation).
	TargetInfoSize = 512

	// ReportSize is the exact number of bytes the peer must write to the
	// attestation pseudo-socket before a quote is produced
	// (sgx_isa::Report::UNPADDED_SIZE in the original implementation).
	ReportSize = 384
)

// MethodClass classifies an RPC method by how its payload (if any) is
// handled by the session cipher.
type MethodClass uint8

const (
	// MethodPassThrough is forwarded to upstream verbatim.
	MethodPassThrough MethodClass = iota

	// MethodConfidentialOpaque is encrypted on the way out; the response is
	// returned unmodified (eth_sendRawTransaction, eth_estimateGas).
	MethodConfidentialOpaque

	// MethodConfidentialEncryptedResponse is encrypted on the way out and
	// its response is decrypted before being returned (eth_call).
	MethodConfidentialEncryptedResponse

	// MethodRefused is never proxied (eth_sendTransaction).
	MethodRefused
)

// String returns a human-readable name for the method class.
func (c MethodClass) String() string {
	switch c {
	case MethodPassThrough:
		return "pass-through"
	case MethodConfidentialOpaque:
		return "confidential-opaque"
	case MethodConfidentialEncryptedResponse:
		return "confidential-encrypted-response"
	case MethodRefused:
		return "refused"
	default:
		return "unknown"
	}
}
