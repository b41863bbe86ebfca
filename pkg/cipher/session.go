// Package cipher implements the session cipher: an X25519 + Deoxys-II-256-128
// construction with a counter-driven nonce scheme and request-id binding
// that prevents a response from being matched to the wrong in-flight
// request.
package cipher

import (
	"crypto/ecdh"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"sync/atomic"

	"github.com/oasisprotocol/deoxysii"

	"github.com/sapphire-relay/encrypting-proxy/internal/constants"
	qerrors "github.com/sapphire-relay/encrypting-proxy/internal/errors"
)

// Cipher is the capability the request handler depends on. Production code
// uses Session; tests substitute MockCipher.
type Cipher interface {
	RequestCiphertextLength(plaintextLen int) int
	ResponsePlaintextLength(ciphertextLen int) int
	Encrypt(plaintext []byte, out []byte) (requestID uint64, err error)
	Decrypt(requestID uint64, envelope []byte, out []byte) bool
}

// Session is the process-wide cipher created once per listening instance.
// It is read-only after construction except for its atomic counter.
type Session struct {
	runtimePublicKey *ecdh.PublicKey
	ephemeralPriv    *ecdh.PrivateKey
	ephemeralPub     []byte // cached 32-byte encoding
	symmetricKey     []byte
	aead             *deoxysii.AEAD

	counter atomic.Uint64
}

var _ Cipher = (*Session)(nil)

// Create generates a fresh X25519 keypair, derives the session's symmetric
// key against runtimePublicKey, and initializes the request counter to 1.
// It fails if the X25519 exchange rejects runtimePublicKey (for example a
// low-order point), or if the system RNG or the AEAD primitive reject a
// derived key, which does not happen for correctly sized keys.
func Create(runtimePublicKey [constants.X25519PublicKeySize]byte) (*Session, error) {
	curve := ecdh.X25519()

	peerPub, err := curve.NewPublicKey(runtimePublicKey[:])
	if err != nil {
		return nil, qerrors.NewCryptoError("create", qerrors.ErrInvalidPublicKey)
	}

	priv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, qerrors.NewCryptoError("create", err)
	}

	sharedSecret, err := priv.ECDH(peerPub)
	if err != nil {
		return nil, qerrors.NewCryptoError("create", err)
	}

	mac := hmac.New(sha512.New512_256, []byte(constants.SymmetricKeyLabel))
	mac.Write(sharedSecret)
	key := mac.Sum(nil)

	aead, err := deoxysii.New(key)
	if err != nil {
		return nil, qerrors.NewCryptoError("create", err)
	}

	s := &Session{
		runtimePublicKey: peerPub,
		ephemeralPriv:    priv,
		ephemeralPub:     priv.PublicKey().Bytes(),
		symmetricKey:     key,
		aead:             aead,
	}
	s.counter.Store(constants.InitialCounter)
	return s, nil
}

// RequestCiphertextLength returns the number of bytes an outbound envelope
// occupies for a plaintext of the given length.
func (s *Session) RequestCiphertextLength(plaintextLen int) int {
	return plaintextLen + constants.TxOverhead
}

// ResponsePlaintextLength returns the maximum plaintext length recoverable
// from an inbound envelope of the given length.
func (s *Session) ResponsePlaintextLength(ciphertextLen int) int {
	n := ciphertextLen - constants.RxOverhead
	if n < 0 {
		return 0
	}
	return n
}

// Encrypt seals plaintext into out, which must be at least
// RequestCiphertextLength(len(plaintext)) bytes. It atomically allocates a
// fresh request id (panicking if the counter wraps to zero, per spec) and
// returns it so the caller can bind the eventual response to this request.
func (s *Session) Encrypt(plaintext []byte, out []byte) (uint64, error) {
	need := s.RequestCiphertextLength(len(plaintext))
	if len(out) < need {
		return 0, qerrors.NewCryptoError("encrypt", qerrors.ErrInvalidKeySize)
	}

	requestID := s.counter.Add(1) - 1
	if requestID == 0 {
		panic("cipher: request counter exhausted")
	}

	nonce := txNonce(requestID)

	header := out[:constants.TxHeaderSize]
	header[0] = constants.EnvelopeVersion
	copy(header[1:1+constants.AEADNonceSize], nonce[:])
	copy(header[1+constants.AEADNonceSize:], s.ephemeralPub)

	sealed := s.aead.Seal(out[constants.TxHeaderSize:constants.TxHeaderSize], nonce[:], plaintext, header)
	copy(out[constants.TxHeaderSize:], sealed)

	return requestID, nil
}

// Decrypt verifies and opens an inbound envelope, writing recovered
// plaintext into out (which must be at least
// ResponsePlaintextLength(len(envelope)) bytes). It returns false, without
// writing anything meaningful to out, if the envelope is malformed, carries
// the wrong version, fails nonce validation against requestID, or fails
// AEAD authentication. No further detail is ever exposed.
func (s *Session) Decrypt(requestID uint64, envelope []byte, out []byte) bool {
	if len(envelope) < constants.RxOverhead {
		return false
	}
	if envelope[0] != constants.EnvelopeVersion {
		return false
	}

	nonce := envelope[1 : 1+constants.AEADNonceSize]
	if !checkRxNonce(nonce, requestID) {
		return false
	}

	header := envelope[:constants.RxHeaderSize]
	ct := envelope[constants.RxHeaderSize:]

	pt, err := s.aead.Open(out[:0], nonce, ct, header)
	if err != nil {
		return false
	}
	copy(out, pt)
	return true
}

// Counter returns the current counter value. Intended for metrics/tests.
func (s *Session) Counter() uint64 {
	return s.counter.Load()
}
