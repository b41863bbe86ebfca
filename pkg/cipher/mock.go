package cipher

import "sync/atomic"

// txTag and rxTag are the literal fixtures used by the testable scenarios:
// MockCipher's Encrypt prepends txTag to the plaintext; Decrypt requires and
// strips rxTag.
const (
	txTag = "to-paratime-"
	rxTag = "from-paratime-"
)

// MockCipher is a test double reproducing the scenario-2/3 fixtures: encrypt
// prepends txTag, decrypt strips rxTag and fails if the prefix is absent.
type MockCipher struct {
	counter atomic.Uint64
}

var _ Cipher = (*MockCipher)(nil)

// NewMockCipher returns a MockCipher with a fresh counter starting at 1.
func NewMockCipher() *MockCipher {
	m := &MockCipher{}
	m.counter.Store(1)
	return m
}

func (m *MockCipher) RequestCiphertextLength(plaintextLen int) int {
	return plaintextLen + len(txTag)
}

func (m *MockCipher) ResponsePlaintextLength(ciphertextLen int) int {
	n := ciphertextLen - len(rxTag)
	if n < 0 {
		return 0
	}
	return n
}

func (m *MockCipher) Encrypt(plaintext []byte, out []byte) (uint64, error) {
	requestID := m.counter.Add(1) - 1
	n := copy(out, txTag)
	copy(out[n:], plaintext)
	return requestID, nil
}

func (m *MockCipher) Decrypt(requestID uint64, envelope []byte, out []byte) bool {
	if len(envelope) < len(rxTag) {
		return false
	}
	if string(envelope[:len(rxTag)]) != rxTag {
		return false
	}
	copy(out, envelope[len(rxTag):])
	return true
}
