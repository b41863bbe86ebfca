package cipher

import (
	"encoding/binary"

	"github.com/sapphire-relay/encrypting-proxy/internal/constants"
)

// txNonce builds the 15-byte transmit nonce for requestID: seven zero bytes
// followed by the big-endian request id.
func txNonce(requestID uint64) [constants.AEADNonceSize]byte {
	var n [constants.AEADNonceSize]byte
	binary.BigEndian.PutUint64(n[constants.AEADNonceSize-constants.RequestIDSize:], requestID)
	return n
}

// rxNonce builds the 15-byte receive nonce for requestID: top bit of the
// first byte set, the remaining header bytes zero, then the big-endian
// request id.
func rxNonce(requestID uint64) [constants.AEADNonceSize]byte {
	var n [constants.AEADNonceSize]byte
	n[0] = 0x80
	binary.BigEndian.PutUint64(n[constants.AEADNonceSize-constants.RequestIDSize:], requestID)
	return n
}

// checkRxNonce validates that nonce is a well-formed receive nonce bound to
// requestID: both the top-bit flag and the trailing request-id match are
// required unconditionally (neither check may be relaxed).
func checkRxNonce(nonce []byte, requestID uint64) bool {
	if len(nonce) != constants.AEADNonceSize {
		return false
	}
	if nonce[0] != 0x80 {
		return false
	}
	for i := 1; i < constants.AEADNonceSize-constants.RequestIDSize; i++ {
		if nonce[i] != 0 {
			return false
		}
	}
	got := binary.BigEndian.Uint64(nonce[constants.AEADNonceSize-constants.RequestIDSize:])
	return got == requestID
}
