package handler

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// decodeHexPayload decodes a hex string that may or may not carry a "0x"
// prefix, matching the original proxy's tolerance for "bare hex" raw-tx
// payloads.
func decodeHexPayload(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}

// encodeHexPayload renders b as a lowercase "0x"-prefixed hex string, the
// wire format every confidential payload uses on both the client and
// upstream sides.
func encodeHexPayload(b []byte) string {
	return hexutil.Encode(b)
}
