package rpc

import "github.com/sapphire-relay/encrypting-proxy/internal/constants"

// Classify maps a JSON-RPC method name to its MethodClass. The variant set
// is closed and known at compile time; callers switch on the result rather
// than on the method string itself.
func Classify(method string) constants.MethodClass {
	switch method {
	case "eth_call":
		return constants.MethodConfidentialEncryptedResponse
	case "eth_sendRawTransaction", "eth_estimateGas":
		return constants.MethodConfidentialOpaque
	case "eth_sendTransaction":
		return constants.MethodRefused
	default:
		return constants.MethodPassThrough
	}
}
