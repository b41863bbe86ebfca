package rpc

import (
	"testing"

	"github.com/sapphire-relay/encrypting-proxy/internal/constants"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		method string
		want   constants.MethodClass
	}{
		{"eth_call", constants.MethodConfidentialEncryptedResponse},
		{"eth_sendRawTransaction", constants.MethodConfidentialOpaque},
		{"eth_estimateGas", constants.MethodConfidentialOpaque},
		{"eth_sendTransaction", constants.MethodRefused},
		{"eth_blockNumber", constants.MethodPassThrough},
		{"net_version", constants.MethodPassThrough},
	}
	for _, tt := range tests {
		if got := Classify(tt.method); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.method, got, tt.want)
		}
	}
}
