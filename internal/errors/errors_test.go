package errors

import (
	stderrors "errors"
	"testing"
)

func TestRPCErrorCodes(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindTimeout, CodeServerIsBusy},
		{KindRateLimited, CodeServerIsBusy},
		{KindBadGateway, CodeBadGateway},
		{KindMissingParams, CodeInvalidParams},
		{KindInvalidParams, CodeInvalidParams},
		{KindInvalidRequestData, CodeInvalidParams},
		{KindErrorResponse, CodeInternalError},
		{KindUnexpectedResponse, CodeInternalError},
		{KindInvalidResponseData, CodeInternalError},
		{KindUnexpectedResponseID, CodeInternal},
		{KindInternal, CodeInternal},
		{KindMethodNotFound, CodeMethodNotFound},
		{KindOversizedRequest, CodeOversizedRequest},
		{KindParseError, CodeParseError},
	}

	for _, tt := range tests {
		e := NewRPCError(tt.kind, "msg")
		if e.Code != tt.want {
			t.Errorf("Kind %d: code = %d, want %d", tt.kind, e.Code, tt.want)
		}
	}
}

func TestCryptoErrorUnwrap(t *testing.T) {
	base := stderrors.New("boom")
	wrapped := NewCryptoError("encrypt", base)
	if !Is(wrapped, base) {
		t.Fatal("expected wrapped error to unwrap to base")
	}
	if wrapped.Error() != "encrypt: boom" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}

func TestProtocolErrorUnwrap(t *testing.T) {
	base := stderrors.New("bad state")
	wrapped := NewProtocolError("attestation", base)
	if !Is(wrapped, base) {
		t.Fatal("expected wrapped error to unwrap to base")
	}
}
