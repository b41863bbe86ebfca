// Package handler implements the request handler: the encrypt→proxy→decrypt
// pipeline driven from a per-request arena.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/sapphire-relay/encrypting-proxy/internal/constants"
	qerrors "github.com/sapphire-relay/encrypting-proxy/internal/errors"
	"github.com/sapphire-relay/encrypting-proxy/pkg/arena"
	"github.com/sapphire-relay/encrypting-proxy/pkg/cipher"
	"github.com/sapphire-relay/encrypting-proxy/pkg/rpc"
	"github.com/sapphire-relay/encrypting-proxy/pkg/upstream"
)

// Handler implements the encrypt/proxy/decrypt pipeline described by the
// component design. It holds no per-request state; callers supply a fresh
// Arena for each request.
type Handler struct {
	Cipher              cipher.Cipher
	Upstream            upstream.Upstream
	MaxRequestSizeBytes int64
}

// New builds a Handler.
func New(c cipher.Cipher, u upstream.Upstream, maxRequestSizeBytes int64) *Handler {
	return &Handler{Cipher: c, Upstream: u, MaxRequestSizeBytes: maxRequestSizeBytes}
}

var nullID = json.RawMessage("null")

// Result is what the serving loop needs to write a JSON-RPC response: ID is
// populated as soon as it is known, even on error, so every error path
// still carries the client's id (or null if the id could not be
// determined).
type Result struct {
	ID     json.RawMessage
	Result json.RawMessage
	Err    *qerrors.RPCError
}

// Handle runs one request to completion. contentLength is the declared
// body length, or -1 if the caller had no content-length header. body is
// read fully into the arena before parsing.
func (h *Handler) Handle(ctx context.Context, ar *arena.Arena, contentLength int64, body io.Reader) *Result {
	if contentLength < 0 {
		return &Result{ID: nullID, Err: qerrors.NewRPCError(qerrors.KindInternal, "missing content-length header")}
	}
	if contentLength > h.MaxRequestSizeBytes {
		return &Result{ID: nullID, Err: qerrors.NewRPCError(qerrors.KindOversizedRequest, "request body exceeds configured size limit")}
	}

	reqBuf, err := ar.Get(int(contentLength))
	if err != nil {
		return &Result{ID: nullID, Err: qerrors.NewRPCErrorf(qerrors.KindParseError, "parse error: %v", err)}
	}
	if _, err := io.ReadFull(body, reqBuf); err != nil {
		return &Result{ID: nullID, Err: qerrors.NewRPCErrorf(qerrors.KindParseError, "parse error: %v", err)}
	}

	req, err := rpc.ParseRequest(reqBuf)
	if err != nil {
		return &Result{ID: nullID, Err: qerrors.NewRPCErrorf(qerrors.KindParseError, "%v", err)}
	}
	id := req.ID
	if id == nil {
		id = nullID
	}

	switch rpc.Classify(req.Method) {
	case constants.MethodRefused:
		return &Result{ID: id, Err: qerrors.NewRPCError(qerrors.KindMethodNotFound, "method not found")}
	case constants.MethodConfidentialOpaque, constants.MethodConfidentialEncryptedResponse:
		return h.handleConfidential(ctx, ar, req, id)
	default:
		return h.handlePassThrough(ctx, reqBuf, id)
	}
}

func (h *Handler) handlePassThrough(ctx context.Context, reqBuf []byte, id json.RawMessage) *Result {
	respBytes, err := h.Upstream.Post(ctx, reqBuf)
	if err != nil {
		return &Result{ID: id, Err: mapUpstreamFault(err)}
	}
	resp, err := rpc.ParseResponse(respBytes)
	if err != nil {
		return &Result{ID: id, Err: qerrors.NewRPCErrorf(qerrors.KindUnexpectedResponse, "%v", err)}
	}
	if !bytes.Equal(resp.ID, id) {
		return &Result{ID: id, Err: qerrors.NewRPCErrorf(qerrors.KindUnexpectedResponseID, "response id %s does not match request id %s", resp.ID, id)}
	}
	return &Result{ID: id, Result: resp.Result}
}

func (h *Handler) handleConfidential(ctx context.Context, ar *arena.Arena, req *rpc.Request, id json.RawMessage) *Result {
	if len(req.Params) == 0 {
		return &Result{ID: id, Err: qerrors.NewRPCError(qerrors.KindMissingParams, "missing params")}
	}

	var (
		plaintextHex string
		rewrite      func(ciphertextHex string) (json.RawMessage, error)
	)

	switch req.Method {
	case "eth_sendRawTransaction":
		var p rpc.EthSendRawTxParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return &Result{ID: id, Err: qerrors.NewRPCErrorf(qerrors.KindInvalidParams, "%v", err)}
		}
		plaintextHex = p.Data
		rewrite = func(ciphertextHex string) (json.RawMessage, error) {
			return json.Marshal(rpc.EthSendRawTxParams{Data: ciphertextHex})
		}
	case "eth_call", "eth_estimateGas":
		var p rpc.EthCallParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return &Result{ID: id, Err: qerrors.NewRPCErrorf(qerrors.KindInvalidParams, "%v", err)}
		}
		if p.Tx.Data != nil {
			plaintextHex = *p.Tx.Data
		}
		tx := p.Tx
		rewrite = func(ciphertextHex string) (json.RawMessage, error) {
			tx.Data = &ciphertextHex
			return json.Marshal(rpc.EthCallParams{Tx: tx, BlockTag: p.BlockTag})
		}
	default:
		panic("handler: unreachable method in confidential path: " + req.Method)
	}

	plaintext, err := decodeHexPayload(plaintextHex)
	if err != nil {
		return &Result{ID: id, Err: qerrors.NewRPCErrorf(qerrors.KindInvalidRequestData, "invalid payload hex: %v", err)}
	}

	ctBuf, err := ar.Get(h.Cipher.RequestCiphertextLength(len(plaintext)))
	if err != nil {
		return &Result{ID: id, Err: qerrors.NewRPCError(qerrors.KindInternal, "arena exhausted")}
	}
	requestID, err := h.Cipher.Encrypt(plaintext, ctBuf)
	if err != nil {
		return &Result{ID: id, Err: qerrors.NewRPCError(qerrors.KindInternal, "encryption failed")}
	}

	newParams, err := rewrite(encodeHexPayload(ctBuf))
	if err != nil {
		return &Result{ID: id, Err: qerrors.NewRPCError(qerrors.KindInternal, "failed to rebuild request")}
	}

	rewritten := rpc.Request{JSONRPC: "2.0", ID: id, Method: req.Method, Params: newParams}
	rewrittenBytes, err := json.Marshal(rewritten)
	if err != nil {
		return &Result{ID: id, Err: qerrors.NewRPCError(qerrors.KindInternal, "failed to serialize request")}
	}

	respBytes, err := h.Upstream.Post(ctx, rewrittenBytes)
	if err != nil {
		return &Result{ID: id, Err: mapUpstreamFault(err)}
	}
	resp, err := rpc.ParseResponse(respBytes)
	if err != nil {
		return &Result{ID: id, Err: qerrors.NewRPCErrorf(qerrors.KindUnexpectedResponse, "%v", err)}
	}
	if !bytes.Equal(resp.ID, id) {
		return &Result{ID: id, Err: qerrors.NewRPCErrorf(qerrors.KindUnexpectedResponseID, "response id %s does not match request id %s", resp.ID, id)}
	}

	if req.Method != "eth_call" {
		// Confidential-with-opaque-response: return upstream's result bytes
		// unmodified.
		return &Result{ID: id, Result: resp.Result}
	}

	var resultHex string
	if err := json.Unmarshal(resp.Result, &resultHex); err != nil {
		return &Result{ID: id, Err: qerrors.NewRPCErrorf(qerrors.KindUnexpectedResponse, "eth_call result is not a string: %v", err)}
	}
	ct, err := decodeHexPayload(resultHex)
	if err != nil {
		return &Result{ID: id, Err: qerrors.NewRPCErrorf(qerrors.KindInvalidResponseData, "invalid response hex: %v", err)}
	}

	ptBuf, err := ar.Get(h.Cipher.ResponsePlaintextLength(len(ct)))
	if err != nil {
		return &Result{ID: id, Err: qerrors.NewRPCError(qerrors.KindInternal, "arena exhausted")}
	}
	if !h.Cipher.Decrypt(requestID, ct, ptBuf) {
		return &Result{ID: id, Err: qerrors.NewRPCError(qerrors.KindInternal, "decryption failed")}
	}

	resultJSON, err := json.Marshal(encodeHexPayload(ptBuf))
	if err != nil {
		return &Result{ID: id, Err: qerrors.NewRPCError(qerrors.KindInternal, "failed to encode result")}
	}
	return &Result{ID: id, Result: resultJSON}
}

func mapUpstreamFault(err error) *qerrors.RPCError {
	var fault *upstream.Fault
	if !errors.As(err, &fault) {
		return qerrors.NewRPCErrorf(qerrors.KindBadGateway, "%v", err)
	}
	switch fault.Kind {
	case upstream.FaultTimeout:
		return qerrors.NewRPCError(qerrors.KindTimeout, "upstream timeout")
	case upstream.FaultRateLimited:
		return qerrors.NewRPCError(qerrors.KindRateLimited, "upstream rate limited")
	case upstream.FaultErrorResponse:
		return qerrors.NewRPCErrorf(qerrors.KindErrorResponse, "upstream returned status %d", fault.Status)
	default:
		return qerrors.NewRPCErrorf(qerrors.KindBadGateway, "%v", fault)
	}
}
