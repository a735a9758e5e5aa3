package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/jsonrpc"
	"github.com/viant/paywall/purchase"
	"github.com/viant/paywall/schema"
	"go.uber.org/zap"
)

// HandlePurchaseResponse resolves a pending make_purchase, unmatched responses are ignored
func (h *Handler) HandlePurchaseResponse(_ context.Context, params json.RawMessage) (*schema.ResponseResult, *jsonrpc.Error) {
	response, rpcErr := decodeResponse(schema.MethodHandlePurchaseResponse, params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	matched := h.service.HandlePurchaseResponse(response)
	h.logger.Debug("purchase response", zap.String("transaction_id", response.TransactionID), zap.String("status", response.Status), zap.Bool("matched", matched))
	return &schema.ResponseResult{Matched: matched}, nil
}

// HandleRestoreResponse resolves a pending restore_purchases, unmatched responses are ignored
func (h *Handler) HandleRestoreResponse(_ context.Context, params json.RawMessage) (*schema.ResponseResult, *jsonrpc.Error) {
	response, rpcErr := decodeResponse(schema.MethodHandleRestoreResponse, params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	matched := h.service.HandleRestoreResponse(response)
	h.logger.Debug("restore response", zap.String("transaction_id", response.TransactionID), zap.String("status", response.Status), zap.Bool("matched", matched))
	return &schema.ResponseResult{Matched: matched}, nil
}

func decodeResponse(method string, params json.RawMessage) (*purchase.Response, *jsonrpc.Error) {
	response := &purchase.Response{}
	if len(params) == 0 {
		return response, nil
	}
	if err := json.Unmarshal(params, response); err != nil {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse %v params: %v", method, err), params)
	}
	return response, nil
}
