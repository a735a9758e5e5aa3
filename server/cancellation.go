package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/jsonrpc"
	"github.com/viant/paywall/schema"
	"go.uber.org/zap"
)

// Cancel cancels the context of an in-flight request
func (h *Handler) Cancel(_ context.Context, notification *jsonrpc.Notification) *jsonrpc.Error {
	var params schema.CancelledParams
	if err := json.Unmarshal(notification.Params, &params); err != nil {
		return jsonrpc.NewParsingError(fmt.Sprintf("failed to parse notification: %v", err), notification.Params)
	}
	key := operationKey(params.RequestID)
	if key == "" {
		return jsonrpc.NewInvalidParamsError("invalid requestId", notification.Params)
	}
	if h.cancelOperation(key) {
		h.logger.Debug("request cancelled", zap.String("request_id", key), zap.String("reason", params.Reason))
	}
	return nil
}

func (h *Handler) cancelOperation(key string) bool {
	active, ok := h.activeContexts.Take(key)
	if !ok {
		return false
	}
	active.CancelFunc()
	return true
}
