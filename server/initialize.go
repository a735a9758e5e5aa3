package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/jsonrpc"
	"github.com/viant/paywall/schema"
)

// Initialize handles the initialize method; params are either {config, customVariableValues} or the bare config payload
func (h *Handler) Initialize(ctx context.Context, request *jsonrpc.Request) (*schema.InitializeResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.InitializeParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if params.Config == nil && len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &params.Config); err != nil {
			return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse config: %v", err), request.Params)
		}
	}
	started, err := h.service.Initialize(ctx, params.Config, params.CustomVariableValues)
	if err != nil {
		return nil, asError(request.Method, err)
	}
	_, simulated := h.service.Driver()
	return &schema.InitializeResult{
		DownloadStatus: string(h.service.DownloadStatus()),
		AlreadyStarted: !started,
		Simulated:      simulated,
	}, nil
}

// Ping handles the ping method
func (h *Handler) Ping(_ context.Context, _ *jsonrpc.Request) (*schema.PingResult, *jsonrpc.Error) {
	return &schema.PingResult{Version: h.version}, nil
}

func (h *Handler) GetDownloadStatus(_ context.Context, _ *jsonrpc.Request) (*schema.DownloadStatusResult, *jsonrpc.Error) {
	return &schema.DownloadStatusResult{Status: string(h.service.DownloadStatus())}, nil
}

// Reset handles resetHelium, pending purchases resolve as cancelled
func (h *Handler) Reset(ctx context.Context, request *jsonrpc.Request) (*schema.EmptyResult, *jsonrpc.Error) {
	if err := h.service.Reset(ctx); err != nil {
		return nil, asError(request.Method, err)
	}
	return &schema.EmptyResult{}, nil
}
