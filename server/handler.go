package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/paywall/bridge"
	"github.com/viant/paywall/config"
	"github.com/viant/paywall/internal/collection"
	"github.com/viant/paywall/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Handler serves one transport connection
type Handler struct {
	transport.Notifier
	*Server
	activeContexts *collection.SyncMap[string, *activeContext]
}

// requiresInitialization lists methods rejected before initialize
var requiresInitialization = map[string]bool{
	schema.MethodPresentUpsell:               true,
	schema.MethodGetPaywallInfo:              true,
	schema.MethodHasEntitlementForPaywall:    true,
	schema.MethodHasAnyActiveSubscription:    true,
	schema.MethodHasAnyEntitlement:           true,
	schema.MethodGetExperimentInfoForTrigger: true,
	schema.MethodSimulatePurchase:            true,
	schema.MethodSimulateRestore:             true,
	schema.MethodSimulateDismiss:             true,
	schema.MethodSimulateCustomAction:        true,
}

// Serve handles incoming JSON-RPC requests
func (h *Handler) Serve(parent context.Context, request *jsonrpc.Request, response *jsonrpc.Response) {
	if jsonrpc.Version != request.Jsonrpc {
		response.Error = jsonrpc.NewInvalidRequest("invalid JSON-RPC version", nil)
		return
	}
	if requiresInitialization[request.Method] && !h.service.Initialized() {
		response.Error = schema.NewNotInitialized(request.Method)
		return
	}

	key := operationKey(request.Id)
	ctx, cancel := context.WithCancel(parent)
	activeContext, ctx := newActiveContext(ctx, cancel, request)
	h.activeContexts.Put(key, activeContext)
	defer h.cancelOperation(key)

	ctx, span := h.tracer.Start(ctx, request.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("rpc.system", "jsonrpc"), attribute.String("rpc.method", request.Method)))
	defer span.End()

	var result interface{}
	var rpcErr *jsonrpc.Error
	switch request.Method {
	case schema.MethodInitialize:
		result, rpcErr = h.Initialize(ctx, request)
	case schema.MethodPing:
		result, rpcErr = h.Ping(ctx, request)
	case schema.MethodGetDownloadStatus:
		result, rpcErr = h.GetDownloadStatus(ctx, request)
	case schema.MethodResetHelium:
		result, rpcErr = h.Reset(ctx, request)
	case schema.MethodCanPresentUpsell:
		result, rpcErr = h.CanPresentUpsell(ctx, request)
	case schema.MethodPresentUpsell:
		result, rpcErr = h.PresentUpsell(ctx, request)
	case schema.MethodHideUpsell:
		result, rpcErr = h.HideUpsell(ctx, request)
	case schema.MethodHideAllUpsells:
		result, rpcErr = h.HideAllUpsells(ctx, request)
	case schema.MethodFallbackOpenOrCloseEvent:
		result, rpcErr = h.FallbackOpenOrCloseEvent(ctx, request)
	case schema.MethodGetFetchedTriggerNames:
		result, rpcErr = h.GetFetchedTriggerNames(ctx, request)
	case schema.MethodGetPaywallInfo:
		result, rpcErr = h.GetPaywallInfo(ctx, request)
	case schema.MethodHandleDeepLink:
		result, rpcErr = h.HandleDeepLink(ctx, request)
	case schema.MethodSetRevenueCatAppUserID:
		result, rpcErr = h.SetRevenueCatAppUserID(ctx, request)
	case schema.MethodSetCustomUserID:
		result, rpcErr = h.SetCustomUserID(ctx, request)
	case schema.MethodHasEntitlementForPaywall:
		result, rpcErr = h.HasEntitlementForPaywall(ctx, request)
	case schema.MethodHasAnyActiveSubscription:
		result, rpcErr = h.HasAnyActiveSubscription(ctx, request)
	case schema.MethodHasAnyEntitlement:
		result, rpcErr = h.HasAnyEntitlement(ctx, request)
	case schema.MethodGetExperimentInfoForTrigger:
		result, rpcErr = h.GetExperimentInfo(ctx, request)
	case schema.MethodDisableRestoreFailedDialog:
		result, rpcErr = h.DisableRestoreFailedDialog(ctx, request)
	case schema.MethodSetCustomRestoreFailedString:
		result, rpcErr = h.SetCustomRestoreFailedStrings(ctx, request)
	case schema.MethodSetLightDarkModeOverride:
		result, rpcErr = h.SetLightDarkModeOverride(ctx, request)
	case schema.MethodHandlePurchaseResponse:
		result, rpcErr = h.HandlePurchaseResponse(ctx, request.Params)
	case schema.MethodHandleRestoreResponse:
		result, rpcErr = h.HandleRestoreResponse(ctx, request.Params)
	case schema.MethodSimulatePurchase:
		result, rpcErr = h.SimulatePurchase(ctx, request)
	case schema.MethodSimulateRestore:
		result, rpcErr = h.SimulateRestore(ctx, request)
	case schema.MethodSimulateDismiss:
		result, rpcErr = h.SimulateDismiss(ctx, request)
	case schema.MethodSimulateCustomAction:
		result, rpcErr = h.SimulateCustomAction(ctx, request)
	default:
		rpcErr = jsonrpc.NewMethodNotFound(fmt.Sprintf("method: %v not found", request.Method), request.Params)
	}
	h.setResponse(response, result, rpcErr)

	h.metrics.Request(request.Method, response.Error == nil, time.Since(activeContext.started))
	if response.Error != nil {
		span.SetStatus(codes.Error, response.Error.Message)
		h.logger.Debug("request failed",
			zap.String("method", request.Method),
			zap.String("request_id", key),
			zap.Any("code", response.Error.Code),
			zap.String("error", response.Error.Message))
	}
}

func (h *Handler) setResponse(response *jsonrpc.Response, result interface{}, rpcError *jsonrpc.Error) {
	if rpcError != nil {
		response.Error = rpcError
		return
	}
	var err error
	response.Result, err = json.Marshal(result)
	if err != nil {
		response.Error = jsonrpc.NewInternalError(err.Error(), []byte{})
	}
}

// OnNotification handles incoming JSON-RPC notifications
func (h *Handler) OnNotification(ctx context.Context, notification *jsonrpc.Notification) {
	var rpcErr *jsonrpc.Error
	switch notification.Method {
	case schema.MethodNotificationCancel:
		rpcErr = h.Cancel(ctx, notification)
	case schema.MethodHandlePurchaseResponse:
		_, rpcErr = h.HandlePurchaseResponse(ctx, notification.Params)
	case schema.MethodHandleRestoreResponse:
		_, rpcErr = h.HandleRestoreResponse(ctx, notification.Params)
	default:
		h.logger.Debug("notification ignored", zap.String("method", notification.Method))
		return
	}
	if rpcErr != nil {
		h.logger.Warn("failed to handle notification", zap.String("method", notification.Method), zap.String("error", rpcErr.Message))
	}
}

// decodeParams unmarshals request params into P, absent params yield a zero P
func decodeParams[P any](request *jsonrpc.Request) (*P, *jsonrpc.Error) {
	params := new(P)
	if len(request.Params) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(request.Params, params); err != nil {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse %v params: %v", request.Method, err), request.Params)
	}
	return params, nil
}

// asError translates a bridge error to its wire form
func asError(method string, err error) *jsonrpc.Error {
	var configErr *config.ConfigurationError
	switch {
	case errors.As(err, &configErr):
		return jsonrpc.NewInvalidParamsError(configErr.Error(), nil)
	case errors.Is(err, bridge.ErrNotInitialized):
		return schema.NewNotInitialized(method)
	default:
		return jsonrpc.NewInternalError(err.Error(), nil)
	}
}

func newHandler(s *Server, notifier transport.Notifier) *Handler {
	return &Handler{
		Notifier:       notifier,
		Server:         s,
		activeContexts: collection.NewSyncMap[string, *activeContext](),
	}
}
