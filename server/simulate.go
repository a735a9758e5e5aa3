package server

import (
	"context"

	"github.com/viant/jsonrpc"
	"github.com/viant/paywall/codec"
	"github.com/viant/paywall/purchase"
	"github.com/viant/paywall/schema"
	"github.com/viant/paywall/sdk"
	"go.uber.org/zap"
)

// simulate runs a user action in the background; its outcome is reported through events.
// The action outlives the request since it may wait on a purchase response from the same client.
func (h *Handler) simulate(ctx context.Context, request *jsonrpc.Request, trigger string, action func(ctx context.Context, driver sdk.Driver) error) (*schema.SimulateResult, *jsonrpc.Error) {
	driver, ok := h.service.Driver()
	if !ok {
		return nil, schema.NewNotSupported(request.Method)
	}
	if trigger == "" {
		return nil, jsonrpc.NewInvalidParamsError("trigger was empty", request.Params)
	}
	detached := context.WithoutCancel(ctx)
	logger := h.logger.With(zap.String("method", request.Method), zap.String("trigger", trigger))
	go func() {
		if err := action(detached, driver); err != nil {
			logger.Warn("simulated action failed", zap.Error(err))
			return
		}
		logger.Debug("simulated action completed")
	}()
	return &schema.SimulateResult{Accepted: true}, nil
}

func (h *Handler) SimulatePurchase(ctx context.Context, request *jsonrpc.Request) (*schema.SimulateResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.SimulatePurchaseParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return h.simulate(ctx, request, params.Trigger, func(ctx context.Context, driver sdk.Driver) error {
		outcome, err := driver.Purchase(ctx, params.Trigger, &purchase.Request{
			ProductID:  params.ProductID,
			BasePlanID: params.BasePlanID,
			OfferID:    params.OfferID,
		})
		if err == nil {
			h.logger.Debug("simulated purchase", zap.String("trigger", params.Trigger), zap.String("status", purchase.StatusOf(outcome)))
		}
		return err
	})
}

func (h *Handler) SimulateRestore(ctx context.Context, request *jsonrpc.Request) (*schema.SimulateResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.TriggerParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return h.simulate(ctx, request, params.Trigger, func(ctx context.Context, driver sdk.Driver) error {
		_, err := driver.Restore(ctx, params.Trigger)
		return err
	})
}

func (h *Handler) SimulateDismiss(ctx context.Context, request *jsonrpc.Request) (*schema.SimulateResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.TriggerParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return h.simulate(ctx, request, params.Trigger, func(ctx context.Context, driver sdk.Driver) error {
		return driver.Dismiss(ctx, params.Trigger)
	})
}

func (h *Handler) SimulateCustomAction(ctx context.Context, request *jsonrpc.Request) (*schema.SimulateResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.SimulateCustomActionParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if params.Action == "" {
		return nil, jsonrpc.NewInvalidParamsError("action was empty", request.Params)
	}
	return h.simulate(ctx, request, params.Trigger, func(ctx context.Context, driver sdk.Driver) error {
		return driver.CustomAction(ctx, params.Trigger, params.Action, codec.DecodeMap(params.Params))
	})
}
