package server

import (
	"context"
	"errors"

	"github.com/viant/jsonrpc"
	"github.com/viant/paywall/bridge"
	"github.com/viant/paywall/schema"
	"github.com/viant/paywall/sdk"
)

func (h *Handler) CanPresentUpsell(_ context.Context, request *jsonrpc.Request) (*schema.CanPresentUpsellResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.TriggerParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	canPresent, reason := h.service.CanPresentUpsell(params.Trigger)
	return &schema.CanPresentUpsellResult{CanPresent: canPresent, Reason: reason}, nil
}

// PresentUpsell presents a trigger, per presentation events follow as paywall_event_handlers notifications
func (h *Handler) PresentUpsell(ctx context.Context, request *jsonrpc.Request) (*schema.EmptyResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.PresentUpsellParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if params.Trigger == "" {
		return nil, jsonrpc.NewInvalidParamsError("trigger was empty", request.Params)
	}
	if err := h.service.PresentUpsell(ctx, params.Trigger, params.CustomPaywallTraits, params.DontShowIfAlreadyEntitled); err != nil {
		return nil, asError(request.Method, err)
	}
	return &schema.EmptyResult{}, nil
}

func (h *Handler) HideUpsell(_ context.Context, _ *jsonrpc.Request) (*schema.HideUpsellResult, *jsonrpc.Error) {
	return &schema.HideUpsellResult{Hidden: h.service.HideUpsell()}, nil
}

func (h *Handler) HideAllUpsells(_ context.Context, _ *jsonrpc.Request) (*schema.EmptyResult, *jsonrpc.Error) {
	h.service.HideAllUpsells()
	return &schema.EmptyResult{}, nil
}

func (h *Handler) FallbackOpenOrCloseEvent(_ context.Context, request *jsonrpc.Request) (*schema.EmptyResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.FallbackOpenOrCloseParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	h.service.FallbackOpenOrCloseEvent(params.Trigger, params.IsOpen, params.ViewType)
	return &schema.EmptyResult{}, nil
}

func (h *Handler) GetFetchedTriggerNames(_ context.Context, _ *jsonrpc.Request) (*schema.TriggerNamesResult, *jsonrpc.Error) {
	return &schema.TriggerNamesResult{TriggerNames: h.service.FetchedTriggerNames()}, nil
}

func (h *Handler) GetPaywallInfo(_ context.Context, request *jsonrpc.Request) (*schema.PaywallInfoResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.TriggerParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	info, err := h.service.PaywallInfo(params.Trigger)
	if errors.Is(err, bridge.ErrPaywallNotReady) {
		return nil, schema.NewPaywallNotReady(params.Trigger)
	}
	if err != nil {
		return nil, asError(request.Method, err)
	}
	return info, nil
}

func (h *Handler) HandleDeepLink(_ context.Context, request *jsonrpc.Request) (*schema.DeepLinkResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.DeepLinkParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return &schema.DeepLinkResult{Handled: h.service.HandleDeepLink(params.URL)}, nil
}

func (h *Handler) SetRevenueCatAppUserID(_ context.Context, request *jsonrpc.Request) (*schema.EmptyResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.UserIDParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	h.service.SetRevenueCatAppUserID(params.UserID)
	return &schema.EmptyResult{}, nil
}

func (h *Handler) SetCustomUserID(_ context.Context, request *jsonrpc.Request) (*schema.EmptyResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.UserIDParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	h.service.SetCustomUserID(params.UserID)
	return &schema.EmptyResult{}, nil
}

func (h *Handler) HasEntitlementForPaywall(ctx context.Context, request *jsonrpc.Request) (*schema.EntitlementResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.TriggerParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	entitled, err := h.service.HasEntitlementForPaywall(ctx, params.Trigger)
	if err != nil {
		return nil, h.entitlementError(request.Method, err)
	}
	return &schema.EntitlementResult{HasEntitlement: entitled}, nil
}

func (h *Handler) HasAnyActiveSubscription(ctx context.Context, request *jsonrpc.Request) (*schema.EntitlementResult, *jsonrpc.Error) {
	active, err := h.service.HasAnyActiveSubscription(ctx)
	if err != nil {
		return nil, h.entitlementError(request.Method, err)
	}
	return &schema.EntitlementResult{HasEntitlement: &active}, nil
}

func (h *Handler) HasAnyEntitlement(ctx context.Context, request *jsonrpc.Request) (*schema.EntitlementResult, *jsonrpc.Error) {
	entitled, err := h.service.HasAnyEntitlement(ctx)
	if err != nil {
		return nil, h.entitlementError(request.Method, err)
	}
	return &schema.EntitlementResult{HasEntitlement: &entitled}, nil
}

func (h *Handler) entitlementError(method string, err error) *jsonrpc.Error {
	if errors.Is(err, sdk.ErrUnsupported) {
		return schema.NewNotSupported(method)
	}
	return asError(method, err)
}

func (h *Handler) GetExperimentInfo(_ context.Context, request *jsonrpc.Request) (*schema.ExperimentInfoResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.TriggerParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	info := h.service.ExperimentInfo(params.Trigger)
	return &schema.ExperimentInfoResult{Found: info != nil, ExperimentInfo: info}, nil
}

func (h *Handler) DisableRestoreFailedDialog(_ context.Context, _ *jsonrpc.Request) (*schema.EmptyResult, *jsonrpc.Error) {
	h.service.DisableRestoreFailedDialog()
	return &schema.EmptyResult{}, nil
}

func (h *Handler) SetCustomRestoreFailedStrings(_ context.Context, request *jsonrpc.Request) (*schema.EmptyResult, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.RestoreFailedStringsParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	h.service.SetCustomRestoreFailedStrings(params)
	return &schema.EmptyResult{}, nil
}

// SetLightDarkModeOverride returns the applied mode, unknown values resolve to system
func (h *Handler) SetLightDarkModeOverride(_ context.Context, request *jsonrpc.Request) (*schema.LightDarkModeParams, *jsonrpc.Error) {
	params, rpcErr := decodeParams[schema.LightDarkModeParams](request)
	if rpcErr != nil {
		return nil, rpcErr
	}
	mode := h.service.SetLightDarkModeOverride(params.Mode)
	return &schema.LightDarkModeParams{Mode: string(mode)}, nil
}
