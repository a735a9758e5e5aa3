package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/paywall/codec"
	"github.com/viant/paywall/schema"
	"github.com/viant/paywall/sdk"
	"github.com/viant/paywall/session"
	"go.uber.org/zap"
)

var errUninitialized = errors.New("client is not initialized")

// ErrInvalidPresent is returned by PresentUpsell for nil params or an empty trigger
var ErrInvalidPresent = errors.New("client: present params require a trigger")

// PresentParams describes one presentation of a trigger
type PresentParams struct {
	Trigger                   string
	CustomPaywallTraits       map[string]interface{}
	DontShowIfAlreadyEntitled bool
	Handlers                  *session.HandlerSet
	// OnFallback runs when the paywall cannot be presented
	OnFallback func()
}

type Client struct {
	transport   transport.Transport
	handler     *Handler
	logger      *zap.Logger
	mu          sync.Mutex
	initialized bool
}

var _ Interface = (*Client)(nil)

func (c *Client) isInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Initialize sends the configuration; later calls return without contacting the bridge.
// Boolean values in config and customVariables are marker encoded.
func (c *Client) Initialize(ctx context.Context, config map[string]interface{}, customVariables map[string]interface{}) (*schema.InitializeResult, error) {
	if c.isInitialized() {
		return &schema.InitializeResult{DownloadStatus: string(c.handler.DownloadStatus()), AlreadyStarted: true}, nil
	}
	params := &schema.InitializeParams{
		Config:               codec.EncodeMap(config),
		CustomVariableValues: codec.EncodeMap(customVariables),
	}
	result, err := call[schema.InitializeParams, schema.InitializeResult](ctx, c, schema.MethodInitialize, params)
	if err != nil {
		return nil, err
	}
	c.handler.setStatus(sdk.DownloadStatus(result.DownloadStatus))
	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	return result, nil
}

func (c *Client) Ping(ctx context.Context) (*schema.PingResult, error) {
	return call[schema.EmptyResult, schema.PingResult](ctx, c, schema.MethodPing, nil)
}

func (c *Client) CanPresentUpsell(ctx context.Context, trigger string) (*schema.CanPresentUpsellResult, error) {
	return send[schema.TriggerParams, schema.CanPresentUpsellResult](ctx, c, schema.MethodCanPresentUpsell, &schema.TriggerParams{Trigger: trigger})
}

// PresentUpsell presents a trigger; its events are routed to params.Handlers until the presentation ends.
// When the bridge cannot present, OnFallback runs and a fallback open event is reported instead.
func (c *Client) PresentUpsell(ctx context.Context, params *PresentParams) error {
	if params == nil || params.Trigger == "" {
		return ErrInvalidPresent
	}
	gate, err := c.CanPresentUpsell(ctx, params.Trigger)
	if err != nil {
		return err
	}
	if !gate.CanPresent {
		c.logger.Info("cannot present trigger", zap.String("trigger", params.Trigger), zap.String("reason", gate.Reason))
		return c.fallback(ctx, params)
	}
	c.handler.tracker.Begin(params.Trigger, params.Handlers, params.OnFallback)
	_, err = send[schema.PresentUpsellParams, schema.EmptyResult](ctx, c, schema.MethodPresentUpsell, &schema.PresentUpsellParams{
		Trigger:                   params.Trigger,
		CustomPaywallTraits:       codec.EncodeMap(params.CustomPaywallTraits),
		DontShowIfAlreadyEntitled: params.DontShowIfAlreadyEntitled,
	})
	if err != nil {
		c.logger.Warn("present failed", zap.String("trigger", params.Trigger), zap.Error(err))
		c.handler.tracker.Clear()
		if fallbackErr := c.fallback(ctx, params); fallbackErr != nil {
			return errors.Join(err, fallbackErr)
		}
		return err
	}
	return nil
}

func (c *Client) fallback(ctx context.Context, params *PresentParams) error {
	if params.OnFallback != nil {
		params.OnFallback()
	}
	return c.FallbackOpenOrCloseEvent(ctx, params.Trigger, true, "presented")
}

func (c *Client) HideUpsell(ctx context.Context) (bool, error) {
	result, err := send[schema.EmptyResult, schema.HideUpsellResult](ctx, c, schema.MethodHideUpsell, nil)
	if err != nil {
		return false, err
	}
	return result.Hidden, nil
}

func (c *Client) HideAllUpsells(ctx context.Context) error {
	_, err := send[schema.EmptyResult, schema.EmptyResult](ctx, c, schema.MethodHideAllUpsells, nil)
	return err
}

func (c *Client) FallbackOpenOrCloseEvent(ctx context.Context, trigger string, isOpen bool, viewType string) error {
	params := &schema.FallbackOpenOrCloseParams{Trigger: trigger, IsOpen: isOpen, ViewType: viewType}
	_, err := send[schema.FallbackOpenOrCloseParams, schema.EmptyResult](ctx, c, schema.MethodFallbackOpenOrCloseEvent, params)
	return err
}

func (c *Client) GetFetchedTriggerNames(ctx context.Context) ([]string, error) {
	result, err := send[schema.EmptyResult, schema.TriggerNamesResult](ctx, c, schema.MethodGetFetchedTriggerNames, nil)
	if err != nil {
		return nil, err
	}
	return result.TriggerNames, nil
}

// GetPaywallInfo returns nil without an error when the trigger has no downloaded paywall
func (c *Client) GetPaywallInfo(ctx context.Context, trigger string) (*sdk.PaywallInfo, error) {
	result, err := send[schema.TriggerParams, schema.PaywallInfoResult](ctx, c, schema.MethodGetPaywallInfo, &schema.TriggerParams{Trigger: trigger})
	if isCode(err, schema.PaywallNotReady) {
		c.logger.Debug("paywall not ready", zap.String("trigger", trigger))
		return nil, nil
	}
	return result, err
}

func (c *Client) HandleDeepLink(ctx context.Context, url string) (bool, error) {
	result, err := send[schema.DeepLinkParams, schema.DeepLinkResult](ctx, c, schema.MethodHandleDeepLink, &schema.DeepLinkParams{URL: url})
	if err != nil {
		return false, err
	}
	return result.Handled, nil
}

func (c *Client) SetRevenueCatAppUserID(ctx context.Context, id string) error {
	_, err := send[schema.UserIDParams, schema.EmptyResult](ctx, c, schema.MethodSetRevenueCatAppUserID, &schema.UserIDParams{UserID: id})
	return err
}

func (c *Client) SetCustomUserID(ctx context.Context, id string) error {
	_, err := send[schema.UserIDParams, schema.EmptyResult](ctx, c, schema.MethodSetCustomUserID, &schema.UserIDParams{UserID: id})
	return err
}

// HasEntitlementForPaywall returns nil when the bridge cannot tell
func (c *Client) HasEntitlementForPaywall(ctx context.Context, trigger string) (*bool, error) {
	return entitlement(send[schema.TriggerParams, schema.EntitlementResult](ctx, c, schema.MethodHasEntitlementForPaywall, &schema.TriggerParams{Trigger: trigger}))
}

func (c *Client) HasAnyActiveSubscription(ctx context.Context) (*bool, error) {
	return entitlement(send[schema.EmptyResult, schema.EntitlementResult](ctx, c, schema.MethodHasAnyActiveSubscription, nil))
}

func (c *Client) HasAnyEntitlement(ctx context.Context) (*bool, error) {
	return entitlement(send[schema.EmptyResult, schema.EntitlementResult](ctx, c, schema.MethodHasAnyEntitlement, nil))
}

func entitlement(result *schema.EntitlementResult, err error) (*bool, error) {
	if err != nil {
		return nil, err
	}
	return result.HasEntitlement, nil
}

func (c *Client) GetExperimentInfoForTrigger(ctx context.Context, trigger string) (*sdk.ExperimentInfo, error) {
	result, err := send[schema.TriggerParams, schema.ExperimentInfoResult](ctx, c, schema.MethodGetExperimentInfoForTrigger, &schema.TriggerParams{Trigger: trigger})
	if err != nil || !result.Found {
		return nil, err
	}
	return result.ExperimentInfo, nil
}

func (c *Client) DisableRestoreFailedDialog(ctx context.Context) error {
	_, err := send[schema.EmptyResult, schema.EmptyResult](ctx, c, schema.MethodDisableRestoreFailedDialog, nil)
	return err
}

func (c *Client) SetCustomRestoreFailedStrings(ctx context.Context, strings *sdk.RestoreFailedStrings) error {
	_, err := send[schema.RestoreFailedStringsParams, schema.EmptyResult](ctx, c, schema.MethodSetCustomRestoreFailedString, strings)
	return err
}

// SetLightDarkModeOverride returns the mode the bridge applied
func (c *Client) SetLightDarkModeOverride(ctx context.Context, mode string) (string, error) {
	result, err := send[schema.LightDarkModeParams, schema.LightDarkModeParams](ctx, c, schema.MethodSetLightDarkModeOverride, &schema.LightDarkModeParams{Mode: mode})
	if err != nil {
		return "", err
	}
	return result.Mode, nil
}

// ResetHelium resets the bridge, the client may be initialized again afterwards
func (c *Client) ResetHelium(ctx context.Context) error {
	if _, err := call[schema.EmptyResult, schema.EmptyResult](ctx, c, schema.MethodResetHelium, nil); err != nil {
		return err
	}
	c.handler.tracker.Clear()
	c.handler.setStatus(sdk.DownloadNotStarted)
	c.mu.Lock()
	c.initialized = false
	c.mu.Unlock()
	return nil
}

func (c *Client) GetDownloadStatus(ctx context.Context) (sdk.DownloadStatus, error) {
	result, err := call[schema.EmptyResult, schema.DownloadStatusResult](ctx, c, schema.MethodGetDownloadStatus, nil)
	if err != nil {
		return "", err
	}
	status := sdk.DownloadStatus(result.Status)
	c.handler.setStatus(status)
	return status, nil
}

// DownloadStatus returns the last known download status without contacting the bridge
func (c *Client) DownloadStatus() sdk.DownloadStatus {
	return c.handler.DownloadStatus()
}

func (c *Client) SimulatePurchase(ctx context.Context, params *schema.SimulatePurchaseParams) error {
	_, err := send[schema.SimulatePurchaseParams, schema.SimulateResult](ctx, c, schema.MethodSimulatePurchase, params)
	return err
}

func (c *Client) SimulateRestore(ctx context.Context, trigger string) error {
	_, err := send[schema.TriggerParams, schema.SimulateResult](ctx, c, schema.MethodSimulateRestore, &schema.TriggerParams{Trigger: trigger})
	return err
}

func (c *Client) SimulateDismiss(ctx context.Context, trigger string) error {
	_, err := send[schema.TriggerParams, schema.SimulateResult](ctx, c, schema.MethodSimulateDismiss, &schema.TriggerParams{Trigger: trigger})
	return err
}

func (c *Client) SimulateCustomAction(ctx context.Context, params *schema.SimulateCustomActionParams) error {
	request := *params
	request.Params = codec.EncodeMap(params.Params)
	_, err := send[schema.SimulateCustomActionParams, schema.SimulateResult](ctx, c, schema.MethodSimulateCustomAction, &request)
	return err
}

// Handler returns the handler bound to this client
func (c *Client) Handler() *Handler {
	return c.handler
}

// New creates a client; without WithHandler the client gets a handler that only tracks sessions.
func New(transport transport.Transport, options ...Option) *Client {
	ret := &Client{transport: transport}
	for _, opt := range options {
		opt(ret)
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	if ret.handler == nil {
		ret.handler = NewHandler(WithHandlerLogger(ret.logger))
	}
	ret.handler.bind(transport)
	return ret
}

func isCode(err error, code int) bool {
	var rpcErr *jsonrpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	return int(rpcErr.Code) == code
}

func send[P any, R any](ctx context.Context, client *Client, method string, parameters *P) (*R, error) {
	if !client.isInitialized() { //ensure initialized
		return nil, jsonrpc.NewInternalError(errUninitialized.Error(), nil)
	}
	return call[P, R](ctx, client, method, parameters)
}

func call[P any, R any](ctx context.Context, client *Client, method string, parameters *P) (*R, error) {
	var params interface{}
	if parameters != nil {
		params = parameters
	}
	req, err := jsonrpc.NewRequest(method, params)
	if err != nil {
		return nil, jsonrpc.NewInvalidRequest(err.Error(), nil)
	}
	response, err := client.transport.Send(ctx, req)
	if err != nil {
		return nil, jsonrpc.NewInternalError(fmt.Sprintf("failed to send %v: %v", method, err), nil)
	}
	if response.Error != nil {
		return nil, response.Error
	}
	var result R
	if len(response.Result) == 0 {
		return &result, nil
	}
	if err = json.Unmarshal(response.Result, &result); err != nil {
		return nil, jsonrpc.NewInternalError(fmt.Sprintf("failed to unmarshal %v result: %v", method, err), nil)
	}
	return &result, nil
}
