// Package delegate adapts the SDK delegate callbacks to the purchase broker and the event channel.
package delegate

import (
	"context"

	"github.com/viant/paywall/event"
	"github.com/viant/paywall/purchase"
	"github.com/viant/paywall/sdk"
	"go.uber.org/zap"
)

// Purchaser fulfills purchase and restore calls, the purchase broker does
type Purchaser interface {
	MakePurchase(ctx context.Context, request *purchase.Request) (purchase.Outcome, error)
	RestorePurchases(ctx context.Context) (bool, error)
}

// Sink receives every global paywall event
type Sink interface {
	OnEvent(ctx context.Context, evt *event.Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, evt *event.Event)

func (f SinkFunc) OnEvent(ctx context.Context, evt *event.Event) {
	f(ctx, evt)
}

// Bridging hands purchases to the scripting layer through the broker
type Bridging struct {
	purchaser       Purchaser
	sink            Sink
	customVariables map[string]interface{}
}

func (b *Bridging) MakePurchase(ctx context.Context, request *purchase.Request) (purchase.Outcome, error) {
	return b.purchaser.MakePurchase(ctx, request)
}

func (b *Bridging) RestorePurchases(ctx context.Context) (bool, error) {
	return b.purchaser.RestorePurchases(ctx)
}

func (b *Bridging) OnPaywallEvent(ctx context.Context, evt *event.Event) {
	if b.sink != nil && evt != nil {
		b.sink.OnEvent(ctx, evt)
	}
}

func (b *Bridging) CustomVariableValues() map[string]interface{} {
	return b.customVariables
}

// NewBridging creates a bridging delegate
func NewBridging(purchaser Purchaser, sink Sink, customVariables map[string]interface{}) *Bridging {
	return &Bridging{purchaser: purchaser, sink: sink, customVariables: customVariables}
}

// Default lets a host delegate handle purchases while events still reach the sink
type Default struct {
	host sdk.Delegate
	*Bridging
}

func (d *Default) MakePurchase(ctx context.Context, request *purchase.Request) (purchase.Outcome, error) {
	return d.host.MakePurchase(ctx, request)
}

func (d *Default) RestorePurchases(ctx context.Context) (bool, error) {
	return d.host.RestorePurchases(ctx)
}

// OnPaywallEvent notifies the host first, then forwards the event
func (d *Default) OnPaywallEvent(ctx context.Context, evt *event.Event) {
	d.host.OnPaywallEvent(ctx, evt)
	d.Bridging.OnPaywallEvent(ctx, evt)
}

// CustomVariableValues prefers the values supplied at initialization
func (d *Default) CustomVariableValues() map[string]interface{} {
	if values := d.Bridging.CustomVariableValues(); len(values) > 0 {
		return values
	}
	return d.host.CustomVariableValues()
}

// NewDefault wraps a host delegate
func NewDefault(host sdk.Delegate, sink Sink, customVariables map[string]interface{}) *Default {
	return &Default{host: host, Bridging: NewBridging(nil, sink, customVariables)}
}

// Select picks the delegate once at initialization; a missing host delegate falls back to bridging
func Select(useDefault bool, host sdk.Delegate, purchaser Purchaser, sink Sink, customVariables map[string]interface{}, logger *zap.Logger) sdk.Delegate {
	if !useDefault {
		return NewBridging(purchaser, sink, customVariables)
	}
	if host == nil {
		if logger != nil {
			logger.Error("default delegate requested but none registered, using bridging delegate")
		}
		return NewBridging(purchaser, sink, customVariables)
	}
	return NewDefault(host, sink, customVariables)
}

var _ sdk.Delegate = (*Bridging)(nil)
var _ sdk.Delegate = (*Default)(nil)
