package simulator

import (
	"context"
	"fmt"

	"github.com/viant/paywall/event"
	"github.com/viant/paywall/purchase"
	"go.uber.org/zap"
)

func (s *Simulator) lookup(trigger string) (*presentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Initialized {
		return nil, ErrNotInitialized
	}
	p, ok := s.presented[trigger]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotPresented, trigger)
	}
	return p, nil
}

// Purchase buys a product on a presented paywall through the delegate.
// A completed purchase grants the entitlement and closes the paywall.
func (s *Simulator) Purchase(ctx context.Context, trigger string, request *purchase.Request) (purchase.Outcome, error) {
	p, err := s.lookup(trigger)
	if err != nil {
		return purchase.Outcome{}, err
	}
	if request, err = productOf(p.trigger, request); err != nil {
		return purchase.Outcome{}, err
	}
	base := event.Event{TriggerName: trigger, PaywallName: p.trigger.Paywall, ProductID: request.ProductID}
	s.emit(ctx, p.listener, with(base, event.ProductSelected))
	s.emit(ctx, p.listener, with(base, event.PurchasePressed))

	s.mu.Lock()
	delegate := s.delegate
	s.mu.Unlock()
	if delegate == nil {
		return purchase.Outcome{}, ErrNotInitialized
	}
	outcome, err := delegate.MakePurchase(ctx, request)
	if err != nil {
		s.logger.Info("simulated purchase interrupted", zap.String("trigger", trigger), zap.Error(err))
		return purchase.Outcome{}, err
	}
	switch outcome.Result {
	case purchase.ResultPurchased:
		s.mu.Lock()
		s.entitled[request.ProductID] = true
		s.remove(trigger)
		s.mu.Unlock()
		s.emit(ctx, p.listener, with(base, event.PurchaseSucceeded))
		s.emitClose(ctx, p, false)
	case purchase.ResultCancelled:
		s.emit(ctx, p.listener, with(base, event.PurchaseCancelled))
	case purchase.ResultPending:
		s.emit(ctx, p.listener, with(base, event.PurchasePending))
	default:
		failed := with(base, event.PurchaseFailed)
		failed.Error = outcome.Reason
		s.emit(ctx, p.listener, failed)
	}
	return outcome, nil
}

// Restore restores purchases on a presented paywall through the delegate
func (s *Simulator) Restore(ctx context.Context, trigger string) (bool, error) {
	p, err := s.lookup(trigger)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	delegate := s.delegate
	s.mu.Unlock()
	if delegate == nil {
		return false, ErrNotInitialized
	}
	base := event.Event{TriggerName: trigger, PaywallName: p.trigger.Paywall}
	restored, err := delegate.RestorePurchases(ctx)
	if err != nil {
		return false, err
	}
	if !restored {
		s.emit(ctx, p.listener, with(base, event.PurchaseRestoreFailed))
		return false, nil
	}
	s.mu.Lock()
	for _, product := range p.trigger.Products {
		s.entitled[product] = true
	}
	s.remove(trigger)
	s.mu.Unlock()
	s.emit(ctx, p.listener, with(base, event.PurchaseRestored))
	s.emitClose(ctx, p, false)
	return true, nil
}

// Dismiss simulates the user closing a presented paywall
func (s *Simulator) Dismiss(ctx context.Context, trigger string) error {
	p, err := s.lookup(trigger)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.remove(trigger)
	s.mu.Unlock()
	s.emit(ctx, p.listener, &event.Event{Type: event.PaywallDismissed, TriggerName: trigger, PaywallName: p.trigger.Paywall, IsSecondTry: event.Bool(false)})
	s.emitClose(ctx, p, false)
	return nil
}

// CustomAction simulates a custom action button on a presented paywall
func (s *Simulator) CustomAction(ctx context.Context, trigger, action string, params map[string]interface{}) error {
	p, err := s.lookup(trigger)
	if err != nil {
		return err
	}
	s.emit(ctx, p.listener, &event.Event{Type: event.PaywallButtonPressed, TriggerName: trigger, PaywallName: p.trigger.Paywall, ButtonName: action})
	s.emit(ctx, p.listener, &event.Event{Type: event.CustomPaywallAction, TriggerName: trigger, PaywallName: p.trigger.Paywall, ActionName: action, Params: params})
	return nil
}

func with(base event.Event, eventType event.Type) *event.Event {
	base.Type = eventType
	return &base
}
