// Package session routes per-presentation paywall events to the handlers of the active presentation.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/viant/paywall/event"
	"go.uber.org/zap"
)

const unknown = "unknown"

// HandlerSet holds the callbacks of one presentation, nil callbacks are skipped
type HandlerSet struct {
	OnOpen              func(evt *event.Event)
	OnClose             func(evt *event.Event)
	OnDismissed         func(evt *event.Event)
	OnPurchaseSucceeded func(evt *event.Event)
	OnOpenFailed        func(evt *event.Event)
	OnCustomAction      func(evt *event.Event)
}

// Session is one presentation of a trigger
type Session struct {
	Trigger  string
	Handlers *HandlerSet
	fallback func()
}

// State of a tracker
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Tracker keeps at most one active session
type Tracker struct {
	mu      sync.Mutex
	current *Session
	logger  *zap.Logger
}

// New creates a tracker
func New(logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{logger: logger}
}

// Begin starts a session, replacing any active one
func (t *Tracker) Begin(trigger string, handlers *HandlerSet, fallback func()) *Session {
	ret := &Session{Trigger: trigger, Handlers: handlers, fallback: fallback}
	t.mu.Lock()
	t.current = ret
	t.mu.Unlock()
	return ret
}

// Clear ends the active session
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.current = nil
	t.mu.Unlock()
}

// Active returns the active session or nil
func (t *Tracker) Active() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Tracker) State() State {
	if t.Active() == nil {
		return Idle
	}
	return Active
}

// Route dispatches an event to the active session; it returns true when a handler ran.
func (t *Tracker) Route(evt *event.Event) bool {
	if evt == nil {
		return false
	}
	t.mu.Lock()
	current := t.current
	if current == nil {
		t.mu.Unlock()
		return false
	}
	var handler func(evt *event.Event)
	var fallback func()
	handlers := current.Handlers
	if handlers == nil {
		handlers = &HandlerSet{}
	}
	switch evt.Type {
	case event.PaywallOpen:
		handler = handlers.OnOpen
	case event.PaywallClose:
		handler = handlers.OnClose
		if !evt.SecondTry() {
			t.current = nil
		}
		current.fallback = nil
	case event.PaywallDismissed:
		handler = handlers.OnDismissed
	case event.PurchaseSucceeded:
		handler = handlers.OnPurchaseSucceeded
	case event.CustomPaywallAction:
		handler = handlers.OnCustomAction
	case event.PaywallSkipped:
		t.current = nil
		current.fallback = nil
	case event.PaywallOpenFailed:
		handler = handlers.OnOpenFailed
		t.current = nil
		if !strings.Contains(strings.ToLower(evt.Error), "already presented") {
			fallback = current.fallback
		}
		current.fallback = nil
	}
	t.mu.Unlock()

	ran := false
	if handler != nil {
		t.invoke(evt, func() { handler(normalize(evt)) })
		ran = true
	}
	if fallback != nil {
		t.invoke(evt, fallback)
		ran = true
	}
	return ran
}

func (t *Tracker) invoke(evt *event.Event, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("paywall event handler panicked", zap.String("type", string(evt.Type)), zap.String("trigger", evt.TriggerName), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

// normalize fills the fields handlers rely on
func normalize(evt *event.Event) *event.Event {
	ret := *evt
	if ret.TriggerName == "" {
		ret.TriggerName = unknown
	}
	if ret.PaywallName == "" {
		ret.PaywallName = unknown
	}
	ret.IsSecondTry = event.Bool(evt.SecondTry())
	switch ret.Type {
	case event.PaywallOpen:
		ret.ViewType = event.ViewPresented
	case event.PurchaseSucceeded:
		if ret.ProductID == "" {
			ret.ProductID = unknown
		}
	}
	return &ret
}
