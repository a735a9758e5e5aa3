package client

import (
	"github.com/viant/paywall/session"
	"go.uber.org/zap"
)

// Option represents client option
type Option func(c *Client)

// WithHandler binds the handler that receives the bridge events of this client's transport
func WithHandler(handler *Handler) Option {
	return func(c *Client) {
		c.handler = handler
	}
}

// WithLogger sets client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// HandlerOption represents handler option
type HandlerOption func(h *Handler)

// WithPurchaseHandler sets the purchase handler answering make_purchase and restore_purchases
func WithPurchaseHandler(purchaser PurchaseHandler) HandlerOption {
	return func(h *Handler) {
		h.purchaser = purchaser
	}
}

// WithEventListener sets the paywall_event listener
func WithEventListener(listener EventListener) HandlerOption {
	return func(h *Handler) {
		h.listener = listener
	}
}

// WithTracker shares a presentation tracker
func WithTracker(tracker *session.Tracker) HandlerOption {
	return func(h *Handler) {
		h.tracker = tracker
	}
}

// WithHandlerLogger sets handler logger
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}
