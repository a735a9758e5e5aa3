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
	"github.com/viant/paywall/event"
	"github.com/viant/paywall/purchase"
	"github.com/viant/paywall/schema"
	"github.com/viant/paywall/sdk"
	"github.com/viant/paywall/session"
	"go.uber.org/zap"
)

var errNoPurchaseHandler = errors.New("purchase handler is not configured")

// PurchaseHandler fulfills make_purchase and restore_purchases events
type PurchaseHandler interface {
	MakePurchase(ctx context.Context, request *purchase.Request) (purchase.Outcome, error)
	RestorePurchases(ctx context.Context) (bool, error)
}

// EventListener receives every paywall_event
type EventListener func(ctx context.Context, evt *event.Event)

type purchaseEvent struct {
	purchase.Request
	TransactionID string `json:"transactionId"`
}

// Handler handles bridge notifications on the scripting side
type Handler struct {
	purchaser PurchaseHandler
	listener  EventListener
	tracker   *session.Tracker
	logger    *zap.Logger

	mu       sync.RWMutex
	status   sdk.DownloadStatus
	notifier transport.Notifier
}

// Serve rejects requests, the bridge only talks to clients through notifications
func (h *Handler) Serve(_ context.Context, request *jsonrpc.Request, response *jsonrpc.Response) {
	response.Id = request.Id
	response.Jsonrpc = request.Jsonrpc
	response.Error = jsonrpc.NewMethodNotFound(fmt.Sprintf("method %s not found", request.Method), nil)
}

// OnNotification handles bridge events
func (h *Handler) OnNotification(ctx context.Context, notification *jsonrpc.Notification) {
	switch notification.Method {
	case schema.EventPaywall:
		evt, err := decodeEvent(notification.Params)
		if err != nil {
			h.logger.Warn("failed to decode event", zap.String("method", notification.Method), zap.Error(err))
			return
		}
		h.observe(evt)
		if h.listener != nil {
			h.listener(ctx, evt)
		}
	case schema.EventPaywallHandlers:
		evt, err := decodeEvent(notification.Params)
		if err != nil {
			h.logger.Warn("failed to decode event", zap.String("method", notification.Method), zap.Error(err))
			return
		}
		h.tracker.Route(evt)
	case schema.EventMakePurchase:
		request := &purchaseEvent{}
		if err := json.Unmarshal(notification.Params, request); err != nil {
			h.logger.Warn("failed to decode purchase request", zap.Error(err))
			return
		}
		go h.makePurchase(context.WithoutCancel(ctx), request)
	case schema.EventRestorePurchases:
		request := &purchaseEvent{}
		if err := json.Unmarshal(notification.Params, request); err != nil {
			h.logger.Warn("failed to decode restore request", zap.Error(err))
			return
		}
		go h.restorePurchases(context.WithoutCancel(ctx), request.TransactionID)
	case schema.EventDownloadStateChanged:
		state := &schema.DownloadStateChanged{}
		if err := json.Unmarshal(notification.Params, state); err != nil {
			h.logger.Warn("failed to decode download state", zap.Error(err))
			return
		}
		h.setStatus(sdk.DownloadStatus(state.Status))
	default:
		h.logger.Debug("ignored notification", zap.String("method", notification.Method))
	}
}

func (h *Handler) makePurchase(ctx context.Context, request *purchaseEvent) {
	outcome := purchase.Failed(errNoPurchaseHandler.Error())
	if h.purchaser != nil {
		var err error
		if outcome, err = h.purchaser.MakePurchase(ctx, &request.Request); err != nil {
			outcome = purchase.Failed(err.Error())
		}
	}
	h.logger.Debug("purchase handled",
		zap.String("transaction_id", request.TransactionID),
		zap.String("status", outcome.String()))
	h.respond(ctx, schema.MethodHandlePurchaseResponse, &purchase.Response{
		TransactionID: request.TransactionID,
		Status:        purchase.StatusOf(outcome),
		Error:         outcome.Reason,
	})
}

func (h *Handler) restorePurchases(ctx context.Context, transactionID string) {
	restored := false
	if h.purchaser != nil {
		var err error
		if restored, err = h.purchaser.RestorePurchases(ctx); err != nil {
			h.logger.Warn("restore failed", zap.String("transaction_id", transactionID), zap.Error(err))
			restored = false
		}
	}
	status := purchase.StatusFailed
	if restored {
		status = purchase.StatusRestored
	}
	h.respond(ctx, schema.MethodHandleRestoreResponse, &purchase.Response{TransactionID: transactionID, Status: status})
}

func (h *Handler) respond(ctx context.Context, method string, response *purchase.Response) {
	h.mu.RLock()
	notifier := h.notifier
	h.mu.RUnlock()
	if notifier == nil {
		h.logger.Warn("no connection to respond on", zap.String("method", method), zap.String("transaction_id", response.TransactionID))
		return
	}
	notification := &jsonrpc.Notification{Method: method}
	var err error
	if notification.Params, err = json.Marshal(response); err != nil {
		h.logger.Error("failed to marshal response", zap.String("method", method), zap.Error(err))
		return
	}
	if err = notifier.Notify(ctx, notification); err != nil {
		h.logger.Warn("failed to send response", zap.String("method", method), zap.Error(err))
	}
}

func (h *Handler) observe(evt *event.Event) {
	switch evt.Type {
	case event.DownloadSuccess:
		h.setStatus(sdk.DownloadSuccess)
	case event.DownloadError:
		h.setStatus(sdk.DownloadFailed)
	}
}

func (h *Handler) setStatus(status sdk.DownloadStatus) {
	h.mu.Lock()
	h.status = status
	h.mu.Unlock()
}

// DownloadStatus returns the last download status reported by the bridge
func (h *Handler) DownloadStatus() sdk.DownloadStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Tracker returns the presentation tracker
func (h *Handler) Tracker() *session.Tracker {
	return h.tracker
}

func (h *Handler) bind(notifier transport.Notifier) {
	h.mu.Lock()
	h.notifier = notifier
	h.mu.Unlock()
}

func decodeEvent(params []byte) (*event.Event, error) {
	dict := map[string]interface{}{}
	if err := json.Unmarshal(params, &dict); err != nil {
		return nil, err
	}
	return event.FromDictionary(codec.DecodeMap(dict)), nil
}

// NewHandler creates a handler
func NewHandler(options ...HandlerOption) *Handler {
	ret := &Handler{status: sdk.DownloadNotStarted}
	for _, opt := range options {
		opt(ret)
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	if ret.tracker == nil {
		ret.tracker = session.New(ret.logger)
	}
	return ret
}
