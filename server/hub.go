package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"go.uber.org/zap"
)

// ErrNoConnection is returned when an event is emitted before any client connected
var ErrNoConnection = errors.New("server: no connected client")

// Hub delivers bridge events to the most recently connected client.
// It implements purchase.Emitter, emissions are serialized so that events keep their order.
type Hub struct {
	mu       sync.Mutex
	notifier transport.Notifier
	logger   *zap.Logger
}

// Attach makes notifier the current event target
func (h *Hub) Attach(notifier transport.Notifier) {
	h.mu.Lock()
	h.notifier = notifier
	h.mu.Unlock()
	h.logger.Debug("event channel attached")
}

// Detach drops notifier if it is still the current target
func (h *Hub) Detach(notifier transport.Notifier) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.notifier == notifier {
		h.notifier = nil
	}
}

// Connected returns true when events have a target
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.notifier != nil
}

// Emit sends a JSON-RPC notification named after the event
func (h *Hub) Emit(ctx context.Context, name string, payload map[string]interface{}) error {
	notification := &jsonrpc.Notification{Method: name}
	var err error
	if notification.Params, err = json.Marshal(payload); err != nil {
		return fmt.Errorf("failed to marshal %v: %w", name, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.notifier == nil {
		return ErrNoConnection
	}
	if err = h.notifier.Notify(ctx, notification); err != nil {
		return fmt.Errorf("failed to notify %v: %w", name, err)
	}
	return nil
}

// NewHub creates an event hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{logger: logger}
}
