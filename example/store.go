package example

import (
	"context"
	"sync"
	"time"

	"github.com/viant/paywall/client"
	"github.com/viant/paywall/event"
	"github.com/viant/paywall/purchase"
)

// Entry is one recorded interaction
type Entry struct {
	Timestamp time.Time
	Kind      string
	ProductID string
	Event     *event.Event
}

// Store is a demo purchase handler that approves every purchase and records its history
type Store struct {
	mu       sync.Mutex
	history  []Entry
	outcomes map[string]purchase.Outcome
}

// Decline makes purchases of productID end with outcome
func (s *Store) Decline(productID string, outcome purchase.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcomes == nil {
		s.outcomes = map[string]purchase.Outcome{}
	}
	s.outcomes[productID] = outcome
}

func (s *Store) MakePurchase(_ context.Context, request *purchase.Request) (purchase.Outcome, error) {
	s.record(Entry{Kind: "purchase", ProductID: request.ProductID})
	s.mu.Lock()
	defer s.mu.Unlock()
	if outcome, ok := s.outcomes[request.ProductID]; ok {
		return outcome, nil
	}
	return purchase.Purchased(), nil
}

func (s *Store) RestorePurchases(context.Context) (bool, error) {
	s.record(Entry{Kind: "restore"})
	return true, nil
}

// OnPaywallEvent records paywall events, it can be passed to client.WithEventListener
func (s *Store) OnPaywallEvent(_ context.Context, evt *event.Event) {
	s.record(Entry{Kind: "event", Event: evt})
}

// History returns the recorded interactions
func (s *Store) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.history...)
}

func (s *Store) record(entry Entry) {
	entry.Timestamp = time.Now()
	s.mu.Lock()
	s.history = append(s.history, entry)
	s.mu.Unlock()
}

// NewHandler returns a client handler answering with s
func (s *Store) NewHandler(options ...client.HandlerOption) *client.Handler {
	options = append([]client.HandlerOption{client.WithPurchaseHandler(s), client.WithEventListener(s.OnPaywallEvent)}, options...)
	return client.NewHandler(options...)
}
