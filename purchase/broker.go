// Package purchase bridges purchase and restore calls made by the vendor SDK to
// handler logic living in the scripting layer.
//
// A call emits an event carrying a correlation id and blocks until the scripting
// layer answers through HandlePurchaseResponse or HandleRestoreResponse, or until
// the caller's context is done. Entries leave the correlation table exactly once,
// always before the waiting caller is resumed, so late and duplicate responses
// find nothing and are ignored.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viant/paywall/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrInvalidRequest is returned for a purchase without a product id
var ErrInvalidRequest = errors.New("purchase: product id was empty")

// Broker correlates purchase and restore requests with their responses
type Broker struct {
	policy    Policy
	emitter   Emitter
	purchases *store[Outcome]
	restores  *store[bool]
	logger    *zap.Logger
	metrics   *metrics.Collector
	tracer    trace.Tracer
	newID     func() string
	now       func() time.Time
}

// New creates a broker emitting request events with emitter
func New(emitter Emitter, options ...Option) *Broker {
	ret := &Broker{
		emitter:   emitter,
		purchases: newStore[Outcome](),
		restores:  newStore[bool](),
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("github.com/viant/paywall/purchase"),
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Policy returns the pending request policy
func (b *Broker) Policy() Policy {
	return b.policy
}

// MakePurchase emits a make_purchase event and waits for the matching response.
// A done context removes the request and returns ctx.Err().
func (b *Broker) MakePurchase(ctx context.Context, request *Request) (Outcome, error) {
	if request == nil || request.ProductID == "" {
		return Outcome{}, ErrInvalidRequest
	}
	ctx, span := b.tracer.Start(ctx, "purchase.make", trace.WithAttributes(
		attribute.String("product.id", request.ProductID),
		attribute.String("policy", b.policy.String()),
	))
	defer span.End()

	pending := newPending[Outcome](b.newID(), KindPurchase, request, b.now())
	if b.policy == SingleFlight {
		for _, orphan := range b.purchases.Replace(pending) {
			b.logger.Info("orphaned purchase cancelled", zap.String("transaction_id", orphan.ID), zap.String("product_id", orphan.Request.ProductID))
			b.metrics.Orphaned(string(KindPurchase))
			b.metrics.Outcome(string(KindPurchase), string(ResultCancelled))
			orphan.Resume(Cancelled())
		}
	} else {
		b.purchases.Put(pending)
	}
	b.metrics.SetPending(string(KindPurchase), b.purchases.Len())
	span.SetAttributes(attribute.String("transaction.id", pending.ID))

	if err := b.emitter.Emit(ctx, EventMakePurchase, request.payload(pending.ID)); err != nil {
		if _, ok := b.purchases.Take(pending.ID); ok {
			b.metrics.SetPending(string(KindPurchase), b.purchases.Len())
			outcome := Failed(fmt.Sprintf("emit %v: %v", EventMakePurchase, err))
			b.logger.Warn("purchase event not delivered", zap.String("transaction_id", pending.ID), zap.Error(err))
			b.metrics.Outcome(string(KindPurchase), string(outcome.Result))
			span.SetStatus(codes.Error, err.Error())
			return outcome, nil
		}
	}
	b.logger.Debug("purchase started", zap.String("transaction_id", pending.ID), zap.String("product_id", request.ProductID))

	outcome, err := await(ctx, b.purchases, pending)
	b.metrics.SetPending(string(KindPurchase), b.purchases.Len())
	b.metrics.ObserveWait(string(KindPurchase), b.now().Sub(pending.CreatedAt))
	if err != nil {
		b.logger.Info("purchase wait cancelled", zap.String("transaction_id", pending.ID), zap.Error(err))
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	span.SetAttributes(attribute.String("result", string(outcome.Result)))
	return outcome, nil
}

// RestorePurchases emits a restore_purchases event and waits for the matching response.
func (b *Broker) RestorePurchases(ctx context.Context) (bool, error) {
	ctx, span := b.tracer.Start(ctx, "purchase.restore", trace.WithAttributes(
		attribute.String("policy", b.policy.String()),
	))
	defer span.End()

	pending := newPending[bool](b.newID(), KindRestore, nil, b.now())
	if b.policy == SingleFlight {
		for _, orphan := range b.restores.Replace(pending) {
			b.logger.Info("orphaned restore resolved as failed", zap.String("transaction_id", orphan.ID))
			b.metrics.Orphaned(string(KindRestore))
			b.metrics.Outcome(string(KindRestore), "false")
			orphan.Resume(false)
		}
	} else {
		b.restores.Put(pending)
	}
	b.metrics.SetPending(string(KindRestore), b.restores.Len())
	span.SetAttributes(attribute.String("transaction.id", pending.ID))

	if err := b.emitter.Emit(ctx, EventRestorePurchases, restorePayload(pending.ID)); err != nil {
		if _, ok := b.restores.Take(pending.ID); ok {
			b.metrics.SetPending(string(KindRestore), b.restores.Len())
			b.logger.Warn("restore event not delivered", zap.String("transaction_id", pending.ID), zap.Error(err))
			b.metrics.Outcome(string(KindRestore), "false")
			span.SetStatus(codes.Error, err.Error())
			return false, nil
		}
	}

	restored, err := await(ctx, b.restores, pending)
	b.metrics.SetPending(string(KindRestore), b.restores.Len())
	b.metrics.ObserveWait(string(KindRestore), b.now().Sub(pending.CreatedAt))
	if err != nil {
		b.logger.Info("restore wait cancelled", zap.String("transaction_id", pending.ID), zap.Error(err))
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	span.SetAttributes(attribute.Bool("restored", restored))
	return restored, nil
}

// HandlePurchaseResponse resolves the matching purchase; it returns false when
// nothing was pending. A response without a transaction id resolves the only
// outstanding purchase, if there is exactly one.
func (b *Broker) HandlePurchaseResponse(response *Response) bool {
	if response == nil {
		return false
	}
	pending, ok := take(b.purchases, response.TransactionID)
	if !ok {
		b.logger.Debug("stale purchase response ignored", zap.String("transaction_id", response.TransactionID), zap.String("status", response.Status))
		b.metrics.Stale(string(KindPurchase))
		return false
	}
	outcome := ParseOutcome(response.Status, response.Error)
	b.metrics.SetPending(string(KindPurchase), b.purchases.Len())
	b.metrics.Outcome(string(KindPurchase), string(outcome.Result))
	b.logger.Debug("purchase resolved", zap.String("transaction_id", pending.ID), zap.Stringer("outcome", outcome))
	pending.Resume(outcome)
	return true
}

// HandleRestoreResponse resolves the matching restore; it returns false when nothing was pending.
func (b *Broker) HandleRestoreResponse(response *Response) bool {
	if response == nil {
		return false
	}
	pending, ok := take(b.restores, response.TransactionID)
	if !ok {
		b.logger.Debug("stale restore response ignored", zap.String("transaction_id", response.TransactionID), zap.String("status", response.Status))
		b.metrics.Stale(string(KindRestore))
		return false
	}
	restored := ParseRestored(response.Status)
	b.metrics.SetPending(string(KindRestore), b.restores.Len())
	b.metrics.Outcome(string(KindRestore), fmt.Sprintf("%v", restored))
	b.logger.Debug("restore resolved", zap.String("transaction_id", pending.ID), zap.Bool("restored", restored))
	pending.Resume(restored)
	return true
}

// Pending returns the number of outstanding requests of a kind
func (b *Broker) Pending(kind Kind) int {
	if kind == KindRestore {
		return b.restores.Len()
	}
	return b.purchases.Len()
}

// Reset orphans every outstanding request: purchases resolve as cancelled, restores as false.
func (b *Broker) Reset() int {
	count := 0
	for _, orphan := range b.purchases.TakeAll() {
		b.metrics.Orphaned(string(KindPurchase))
		orphan.Resume(Cancelled())
		count++
	}
	for _, orphan := range b.restores.TakeAll() {
		b.metrics.Orphaned(string(KindRestore))
		orphan.Resume(false)
		count++
	}
	b.metrics.SetPending(string(KindPurchase), 0)
	b.metrics.SetPending(string(KindRestore), 0)
	if count > 0 {
		b.logger.Info("pending requests reset", zap.Int("count", count))
	}
	return count
}

func take[T any](s *store[T], id string) (*Pending[T], bool) {
	if id != "" {
		return s.Take(id)
	}
	return s.TakeOnly()
}

// await blocks until the entry is resumed or ctx is done. When ctx wins but the
// entry is already gone, a resolver removed it and its value is on the way.
func await[T any](ctx context.Context, s *store[T], p *Pending[T]) (T, error) {
	select {
	case value := <-p.resume:
		return value, nil
	case <-ctx.Done():
		if _, ok := s.Take(p.ID); ok {
			var zero T
			return zero, ctx.Err()
		}
		return <-p.resume, nil
	}
}
