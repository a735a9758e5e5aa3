package purchase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/paywall/metrics"
)

type emitted struct {
	name    string
	payload map[string]interface{}
}

// recorder captures emitted events so tests can answer them
type recorder struct {
	events chan emitted
	err    error
}

func newRecorder() *recorder {
	return &recorder{events: make(chan emitted, 16)}
}

func (r *recorder) Emit(ctx context.Context, name string, payload map[string]interface{}) error {
	if r.err != nil {
		return r.err
	}
	r.events <- emitted{name: name, payload: payload}
	return nil
}

func (r *recorder) next(t *testing.T) emitted {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event emitted")
	}
	return emitted{}
}

type purchaseResult struct {
	outcome Outcome
	err     error
}

func startPurchase(b *Broker, productID string) chan purchaseResult {
	ret := make(chan purchaseResult, 1)
	go func() {
		outcome, err := b.MakePurchase(context.Background(), &Request{ProductID: productID})
		ret <- purchaseResult{outcome: outcome, err: err}
	}()
	return ret
}

func receive[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("caller was not resumed")
	}
	var zero T
	return zero
}

func TestBroker_MakePurchase(t *testing.T) {
	var testCases = []struct {
		description string
		status      string
		error       string
		expect      Outcome
	}{
		{description: "purchased", status: "purchased", expect: Purchased()},
		{description: "completed", status: "completed", expect: Purchased()},
		{description: "restored maps to purchased", status: "Restored", expect: Purchased()},
		{description: "cancelled", status: "cancelled", expect: Cancelled()},
		{description: "pending", status: "pending", expect: Deferred()},
		{description: "failed with reason", status: "failed", error: "card declined", expect: Failed("card declined")},
		{description: "failed without reason", status: "failed", expect: Failed("Unexpected error.")},
		{description: "unknown status", status: "bogus", expect: Failed("Unknown status: bogus")},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			events := newRecorder()
			broker := New(events)
			result := startPurchase(broker, "sku_1")
			evt := events.next(t)
			assert.Equal(t, EventMakePurchase, evt.name)
			assert.Equal(t, "sku_1", evt.payload["productId"])
			assert.Equal(t, StatusStarting, evt.payload["status"])
			id, _ := evt.payload["transactionId"].(string)
			require.NotEmpty(t, id)

			assert.True(t, broker.HandlePurchaseResponse(&Response{TransactionID: id, Status: testCase.status, Error: testCase.error}))
			actual := receive(t, result)
			require.NoError(t, actual.err)
			assert.Equal(t, testCase.expect, actual.outcome)
			assert.Equal(t, 0, broker.Pending(KindPurchase))
		})
	}
}

func TestBroker_UnknownStatusHasReason(t *testing.T) {
	outcome := ParseOutcome("bogus", "")
	assert.Equal(t, ResultFailed, outcome.Result)
	assert.NotEmpty(t, outcome.Reason)
}

func TestBroker_ResumeOnce(t *testing.T) {
	events := newRecorder()
	broker := New(events)
	result := startPurchase(broker, "sku_1")
	id := events.next(t).payload["transactionId"].(string)

	assert.True(t, broker.HandlePurchaseResponse(&Response{TransactionID: id, Status: "purchased"}))
	assert.False(t, broker.HandlePurchaseResponse(&Response{TransactionID: id, Status: "cancelled"}))
	assert.Equal(t, Purchased(), receive(t, result).outcome)
}

func TestBroker_StaleResponse(t *testing.T) {
	collector := metrics.New(metrics.Config{})
	broker := New(newRecorder(), WithMetrics(collector))
	assert.False(t, broker.HandlePurchaseResponse(&Response{TransactionID: "missing", Status: "purchased"}))
	assert.False(t, broker.HandlePurchaseResponse(&Response{Status: "purchased"}))
	assert.False(t, broker.HandleRestoreResponse(&Response{Status: "restored"}))
	assert.False(t, broker.HandlePurchaseResponse(nil))
	assert.Equal(t, 0, broker.Pending(KindPurchase))
	assert.Equal(t, 2.0, counterValue(t, collector, "paywall_broker_stale_responses_total", "purchase"))
}

func TestBroker_SingleFlightOrphans(t *testing.T) {
	events := newRecorder()
	broker := New(events)
	first := startPurchase(broker, "sku_a")
	firstEvt := events.next(t)
	second := startPurchase(broker, "sku_b")
	secondEvt := events.next(t)

	assert.Equal(t, Cancelled(), receive(t, first).outcome)
	assert.Equal(t, "sku_b", secondEvt.payload["productId"])
	assert.Equal(t, 1, broker.Pending(KindPurchase))

	// the orphan's id no longer resolves anything
	assert.False(t, broker.HandlePurchaseResponse(&Response{TransactionID: firstEvt.payload["transactionId"].(string), Status: "purchased"}))
	assert.True(t, broker.HandlePurchaseResponse(&Response{TransactionID: secondEvt.payload["transactionId"].(string), Status: "failed", Error: "declined"}))
	assert.Equal(t, Failed("declined"), receive(t, second).outcome)
}

func TestBroker_SingleFlightOverlappingCalls(t *testing.T) {
	var testCases = []struct {
		description string
		restore     bool
	}{
		{description: "purchase"},
		{description: "restore", restore: true},
	}
	for _, testCase := range testCases {
		events := newRecorder()
		entered := make(chan struct{})
		release := make(chan struct{})
		var calls atomic.Int32
		broker := New(events, WithIDGenerator(func() string {
			n := calls.Add(1)
			if n == 1 {
				close(entered)
				<-release
			}
			return fmt.Sprintf("tx-%d", n)
		}))
		kind := KindPurchase
		start := func(productID string) chan bool {
			ret := make(chan bool, 1)
			go func() {
				if testCase.restore {
					restored, _ := broker.RestorePurchases(context.Background())
					ret <- restored
					return
				}
				outcome, _ := broker.MakePurchase(context.Background(), &Request{ProductID: productID})
				ret <- outcome.Result == ResultPurchased
			}()
			return ret
		}
		if testCase.restore {
			kind = KindRestore
		}

		first := start("sku_a")
		<-entered
		second := start("sku_b")
		assert.Equal(t, "tx-2", events.next(t).payload["transactionId"], testCase.description)
		close(release)
		assert.Equal(t, "tx-1", events.next(t).payload["transactionId"], testCase.description)

		assert.False(t, receive(t, second), testCase.description)
		assert.Equal(t, 1, broker.Pending(kind), testCase.description)
		if testCase.restore {
			assert.True(t, broker.HandleRestoreResponse(&Response{TransactionID: "tx-1", Status: "restored"}), testCase.description)
		} else {
			assert.True(t, broker.HandlePurchaseResponse(&Response{TransactionID: "tx-1", Status: "purchased"}), testCase.description)
		}
		assert.True(t, receive(t, first), testCase.description)
		assert.Equal(t, 0, broker.Pending(kind), testCase.description)
	}
}

func TestBroker_Concurrent(t *testing.T) {
	events := newRecorder()
	broker := New(events, WithPolicy(Concurrent))
	first := startPurchase(broker, "sku_a")
	firstID := events.next(t).payload["transactionId"].(string)
	second := startPurchase(broker, "sku_b")
	secondID := events.next(t).payload["transactionId"].(string)
	assert.Equal(t, 2, broker.Pending(KindPurchase))

	// without an id nothing is resolved while two are outstanding
	assert.False(t, broker.HandlePurchaseResponse(&Response{Status: "purchased"}))

	assert.True(t, broker.HandlePurchaseResponse(&Response{TransactionID: secondID, Status: "cancelled"}))
	assert.True(t, broker.HandlePurchaseResponse(&Response{TransactionID: firstID, Status: "purchased"}))
	assert.Equal(t, Purchased(), receive(t, first).outcome)
	assert.Equal(t, Cancelled(), receive(t, second).outcome)
}

func TestBroker_ResponseWithoutTransactionID(t *testing.T) {
	events := newRecorder()
	broker := New(events)
	result := startPurchase(broker, "sku_1")
	events.next(t)
	assert.True(t, broker.HandlePurchaseResponse(&Response{Status: "purchased"}))
	assert.Equal(t, Purchased(), receive(t, result).outcome)
}

func TestBroker_Cancellation(t *testing.T) {
	events := newRecorder()
	broker := New(events)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan purchaseResult, 1)
	go func() {
		outcome, err := broker.MakePurchase(ctx, &Request{ProductID: "sku_1"})
		result <- purchaseResult{outcome: outcome, err: err}
	}()
	id := events.next(t).payload["transactionId"].(string)
	cancel()

	actual := receive(t, result)
	assert.True(t, errors.Is(actual.err, context.Canceled))
	assert.True(t, actual.outcome.IsZero())
	assert.Equal(t, 0, broker.Pending(KindPurchase))
	assert.False(t, broker.HandlePurchaseResponse(&Response{TransactionID: id, Status: "purchased"}))
}

func TestBroker_EmitFailure(t *testing.T) {
	events := newRecorder()
	events.err = fmt.Errorf("no connection")
	broker := New(events)

	outcome, err := broker.MakePurchase(context.Background(), &Request{ProductID: "sku_1"})
	require.NoError(t, err)
	assert.Equal(t, Failed("emit make_purchase: no connection"), outcome)

	restored, err := broker.RestorePurchases(context.Background())
	require.NoError(t, err)
	assert.False(t, restored)
	assert.Equal(t, 0, broker.Pending(KindPurchase))
	assert.Equal(t, 0, broker.Pending(KindRestore))
}

func TestBroker_InvalidRequest(t *testing.T) {
	broker := New(newRecorder())
	_, err := broker.MakePurchase(context.Background(), &Request{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestBroker_RestorePurchases(t *testing.T) {
	var testCases = []struct {
		description string
		status      string
		expect      bool
	}{
		{description: "restored", status: "restored", expect: true},
		{description: "failed", status: "failed", expect: false},
		{description: "unknown", status: "whatever", expect: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			events := newRecorder()
			broker := New(events)
			result := make(chan bool, 1)
			go func() {
				restored, _ := broker.RestorePurchases(context.Background())
				result <- restored
			}()
			evt := events.next(t)
			assert.Equal(t, EventRestorePurchases, evt.name)
			assert.True(t, broker.HandleRestoreResponse(&Response{TransactionID: evt.payload["transactionId"].(string), Status: testCase.status}))
			assert.Equal(t, testCase.expect, receive(t, result))
		})
	}
}

func TestBroker_PurchaseAndRestoreDoNotOrphanEachOther(t *testing.T) {
	events := newRecorder()
	broker := New(events)
	purchase := startPurchase(broker, "sku_1")
	events.next(t)
	restore := make(chan bool, 1)
	go func() {
		restored, _ := broker.RestorePurchases(context.Background())
		restore <- restored
	}()
	events.next(t)
	assert.Equal(t, 1, broker.Pending(KindPurchase))
	assert.Equal(t, 1, broker.Pending(KindRestore))

	assert.True(t, broker.HandleRestoreResponse(&Response{Status: "restored"}))
	assert.True(t, broker.HandlePurchaseResponse(&Response{Status: "purchased"}))
	assert.True(t, receive(t, restore))
	assert.Equal(t, Purchased(), receive(t, purchase).outcome)
}

func TestBroker_Reset(t *testing.T) {
	events := newRecorder()
	broker := New(events, WithPolicy(Concurrent))
	first := startPurchase(broker, "sku_a")
	events.next(t)
	second := startPurchase(broker, "sku_b")
	events.next(t)

	assert.Equal(t, 2, broker.Reset())
	assert.Equal(t, Cancelled(), receive(t, first).outcome)
	assert.Equal(t, Cancelled(), receive(t, second).outcome)
	assert.Equal(t, 0, broker.Reset())
}

func TestBroker_IDGenerator(t *testing.T) {
	events := newRecorder()
	broker := New(events, WithIDGenerator(func() string { return "tx-1" }))
	result := startPurchase(broker, "sku_1")
	assert.Equal(t, "tx-1", events.next(t).payload["transactionId"])
	assert.True(t, broker.HandlePurchaseResponse(&Response{TransactionID: "tx-1", Status: "purchased"}))
	assert.Equal(t, Purchased(), receive(t, result).outcome)
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, Concurrent, ParsePolicy("Concurrent"))
	assert.Equal(t, SingleFlight, ParsePolicy("singleFlight"))
	assert.Equal(t, SingleFlight, ParsePolicy(""))
}

func counterValue(t *testing.T, collector *metrics.Collector, name, kind string) float64 {
	t.Helper()
	families, err := collector.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "kind" && label.GetValue() == kind {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
