package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/jsonrpc"
	"github.com/viant/paywall/bridge"
	"github.com/viant/paywall/metrics"
	"github.com/viant/paywall/purchase"
	"github.com/viant/paywall/schema"
	"github.com/viant/paywall/sdk/simulator"
)

// events records server notifications delivered to an in-process client
type events struct {
	mu       sync.Mutex
	received []*jsonrpc.Notification
	signal   chan *jsonrpc.Notification
	respond  func(ctx context.Context, notification *jsonrpc.Notification)
}

func newEvents() *events {
	return &events{signal: make(chan *jsonrpc.Notification, 128)}
}

func (e *events) Serve(_ context.Context, _ *jsonrpc.Request, response *jsonrpc.Response) {
	response.Error = jsonrpc.NewMethodNotFound("not supported", nil)
}

func (e *events) OnNotification(ctx context.Context, notification *jsonrpc.Notification) {
	e.mu.Lock()
	e.received = append(e.received, notification)
	respond := e.respond
	e.mu.Unlock()
	if respond != nil {
		respond(ctx, notification)
	}
	select {
	case e.signal <- notification:
	default:
	}
}

func (e *events) await(t *testing.T, method, eventType string) map[string]interface{} {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case n := <-e.signal:
			if n.Method != method {
				continue
			}
			payload := map[string]interface{}{}
			require.NoError(t, json.Unmarshal(n.Params, &payload))
			if eventType == "" || payload["type"] == eventType {
				return payload
			}
		case <-timeout:
			t.Fatalf("no %v %v notification", method, eventType)
			return nil
		}
	}
}

type fixture struct {
	server    *Server
	adapter   *Adapter
	events    *events
	simulator *simulator.Simulator
	collector *metrics.Collector
	nextID    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	collector := metrics.New(metrics.Config{})
	hub := NewHub(nil)
	sim := simulator.New(simulator.WithTriggers(simulator.Trigger{Name: "onboarding", Paywall: "onboarding_v1", Products: []string{"sku_a", "sku_b"}}))
	broker := purchase.New(hub, purchase.WithMetrics(collector))
	service := bridge.New(sim, broker, hub, bridge.WithMetrics(collector))
	srv, err := New(service, hub, WithMetrics(collector), WithVersion("1.2.3"))
	require.NoError(t, err)
	received := newEvents()
	return &fixture{
		server:    srv,
		adapter:   srv.AsClient(ctx, received),
		events:    received,
		simulator: sim,
		collector: collector,
	}
}

func (f *fixture) call(t *testing.T, method string, params interface{}) *jsonrpc.Response {
	t.Helper()
	request, err := jsonrpc.NewRequest(method, params)
	require.NoError(t, err)
	f.nextID++
	request.Id = f.nextID
	response, err := f.adapter.Send(context.Background(), request)
	require.NoError(t, err)
	return response
}

func (f *fixture) initialize(t *testing.T) {
	t.Helper()
	response := f.call(t, schema.MethodInitialize, &schema.InitializeParams{Config: map[string]interface{}{"apiKey": "k1"}})
	require.Nil(t, response.Error)
}

func decodeResult[T any](t *testing.T, response *jsonrpc.Response) *T {
	t.Helper()
	require.Nil(t, response.Error)
	ret := new(T)
	require.NoError(t, json.Unmarshal(response.Result, ret))
	return ret
}

func TestHandler_Serve(t *testing.T) {
	var testCases = []struct {
		description string
		method      string
		params      interface{}
		initialized bool
		expectCode  int
	}{
		{description: "unknown method", method: "bogus", expectCode: -32601},
		{description: "present before initialize", method: schema.MethodPresentUpsell, params: &schema.PresentUpsellParams{Trigger: "onboarding"}, expectCode: schema.NotInitialized},
		{description: "simulate before initialize", method: schema.MethodSimulatePurchase, params: &schema.SimulatePurchaseParams{Trigger: "onboarding"}, expectCode: schema.NotInitialized},
		{description: "initialize without api key", method: schema.MethodInitialize, params: &schema.InitializeParams{Config: map[string]interface{}{}}, expectCode: -32602},
		{description: "paywall info for unknown trigger", method: schema.MethodGetPaywallInfo, params: &schema.TriggerParams{Trigger: "missing"}, initialized: true, expectCode: schema.PaywallNotReady},
		{description: "present without trigger", method: schema.MethodPresentUpsell, params: &schema.PresentUpsellParams{}, initialized: true, expectCode: -32602},
		{description: "custom action without action", method: schema.MethodSimulateCustomAction, params: &schema.SimulateCustomActionParams{Trigger: "onboarding"}, initialized: true, expectCode: -32602},
		{description: "ping", method: schema.MethodPing},
		{description: "download status", method: schema.MethodGetDownloadStatus},
	}
	for _, testCase := range testCases {
		f := newFixture(t)
		if testCase.initialized {
			f.initialize(t)
		}
		response := f.call(t, testCase.method, testCase.params)
		if testCase.expectCode == 0 {
			assert.Nil(t, response.Error, testCase.description)
			continue
		}
		if !assert.NotNil(t, response.Error, testCase.description) {
			continue
		}
		assert.EqualValues(t, testCase.expectCode, response.Error.Code, testCase.description)
	}
}

func TestHandler_InvalidVersion(t *testing.T) {
	f := newFixture(t)
	response, err := f.adapter.Send(context.Background(), &jsonrpc.Request{Jsonrpc: "1.0", Method: schema.MethodPing, Id: 1})
	require.NoError(t, err)
	require.NotNil(t, response.Error)
	assert.EqualValues(t, -32600, response.Error.Code)
}

func TestHandler_Initialize(t *testing.T) {
	f := newFixture(t)
	response := f.call(t, schema.MethodInitialize, map[string]interface{}{"apiKey": "k1", "environment": "SANDBOX"})
	result := decodeResult[schema.InitializeResult](t, response)
	assert.Equal(t, "success", result.DownloadStatus)
	assert.False(t, result.AlreadyStarted)
	assert.True(t, result.Simulated)
	assert.Equal(t, "sandbox", f.server.Service().Config().Environment.String())

	state := f.events.await(t, schema.EventDownloadStateChanged, "")
	assert.Equal(t, "inProgress", state["status"])

	result = decodeResult[schema.InitializeResult](t, f.call(t, schema.MethodInitialize, &schema.InitializeParams{Config: map[string]interface{}{"apiKey": "k2"}}))
	assert.True(t, result.AlreadyStarted)

	ping := decodeResult[schema.PingResult](t, f.call(t, schema.MethodPing, nil))
	assert.Equal(t, "1.2.3", ping.Version)
}

func TestServer_PurchaseRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.events.respond = func(ctx context.Context, notification *jsonrpc.Notification) {
		if notification.Method != schema.EventMakePurchase {
			return
		}
		request := map[string]interface{}{}
		if err := json.Unmarshal(notification.Params, &request); err != nil {
			return
		}
		go func() {
			response, _ := json.Marshal(&purchase.Response{TransactionID: request["transactionId"].(string), Status: "purchased"})
			_ = f.adapter.Notify(ctx, &jsonrpc.Notification{Method: schema.MethodHandlePurchaseResponse, Params: response})
		}()
	}
	f.initialize(t)

	present := f.call(t, schema.MethodPresentUpsell, &schema.PresentUpsellParams{Trigger: "onboarding"})
	require.Nil(t, present.Error)
	opened := f.events.await(t, schema.EventPaywallHandlers, "paywallOpen")
	assert.Equal(t, "onboarding", opened["triggerName"])

	accepted := decodeResult[schema.SimulateResult](t, f.call(t, schema.MethodSimulatePurchase, &schema.SimulatePurchaseParams{Trigger: "onboarding", ProductID: "sku_a"}))
	assert.True(t, accepted.Accepted)

	requested := f.events.await(t, schema.EventMakePurchase, "")
	assert.Equal(t, "sku_a", requested["productId"])
	assert.Equal(t, "starting", requested["status"])

	succeeded := f.events.await(t, schema.EventPaywall, "purchaseSucceeded")
	assert.Equal(t, "sku_a", succeeded["productId"])
	assert.Equal(t, "sku_a", succeeded["productKey"])
	assert.Equal(t, 0, f.server.Service().Broker().Pending(purchase.KindPurchase))
}

func TestServer_HandlePurchaseResponseWithoutPending(t *testing.T) {
	f := newFixture(t)
	result := decodeResult[schema.ResponseResult](t, f.call(t, schema.MethodHandlePurchaseResponse, &purchase.Response{TransactionID: "missing", Status: "purchased"}))
	assert.False(t, result.Matched)
	result = decodeResult[schema.ResponseResult](t, f.call(t, schema.MethodHandleRestoreResponse, &purchase.Response{Status: "restored"}))
	assert.False(t, result.Matched)
}

func TestServer_Queries(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	names := decodeResult[schema.TriggerNamesResult](t, f.call(t, schema.MethodGetFetchedTriggerNames, nil))
	assert.Equal(t, []string{"onboarding"}, names.TriggerNames)

	info := decodeResult[schema.PaywallInfoResult](t, f.call(t, schema.MethodGetPaywallInfo, &schema.TriggerParams{Trigger: "onboarding"}))
	assert.Equal(t, "onboarding_v1", info.PaywallTemplateName)

	gate := decodeResult[schema.CanPresentUpsellResult](t, f.call(t, schema.MethodCanPresentUpsell, &schema.TriggerParams{Trigger: "onboarding"}))
	assert.True(t, gate.CanPresent)

	mode := decodeResult[schema.LightDarkModeParams](t, f.call(t, schema.MethodSetLightDarkModeOverride, &schema.LightDarkModeParams{Mode: "sepia"}))
	assert.Equal(t, "system", mode.Mode)

	entitlement := decodeResult[schema.EntitlementResult](t, f.call(t, schema.MethodHasAnyEntitlement, nil))
	require.NotNil(t, entitlement.HasEntitlement)
	assert.False(t, *entitlement.HasEntitlement)

	require.Nil(t, f.call(t, schema.MethodSetCustomUserID, &schema.UserIDParams{UserID: "u1"}).Error)
	assert.Equal(t, "u1", f.simulator.State().CustomUserID)

	require.Nil(t, f.call(t, schema.MethodResetHelium, nil).Error)
	assert.False(t, f.server.Service().Initialized())
}

func TestHandler_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	active, _ := newActiveContext(ctx, cancel, &jsonrpc.Request{Id: float64(7), Method: schema.MethodHasAnyEntitlement})
	f.adapter.handler.activeContexts.Put("7", active)

	params, _ := json.Marshal(&schema.CancelledParams{RequestID: 7, Reason: "user left"})
	assert.Nil(t, f.adapter.handler.Cancel(ctx, &jsonrpc.Notification{Method: schema.MethodNotificationCancel, Params: params}))
	assert.ErrorIs(t, active.Err(), context.Canceled)
	_, ok := f.adapter.handler.activeContexts.Get("7")
	assert.False(t, ok)

	params, _ = json.Marshal(&schema.CancelledParams{})
	assert.NotNil(t, f.adapter.handler.Cancel(ctx, &jsonrpc.Notification{Method: schema.MethodNotificationCancel, Params: params}))
}

func TestHub_Emit(t *testing.T) {
	hub := NewHub(nil)
	err := hub.Emit(context.Background(), schema.EventPaywall, map[string]interface{}{"type": "paywallOpen"})
	assert.ErrorIs(t, err, ErrNoConnection)
	assert.False(t, hub.Connected())

	received := newEvents()
	link := &loopback{events: received, queue: make(chan *jsonrpc.Notification, 1)}
	hub.Attach(link)
	assert.True(t, hub.Connected())
	require.NoError(t, hub.Emit(context.Background(), schema.EventPaywall, map[string]interface{}{"type": "paywallOpen"}))
	notification := <-link.queue
	assert.Equal(t, schema.EventPaywall, notification.Method)
	assert.JSONEq(t, `{"type":"paywallOpen"}`, string(notification.Params))

	hub.Detach(&loopback{})
	assert.True(t, hub.Connected())
	hub.Detach(link)
	assert.False(t, hub.Connected())
}

func TestServer_HTTP(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, WithCORS(&Cors{AllowOrigins: []string{"https://app.example.com"}, AllowHeaders: []string{"*"}})(f.server))
	handler := f.server.HTTP(context.Background(), "").Handler

	var testCases = []struct {
		description  string
		method       string
		path         string
		origin       string
		expectStatus int
		expectHeader string
	}{
		{description: "health", method: http.MethodGet, path: "/healthz", expectStatus: http.StatusOK},
		{description: "metrics", method: http.MethodGet, path: f.collector.Path(), expectStatus: http.StatusOK},
		{description: "foreign origin", method: http.MethodPost, path: "/rpc", origin: "https://evil.example.com", expectStatus: http.StatusForbidden, expectHeader: "1.2.3"},
		{description: "preflight", method: http.MethodOptions, path: "/rpc", origin: "https://app.example.com", expectStatus: http.StatusNoContent, expectHeader: "1.2.3"},
	}
	for _, testCase := range testCases {
		request := httptest.NewRequest(testCase.method, testCase.path, nil)
		if testCase.origin != "" {
			request.Header.Set("Origin", testCase.origin)
			request.Header.Set(AllControlRequestHeader, http.MethodPost)
		}
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		assert.Equal(t, testCase.expectStatus, recorder.Code, testCase.description)
		if testCase.expectHeader != "" {
			assert.Equal(t, testCase.expectHeader, recorder.Header().Get(VersionHeader), testCase.description)
		}
	}
}

func TestCorsPolicy_Middleware(t *testing.T) {
	maxAge := int64(600)
	var testCases = []struct {
		description  string
		cors         *Cors
		method       string
		origin       string
		expectStatus int
		expectOrigin string
		expectAllow  string
	}{
		{description: "disabled", method: http.MethodPost, origin: "https://any.example.com", expectStatus: http.StatusOK},
		{description: "wildcard echoes origin", cors: DefaultCors(), method: http.MethodPost, origin: "https://app.example.com", expectStatus: http.StatusOK, expectOrigin: "https://app.example.com", expectAllow: "Content-Type, Authorization, Mcp-Session-Id, " + VersionHeader},
		{description: "wildcard without origin", cors: DefaultCors(), method: http.MethodGet, expectStatus: http.StatusOK, expectOrigin: "*"},
		{description: "listed origin preflight", cors: &Cors{AllowOrigins: []string{"https://app.example.com"}, AllowHeaders: []string{"X-Trace"}, MaxAge: &maxAge}, method: http.MethodOptions, origin: "https://app.example.com", expectStatus: http.StatusNoContent, expectOrigin: "https://app.example.com", expectAllow: "X-Trace"},
		{description: "foreign origin", cors: &Cors{AllowOrigins: []string{"https://app.example.com"}}, method: http.MethodPost, origin: "https://evil.example.com", expectStatus: http.StatusForbidden},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	for _, testCase := range testCases {
		handler := newCorsPolicy(testCase.cors).Middleware(next)
		request := httptest.NewRequest(testCase.method, "/rpc", nil)
		if testCase.origin != "" {
			request.Header.Set("Origin", testCase.origin)
		}
		if testCase.method == http.MethodOptions {
			request.Header.Set(AllControlRequestHeader, http.MethodPost)
		}
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		assert.Equal(t, testCase.expectStatus, recorder.Code, testCase.description)
		assert.Equal(t, testCase.expectOrigin, recorder.Header().Get(AllowOriginHeader), testCase.description)
		assert.Equal(t, testCase.expectAllow, recorder.Header().Get(AllowHeadersHeader), testCase.description)
	}
}

func TestServer_Stdio(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, WithStdioOptions()(f.server))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NotNil(t, f.server.Stdio(ctx))
}
