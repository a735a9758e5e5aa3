package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/jsonrpc"
	"github.com/viant/paywall/purchase"
	"github.com/viant/paywall/schema"
	"github.com/viant/paywall/sdk"
	"github.com/viant/paywall/session"
)

// mockTransport records requests and notifications sent by the client
type mockTransport struct {
	mu            sync.Mutex
	requests      []*jsonrpc.Request
	notifications []*jsonrpc.Notification
	send          func(request *jsonrpc.Request) *jsonrpc.Response
}

func (m *mockTransport) Notify(_ context.Context, notification *jsonrpc.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, notification)
	return nil
}

func (m *mockTransport) Send(_ context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, request)
	m.mu.Unlock()
	if m.send != nil {
		return m.send(request), nil
	}
	return &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Id: request.Id, Result: []byte(`{}`)}, nil
}

func (m *mockTransport) methods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ret []string
	for _, request := range m.requests {
		ret = append(ret, request.Method)
	}
	return ret
}

func (m *mockTransport) lastNotification() *jsonrpc.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.notifications) == 0 {
		return nil
	}
	return m.notifications[len(m.notifications)-1]
}

func result(request *jsonrpc.Request, value interface{}) *jsonrpc.Response {
	data, _ := json.Marshal(value)
	return &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Id: request.Id, Result: data}
}

func TestClient_Initialize(t *testing.T) {
	var sent schema.InitializeParams
	mock := &mockTransport{send: func(request *jsonrpc.Request) *jsonrpc.Response {
		if request.Method == schema.MethodInitialize {
			_ = json.Unmarshal(request.Params, &sent)
			return result(request, &schema.InitializeResult{DownloadStatus: "inProgress"})
		}
		return result(request, &schema.EmptyResult{})
	}}
	cli := New(mock)

	err := cli.HideAllUpsells(context.Background())
	require.Error(t, err)
	assert.Empty(t, mock.methods())

	initialized, err := cli.Initialize(context.Background(), map[string]interface{}{"apiKey": "k1", "useDefaultDelegate": true}, nil)
	require.NoError(t, err)
	assert.False(t, initialized.AlreadyStarted)
	assert.Equal(t, "__bool_true__", sent.Config["useDefaultDelegate"])
	assert.Equal(t, sdk.DownloadInProgress, cli.DownloadStatus())

	again, err := cli.Initialize(context.Background(), map[string]interface{}{"apiKey": "k2"}, nil)
	require.NoError(t, err)
	assert.True(t, again.AlreadyStarted)
	assert.Equal(t, []string{schema.MethodInitialize}, mock.methods())

	require.NoError(t, cli.HideAllUpsells(context.Background()))
	require.NoError(t, cli.ResetHelium(context.Background()))
	assert.Equal(t, sdk.DownloadNotStarted, cli.DownloadStatus())
	assert.Error(t, cli.HideAllUpsells(context.Background()))
}

func TestClient_PresentUpsell(t *testing.T) {
	var testCases = []struct {
		description    string
		canPresent     bool
		presentError   *jsonrpc.Error
		expectMethods  []string
		expectFallback bool
		expectError    bool
		expectSession  bool
	}{
		{
			description:   "presented",
			canPresent:    true,
			expectMethods: []string{schema.MethodInitialize, schema.MethodCanPresentUpsell, schema.MethodPresentUpsell},
			expectSession: true,
		},
		{
			description:    "cannot present",
			expectMethods:  []string{schema.MethodInitialize, schema.MethodCanPresentUpsell, schema.MethodFallbackOpenOrCloseEvent},
			expectFallback: true,
		},
		{
			description:    "present failed",
			canPresent:     true,
			presentError:   jsonrpc.NewInternalError("boom", nil),
			expectMethods:  []string{schema.MethodInitialize, schema.MethodCanPresentUpsell, schema.MethodPresentUpsell, schema.MethodFallbackOpenOrCloseEvent},
			expectFallback: true,
			expectError:    true,
		},
	}
	for _, testCase := range testCases {
		var fallbackParams schema.FallbackOpenOrCloseParams
		mock := &mockTransport{send: func(request *jsonrpc.Request) *jsonrpc.Response {
			switch request.Method {
			case schema.MethodCanPresentUpsell:
				return result(request, &schema.CanPresentUpsellResult{CanPresent: testCase.canPresent, Reason: "not ready"})
			case schema.MethodPresentUpsell:
				if testCase.presentError != nil {
					return &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Id: request.Id, Error: testCase.presentError}
				}
			case schema.MethodFallbackOpenOrCloseEvent:
				_ = json.Unmarshal(request.Params, &fallbackParams)
			}
			return result(request, &schema.EmptyResult{})
		}}
		cli := New(mock)
		_, err := cli.Initialize(context.Background(), map[string]interface{}{"apiKey": "k1"}, nil)
		require.NoError(t, err)

		fellBack := false
		err = cli.PresentUpsell(context.Background(), &PresentParams{
			Trigger:    "onboarding",
			Handlers:   &session.HandlerSet{},
			OnFallback: func() { fellBack = true },
		})
		assert.Equal(t, testCase.expectError, err != nil, testCase.description)
		assert.Equal(t, testCase.expectMethods, mock.methods(), testCase.description)
		assert.Equal(t, testCase.expectFallback, fellBack, testCase.description)
		assert.Equal(t, testCase.expectSession, cli.Handler().Tracker().Active() != nil, testCase.description)
		if testCase.expectFallback {
			assert.Equal(t, schema.FallbackOpenOrCloseParams{Trigger: "onboarding", IsOpen: true, ViewType: "presented"}, fallbackParams, testCase.description)
		}
	}
}

func TestClient_PresentUpsellInvalidParams(t *testing.T) {
	var testCases = []struct {
		description string
		params      *PresentParams
	}{
		{description: "nil params"},
		{description: "empty trigger", params: &PresentParams{}},
	}
	for _, testCase := range testCases {
		mock := &mockTransport{send: func(request *jsonrpc.Request) *jsonrpc.Response {
			return result(request, &schema.EmptyResult{})
		}}
		cli := New(mock)
		_, err := cli.Initialize(context.Background(), map[string]interface{}{"apiKey": "k1"}, nil)
		require.NoError(t, err, testCase.description)
		assert.ErrorIs(t, cli.PresentUpsell(context.Background(), testCase.params), ErrInvalidPresent, testCase.description)
		assert.Equal(t, []string{schema.MethodInitialize}, mock.methods(), testCase.description)
		assert.Nil(t, cli.Handler().Tracker().Active(), testCase.description)
	}
}

func TestClient_GetPaywallInfo(t *testing.T) {
	mock := &mockTransport{send: func(request *jsonrpc.Request) *jsonrpc.Response {
		switch request.Method {
		case schema.MethodGetPaywallInfo:
			params := &schema.TriggerParams{}
			_ = json.Unmarshal(request.Params, params)
			if params.Trigger != "onboarding" {
				return &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Id: request.Id, Error: schema.NewPaywallNotReady(params.Trigger)}
			}
			return result(request, &sdk.PaywallInfo{PaywallTemplateName: "onboarding_v1", ShouldShow: true})
		case schema.MethodHasAnyEntitlement:
			return &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Id: request.Id, Error: schema.NewNotSupported(request.Method)}
		}
		return result(request, &schema.InitializeResult{DownloadStatus: "success"})
	}}
	cli := New(mock)
	_, err := cli.Initialize(context.Background(), map[string]interface{}{"apiKey": "k1"}, nil)
	require.NoError(t, err)

	info, err := cli.GetPaywallInfo(context.Background(), "onboarding")
	require.NoError(t, err)
	assert.Equal(t, "onboarding_v1", info.PaywallTemplateName)

	info, err = cli.GetPaywallInfo(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, info)

	_, err = cli.HasAnyEntitlement(context.Background())
	assert.True(t, isCode(err, schema.NotSupported))
}

type purchaser struct {
	outcome  purchase.Outcome
	err      error
	restored bool
}

func (p *purchaser) MakePurchase(context.Context, *purchase.Request) (purchase.Outcome, error) {
	return p.outcome, p.err
}

func (p *purchaser) RestorePurchases(context.Context) (bool, error) {
	return p.restored, p.err
}

func TestHandler_OnNotification(t *testing.T) {
	var testCases = []struct {
		description string
		purchaser   PurchaseHandler
		method      string
		params      string
		expect      *purchase.Response
		expectNone  bool
	}{
		{
			description: "purchased",
			purchaser:   &purchaser{outcome: purchase.Purchased()},
			method:      schema.EventMakePurchase,
			params:      `{"productId":"sku_a","transactionId":"t1","status":"starting"}`,
			expect:      &purchase.Response{TransactionID: "t1", Status: purchase.StatusPurchased},
		},
		{
			description: "failed with reason",
			purchaser:   &purchaser{outcome: purchase.Failed("card declined")},
			method:      schema.EventMakePurchase,
			params:      `{"productId":"sku_a","transactionId":"t2"}`,
			expect:      &purchase.Response{TransactionID: "t2", Status: purchase.StatusFailed, Error: "card declined"},
		},
		{
			description: "no purchase handler",
			method:      schema.EventMakePurchase,
			params:      `{"productId":"sku_a","transactionId":"t3"}`,
			expect:      &purchase.Response{TransactionID: "t3", Status: purchase.StatusFailed, Error: errNoPurchaseHandler.Error()},
		},
		{
			description: "restored",
			purchaser:   &purchaser{restored: true},
			method:      schema.EventRestorePurchases,
			params:      `{"transactionId":"t4","status":"starting"}`,
			expect:      &purchase.Response{TransactionID: "t4", Status: purchase.StatusRestored},
		},
		{
			description: "restore not found",
			purchaser:   &purchaser{},
			method:      schema.EventRestorePurchases,
			params:      `{"transactionId":"t5"}`,
			expect:      &purchase.Response{TransactionID: "t5", Status: purchase.StatusFailed},
		},
		{
			description: "malformed request",
			purchaser:   &purchaser{outcome: purchase.Purchased()},
			method:      schema.EventMakePurchase,
			params:      `[`,
			expectNone:  true,
		},
	}
	for _, testCase := range testCases {
		mock := &mockTransport{}
		handler := NewHandler(WithPurchaseHandler(testCase.purchaser))
		New(mock, WithHandler(handler))
		handler.OnNotification(context.Background(), &jsonrpc.Notification{Method: testCase.method, Params: []byte(testCase.params)})
		if testCase.expectNone {
			assert.Never(t, func() bool { return mock.lastNotification() != nil }, shortWait, tick, testCase.description)
			continue
		}
		require.Eventually(t, func() bool { return mock.lastNotification() != nil }, longWait, tick, testCase.description)
		notification := mock.lastNotification()
		response := &purchase.Response{}
		require.NoError(t, json.Unmarshal(notification.Params, response), testCase.description)
		assert.Equal(t, testCase.expect, response, testCase.description)
		expectMethod := schema.MethodHandlePurchaseResponse
		if testCase.method == schema.EventRestorePurchases {
			expectMethod = schema.MethodHandleRestoreResponse
		}
		assert.Equal(t, expectMethod, notification.Method, testCase.description)
	}
}

func TestHandler_DownloadStatus(t *testing.T) {
	handler := NewHandler()
	handler.OnNotification(context.Background(), &jsonrpc.Notification{Method: schema.EventDownloadStateChanged, Params: []byte(`{"status":"inProgress"}`)})
	assert.Equal(t, sdk.DownloadInProgress, handler.DownloadStatus())
	handler.OnNotification(context.Background(), &jsonrpc.Notification{Method: schema.EventPaywall, Params: []byte(`{"type":"paywallsDownloadError"}`)})
	assert.Equal(t, sdk.DownloadFailed, handler.DownloadStatus())
	handler.OnNotification(context.Background(), &jsonrpc.Notification{Method: schema.EventPaywall, Params: []byte(`{"type":"paywallsDownloadSuccess"}`)})
	assert.Equal(t, sdk.DownloadSuccess, handler.DownloadStatus())
}
