package schema

import "github.com/viant/jsonrpc"

const (
	NotInitialized  = -32010
	PaywallNotReady = -32011
	NotSupported    = -32012
	Unauthorized    = -32001
)

// NewNotInitialized creates an error for calls made before initialize
func NewNotInitialized(method string) *jsonrpc.Error {
	return jsonrpc.NewError(NotInitialized, "bridge not initialized", map[string]interface{}{"method": method})
}

// NewPaywallNotReady creates an error for triggers without a downloaded paywall
func NewPaywallNotReady(trigger string) *jsonrpc.Error {
	return jsonrpc.NewError(PaywallNotReady, "Invalid trigger or paywalls not ready.", map[string]interface{}{"trigger": trigger})
}

func NewNotSupported(method string) *jsonrpc.Error {
	return jsonrpc.NewError(NotSupported, "method not supported by the hosted sdk: "+method, nil)
}
