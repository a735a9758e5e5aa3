// Package paywall provides high-level helpers for hosting a paywall SDK behind a JSON-RPC bridge.
//
// The bridge lets a scripting layer drive a native paywall SDK: it presents paywalls,
// forwards paywall events and turns the SDK's purchase and restore callbacks into
// make_purchase and restore_purchases events whose answers resume the waiting SDK call.
//
// Two entry points are exposed:
//  1. NewServer – returns a bridge server hosting an sdk.Paywall and
//  2. NewClient – returns a scripting side client connected over stdio, SSE or streamable HTTP.
//
// Both constructors accept option structures that can be populated from CLI flags or
// configuration files.
//
// Example:
//
//	srv, _ := paywall.NewServer(simulator.New(), &paywall.ServerOptions{})
//	handler := client.NewHandler(client.WithPurchaseHandler(store))
//	cli, _ := paywall.NewClient(ctx, handler, &paywall.ClientOptions{Transport: paywall.ClientTransport{Type: "sse", ClientTransportHTTP: paywall.ClientTransportHTTP{URL: "http://localhost:5000/sse"}}})
package paywall
