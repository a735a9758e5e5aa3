// Package client implements the scripting side of the paywall bridge.
//
// A Client sends bridge requests over any jsonrpc transport. A Handler receives the
// bridge notifications on that transport: it answers make_purchase and restore_purchases
// through a PurchaseHandler, forwards paywall_event to an EventListener and routes
// paywall_event_handlers to the handler set of the active presentation.
//
// Example:
//
//	handler := client.NewHandler(client.WithPurchaseHandler(store))
//	sseTransport, _ := sse.New(ctx, "http://localhost:5000/sse", sse.WithHandler(handler))
//	cli := client.New(sseTransport, client.WithHandler(handler))
//	_, _ = cli.Initialize(ctx, map[string]interface{}{"apiKey": "k1"}, nil)
//	_ = cli.PresentUpsell(ctx, &client.PresentParams{Trigger: "onboarding"})
package client
