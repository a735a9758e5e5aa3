// Package server exposes the paywall bridge over JSON-RPC.
//
// Each transport connection gets its own Handler serving bridge requests
// (initialize, presentUpsell, handlePurchaseResponse and so on), while a single
// Hub delivers bridge events to the most recently connected client as
// notifications: paywall_event, make_purchase, restore_purchases,
// download_state_changed and paywall_event_handlers.
//
// The server can be run over stdio, SSE or streamable HTTP, or in-process via AsClient.
package server
