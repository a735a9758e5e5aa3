// Package bridge exposes the hosted paywall SDK to the scripting layer.
//
// Service owns the SDK, the purchase broker and the fallback store. It parses the
// initialization payload, selects the delegate, tracks the paywall download status
// and forwards SDK events to the scripting layer as notifications.
package bridge
