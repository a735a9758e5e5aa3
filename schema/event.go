package schema

import "github.com/viant/paywall/purchase"

// Notifications sent to the scripting layer
const (
	EventPaywall              = "paywall_event"
	EventMakePurchase         = purchase.EventMakePurchase
	EventRestorePurchases     = purchase.EventRestorePurchases
	EventDownloadStateChanged = "download_state_changed"
	EventPaywallHandlers      = "paywall_event_handlers"
)

// DownloadStateChanged is the payload of download_state_changed
type DownloadStateChanged struct {
	Status string `json:"status"`
}
