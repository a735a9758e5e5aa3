// Package event defines paywall events and their flat dictionary form.
package event

// Type identifies a paywall event
type Type string

const (
	PaywallOpen           Type = "paywallOpen"
	PaywallClose          Type = "paywallClose"
	PaywallDismissed      Type = "paywallDismissed"
	PaywallOpenFailed     Type = "paywallOpenFailed"
	PaywallSkipped        Type = "paywallSkipped"
	PaywallButtonPressed  Type = "paywallButtonPressed"
	ProductSelected       Type = "productSelected"
	PurchasePressed       Type = "purchasePressed"
	PurchaseSucceeded     Type = "purchaseSucceeded"
	PurchaseCancelled     Type = "purchaseCancelled"
	PurchaseFailed        Type = "purchaseFailed"
	PurchaseRestored      Type = "purchaseRestored"
	PurchaseRestoreFailed Type = "purchaseRestoreFailed"
	PurchasePending       Type = "purchasePending"
	InitializeStart       Type = "initializeStart"
	DownloadSuccess       Type = "paywallsDownloadSuccess"
	DownloadError         Type = "paywallsDownloadError"
	WebViewRendered       Type = "paywallWebViewRendered"
	CustomPaywallAction   Type = "customPaywallAction"
)

// View types reported with paywallOpen
const (
	ViewPresented = "presented"
	ViewEmbedded  = "embedded"
	ViewTriggered = "triggered"
)

// Event represents a paywall event; empty strings and nil pointers are absent fields.
type Event struct {
	Type        Type
	TriggerName string
	PaywallName string
	ProductID   string
	ButtonName  string
	Error       string
	ViewType    string
	IsSecondTry *bool
	DismissAll  *bool

	PaywallDownloadTimeTakenMS  *int64
	TemplateDownloadTimeTakenMS *int64
	ImagesDownloadTimeTakenMS   *int64
	StylesDownloadTimeTakenMS   *int64
	FontsDownloadTimeTakenMS    *int64
	BundleDownloadTimeMS        *int64
	// Timestamp is a unix timestamp in seconds
	Timestamp *int64

	ActionName string
	Params     map[string]interface{}
}

// SecondTry returns IsSecondTry or false when absent
func (e *Event) SecondTry() bool {
	return e.IsSecondTry != nil && *e.IsSecondTry
}

// Bool returns a pointer to v
func Bool(v bool) *bool {
	return &v
}

// Int64 returns a pointer to v
func Int64(v int64) *int64 {
	return &v
}
