// Package sdk defines the contract of the vendor paywall SDK hosted by the bridge.
//
// The vendor SDK owns paywall rendering, remote configuration and experiment
// allocation. The bridge reaches it only through Paywall and answers its
// purchase calls through Delegate.
package sdk

import (
	"context"
	"errors"

	"github.com/viant/paywall/config"
	"github.com/viant/paywall/event"
	"github.com/viant/paywall/purchase"
)

// ErrUnsupported is returned by optional capabilities an SDK does not implement
var ErrUnsupported = errors.New("sdk: operation not supported")

// Listener receives events of a single presentation
type Listener func(evt *event.Event)

// PresentOptions configures PresentUpsell
type PresentOptions struct {
	Traits                    map[string]interface{}
	DontShowIfAlreadyEntitled bool
	Listener                  Listener
}

// Paywall is the vendor SDK surface used by the bridge
type Paywall interface {
	Initialize(ctx context.Context, cfg *config.Config, delegate Delegate) error
	PresentUpsell(ctx context.Context, trigger string, options *PresentOptions) error
	HideUpsell() bool
	HideAllUpsells()
	// CanPresentUpsell returns false with a reason when the trigger cannot be shown
	CanPresentUpsell(trigger string) (bool, string)
	PaywallInfo(trigger string) (*PaywallInfo, bool)
	HandleDeepLink(url string) bool
	FetchedTriggerNames() ([]string, error)
	HasEntitlementForPaywall(ctx context.Context, trigger string) (*bool, error)
	HasAnyActiveSubscription(ctx context.Context) (bool, error)
	HasAnyEntitlement(ctx context.Context) (bool, error)
	ExperimentInfo(trigger string) *ExperimentInfo
	SetRevenueCatAppUserID(id string)
	SetCustomUserID(id string)
	DisableRestoreFailedDialog()
	SetCustomRestoreFailedStrings(strings *RestoreFailedStrings)
	SetLightDarkModeOverride(mode LightDarkMode)
	FallbackOpenOrCloseEvent(trigger string, isOpen bool, viewType string)
	Reset(ctx context.Context) error
}

// Delegate receives purchase calls and global events from the SDK
type Delegate interface {
	MakePurchase(ctx context.Context, request *purchase.Request) (purchase.Outcome, error)
	RestorePurchases(ctx context.Context) (bool, error)
	OnPaywallEvent(ctx context.Context, evt *event.Event)
	CustomVariableValues() map[string]interface{}
}

// Driver is implemented by SDKs that can be driven programmatically, the simulator does
type Driver interface {
	// Purchase simulates a user tapping buy on the presented paywall
	Purchase(ctx context.Context, trigger string, request *purchase.Request) (purchase.Outcome, error)
	// Restore simulates a user tapping restore
	Restore(ctx context.Context, trigger string) (bool, error)
	// Dismiss closes the presented paywall of a trigger
	Dismiss(ctx context.Context, trigger string) error
	// CustomAction simulates a custom paywall action
	CustomAction(ctx context.Context, trigger, action string, params map[string]interface{}) error
}
