package client

import (
	"context"

	"github.com/viant/paywall/schema"
	"github.com/viant/paywall/sdk"
)

// Interface defines the bridge operations available to the scripting side
type Interface interface {
	Initialize(ctx context.Context, config map[string]interface{}, customVariables map[string]interface{}) (*schema.InitializeResult, error)

	Ping(ctx context.Context) (*schema.PingResult, error)

	CanPresentUpsell(ctx context.Context, trigger string) (*schema.CanPresentUpsellResult, error)

	PresentUpsell(ctx context.Context, params *PresentParams) error

	HideUpsell(ctx context.Context) (bool, error)

	HideAllUpsells(ctx context.Context) error

	FallbackOpenOrCloseEvent(ctx context.Context, trigger string, isOpen bool, viewType string) error

	GetFetchedTriggerNames(ctx context.Context) ([]string, error)

	GetPaywallInfo(ctx context.Context, trigger string) (*sdk.PaywallInfo, error)

	HandleDeepLink(ctx context.Context, url string) (bool, error)

	SetRevenueCatAppUserID(ctx context.Context, id string) error

	SetCustomUserID(ctx context.Context, id string) error

	HasEntitlementForPaywall(ctx context.Context, trigger string) (*bool, error)

	HasAnyActiveSubscription(ctx context.Context) (*bool, error)

	HasAnyEntitlement(ctx context.Context) (*bool, error)

	GetExperimentInfoForTrigger(ctx context.Context, trigger string) (*sdk.ExperimentInfo, error)

	DisableRestoreFailedDialog(ctx context.Context) error

	SetCustomRestoreFailedStrings(ctx context.Context, strings *sdk.RestoreFailedStrings) error

	SetLightDarkModeOverride(ctx context.Context, mode string) (string, error)

	ResetHelium(ctx context.Context) error

	GetDownloadStatus(ctx context.Context) (sdk.DownloadStatus, error)

	// simulate/* drive user actions when the bridge hosts a simulated SDK

	SimulatePurchase(ctx context.Context, params *schema.SimulatePurchaseParams) error

	SimulateRestore(ctx context.Context, trigger string) error

	SimulateDismiss(ctx context.Context, trigger string) error

	SimulateCustomAction(ctx context.Context, params *schema.SimulateCustomActionParams) error
}
