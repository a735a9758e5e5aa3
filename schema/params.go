package schema

import (
	"github.com/viant/paywall/sdk"
)

type (
	// InitializeParams carries the marker-encoded configuration payload
	InitializeParams struct {
		Config               map[string]interface{} `json:"config"`
		CustomVariableValues map[string]interface{} `json:"customVariableValues,omitempty"`
	}

	InitializeResult struct {
		DownloadStatus string `json:"downloadStatus"`
		AlreadyStarted bool   `json:"alreadyStarted,omitempty"`
		Simulated      bool   `json:"simulated,omitempty"`
	}

	PingResult struct {
		Version string `json:"version,omitempty"`
	}

	// EmptyResult acknowledges fire-and-forget requests
	EmptyResult struct{}

	TriggerParams struct {
		Trigger string `json:"trigger"`
	}

	CanPresentUpsellResult struct {
		CanPresent bool   `json:"canPresent"`
		Reason     string `json:"reason,omitempty"`
	}

	PresentUpsellParams struct {
		Trigger                   string                 `json:"trigger"`
		CustomPaywallTraits       map[string]interface{} `json:"customPaywallTraits,omitempty"`
		DontShowIfAlreadyEntitled bool                   `json:"dontShowIfAlreadyEntitled,omitempty"`
	}

	HideUpsellResult struct {
		Hidden bool `json:"hidden"`
	}

	FallbackOpenOrCloseParams struct {
		Trigger  string `json:"trigger"`
		IsOpen   bool   `json:"isOpen"`
		ViewType string `json:"viewType,omitempty"`
	}

	TriggerNamesResult struct {
		TriggerNames []string `json:"triggerNames"`
	}

	PaywallInfoResult = sdk.PaywallInfo

	DeepLinkParams struct {
		URL string `json:"url"`
	}

	DeepLinkResult struct {
		Handled bool `json:"handled"`
	}

	UserIDParams struct {
		UserID string `json:"userId"`
	}

	// EntitlementResult leaves HasEntitlement unset when the SDK cannot tell
	EntitlementResult struct {
		HasEntitlement *bool `json:"hasEntitlement,omitempty"`
	}

	ExperimentInfoResult struct {
		Found          bool                `json:"found"`
		ExperimentInfo *sdk.ExperimentInfo `json:"experimentInfo,omitempty"`
	}

	RestoreFailedStringsParams = sdk.RestoreFailedStrings

	LightDarkModeParams struct {
		Mode string `json:"mode"`
	}

	DownloadStatusResult struct {
		Status string `json:"status"`
	}

	// ResponseResult reports whether a purchase or restore response matched a pending request
	ResponseResult struct {
		Matched bool `json:"matched"`
	}

	SimulatePurchaseParams struct {
		Trigger    string `json:"trigger"`
		ProductID  string `json:"productId,omitempty"`
		BasePlanID string `json:"basePlanId,omitempty"`
		OfferID    string `json:"offerId,omitempty"`
	}

	SimulateCustomActionParams struct {
		Trigger string                 `json:"trigger"`
		Action  string                 `json:"action"`
		Params  map[string]interface{} `json:"params,omitempty"`
	}

	// SimulateResult acknowledges a simulated action, its outcome arrives as events
	SimulateResult struct {
		Accepted bool `json:"accepted"`
	}

	CancelledParams struct {
		RequestID interface{} `json:"requestId"`
		Reason    string      `json:"reason,omitempty"`
	}
)
