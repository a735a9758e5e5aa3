package schema

// Requests served by the bridge
const (
	MethodInitialize                   = "initialize"
	MethodPing                         = "ping"
	MethodCanPresentUpsell             = "canPresentUpsell"
	MethodPresentUpsell                = "presentUpsell"
	MethodHideUpsell                   = "hideUpsell"
	MethodHideAllUpsells               = "hideAllUpsells"
	MethodFallbackOpenOrCloseEvent     = "fallbackOpenOrCloseEvent"
	MethodGetFetchedTriggerNames       = "getFetchedTriggerNames"
	MethodGetPaywallInfo               = "getPaywallInfo"
	MethodHandleDeepLink               = "handleDeepLink"
	MethodSetRevenueCatAppUserID       = "setRevenueCatAppUserId"
	MethodSetCustomUserID              = "setCustomUserId"
	MethodHasEntitlementForPaywall     = "hasEntitlementForPaywall"
	MethodHasAnyActiveSubscription     = "hasAnyActiveSubscription"
	MethodHasAnyEntitlement            = "hasAnyEntitlement"
	MethodGetExperimentInfoForTrigger  = "getExperimentInfoForTrigger"
	MethodDisableRestoreFailedDialog   = "disableRestoreFailedDialog"
	MethodSetCustomRestoreFailedString = "setCustomRestoreFailedStrings"
	MethodResetHelium                  = "resetHelium"
	MethodSetLightDarkModeOverride     = "setLightDarkModeOverride"
	MethodGetDownloadStatus            = "getDownloadStatus"

	// MethodHandlePurchaseResponse and MethodHandleRestoreResponse are accepted as requests or notifications
	MethodHandlePurchaseResponse = "handlePurchaseResponse"
	MethodHandleRestoreResponse  = "handleRestoreResponse"

	// simulate/* methods drive user actions when the hosted SDK supports it
	MethodSimulatePurchase     = "simulate/purchase"
	MethodSimulateRestore      = "simulate/restore"
	MethodSimulateDismiss      = "simulate/dismiss"
	MethodSimulateCustomAction = "simulate/customAction"

	MethodNotificationCancel = "notifications/cancelled"
)
