package sdk

import "strings"

// PaywallInfo describes the paywall a trigger resolves to
type PaywallInfo struct {
	PaywallTemplateName string `json:"paywallTemplateName"`
	ShouldShow          bool   `json:"shouldShow"`
}

// ExperimentInfo describes the experiment a trigger is enrolled in
type ExperimentInfo struct {
	Trigger              string                 `json:"trigger,omitempty"`
	EnrolledTrigger      string                 `json:"enrolledTrigger,omitempty"`
	Triggers             []string               `json:"triggers,omitempty"`
	ExperimentName       string                 `json:"experimentName,omitempty"`
	ExperimentID         string                 `json:"experimentId,omitempty"`
	ExperimentType       string                 `json:"experimentType,omitempty"`
	ExperimentMetadata   map[string]interface{} `json:"experimentMetadata,omitempty"`
	StartDate            string                 `json:"startDate,omitempty"`
	EndDate              string                 `json:"endDate,omitempty"`
	AudienceID           string                 `json:"audienceId,omitempty"`
	AudienceData         interface{}            `json:"audienceData,omitempty"`
	ChosenVariantDetails *VariantDetails        `json:"chosenVariantDetails,omitempty"`
	HashDetails          *HashDetails           `json:"hashDetails,omitempty"`
}

type VariantDetails struct {
	AllocationName     string                 `json:"allocationName,omitempty"`
	AllocationID       string                 `json:"allocationId,omitempty"`
	AllocationIndex    *int                   `json:"allocationIndex,omitempty"`
	AllocationMetadata map[string]interface{} `json:"allocationMetadata,omitempty"`
}

type HashDetails struct {
	HashedUserIDBucket1To100 *int   `json:"hashedUserIdBucket1To100,omitempty"`
	HashedUserID             string `json:"hashedUserId,omitempty"`
	HashMethod               string `json:"hashMethod,omitempty"`
}

// RestoreFailedStrings customizes the restore failed dialog, empty fields keep SDK defaults
type RestoreFailedStrings struct {
	Title           string `json:"customTitle,omitempty"`
	Message         string `json:"customMessage,omitempty"`
	CloseButtonText string `json:"customCloseButtonText,omitempty"`
}

// LightDarkMode overrides the paywall appearance
type LightDarkMode string

const (
	ModeLight  LightDarkMode = "light"
	ModeDark   LightDarkMode = "dark"
	ModeSystem LightDarkMode = "system"
)

// ParseLightDarkMode is case-insensitive; ok is false for unknown modes, which map to system
func ParseLightDarkMode(value string) (LightDarkMode, bool) {
	switch LightDarkMode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeLight:
		return ModeLight, true
	case ModeDark:
		return ModeDark, true
	case ModeSystem:
		return ModeSystem, true
	}
	return ModeSystem, false
}

// DownloadStatus tracks the paywall configuration download
type DownloadStatus string

const (
	DownloadNotStarted DownloadStatus = "notStarted"
	DownloadInProgress DownloadStatus = "inProgress"
	DownloadSuccess    DownloadStatus = "success"
	DownloadFailed     DownloadStatus = "failed"
)
