// Package config parses and validates the initialization payload sent by the scripting layer.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/viant/paywall/codec"
)

// DefaultLoadingBudget is used when the payload does not set loadingBudget
const DefaultLoadingBudget = 7 * time.Second

// Config is a validated initialization payload
type Config struct {
	APIKey              string                 `json:"apiKey" validate:"required"`
	CustomUserID        string                 `json:"customUserId,omitempty"`
	CustomAPIEndpoint   string                 `json:"customAPIEndpoint,omitempty" validate:"omitempty,url"`
	CustomUserTraits    map[string]interface{} `json:"customUserTraits,omitempty"`
	RevenueCatAppUserID string                 `json:"revenueCatAppUserId,omitempty"`
	FallbackBundleURL   string                 `json:"fallbackBundleUrlString,omitempty"`
	FallbackBundle      string                 `json:"fallbackBundleString,omitempty"`
	Loading             Loading                `json:"paywallLoadingConfig"`
	UseDefaultDelegate  bool                   `json:"useDefaultDelegate,omitempty"`
	Environment         Environment            `json:"environment" validate:"oneof=sandbox production"`
	// FallbackBundleName is the persisted bundle file name, empty when no bundle was stored
	FallbackBundleName string `json:"-"`
}

// HasFallbackBundle returns true when the payload supplied a bundle by URL or inline
func (c *Config) HasFallbackBundle() bool {
	return c.FallbackBundleURL != "" || c.FallbackBundle != ""
}

// Loading controls how long paywalls may show a loading state before the fallback
type Loading struct {
	UseLoadingState bool                      `json:"useLoadingState"`
	Budget          time.Duration             `json:"loadingBudget"`
	PerTrigger      map[string]TriggerLoading `json:"perTriggerLoadingConfig,omitempty"`
}

// TriggerLoading overrides loading behaviour for one trigger; nil fields inherit the global setting
type TriggerLoading struct {
	UseLoadingState *bool          `json:"useLoadingState,omitempty"`
	Budget          *time.Duration `json:"loadingBudget,omitempty"`
}

// For resolves the loading settings of a trigger
func (l *Loading) For(trigger string) (bool, time.Duration) {
	useLoading, budget := l.UseLoadingState, l.Budget
	if override, ok := l.PerTrigger[trigger]; ok {
		if override.UseLoadingState != nil {
			useLoading = *override.UseLoadingState
		}
		if override.Budget != nil {
			budget = *override.Budget
		}
	}
	return useLoading, budget
}

// ConfigurationError reports an invalid or missing payload field
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IsConfigurationError returns true when err wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

type payload struct {
	APIKey              string                 `json:"apiKey"`
	CustomUserID        string                 `json:"customUserId"`
	CustomAPIEndpoint   string                 `json:"customAPIEndpoint"`
	CustomUserTraits    map[string]interface{} `json:"customUserTraits"`
	RevenueCatAppUserID string                 `json:"revenueCatAppUserId"`
	FallbackBundleURL   string                 `json:"fallbackBundleUrlString"`
	FallbackBundle      string                 `json:"fallbackBundleString"`
	FallbackBundleValue json.RawMessage        `json:"fallbackBundle"`
	Loading             *loadingPayload        `json:"paywallLoadingConfig"`
	UseDefaultDelegate  bool                   `json:"useDefaultDelegate"`
	Environment         string                 `json:"environment"`
}

type loadingPayload struct {
	UseLoadingState *bool                             `json:"useLoadingState"`
	LoadingBudget   *float64                          `json:"loadingBudget"`
	PerTrigger      map[string]*triggerLoadingPayload `json:"perTriggerLoadingConfig"`
}

type triggerLoadingPayload struct {
	UseLoadingState *bool    `json:"useLoadingState"`
	LoadingBudget   *float64 `json:"loadingBudget"`
}

// Parse builds a config from a marker-encoded payload map
func Parse(values map[string]interface{}) (*Config, error) {
	if values == nil {
		return nil, &ConfigurationError{Field: "apiKey", Reason: "required"}
	}
	data, err := json.Marshal(codec.DecodeMap(values))
	if err != nil {
		return nil, &ConfigurationError{Field: "payload", Reason: err.Error()}
	}
	return ParseJSON(data)
}

// ParseJSON builds a config from a raw JSON payload
func ParseJSON(data []byte) (*Config, error) {
	raw := &payload{}
	if err := json.Unmarshal(data, raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ConfigurationError{Field: typeErr.Field, Reason: "expected " + typeErr.Type.String()}
		}
		return nil, &ConfigurationError{Field: "payload", Reason: err.Error()}
	}
	ret := &Config{
		APIKey:              strings.TrimSpace(raw.APIKey),
		CustomUserID:        raw.CustomUserID,
		CustomAPIEndpoint:   raw.CustomAPIEndpoint,
		CustomUserTraits:    codec.DecodeMap(raw.CustomUserTraits),
		RevenueCatAppUserID: raw.RevenueCatAppUserID,
		FallbackBundleURL:   raw.FallbackBundleURL,
		FallbackBundle:      raw.FallbackBundle,
		UseDefaultDelegate:  raw.UseDefaultDelegate,
		Environment:         ParseEnvironment(raw.Environment),
		Loading:             raw.Loading.build(),
	}
	if ret.FallbackBundle == "" && len(raw.FallbackBundleValue) > 0 && string(raw.FallbackBundleValue) != "null" {
		ret.FallbackBundle = string(raw.FallbackBundleValue)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (p *loadingPayload) build() Loading {
	ret := Loading{UseLoadingState: true, Budget: DefaultLoadingBudget}
	if p == nil {
		return ret
	}
	if p.UseLoadingState != nil {
		ret.UseLoadingState = *p.UseLoadingState
	}
	if p.LoadingBudget != nil {
		ret.Budget = seconds(*p.LoadingBudget)
	}
	if len(p.PerTrigger) == 0 {
		return ret
	}
	ret.PerTrigger = make(map[string]TriggerLoading, len(p.PerTrigger))
	for trigger, override := range p.PerTrigger {
		if override == nil {
			continue
		}
		item := TriggerLoading{UseLoadingState: override.UseLoadingState}
		if override.LoadingBudget != nil {
			budget := seconds(*override.LoadingBudget)
			item.Budget = &budget
		}
		ret.PerTrigger[trigger] = item
	}
	return ret
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks required fields and formats
func (c *Config) Validate() error {
	err := validatorInstance().Struct(c)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		first := validationErrors[0]
		return &ConfigurationError{Field: first.Field(), Reason: reason(first)}
	}
	return &ConfigurationError{Field: "payload", Reason: err.Error()}
}

func reason(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "required"
	case "url":
		return "invalid URL format"
	case "oneof":
		return "must be one of: " + e.Param()
	}
	return "invalid value"
}
