package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/paywall/codec"
)

func TestToDictionary(t *testing.T) {
	var testCases = []struct {
		description string
		event       *Event
		expect      map[string]interface{}
	}{
		{
			description: "aliases populated from canonical fields",
			event: &Event{
				Type:        PurchaseSucceeded,
				TriggerName: "onboarding",
				PaywallName: "tmpl",
				ProductID:   "sku_a",
				IsSecondTry: Bool(false),
			},
			expect: map[string]interface{}{
				"type":                "purchaseSucceeded",
				"triggerName":         "onboarding",
				"paywallName":         "tmpl",
				"paywallTemplateName": "tmpl",
				"productId":           "sku_a",
				"productKey":          "sku_a",
				"isSecondTry":         false,
			},
		},
		{
			description: "absent canonical leaves alias absent",
			event:       &Event{Type: PaywallOpenFailed, Error: "boom"},
			expect: map[string]interface{}{
				"type":             "paywallOpenFailed",
				"error":            "boom",
				"errorDescription": "boom",
			},
		},
		{
			description: "button and timings",
			event: &Event{
				Type:                       PaywallButtonPressed,
				ButtonName:                 "subscribe_button",
				PaywallDownloadTimeTakenMS: Int64(120),
				Timestamp:                  Int64(1700000000),
			},
			expect: map[string]interface{}{
				"type":                       "paywallButtonPressed",
				"buttonName":                 "subscribe_button",
				"ctaName":                    "subscribe_button",
				"paywallDownloadTimeTakenMS": int64(120),
				"timestamp":                  int64(1700000000),
			},
		},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, ToDictionary(testCase.event), testCase.description)
	}
}

func TestFromDictionary(t *testing.T) {
	t.Run("canonical wins", func(t *testing.T) {
		evt := FromDictionary(map[string]interface{}{
			"type":        "paywallClose",
			"paywallName": "new",
			"productKey":  "legacy_sku",
			"isSecondTry": codec.TrueMarker,
			"timestamp":   float64(12),
		})
		assert.Equal(t, PaywallClose, evt.Type)
		assert.Equal(t, "new", evt.PaywallName)
		assert.Equal(t, "legacy_sku", evt.ProductID)
		assert.True(t, evt.SecondTry())
		assert.EqualValues(t, 12, *evt.Timestamp)
	})
	t.Run("decoded JSON values", func(t *testing.T) {
		evt := FromDictionary(map[string]interface{}{
			"type":                       "paywallsDownloadSuccess",
			"productId":                  float64(42),
			"paywallDownloadTimeTakenMS": "250",
			"bundleDownloadTimeMS":       json.Number("75"),
			"timestamp":                  "later",
			"triggerName":                map[string]interface{}{"nested": true},
		})
		assert.Equal(t, "42", evt.ProductID)
		assert.EqualValues(t, 250, *evt.PaywallDownloadTimeTakenMS)
		assert.EqualValues(t, 75, *evt.BundleDownloadTimeMS)
		assert.Nil(t, evt.Timestamp)
		assert.Empty(t, evt.TriggerName)
	})
	t.Run("nil", func(t *testing.T) {
		evt := FromDictionary(nil)
		assert.NotNil(t, evt)
		assert.False(t, evt.SecondTry())
	})
	t.Run("round trip", func(t *testing.T) {
		source := &Event{Type: CustomPaywallAction, TriggerName: "t", ActionName: "call", Params: map[string]interface{}{"a": "b"}}
		assert.Equal(t, source, FromDictionary(ToDictionary(source)))
	})
}
