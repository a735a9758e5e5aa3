package event

import (
	"github.com/viant/paywall/codec"
	"github.com/viant/paywall/internal/conv"
)

// Dictionary field names
const (
	FieldType                        = "type"
	FieldTriggerName                 = "triggerName"
	FieldPaywallName                 = "paywallName"
	FieldPaywallTemplateName         = "paywallTemplateName"
	FieldProductID                   = "productId"
	FieldProductKey                  = "productKey"
	FieldButtonName                  = "buttonName"
	FieldCtaName                     = "ctaName"
	FieldError                       = "error"
	FieldErrorDescription            = "errorDescription"
	FieldViewType                    = "viewType"
	FieldIsSecondTry                 = "isSecondTry"
	FieldDismissAll                  = "dismissAll"
	FieldPaywallDownloadTimeTakenMS  = "paywallDownloadTimeTakenMS"
	FieldTemplateDownloadTimeTakenMS = "templateDownloadTimeTakenMS"
	FieldImagesDownloadTimeTakenMS   = "imagesDownloadTimeTakenMS"
	FieldStylesDownloadTimeTakenMS   = "stylesDownloadTimeTakenMS"
	FieldFontsDownloadTimeTakenMS    = "fontsDownloadTimeTakenMS"
	FieldBundleDownloadTimeMS        = "bundleDownloadTimeMS"
	FieldTimestamp                   = "timestamp"
	FieldActionName                  = "actionName"
	FieldParams                      = "params"
)

// ToDictionary converts an event into a flat map and applies the alias migrations.
func ToDictionary(e *Event) map[string]interface{} {
	ret := map[string]interface{}{}
	if e == nil {
		return ret
	}
	ret[FieldType] = string(e.Type)
	putString(ret, FieldTriggerName, e.TriggerName)
	putString(ret, FieldPaywallName, e.PaywallName)
	putString(ret, FieldProductID, e.ProductID)
	putString(ret, FieldButtonName, e.ButtonName)
	putString(ret, FieldError, e.Error)
	putString(ret, FieldViewType, e.ViewType)
	putString(ret, FieldActionName, e.ActionName)
	if e.IsSecondTry != nil {
		ret[FieldIsSecondTry] = *e.IsSecondTry
	}
	if e.DismissAll != nil {
		ret[FieldDismissAll] = *e.DismissAll
	}
	for _, field := range e.durations() {
		if *field.value != nil {
			ret[field.name] = **field.value
		}
	}
	if e.Params != nil {
		ret[FieldParams] = e.Params
	}
	Migrations.Apply(ret)
	return ret
}

// FromDictionary parses a flat map; canonical fields win over deprecated aliases.
func FromDictionary(dict map[string]interface{}) *Event {
	dict = codec.DecodeMap(dict)
	ret := &Event{}
	if dict == nil {
		return ret
	}
	ret.Type = Type(conv.AsString(dict[FieldType]))
	ret.TriggerName = conv.AsString(dict[FieldTriggerName])
	ret.PaywallName = Migrations.Resolve(dict, FieldPaywallName)
	ret.ProductID = Migrations.Resolve(dict, FieldProductID)
	ret.ButtonName = Migrations.Resolve(dict, FieldButtonName)
	ret.Error = Migrations.Resolve(dict, FieldError)
	ret.ViewType = conv.AsString(dict[FieldViewType])
	ret.ActionName = conv.AsString(dict[FieldActionName])
	if v, ok := dict[FieldIsSecondTry].(bool); ok {
		ret.IsSecondTry = Bool(v)
	}
	if v, ok := dict[FieldDismissAll].(bool); ok {
		ret.DismissAll = Bool(v)
	}
	for _, field := range ret.durations() {
		if v, ok := conv.AsInt64(dict[field.name]); ok {
			*field.value = Int64(v)
		}
	}
	if params, ok := dict[FieldParams].(map[string]interface{}); ok {
		ret.Params = params
	}
	return ret
}

type durationField struct {
	name  string
	value **int64
}

func (e *Event) durations() []durationField {
	return []durationField{
		{FieldPaywallDownloadTimeTakenMS, &e.PaywallDownloadTimeTakenMS},
		{FieldTemplateDownloadTimeTakenMS, &e.TemplateDownloadTimeTakenMS},
		{FieldImagesDownloadTimeTakenMS, &e.ImagesDownloadTimeTakenMS},
		{FieldStylesDownloadTimeTakenMS, &e.StylesDownloadTimeTakenMS},
		{FieldFontsDownloadTimeTakenMS, &e.FontsDownloadTimeTakenMS},
		{FieldBundleDownloadTimeMS, &e.BundleDownloadTimeMS},
		{FieldTimestamp, &e.Timestamp},
	}
}

func putString(dict map[string]interface{}, key, value string) {
	if value != "" {
		dict[key] = value
	}
}
