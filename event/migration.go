package event

import "github.com/viant/paywall/internal/conv"

// Alias maps a canonical field to a deprecated name kept for older consumers.
type Alias struct {
	Canonical  string
	Deprecated string
	// Since is the schema version that renamed the field
	Since int
}

// MigrationTable lists field renames applied at the serialization boundary.
type MigrationTable []Alias

// Migrations holds every field rename of the event dictionary.
var Migrations = MigrationTable{
	{Canonical: FieldPaywallName, Deprecated: FieldPaywallTemplateName, Since: 2},
	{Canonical: FieldError, Deprecated: FieldErrorDescription, Since: 2},
	{Canonical: FieldProductID, Deprecated: FieldProductKey, Since: 2},
	{Canonical: FieldButtonName, Deprecated: FieldCtaName, Since: 2},
}

// Apply populates deprecated aliases for every canonical field present in dict.
func (t MigrationTable) Apply(dict map[string]interface{}) {
	for _, alias := range t {
		if value, ok := dict[alias.Canonical]; ok {
			dict[alias.Deprecated] = value
		}
	}
}

// Resolve returns the canonical field value, falling back to its deprecated alias.
func (t MigrationTable) Resolve(dict map[string]interface{}, canonical string) string {
	if value := conv.AsString(dict[canonical]); value != "" {
		return value
	}
	for _, alias := range t {
		if alias.Canonical == canonical {
			return conv.AsString(dict[alias.Deprecated])
		}
	}
	return ""
}
