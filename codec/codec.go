// Package codec carries booleans over channels that only preserve strings.
//
// Booleans are replaced with two reserved sentinel strings on the way out and
// restored on the way in. Maps and slices are walked recursively; every other
// value passes through untouched.
package codec

import "strings"

const (
	// TrueMarker stands for a boolean true.
	TrueMarker = "__bool_true__"
	// FalseMarker stands for a boolean false.
	FalseMarker = "__bool_false__"
	// EscapePrefix marks a genuine string that would otherwise collide with a marker.
	EscapePrefix = "__esc__"
)

// Codec encodes and decodes marker booleans.
type Codec struct {
	escape bool
}

// Option configures a Codec
type Option func(c *Codec)

// WithEscaping makes the round trip total: genuine strings equal to a marker
// (or starting with EscapePrefix) are prefixed on encode and unprefixed on decode.
// Both peers have to agree on this mode.
func WithEscaping() Option {
	return func(c *Codec) {
		c.escape = true
	}
}

// New creates a codec
func New(options ...Option) *Codec {
	ret := &Codec{}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

var plain = &Codec{}

// Encode replaces booleans with markers using the wire compatible mode.
func Encode(value interface{}) interface{} {
	return plain.Encode(value)
}

// Decode replaces markers with booleans using the wire compatible mode.
func Decode(value interface{}) interface{} {
	return plain.Decode(value)
}

// DecodeMap decodes a payload map, nil stays nil.
func DecodeMap(value map[string]interface{}) map[string]interface{} {
	return plain.DecodeMap(value)
}

// EncodeMap encodes a payload map, nil stays nil.
func EncodeMap(value map[string]interface{}) map[string]interface{} {
	return plain.EncodeMap(value)
}

// Encode replaces booleans with markers.
func (c *Codec) Encode(value interface{}) interface{} {
	switch actual := value.(type) {
	case bool:
		if actual {
			return TrueMarker
		}
		return FalseMarker
	case string:
		if c.escape && c.collides(actual) {
			return EscapePrefix + actual
		}
		return actual
	case map[string]interface{}:
		return c.EncodeMap(actual)
	case []interface{}:
		ret := make([]interface{}, len(actual))
		for i, item := range actual {
			ret[i] = c.Encode(item)
		}
		return ret
	case []map[string]interface{}:
		ret := make([]interface{}, len(actual))
		for i, item := range actual {
			ret[i] = c.EncodeMap(item)
		}
		return ret
	}
	return value
}

// Decode replaces markers with booleans.
func (c *Codec) Decode(value interface{}) interface{} {
	switch actual := value.(type) {
	case string:
		switch actual {
		case TrueMarker:
			return true
		case FalseMarker:
			return false
		}
		if c.escape && strings.HasPrefix(actual, EscapePrefix) {
			return actual[len(EscapePrefix):]
		}
		return actual
	case map[string]interface{}:
		return c.DecodeMap(actual)
	case []interface{}:
		ret := make([]interface{}, len(actual))
		for i, item := range actual {
			ret[i] = c.Decode(item)
		}
		return ret
	}
	return value
}

// EncodeMap encodes every value of a map.
func (c *Codec) EncodeMap(value map[string]interface{}) map[string]interface{} {
	if value == nil {
		return nil
	}
	ret := make(map[string]interface{}, len(value))
	for k, v := range value {
		ret[k] = c.Encode(v)
	}
	return ret
}

// DecodeMap decodes every value of a map.
func (c *Codec) DecodeMap(value map[string]interface{}) map[string]interface{} {
	if value == nil {
		return nil
	}
	ret := make(map[string]interface{}, len(value))
	for k, v := range value {
		ret[k] = c.Decode(v)
	}
	return ret
}

func (c *Codec) collides(s string) bool {
	return s == TrueMarker || s == FalseMarker || strings.HasPrefix(s, EscapePrefix)
}
