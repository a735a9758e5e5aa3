// Package conv collects tiny helper functions that are not part of the public API
// but aid internal conversions.
//
// Values decoded from bridge payloads arrive as float64, json.Number or strings;
// `AsInt64` and `AsString` coerce them into the typed fields of paywall events.
package conv
