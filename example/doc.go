// Package example provides a demo purchase handler used to exercise the bridge end to end.
//
// Store approves every purchase unless told otherwise and records purchases, restores and
// paywall events so a host application (or a test) can inspect what the paywall asked for.
package example
