// Package auth protects the HTTP transports with HS256 bearer tokens.
//
// Service.Middleware inspects JSON-RPC POST bodies and requires a valid token for
// protected methods; verified claims are available to handlers through ClaimsFrom.
package auth
