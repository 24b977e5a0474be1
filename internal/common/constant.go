// Package common contains shared constants, sentinel errors and small helpers
// used across gatekeeper components.
package common

// AuthorizationHeaderName carries the bearer token on inbound HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside the Authorization header.
const BearerPrefix = "Bearer "

// MaxNamesLookup bounds batch id->name lookups.
const MaxNamesLookup = 1000
