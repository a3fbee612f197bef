// Package api implements the HTTP REST API for the scale registry mirror.
//
// Routes, relative to the configured base path P (default /mise):
//
//	GET  P/health                     no auth
//	GET  P/export/{identity}          no auth, when api.public_export is set
//	GET  P/                           device:list
//	GET  P/audit                      audit:read, when an audit repository is set
//	POST P/{model}                    device:create   201 + identity
//	GET  P/{model}/{serial}           config:read
//	PUT  P/{model}/{serial}           config:write
//	GET  P/address/{model}/{serial}   address:read
//	PUT  P/address/{model}/{serial}   address:write
//
// # Security
//
// Protected routes require "Authorization: Bearer <jwt>" signed with the
// configured secret. A missing or invalid token is 401; a valid token whose
// role lacks the route's permission is 403.
//
// # Change Feed
//
// When a Publisher is configured, every successful create, config update and
// address update is announced after the write commits. Publish failures are
// logged and never fail the request.
//
// # Audit Trail
//
// With an audit repository, every accepted write is recorded with the token
// subject. GET P/audit pages through it, filtered by ?device= and ?action=.
//
// # Errors
//
// Every error response has the shape {"status", "code", "message"}. Unknown
// models, malformed identities and bad JSON are 400; invalid configs and
// addresses are 400 with code validation_error; missing devices and unset
// addresses are 404.
package api
