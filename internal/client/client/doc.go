// Package client contains the CLI's transport layer and local cache bootstrap.
//
// GRPCClient talks to the axiomvault server through the JSON-coded Vault
// service. It keeps the session tokens in memory, attaches the access token
// to every call, transparently refreshes an expired access token once, and
// maps gRPC status codes onto the sentinel errors in errors.go so callers
// can use errors.Is / errors.As.
//
// InitDatabase opens the SQLite cache used for offline login and applies
// the embedded goose migrations.
package client
