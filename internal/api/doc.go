// Package api defines the axiomvault wire contract shared by the server and
// the CLI: request/response messages, the gRPC service descriptor and a JSON
// codec registered under the "json" content subtype.
//
// Byte fields (salts, hashes, envelopes) travel base64-encoded.
package api
