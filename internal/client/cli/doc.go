// Package cli provides the interactive vault command-line client.
//
// It wires configuration, the local cache, the API services and a REPL that
// keeps working offline. Passwords and recovery keys never leave the
// process; only derived key hashes and encrypted envelopes are sent.
//
// Key features:
//   - register (prints the one-time recovery key), login with offline fallback
//   - recover, passwd, me, logout, forget
//   - files, upload, download, delete for encrypted blobs
//   - lock, unlock, plan for staff
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
