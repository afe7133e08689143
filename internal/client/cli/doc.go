// Package cli provides the interactive DiagNexus command-line client.
//
// It wires configuration, the HTTP API client, the local download history
// and a role-aware REPL. Typical flow: prompt for credentials, start a
// background connectivity watcher, then execute user commands.
//
// Commands offered depend on the role of the logged in account:
//   - everyone: reports, upload, download, fetch, history, logout
//   - Admin: delete, objects, users, adduser, edituser, deluser
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
