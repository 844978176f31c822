// Package app wires application dependencies for the CLI.
//
// It loads the TOML configuration, builds the concrete store, keystore,
// mixnet transport and session service, and exposes them via the App struct
// for commands to use.
package app
