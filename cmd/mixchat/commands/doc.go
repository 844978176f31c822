// Package commands defines the mixchat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - register   Create an identity and register it with the directory server
//   - login      Prove possession of an existing identity
//   - query      Look up another user's public key
//   - send       Sign and send a direct message
//   - recv       Drain incoming messages
//   - contacts   List cached contacts
//   - history    Print the message history with a contact
//   - whoami     Print our own mixnet address
//
// # Implementation
//
// The root command loads the TOML config, applies flag overrides, and builds
// the dependency graph (database, keystore, mixnet transport, session) before
// any subcommand runs, so handlers share one connected app context.
package commands
