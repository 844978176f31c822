// Package store provides local persistence: a SQLite database for users,
// contacts, and message history, and a passphrase-sealed keystore for the
// local user's key pair. All relational data is keyed by the owning username
// so per-user data stays logically partitioned.
package store
