package domain

import "errors"

var (
	// ErrNoLocalKey means an operation that requires the user's private key
	// was attempted with none available, neither in memory nor in the
	// keystore. Register first.
	ErrNoLocalKey = errors.New("no local private key for user")

	// ErrAuthFailed means a signature or AEAD tag did not verify. Hard
	// negative result; never retried.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrProtocolMismatch means an envelope's content did not parse as
	// required for its (action, context).
	ErrProtocolMismatch = errors.New("envelope content does not match protocol")

	// ErrFlowInProgress means a registration, login, or query is already
	// awaiting a server reply on this session. Flows share one inbound
	// stream and must be serialized.
	ErrFlowInProgress = errors.New("another flow is already in progress")

	// ErrNotLoggedIn means the session has no authenticated user yet.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrNotFound is returned by stores for missing rows and by the query
	// flow for users the directory does not know.
	ErrNotFound = errors.New("not found")

	// ErrTransportClosed means the inbound stream ended while a flow was
	// still waiting on it.
	ErrTransportClosed = errors.New("transport closed")
)
