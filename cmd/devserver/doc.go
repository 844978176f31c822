// Package main runs the in-memory directory server used by mixchat during
// development and tests. It stands in for both the production directory
// server and the mixnet daemon: clients speak the daemon websocket dialect
// directly to it, and every sendAnonymous frame is treated as addressed to
// the directory.
//
// Websocket dialect
//
//	{"type":"selfAddress"}
//	    Answered with a fresh opaque address for this connection.
//
//	{"type":"sendAnonymous","message":...}
//	    The message is one of the client request documents (register,
//	    registrationResponse, login, loginResponse, query, send). Replies
//	    come back as {"type":"received","message":<envelope JSON>}.
//
// Behaviour
//
//   - Registration and login run the challenge-response flow: a random
//     16-byte hex nonce, then ECDSA verification of the signed nonce
//     against the (to-be-)registered public key.
//   - Queries answer with the registered public key, or a plain refusal
//     string for unknown users.
//   - send requests are signature-checked against the sender's registered
//     key and forwarded to the recipient's live connection as an
//     incomingMessage envelope; offline recipients yield a failure ack.
//   - All state is held in memory and lost on process exit.
//
// The default listen address is 127.0.0.1:1977, the port clients use for a
// local mixnet daemon.
package main
