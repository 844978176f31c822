// Package session owns the client's protocol state machine: the
// challenge-response registration and login handshakes, directory queries,
// outgoing signed messages, and the drain of incoming chat traffic. It is the
// single consumer of the transport's inbound envelope stream.
package session
