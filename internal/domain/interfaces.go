package domain

import "context"

// Transport is the mixnet collaborator: an opaque send capability plus a
// single-consumer stream of incoming envelopes. Anonymization concerns
// (routing, SURBs) live entirely behind it.
type Transport interface {
	// Send delivers payload to the recipient identity (an opaque address
	// string resolvable by the mixnet). Errors surface verbatim; retry
	// policy belongs to the caller.
	Send(ctx context.Context, recipient string, payload []byte) error

	// Incoming returns the inbound envelope stream. Arrival order is
	// preserved; the channel closes when the transport dies.
	Incoming() <-chan Incoming

	// SelfAddress is our own address on the mixnet.
	SelfAddress() string

	Close() error
}

// Store persists users, contacts, and messages, all keyed by the owning
// username. Per-user data is logically partitioned.
type Store interface {
	RegisterUser(username, publicKeyPEM string) error
	GetUser(username string) (Contact, error)

	AddContact(owner string, c Contact) error
	GetContact(owner, contact string) (Contact, error)
	Contacts(owner string) ([]Contact, error)

	SaveMessage(owner string, m Message) error
	Messages(owner, contact string) ([]Message, error)
}

// Keystore seals the local user's key pair at rest under a passphrase.
type Keystore interface {
	SaveKeyPair(username, passphrase string, kp KeyPair) error
	LoadKeyPair(username, passphrase string) (KeyPair, error)
}
