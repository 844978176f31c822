package domain

import "time"

// KeyPair is a P-256 key pair, both halves PEM-encoded. The private key never
// leaves the process; only the public key is transmitted or stored under
// another user's identity.
type KeyPair struct {
	PrivatePEM []byte
	PublicPEM  []byte
}

// EncryptedPayload is the result of hybrid encryption: an ephemeral ECDH
// public key plus AES-256-GCM output. Field encodings are fixed by the wire
// protocol: the ephemeral key is the base64 uncompressed EC point, everything
// else is hex.
type EncryptedPayload struct {
	EphemeralPublicKey string `json:"ephemeralPublicKey"`
	Salt               string `json:"salt"`
	IV                 string `json:"iv"`
	Ciphertext         string `json:"ciphertext"`
	Tag                string `json:"tag"`
}

// Envelope is the unit of exchange with the mixnet: every server reply and
// every forwarded chat message arrives in this shape. (Action, Context)
// together determine how Content is parsed; there is no request id, so a
// session must keep at most one authentication flow in flight at a time.
type Envelope struct {
	Action    string `json:"action"`
	Context   string `json:"context"`
	Content   string `json:"content"`
	Signature string `json:"signature,omitempty"`
}

// Incoming is a received Envelope paired with transport-level metadata.
type Incoming struct {
	Envelope   Envelope
	SenderTag  string
	ReceivedAt time.Time
}

// Contact is a resolved (username, public key) pair cached for the owner.
type Contact struct {
	Username  string
	PublicKey string // PEM
}

// Direction of a stored message relative to its owner.
type Direction string

const (
	DirectionSent     Direction = "to"
	DirectionReceived Direction = "from"
)

// Message is a chat message persisted for the owning user.
type Message struct {
	Contact   string
	Direction Direction
	Body      string
	Timestamp time.Time
}

// ReceivedMessage is what a drain pass hands to the UI.
type ReceivedMessage struct {
	Sender string
	Body   string
}
