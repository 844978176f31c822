package protocol

import (
	"encoding/json"
	"fmt"

	"mixchat/internal/domain"
)

// Actions carried by server envelopes.
const (
	ActionChallenge         = "challenge"
	ActionChallengeResponse = "challengeResponse"
	ActionQueryResponse     = "queryResponse"
	ActionIncomingMessage   = "incomingMessage"
	ActionSendResponse      = "sendResponse"
)

// Contexts identifying the flow an action belongs to. These must stay
// distinct and non-overlapping per flow: the session demultiplexes a single
// inbound stream on nothing but these tags.
const (
	ContextRegistration = "registration"
	ContextLogin        = "login"
	ContextQuery        = "query"
	ContextChat         = "chat"
)

// ResultSuccess is the challengeResponse content on a passed handshake.
const ResultSuccess = "success"

// ParseEnvelope decodes the encapsulated JSON carried inside a transport
// frame into an Envelope.
func ParseEnvelope(raw []byte) (domain.Envelope, error) {
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Envelope{}, fmt.Errorf("protocol: envelope: %w", domain.ErrProtocolMismatch)
	}
	return env, nil
}

// ParseChallenge extracts the nonce from a challenge envelope's content.
func ParseChallenge(content string) (string, error) {
	var c struct {
		Nonce string `json:"nonce"`
	}
	if err := json.Unmarshal([]byte(content), &c); err != nil || c.Nonce == "" {
		return "", fmt.Errorf("protocol: challenge without nonce: %w", domain.ErrProtocolMismatch)
	}
	return c.Nonce, nil
}

// ParseQueryResponse extracts a resolved user from a queryResponse envelope.
// A negative or unparsable answer is domain.ErrNotFound: the wire does not
// distinguish "no such user" from a reply this client cannot read.
func ParseQueryResponse(content string) (domain.Contact, error) {
	var r struct {
		Username  string `json:"username"`
		PublicKey string `json:"publicKey"`
	}
	if err := json.Unmarshal([]byte(content), &r); err != nil || r.Username == "" || r.PublicKey == "" {
		return domain.Contact{}, domain.ErrNotFound
	}
	return domain.Contact{Username: r.Username, PublicKey: r.PublicKey}, nil
}

// ChatContent is a parsed incoming chat message. Exactly one of Text and
// Encrypted is meaningful: the body on the wire is either a plain string or
// an {"encryptedPayload": ...} object.
type ChatContent struct {
	Sender    string
	Text      string
	Encrypted *domain.EncryptedPayload
}

// ParseChatContent decodes the content of an incomingMessage envelope.
func ParseChatContent(content string) (ChatContent, error) {
	var outer struct {
		Sender string          `json:"sender"`
		Body   json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal([]byte(content), &outer); err != nil || outer.Sender == "" {
		return ChatContent{}, fmt.Errorf("protocol: chat content: %w", domain.ErrProtocolMismatch)
	}
	out := ChatContent{Sender: outer.Sender}
	if len(outer.Body) == 0 {
		return out, nil
	}

	var text string
	if err := json.Unmarshal(outer.Body, &text); err == nil {
		out.Text = text
		return out, nil
	}

	var wrapped struct {
		EncryptedPayload *domain.EncryptedPayload `json:"encryptedPayload"`
	}
	if err := json.Unmarshal(outer.Body, &wrapped); err == nil && wrapped.EncryptedPayload != nil {
		out.Encrypted = wrapped.EncryptedPayload
		return out, nil
	}

	// Unknown body shape: surface it raw rather than dropping the message.
	out.Text = string(outer.Body)
	return out, nil
}
