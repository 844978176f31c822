package protocol

import (
	"encoding/json"
	"fmt"
)

// Request builders for the flat JSON documents the client sends to the
// directory server. The "usernym" spelling on register/login is what deployed
// servers parse; do not normalize it.

func RegisterRequest(username, publicKeyPEM string) ([]byte, error) {
	return marshalRequest(map[string]string{
		"action":    "register",
		"usernym":   username,
		"publicKey": publicKeyPEM,
	})
}

func RegistrationResponse(username, signatureHex string) ([]byte, error) {
	return marshalRequest(map[string]string{
		"action":    "registrationResponse",
		"username":  username,
		"signature": signatureHex,
	})
}

func LoginRequest(username string) ([]byte, error) {
	return marshalRequest(map[string]string{
		"action":  "login",
		"usernym": username,
	})
}

func LoginResponse(username, signatureHex string) ([]byte, error) {
	return marshalRequest(map[string]string{
		"action":    "loginResponse",
		"username":  username,
		"signature": signatureHex,
	})
}

func QueryRequest(username string) ([]byte, error) {
	return marshalRequest(map[string]string{
		"action":   "query",
		"username": username,
	})
}

// SendRequest carries an already-serialized chat payload and the hex
// signature over those exact bytes.
func SendRequest(payload, signatureHex string) ([]byte, error) {
	return marshalRequest(map[string]string{
		"action":    "send",
		"content":   payload,
		"signature": signatureHex,
	})
}

func marshalRequest(doc map[string]string) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal request: %w", err)
	}
	return raw, nil
}

// DirectMessage is the signed chat payload: serialized once, signed
// byte-exact, and carried as the "content" of a send request. Field order is
// part of the signature input and must not change.
type DirectMessage struct {
	Sender    string          `json:"sender"`
	Recipient string          `json:"recipient"`
	Body      json.RawMessage `json:"body"`
}

// TextBody wraps plain text as a message body.
func TextBody(text string) (json.RawMessage, error) {
	return json.Marshal(text)
}

// EncryptedBody wraps a hybrid-encrypted payload as a message body.
func EncryptedBody(enc any) (json.RawMessage, error) {
	return json.Marshal(struct {
		EncryptedPayload any `json:"encryptedPayload"`
	}{EncryptedPayload: enc})
}
