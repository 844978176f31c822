package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"mixchat/internal/domain"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"action":"challenge","context":"login","content":"{\"nonce\":\"aa\"}"}`))
	require.NoError(t, err)
	require.Equal(t, ActionChallenge, env.Action)
	require.Equal(t, ContextLogin, env.Context)

	_, err = ParseEnvelope([]byte(`not json`))
	require.ErrorIs(t, err, domain.ErrProtocolMismatch)
}

func TestParseChallenge(t *testing.T) {
	nonce, err := ParseChallenge(`{"nonce":"abc123"}`)
	require.NoError(t, err)
	require.Equal(t, "abc123", nonce)

	for _, content := range []string{``, `{}`, `{"nonce":""}`, `garbage`} {
		_, err := ParseChallenge(content)
		require.ErrorIs(t, err, domain.ErrProtocolMismatch, "content %q", content)
	}
}

func TestParseQueryResponse(t *testing.T) {
	c, err := ParseQueryResponse(`{"username":"bob","publicKey":"PEM"}`)
	require.NoError(t, err)
	require.Equal(t, domain.Contact{Username: "bob", PublicKey: "PEM"}, c)

	// Refusal strings and half-filled answers all mean "not found".
	for _, content := range []string{`No such user with that username`, `{}`, `{"username":"bob"}`} {
		_, err := ParseQueryResponse(content)
		require.ErrorIs(t, err, domain.ErrNotFound, "content %q", content)
	}
}

func TestParseChatContentPlainText(t *testing.T) {
	c, err := ParseChatContent(`{"sender":"bob","body":"hi there"}`)
	require.NoError(t, err)
	require.Equal(t, "bob", c.Sender)
	require.Equal(t, "hi there", c.Text)
	require.Nil(t, c.Encrypted)
}

func TestParseChatContentEncrypted(t *testing.T) {
	c, err := ParseChatContent(`{"sender":"bob","body":{"encryptedPayload":{
		"ephemeralPublicKey":"EPK","salt":"00","iv":"01","ciphertext":"02","tag":"03"}}}`)
	require.NoError(t, err)
	require.Equal(t, "bob", c.Sender)
	require.NotNil(t, c.Encrypted)
	require.Equal(t, "EPK", c.Encrypted.EphemeralPublicKey)
	require.Equal(t, "02", c.Encrypted.Ciphertext)
}

func TestParseChatContentUnknownBodySurfacesRaw(t *testing.T) {
	c, err := ParseChatContent(`{"sender":"bob","body":{"someFutureShape":1}}`)
	require.NoError(t, err)
	require.Equal(t, `{"someFutureShape":1}`, c.Text)
}

func TestParseChatContentRejectsMissingSender(t *testing.T) {
	_, err := ParseChatContent(`{"body":"hi"}`)
	require.ErrorIs(t, err, domain.ErrProtocolMismatch)
}

func TestRequestFieldSpellings(t *testing.T) {
	// Register and login requests carry "usernym"; everything else says
	// "username". Deployed servers parse exactly these keys.
	raw, err := RegisterRequest("alice", "PEM")
	require.NoError(t, err)
	var doc map[string]string
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "alice", doc["usernym"])
	require.NotContains(t, doc, "username")

	raw, err = LoginRequest("alice")
	require.NoError(t, err)
	doc = map[string]string{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "alice", doc["usernym"])

	raw, err = RegistrationResponse("alice", "sig")
	require.NoError(t, err)
	doc = map[string]string{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "alice", doc["username"])

	raw, err = QueryRequest("bob")
	require.NoError(t, err)
	doc = map[string]string{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "bob", doc["username"])
}

func TestDirectMessageFieldOrder(t *testing.T) {
	body, err := TextBody("hi")
	require.NoError(t, err)
	raw, err := json.Marshal(DirectMessage{Sender: "a", Recipient: "b", Body: body})
	require.NoError(t, err)
	// Serialized bytes are the signature input; order is part of the wire.
	require.Equal(t, `{"sender":"a","recipient":"b","body":"hi"}`, string(raw))
}
