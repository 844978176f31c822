package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"mixchat/internal/crypto"
	"mixchat/internal/domain"
)

func makeKeyPair(t *testing.T) domain.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return kp
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	kp := makeKeyPair(t)

	plaintexts := [][]byte{
		[]byte("hello bob"),
		[]byte(""),
		bytes.Repeat([]byte{0x00, 0xff}, 512),
	}
	for _, pt := range plaintexts {
		enc, err := crypto.Encrypt(kp.PublicPEM, pt)
		if err != nil {
			t.Fatalf("Encrypt(%d bytes): %v", len(pt), err)
		}
		got, err := crypto.Decrypt(kp.PrivatePEM, enc)
		if err != nil {
			t.Fatalf("Decrypt(%d bytes): %v", len(pt), err)
		}
		if !bytes.Equal(got, pt) {
			t.Fatalf("round trip mismatch: got %q want %q", got, pt)
		}
	}
}

func TestEncryptUsesFreshEphemeralKey(t *testing.T) {
	kp := makeKeyPair(t)
	a, err := crypto.Encrypt(kp.PublicPEM, []byte("same plaintext"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := crypto.Encrypt(kp.PublicPEM, []byte("same plaintext"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a.EphemeralPublicKey == b.EphemeralPublicKey {
		t.Fatal("two messages shared an ephemeral key")
	}
	if a.Ciphertext == b.Ciphertext {
		t.Fatal("two messages produced identical ciphertext")
	}
}

// flipHex alters the first nibble of a hex string.
func flipHex(s string) string {
	b := []byte(s)
	if b[0] == '0' {
		b[0] = '1'
	} else {
		b[0] = '0'
	}
	return string(b)
}

func TestDecryptRejectsTamperedPayload(t *testing.T) {
	kp := makeKeyPair(t)
	enc, err := crypto.Encrypt(kp.PublicPEM, []byte("integrity matters"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	tampered := map[string]domain.EncryptedPayload{
		"ciphertext": {EphemeralPublicKey: enc.EphemeralPublicKey, Salt: enc.Salt, IV: enc.IV, Ciphertext: flipHex(enc.Ciphertext), Tag: enc.Tag},
		"tag":        {EphemeralPublicKey: enc.EphemeralPublicKey, Salt: enc.Salt, IV: enc.IV, Ciphertext: enc.Ciphertext, Tag: flipHex(enc.Tag)},
		"iv":         {EphemeralPublicKey: enc.EphemeralPublicKey, Salt: enc.Salt, IV: flipHex(enc.IV), Ciphertext: enc.Ciphertext, Tag: enc.Tag},
		"salt":       {EphemeralPublicKey: enc.EphemeralPublicKey, Salt: flipHex(enc.Salt), IV: enc.IV, Ciphertext: enc.Ciphertext, Tag: enc.Tag},
	}
	for field, payload := range tampered {
		if _, err := crypto.Decrypt(kp.PrivatePEM, payload); !errors.Is(err, domain.ErrAuthFailed) {
			t.Fatalf("tampered %s: want ErrAuthFailed, got %v", field, err)
		}
	}
}

func TestDecryptRejectsMalformedFields(t *testing.T) {
	kp := makeKeyPair(t)
	enc, err := crypto.Encrypt(kp.PublicPEM, []byte("x"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	bad := []domain.EncryptedPayload{
		{},
		{EphemeralPublicKey: "not base64!", Salt: enc.Salt, IV: enc.IV, Ciphertext: enc.Ciphertext, Tag: enc.Tag},
		{EphemeralPublicKey: enc.EphemeralPublicKey, Salt: "abcd", IV: enc.IV, Ciphertext: enc.Ciphertext, Tag: enc.Tag},
		{EphemeralPublicKey: enc.EphemeralPublicKey, Salt: enc.Salt, IV: "00", Ciphertext: enc.Ciphertext, Tag: enc.Tag},
		{EphemeralPublicKey: enc.EphemeralPublicKey, Salt: enc.Salt, IV: enc.IV, Ciphertext: "zz", Tag: enc.Tag},
		{EphemeralPublicKey: enc.EphemeralPublicKey, Salt: enc.Salt, IV: enc.IV, Ciphertext: enc.Ciphertext, Tag: "ffff"},
	}
	for i, payload := range bad {
		if _, err := crypto.Decrypt(kp.PrivatePEM, payload); err == nil {
			t.Fatalf("malformed payload %d: decrypt succeeded", i)
		}
	}
}

func TestDecryptWrongRecipientFails(t *testing.T) {
	alice := makeKeyPair(t)
	eve := makeKeyPair(t)

	enc, err := crypto.Encrypt(alice.PublicPEM, []byte("for alice only"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := crypto.Decrypt(eve.PrivatePEM, enc); !errors.Is(err, domain.ErrAuthFailed) {
		t.Fatalf("wrong recipient: want ErrAuthFailed, got %v", err)
	}
}

func TestSignVerify(t *testing.T) {
	kp := makeKeyPair(t)
	msg := []byte("abc123")

	sig, err := crypto.Sign(kp.PrivatePEM, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !crypto.Verify(kp.PublicPEM, msg, sig) {
		t.Fatal("signature did not verify")
	}
	if crypto.Verify(kp.PublicPEM, []byte("abc124"), sig) {
		t.Fatal("signature verified against a different message")
	}

	other := makeKeyPair(t)
	if crypto.Verify(other.PublicPEM, msg, sig) {
		t.Fatal("signature verified under a different key")
	}
}

func TestVerifyNeverPanicsOnGarbage(t *testing.T) {
	kp := makeKeyPair(t)
	msg := []byte("m")

	if crypto.Verify(nil, msg, nil) {
		t.Fatal("verified with nil key")
	}
	if crypto.Verify([]byte("not pem"), msg, []byte{0x30}) {
		t.Fatal("verified with garbage key")
	}
	if crypto.Verify(kp.PublicPEM, msg, []byte("definitely not DER")) {
		t.Fatal("verified garbage signature")
	}
	if crypto.Verify(kp.PrivatePEM, msg, []byte{}) {
		t.Fatal("verified with a private key PEM as public key")
	}
}

func TestSignRejectsMalformedKey(t *testing.T) {
	if _, err := crypto.Sign([]byte("junk"), []byte("m")); err == nil {
		t.Fatal("Sign accepted a malformed key")
	}
}
