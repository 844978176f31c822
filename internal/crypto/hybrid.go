package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"mixchat/internal/domain"
)

const (
	saltSize = 16
	ivSize   = 12
	tagSize  = 16
)

// Encrypt seals plaintext for the holder of recipientPubPEM.
//
// A fresh ephemeral P-256 pair is generated per message, so each message has
// its own shared secret: forward secrecy without a prior handshake, which is
// what a store-and-forward transport needs. The symmetric key is
// SHA-256(salt || ECDH(ephemeral, recipient)) and the cipher is AES-256-GCM.
func Encrypt(recipientPubPEM, plaintext []byte) (domain.EncryptedPayload, error) {
	recipient, err := parsePublicKey(recipientPubPEM)
	if err != nil {
		return domain.EncryptedPayload{}, err
	}
	recipientDH, err := recipient.ECDH()
	if err != nil {
		return domain.EncryptedPayload{}, fmt.Errorf("crypto: recipient key: %w", err)
	}

	ephemeral, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return domain.EncryptedPayload{}, fmt.Errorf("crypto: ephemeral key: %w", err)
	}
	shared, err := ephemeral.ECDH(recipientDH)
	if err != nil {
		return domain.EncryptedPayload{}, fmt.Errorf("crypto: ECDH: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return domain.EncryptedPayload{}, fmt.Errorf("crypto: salt: %w", err)
	}
	key := deriveKey(salt, shared)

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return domain.EncryptedPayload{}, fmt.Errorf("crypto: iv: %w", err)
	}
	aead, err := newGCM(key)
	if err != nil {
		return domain.EncryptedPayload{}, err
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - tagSize

	return domain.EncryptedPayload{
		EphemeralPublicKey: base64.StdEncoding.EncodeToString(ephemeral.PublicKey().Bytes()),
		Salt:               hex.EncodeToString(salt),
		IV:                 hex.EncodeToString(iv),
		Ciphertext:         hex.EncodeToString(sealed[:split]),
		Tag:                hex.EncodeToString(sealed[split:]),
	}, nil
}

// Decrypt opens a payload with the recipient's private key. Any malformed or
// missized field and any tag mismatch fails closed with domain.ErrAuthFailed;
// partial plaintext is never returned.
func Decrypt(privPEM []byte, enc domain.EncryptedPayload) ([]byte, error) {
	key, err := parsePrivateKey(privPEM)
	if err != nil {
		return nil, err
	}
	privDH, err := key.ECDH()
	if err != nil {
		return nil, fmt.Errorf("crypto: private key: %w", err)
	}

	ephBytes, err := base64.StdEncoding.DecodeString(enc.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: ephemeral key: %w", domain.ErrAuthFailed)
	}
	ephemeral, err := ecdh.P256().NewPublicKey(ephBytes)
	if err != nil {
		return nil, fmt.Errorf("crypto: ephemeral key: %w", domain.ErrAuthFailed)
	}

	salt, err := hex.DecodeString(enc.Salt)
	if err != nil || len(salt) != saltSize {
		return nil, fmt.Errorf("crypto: salt: %w", domain.ErrAuthFailed)
	}
	iv, err := hex.DecodeString(enc.IV)
	if err != nil || len(iv) != ivSize {
		return nil, fmt.Errorf("crypto: iv: %w", domain.ErrAuthFailed)
	}
	ciphertext, err := hex.DecodeString(enc.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("crypto: ciphertext: %w", domain.ErrAuthFailed)
	}
	tag, err := hex.DecodeString(enc.Tag)
	if err != nil || len(tag) != tagSize {
		return nil, fmt.Errorf("crypto: tag: %w", domain.ErrAuthFailed)
	}

	shared, err := privDH.ECDH(ephemeral)
	if err != nil {
		return nil, fmt.Errorf("crypto: ECDH: %w", err)
	}
	aead, err := newGCM(deriveKey(salt, shared))
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: open: %w", domain.ErrAuthFailed)
	}
	return plaintext, nil
}

// deriveKey is the protocol's lightweight KDF: SHA-256 over salt || shared.
// Wire-frozen; not a full HKDF.
func deriveKey(salt, shared []byte) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write(shared)
	return h.Sum(nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: gcm: %w", err)
	}
	return aead, nil
}
