package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// Sign produces an ECDSA signature over SHA-256(message), ASN.1 DER encoded.
// The protocol layer hex-encodes it for transport.
func Sign(privPEM, message []byte) ([]byte, error) {
	key, err := parsePrivateKey(privPEM)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(message)
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: sign: %w", err)
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature over message by the holder
// of pubPEM. It returns false, never an error, on malformed keys or
// signatures: both are attacker-controlled inputs here.
func Verify(pubPEM, message, sig []byte) bool {
	key, err := parsePublicKey(pubPEM)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(message)
	return ecdsa.VerifyASN1(key, digest[:], sig)
}
