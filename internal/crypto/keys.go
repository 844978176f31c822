package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"mixchat/internal/domain"
)

const (
	privatePEMType = "PRIVATE KEY"
	publicPEMType  = "PUBLIC KEY"
)

// GenerateKeyPair returns a fresh P-256 key pair, the private half encoded as
// PKCS#8 PEM and the public half as PKIX (SubjectPublicKeyInfo) PEM, matching
// what the directory server and every peer expect.
func GenerateKeyPair() (domain.KeyPair, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("crypto: generate P-256 key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("crypto: encode private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("crypto: encode public key: %w", err)
	}

	return domain.KeyPair{
		PrivatePEM: pem.EncodeToMemory(&pem.Block{Type: privatePEMType, Bytes: privDER}),
		PublicPEM:  pem.EncodeToMemory(&pem.Block{Type: publicPEMType, Bytes: pubDER}),
	}, nil
}

// parsePrivateKey decodes a PKCS#8 (or legacy SEC 1) PEM private key and
// requires it to be an ECDSA key.
func parsePrivateKey(privPEM []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(privPEM)
	if block == nil {
		return nil, errors.New("crypto: no PEM block in private key")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		ec, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, errors.New("crypto: private key is not ECDSA")
		}
		return ec, nil
	}
	ec, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse private key: %w", err)
	}
	return ec, nil
}

// parsePublicKey decodes a PKIX PEM public key and requires it to be ECDSA.
func parsePublicKey(pubPEM []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(pubPEM)
	if block == nil {
		return nil, errors.New("crypto: no PEM block in public key")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse public key: %w", err)
	}
	ec, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("crypto: public key is not ECDSA")
	}
	return ec, nil
}
