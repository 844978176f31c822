// Package crypto implements the key handling and ciphers fixed by the wire
// protocol: P-256 key pairs carried as PEM, ECDSA (SHA-256, ASN.1 DER)
// signatures, and hybrid encryption built from ephemeral ECDH plus
// AES-256-GCM. It is stateless and safe for concurrent use.
package crypto
