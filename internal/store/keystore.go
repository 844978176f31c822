package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"mixchat/internal/domain"
)

const (
	// The current supported version of the encrypted blob format on disk.
	keystoreFormatVersion = 1

	keyFileMode = os.FileMode(0o600)
	keyDirMode  = os.FileMode(0o700)
)

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// stored key material has been modified or corrupted.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key")

// FileKeystore seals key pairs under <dir>/keys/<username>.key. This is how
// a private key survives a process restart: registration writes it here and
// login reads it back with the same passphrase.
type FileKeystore struct {
	dir string
}

// NewFileKeystore returns a keystore rooted at the given home directory.
func NewFileKeystore(home string) *FileKeystore {
	return &FileKeystore{dir: filepath.Join(home, "keys")}
}

// blob is the on-disk JSON structure holding the ciphertext and KDF parameters.
type blob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// SaveKeyPair seals kp under the passphrase and writes it for username.
func (k *FileKeystore) SaveKeyPair(username, passphrase string, kp domain.KeyPair) error {
	raw, err := json.Marshal(kp)
	if err != nil {
		return fmt.Errorf("keystore: encode key pair: %w", err)
	}

	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return fmt.Errorf("keystore: salt: %w", err)
	}
	N, r, p := scryptParamsDefault()
	key, err := scrypt.Key([]byte(passphrase), salt[:], N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return fmt.Errorf("keystore: derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return fmt.Errorf("keystore: cipher: %w", err)
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; salt-bound key guarantees uniqueness
	ct := aead.Seal(nil, nonce[:], raw, salt[:])

	out, err := json.Marshal(blob{V: keystoreFormatVersion, Salt: salt[:], N: N, R: r, P: p, Cipher: ct})
	if err != nil {
		return fmt.Errorf("keystore: encode blob: %w", err)
	}

	if err := os.MkdirAll(k.dir, keyDirMode); err != nil {
		return fmt.Errorf("keystore: create dir: %w", err)
	}
	if err := os.WriteFile(k.path(username), out, keyFileMode); err != nil {
		return fmt.Errorf("keystore: write: %w", err)
	}
	return nil
}

// LoadKeyPair opens username's sealed key pair with the passphrase. A missing
// file is domain.ErrNotFound; a bad passphrase or tampered blob is
// ErrWrongPassphrase.
func (k *FileKeystore) LoadKeyPair(username, passphrase string) (domain.KeyPair, error) {
	data, err := os.ReadFile(k.path(username))
	if errors.Is(err, os.ErrNotExist) {
		return domain.KeyPair{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("keystore: read: %w", err)
	}

	var bl blob
	if err := json.Unmarshal(data, &bl); err != nil {
		return domain.KeyPair{}, fmt.Errorf("keystore: decode blob: %w", err)
	}
	if bl.V > keystoreFormatVersion {
		return domain.KeyPair{}, fmt.Errorf("keystore: unsupported version %d", bl.V)
	}

	key, err := scrypt.Key([]byte(passphrase), bl.Salt, bl.N, bl.R, bl.P, chacha20poly1305.KeySize)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("keystore: derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("keystore: cipher: %w", err)
	}
	var nonce [chacha20poly1305.NonceSize]byte
	raw, err := aead.Open(nil, nonce[:], bl.Cipher, bl.Salt)
	if err != nil {
		return domain.KeyPair{}, ErrWrongPassphrase
	}

	var kp domain.KeyPair
	if err := json.Unmarshal(raw, &kp); err != nil {
		return domain.KeyPair{}, fmt.Errorf("keystore: decode key pair: %w", err)
	}
	return kp, nil
}

func (k *FileKeystore) path(username string) string {
	return filepath.Join(k.dir, username+".key")
}

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }

// Compile-time assertion that FileKeystore implements domain.Keystore.
var _ domain.Keystore = (*FileKeystore)(nil)
