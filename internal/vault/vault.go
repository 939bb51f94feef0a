// Package vault encrypts private keys under user PINs. Keys are never
// persisted in the clear: the directory stores only the blob this package
// produces, and decryption happens just-in-time inside a transfer.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/scrypt"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// scrypt cost parameters. Changing these invalidates every stored blob, so
// they are fixed rather than configurable.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	keyLen       = 32
	ivLen        = 16
	blobSections = 2
)

// Vault derives encryption keys from PINs with a service-wide salt.
type Vault struct {
	salt []byte
}

// New creates a vault with the given salt. The salt must stay stable across
// restarts or existing wallets become undecryptable.
func New(salt string) (*Vault, error) {
	if salt == "" {
		return nil, dialerr.New("VALIDATION", "encryption salt is required")
	}
	return &Vault{salt: []byte(salt)}, nil
}

// deriveKey stretches the PIN into an AES-256 key.
func (v *Vault) deriveKey(pin string) ([]byte, error) {
	key, err := scrypt.Key([]byte(pin), v.salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrDecryption, "deriving key")
	}
	return key, nil
}

// Encrypt seals plaintext under the PIN-derived key with a fresh random IV.
// The output format is hex(iv):hex(ciphertext with appended tag).
func (v *Vault) Encrypt(plaintext, pin string) (string, error) {
	key, err := v.deriveKey(pin)
	if err != nil {
		return "", err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return "", dialerr.WrapWith(err, dialerr.ErrDecryption, "generating iv")
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Every failure mode, malformed
// blob or wrong PIN alike, returns the same ErrDecryption so callers cannot
// distinguish them. Key derivation runs before any blob inspection: a
// malformed blob must cost the same time as a wrong PIN, or the duration of
// the call reveals which half failed.
func (v *Vault) Decrypt(blob, pin string) (string, error) {
	key, err := v.deriveKey(pin)
	if err != nil {
		return "", dialerr.ErrDecryption
	}

	parts := strings.Split(blob, ":")
	if len(parts) != blobSections {
		return "", dialerr.ErrDecryption
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivLen {
		return "", dialerr.ErrDecryption
	}
	sealed, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", dialerr.ErrDecryption
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", dialerr.ErrDecryption
	}

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", dialerr.ErrDecryption
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrDecryption, "creating cipher")
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLen)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrDecryption, "creating gcm")
	}
	return gcm, nil
}

// HashPin returns the hex SHA-256 digest of a PIN for stored verification.
func HashPin(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// ComparePin checks a candidate PIN against a stored hash in constant time.
func ComparePin(pin, storedHash string) bool {
	candidate := HashPin(pin)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}
