// Package keyring manages account keypairs for the ledger CLI.
//
// The ledger core treats signing and verification as opaque capabilities;
// this package is the collaborator that actually holds keys. Private keys
// are sealed at rest with AES-256-GCM under a key derived from a master
// passphrase via argon2id, and each sealed key is bound to its account id
// as additional authenticated data - a sealed key copied onto another
// account record will not open.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"

	"github.com/slumbank/slumbank/internal/ledger"
)

// argon2id parameters. Frozen: changing them invalidates every existing
// keyring file, since the derived key would no longer match.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	keyLen       = 32
	saltLen      = 16
)

// GenerateKeypair creates a fresh Ed25519 keypair. The public key is
// returned base64-encoded, ready for account registration.
func GenerateKeypair() (publicKeyB64 string, priv ed25519.PrivateKey, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, fmt.Errorf("generate keypair: %w", err)
	}
	return ledger.EncodePublicKey(pub), priv, nil
}

// fileFormat is the on-disk JSON layout of a keyring.
type fileFormat struct {
	Salt string            `json:"salt"`           // base64, argon2id salt
	Keys map[string]string `json:"keys,omitempty"` // account id -> base64 sealed private key
}

// Keyring is a passphrase-protected store of sealed private keys.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Keyring struct {
	mu     sync.Mutex
	path   string
	salt   string // base64, persisted with every save
	aead   cipher.AEAD
	sealed map[string]string
}

// Open loads the keyring at path, creating a new one (with a fresh random
// salt) if the file does not exist. The master key is derived from the
// passphrase with argon2id; a wrong passphrase surfaces as an open error
// on the first Unseal, not here.
func Open(path, passphrase string) (*Keyring, error) {
	var ff fileFormat

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &ff); err != nil {
			return nil, fmt.Errorf("keyring %s: parse: %w", path, err)
		}
	case os.IsNotExist(err):
		salt := make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("keyring: generate salt: %w", err)
		}
		ff = fileFormat{Salt: base64.StdEncoding.EncodeToString(salt)}
	default:
		return nil, fmt.Errorf("keyring %s: %w", path, err)
	}

	salt, err := base64.StdEncoding.DecodeString(ff.Salt)
	if err != nil {
		return nil, fmt.Errorf("keyring %s: decode salt: %w", path, err)
	}

	master := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keyLen)
	block, err := aes.NewCipher(master)
	if err != nil {
		return nil, fmt.Errorf("keyring: cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keyring: gcm: %w", err)
	}

	if ff.Keys == nil {
		ff.Keys = make(map[string]string)
	}

	return &Keyring{path: path, salt: ff.Salt, aead: aead, sealed: ff.Keys}, nil
}

// Seal encrypts and stores the private key for an account, then persists
// the keyring file. Overwrites any previous key for the same account.
func (k *Keyring) Seal(accountID string, priv ed25519.PrivateKey) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	nonce := make([]byte, k.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("seal %s: nonce: %w", accountID, err)
	}

	// Nonce is prepended to the ciphertext; AAD binds the blob to the account.
	box := k.aead.Seal(nonce, nonce, priv, []byte(accountID))
	k.sealed[accountID] = base64.StdEncoding.EncodeToString(box)

	return k.save()
}

// Unseal decrypts the private key for an account. Fails if the account has
// no stored key, the passphrase is wrong, or the blob was moved between
// accounts.
func (k *Keyring) Unseal(accountID string) (ed25519.PrivateKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	sealedB64, ok := k.sealed[accountID]
	if !ok {
		return nil, fmt.Errorf("unseal %s: no key in keyring", accountID)
	}

	box, err := base64.StdEncoding.DecodeString(sealedB64)
	if err != nil {
		return nil, fmt.Errorf("unseal %s: decode: %w", accountID, err)
	}
	if len(box) < k.aead.NonceSize() {
		return nil, fmt.Errorf("unseal %s: sealed key too short", accountID)
	}

	nonce, ciphertext := box[:k.aead.NonceSize()], box[k.aead.NonceSize():]
	priv, err := k.aead.Open(nil, nonce, ciphertext, []byte(accountID))
	if err != nil {
		return nil, fmt.Errorf("unseal %s: %w", accountID, err)
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("unseal %s: got %d bytes, want %d", accountID, len(priv), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(priv), nil
}

// Has reports whether the keyring holds a key for the account.
func (k *Keyring) Has(accountID string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.sealed[accountID]
	return ok
}

// save writes the keyring file atomically (write temp, rename over).
// Caller must hold k.mu.
func (k *Keyring) save() error {
	data, err := json.MarshalIndent(fileFormat{Salt: k.salt, Keys: k.sealed}, "", "  ")
	if err != nil {
		return fmt.Errorf("keyring: marshal: %w", err)
	}

	tmp := k.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("keyring: write: %w", err)
	}
	if err := os.Rename(tmp, k.path); err != nil {
		return fmt.Errorf("keyring: rename: %w", err)
	}
	return nil
}

// Path returns the keyring file location.
func (k *Keyring) Path() string { return k.path }

// DefaultPath places the keyring next to the given database file.
func DefaultPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "keyring.json")
}
