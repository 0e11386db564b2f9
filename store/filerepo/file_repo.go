// Package filerepo stores auth states as encrypted files, one per session.
//
// Each file is sealed with XChaCha20-Poly1305 under a key derived (HKDF-SHA256) from the
// master key. The session ID is bound as additional data, so a file copied to another
// session's name fails to open.
package filerepo

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-auth-state/store"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	// MasterKeyLength is the required length of the master key in bytes.
	MasterKeyLength = 32

	fileExtension = ".state"
	hkdfInfo      = "go-auth-state file repo v1"
)

var (
	ErrInvalidMasterKey = errors.New("master key must be 32 bytes")
	ErrDecrypt          = errors.New("unable to decrypt auth state")
)

var _ store.Repo = (*FileRepo)(nil)

// FileRepo is a store.Repo keeping one encrypted file per session in a directory.
type FileRepo struct {
	dir  string
	aead cipher.AEAD
	lock sync.Mutex
}

// New creates a FileRepo in dir, creating it with owner-only permissions if needed.
func New(dir string, masterKey []byte) (*FileRepo, error) {
	if len(masterKey) != MasterKeyLength {
		return nil, ErrInvalidMasterKey
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("chacha20poly1305.NewX: %w", err)
	}
	return &FileRepo{dir: dir, aead: aead}, nil
}

func (r *FileRepo) Upsert(sessionID string, state []byte) error {
	nonce := make([]byte, r.aead.NonceSize(), r.aead.NonceSize()+len(state)+r.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := r.aead.Seal(nonce, nonce, state, []byte(sessionID))

	r.lock.Lock()
	defer r.lock.Unlock()
	return writeFileAtomic(r.path(sessionID), sealed, 0o600)
}

func (r *FileRepo) Get(sessionID string) ([]byte, error) {
	r.lock.Lock()
	sealed, err := os.ReadFile(r.path(sessionID))
	r.lock.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	if len(sealed) < r.aead.NonceSize()+r.aead.Overhead() {
		return nil, ErrDecrypt
	}
	nonce, ciphertext := sealed[:r.aead.NonceSize()], sealed[r.aead.NonceSize():]
	state, err := r.aead.Open(nil, nonce, ciphertext, []byte(sessionID))
	if err != nil {
		return nil, ErrDecrypt
	}
	return state, nil
}

func (r *FileRepo) Delete(sessionID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	err := os.Remove(r.path(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return store.ErrNotFound
	}
	return err
}

// path hashes the session ID so arbitrary IDs map to safe file names.
func (r *FileRepo) path(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return filepath.Join(r.dir, hex.EncodeToString(sum[:])+fileExtension)
}

// writeFileAtomic writes to a temp file in the same directory and renames it over path.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
