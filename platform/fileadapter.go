package platform

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/nacl/secretbox"
)

// ErrInvalidSecureKey indicates the secure-store key is not 32 bytes.
var ErrInvalidSecureKey = errors.New("secure store key must be 32 bytes")

// ErrSecureKeyNotFound indicates a secure-store lookup miss.
var ErrSecureKeyNotFound = errors.New("secure key not found")

// FileAdapter is a ready-made Adapter backed by the local filesystem.
// Plain file operations map directly onto the os package; the secure
// store is a single JSON file whose values are sealed with
// nacl/secretbox under a caller-supplied 32-byte key, so secrets are
// encrypted at rest even on hosts without a platform keychain.
type FileAdapter struct {
	secureFile string
	secureKey  [32]byte

	mu     sync.Mutex
	sealed map[string]string // key -> base64(nonce||ciphertext)
	loaded bool
}

// NewFileAdapter creates a FileAdapter whose secure store lives at
// secureFile. key must be exactly 32 bytes.
func NewFileAdapter(secureFile string, key []byte) (*FileAdapter, error) {
	if len(key) != 32 {
		return nil, ErrInvalidSecureKey
	}
	fa := &FileAdapter{secureFile: secureFile}
	copy(fa.secureKey[:], key)
	logrus.WithFields(logrus.Fields{
		"function":    "NewFileAdapter",
		"secure_file": secureFile,
	}).Debug("Created file-backed platform adapter")
	return fa, nil
}

// Log writes the engine log line through the module logger.
func (fa *FileAdapter) Log(level LogLevel, tag, message string) {
	fallbackLog(level, tag, message)
}

// FileExists reports whether path names an existing regular file.
func (fa *FileAdapter) FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// FileRead returns the file contents at path.
func (fa *FileAdapter) FileRead(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// FileWrite stores data at path, creating parent directories as needed.
func (fa *FileAdapter) FileWrite(path string, data []byte) bool {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false
	}
	return os.WriteFile(path, data, 0o644) == nil
}

// FileDelete removes the file at path. Deleting a missing file fails.
func (fa *FileAdapter) FileDelete(path string) bool {
	return os.Remove(path) == nil
}

// SecureGet opens the sealed value stored under key.
func (fa *FileAdapter) SecureGet(key string) (string, error) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if err := fa.loadLocked(); err != nil {
		return "", err
	}
	sealed, ok := fa.sealed[key]
	if !ok {
		return "", ErrSecureKeyNotFound
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < 24 {
		return "", errors.New("corrupt secure store entry")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &fa.secureKey)
	if !ok {
		return "", errors.New("secure store entry failed to open")
	}
	return string(plain), nil
}

// SecureSet seals value under key and persists the store.
func (fa *FileAdapter) SecureSet(key, value string) bool {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return false
	}
	sealed := secretbox.Seal(nonce[:], []byte(value), &nonce, &fa.secureKey)

	fa.mu.Lock()
	defer fa.mu.Unlock()
	if err := fa.loadLocked(); err != nil {
		return false
	}
	fa.sealed[key] = base64.StdEncoding.EncodeToString(sealed)
	return fa.persistLocked() == nil
}

// SecureDelete removes key from the store and persists it.
func (fa *FileAdapter) SecureDelete(key string) bool {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if err := fa.loadLocked(); err != nil {
		return false
	}
	if _, ok := fa.sealed[key]; !ok {
		return false
	}
	delete(fa.sealed, key)
	return fa.persistLocked() == nil
}

// NowMs returns the system wall clock in milliseconds.
func (fa *FileAdapter) NowMs() int64 {
	return time.Now().UnixMilli()
}

func (fa *FileAdapter) loadLocked() error {
	if fa.loaded {
		return nil
	}
	fa.sealed = make(map[string]string)
	data, err := os.ReadFile(fa.secureFile)
	if err != nil {
		if os.IsNotExist(err) {
			fa.loaded = true
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, &fa.sealed); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "loadLocked",
			"error":    err.Error(),
		}).Warn("Secure store file is corrupt, starting empty")
		fa.sealed = make(map[string]string)
	}
	fa.loaded = true
	return nil
}

func (fa *FileAdapter) persistLocked() error {
	data, err := json.Marshal(fa.sealed)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fa.secureFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(fa.secureFile, data, 0o600)
}
