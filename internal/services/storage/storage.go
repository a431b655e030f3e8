// Package storage gives the rest of the server transparent
// encrypted-or-plaintext file access under a single data directory.
// Encryption is age scrypt (passphrase) based and opt-in per data dir.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"filippo.io/age"
)

const (
	// ageHeader is the prefix of every age-encrypted file.
	ageHeader = "age-encryption.org"

	// markerFile marks a data directory as encrypted.
	markerFile = ".encrypted"

	// verifyFile holds an encrypted magic value used to check the
	// passphrase before any real file is touched.
	verifyFile = ".encryption-verify"

	verifyMagic = `{"magic":"finboard-encryption-verify","version":1}`
)

// ErrLocked is returned when an encrypted file is read while no
// passphrase is loaded.
var ErrLocked = errors.New("storage: encrypted but locked")

// ErrBadPassphrase is returned when the verification file does not
// decrypt with the supplied passphrase.
var ErrBadPassphrase = errors.New("storage: incorrect passphrase")

// Storage reads and writes files under a base directory, encrypting
// and decrypting transparently when the directory is marked encrypted.
type Storage struct {
	baseDir   string
	mu        sync.RWMutex
	encrypted bool
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
}

// New opens a storage rooted at baseDir, detecting whether the
// directory was previously encrypted.
func New(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating base dir: %w", err)
	}
	s := &Storage{baseDir: baseDir}
	if _, err := os.Stat(filepath.Join(baseDir, markerFile)); err == nil {
		s.encrypted = true
	}
	return s, nil
}

// BaseDir returns the data directory root.
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// IsEncrypted reports whether the data directory is marked encrypted.
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encrypted
}

// IsUnlocked reports whether reads and writes can proceed.
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.encrypted || s.identity != nil
}

// Unlock loads the passphrase after verifying it against the
// verification file. A plaintext directory unlocks trivially.
func (s *Storage) Unlock(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("storage: creating identity: %w", err)
	}

	encrypted, err := os.ReadFile(filepath.Join(s.baseDir, verifyFile))
	if err != nil {
		return fmt.Errorf("storage: reading verification file: %w", err)
	}
	decrypted, err := decrypt(encrypted, identity)
	if err != nil || string(decrypted) != verifyMagic {
		return ErrBadPassphrase
	}

	s.identity = identity
	s.recipient, _ = age.NewScryptRecipient(passphrase)
	return nil
}

// Lock drops the passphrase-derived keys from memory.
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	s.recipient = nil
}

// ReadFile reads a file, decrypting it when it carries the age header.
func (s *Storage) ReadFile(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isAgeEncrypted(data) {
		if s.identity == nil {
			return nil, ErrLocked
		}
		return decrypt(data, s.identity)
	}
	return data, nil
}

// WriteFile writes a file atomically, encrypting it first when the
// directory is encrypted and unlocked.
func (s *Storage) WriteFile(path string, data []byte, perm os.FileMode) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.skipEncryption(path) {
		return atomicWrite(path, data, perm)
	}
	if s.encrypted {
		if s.recipient == nil {
			return ErrLocked
		}
		encrypted, err := encrypt(data, s.recipient)
		if err != nil {
			return fmt.Errorf("storage: encrypting %s: %w", filepath.Base(path), err)
		}
		data = encrypted
	}
	return atomicWrite(path, data, perm)
}

// Glob lists files matching a pattern.
func (s *Storage) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

// EnableEncryption encrypts every data file in place and marks the
// directory. The verification file is written first so a half-finished
// migration can still be unlocked and rolled forward.
func (s *Storage) EnableEncryption(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return errors.New("storage: encryption already enabled")
	}
	if len(passphrase) < 8 {
		return errors.New("storage: passphrase must be at least 8 characters")
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("storage: creating recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("storage: creating identity: %w", err)
	}

	verifyPath := filepath.Join(s.baseDir, verifyFile)
	sealed, err := encrypt([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("storage: encrypting verification file: %w", err)
	}
	if err := os.WriteFile(verifyPath, sealed, 0o644); err != nil {
		return fmt.Errorf("storage: writing verification file: %w", err)
	}

	files, err := s.dataFiles()
	if err != nil {
		os.Remove(verifyPath)
		return err
	}
	for _, path := range files {
		if err := s.sealFile(path, recipient); err != nil {
			s.unsealAll(files, identity)
			os.Remove(verifyPath)
			return fmt.Errorf("storage: encrypting %s: %w", filepath.Base(path), err)
		}
	}

	if err := os.WriteFile(filepath.Join(s.baseDir, markerFile), []byte("encrypted"), 0o644); err != nil {
		return fmt.Errorf("storage: writing marker file: %w", err)
	}

	s.encrypted = true
	s.identity = identity
	s.recipient = recipient
	return nil
}

// DisableEncryption verifies the passphrase, decrypts every encrypted
// file in place, and clears the marker.
func (s *Storage) DisableEncryption(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return errors.New("storage: encryption not enabled")
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("storage: creating identity: %w", err)
	}
	verifyPath := filepath.Join(s.baseDir, verifyFile)
	sealed, err := os.ReadFile(verifyPath)
	if err != nil {
		return fmt.Errorf("storage: reading verification file: %w", err)
	}
	decrypted, err := decrypt(sealed, identity)
	if err != nil || string(decrypted) != verifyMagic {
		return ErrBadPassphrase
	}

	files, err := s.dataFiles()
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := s.unsealFile(path, identity); err != nil {
			return fmt.Errorf("storage: decrypting %s: %w", filepath.Base(path), err)
		}
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(verifyPath)
	s.encrypted = false
	s.identity = nil
	s.recipient = nil
	return nil
}

// dataFiles walks the base directory for JSON documents eligible for
// encryption migration.
func (s *Storage) dataFiles() ([]string, error) {
	var files []string
	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || s.skipEncryption(path) {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: scanning data files: %w", err)
	}
	return files, nil
}

func (s *Storage) sealFile(path string, recipient *age.ScryptRecipient) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if isAgeEncrypted(data) {
		return nil
	}
	sealed, err := encrypt(data, recipient)
	if err != nil {
		return err
	}
	return atomicWrite(path, sealed, 0o644)
}

func (s *Storage) unsealFile(path string, identity *age.ScryptIdentity) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !isAgeEncrypted(data) {
		return nil
	}
	plain, err := decrypt(data, identity)
	if err != nil {
		return err
	}
	return atomicWrite(path, plain, 0o644)
}

// unsealAll is the best-effort rollback after a failed migration.
func (s *Storage) unsealAll(files []string, identity *age.ScryptIdentity) {
	for _, path := range files {
		_ = s.unsealFile(path, identity)
	}
}

func (s *Storage) skipEncryption(path string) bool {
	base := filepath.Base(path)
	return base == markerFile || base == verifyFile
}

func isAgeEncrypted(data []byte) bool {
	return len(data) > len(ageHeader) && string(data[:len(ageHeader)]) == ageHeader
}

// atomicWrite lands data via a temp file and rename so readers never
// see a torn document.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
