// Package identity manages user profiles and cookie sessions.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"finboard/internal/services/storage"
)

const (
	sessionName  = "finboard-session"
	sessionKey   = "user_id"
	profilesFile = "profiles.json"
)

// ErrWrongPIN is returned when a known phone number presents a PIN
// that does not match the stored hash.
var ErrWrongPIN = errors.New("identity: incorrect PIN")

// ErrNotSignedIn is returned when a request carries no valid session.
var ErrNotSignedIn = errors.New("identity: not signed in")

// Profile is one registered user. The PIN is stored as a SHA-256 hex
// digest, never in the clear.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Bank      string    `json:"bank"`
	PINHash   string    `json:"pin_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager owns the profile registry and the session cookie store.
// Profiles persist as one JSON document through the encrypted storage
// layer, keyed by phone number for sign-in lookup.
type Manager struct {
	files    *storage.Storage
	sessions *sessions.CookieStore

	mu       sync.RWMutex
	profiles map[string]Profile // by ID
	byPhone  map[string]string  // phone -> ID
}

// NewManager loads the profile registry and prepares the cookie store.
// An empty sessionSecret gets a random key, which invalidates sessions
// on restart; set one for stable sessions.
func NewManager(files *storage.Storage, sessionSecret string, maxAge int) (*Manager, error) {
	var key []byte
	if sessionSecret != "" {
		sum := sha256.Sum256([]byte(sessionSecret))
		key = sum[:]
	} else {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("identity: generating session key: %w", err)
		}
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	m := &Manager{
		files:    files,
		sessions: store,
		profiles: make(map[string]Profile),
		byPhone:  make(map[string]string),
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) path() string {
	return filepath.Join(m.files.BaseDir(), profilesFile)
}

func (m *Manager) load() error {
	data, err := m.files.ReadFile(m.path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("identity: reading profiles: %w", err)
	}
	var profiles []Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return fmt.Errorf("identity: decoding profiles: %w", err)
	}
	for _, p := range profiles {
		m.profiles[p.ID] = p
		m.byPhone[p.Phone] = p.ID
	}
	return nil
}

// save persists the registry. Caller holds m.mu.
func (m *Manager) save() error {
	profiles := make([]Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].CreatedAt.Before(profiles[j].CreatedAt) })
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("identity: encoding profiles: %w", err)
	}
	if err := m.files.WriteFile(m.path(), data, 0o600); err != nil {
		return fmt.Errorf("identity: writing profiles: %w", err)
	}
	return nil
}

func hashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// SignIn authenticates by phone and PIN, registering a new profile
// when the phone is unknown. On success the session cookie is set.
func (m *Manager) SignIn(w http.ResponseWriter, r *http.Request, name, phone, bank, pin string) (Profile, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || pin == "" {
		return Profile{}, errors.New("identity: phone and PIN are required")
	}

	m.mu.Lock()
	profile, err := m.signInLocked(name, phone, bank, pin)
	m.mu.Unlock()
	if err != nil {
		return Profile{}, err
	}

	session, _ := m.sessions.Get(r, sessionName)
	session.Values[sessionKey] = profile.ID
	if err := session.Save(r, w); err != nil {
		return Profile{}, fmt.Errorf("identity: saving session: %w", err)
	}
	return profile, nil
}

func (m *Manager) signInLocked(name, phone, bank, pin string) (Profile, error) {
	if id, ok := m.byPhone[phone]; ok {
		profile := m.profiles[id]
		supplied := hashPIN(pin)
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(profile.PINHash)) != 1 {
			return Profile{}, ErrWrongPIN
		}
		return profile, nil
	}

	profile := Profile{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Phone:     phone,
		Bank:      strings.TrimSpace(bank),
		PINHash:   hashPIN(pin),
		CreatedAt: time.Now().UTC(),
	}
	m.profiles[profile.ID] = profile
	m.byPhone[profile.Phone] = profile.ID
	if err := m.save(); err != nil {
		delete(m.profiles, profile.ID)
		delete(m.byPhone, profile.Phone)
		return Profile{}, err
	}
	return profile, nil
}

// SignOut clears the session cookie.
func (m *Manager) SignOut(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.sessions.Get(r, sessionName)
	delete(session.Values, sessionKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// CurrentUser resolves the request's session to a profile.
func (m *Manager) CurrentUser(r *http.Request) (Profile, error) {
	session, err := m.sessions.Get(r, sessionName)
	if err != nil {
		return Profile{}, ErrNotSignedIn
	}
	id, ok := session.Values[sessionKey].(string)
	if !ok || id == "" {
		return Profile{}, ErrNotSignedIn
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.profiles[id]
	if !ok {
		return Profile{}, ErrNotSignedIn
	}
	return profile, nil
}
