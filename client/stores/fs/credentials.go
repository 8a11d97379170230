// Package fs keeps notes client state in a single JSON file: per server, the
// issued credential and the challenge that is waiting for its emailed code.
package fs

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	on "github.com/panyam/otpnotes"
	"github.com/panyam/otpnotes/client"
)

// DefaultAppName names the config directory when no path is given
const DefaultAppName = "otpnotes"

const fileVersion = 1

// serverEntry is everything the file keeps for one notes server
type serverEntry struct {
	Credential *client.ServerCredential `json:"credential,omitempty"`
	Challenge  *client.PendingChallenge `json:"challenge,omitempty"`
}

func (e *serverEntry) empty() bool {
	return e.Credential == nil && e.Challenge == nil
}

type stateFile struct {
	Version int                     `json:"version"`
	Servers map[string]*serverEntry `json:"servers"`
}

// FSCredentialStore implements client.CredentialStore and
// client.ChallengeStore over one JSON file. Changes are held in memory until
// Save.
type FSCredentialStore struct {
	mu      sync.RWMutex
	path    string
	servers map[string]*serverEntry
	dirty   bool
}

// NewFSCredentialStore opens the state file at path, which need not exist
// yet. An empty path means <user config dir>/<appName>/credentials.json.
func NewFSCredentialStore(path string, appName string) (*FSCredentialStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = DefaultAppName
		}
		path = filepath.Join(configDir, appName, "credentials.json")
	}

	s := &FSCredentialStore{path: path, servers: map[string]*serverEntry{}}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, err
	}
	var file stateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if file.Version != fileVersion {
		return nil, fmt.Errorf("%s: unsupported version %d", path, file.Version)
	}
	for k, e := range file.Servers {
		if e != nil && !e.empty() {
			s.servers[k] = e
		}
	}
	return s, nil
}

// serverKey reduces a server URL to lowercased scheme://host
func serverKey(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), nil
}

// update runs fn on the entry for serverURL, creating it if needed, and
// drops the entry when fn leaves it empty
func (s *FSCredentialStore) update(serverURL string, fn func(*serverEntry)) error {
	key, err := serverKey(serverURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.servers[key]
	if e == nil {
		e = &serverEntry{}
	}
	fn(e)
	if e.empty() {
		delete(s.servers, key)
	} else {
		s.servers[key] = e
	}
	s.dirty = true
	return nil
}

func (s *FSCredentialStore) entry(serverURL string) (*serverEntry, error) {
	key, err := serverKey(serverURL)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := s.servers[key]; e != nil {
		return e, nil
	}
	return &serverEntry{}, nil
}

func (s *FSCredentialStore) GetCredential(serverURL string) (*client.ServerCredential, error) {
	e, err := s.entry(serverURL)
	if err != nil {
		return nil, err
	}
	return e.Credential, nil
}

func (s *FSCredentialStore) SetCredential(serverURL string, cred *client.ServerCredential) error {
	return s.update(serverURL, func(e *serverEntry) { e.Credential = cred })
}

// RemoveCredential forgets the credential but keeps a pending challenge
func (s *FSCredentialStore) RemoveCredential(serverURL string) error {
	return s.update(serverURL, func(e *serverEntry) { e.Credential = nil })
}

func (s *FSCredentialStore) GetPendingChallenge(serverURL string) (*client.PendingChallenge, error) {
	e, err := s.entry(serverURL)
	if err != nil {
		return nil, err
	}
	return e.Challenge, nil
}

func (s *FSCredentialStore) SetPendingChallenge(serverURL string, challenge *client.PendingChallenge) error {
	return s.update(serverURL, func(e *serverEntry) { e.Challenge = challenge })
}

// ListServers returns the servers holding a credential, sorted
func (s *FSCredentialStore) ListServers() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	servers := make([]string, 0, len(s.servers))
	for k, e := range s.servers {
		if e.Credential != nil {
			servers = append(servers, k)
		}
	}
	sort.Strings(servers)
	return servers, nil
}

// ServersForAccount returns the servers whose credential belongs to email
func (s *FSCredentialStore) ServersForAccount(email string) []string {
	email = on.NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var servers []string
	for k, e := range s.servers {
		if e.Credential != nil && on.NormalizeEmail(e.Credential.AccountEmail) == email {
			servers = append(servers, k)
		}
	}
	sort.Strings(servers)
	return servers
}

// Prune drops expired credentials and stale challenges, returning how many
// servers lost something
func (s *FSCredentialStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.servers {
		pruned := false
		if e.Credential != nil && e.Credential.IsExpired() {
			e.Credential = nil
			pruned = true
		}
		if e.Challenge != nil && e.Challenge.IsStale() {
			e.Challenge = nil
			pruned = true
		}
		if pruned {
			n++
		}
		if e.empty() {
			delete(s.servers, k)
		}
	}
	if n > 0 {
		s.dirty = true
	}
	return n
}

// Save writes pending changes through a temp file and rename, readable by
// the owner only
func (s *FSCredentialStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(stateFile{Version: fileVersion, Servers: s.servers}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeAtomic(dir, s.path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	s.dirty = false
	return nil
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FSCredentialStore) Path() string {
	return s.path
}
