package sessions

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valory-xyz/propel-client-go/internal/models"
	"gopkg.in/yaml.v3"
)

var SESSION_MANAGER_PATH = "~/.config/propel/"

const sessionFileVersion = "1.0"

// SessionManager persists the session for a single service host. Every
// service host gets its own file so switching --url does not log the user
// out of another deployment.
type SessionManager struct {
	lock        sync.Mutex // Ensure thread-safe access
	path        string
	loginServer string
}

// LoginServer is the on-disk document.
type LoginServer struct {
	Version   string          `json:"version" yaml:"version"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
	Session   *models.Session `json:"session,omitempty" yaml:"session,omitempty"`
}

func NewSessionManager(path string, loginServer string) *SessionManager {
	if len(path) == 0 {
		path = SESSION_MANAGER_PATH
	}
	return &SessionManager{
		path:        path,
		loginServer: loginServer,
	}
}

// GetSessionFile returns the file backing this manager.
func (m *SessionManager) GetSessionFile() (string, error) {
	dir, err := ExpandPath(m.path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionFileName(m.loginServer)), nil
}

// Save replaces any stored session.
func (m *SessionManager) Save(session models.Session) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	logrus.WithFields(logrus.Fields{
		"loginServer":   m.loginServer,
		"sessionExpiry": session.Expiry,
	}).Debugln("Saving session")

	file, err := m.openSessionFile(os.O_RDWR | os.O_CREATE | os.O_TRUNC)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	defer encoder.Close()

	err = encoder.Encode(LoginServer{
		Version:   sessionFileVersion,
		Timestamp: time.Now().UTC(),
		Session:   &session,
	})
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load returns the stored session. A missing, empty, unreadable or corrupt
// file all mean the same thing to callers: there is no session.
func (m *SessionManager) Load() (*models.Session, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	logrus.Debugln("Checking session for login server:", m.loginServer)

	file, err := m.openSessionFile(os.O_RDONLY)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logrus.WithError(err).Warnf("Failed to open session file for %s", m.loginServer)
		}
		return nil, false
	}
	defer file.Close()

	var server LoginServer
	if err := yaml.NewDecoder(file).Decode(&server); err != nil {
		// io.EOF for an empty file is expected after a crash mid-write
		logrus.WithError(err).Warnf("Failed to parse session file for %s, ignoring it", m.loginServer)
		return nil, false
	}

	if server.Session == nil || len(server.Session.Token) == 0 {
		return nil, false
	}

	return server.Session, true
}

// Clear removes the session. Clearing an absent session is not an error.
func (m *SessionManager) Clear() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	logrus.WithFields(logrus.Fields{
		"loginServer": m.loginServer,
	}).Debugln("Removing session")

	sessionFile, err := m.GetSessionFile()
	if err != nil {
		return err
	}

	if err := os.Remove(sessionFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}

func (m *SessionManager) openSessionFile(flag int) (*os.File, error) {
	sessionFile, err := m.GetSessionFile()
	if err != nil {
		return nil, err
	}

	if flag&os.O_CREATE != 0 {
		if err := os.MkdirAll(filepath.Dir(sessionFile), 0700); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	// Only allow read/write access to the owner
	return os.OpenFile(sessionFile, flag, 0600)
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return filepath.Clean(path), nil
}

func sessionFileName(loginServer string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(loginServer)
	if len(name) == 0 {
		name = "default"
	}
	return fmt.Sprintf("%s.yaml", name)
}
