package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/session"
)

// Store keeps the credentials in a single JSON document, replaced atomically on every write.
type Store struct {
	mutex sync.Mutex
	path  string
}

var _ session.Repository = (*Store)(nil)

func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("filestore: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating session directory")
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load(_ context.Context) (session.Credentials, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return session.Credentials{}, session.ErrNotFound
	}
	if err != nil {
		return session.Credentials{}, errors.Wrap(err, "reading session file")
	}

	values := make(map[string]string)
	if err := json.Unmarshal(raw, &values); err != nil {
		return session.Credentials{}, errors.Wrap(session.ErrIncomplete, "decoding session file: "+err.Error())
	}
	return session.DecodeCredentials(values)
}

func (s *Store) Save(_ context.Context, creds session.Credentials) error {
	values, err := creds.Encode()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding session file")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.write(raw)
}

// write replaces the file through a rename so readers never see a partial document.
func (s *Store) write(raw []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return errors.Wrap(err, "creating temp session file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(raw); err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrap(err, "writing temp session file")
	}
	if err = os.Chmod(tmp.Name(), 0o600); err != nil {
		return errors.Wrap(err, "securing session file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "replacing session file")
}

func (s *Store) Clear(_ context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session file")
	}
	return nil
}
