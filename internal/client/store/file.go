package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the record in a small JSON document on disk:
//
//	{"access_token": "...", "user_data": "{\"name\":\"...\"}"}
//
// The document is replaced atomically through a temp file and rename.
type FileStore struct {
	path string
}

// fileDocument is the on-disk layout. Pointers distinguish absent keys from
// empty values.
type fileDocument struct {
	AccessToken *string `json:"access_token,omitempty"`
	UserData    *string `json:"user_data,omitempty"`
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the document from disk.
func (fs *FileStore) Load() (Record, error) {
	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, ErrNoRecord
		}
		return Record{}, err
	}
	defer f.Close()

	var doc fileDocument
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	var token, userData []byte
	if doc.AccessToken != nil {
		token = []byte(*doc.AccessToken)
	}
	if doc.UserData != nil {
		userData = []byte(*doc.UserData)
	}
	return decode(token, userData)
}

// Save writes both keys in one replace of the document.
func (fs *FileStore) Save(r Record) error {
	token, userData, err := encode(r)
	if err != nil {
		return err
	}
	ud := string(userData)
	data, err := json.Marshal(fileDocument{AccessToken: &token, UserData: &ud})
	if err != nil {
		return err
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fs.path)
}

// Clear deletes the document.
func (fs *FileStore) Clear() error {
	if err := os.Remove(fs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
