// Package store persists the client's credential and user profile as a single
// record, so that a restart can restore the session without a network call.
//
// Every implementation keeps the two persisted keys, access_token and
// user_data, and writes or removes them together. A reader that finds one key
// without the other reports ErrCorruptRecord.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atinyakov/ProjectMarket/internal/models"
)

// Persisted key names.
const (
	KeyAccessToken = "access_token"
	KeyUserData    = "user_data"
)

var (
	// ErrNoRecord means nothing is persisted.
	ErrNoRecord = errors.New("no stored session")
	// ErrCorruptRecord means the persisted data is partial or unreadable.
	ErrCorruptRecord = errors.New("corrupt stored session")
	// ErrEmptyToken is returned by Save for a record without a credential.
	ErrEmptyToken = errors.New("refusing to store session without token")
)

// Record is the persisted (credential, profile) pair.
type Record struct {
	// Token is the opaque bearer credential.
	Token string
	// Profile is the authenticated user's identity.
	Profile models.UserProfile
}

// Store is durable client-side storage for one Record.
type Store interface {
	// Load returns the stored record, ErrNoRecord when there is none, or an
	// error wrapping ErrCorruptRecord when only part of it is readable.
	Load() (Record, error)
	// Save replaces the stored record with r.
	Save(r Record) error
	// Clear removes the stored record. Clearing an empty store is not an error.
	Clear() error
}

// encode returns the two persisted values for r.
func encode(r Record) (token string, userData []byte, err error) {
	if r.Token == "" {
		return "", nil, ErrEmptyToken
	}
	userData, err = json.Marshal(r.Profile)
	if err != nil {
		return "", nil, fmt.Errorf("encode user data: %w", err)
	}
	return r.Token, userData, nil
}

// decode rebuilds a Record from the persisted values; a nil slice means the
// key was absent.
func decode(token, userData []byte) (Record, error) {
	switch {
	case token == nil && userData == nil:
		return Record{}, ErrNoRecord
	case token == nil:
		return Record{}, fmt.Errorf("%w: %s without %s", ErrCorruptRecord, KeyUserData, KeyAccessToken)
	case userData == nil:
		return Record{}, fmt.Errorf("%w: %s without %s", ErrCorruptRecord, KeyAccessToken, KeyUserData)
	case len(token) == 0:
		return Record{}, fmt.Errorf("%w: empty %s", ErrCorruptRecord, KeyAccessToken)
	}

	trimmed := bytes.TrimSpace(userData)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Record{}, fmt.Errorf("%w: empty %s", ErrCorruptRecord, KeyUserData)
	}
	var profile models.UserProfile
	if err := json.Unmarshal(trimmed, &profile); err != nil {
		return Record{}, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, KeyUserData, err)
	}
	return Record{Token: string(token), Profile: profile}, nil
}
