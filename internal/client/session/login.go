package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atinyakov/ProjectMarket/internal/client/store"
	"github.com/atinyakov/ProjectMarket/internal/models"
)

// ErrNoToken means the login reply carried no credential.
var ErrNoToken = errors.New("login response has no access token")

// loginResponse covers the login reply shapes the backend has used:
//
//	{"access_token": "...", "user": {...}}
//	{"user": {"access_token": "...", ...}}
//
// with "token" accepted in place of "access_token" and "profile" in place of
// "user". This is a compatibility shim; remove the nested form once the
// backend returns one shape.
type loginResponse struct {
	AccessToken string          `json:"access_token"`
	Token       string          `json:"token"`
	User        json.RawMessage `json:"user"`
	Profile     json.RawMessage `json:"profile"`
}

func (r loginResponse) token() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

// normalizeLogin resolves a login reply into the record to persist. When the
// reply has no user object, the reply itself is read as the profile.
func normalizeLogin(raw []byte) (store.Record, error) {
	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return store.Record{}, fmt.Errorf("decode login response: %w", err)
	}

	user := resp.User
	if isAbsent(user) {
		user = resp.Profile
	}
	if isAbsent(user) {
		user = raw
	}

	token := resp.token()
	if token == "" && bytes.HasPrefix(bytes.TrimSpace(user), []byte("{")) {
		var nested loginResponse
		if err := json.Unmarshal(user, &nested); err == nil {
			token = nested.token()
		}
	}
	if token == "" {
		return store.Record{}, ErrNoToken
	}

	var profile models.UserProfile
	if err := json.Unmarshal(user, &profile); err != nil {
		return store.Record{}, fmt.Errorf("decode login profile: %w", err)
	}
	return store.Record{Token: token, Profile: profile}, nil
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
