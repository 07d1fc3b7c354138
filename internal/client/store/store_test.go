package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/ProjectMarket/internal/models"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	bolt, err := OpenBoltStore(filepath.Join(dir, "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })

	return map[string]Store{
		"file":   NewFileStore(filepath.Join(dir, "state", "session.json")),
		"bolt":   bolt,
		"memory": NewMemoryStore(),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	want := Record{
		Token:   "T1",
		Profile: models.UserProfile{ID: "7", Name: "Ada", Email: "ada@uni.edu", Role: models.RoleExaminer},
	}

	for name, st := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.Load()
			require.ErrorIs(t, err, ErrNoRecord)

			require.NoError(t, st.Save(want))
			got, err := st.Load()
			require.NoError(t, err)
			assert.Equal(t, want, got)

			require.NoError(t, st.Clear())
			_, err = st.Load()
			require.ErrorIs(t, err, ErrNoRecord)

			// Clearing twice is fine.
			require.NoError(t, st.Clear())
		})
	}
}

func TestStore_SaveRequiresToken(t *testing.T) {
	for name, st := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			err := st.Save(Record{Profile: models.UserProfile{Name: "x"}})
			require.ErrorIs(t, err, ErrEmptyToken)

			_, err = st.Load()
			require.ErrorIs(t, err, ErrNoRecord, "a rejected save must not leave partial state")
		})
	}
}

func TestFileStore_Layout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	st := NewFileStore(path)
	require.NoError(t, st.Save(Record{Token: "T1", Profile: models.UserProfile{Name: "A"}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]string
	require.NoError(t, json.Unmarshal(buf, &doc))
	assert.Equal(t, "T1", doc[KeyAccessToken])
	assert.JSONEq(t, `{"name":"A"}`, doc[KeyUserData])
}

func TestFileStore_Partial(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "token only", body: `{"access_token":"T1"}`},
		{name: "user only", body: `{"user_data":"{\"name\":\"A\"}"}`},
		{name: "user not json", body: `{"access_token":"T1","user_data":"{oops"}`},
		{name: "user null", body: `{"access_token":"T1","user_data":"null"}`},
		{name: "document not json", body: `not-json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "session.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			_, err := NewFileStore(path).Load()
			require.ErrorIs(t, err, ErrCorruptRecord)
		})
	}
}

func TestBoltStore_Partial(t *testing.T) {
	st, err := OpenBoltStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.putRaw(KeyAccessToken, []byte("T1")))
	_, err = st.Load()
	require.ErrorIs(t, err, ErrCorruptRecord)

	require.NoError(t, st.Clear())
	require.NoError(t, st.putRaw(KeyUserData, []byte(`{"name":"A"}`)))
	_, err = st.Load()
	require.ErrorIs(t, err, ErrCorruptRecord)
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	st, err := OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, st.Save(Record{Token: "T9", Profile: models.UserProfile{Email: "b@x.com"}}))
	require.NoError(t, st.Close())

	st, err = OpenBoltStore(path)
	require.NoError(t, err)
	defer st.Close()
	got, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, "T9", got.Token)
	assert.Equal(t, "b@x.com", got.Profile.Email)
}

func TestMemoryStore_Raw(t *testing.T) {
	st := NewMemoryStore()
	st.SetRaw(nil, []byte(`{"name":"A"}`))
	_, err := st.Load()
	require.True(t, errors.Is(err, ErrCorruptRecord))

	require.NoError(t, st.Clear())
	token, user := st.Raw()
	assert.Nil(t, token)
	assert.Nil(t, user)
}
