package store

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var sessionBucket = []byte("session")

// BoltStore keeps the two keys in a bbolt bucket and always changes them in a
// single transaction.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens (or creates) the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create session bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Load reads both keys in one read transaction.
func (s *BoltStore) Load() (Record, error) {
	var token, userData []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return nil
		}
		// Values are only valid inside the transaction.
		if v := b.Get([]byte(KeyAccessToken)); v != nil {
			token = append([]byte{}, v...)
		}
		if v := b.Get([]byte(KeyUserData)); v != nil {
			userData = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return decode(token, userData)
}

// Save writes both keys in one transaction.
func (s *BoltStore) Save(r Record) error {
	token, userData, err := encode(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(sessionBucket)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(KeyAccessToken), []byte(token)); err != nil {
			return err
		}
		return b.Put([]byte(KeyUserData), userData)
	})
}

// Clear removes both keys in one transaction.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return nil
		}
		if err := b.Delete([]byte(KeyAccessToken)); err != nil {
			return err
		}
		return b.Delete([]byte(KeyUserData))
	})
}

// putRaw writes a single key; tests use it to simulate a damaged database.
func (s *BoltStore) putRaw(key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put([]byte(key), value)
	})
}
