// Package localprefs is the device-local preference store: a small bbolt
// file holding the last household each user selected on this device. It is
// a convenience cache consulted during resolution, never authoritative.
package localprefs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucket = []byte("prefs")

type Store struct {
	db *bolt.DB
}

// Open creates or opens the preference file and ensures the bucket exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create prefs dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open prefs db: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create prefs bucket: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func currentHouseholdKey(userID string) []byte {
	return []byte("currentHousehold_" + userID)
}

// CurrentHousehold returns the household last selected by the user on this
// device, or "" if none was recorded.
func (s *Store) CurrentHousehold(userID string) (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get(currentHouseholdKey(userID)); v != nil {
			id = string(v)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read current household: %w", err)
	}
	return id, nil
}

// SetCurrentHousehold records the user's selection. Entries have no expiry.
func (s *Store) SetCurrentHousehold(userID, householdID string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(currentHouseholdKey(userID), []byte(householdID))
	})
	if err != nil {
		return fmt.Errorf("write current household: %w", err)
	}
	return nil
}
