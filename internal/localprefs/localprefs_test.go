package localprefs

import (
	"path/filepath"
	"testing"
)

func setupPrefs(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCurrentHouseholdRoundTrip(t *testing.T) {
	s := setupPrefs(t)

	if err := s.SetCurrentHousehold("u1", "hh-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.CurrentHousehold("u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "hh-1" {
		t.Errorf("current = %q, want hh-1", got)
	}
}

func TestCurrentHouseholdUnset(t *testing.T) {
	s := setupPrefs(t)

	got, err := s.CurrentHousehold("unknown")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "" {
		t.Errorf("current = %q, want empty for unknown user", got)
	}
}

func TestCurrentHouseholdPerUser(t *testing.T) {
	s := setupPrefs(t)

	if err := s.SetCurrentHousehold("u1", "hh-1"); err != nil {
		t.Fatalf("set u1: %v", err)
	}
	if err := s.SetCurrentHousehold("u2", "hh-2"); err != nil {
		t.Fatalf("set u2: %v", err)
	}
	// Overwrite is last-write-wins.
	if err := s.SetCurrentHousehold("u1", "hh-3"); err != nil {
		t.Fatalf("overwrite u1: %v", err)
	}

	got, _ := s.CurrentHousehold("u1")
	if got != "hh-3" {
		t.Errorf("u1 = %q, want hh-3", got)
	}
	got, _ = s.CurrentHousehold("u2")
	if got != "hh-2" {
		t.Errorf("u2 = %q, want hh-2", got)
	}
}
