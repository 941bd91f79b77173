package devices

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testCreds(address string) Credentials {
	return Credentials{
		Address:    address,
		UUID:       "uuid-" + address,
		LocalKey:   "abcdef",
		DeviceID:   "dev-" + address,
		Category:   "wk",
		ProductID:  "prod1",
		DeviceName: "Thermostat",
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() on missing file error = %v", err)
	}
	if got := s.List(); len(got) != 0 {
		t.Errorf("List() on empty store = %d records, want 0", len(got))
	}
}

func TestFileStorePutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "devices.yaml")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	want := testCreds("AA:BB:CC:DD:EE:FF")
	if err := s.Put(want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok := s.Get("AA:BB:CC:DD:EE:FF")
	if !ok {
		t.Fatal("Get() did not find the stored record")
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	// A fresh store must read the same record back from disk.
	s2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() reopen error = %v", err)
	}
	got, ok = s2.Get("AA:BB:CC:DD:EE:FF")
	if !ok {
		t.Fatal("reloaded store did not find the record")
	}
	if got != want {
		t.Errorf("reloaded Get() = %+v, want %+v", got, want)
	}
}

func TestFileStorePutRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	bad := testCreds("AA:BB")
	bad.LocalKey = "abc" // too short to derive keys from
	if err := s.Put(bad); err == nil {
		t.Error("Put() accepted credentials with a short local_key")
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("rejected Put() still created the store file")
	}
}

func TestFileStoreListSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	for _, addr := range []string{"CC:01", "AA:01", "BB:01"} {
		if err := s.Put(testCreds(addr)); err != nil {
			t.Fatalf("Put(%s) error = %v", addr, err)
		}
	}
	got := s.List()
	if len(got) != 3 {
		t.Fatalf("List() = %d records, want 3", len(got))
	}
	for i, want := range []string{"AA:01", "BB:01", "CC:01"} {
		if got[i].Address != want {
			t.Errorf("List()[%d].Address = %s, want %s", i, got[i].Address, want)
		}
	}
}

func TestFileStoreFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := s.Put(testCreds("AA:01")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("store file mode = %o, want 600", perm)
	}
}

func TestCredentialsStringMasksSecrets(t *testing.T) {
	c := testCreds("AA:01")
	c.LocalKey = "supersecret"
	c.UUID = "verysecretuuid"
	s := c.String()
	if strings.Contains(s, "supersecret") || strings.Contains(s, "verysecretuuid") {
		t.Errorf("String() leaks secrets: %s", s)
	}
	if !strings.Contains(s, "AA:01") {
		t.Errorf("String() should include the address: %s", s)
	}
}
