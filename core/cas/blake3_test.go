package cas

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHashKnownValue(t *testing.T) {
	// BLAKE3 of the empty input
	const empty = "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"
	if got := Hash(nil); got != empty {
		t.Errorf("Hash(nil) = %s, want %s", got, empty)
	}
}

func TestHashReaderMatchesHash(t *testing.T) {
	data := strings.Repeat("K00844 HK; hexokinase [EC:2.7.1.1]\n", 1000)
	got, err := HashReader(strings.NewReader(data))
	if err != nil {
		t.Fatalf("HashReader() error = %v", err)
	}
	if want := Hash([]byte(data)); got != want {
		t.Errorf("HashReader() = %s, want %s", got, want)
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brite.json")
	if err := os.WriteFile(path, []byte(`{"name":"ko00001"}`), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}
	if want := Hash([]byte(`{"name":"ko00001"}`)); got != want {
		t.Errorf("HashFile() = %s, want %s", got, want)
	}

	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("HashFile(missing) error = %v, want ErrNotExist", err)
	}
}
