package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hamed0406/servermonitor/internal/domain"
	"github.com/hamed0406/servermonitor/internal/repo"
)

func TestLoad_Missing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "servers.json"))
	st, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(st, domain.DefaultState()) {
		t.Fatalf("got %+v", st)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "servers.json")
	s := New(path)

	in := domain.State{Servers: []string{"8.8.8.8", "example.com"}, CheckInterval: 15, MaxFailures: 5}
	if err := s.Save(ctx, in); err != nil {
		t.Fatal(err)
	}
	out, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip: %+v != %+v", out, in)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestLoad_MissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	if err := os.WriteFile(path, []byte(`{"servers": ["a.example"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := New(path).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.CheckInterval != 30 || st.MaxFailures != 3 || len(st.Servers) != 1 {
		t.Fatalf("got %+v", st)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := New(path).Load(context.Background())
	if !errors.Is(err, repo.ErrMalformedState) {
		t.Fatalf("err=%v", err)
	}
	if len(st.Servers) != 0 {
		t.Fatalf("malformed doc must load as empty, got %+v", st)
	}
}
