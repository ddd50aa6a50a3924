package models

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestLookup(t *testing.T) {
	m, ok := Lookup("base.en")
	if !ok {
		t.Fatal("Lookup(base.en) = false")
	}
	if m.File != "ggml-base.en.bin" {
		t.Errorf("File = %q", m.File)
	}

	if _, ok := Lookup("gigantic"); ok {
		t.Error("Lookup(gigantic) should fail")
	}
}

func TestDownloadUnknownModel(t *testing.T) {
	if _, err := Download("nope", t.TempDir()); err == nil {
		t.Error("Download() with unknown model should fail")
	}
}

func TestFetchWritesModel(t *testing.T) {
	payload := []byte("fake-ggml-model-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "models", "ggml-test.bin")
	path, err := fetch(srv.URL, dest, "test")
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	if path != dest {
		t.Errorf("path = %q, want %q", path, dest)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading model: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("model bytes = %q", got)
	}
	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be gone after a successful download")
	}
}

func TestFetchSkipsExisting(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("new bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "ggml-test.bin")
	if err := os.WriteFile(dest, []byte("already here"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := fetch(srv.URL, dest, "test"); err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	if requests != 0 {
		t.Errorf("requests = %d, want 0 for existing model", requests)
	}
	got, _ := os.ReadFile(dest)
	if string(got) != "already here" {
		t.Errorf("existing model overwritten: %q", got)
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "ggml-test.bin")
	if _, err := fetch(srv.URL, dest, "test"); err == nil {
		t.Error("fetch() should fail on HTTP 404")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("no model file should exist after a failed download")
	}
}

func TestProgressWriter(t *testing.T) {
	tmpDir := t.TempDir()
	f, err := os.Create(filepath.Join(tmpDir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	pw := &progressWriter{
		writer: f,
		total:  100,
		label:  "test",
	}

	data := make([]byte, 50)
	n, err := pw.Write(data)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 50 {
		t.Errorf("Write() n = %d, want 50", n)
	}
	if pw.written != 50 {
		t.Errorf("written = %d, want 50", pw.written)
	}
}
