// Package models fetches whisper ggml model files from HuggingFace.
package models

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
)

const repoBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// Model describes one downloadable whisper variant.
type Model struct {
	Name   string
	File   string
	SizeMB int
}

// Catalog lists the supported whisper variants, smallest first.
var Catalog = []Model{
	{Name: "tiny.en", File: "ggml-tiny.en.bin", SizeMB: 75},
	{Name: "base.en", File: "ggml-base.en.bin", SizeMB: 142},
	{Name: "small.en", File: "ggml-small.en.bin", SizeMB: 466},
	{Name: "medium.en", File: "ggml-medium.en.bin", SizeMB: 1533},
	{Name: "large-v3-turbo", File: "ggml-large-v3-turbo.bin", SizeMB: 1624},
}

// Lookup finds a catalog entry by name.
func Lookup(name string) (Model, bool) {
	for _, m := range Catalog {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// Names returns the catalog names in display order.
func Names() []string {
	names := make([]string, len(Catalog))
	for i, m := range Catalog {
		names[i] = m.Name
	}
	sort.Strings(names)
	return names
}

// Download fetches a whisper model into destDir, skipping the download when
// the file already exists. It shows progress on stdout and returns the
// final model path.
func Download(name, destDir string) (string, error) {
	model, ok := Lookup(name)
	if !ok {
		return "", fmt.Errorf("models: unknown model %q (available: %v)", name, Names())
	}
	return fetch(repoBase+"/"+model.File, filepath.Join(destDir, model.File), model.File)
}

// fetch downloads url to destPath via a temp file so a partial download
// never masquerades as a complete model.
func fetch(url, destPath, label string) (string, error) {
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		fmt.Printf("  Model already exists: %s (%.0f MB)\n", destPath, float64(info.Size())/(1024*1024))
		return destPath, nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("creating models dir: %w", err)
	}

	fmt.Printf("  Downloading %s\n", url)
	fmt.Printf("  Destination: %s\n", destPath)

	resp, err := http.Get(url) //nolint:gosec // catalog URLs are compile-time constants
	if err != nil {
		return "", fmt.Errorf("downloading model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	pr := &progressWriter{
		writer: f,
		total:  resp.ContentLength,
		label:  label,
	}

	written, err := io.Copy(pr, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing model file: %w", err)
	}

	fmt.Printf("\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("moving model file: %w", err)
	}

	return destPath, nil
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Printf("\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Printf("\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
