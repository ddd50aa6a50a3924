// Command fetch-model downloads a whisper ggml model for the local
// provider.
//
// Usage:
//
//	go run ./cmd/fetch-model [--model base.en] [--dir ~/.local/share/ptt-scribe/models]
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pttscribe/ptt-scribe/internal/config"
	"github.com/pttscribe/ptt-scribe/internal/models"
)

func main() {
	name := flag.String("model", "base.en", "whisper model to download")
	dir := flag.String("dir", "", "destination directory (default: alongside the configured model path)")
	list := flag.Bool("list", false, "list available models and exit")
	flag.Parse()

	if *list {
		fmt.Println("Available models:")
		for _, m := range models.Catalog {
			fmt.Printf("  %-16s %5d MB\n", m.Name, m.SizeMB)
		}
		return
	}

	destDir := *dir
	if destDir == "" {
		destDir = filepath.Dir(config.Default().ModelPath)
	}

	path, err := models.Download(*name, destDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("Model ready at", path)
	fmt.Println("Set model_path in", config.DefaultConfigPath(), "if it differs.")
}
