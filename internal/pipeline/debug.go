package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pttscribe/ptt-scribe/internal/audio"
)

// DebugDump writes each processed clip to disk as a WAV file with a
// sidecar metadata file, so transcription problems can be replayed against
// the exact audio the provider saw.
type DebugDump struct {
	dir string
}

// NewDebugDump creates the dump directory if needed.
func NewDebugDump(dir string) (*DebugDump, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: creating debug dir: %w", err)
	}
	return &DebugDump{dir: dir}, nil
}

// Dump writes a <timestamp>_<id>.wav and matching .meta.txt pair.
func (d *DebugDump) Dump(wav []byte, meta audio.Meta) error {
	base := fmt.Sprintf("%s_%s", time.Now().Format("20060102-150405"), uuid.NewString()[:8])

	wavPath := filepath.Join(d.dir, base+".wav")
	if err := os.WriteFile(wavPath, wav, 0o644); err != nil {
		return fmt.Errorf("pipeline: writing debug wav: %w", err)
	}

	info := fmt.Sprintf(
		"duration: %s\noriginal_rms: %.1f\nprocessed_rms: %.1f\ngain_db: %.2f\nnormalized: %t\npadded: %t\n",
		meta.Duration, meta.OriginalRMS, meta.ProcessedRMS, meta.GainDB, meta.Normalized, meta.Padded,
	)
	metaPath := filepath.Join(d.dir, base+".meta.txt")
	if err := os.WriteFile(metaPath, []byte(info), 0o644); err != nil {
		return fmt.Errorf("pipeline: writing debug meta: %w", err)
	}
	return nil
}
