package liveness

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/stakewatch/validator-watcher/internal/application/ports"
)

// FileWriter overwrites a marker file after each fully completed tick, for
// external health checks to watch.
type FileWriter struct {
	Path string
}

func NewFileWriter(path string) ports.LivenessWriter {
	return &FileWriter{Path: path}
}

func (f *FileWriter) WriteLivenessMarker() error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("creating liveness dir: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte("OK"), 0o644); err != nil {
		return fmt.Errorf("writing liveness file: %w", err)
	}
	return nil
}
