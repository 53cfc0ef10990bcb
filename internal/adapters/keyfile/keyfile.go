package keyfile

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/stakewatch/validator-watcher/internal/application/ports"
)

// FileAdapter implements ports.PubkeySource from a local file holding one
// hex pubkey per line. The file is re-read on every call, so it can be
// edited without restarting the watcher.
type FileAdapter struct {
	Path string
}

func NewFileAdapter(path string) ports.PubkeySource {
	return &FileAdapter{Path: path}
}

func (f *FileAdapter) GetValidatorPubkeys() ([]string, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening pubkeys file: %w", err)
	}
	defer file.Close()

	var pubkeys []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "0x") {
			line = "0x" + line
		}
		pubkeys = append(pubkeys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading pubkeys file: %w", err)
	}
	return pubkeys, nil
}
