package console

import (
	"fmt"
	"io"
	"os"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
	"github.com/stakewatch/validator-watcher/internal/application/ports"
)

// Sink prints every alert as one line on stdout, the watcher's primary
// human-readable output.
type Sink struct {
	Out io.Writer
}

func NewSink() ports.AlertSink {
	return &Sink{Out: os.Stdout}
}

func (s *Sink) EmitAlert(_ domain.Severity, message string) error {
	_, err := fmt.Fprintln(s.Out, message)
	return err
}
