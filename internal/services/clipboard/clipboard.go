// Package clipboard copies snapshot documents to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnavailable indicates the host has no clipboard utility.
var ErrUnavailable = errors.New("clipboard is not available on this system")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	write     func(string) error
	supported func() bool
}

// NewService constructs a clipboard Service backed by the host clipboard.
func NewService() *Service {
	return &Service{
		write:     clipboard.WriteAll,
		supported: func() bool { return !clipboard.Unsupported },
	}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if service.supported != nil && !service.supported() {
		return ErrUnavailable
	}
	if writeErr := service.write(text); writeErr != nil {
		return fmt.Errorf("copy %d characters to clipboard: %w", len([]rune(text)), writeErr)
	}
	return nil
}

var _ Copier = (*Service)(nil)
