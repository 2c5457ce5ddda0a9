package tui

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// copyToClipboard copies text to the system clipboard. Tests replace it.
var copyToClipboard = func(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}
