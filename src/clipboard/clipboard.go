package clipboard

import (
	"errors"
	"sync"

	"golang.design/x/clipboard"
)

var ErrUnavailable = errors.New("clipboard is not available")

var (
	mu    sync.Mutex
	ready bool
)

// Init prepares the system clipboard. Without it Write and ReadImage fail
// with ErrUnavailable.
func Init() error {
	mu.Lock()
	defer mu.Unlock()
	if ready {
		return nil
	}
	if err := clipboard.Init(); err != nil {
		return err
	}
	ready = true
	return nil
}

// Write copies text under a mutex so parallel writers do not interleave.
func Write(text string) error {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		return ErrUnavailable
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// ReadImage returns the PNG currently on the clipboard, or nil when it
// holds no image.
func ReadImage() ([]byte, error) {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		return nil, ErrUnavailable
	}
	return clipboard.Read(clipboard.FmtImage), nil
}
