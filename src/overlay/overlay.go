package overlay

import (
	"context"
	"image"

	"sstranslate/src/screenshot"
)

// Selector defines a synchronous region-selection API owned by the event loop.
// The call is blocking and MUST be invoked only from the single event-loop goroutine.
// Returns (selection, cancelled, error). If cancelled is true, the selection
// is undefined and err is nil.
type Selector interface {
	Select(ctx context.Context) (Selection, bool, error)
}

// Selection is the frozen screen the user selected on and the chosen
// region, relative to Image's origin.
type Selection struct {
	Image  *image.RGBA
	Region screenshot.Region
}

const (
	// MinSelectionSpan rejects accidental clicks.
	MinSelectionSpan = 5
	// ResizeMargin is the band along the overlay border that resizes instead of moving.
	ResizeMargin = 8
)

// MinOverlaySize is the smallest overlay the user can resize to.
var MinOverlaySize = Size{W: 200, H: 100}
