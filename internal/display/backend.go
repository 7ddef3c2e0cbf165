// Package display abstracts the output surface and its input events:
// an X11 window for development, an e-ink framebuffer on device, or a
// directory of PNG files for offline inspection.
package display

import (
	"errors"
	"fmt"

	"github.com/andrewjensen/skelly/internal/config"
	"github.com/andrewjensen/skelly/internal/raster"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is
	// not registered.
	ErrBackendNotAvailable = errors.New("display: backend not available")

	// ErrClosed is returned for operations on a closed backend.
	ErrClosed = errors.New("display: backend closed")
)

// InputKind classifies a normalized user action.
type InputKind uint8

const (
	// InputNone means no event was pending.
	InputNone InputKind = iota
	// InputNextPage advances one page.
	InputNextPage
	// InputPrevPage goes back one page.
	InputPrevPage
	// InputCustom carries a backend-specific action identifier.
	InputCustom
)

// ActionQuit is the custom action emitted by the window backend's quit
// keys. The device backend never produces it.
const ActionQuit = 1

// InputEvent is a normalized user action. Backends translate their
// native input (keys, taps) into these; raw input with no mapping is
// dropped silently, one event per poll.
type InputEvent struct {
	Kind InputKind
	// Action identifies the action when Kind is InputCustom.
	Action int
}

// Fixed event values shared by all backends.
var (
	None     = InputEvent{Kind: InputNone}
	NextPage = InputEvent{Kind: InputNextPage}
	PrevPage = InputEvent{Kind: InputPrevPage}
)

// Custom builds a custom action event.
func Custom(action int) InputEvent {
	return InputEvent{Kind: InputCustom, Action: action}
}

func (e InputEvent) String() string {
	switch e.Kind {
	case InputNone:
		return "none"
	case InputNextPage:
		return "next-page"
	case InputPrevPage:
		return "prev-page"
	case InputCustom:
		return fmt.Sprintf("custom(%d)", e.Action)
	}
	return "unknown"
}

// Backend is a page display device. Present and PollInput are not safe
// for concurrent use; the pagination controller is their only caller.
type Backend interface {
	// Name returns the backend identifier.
	Name() string

	// Geometry returns the surface dimensions in pixels.
	Geometry() (width, height int)

	// Depth returns the surface bit depth the backend expects, 1 or 8.
	Depth() int

	// Present replaces the whole visible surface. The surface must
	// match Geometry and Depth.
	Present(s *raster.Surface) error

	// PollInput returns one pending input event without blocking,
	// None when the queue is empty.
	PollInput() (InputEvent, error)

	// Close releases the device.
	Close() error
}

// Factory creates a backend from display configuration.
type Factory func(cfg config.Display) (Backend, error)

var factories = map[string]Factory{}

// Register adds a backend factory under a name. Called from init
// functions of the backend implementations.
func Register(name string, f Factory) {
	factories[name] = f
}

// Available returns the registered backend names.
func Available() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// Open creates the backend selected by cfg.Backend.
func Open(cfg config.Display) (Backend, error) {
	f, ok := factories[cfg.Backend]
	if !ok {
		return nil, ErrBackendNotAvailable
	}
	return f(cfg)
}
