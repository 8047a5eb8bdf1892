// Package dragmanager holds a window's title bar with the left mouse button
// for a fixed time, which drags (and on release drops) the window.
package dragmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	ErrTargetNotFound = errors.New("window not found")
	ErrPositionQuery  = errors.New("unable to get window position")
	ErrUnsupported    = errors.New("window automation is not supported on this platform")
)

// titleBarOffset is how far below the window's top edge the cursor grabs.
const titleBarOffset = 10

// Window is a platform window handle.
type Window uintptr

// Rect is a window's bounding rectangle in screen coordinates.
type Rect struct {
	Left, Top, Right, Bottom int
}

// desktop is the small slice of the windowing system a drag needs.
type desktop interface {
	FindWindow(title string) (Window, error)
	WindowRect(w Window) (Rect, error)
	SetCursor(x, y int) error
	LeftDown(x, y int) error
	LeftUp(x, y int) error
}

// DragManager performs drags against the local desktop. Concurrent drags
// are not serialized.
type DragManager struct {
	desktop desktop
	logger  *slog.Logger
}

// New returns a DragManager for the current platform.
func New(logger *slog.Logger) *DragManager {
	return newWithDesktop(newDesktop(), logger)
}

func newWithDesktop(d desktop, logger *slog.Logger) *DragManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &DragManager{desktop: d, logger: logger}
}

// PerformDrag finds the window titled windowName, presses the left button
// on its title bar and releases it after duration. The button is released
// early when ctx is cancelled.
func (m *DragManager) PerformDrag(ctx context.Context, windowName string, duration time.Duration) error {
	w, err := m.desktop.FindWindow(windowName)
	if err != nil {
		return fmt.Errorf("find %q: %w", windowName, err)
	}

	rect, err := m.desktop.WindowRect(w)
	if err != nil {
		return fmt.Errorf("locate %q: %w", windowName, err)
	}

	x := (rect.Left + rect.Right) / 2
	y := rect.Top + titleBarOffset
	m.logger.Debug("grabbing window", "window", windowName, "x", x, "y", y)

	if err := m.desktop.SetCursor(x, y); err != nil {
		return fmt.Errorf("move cursor: %w", err)
	}
	if err := m.desktop.LeftDown(x, y); err != nil {
		return fmt.Errorf("press mouse button: %w", err)
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if upErr := m.desktop.LeftUp(x, y); upErr != nil {
		return errors.Join(err, fmt.Errorf("release mouse button: %w", upErr))
	}
	return err
}

// Describe renders a PerformDrag error as a status line.
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrTargetNotFound):
		return "Error: Window Not Found"
	case errors.Is(err, ErrPositionQuery):
		return "Error: Unable to Get Window Position"
	case errors.Is(err, ErrUnsupported):
		return "Error: Window automation is not supported on this platform"
	default:
		return "Error: " + err.Error()
	}
}
