//go:build windows

package dragmanager

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32            = windows.NewLazySystemDLL("user32.dll")
	procFindWindowW   = user32.NewProc("FindWindowW")
	procGetWindowRect = user32.NewProc("GetWindowRect")
	procSetCursorPos  = user32.NewProc("SetCursorPos")
	procMouseEvent    = user32.NewProc("mouse_event")
)

const (
	mouseEventLeftDown = 0x0002
	mouseEventLeftUp   = 0x0004
)

type user32Desktop struct{}

func newDesktop() desktop { return user32Desktop{} }

func (user32Desktop) FindWindow(title string) (Window, error) {
	name, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTargetNotFound, err)
	}
	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(name)))
	if hwnd == 0 {
		return 0, ErrTargetNotFound
	}
	return Window(hwnd), nil
}

func (user32Desktop) WindowRect(w Window) (Rect, error) {
	var rect windows.Rect
	ok, _, callErr := procGetWindowRect.Call(uintptr(w), uintptr(unsafe.Pointer(&rect)))
	if ok == 0 {
		return Rect{}, fmt.Errorf("%w: %v", ErrPositionQuery, callErr)
	}
	return Rect{
		Left:   int(rect.Left),
		Top:    int(rect.Top),
		Right:  int(rect.Right),
		Bottom: int(rect.Bottom),
	}, nil
}

func (user32Desktop) SetCursor(x, y int) error {
	ok, _, callErr := procSetCursorPos.Call(uintptr(x), uintptr(y))
	if ok == 0 {
		return callErr
	}
	return nil
}

func (user32Desktop) LeftDown(x, y int) error {
	return mouseEvent(mouseEventLeftDown, x, y)
}

func (user32Desktop) LeftUp(x, y int) error {
	return mouseEvent(mouseEventLeftUp, x, y)
}

// mouse_event has no return value; only a failed DLL lookup is an error.
func mouseEvent(flags uintptr, x, y int) error {
	if err := procMouseEvent.Find(); err != nil {
		return err
	}
	procMouseEvent.Call(flags, uintptr(x), uintptr(y), 0, 0)
	return nil
}
