//go:build !windows

package dragmanager

type unsupportedDesktop struct{}

func newDesktop() desktop { return unsupportedDesktop{} }

func (unsupportedDesktop) FindWindow(string) (Window, error) { return 0, ErrUnsupported }

func (unsupportedDesktop) WindowRect(Window) (Rect, error) { return Rect{}, ErrUnsupported }

func (unsupportedDesktop) SetCursor(int, int) error { return ErrUnsupported }

func (unsupportedDesktop) LeftDown(int, int) error { return ErrUnsupported }

func (unsupportedDesktop) LeftUp(int, int) error { return ErrUnsupported }
