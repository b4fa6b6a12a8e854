//go:build windows

package gui

import (
	"log"
	"unsafe"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver"
	"golang.org/x/sys/windows"

	"sstranslate/src/overlay"
)

const (
	swpNoSize     = 0x0001
	swpNoMove     = 0x0002
	swpNoActivate = 0x0010
	hwndTopmost   = ^uintptr(0)
)

var (
	user32            = windows.NewLazySystemDLL("user32.dll")
	procSetWindowPos  = user32.NewProc("SetWindowPos")
	procGetWindowRect = user32.NewProc("GetWindowRect")
	procGetCursorPos  = user32.NewProc("GetCursorPos")
)

type winPoint struct{ X, Y int32 }

type winRect struct{ Left, Top, Right, Bottom int32 }

type winNative struct{}

func newNative() nativeWindow { return winNative{} }

// hwnd must be called on the fyne thread.
func hwnd(w fyne.Window) uintptr {
	nw, ok := w.(driver.NativeWindow)
	if !ok {
		return 0
	}
	var h uintptr
	nw.RunNative(func(ctx any) {
		if wc, ok := ctx.(driver.WindowsWindowContext); ok {
			h = wc.HWND
		}
	})
	return h
}

func (winNative) cursor() (overlay.Point, bool) {
	var p winPoint
	if r, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&p))); r == 0 {
		return overlay.Point{}, false
	}
	return overlay.Point{X: float32(p.X), Y: float32(p.Y)}, true
}

func (winNative) rect(w fyne.Window) (overlay.Rect, bool) {
	h := hwnd(w)
	if h == 0 {
		return overlay.Rect{}, false
	}
	var r winRect
	if ok, _, _ := procGetWindowRect.Call(h, uintptr(unsafe.Pointer(&r))); ok == 0 {
		return overlay.Rect{}, false
	}
	return overlay.Rect{
		X: float32(r.Left),
		Y: float32(r.Top),
		W: float32(r.Right - r.Left),
		H: float32(r.Bottom - r.Top),
	}, true
}

func (winNative) place(w fyne.Window, r overlay.Rect) bool {
	h := hwnd(w)
	if h == 0 {
		return false
	}
	ok, _, err := procSetWindowPos.Call(h, hwndTopmost,
		uintptr(int32(r.X)), uintptr(int32(r.Y)), uintptr(int32(r.W)), uintptr(int32(r.H)),
		swpNoActivate)
	if ok == 0 {
		log.Printf("Overlay: SetWindowPos failed: %v", err)
		return false
	}
	return true
}

func (winNative) topmost(w fyne.Window) bool {
	h := hwnd(w)
	if h == 0 {
		return false
	}
	ok, _, _ := procSetWindowPos.Call(h, hwndTopmost, 0, 0, 0, 0, swpNoActivate|swpNoMove|swpNoSize)
	return ok != 0
}
