//go:build windows

package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"

	"screen-ocr/src/screenshot"
	"screen-ocr/src/selection"
)

const (
	overlayClassName         = "ScreenOCROverlay"
	overlayKeyPollTimerID    = 1
	overlayKeyPollIntervalMs = 25
)

var (
	user32DLL                    = syscall.NewLazyDLL("user32.dll")
	procAllowSetForegroundWindow = user32DLL.NewProc("AllowSetForegroundWindow")
	procGetAsyncKeyState         = user32DLL.NewProc("GetAsyncKeyState")
)

var (
	registerOnce sync.Once
	registerErr  error
	crossCursor  win.HCURSOR

	// current is the selection being driven on the UI thread. Only the
	// window procedure and Select touch it, both on that thread.
	current *winSurface
)

type windowsSelector struct {
	style Style
}

// NewSelector returns the Win32 overlay selector.
func NewSelector(style Style) Selector {
	return &windowsSelector{style: style}
}

func registerClass() error {
	registerOnce.Do(func() {
		crossCursor = win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS))
		if crossCursor == 0 {
			log.Printf("OVERLAY: Failed to load cross cursor")
		}
		wndClass := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			Style:         win.CS_HREDRAW | win.CS_VREDRAW,
			LpfnWndProc:   syscall.NewCallback(overlayWndProc),
			HInstance:     win.GetModuleHandle(nil),
			HCursor:       crossCursor,
			HbrBackground: 0, // we paint the whole client area ourselves
			LpszClassName: syscall.StringToUTF16Ptr(overlayClassName),
		}
		if atom := win.RegisterClassEx(&wndClass); atom == 0 {
			registerErr = errors.New("failed to register overlay window class")
		}
	})
	return registerErr
}

func (w *windowsSelector) Select(ctx context.Context, snap *screenshot.Snapshot) (Result, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := registerClass(); err != nil {
		return Result{}, err
	}

	surface := &winSurface{}
	surface.driver = NewDriver(surface, w.style)
	current = surface
	defer func() { current = nil }()

	if err := surface.driver.Begin(snap); err != nil {
		return Result{}, err
	}
	defer surface.Hide()

	stop := make(chan struct{})
	defer close(stop)
	hwnd := surface.hwnd
	go func() {
		select {
		case <-ctx.Done():
			win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
		case <-stop:
		}
	}()

	var msg win.MSG
	for !surface.driver.Done() {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 || ret == -1 {
			log.Printf("OVERLAY: message loop ended (ret=%d)", ret)
			surface.driver.Abort()
			break
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}

	if err := ctx.Err(); err != nil {
		return Result{Outcome: selection.OutcomeCancelled}, err
	}
	return surface.driver.Result(), nil
}

// winSurface is a topmost popup window covering the primary display. The
// frame is blitted through a DIB section kept for the window's lifetime.
type winSurface struct {
	driver *Driver
	hwnd   win.HWND

	memDC     win.HDC
	bitmap    win.HBITMAP
	oldBitmap win.HGDIOBJ
	bits      unsafe.Pointer
	width     int
	height    int

	escapeWasDown bool
}

func (s *winSurface) Show(frame *image.RGBA) error {
	s.width, s.height = frame.Bounds().Dx(), frame.Bounds().Dy()

	s.hwnd = win.CreateWindowEx(
		win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW,
		syscall.StringToUTF16Ptr(overlayClassName),
		syscall.StringToUTF16Ptr("Select Region - "+HintText),
		win.WS_POPUP|win.WS_VISIBLE,
		0, 0, int32(s.width), int32(s.height),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if s.hwnd == 0 {
		return fmt.Errorf("failed to create overlay window")
	}
	if err := s.createBackBuffer(); err != nil {
		win.DestroyWindow(s.hwnd)
		s.hwnd = 0
		return err
	}
	s.upload(frame)

	win.ShowWindow(s.hwnd, win.SW_SHOW)
	procAllowSetForegroundWindow.Call(uintptr(os.Getpid()))
	win.SetForegroundWindow(s.hwnd)
	win.BringWindowToTop(s.hwnd)
	win.SetFocus(s.hwnd)
	win.UpdateWindow(s.hwnd)

	// The overlay may not own keyboard focus; poll ESC as well.
	if timerID := win.SetTimer(s.hwnd, overlayKeyPollTimerID, overlayKeyPollIntervalMs, 0); timerID == 0 {
		log.Printf("OVERLAY: Failed to start keyboard poll timer")
	}
	s.escapeWasDown, _ = getAsyncKeyState(win.VK_ESCAPE)
	log.Printf("OVERLAY: window shown, hwnd=%v size=%dx%d", s.hwnd, s.width, s.height)
	return nil
}

func (s *winSurface) Redraw(frame *image.RGBA) {
	if s.hwnd == 0 {
		return
	}
	s.upload(frame)
	win.InvalidateRect(s.hwnd, nil, false)
	win.UpdateWindow(s.hwnd)
}

func (s *winSurface) Hide() {
	if s.hwnd == 0 {
		return
	}
	win.KillTimer(s.hwnd, overlayKeyPollTimerID)
	win.ReleaseCapture()
	win.DestroyWindow(s.hwnd)
	s.hwnd = 0
	s.freeBackBuffer()
	log.Printf("OVERLAY: window hidden")
}

func (s *winSurface) createBackBuffer() error {
	hdc := win.GetDC(s.hwnd)
	defer win.ReleaseDC(s.hwnd, hdc)

	s.memDC = win.CreateCompatibleDC(hdc)
	if s.memDC == 0 {
		return errors.New("failed to create overlay memory DC")
	}
	header := win.BITMAPINFOHEADER{
		BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
		BiWidth:       int32(s.width),
		BiHeight:      -int32(s.height), // negative for top-down
		BiPlanes:      1,
		BiBitCount:    32,
		BiCompression: win.BI_RGB,
	}
	s.bitmap = win.CreateDIBSection(s.memDC, &header, win.DIB_RGB_COLORS, &s.bits, 0, 0)
	if s.bitmap == 0 {
		win.DeleteDC(s.memDC)
		s.memDC = 0
		return errors.New("failed to create overlay DIB section")
	}
	s.oldBitmap = win.SelectObject(s.memDC, win.HGDIOBJ(s.bitmap))
	return nil
}

func (s *winSurface) freeBackBuffer() {
	if s.memDC != 0 {
		win.SelectObject(s.memDC, s.oldBitmap)
		win.DeleteDC(s.memDC)
		s.memDC = 0
	}
	if s.bitmap != 0 {
		win.DeleteObject(win.HGDIOBJ(s.bitmap))
		s.bitmap = 0
	}
	s.bits = nil
}

// upload converts the RGBA frame into the BGRA DIB.
func (s *winSurface) upload(frame *image.RGBA) {
	if s.bits == nil {
		return
	}
	n := s.width * s.height * 4
	dst := unsafe.Slice((*byte)(s.bits), n)
	src := frame.Pix
	for y := 0; y < s.height; y++ {
		srow := src[y*frame.Stride : y*frame.Stride+s.width*4]
		drow := dst[y*s.width*4 : (y+1)*s.width*4]
		for i := 0; i < len(srow); i += 4 {
			drow[i] = srow[i+2]
			drow[i+1] = srow[i+1]
			drow[i+2] = srow[i]
			drow[i+3] = 0xff
		}
	}
}

func (s *winSurface) paint(hwnd win.HWND) {
	var ps win.PAINTSTRUCT
	hdc := win.BeginPaint(hwnd, &ps)
	if s.memDC != 0 {
		win.BitBlt(hdc, 0, 0, int32(s.width), int32(s.height), s.memDC, 0, 0, win.SRCCOPY)
	}
	win.EndPaint(hwnd, &ps)
}

func getAsyncKeyState(vk int32) (bool, bool) {
	state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	st := uint16(state)
	return st&0x8000 != 0, st&0x0001 != 0
}

func (s *winSurface) pollEscape() {
	down, pressed := getAsyncKeyState(win.VK_ESCAPE)
	if !s.escapeWasDown && (down || pressed) {
		log.Printf("OVERLAY: Escape detected via async polling")
		s.driver.Handle(selection.Event{Kind: selection.Cancel})
	}
	s.escapeWasDown = down
}

func pointerEvent(kind selection.EventKind, button selection.Button, lParam uintptr) selection.Event {
	return selection.Event{
		Kind:   kind,
		Button: button,
		X:      int(win.GET_X_LPARAM(lParam)),
		Y:      int(win.GET_Y_LPARAM(lParam)),
	}
}

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	s := current
	if s == nil || s.driver == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case win.WM_LBUTTONDOWN:
		win.SetCapture(hwnd)
		s.driver.Handle(pointerEvent(selection.Press, selection.Primary, lParam))
		return 0

	case win.WM_MOUSEMOVE:
		s.driver.Handle(pointerEvent(selection.Move, selection.Primary, lParam))
		return 0

	case win.WM_LBUTTONUP:
		win.ReleaseCapture()
		s.driver.Handle(pointerEvent(selection.Release, selection.Primary, lParam))
		return 0

	case win.WM_RBUTTONDOWN:
		s.driver.Handle(pointerEvent(selection.Press, selection.Secondary, lParam))
		return 0

	case win.WM_KEYDOWN:
		if wParam == win.VK_ESCAPE {
			s.escapeWasDown = true
			s.driver.Handle(selection.Event{Kind: selection.Cancel})
		}
		return 0

	case win.WM_KEYUP:
		if wParam == win.VK_ESCAPE {
			s.escapeWasDown = false
		}
		return 0

	case win.WM_TIMER:
		if wParam == overlayKeyPollTimerID {
			s.pollEscape()
		}
		return 0

	case win.WM_PAINT:
		s.paint(hwnd)
		return 0

	case win.WM_SETCURSOR:
		if crossCursor != 0 {
			win.SetCursor(crossCursor)
			return 1
		}

	case win.WM_NCHITTEST:
		// Force all points to be client area so the window receives mouse events
		return uintptr(win.HTCLIENT)

	case win.WM_CLOSE:
		log.Printf("OVERLAY: WM_CLOSE received, aborting selection")
		s.driver.Abort()
		return 0

	case win.WM_DESTROY:
		// No PostQuitMessage: a leftover WM_QUIT would end the next
		// selection's message loop immediately.
		return 0
	}

	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}
