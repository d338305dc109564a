// Package tray is the resident's indicator: the icon, its menu and the
// tooltip that shows when recognition is running.
package tray

import (
	"log"
	"sync/atomic"

	"fyne.io/systray"
)

const (
	DefaultTooltip = "Screen OCR"
	BusyTooltip    = "Screen OCR: processing..."
)

type Options struct {
	// OnCapture runs for the "Capture & OCR" item and for a click on the icon.
	OnCapture func()
	// OnExit runs after the indicator is gone.
	OnExit func()
}

var ready atomic.Bool

// Run shows the indicator and blocks until Quit. It must be called from the
// main goroutine.
func Run(opts Options) {
	systray.Run(func() { onReady(opts) }, func() {
		ready.Store(false)
		log.Printf("tray: exited")
		if opts.OnExit != nil {
			opts.OnExit()
		}
	})
}

func onReady(opts Options) {
	systray.SetIcon(Icon())
	systray.SetTitle(DefaultTooltip)
	systray.SetTooltip(DefaultTooltip)

	capture := func() {
		if opts.OnCapture != nil {
			opts.OnCapture()
		}
	}
	systray.SetOnTapped(capture)

	mCapture := systray.AddMenuItem("Capture & OCR", "Select a screen region and extract its text")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Exit", "Quit the application")
	ready.Store(true)
	log.Printf("tray: ready")

	go func() {
		for {
			select {
			case <-mCapture.ClickedCh:
				capture()
			case <-mQuit.ClickedCh:
				log.Printf("tray: exit requested")
				systray.Quit()
				return
			}
		}
	}()
}

// Quit hides the indicator and makes Run return.
func Quit() { systray.Quit() }

// UpdateTooltip sets the indicator tooltip once the tray is up.
func UpdateTooltip(text string) {
	if !ready.Load() {
		return
	}
	systray.SetTooltip(text)
}

// SetBusy switches the tooltip between its idle and processing texts.
func SetBusy(busy bool) {
	if busy {
		UpdateTooltip(BusyTooltip)
		return
	}
	UpdateTooltip(DefaultTooltip)
}
