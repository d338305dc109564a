//go:build windows

package notification

import (
	"log"

	"golang.org/x/sys/windows"
)

const (
	mbOK             = 0x00000000
	mbYesNo          = 0x00000004
	mbIconError      = 0x00000010
	mbIconQuestion   = 0x00000020
	mbIconInfo       = 0x00000040
	mbSystemModal    = 0x00001000
	mbSetForeground  = 0x00010000
	mbTopmost        = 0x00040000
	idYes            = 6
	foregroundStyles = mbSetForeground | mbTopmost
)

type nativeDialogs struct{}

// Native returns message-box backed dialogs.
func Native() Dialogs { return nativeDialogs{} }

func messageBox(title, message string, style uint32) int32 {
	titlePtr, err := windows.UTF16PtrFromString(title)
	if err != nil {
		log.Printf("notification: bad title: %v", err)
		return 0
	}
	msgPtr, err := windows.UTF16PtrFromString(message)
	if err != nil {
		log.Printf("notification: bad message: %v", err)
		return 0
	}
	ret, err := windows.MessageBox(0, msgPtr, titlePtr, style)
	if ret == 0 {
		log.Printf("notification: MessageBox failed: %v", err)
	}
	return ret
}

func (nativeDialogs) Info(title, message string) {
	messageBox(title, message, mbOK|mbIconInfo|foregroundStyles)
}

func (nativeDialogs) Error(title, message string) {
	messageBox(title, message, mbOK|mbIconError|foregroundStyles)
}

func (nativeDialogs) OfferCopy(title, text string) bool {
	return messageBox(title, copyPrompt(text), mbYesNo|mbIconQuestion|foregroundStyles) == idYes
}

// ShowBlockingError displays a modal, blocking error dialog and returns after user dismisses it.
func ShowBlockingError(title, message string) {
	messageBox(title, message, mbOK|mbIconError|mbSystemModal)
}
