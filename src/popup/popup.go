// Package popup presents capture results to the user.
package popup

import (
	"fmt"
	"log"
	"strings"

	"screen-ocr/src/logutil"
	"screen-ocr/src/notification"
)

const (
	Title          = "Screen OCR"
	NoTextMessage  = "No text found in the selected area."
	CopiedMessage  = "Text copied to clipboard!"
	errorTitle     = "OCR Error"
	clipboardTitle = "Clipboard Error"
)

// Clipboard receives the text the user chose to copy.
type Clipboard interface {
	Write(text string) error
}

// Presenter turns a recognition result into notices.
type Presenter struct {
	dialogs   notification.Dialogs
	clipboard Clipboard
}

func New(dialogs notification.Dialogs, clipboard Clipboard) *Presenter {
	return &Presenter{dialogs: dialogs, clipboard: clipboard}
}

// Blank reports whether text has nothing but whitespace.
func Blank(text string) bool { return strings.TrimSpace(text) == "" }

// Present shows an informational notice for blank text, otherwise the text
// with a copy offer. Accepting the offer writes the full text to the clipboard.
func (p *Presenter) Present(text string) {
	if Blank(text) {
		log.Printf("Popup: no text found")
		p.dialogs.Info(Title, NoTextMessage)
		return
	}

	log.Printf("Popup: presenting %d characters: %s", len(text), logutil.SanitizeForLog(text))
	if !p.dialogs.OfferCopy(Title, text) {
		log.Printf("Popup: copy declined")
		return
	}
	if err := p.clipboard.Write(text); err != nil {
		log.Printf("Popup: clipboard write failed: %v", err)
		p.dialogs.Error(clipboardTitle, fmt.Sprintf("Could not copy text: %v", err))
		return
	}
	p.dialogs.Info(Title, CopiedMessage)
}

// PresentError shows a blocking error notice with the underlying message.
func (p *Presenter) PresentError(err error) {
	if err == nil {
		return
	}
	log.Printf("Popup: presenting error: %v", err)
	p.dialogs.Error(errorTitle, fmt.Sprintf("OCR Error: %v", err))
}
