package notification

import (
	"fmt"
	"unicode/utf8"
)

// Dialogs shows native notices. Every call blocks until the user dismisses it.
type Dialogs interface {
	Info(title, message string)
	Error(title, message string)
	// OfferCopy shows text and asks whether to copy it. It returns true when
	// the user accepts.
	OfferCopy(title, text string) bool
}

// maxPreviewRunes bounds how much recognized text a notice displays. The copy
// action always uses the full text.
const maxPreviewRunes = 2000

// Preview truncates text for display in a notice.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= maxPreviewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxPreviewRunes]) + "..."
}

func copyPrompt(text string) string {
	return fmt.Sprintf("%s\n\nCopy to clipboard?", Preview(text))
}
