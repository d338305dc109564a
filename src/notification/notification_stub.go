//go:build !windows

package notification

import (
	"fmt"
	"io"
	"log"
	"os"
)

// stderr receives error notices so they stay visible when file logging is off.
var stderr io.Writer = os.Stderr

type logDialogs struct{}

// Native returns dialogs that only log on platforms without message boxes.
// Errors are also written to stderr.
func Native() Dialogs { return logDialogs{} }

func (logDialogs) Info(title, message string) { log.Printf("%s: %s", title, message) }

func (logDialogs) Error(title, message string) {
	log.Printf("%s: %s", title, message)
	fmt.Fprintf(stderr, "%s: %s\n", title, message)
}

func (logDialogs) OfferCopy(title, text string) bool {
	log.Printf("%s: %d characters recognized, copy not offered on this platform", title, len(text))
	return false
}

// ShowBlockingError reports a startup failure on stderr and in the log.
func ShowBlockingError(title, message string) {
	log.Printf("%s: %s", title, message)
	fmt.Fprintf(stderr, "%s: %s\n", title, message)
}
