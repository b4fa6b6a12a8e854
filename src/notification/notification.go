package notification

import (
	"log"
)

// ShowBlockingError reports an error that prevents startup, before any
// window exists. On Windows it shows a message box; elsewhere it logs.
func ShowBlockingError(title, message string) {
	log.Printf("%s: %s", title, message)
	showMessageBox(title, message)
}
