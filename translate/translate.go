// Package translate renders user-facing message text in the host locale.
//
// Every error string in the simulator is routed through From, so the en-US
// format strings in the source double as message catalog keys.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("lilc3: locale: %v", err)
	}

	// Untranslated locales fall through to the en-US catalog keys.
	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
