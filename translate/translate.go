package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer *message.Printer

// Plural forms of the en-US messages with counts.
var plurals = map[string][2]string{
	"relaxed in %d passes": {"relaxed in %d pass", "relaxed in %d passes"},
	"%d warnings":          {"%d warning", "%d warnings"},
	"%d symbols":           {"%d symbol", "%d symbols"},
}

func init() {
	for key, forms := range plurals {
		err := message.Set(language.AmericanEnglish, key,
			plural.Selectf(1, "%d",
				plural.One, forms[0],
				plural.Other, forms[1],
			))
		if err != nil {
			log.Printf("mc3: catalog: %v", err)
		}
	}

	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("mc3: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
