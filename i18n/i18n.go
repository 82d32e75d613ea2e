// Package i18n localizes rimkit's own user-facing strings.
//
// It wraps gotext behind T() and N(). Translations are embedded in the
// binary (locales/{lang}/LC_MESSAGES/rimkit.po) and loaded once via Init();
// before Init, or for an unknown language, both functions pass the original
// string through, following gettext convention.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name for rimkit.
const domain = "rimkit"

var locale *gotext.Locale

// Init loads translations for lang. An empty lang auto-detects from
// LANGUAGE, LC_ALL, LC_MESSAGES and LANG, in that order. Call once at
// startup.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}
	locale = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	locale.AddDomain(domain)
	locale.SetDomain(domain)
}

// T translates a string.
func T(msgid string) string {
	if locale == nil {
		return msgid
	}
	return locale.Get(msgid)
}

// N translates a string with plural forms, selected by n according to the
// target language's plural formula.
func N(singular, plural string, n int) string {
	if locale == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return locale.GetN(singular, plural, n)
}

// detectLanguage follows the GNU gettext environment variable priority.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE can be a colon-separated preference list.
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// Strip the encoding suffix ("es_MX.UTF-8" -> "es_MX").
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
