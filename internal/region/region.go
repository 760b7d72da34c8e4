// Package region translates locale, ISO 3166-1 and IANA time-zone
// identifiers into canonical two-letter region codes and display names.
//
// All lookups are pure. Country metadata comes from golang.org/x/text (CLDR)
// and from tzdata tables embedded at build time; see cmd/genzones.
package region

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/couchcryptid/where/internal/domain"
)

// Canonicalize accepts an ISO 3166-1 alpha-2, alpha-3 or numeric code in any
// case and returns the canonical upper-case alpha-2 code. It returns "" for
// unrecognized input and for codes that do not denote a country or territory
// (groupings such as "001" or "EU", and the unknown region "ZZ").
func Canonicalize(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	if len(s) < 2 || len(s) > 3 {
		return ""
	}
	r, err := language.ParseRegion(s)
	if err != nil {
		return ""
	}
	r = r.Canonicalize()
	if !r.IsCountry() {
		return ""
	}
	iso := r.String()
	if len(iso) != 2 {
		return ""
	}
	return iso
}

// CanonicalizeStrict is Canonicalize with an error for unrecognized input.
func CanonicalizeStrict(code string) (string, error) {
	if c := Canonicalize(code); c != "" {
		return c, nil
	}
	return "", fmt.Errorf("region code %q: %w", code, domain.ErrUnrecognized)
}

// ISO3 returns the alpha-3 form of a region code, or "" if unrecognized.
func ISO3(code string) string {
	c := Canonicalize(code)
	if c == "" {
		return ""
	}
	return language.MustParseRegion(c).ISO3()
}

// DisplayName returns the name of a region in the given locale ("de",
// "fr_CA", "pt-BR"). It falls back to English and then to the tzdata
// country name. Unrecognized codes yield "".
func DisplayName(code, locale string) string {
	c := Canonicalize(code)
	if c == "" {
		return ""
	}
	r := language.MustParseRegion(c)

	if tag, ok := parseLocale(locale); ok {
		if namer := display.Regions(tag); namer != nil {
			if name := namer.Name(r); name != "" {
				return name
			}
		}
	}
	if name := display.English.Regions().Name(r); name != "" {
		return name
	}
	return tables().names[c]
}

// parseLocale accepts POSIX ("de_DE.UTF-8@euro") and BCP 47 locale names.
func parseLocale(locale string) (language.Tag, bool) {
	s := strings.TrimSpace(locale)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "C" || s == "POSIX" {
		return language.Und, false
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// FromLocale returns the region explicitly named by a locale identifier.
// A locale without a region subtag ("de", "C") yields "" even though a
// likely region could be guessed from the language.
func FromLocale(locale string) string {
	tag, ok := parseLocale(locale)
	if !ok {
		return ""
	}
	r, conf := tag.Region()
	if conf != language.Exact {
		return ""
	}
	return Canonicalize(r.String())
}
