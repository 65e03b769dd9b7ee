package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey stores the request Locale.
var LocaleKey = localeContextKey{}

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// Locale is the visitor's language and country, used to format dates.
type Locale struct {
	Tag     language.Tag
	Country string
}

var supported = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.German,
	language.French,
	language.Spanish,
	language.Indonesian,
	language.Japanese,
}

var matcher = language.NewMatcher(supported)

// Countries writing month before day.
var monthFirst = map[string]bool{"US": true, "PH": true, "FM": true, "PW": true, "MH": true}

// Countries writing dates year first.
var yearFirst = map[string]bool{"CN": true, "JP": true, "KR": true, "TW": true, "HU": true, "LT": true, "MN": true, "SE": true}

// DateLayout returns a time layout suited to the visitor's country.
func (l Locale) DateLayout() string {
	country := l.Country
	if country == "" {
		if region, conf := l.Tag.Region(); conf >= language.High {
			country = region.String()
		}
	}
	switch {
	case yearFirst[country]:
		return "2006-01-02 15:04"
	case monthFirst[country] || country == "":
		return "Jan 2, 2006 3:04 PM"
	default:
		return "2 Jan 2006 15:04"
	}
}

// I18N resolves the Locale from X-Locale or Accept-Language, using lookup as
// a country fallback when the headers carry no region.
func I18N(fallback language.Tag, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := Locale{
				Tag:     detectLanguage(r, fallback),
				Country: ResolveCountry(r, lookup),
			}
			ctx := context.WithValue(r.Context(), LocaleKey, loc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLanguage(r *http.Request, fallback language.Tag) language.Tag {
	for _, header := range []string{r.Header.Get("X-Locale"), r.Header.Get("Accept-Language")} {
		if strings.TrimSpace(header) == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(header)
		if err != nil || len(tags) == 0 {
			continue
		}
		_, idx, conf := matcher.Match(tags...)
		if conf != language.No {
			return supported[idx]
		}
	}
	if fallback == language.Und {
		return language.AmericanEnglish
	}
	return fallback
}

// ClientIP returns the best-effort client IP address for the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// LocaleFromContext returns the request Locale, defaulting to US English.
func LocaleFromContext(ctx context.Context) Locale {
	if v, ok := ctx.Value(LocaleKey).(Locale); ok {
		return v
	}
	return Locale{Tag: language.AmericanEnglish}
}

// ResolveCountry resolves a best-effort ISO country code for the given request.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if r == nil {
		return ""
	}
	headerHints := []string{"X-Country-Code", "CF-IPCountry", "X-Appengine-Country"}
	for _, key := range headerHints {
		if val := strings.TrimSpace(r.Header.Get(key)); val != "" {
			return strings.ToUpper(val)
		}
	}
	if region := localeRegion(r.Header.Get("X-Locale")); region != "" {
		return region
	}
	if region := localeRegion(r.Header.Get("Accept-Language")); region != "" {
		return region
	}
	if lookup != nil {
		if ip := ClientIP(r); ip != "" {
			if country, err := lookup(ip); err == nil && country != "" {
				return strings.ToUpper(country)
			}
		}
	}
	return ""
}

func localeRegion(accept string) string {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return ""
	}
	if region, conf := tags[0].Region(); conf == language.Exact {
		return region.String()
	}
	return ""
}
