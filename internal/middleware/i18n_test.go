package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/text/language"
)

type assertError string

func (e assertError) Error() string { return string(e) }

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback language.Tag
		want     language.Tag
	}{
		{
			name:  "x-locale overrides",
			setup: func(r *http.Request) { r.Header.Set("X-Locale", "de-DE"); r.Header.Set("Accept-Language", "fr") },
			want:  language.German,
		},
		{
			name:  "accept-language british",
			setup: func(r *http.Request) { r.Header.Set("Accept-Language", "en-GB,en;q=0.9") },
			want:  language.BritishEnglish,
		},
		{
			name:  "accept-language indonesian",
			setup: func(r *http.Request) { r.Header.Set("Accept-Language", "id-ID,en;q=0.8") },
			want:  language.Indonesian,
		},
		{
			name:     "configured fallback",
			fallback: language.BritishEnglish,
			want:     language.BritishEnglish,
		},
		{
			name: "default",
			want: language.AmericanEnglish,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			if got := detectLanguage(req, tc.fallback); got != tc.want {
				t.Fatalf("detectLanguage() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		resolver CountryLookup
		want     string
	}{
		{
			name: "header precedence",
			setup: func(r *http.Request) {
				r.Header.Set("X-Country-Code", "us")
				r.Header.Set("CF-IPCountry", "id")
			},
			want: "US",
		},
		{
			name:  "locale region fallback",
			setup: func(r *http.Request) { r.Header.Set("X-Locale", "en-AU") },
			want:  "AU",
		},
		{
			name:  "accept-language region",
			setup: func(r *http.Request) { r.Header.Set("Accept-Language", "en-GB,en;q=0.9") },
			want:  "GB",
		},
		{
			name: "resolver fallback",
			resolver: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					t.Fatalf("unexpected ip: %s", ip)
				}
				return "my", nil
			},
			want: "MY",
		},
		{
			name: "resolver error returns empty",
			resolver: func(ip string) (string, error) {
				return "", assertError("boom")
			},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			if tc.setup != nil {
				tc.setup(req)
			}
			if got := ResolveCountry(req, tc.resolver); got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDateLayout(t *testing.T) {
	tests := []struct {
		loc  Locale
		want string
	}{
		{Locale{Tag: language.AmericanEnglish, Country: "US"}, "Jan 2, 2006 3:04 PM"},
		{Locale{Tag: language.BritishEnglish}, "2 Jan 2006 15:04"},
		{Locale{Tag: language.AmericanEnglish, Country: "JP"}, "2006-01-02 15:04"},
		{Locale{Tag: language.German, Country: "DE"}, "2 Jan 2006 15:04"},
		{Locale{Tag: language.Und}, "Jan 2, 2006 3:04 PM"},
	}
	for _, tc := range tests {
		if got := tc.loc.DateLayout(); got != tc.want {
			t.Fatalf("%+v.DateLayout() = %q, want %q", tc.loc, got, tc.want)
		}
	}
}

func TestI18NStoresLocale(t *testing.T) {
	var got Locale
	h := I18N(language.Und, func(string) (string, error) { return "se", nil })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	req.RemoteAddr = "198.51.100.7:443"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got.Country != "SE" || got.DateLayout() != "2006-01-02 15:04" {
		t.Fatalf("locale = %+v", got)
	}
	if def := LocaleFromContext(context.Background()); def.Tag != language.AmericanEnglish {
		t.Fatalf("default locale = %v", def.Tag)
	}
}
