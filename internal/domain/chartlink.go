package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ChartProvider is a chart host accepted in link mode.
type ChartProvider struct {
	Name  string
	Hosts []string
}

// ChartLink is a validated chart URL.
type ChartLink struct {
	URL      string
	Provider string
	// Symbol is empty when none could be read from the URL.
	Symbol string
}

var (
	chartPathSymbol  = regexp.MustCompile(`/chart/[^/]*/([A-Za-z0-9]+)`)
	tradePathSymbol  = regexp.MustCompile(`/trade/([A-Za-z0-9_\-]+)`)
	symbolTokenChars = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// ParseChartLink checks raw against the provider hosts and reads a symbol when
// the URL carries one. Failing to find a symbol is not an error.
func ParseChartLink(raw string, providers []ChartProvider) (ChartLink, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ChartLink{}, fmt.Errorf("%w: chart url is required", ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ChartLink{}, fmt.Errorf("%w: %q is not a valid url", ErrUnsupportedURL, raw)
	}
	host := strings.ToLower(u.Hostname())
	for _, p := range providers {
		for _, h := range p.Hosts {
			h = strings.ToLower(strings.TrimSpace(h))
			if h == "" {
				continue
			}
			if host == h || strings.HasSuffix(host, "."+h) {
				return ChartLink{URL: raw, Provider: p.Name, Symbol: symbolFromURL(u)}, nil
			}
		}
	}
	return ChartLink{}, fmt.Errorf("%w: please use a supported chart link (%s)", ErrUnsupportedURL, providerNames(providers))
}

func symbolFromURL(u *url.URL) string {
	if s := u.Query().Get("symbol"); s != "" {
		if i := strings.LastIndex(s, ":"); i >= 0 {
			s = s[i+1:]
		}
		if sym := cleanSymbolToken(s); sym != "" {
			return sym
		}
	}
	if m := chartPathSymbol.FindStringSubmatch(u.Path); m != nil {
		// layout ids are mixed case, tickers are not
		if symbolTokenChars.MatchString(m[1]) {
			return m[1]
		}
	}
	if m := tradePathSymbol.FindStringSubmatch(u.Path); m != nil {
		return cleanSymbolToken(m[1])
	}
	return ""
}

func cleanSymbolToken(s string) string {
	s = strings.NewReplacer("_", "", "-", "", "/", "").Replace(strings.TrimSpace(s))
	s = strings.ToUpper(s)
	if !symbolTokenChars.MatchString(s) {
		return ""
	}
	return s
}

func providerNames(providers []ChartProvider) string {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(v string) (string, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return "", fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	return v, nil
}
