package classify

import (
	"net/url"
	"strings"

	"github.com/shareef6907/BahrainNights-sub013/internal/taxonomy"
)

// CountryTier names the signal that resolved a country.
type CountryTier string

const (
	TierURL      CountryTier = "url"
	TierTimezone CountryTier = "timezone"
	TierCurrency CountryTier = "currency"
)

// DetectCountry walks the signal tiers in order and returns the first country
// matching any of them. Within a tier the taxonomy order decides.
func (c *Classifier) DetectCountry(in Input) (taxonomy.Country, bool) {
	country, _, ok := c.DetectCountryTier(in)
	return country, ok
}

// DetectCountryTier is DetectCountry that also reports which tier matched.
func (c *Classifier) DetectCountryTier(in Input) (taxonomy.Country, CountryTier, bool) {
	if country, ok := c.countryFromURL(in.URL); ok {
		return country, TierURL, true
	}

	tz := strings.TrimSpace(in.Timezone)
	if tz != "" {
		for _, country := range c.tables.Countries {
			for _, candidate := range country.Timezones {
				if candidate == tz {
					return country, TierTimezone, true
				}
			}
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency != "" {
		for _, country := range c.tables.Countries {
			for _, candidate := range country.Currencies {
				if candidate == currency {
					return country, TierCurrency, true
				}
			}
		}
	}
	return taxonomy.Country{}, "", false
}

// countryFromURL matches host patterns against the hostname for every country
// before any path prefix is tried, so a slug or path segment can never
// outrank the host.
func (c *Classifier) countryFromURL(raw string) (taxonomy.Country, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return taxonomy.Country{}, false
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return taxonomy.Country{}, false
	}
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.EscapedPath())

	if host != "" {
		for _, country := range c.tables.Countries {
			for _, pattern := range country.URLPatterns {
				if !taxonomy.IsPathPattern(pattern) && strings.Contains(host, pattern) {
					return country, true
				}
			}
		}
	}
	for _, country := range c.tables.Countries {
		for _, pattern := range country.URLPatterns {
			if taxonomy.IsPathPattern(pattern) && strings.HasPrefix(path, pattern) {
				return country, true
			}
		}
	}
	return taxonomy.Country{}, false
}

// IsHome reports whether in resolves to the home region.
func (c *Classifier) IsHome(in Input) bool {
	country, ok := c.DetectCountry(in)
	return ok && country.Code == c.tables.HomeCountry
}
