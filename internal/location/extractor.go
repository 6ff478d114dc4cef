// Package location guesses a city and country from free text using the
// gazetteer tables.
package location

import (
	"net/url"
	"sort"
	"strings"

	"github.com/shareef6907/BahrainNights-sub013/internal/taxonomy"
	"github.com/shareef6907/BahrainNights-sub013/internal/textnorm"
)

// Unknown is shown in place of a field that could not be resolved.
const Unknown = "Unknown"

// Location holds independently nullable city and country names.
type Location struct {
	City        *string
	Country     *string
	CountryCode string
}

// Display returns both fields with Unknown substituted for missing ones.
func (l Location) Display() (city, country string) {
	city, country = Unknown, Unknown
	if l.City != nil && *l.City != "" {
		city = *l.City
	}
	if l.Country != nil && *l.Country != "" {
		country = *l.Country
	}
	return city, country
}

type cityEntry struct {
	name    string
	key     string
	compact string
	country taxonomy.Country
}

type countryEntry struct {
	names   []string
	country taxonomy.Country
}

// Extractor is safe for concurrent use once built.
type Extractor struct {
	cities    []cityEntry
	countries []countryEntry
	byCode    map[string]taxonomy.Country
}

func NewExtractor(tables *taxonomy.Tables) *Extractor {
	e := &Extractor{byCode: make(map[string]taxonomy.Country, len(tables.Countries))}
	for _, country := range tables.Countries {
		e.byCode[strings.ToLower(country.Code)] = country

		names := []string{strings.ToLower(country.Name)}
		for _, alias := range country.Aliases {
			if a := strings.ToLower(strings.TrimSpace(alias)); a != "" {
				names = append(names, a)
			}
		}
		e.countries = append(e.countries, countryEntry{names: names, country: country})

		for _, city := range country.Cities {
			key := strings.ToLower(strings.TrimSpace(city))
			if key == "" {
				continue
			}
			e.cities = append(e.cities, cityEntry{
				name:    city,
				key:     key,
				compact: strings.NewReplacer(" ", "", "-", "").Replace(key),
				country: country,
			})
		}
	}
	// "Abu Dhabi" must win over a shorter name that shares a word.
	sort.SliceStable(e.cities, func(i, j int) bool {
		return len(e.cities[i].key) > len(e.cities[j].key)
	})
	return e
}

// Extract resolves city and country from text, falling back to hints in
// bookingURL when the text names neither.
func (e *Extractor) Extract(text, bookingURL string) Location {
	lower := strings.ToLower(text)

	var loc Location
	var cityCountry *taxonomy.Country
	for i := range e.cities {
		if textnorm.ContainsWord(lower, e.cities[i].key) {
			loc.City = ptr(e.cities[i].name)
			cityCountry = &e.cities[i].country
			break
		}
	}

	if explicit, ok := e.explicitCountry(lower); ok {
		loc.setCountry(explicit)
	} else if cityCountry != nil {
		loc.setCountry(*cityCountry)
	}

	if loc.City == nil && loc.Country == nil {
		e.fromURL(bookingURL, &loc)
	}
	return loc
}

func (e *Extractor) explicitCountry(lower string) (taxonomy.Country, bool) {
	for _, entry := range e.countries {
		for _, name := range entry.names {
			if textnorm.ContainsWord(lower, name) {
				return entry.country, true
			}
		}
	}
	return taxonomy.Country{}, false
}

// fromURL reads a country code path segment ("/ae/", "/en-sa/") or a city
// subdomain ("doha.platinumlist.net").
func (e *Extractor) fromURL(raw string, loc *Location) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return
	}

	for _, segment := range strings.Split(strings.ToLower(u.Path), "/") {
		code := segment
		if len(segment) == 5 && segment[2] == '-' {
			code = segment[3:]
		}
		if len(code) != 2 {
			continue
		}
		if country, ok := e.byCode[code]; ok {
			loc.setCountry(country)
			return
		}
	}

	host := strings.ToLower(u.Hostname())
	label, _, found := strings.Cut(host, ".")
	if !found || label == "" || label == "www" {
		return
	}
	for _, city := range e.cities {
		if city.compact == label {
			loc.City = ptr(city.name)
			loc.setCountry(city.country)
			return
		}
	}
	for _, entry := range e.countries {
		for _, name := range entry.names {
			if strings.ReplaceAll(name, " ", "") == label {
				loc.setCountry(entry.country)
				return
			}
		}
	}
}

func (l *Location) setCountry(c taxonomy.Country) {
	l.Country = ptr(c.Name)
	l.CountryCode = c.Code
}

func ptr(s string) *string {
	return &s
}
