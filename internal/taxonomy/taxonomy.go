// Package taxonomy holds the static gazetteer and keyword tables used by
// classification and location extraction. Tables are loaded once and must be
// treated as read-only afterwards.
package taxonomy

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTablesYAML []byte

const (
	defaultMinCategoryScore = 2
	defaultVenueHintRatio   = 0.5
)

// Tables is the versioned set of ordered rules.
type Tables struct {
	Version          string          `yaml:"version"`
	HomeCountry      string          `yaml:"home_country"`
	DefaultCategory  string          `yaml:"default_category"`
	MinCategoryScore int             `yaml:"min_category_score"`
	VenueHintRatio   float64         `yaml:"venue_hint_ratio"`
	Categories       []CategoryRule  `yaml:"categories"`
	TitlePriority    []PhraseRule    `yaml:"title_priority"`
	VenueTriggers    []SubstringRule `yaml:"venue_triggers"`
	VenueHints       []SubstringRule `yaml:"venue_hints"`
	Countries        []Country       `yaml:"countries"`

	categoryIndex map[string]int
	countryIndex  map[string]int
}

// CategoryRule lists the keywords scored for one category.
type CategoryRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// PhraseRule maps very specific title phrases to a category.
type PhraseRule struct {
	Category string   `yaml:"category"`
	Phrases  []string `yaml:"phrases"`
}

// SubstringRule maps a venue-name substring to a category.
type SubstringRule struct {
	Match    string `yaml:"match"`
	Category string `yaml:"category"`
}

// Country carries the detection signals and gazetteer entries of one country.
// URLPatterns are host fragments ("dubai.platinumlist") or path prefixes
// wrapped in slashes ("/ae/").
type Country struct {
	Code            string   `yaml:"code"`
	Name            string   `yaml:"name"`
	Aliases         []string `yaml:"aliases"`
	URLPatterns     []string `yaml:"url_patterns"`
	Timezones       []string `yaml:"timezones"`
	Currencies      []string `yaml:"currencies"`
	DefaultTimezone string   `yaml:"default_timezone"`
	Cities          []string `yaml:"cities"`
}

// Default returns the embedded tables.
func Default() (*Tables, error) {
	return Parse(defaultTablesYAML)
}

// Load reads tables from path, or returns the embedded tables when path is empty.
func Load(path string) (*Tables, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Default()
	}
	raw, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file %q: %w", trimmed, err)
	}
	tables, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("taxonomy file %q: %w", trimmed, err)
	}
	return tables, nil
}

// Parse decodes and validates YAML tables. Unknown keys are rejected.
func Parse(raw []byte) (*Tables, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)

	var t Tables
	if err := decoder.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode taxonomy yaml: %w", err)
	}
	t.normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tables) normalize() {
	t.Version = strings.TrimSpace(t.Version)
	t.HomeCountry = strings.ToUpper(strings.TrimSpace(t.HomeCountry))
	t.DefaultCategory = normalizeKey(t.DefaultCategory)
	if t.MinCategoryScore == 0 {
		t.MinCategoryScore = defaultMinCategoryScore
	}
	if t.VenueHintRatio == 0 {
		t.VenueHintRatio = defaultVenueHintRatio
	}

	for i := range t.Categories {
		t.Categories[i].Name = normalizeKey(t.Categories[i].Name)
		t.Categories[i].Keywords = normalizeList(t.Categories[i].Keywords)
	}
	for i := range t.TitlePriority {
		t.TitlePriority[i].Category = normalizeKey(t.TitlePriority[i].Category)
		t.TitlePriority[i].Phrases = normalizeList(t.TitlePriority[i].Phrases)
	}
	for i := range t.VenueTriggers {
		t.VenueTriggers[i].Match = normalizeKey(t.VenueTriggers[i].Match)
		t.VenueTriggers[i].Category = normalizeKey(t.VenueTriggers[i].Category)
	}
	for i := range t.VenueHints {
		t.VenueHints[i].Match = normalizeKey(t.VenueHints[i].Match)
		t.VenueHints[i].Category = normalizeKey(t.VenueHints[i].Category)
	}
	for i := range t.Countries {
		c := &t.Countries[i]
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		c.Name = strings.TrimSpace(c.Name)
		c.URLPatterns = normalizeList(c.URLPatterns)
		c.Currencies = upperList(c.Currencies)
		c.DefaultTimezone = strings.TrimSpace(c.DefaultTimezone)
	}
}

// Validate checks cross references between rules. It also builds lookup indexes.
func (t *Tables) Validate() error {
	if t.Version == "" {
		return fmt.Errorf("taxonomy version is required")
	}
	if t.MinCategoryScore < 1 {
		return fmt.Errorf("min_category_score must be >= 1")
	}
	if t.VenueHintRatio <= 0 || t.VenueHintRatio > 1 {
		return fmt.Errorf("venue_hint_ratio must be in (0, 1]")
	}
	if len(t.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}

	t.categoryIndex = make(map[string]int, len(t.Categories))
	for i, c := range t.Categories {
		if c.Name == "" {
			return fmt.Errorf("categories[%d]: name is required", i)
		}
		if _, dup := t.categoryIndex[c.Name]; dup {
			return fmt.Errorf("categories[%d]: duplicate category %q", i, c.Name)
		}
		t.categoryIndex[c.Name] = i
	}
	if !t.HasCategory(t.DefaultCategory) {
		return fmt.Errorf("default_category %q is not a known category", t.DefaultCategory)
	}
	for i, r := range t.TitlePriority {
		if !t.HasCategory(r.Category) {
			return fmt.Errorf("title_priority[%d]: unknown category %q", i, r.Category)
		}
	}
	for i, r := range t.VenueTriggers {
		if r.Match == "" || !t.HasCategory(r.Category) {
			return fmt.Errorf("venue_triggers[%d]: match and known category are required", i)
		}
	}
	for i, r := range t.VenueHints {
		if r.Match == "" || !t.HasCategory(r.Category) {
			return fmt.Errorf("venue_hints[%d]: match and known category are required", i)
		}
	}

	t.countryIndex = make(map[string]int, len(t.Countries))
	for i, c := range t.Countries {
		if len(c.Code) != 2 {
			return fmt.Errorf("countries[%d]: code must be ISO-3166 alpha-2", i)
		}
		if _, dup := t.countryIndex[c.Code]; dup {
			return fmt.Errorf("countries[%d]: duplicate country %q", i, c.Code)
		}
		if c.Name == "" {
			return fmt.Errorf("countries[%d]: name is required", i)
		}
		for j, pattern := range c.URLPatterns {
			if !validURLPattern(pattern) {
				return fmt.Errorf("countries[%d].url_patterns[%d]: %q must be a host fragment or a /path/ prefix", i, j, pattern)
			}
		}
		if _, err := time.LoadLocation(c.DefaultTimezone); err != nil || c.DefaultTimezone == "" {
			return fmt.Errorf("countries[%d]: invalid default_timezone %q", i, c.DefaultTimezone)
		}
		t.countryIndex[c.Code] = i
	}
	if _, ok := t.countryIndex[t.HomeCountry]; !ok {
		return fmt.Errorf("home_country %q must be listed in countries", t.HomeCountry)
	}
	return nil
}

// HasCategory reports whether name is part of the taxonomy.
func (t *Tables) HasCategory(name string) bool {
	_, ok := t.categoryIndex[name]
	return ok
}

// CategoryNames returns categories in table order.
func (t *Tables) CategoryNames() []string {
	names := make([]string, 0, len(t.Categories))
	for _, c := range t.Categories {
		names = append(names, c.Name)
	}
	return names
}

// CategoryRank is the table position of name, used to break score ties.
func (t *Tables) CategoryRank(name string) int {
	if idx, ok := t.categoryIndex[name]; ok {
		return idx
	}
	return len(t.Categories)
}

// Country looks up a country by its code.
func (t *Tables) Country(code string) (Country, bool) {
	idx, ok := t.countryIndex[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Country{}, false
	}
	return t.Countries[idx], true
}

// Home returns the protected home-region country.
func (t *Tables) Home() Country {
	c, _ := t.Country(t.HomeCountry)
	return c
}

// WithVenueHintRatio returns a copy with a different hint ratio; zero keeps the current one.
func (t *Tables) WithVenueHintRatio(ratio float64) (*Tables, error) {
	clone := *t
	if ratio != 0 {
		clone.VenueHintRatio = ratio
	}
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	return &clone, nil
}

// IsPathPattern reports whether a URL pattern matches a path prefix rather
// than the host.
func IsPathPattern(pattern string) bool {
	return strings.HasPrefix(pattern, "/")
}

func validURLPattern(pattern string) bool {
	if IsPathPattern(pattern) {
		return len(pattern) > 2 && strings.HasSuffix(pattern, "/")
	}
	if strings.ContainsAny(pattern, "/?#") || strings.HasPrefix(pattern, "-") {
		return false
	}
	return strings.Contains(pattern, ".")
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if k := normalizeKey(s); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func upperList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if k := strings.ToUpper(strings.TrimSpace(s)); k != "" {
			out = append(out, k)
		}
	}
	return out
}
