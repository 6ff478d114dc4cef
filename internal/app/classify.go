package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/shareef6907/BahrainNights-sub013/internal/classify"
	"github.com/shareef6907/BahrainNights-sub013/internal/upstream"
)

type classifyReport struct {
	ID       string         `json:"id,omitempty"`
	Title    string         `json:"title"`
	Country  string         `json:"country"`
	Tier     string         `json:"country_tier,omitempty"`
	Home     bool           `json:"home"`
	Category string         `json:"category"`
	Stage    string         `json:"stage"`
	Scores   map[string]int `json:"scores,omitempty"`
}

func runClassify(args []string) int {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	taxonomyFile := fs.String("taxonomy", "", "Taxonomy YAML file (defaults to embedded tables)")
	ratio := fs.Float64("venue-hint-ratio", 0, "Override the venue hint ratio")
	pageFile := fs.String("page", "", "Saved upstream page JSON to classify listing by listing")
	title := fs.String("title", "", "Listing title")
	description := fs.String("description", "", "Listing description")
	venue := fs.String("venue", "", "Venue name")
	bookingURL := fs.String("url", "", "Booking URL")
	timezone := fs.String("timezone", "", "IANA timezone")
	currency := fs.String("currency", "", "ISO-4217 currency")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*pageFile) == "" && strings.TrimSpace(*title) == "" {
		fmt.Fprintln(os.Stderr, "either --page or --title is required")
		return 2
	}

	tables, err := loadTables(*taxonomyFile, *ratio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load taxonomy: %v\n", err)
		return 1
	}
	classifier := classify.New(tables)

	var reports []classifyReport
	if path := strings.TrimSpace(*pageFile); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read page: %v\n", err)
			return 1
		}
		listings, err := upstream.DecodePage(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid page %s: %v\n", path, err)
			return 1
		}
		for _, l := range listings {
			report := classifyListing(classifier, l.ClassifyInput())
			report.ID = l.ExternalID()
			reports = append(reports, report)
		}
	} else {
		reports = append(reports, classifyListing(classifier, classify.Input{
			Title:       *title,
			Description: *description,
			Venue:       *venue,
			URL:         *bookingURL,
			Timezone:    *timezone,
			Currency:    *currency,
		}))
	}

	if err := printJSON(reports); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode report: %v\n", err)
		return 1
	}
	return 0
}

func classifyListing(c *classify.Classifier, in classify.Input) classifyReport {
	result := c.Classify(in)
	report := classifyReport{
		Title:    in.Title,
		Category: result.Category,
		Stage:    string(result.Stage),
		Scores:   result.Signal.Scores,
	}
	if country, tier, ok := c.DetectCountryTier(in); ok {
		report.Country = country.Code
		report.Tier = string(tier)
		report.Home = country.Code == c.Tables().HomeCountry
	}
	return report
}
