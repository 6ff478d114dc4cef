package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

func runTaxonomy(args []string) int {
	fs := flag.NewFlagSet("taxonomy", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file := fs.String("file", "", "Taxonomy YAML file to validate (defaults to embedded tables)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	tables, err := loadTables(*file, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID taxonomy: %v\n", err)
		return 1
	}

	cities := 0
	for _, c := range tables.Countries {
		cities += len(c.Cities)
	}
	fmt.Printf("taxonomy %s\n", tables.Version)
	fmt.Printf("home country: %s\n", tables.HomeCountry)
	fmt.Printf("default category: %s\n", tables.DefaultCategory)
	fmt.Printf("min category score: %d\n", tables.MinCategoryScore)
	fmt.Printf("venue hint ratio: %.2f\n", tables.VenueHintRatio)
	fmt.Printf("categories (%d): %v\n", len(tables.Categories), tables.CategoryNames())
	fmt.Printf("title priority rules: %d\n", len(tables.TitlePriority))
	fmt.Printf("venue triggers: %d, venue hints: %d\n", len(tables.VenueTriggers), len(tables.VenueHints))
	fmt.Printf("countries: %d, cities: %d\n", len(tables.Countries), cities)
	return 0
}
