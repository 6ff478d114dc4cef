package pipeline

import (
	"strings"

	"github.com/shareef6907/BahrainNights-sub013/internal/classify"
	"github.com/shareef6907/BahrainNights-sub013/internal/db"
	"github.com/shareef6907/BahrainNights-sub013/internal/langdetect"
	"github.com/shareef6907/BahrainNights-sub013/internal/textnorm"
	"github.com/shareef6907/BahrainNights-sub013/internal/timeconv"
	"github.com/shareef6907/BahrainNights-sub013/internal/upstream"
)

// Normalized is one listing ready for reconciliation.
type Normalized struct {
	Record db.EventRecord
	Stage  classify.Stage
}

// Normalizer turns provider listings into event records.
type Normalizer struct {
	classifier *classify.Classifier
	affiliate  *textnorm.AffiliateRewriter
	sourceName string
}

func NewNormalizer(classifier *classify.Classifier, affiliate *textnorm.AffiliateRewriter, sourceName string) *Normalizer {
	return &Normalizer{
		classifier: classifier,
		affiliate:  affiliate,
		sourceName: strings.TrimSpace(sourceName),
	}
}

// Normalize returns false when no country can be resolved; such listings are
// dropped rather than stored with a placeholder.
func (n *Normalizer) Normalize(listing upstream.Listing) (Normalized, bool) {
	country, ok := n.classifier.DetectCountry(listing.ClassifyInput())
	if !ok {
		return Normalized{}, false
	}

	title := textnorm.StripMarkup(listing.Name)
	description := textnorm.StripMarkup(listing.Description)
	venue := textnorm.CollapseWhitespace(listing.Venue.Name)
	loc := timeconv.Resolve(listing.Timezone, country.DefaultTimezone)

	result := n.classifier.Classify(classify.Input{
		Title:       title,
		Description: description,
		Venue:       venue,
	})

	externalID := listing.ExternalID()
	record := db.EventRecord{
		SourceName:    n.sourceName,
		SourceEventID: externalID,
		Title:         title,
		Slug:          textnorm.Slugify(title, externalID),
		Description:   description,
		VenueName:     venue,
		Country:       country.Code,
		StartDate:     timeconv.ToLocalDate(listing.Start, loc),
		EndDate:       timeconv.ToLocalDate(listing.End, loc),
		StartTime:     timeconv.ToLocalTime(listing.Start, loc),
		EndTime:       timeconv.ToLocalTime(listing.End, loc),
		Timezone:      loc.String(),
		PriceAmount:   listing.Price.Amount,
		PriceCurrency: strings.ToUpper(strings.TrimSpace(listing.Price.Currency)),
		ImageURL:      listing.ImageURL(),
		BookingURL:    strings.TrimSpace(listing.URL),
		AffiliateURL:  n.affiliate.Rewrite(listing.URL),
		Category:      result.Category,
		Language:      langdetect.DetectISO6391(title + ". " + description),
		IsActive:      true,
	}
	if city := textnorm.CollapseWhitespace(listing.Venue.City); city != "" {
		record.City = &city
	}
	return Normalized{Record: record, Stage: result.Stage}, true
}

// HomeMatcher lets the fetcher drop home-region listings with the same
// country rules the normalizer applies.
func HomeMatcher(classifier *classify.Classifier) upstream.HomeMatcher {
	return upstream.HomeMatcherFunc(func(listing upstream.Listing) bool {
		return classifier.IsHome(listing.ClassifyInput())
	})
}
