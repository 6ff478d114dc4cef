package classify

import (
	"testing"

	"github.com/shareef6907/BahrainNights-sub013/internal/taxonomy"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()

	tables, err := taxonomy.Default()
	if err != nil {
		t.Fatalf("load default taxonomy: %v", err)
	}
	return New(tables)
}

func TestClassifyTitlePriorityBeatsGenericScores(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)
	got := c.Classify(Input{
		Title:       "Grand Prix Qualifying",
		Description: "festival party night festival party night",
	})
	if got.Category != "sports" || got.Stage != StageTitlePriority {
		t.Fatalf("expected sports via title_priority, got %s via %s", got.Category, got.Stage)
	}
}

func TestClassifyVenueTrigger(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)
	got := c.Classify(Input{
		Title:       "Season Opener",
		Description: "A community celebration with food and music festival vibes",
		Venue:       "Bahrain International Circuit",
	})
	if got.Category != "sports" || got.Stage != StageVenueTrigger {
		t.Fatalf("expected sports via venue_trigger, got %s via %s", got.Category, got.Stage)
	}
}

func TestClassifyVenueHintOverridesKeywordWinner(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)
	got := c.Classify(Input{
		Title:       "Acoustic Sessions",
		Description: "Charity and volunteer meetup for the neighbourhood",
		Venue:       "XYZ Amphitheatre",
	})
	if got.Signal.Scores["community"] != 4 {
		t.Fatalf("expected community score 4, got %d", got.Signal.Scores["community"])
	}
	if got.Signal.Scores["music"] != 3 {
		t.Fatalf("expected music score 3, got %d", got.Signal.Scores["music"])
	}
	if got.Signal.Best != "community" {
		t.Fatalf("expected community to lead keyword scoring, got %s", got.Signal.Best)
	}
	if got.Category != "music" || got.Stage != StageVenueHint {
		t.Fatalf("expected music via venue_hint, got %s via %s", got.Category, got.Stage)
	}
}

func TestClassifyVenueHintRatioIsTunable(t *testing.T) {
	t.Parallel()

	tables, err := taxonomy.Default()
	if err != nil {
		t.Fatalf("load default taxonomy: %v", err)
	}
	strict, err := tables.WithVenueHintRatio(0.9)
	if err != nil {
		t.Fatalf("with ratio: %v", err)
	}

	got := New(strict).Classify(Input{
		Title:       "Acoustic Sessions",
		Description: "Charity and volunteer meetup for the neighbourhood",
		Venue:       "XYZ Amphitheatre",
	})
	if got.Category != "community" || got.Stage != StageKeywordScore {
		t.Fatalf("expected community via keyword_score at ratio 0.9, got %s via %s", got.Category, got.Stage)
	}
}

func TestClassifyKeywordScoreWeights(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)
	got := c.Classify(Input{
		Title:       "Sunset Yoga",
		Description: "Guided meditation and a short wellness talk",
		Venue:       "Seef Rooftop",
	})
	// yoga (title 3) + meditation (1) + wellness (1)
	if got.Signal.Scores["wellness"] != 5 {
		t.Fatalf("expected wellness score 5, got %d", got.Signal.Scores["wellness"])
	}
	// rooftop found in venue only
	if got.Signal.Scores["nightlife"] != 2 {
		t.Fatalf("expected nightlife score 2, got %d", got.Signal.Scores["nightlife"])
	}
	if got.Category != "wellness" || got.Stage != StageKeywordScore {
		t.Fatalf("expected wellness via keyword_score, got %s via %s", got.Category, got.Stage)
	}
}

func TestClassifyTieBreaksByTaxonomyOrder(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)
	got := c.Classify(Input{Title: "Jazz Brunch"})
	if got.Signal.Scores["music"] != 3 || got.Signal.Scores["food"] != 3 {
		t.Fatalf("expected a 3-3 tie, got %#v", got.Signal.Scores)
	}
	if got.Category != "music" {
		t.Fatalf("expected earlier category to win tie, got %s", got.Category)
	}
}

func TestClassifyFallbacks(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)

	hinted := c.Classify(Input{Title: "Saturday Social", Venue: "Coca-Cola Arena"})
	if hinted.Category != "music" || hinted.Stage != StageVenueHintFallback {
		t.Fatalf("expected music via venue_hint_fallback, got %s via %s", hinted.Category, hinted.Stage)
	}

	// A single description match stays below the threshold.
	below := c.Classify(Input{Title: "Saturday Social", Description: "Bring a friend to the market"})
	if below.Category != "community" || below.Stage != StageDefault {
		t.Fatalf("expected default category, got %s via %s", below.Category, below.Stage)
	}

	empty := c.Classify(Input{})
	if empty.Category == "" || empty.Category != c.Tables().DefaultCategory {
		t.Fatalf("expected default category for empty input, got %q", empty.Category)
	}
}

func TestClassifyMatchesWholeWordsOnly(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)
	got := c.Classify(Input{Title: "Partying Artists Cupcakes"})
	if len(got.Signal.Scores) != 0 {
		t.Fatalf("expected no keyword hits inside longer words, got %#v", got.Signal.Scores)
	}
}

func TestTitlePriorityMatchesWholePhrases(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)

	baking := c.Classify(Input{
		Title:       "Melissa's Baking Workshop",
		Description: "Hands-on culinary workshop with a pastry chef, tasting included",
	})
	if baking.Stage == StageTitlePriority || baking.Category == "music" {
		t.Fatalf("expected no title priority inside a longer word, got %s via %s", baking.Category, baking.Stage)
	}
	// food and business tie at 3; food comes first in table order.
	if baking.Category != "food" || baking.Stage != StageKeywordScore {
		t.Fatalf("expected food via keyword_score, got %s via %s (%v)", baking.Category, baking.Stage, baking.Signal.Scores)
	}

	for _, title := range []string{"Dwwe Family Fun Day", "Gufc Supporters Night"} {
		if got := c.Classify(Input{Title: title}); got.Stage == StageTitlePriority {
			t.Fatalf("%q: unexpected title priority hit for %s", title, got.Category)
		}
	}

	elissa := c.Classify(Input{Title: "Elissa Live at the Arena"})
	if elissa.Category != "music" || elissa.Stage != StageTitlePriority {
		t.Fatalf("expected music via title_priority, got %s via %s", elissa.Category, elissa.Stage)
	}
	ufc := c.Classify(Input{Title: "UFC Fight Night: Abu Dhabi"})
	if ufc.Category != "sports" || ufc.Stage != StageTitlePriority {
		t.Fatalf("expected sports via title_priority, got %s via %s", ufc.Category, ufc.Stage)
	}
}

func TestDetectCountryTierOrder(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)

	tests := []struct {
		name     string
		in       Input
		wantCode string
		wantTier CountryTier
	}{
		{
			name:     "url beats timezone and currency",
			in:       Input{URL: "https://dubai.platinumlist.net/event-tickets/1", Timezone: "Asia/Riyadh", Currency: "QAR"},
			wantCode: "AE",
			wantTier: TierURL,
		},
		{
			name:     "host beats slug naming another country",
			in:       Input{URL: "https://dubai.platinumlist.net/event-tickets/91234/amr-diab-live-bahrain-tour", Timezone: "Asia/Dubai", Currency: "AED"},
			wantCode: "AE",
			wantTier: TierURL,
		},
		{
			name:     "host beats path prefix",
			in:       Input{URL: "https://doha.platinumlist.net/bh/event-tickets/5"},
			wantCode: "QA",
			wantTier: TierURL,
		},
		{
			name:     "path prefix on the shared host",
			in:       Input{URL: "https://platinumlist.net/om/event-tickets/6"},
			wantCode: "OM",
			wantTier: TierURL,
		},
		{
			name:     "slug alone falls through to timezone",
			in:       Input{URL: "https://platinumlist.net/event-tickets/7/bahrain-night-out", Timezone: "Asia/Riyadh"},
			wantCode: "SA",
			wantTier: TierTimezone,
		},
		{
			name:     "timezone beats currency",
			in:       Input{URL: "https://platinumlist.net/event-tickets/2", Timezone: "Asia/Qatar", Currency: "SAR"},
			wantCode: "QA",
			wantTier: TierTimezone,
		},
		{
			name:     "currency only",
			in:       Input{Currency: "kwd"},
			wantCode: "KW",
			wantTier: TierCurrency,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			country, tier, ok := c.DetectCountryTier(tc.in)
			if !ok {
				t.Fatalf("expected a country")
			}
			if country.Code != tc.wantCode || tier != tc.wantTier {
				t.Fatalf("expected %s via %s, got %s via %s", tc.wantCode, tc.wantTier, country.Code, tier)
			}
		})
	}
}

func TestDetectCountryMissAndHome(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)
	if _, ok := c.DetectCountry(Input{URL: "https://example.test/x", Timezone: "Europe/Paris", Currency: "EUR"}); ok {
		t.Fatalf("expected no country")
	}
	if !c.IsHome(Input{Timezone: "Asia/Bahrain"}) {
		t.Fatalf("expected Bahrain timezone to be home")
	}
	if c.IsHome(Input{Currency: "AED"}) {
		t.Fatalf("expected AED not to be home")
	}
	if c.IsHome(Input{URL: "https://dubai.platinumlist.net/event-tickets/91234/amr-diab-live-bahrain-tour", Currency: "AED"}) {
		t.Fatalf("a Bahrain slug on a Dubai host must not be home")
	}
}
