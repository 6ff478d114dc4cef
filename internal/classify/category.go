// Package classify assigns a country and a taxonomy category to a listing.
package classify

import (
	"strings"

	"github.com/shareef6907/BahrainNights-sub013/internal/taxonomy"
	"github.com/shareef6907/BahrainNights-sub013/internal/textnorm"
)

// Stage names the rule that decided a category.
type Stage string

const (
	StageTitlePriority     Stage = "title_priority"
	StageVenueTrigger      Stage = "venue_trigger"
	StageVenueHint         Stage = "venue_hint"
	StageKeywordScore      Stage = "keyword_score"
	StageVenueHintFallback Stage = "venue_hint_fallback"
	StageDefault           Stage = "default"
)

const (
	titleWeight       = 3
	venueWeight       = 2
	descriptionWeight = 1
)

// Input is the listing text and metadata the classifiers read.
type Input struct {
	Title       string
	Description string
	Venue       string
	URL         string
	Timezone    string
	Currency    string
}

// Signal is the working state of one classification.
type Signal struct {
	Text      string
	Scores    map[string]int
	Best      string
	BestScore int
	VenueHint string

	title string
	venue string
}

// Result is the chosen category and the stage that chose it.
type Result struct {
	Category string
	Stage    Stage
	Signal   Signal
}

type stage struct {
	name   Stage
	decide func(c *Classifier, sig *Signal) (string, bool)
}

var stages = []stage{
	{StageTitlePriority, (*Classifier).titlePriority},
	{StageVenueTrigger, (*Classifier).venueTrigger},
	{StageVenueHint, (*Classifier).venueHintOverride},
	{StageKeywordScore, (*Classifier).keywordWinner},
	{StageVenueHintFallback, (*Classifier).venueHintFallback},
}

// Classifier runs both detectors against one set of tables.
type Classifier struct {
	tables *taxonomy.Tables
}

func New(tables *taxonomy.Tables) *Classifier {
	return &Classifier{tables: tables}
}

// Tables returns the tables the classifier was built with.
func (c *Classifier) Tables() *taxonomy.Tables {
	return c.tables
}

// Classify returns a category for in. The result is never empty: when no
// stage decides, the taxonomy default is used.
func (c *Classifier) Classify(in Input) Result {
	sig := c.signal(in)
	for _, s := range stages {
		if category, ok := s.decide(c, &sig); ok {
			return Result{Category: category, Stage: s.name, Signal: sig}
		}
	}
	return Result{Category: c.tables.DefaultCategory, Stage: StageDefault, Signal: sig}
}

func (c *Classifier) signal(in Input) Signal {
	title := strings.ToLower(strings.TrimSpace(in.Title))
	venue := strings.ToLower(strings.TrimSpace(in.Venue))
	description := strings.ToLower(strings.TrimSpace(in.Description))

	sig := Signal{
		Text:   strings.Join([]string{title, description, venue}, " "),
		Scores: make(map[string]int, len(c.tables.Categories)),
		title:  title,
		venue:  venue,
	}

	for _, category := range c.tables.Categories {
		score := 0
		for _, keyword := range category.Keywords {
			switch {
			case textnorm.ContainsWord(title, keyword):
				score += titleWeight
			case textnorm.ContainsWord(venue, keyword):
				score += venueWeight
			case textnorm.ContainsWord(description, keyword):
				score += descriptionWeight
			}
		}
		if score == 0 {
			continue
		}
		sig.Scores[category.Name] = score
		// Strictly greater keeps the earlier category on ties.
		if score > sig.BestScore {
			sig.Best = category.Name
			sig.BestScore = score
		}
	}

	for _, hint := range c.tables.VenueHints {
		if venue != "" && strings.Contains(venue, hint.Match) {
			sig.VenueHint = hint.Category
			break
		}
	}
	return sig
}

func (c *Classifier) titlePriority(sig *Signal) (string, bool) {
	for _, rule := range c.tables.TitlePriority {
		for _, phrase := range rule.Phrases {
			if textnorm.ContainsWord(sig.title, phrase) {
				return rule.Category, true
			}
		}
	}
	return "", false
}

func (c *Classifier) venueTrigger(sig *Signal) (string, bool) {
	if sig.venue == "" {
		return "", false
	}
	for _, trigger := range c.tables.VenueTriggers {
		if strings.Contains(sig.venue, trigger.Match) {
			return trigger.Category, true
		}
	}
	return "", false
}

func (c *Classifier) hasWinner(sig *Signal) bool {
	return sig.Best != "" && sig.BestScore >= c.tables.MinCategoryScore
}

func (c *Classifier) venueHintOverride(sig *Signal) (string, bool) {
	if !c.hasWinner(sig) || sig.VenueHint == "" || sig.VenueHint == sig.Best {
		return "", false
	}
	hintScore := float64(sig.Scores[sig.VenueHint])
	if hintScore > 0 && hintScore >= c.tables.VenueHintRatio*float64(sig.BestScore) {
		return sig.VenueHint, true
	}
	return "", false
}

func (c *Classifier) keywordWinner(sig *Signal) (string, bool) {
	if !c.hasWinner(sig) {
		return "", false
	}
	return sig.Best, true
}

func (c *Classifier) venueHintFallback(sig *Signal) (string, bool) {
	if c.hasWinner(sig) || sig.VenueHint == "" {
		return "", false
	}
	return sig.VenueHint, true
}
