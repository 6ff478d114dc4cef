// Package upstream reads event listings from the ticketing provider API.
package upstream

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/shareef6907/BahrainNights-sub013/internal/classify"
)

//go:embed page.schema.json
var pageSchemaJSON string

// Listing is one provider-shaped record. It only lives for one run.
type Listing struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Start        int64  `json:"start"`
	End          int64  `json:"end"`
	Timezone     string `json:"timezone"`
	URL          string `json:"url"`
	IsAttraction bool   `json:"is_attraction"`
	SoldOut      bool   `json:"sold_out"`
	Image        Image  `json:"image"`
	Venue        Venue  `json:"venue"`
	Price        Price  `json:"price"`
}

type Image struct {
	Cover     string `json:"cover"`
	Thumbnail string `json:"thumbnail"`
}

type Venue struct {
	Name string `json:"name"`
	City string `json:"city"`
}

type Price struct {
	Amount   *float64 `json:"amount"`
	Currency string   `json:"currency"`
}

// ExternalID is the provider id as stored in source_event_id.
func (l Listing) ExternalID() string {
	return fmt.Sprintf("%d", l.ID)
}

// ImageURL prefers the cover image.
func (l Listing) ImageURL() string {
	if cover := strings.TrimSpace(l.Image.Cover); cover != "" {
		return cover
	}
	return strings.TrimSpace(l.Image.Thumbnail)
}

// ClassifyInput exposes the listing fields the classifiers read.
func (l Listing) ClassifyInput() classify.Input {
	return classify.Input{
		Title:       l.Name,
		Description: l.Description,
		Venue:       l.Venue.Name,
		URL:         l.URL,
		Timezone:    l.Timezone,
		Currency:    l.Price.Currency,
	}
}

type page struct {
	Data []Listing `json:"data"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// DecodePage validates raw against the page schema and decodes the listings.
func DecodePage(raw []byte) ([]Listing, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode page JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize page JSON: %w", err)
	}

	var p page
	if err := json.Unmarshal(normalized, &p); err != nil {
		return nil, fmt.Errorf("unmarshal page: %w", err)
	}
	return p.Data, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("events_page.schema.json", strings.NewReader(pageSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("events_page.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("page is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("page contains trailing content")
	}
	return value, nil
}
