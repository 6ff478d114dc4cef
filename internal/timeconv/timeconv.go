// Package timeconv renders provider epoch timestamps as local calendar values.
package timeconv

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

const (
	DateLayout = time.DateOnly
	TimeLayout = "15:04"
)

var locations sync.Map // name -> *time.Location

// Resolve returns the location for recordTZ, falling back to fallbackTZ and
// finally UTC when neither name loads.
func Resolve(recordTZ, fallbackTZ string) *time.Location {
	if loc, ok := load(recordTZ); ok {
		return loc
	}
	if loc, ok := load(fallbackTZ); ok {
		return loc
	}
	return time.UTC
}

func load(name string) (*time.Location, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, false
	}
	if cached, ok := locations.Load(trimmed); ok {
		return cached.(*time.Location), true
	}
	loc, err := time.LoadLocation(trimmed)
	if err != nil {
		return nil, false
	}
	locations.Store(trimmed, loc)
	return loc, true
}

// ToLocalDate formats epochSeconds as YYYY-MM-DD in loc.
func ToLocalDate(epochSeconds int64, loc *time.Location) string {
	return at(epochSeconds, loc).Format(DateLayout)
}

// ToLocalTime formats epochSeconds as a 24-hour HH:MM in loc.
func ToLocalTime(epochSeconds int64, loc *time.Location) string {
	return at(epochSeconds, loc).Format(TimeLayout)
}

func at(epochSeconds int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(epochSeconds, 0).In(loc)
}
