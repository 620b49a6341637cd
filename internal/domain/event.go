// Package domain holds the core value types of the discovery pipeline.
package domain

import (
	"strings"
	"time"
)

// Category classifies an event record. The zero value means the upstream
// scraper did not classify the record.
type Category string

const (
	CategoryUnknown       Category = ""
	CategoryHackathon     Category = "HACKATHON"
	CategoryCertification Category = "CERTIFICATION"
	CategoryCourse        Category = "COURSE"
)

// Event is the unit flowing through the ingestion pipeline. Field names follow
// the scraper backend's wire format, including the historical "scrappedAt"
// spelling.
type Event struct {
	ID          int64    `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Blurb       string   `json:"blurb,omitempty"`
	URL         string   `json:"url,omitempty"`
	Location    string   `json:"location,omitempty"`
	Date        string   `json:"date,omitempty"`
	EventDate   string   `json:"eventDate,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Type        Category `json:"type,omitempty"`
	ScrapedAt   string   `json:"scrappedAt,omitempty"`
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// When returns the event's calendar date for ordering. Records without a
// parseable date sort after all dated records.
func (e Event) When() time.Time {
	for _, raw := range []string{e.Date, e.EventDate} {
		if raw == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

var remoteMarkers = []string{"online", "remote", "worldwide"}

// Remote reports whether the event's location denotes a non-physical venue.
// An empty location is not remote.
func (e Event) Remote() bool {
	loc := strings.ToLower(e.Location)
	for _, marker := range remoteMarkers {
		if strings.Contains(loc, marker) {
			return true
		}
	}
	return false
}
