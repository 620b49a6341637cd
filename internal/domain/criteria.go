package domain

import (
	"fmt"
)

// SearchType is the user-facing search category.
type SearchType string

const (
	SearchHackathons   SearchType = "hackathons"
	SearchCertificates SearchType = "certificates"
	SearchCourses      SearchType = "courses"
)

// Category maps the search type onto the record classification it accepts.
func (t SearchType) Category() Category {
	switch t {
	case SearchHackathons:
		return CategoryHackathon
	case SearchCertificates:
		return CategoryCertification
	case SearchCourses:
		return CategoryCourse
	}
	return CategoryUnknown
}

// Criteria is the immutable input to one search run.
type Criteria struct {
	ScrapeType SearchType `json:"scrapeType"`
	Domain     string     `json:"domain,omitempty"`
	Location   string     `json:"location,omitempty"`
	Count      int        `json:"count"`
	Provider   string     `json:"provider,omitempty"` // "all" (default) or a single roster name
}

const (
	defaultCount = 10
	maxCount     = 50
	minCount     = 5
)

// Normalize applies the scraper backend's own parameter clamping: a missing
// count defaults to 10, anything outside [5, 50] is clamped.
func (c Criteria) Normalize() Criteria {
	switch {
	case c.Count <= 0:
		c.Count = defaultCount
	case c.Count < minCount:
		c.Count = minCount
	case c.Count > maxCount:
		c.Count = maxCount
	}
	if c.Provider == "" {
		c.Provider = "all"
	}
	return c
}

// Validate rejects criteria with an unknown search type or provider.
func (c Criteria) Validate() error {
	roster, ok := rosters[c.ScrapeType]
	if !ok {
		return fmt.Errorf("unknown scrape type %q", c.ScrapeType)
	}
	if c.Provider != "" && c.Provider != "all" {
		for _, p := range roster {
			if p == c.Provider {
				return nil
			}
		}
		return fmt.Errorf("provider %q not in %s roster", c.Provider, c.ScrapeType)
	}
	return nil
}

// rosters is the static category → provider table. Hackathon listings come
// from the community platforms; certificates and courses from the vendors.
var rosters = map[SearchType][]string{
	SearchHackathons:   {"mlh", "devpost", "oracle", "ibm", "microsoft"},
	SearchCertificates: {"oracle", "ibm", "microsoft"},
	SearchCourses:      {"ibm", "oracle", "microsoft"},
}

// Providers resolves the provider set for one run: the full roster for the
// search type when "all" (or nothing) is selected, otherwise the single
// named provider.
func (c Criteria) Providers() []string {
	roster := rosters[c.ScrapeType]
	if c.Provider == "" || c.Provider == "all" {
		out := make([]string, len(roster))
		copy(out, roster)
		return out
	}
	return []string{c.Provider}
}
