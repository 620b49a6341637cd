// Package ingest implements the streaming ingestion pipeline: one search run
// fans out over N provider streams, and every inbound record passes through
// filter → dedupe → sort → persist before the next one is handled.
package ingest

import (
	"strings"

	"github.com/hackhub/hackhub/internal/domain"
)

// Accept reports whether an inbound record belongs in the merge store for the
// given criteria. Pure predicate, no side effects.
func Accept(rec domain.Event, criteria domain.Criteria) bool {
	if !categoryMatches(rec, criteria.ScrapeType) {
		return false
	}
	if !domainMatches(rec, criteria.Domain) {
		return false
	}
	return locationMatches(rec, criteria.Location)
}

// categoryMatches compares the record classification against the requested
// search type. An unclassified record is a wildcard that always passes.
func categoryMatches(rec domain.Event, searchType domain.SearchType) bool {
	recType := domain.Category(strings.ToUpper(string(rec.Type)))
	if recType == domain.CategoryUnknown {
		return true
	}
	want := searchType.Category()
	if want == domain.CategoryUnknown {
		return true
	}
	return recType == want
}

// domainMatches checks the free-text keyword against title and description.
func domainMatches(rec domain.Event, keyword string) bool {
	if keyword == "" {
		return true
	}
	kw := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(rec.Title), kw) ||
		strings.Contains(strings.ToLower(rec.Description), kw)
}

// remoteFilterKeyword reports whether the location filter denotes a remote
// query. Same marker set as Event.Remote.
func remoteFilterKeyword(filter string) bool {
	for _, marker := range []string{"online", "remote", "worldwide"} {
		if strings.Contains(filter, marker) {
			return true
		}
	}
	return false
}

// locationMatches applies the location rule: a remote filter accepts only
// remote records; a city filter accepts substring matches plus any remote
// record, so globally-available opportunities are never hidden by a city
// filter. A record with an empty location is never remote and therefore
// fails any non-remote filter.
func locationMatches(rec domain.Event, filter string) bool {
	if filter == "" {
		return true
	}
	filterLoc := strings.ToLower(filter)
	recLoc := strings.ToLower(rec.Location)

	if remoteFilterKeyword(filterLoc) {
		return rec.Remote()
	}
	return strings.Contains(recLoc, filterLoc) || rec.Remote()
}
