package ingest

import (
	"sort"
	"sync"

	"github.com/hackhub/hackhub/internal/domain"
)

// MirrorFunc receives the full merged collection after every successful
// insert. Implementations must be best-effort: a failing mirror may log but
// never blocks or aborts ingestion.
type MirrorFunc func([]domain.Event)

// InsertFunc is notified with each newly accepted record, after the
// collection has been re-sorted and mirrored.
type InsertFunc func(domain.Event)

type entry struct {
	rec domain.Event
	seq uint64 // ingestion order, monotonically increasing
}

// Store is the authoritative growing collection of accepted records for one
// run. It enforces uniqueness and keeps the collection sorted by descending
// event date, ties broken by descending ingestion order. Append-only for the
// lifetime of the run.
type Store struct {
	mu       sync.Mutex
	entries  []entry
	nextSeq  uint64
	mirror   MirrorFunc
	onInsert []InsertFunc
}

// NewStore creates an empty merge store. mirror may be nil.
func NewStore(mirror MirrorFunc) *Store {
	return &Store{mirror: mirror}
}

// OnInsert registers a callback for accepted records. Must be called before
// records start flowing; callbacks run synchronously on the inserting
// goroutine.
func (s *Store) OnInsert(fn InsertFunc) {
	s.mu.Lock()
	s.onInsert = append(s.onInsert, fn)
	s.mu.Unlock()
}

// Insert adds rec unless it is a duplicate and reports whether it was added.
// Duplicate test, in order: a non-zero ID matching an existing ID; otherwise,
// for records without an ID, a matching (title, provider) pair.
// The lock is held across mirror and callbacks so that record processing
// stays atomic with respect to records arriving on other provider
// connections, and mirrored snapshots can never go backwards.
func (s *Store) Insert(rec domain.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if rec.ID != 0 && e.rec.ID == rec.ID {
			return false
		}
		if rec.ID == 0 && e.rec.Title == rec.Title && e.rec.Provider == rec.Provider {
			return false
		}
	}

	s.entries = append(s.entries, entry{rec: rec, seq: s.nextSeq})
	s.nextSeq++

	sort.SliceStable(s.entries, func(i, j int) bool {
		ti, tj := s.entries[i].rec.When(), s.entries[j].rec.When()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return s.entries[i].seq > s.entries[j].seq
	})

	if s.mirror != nil {
		s.mirror(s.snapshotLocked())
	}
	for _, fn := range s.onInsert {
		fn(rec)
	}
	return true
}

func (s *Store) snapshotLocked() []domain.Event {
	out := make([]domain.Event, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.rec
	}
	return out
}

// Events returns a copy of the current merged collection in display order.
func (s *Store) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the current collection size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
