// Package dedup decides whether an import candidate is new, already in the
// user's library, or on the user's ignore list.
package dedup

import (
	"github.com/mrlokans/savepoint/internal/entities"
	"github.com/mrlokans/savepoint/internal/titles"
)

type Classification int

const (
	New Classification = iota
	AlreadyOwned
	Ignored
)

func (c Classification) String() string {
	switch c {
	case AlreadyOwned:
		return "already_owned"
	case Ignored:
		return "ignored"
	default:
		return "new"
	}
}

// Snapshot is a point-in-time view of a user's library and ignore list.
// It is built once per import run and never refreshed during it.
type Snapshot struct {
	OwnedCatalogIDs map[int64]struct{}
	OwnedTitles     map[string]struct{} // normalized
	IgnoredTitles   map[string]struct{} // normalized
	KnownCatalogIDs map[string]int64    // external id -> catalog id from earlier runs
}

// OwnedGame mirrors a library entry for snapshot construction.
type OwnedGame struct {
	CatalogID int64
	Title     string
}

// NewSnapshot builds a snapshot from raw library titles and already
// normalized ignore entries.
func NewSnapshot(owned []OwnedGame, ignored map[string]struct{}, known map[string]int64) Snapshot {
	s := Snapshot{
		OwnedCatalogIDs: make(map[int64]struct{}, len(owned)),
		OwnedTitles:     make(map[string]struct{}, len(owned)),
		IgnoredTitles:   ignored,
		KnownCatalogIDs: known,
	}
	if s.IgnoredTitles == nil {
		s.IgnoredTitles = map[string]struct{}{}
	}
	if s.KnownCatalogIDs == nil {
		s.KnownCatalogIDs = map[string]int64{}
	}
	for _, g := range owned {
		s.OwnedCatalogIDs[g.CatalogID] = struct{}{}
		if n := titles.Normalize(g.Title); n != "" {
			s.OwnedTitles[n] = struct{}{}
		}
	}
	return s
}

// CatalogIDFor returns the catalog id a candidate is already associated
// with, either carried on the candidate or learned from an earlier run.
func (s Snapshot) CatalogIDFor(c entities.ImportCandidate) (int64, bool) {
	if c.CatalogID != nil {
		return *c.CatalogID, true
	}
	id, ok := s.KnownCatalogIDs[c.ExternalID]
	return id, ok
}

// Classify places c into exactly one class. Ownership wins over the ignore
// list. Ownership is decided by catalog id when one is known for the
// candidate and by loose title equivalence otherwise.
func Classify(s Snapshot, c entities.ImportCandidate) Classification {
	normalized := titles.Normalize(c.Title)

	if id, ok := s.CatalogIDFor(c); ok {
		if _, owned := s.OwnedCatalogIDs[id]; owned {
			return AlreadyOwned
		}
	} else if _, owned := s.OwnedTitles[normalized]; owned {
		return AlreadyOwned
	}

	if _, ignored := s.IgnoredTitles[normalized]; ignored {
		return Ignored
	}
	return New
}
