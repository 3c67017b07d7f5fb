// Package catalog resolves detected descriptions against the product catalog.
package catalog

import (
	"strings"

	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/normalize"
)

// Resolver matches a detected description to exactly one catalog entry using
// three strictly ordered tiers: exact alias, exact canonical name, then soft
// substring. A tier with more than one distinct candidate yields Ambiguous
// immediately; an ambiguous exact match must never be "resolved" by accident
// via a softer tier.
//
// The resolver holds a read-only snapshot of the catalog taken at
// construction; for a fixed snapshot, Resolve is a pure function.
type Resolver struct {
	entries    map[int64]*entity.CatalogEntry
	aliasExact map[string][]int64
	nameExact  map[string][]int64
	softNames  []softKey
}

type softKey struct {
	norm    string
	entryID int64
}

func NewResolver(entries []entity.CatalogEntry, aliases []entity.CatalogAlias) *Resolver {
	r := &Resolver{
		entries:    make(map[int64]*entity.CatalogEntry, len(entries)),
		aliasExact: make(map[string][]int64),
		nameExact:  make(map[string][]int64),
	}
	for i := range entries {
		e := entries[i]
		r.entries[e.ID] = &e
		n := normalize.Normalize(e.CanonicalName)
		if n == "" {
			continue
		}
		r.nameExact[n] = append(r.nameExact[n], e.ID)
		r.softNames = append(r.softNames, softKey{norm: n, entryID: e.ID})
	}
	for _, a := range aliases {
		if _, ok := r.entries[a.EntryID]; !ok {
			continue // alias to an entry outside the active catalog
		}
		n := normalize.Normalize(a.AliasText)
		if n == "" {
			continue
		}
		r.aliasExact[n] = append(r.aliasExact[n], a.EntryID)
		r.softNames = append(r.softNames, softKey{norm: n, entryID: a.EntryID})
	}
	return r
}

// Resolve returns exactly one of Resolved, NotFound, or Ambiguous for the
// detected description.
func (r *Resolver) Resolve(detected string) entity.ResolutionOutcome {
	n := normalize.Normalize(detected)
	if n == "" {
		return entity.ResolutionOutcome{Status: entity.ResolutionNotFound}
	}

	// tiers 1 and 2: exact alias, then exact canonical name. An exact match
	// in either tier is checked against the other for a colliding entry: an
	// alias whose text equals a different entry's canonical name is ambiguous
	// by construction and must be reported as such, not won by the alias tier.
	if len(r.aliasExact[n]) > 0 {
		if out, done := r.outcome(append(append([]int64{}, r.aliasExact[n]...), r.nameExact[n]...)); done {
			return out
		}
	}
	if out, done := r.outcome(r.nameExact[n]); done {
		return out
	}
	// tier 3: soft substring, both directions
	var soft []int64
	for _, k := range r.softNames {
		if strings.Contains(n, k.norm) || strings.Contains(k.norm, n) {
			soft = append(soft, k.entryID)
		}
	}
	if out, done := r.outcome(soft); done {
		return out
	}
	return entity.ResolutionOutcome{Status: entity.ResolutionNotFound}
}

// outcome deduplicates candidates by entry id and maps the count to a
// resolution: zero means keep looking, one resolves, more than one is
// ambiguous and short-circuits.
func (r *Resolver) outcome(ids []int64) (entity.ResolutionOutcome, bool) {
	seen := make(map[int64]struct{}, len(ids))
	var unique []int64
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	switch len(unique) {
	case 0:
		return entity.ResolutionOutcome{}, false
	case 1:
		return entity.ResolutionOutcome{
			Status: entity.ResolutionResolved,
			Entry:  r.entries[unique[0]],
		}, true
	default:
		return entity.ResolutionOutcome{
			Status:     entity.ResolutionAmbiguous,
			Candidates: len(unique),
		}, true
	}
}
