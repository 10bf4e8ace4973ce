// Package lineage computes version numbers within a lineage.
package lineage

import (
	"cmp"
	"slices"

	"lifeplan/internal/domain/models"
)

// Index maps document IDs to their version number
type Index map[string]int

// NewIndex numbers every version by its rank in its lineage, ordered by
// creation time and then id. Numbers start at 1 and never repeat within a
// lineage, whichever parent a version was drafted from.
func NewIndex(links []models.LineageLink) Index {
	byLineage := make(map[string][]models.LineageLink)
	for _, l := range links {
		byLineage[l.LineageID] = append(byLineage[l.LineageID], l)
	}

	idx := make(Index, len(links))
	for _, versions := range byLineage {
		slices.SortFunc(versions, func(a, b models.LineageLink) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		for i, v := range versions {
			idx[v.ID] = i + 1
		}
	}
	return idx
}

// VersionNumber returns the number of id, or 1 when the index does not know it
func VersionNumber(id string, idx Index) int {
	if n, ok := idx[id]; ok {
		return n
	}
	return 1
}

// Apply sets VersionNumber on every document using idx
func Apply(docs []models.Document, idx Index) {
	for i := range docs {
		docs[i].VersionNumber = VersionNumber(docs[i].ID, idx)
	}
}
