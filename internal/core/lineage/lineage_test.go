package lineage

import (
	"testing"
	"time"

	"lifeplan/internal/domain/models"
)

func at(minute int) time.Time {
	return time.Date(2026, 3, 1, 9, minute, 0, 0, time.UTC)
}

func TestVersionNumber(t *testing.T) {
	links := []models.LineageLink{
		// Listed out of order; v3 was drafted from v1 after v1 was restored
		{ID: "v3", LineageID: "a", CreatedAt: at(3)},
		{ID: "v1", LineageID: "a", CreatedAt: at(1)},
		{ID: "v2", LineageID: "a", CreatedAt: at(2)},
		// Same timestamp falls back to id
		{ID: "y", LineageID: "b", CreatedAt: at(5)},
		{ID: "x", LineageID: "b", CreatedAt: at(5)},
		// Lineages are numbered independently
		{ID: "solo", LineageID: "c", CreatedAt: at(0)},
	}
	idx := NewIndex(links)

	tests := []struct {
		id   string
		want int
	}{
		{"v1", 1},
		{"v2", 2},
		{"v3", 3},
		{"x", 1},
		{"y", 2},
		{"solo", 1},
		{"unknown", 1},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := VersionNumber(tt.id, idx); got != tt.want {
				t.Errorf("VersionNumber(%s) = %d, want %d", tt.id, got, tt.want)
			}
		})
	}
}

func TestVersionNumber_DeletedVersionClosesGap(t *testing.T) {
	idx := NewIndex([]models.LineageLink{
		{ID: "v1", LineageID: "a", CreatedAt: at(1)},
		{ID: "v3", LineageID: "a", CreatedAt: at(3)},
	})
	if got := VersionNumber("v3", idx); got != 2 {
		t.Errorf("VersionNumber(v3) = %d, want 2", got)
	}
}

func TestApply(t *testing.T) {
	docs := []models.Document{{ID: "v2"}, {ID: "v1"}}
	Apply(docs, NewIndex([]models.LineageLink{
		{ID: "v1", LineageID: "a", CreatedAt: at(1)},
		{ID: "v2", LineageID: "a", CreatedAt: at(2)},
	}))

	if docs[0].VersionNumber != 2 || docs[1].VersionNumber != 1 {
		t.Errorf("version numbers = %d, %d; want 2, 1", docs[0].VersionNumber, docs[1].VersionNumber)
	}
}
